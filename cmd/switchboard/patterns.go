package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mkarlsen/switchboard/internal/config"
	"github.com/mkarlsen/switchboard/pkg/models"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List domain patterns and their learned confidence",
	RunE:  runPatterns,
}

func runPatterns(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	repo, err := buildRepo(cfg, db)
	if err != nil {
		return err
	}

	patterns := repo.List()
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].ID < patterns[j].ID })

	fmt.Printf("%-16s %-24s %-10s %-10s %s\n", "PATTERN", "SPECIALIST", "CONFIDENCE", "STATE", "OUTCOMES")
	for _, p := range patterns {
		fmt.Printf("%-16s %-24s %-10.2f %-10s %d/%d\n",
			p.ID, p.SpecialistID, p.Confidence, colorState(p.State), p.SuccessCount, p.TotalCount)
	}
	return nil
}

func colorState(s models.PatternState) string {
	if s == models.PatternConverged {
		return color.GreenString(string(s))
	}
	return color.YellowString(string(s))
}
