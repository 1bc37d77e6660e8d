package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkarlsen/switchboard/internal/config"
	"github.com/mkarlsen/switchboard/internal/dispatch"
	"github.com/mkarlsen/switchboard/pkg/models"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Show archived coordination sessions",
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 10, "Maximum sessions to show")
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := dispatch.LoadSessions(db)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No archived sessions. Run 'switchboard submit <problem>' to start one.")
		return nil
	}
	if len(sessions) > sessionsLimit {
		sessions = sessions[:sessionsLimit]
	}

	for _, s := range sessions {
		fmt.Printf("%s: %s (%s ago, %d invocations)\n",
			s.ID, s.Status, formatDuration(time.Since(s.CreatedAt)), len(s.Invocations))
		for _, inv := range s.Invocations {
			marker := "•"
			if inv.Status != models.InvocationDone {
				marker = "✗"
			}
			fmt.Printf("  %s %s: %s\n", marker, inv.SpecialistID, inv.Status)
		}
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
