package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mkarlsen/switchboard/internal/classifier"
	"github.com/mkarlsen/switchboard/internal/config"
	"github.com/mkarlsen/switchboard/internal/dispatch"
	"github.com/mkarlsen/switchboard/internal/resolver"
	"github.com/mkarlsen/switchboard/pkg/models"
)

var (
	submitRequester string
	submitHints     []string
	submitDryRun    bool
)

var submitCmd = &cobra.Command{
	Use:   "submit <problem description>",
	Short: "Classify a problem and dispatch it to specialists",
	Long: `Classify the problem text against the learned domain patterns,
plan a dispatch (direct, parallel, or meta), and run it against the
registered specialist handlers.

With --dry-run only the plan is printed; nothing is dispatched and no
outcome is recorded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitRequester, "requester", "", "Requester id recorded in the session")
	submitCmd.Flags().StringArrayVar(&submitHints, "hint", nil, "Domain pattern id to include regardless of text score (repeatable)")
	submitCmd.Flags().BoolVar(&submitDryRun, "dry-run", false, "Print the dispatch plan without running it")
}

func runSubmit(cmd *cobra.Command, args []string) error {
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
	cls := buildClassifier(cfg, repo)
	sel := dispatch.NewSelector(cls, cfg.Dispatch)

	req := models.ProblemRequest{
		Text:      strings.Join(args, " "),
		Requester: submitRequester,
		Hints:     submitHints,
	}

	decision := sel.Decide(req)
	printDecision(decision)

	if submitDryRun {
		return nil
	}

	res := resolver.New(cfg.Resolver)
	defer res.Close()

	reg, err := buildRegistry(repo, res)
	if err != nil {
		return err
	}
	if err := reg.Validate(); err != nil {
		return err
	}

	emitter := dispatch.NewEventEmitter(64)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for ev := range emitter.Events() {
			printEvent(ev)
		}
	}()

	runner := dispatch.NewRunner(reg, sel, cls, cfg.Dispatch,
		dispatch.WithStore(db),
		dispatch.WithEmitter(emitter),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, err := runner.Execute(ctx, req, decision)
	emitter.Close()
	<-drained
	if err != nil {
		return err
	}
	printOutcome(outcome)

	// Persist what this session taught the classifier.
	if err := classifier.SaveSnapshot(repo, db); err != nil {
		return fmt.Errorf("persist pattern table: %w", err)
	}
	return nil
}

func printDecision(d models.DispatchDecision) {
	fmt.Printf("Strategy: %s\n", color.CyanString(string(d.Strategy)))
	fmt.Println("Specialists:")
	for _, sc := range d.Specialists {
		fmt.Printf("  %-24s confidence %.2f\n", sc.SpecialistID, sc.Confidence)
	}
	if len(d.Batches) > 1 {
		fmt.Println("Batches:")
		for i, batch := range d.Batches {
			ids := make([]string, len(batch))
			for j, id := range batch {
				ids[j] = string(id)
			}
			fmt.Printf("  %d: %s\n", i, strings.Join(ids, ", "))
		}
	}
}

// printEvent renders one progress line while the dispatch is in flight.
func printEvent(ev dispatch.Event) {
	switch ev.Type {
	case dispatch.EventSpecialistStarted:
		fmt.Printf("%s %s started (batch %d)\n", color.CyanString("→"), ev.SpecialistID, ev.Batch)
	case dispatch.EventSpecialistCompleted:
		fmt.Printf("%s %s completed\n", color.GreenString("✓"), ev.SpecialistID)
	case dispatch.EventSpecialistFailed:
		fmt.Printf("%s %s failed: %v\n", color.RedString("✗"), ev.SpecialistID, ev.Error)
	case dispatch.EventSpecialistTimedOut:
		fmt.Printf("%s %s timed out\n", color.YellowString("✗"), ev.SpecialistID)
	case dispatch.EventSynthesisStarted:
		fmt.Printf("%s synthesizing across batches\n", color.CyanString("→"))
	}
}

func printOutcome(o *dispatch.Outcome) {
	fmt.Printf("\nSession: %s\n", o.CorrelationID)
	fmt.Printf("Status: %s\n", colorStatus(o.Status))
	fmt.Printf("Context preservation: %.0f%%\n", o.Preservation*100)

	if len(o.Degraded) > 0 {
		fmt.Println("Degraded specialists:")
		for _, d := range o.Degraded {
			fmt.Printf("  %s %s: %s\n", color.RedString("✗"), d.SpecialistID, d.Reason)
		}
	}

	if len(o.Findings) > 0 {
		fmt.Println("Findings:")
		for _, f := range o.Findings {
			fmt.Printf("  %s %s\n", color.GreenString("•"), f.Summary)
		}
	}

	if len(o.Bundle.Integration) > 0 {
		fmt.Println("Integration:")
		for _, rec := range o.Bundle.Integration {
			fmt.Printf("  [%s] %s\n", rec.Kind, rec.Detail)
		}
	}
}

func colorStatus(s models.DispatchStatus) string {
	switch s {
	case models.DispatchComplete:
		return color.GreenString(string(s))
	case models.DispatchPartial:
		return color.YellowString(string(s))
	default:
		return color.RedString(string(s))
	}
}
