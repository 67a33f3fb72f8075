package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rusiaaaaaaa/ai-news-bot/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once",
	Long: `Check the operating window and the minimum interval, then collect feeds, summarize
them and send the briefing.

Skipped and failed runs are logged and still exit 0, so a scheduler can fire this
as often as it likes. Only configuration problems produce a non-zero exit. Secrets
are read only once a briefing is actually due.`,
	RunE: runOnce,
}

func runOnce(cmd *cobra.Command, args []string) error {
	mode := lazyDispatch
	if flagDryRun {
		mode = noDispatch
	}
	a, err := newApp(mode)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.ctrl.Run(cmd.Context(), time.Now(), pipeline.RunOptions{Force: flagForce, DryRun: flagDryRun})
	a.exportMetrics()

	if flagDryRun && res.Prompt != "" {
		fmt.Fprintln(cmd.OutOrStdout(), res.Prompt)
		fmt.Fprintln(cmd.OutOrStdout())
	}
	fmt.Fprintln(cmd.OutOrStdout(), describeResult(res))
	// Missing secrets are a setup problem, not a failed run
	if err := a.lazy.Err(); err != nil {
		return err
	}
	return nil
}

// describeResult is the one-line outcome printed after a run.
func describeResult(res pipeline.Result) string {
	switch res.State {
	case pipeline.StateCommitted:
		s := fmt.Sprintf("Sent briefing (%d) with %d entries.", res.Outcome.StatusCode, res.Entries)
		if res.CommitErr != nil {
			s += " Warning: " + res.CommitErr.Error()
		}
		return s
	case pipeline.StateSkipped:
		if errors.Is(res.Err, pipeline.ErrDryRun) {
			return fmt.Sprintf("Dry run: %d entries collected, nothing sent.", res.Entries)
		}
		return "Skipped: " + res.Reason() + "."
	default:
		return "Failed: " + res.Reason()
	}
}
