package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rusiaaaaaaa/ai-news-bot/internal/config"
	"github.com/rusiaaaaaaa/ai-news-bot/internal/throttle"
	"github.com/rusiaaaaaaa/ai-news-bot/internal/window"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the operating window and throttle state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		st, readErr := store.Read(cmd.Context())
		writeStatus(cmd.OutOrStdout(), statusInfo{
			now:         time.Now().In(cfg.Location()),
			window:      cfg.OperatingWindow(),
			timezone:    cfg.Location().String(),
			minInterval: cfg.MinIntervalDuration(),
			statePath:   cfg.StatePath(),
			driver:      cfg.State.Driver,
			state:       st,
			readErr:     readErr,
		})
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the last dispatch so the next run can send immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Reset(cmd.Context()); err != nil {
			return fmt.Errorf("resetting throttle state: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Throttle state cleared (%s).\n", cfg.StatePath())
		return nil
	},
}

type statusInfo struct {
	now         time.Time
	window      window.Window
	timezone    string
	minInterval time.Duration
	statePath   string
	driver      string
	state       *throttle.State
	readErr     error
}

func writeStatus(w io.Writer, s statusInfo) {
	open := "closed"
	if window.IsOpen(s.now, s.window) {
		open = "open"
	}
	fmt.Fprintf(w, "Window: %s %s (%s now)\n", s.window, s.timezone, open)
	fmt.Fprintf(w, "Min interval: %s\n", formatDuration(s.minInterval))
	fmt.Fprintf(w, "State: %s (%s)\n", s.statePath, s.driver)

	st := s.state
	switch {
	case s.readErr != nil:
		fmt.Fprintf(w, "Last dispatch: unreadable (%v), next run treats it as never\n", s.readErr)
		st = nil
	case st == nil:
		fmt.Fprintln(w, "Last dispatch: never")
	case st.LastDispatchAt.After(s.now):
		fmt.Fprintf(w, "Last dispatch: %s (%s in the future, check the clock or run reset)\n",
			st.LastDispatchAt.In(s.now.Location()).Format("2006-01-02 15:04 MST"),
			formatDuration(-throttle.Elapsed(s.now, st)))
	default:
		fmt.Fprintf(w, "Last dispatch: %s (%s ago)\n",
			st.LastDispatchAt.In(s.now.Location()).Format("2006-01-02 15:04 MST"),
			formatDuration(throttle.Elapsed(s.now, st)))
	}

	switch {
	case open == "closed":
		fmt.Fprintln(w, "Next run: skipped, outside window")
	case throttle.ShouldThrottle(s.now, st, s.minInterval):
		wait := s.minInterval - throttle.Elapsed(s.now, st)
		fmt.Fprintf(w, "Next run: throttled for another %s\n", formatDuration(wait))
	default:
		fmt.Fprintln(w, "Next run: would dispatch")
	}
}

// formatDuration renders d at minute precision, e.g. "2d", "3h", "1h15m", "0m".
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Minute)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	var out string
	if days > 0 {
		out += fmt.Sprintf("%dd", days)
	}
	if hours > 0 {
		out += fmt.Sprintf("%dh", hours)
	}
	if mins > 0 || out == "" {
		out += fmt.Sprintf("%dm", mins)
	}
	return out
}
