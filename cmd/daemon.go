package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rusiaaaaaaa/ai-news-bot/internal/metrics"
	"github.com/rusiaaaaaaa/ai-news-bot/internal/pipeline"
)

var flagMetricsAddr string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the pipeline on the configured cron schedule",
	Long: `Stay in the foreground and run the pipeline on the "schedule" cron expression,
evaluated in the configured timezone. A run that is still going when the next one is
due causes that trigger to be skipped.

With --metrics-addr, Prometheus metrics are served at /metrics.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve /metrics on this address (e.g. :9090)")
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func runDaemon(cmd *cobra.Command, args []string) error {
	a, err := newApp(eagerDispatch)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if _, err := cronParser.Parse(a.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", a.cfg.Schedule, err)
	}

	c := newScheduler(a.cfg.Location(), a.log)
	if _, err := c.AddFunc(a.cfg.Schedule, func() {
		a.ctrl.Run(ctx, time.Now(), pipeline.RunOptions{})
		a.exportMetrics()
	}); err != nil {
		return fmt.Errorf("scheduling pipeline: %w", err)
	}

	var srv *http.Server
	if flagMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler(a.reg))
		srv = &http.Server{Addr: flagMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error().Err(err).Str("addr", flagMetricsAddr).Msg("metrics server stopped")
			}
		}()
	}

	c.Start()
	a.log.Info().
		Str("schedule", a.cfg.Schedule).
		Str("tz", a.cfg.Location().String()).
		Str("window", a.cfg.OperatingWindow().String()).
		Msg("daemon started")

	<-ctx.Done()
	a.log.Info().Msg("shutting down")

	<-c.Stop().Done()
	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}
	return nil
}

func newScheduler(loc *time.Location, log zerolog.Logger) *cron.Cron {
	l := cronLogger{log: log}
	return cron.New(
		cron.WithParser(cronParser),
		cron.WithLocation(loc),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
