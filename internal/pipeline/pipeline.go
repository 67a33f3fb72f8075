// Package pipeline runs one briefing: window gate, throttle check, feed
// collection, prompt composition, dispatch, and the throttle commit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rusiaaaaaaa/ai-news-bot/internal/digest"
	"github.com/rusiaaaaaaa/ai-news-bot/internal/dispatch"
	"github.com/rusiaaaaaaa/ai-news-bot/internal/feed"
	"github.com/rusiaaaaaaa/ai-news-bot/internal/metrics"
	"github.com/rusiaaaaaaa/ai-news-bot/internal/throttle"
	"github.com/rusiaaaaaaa/ai-news-bot/internal/window"
)

type State string

const (
	StateIdle            State = "idle"
	StateWindowChecked   State = "window_checked"
	StateThrottleChecked State = "throttle_checked"
	StateAggregated      State = "aggregated"
	StateDispatched      State = "dispatched"
	StateCommitted       State = "committed"
	StateSkipped         State = "skipped"
	StateFailed          State = "failed"
)

// Dispatcher summarizes a prompt and delivers it. *dispatch.Dispatcher implements it.
type Dispatcher interface {
	Run(ctx context.Context, now time.Time, prompt string) dispatch.Outcome
}

// Config holds everything a Controller needs. Secrets never reach this
// package; they are already baked into the Dispatcher.
type Config struct {
	Window      window.Window
	MinInterval time.Duration
	// Location is where window hours are evaluated. Nil keeps now's zone.
	Location *time.Location

	Sources []feed.Source
	Feed    feed.Options
	Fetcher feed.Fetcher

	Store      throttle.Store
	Composer   *digest.Composer
	Dispatcher Dispatcher

	Logger  zerolog.Logger
	Metrics metrics.Recorder
}

// RunOptions alter a single run.
type RunOptions struct {
	// Force skips the window gate and the throttle.
	Force bool
	// DryRun stops after composing the prompt: nothing is sent or committed.
	DryRun bool
}

// Result describes how a run ended.
type Result struct {
	RunID string
	State State
	// Err is nil only for Committed runs.
	Err error

	Entries    int
	FeedErrors []*feed.FetchError
	Prompt     string
	Outcome    dispatch.Outcome
	// CommitErr wraps ErrStatePersistence when the throttle commit failed.
	CommitErr error
	Duration  time.Duration
}

// Reason is a short human-readable explanation of the terminal state.
func (r Result) Reason() string {
	switch {
	case r.State == StateCommitted && r.CommitErr != nil:
		return r.CommitErr.Error()
	case r.Err != nil:
		return r.Err.Error()
	default:
		return string(r.State)
	}
}

type Controller struct {
	cfg Config
}

func New(cfg Config) (*Controller, error) {
	if cfg.Store == nil {
		return nil, errors.New("pipeline: throttle store is required")
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("pipeline: feed fetcher is required")
	}
	if cfg.Composer == nil {
		return nil, errors.New("pipeline: composer is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NoopRecorder{}
	}
	return &Controller{cfg: cfg}, nil
}

// Run executes one pass at now. It never panics on component failures and
// always returns a terminal state: Skipped, Committed or Failed.
func (c *Controller) Run(ctx context.Context, now time.Time, opts RunOptions) (res Result) {
	started := time.Now()
	if c.cfg.Location != nil {
		now = now.In(c.cfg.Location)
	}
	res = Result{RunID: uuid.NewString(), State: StateIdle}
	log := c.cfg.Logger.With().Str("run_id", res.RunID).Logger()

	defer func() {
		res.Duration = time.Since(started)
		c.record(log, res)
	}()

	if !opts.Force && !window.IsOpen(now, c.cfg.Window) {
		return skip(res, ErrWindowClosed)
	}
	res.State = StateWindowChecked

	if !opts.Force {
		st, err := c.cfg.Store.Read(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("throttle state unreadable, treating as never dispatched")
			st = nil
		}
		if st != nil && st.LastDispatchAt.After(now) {
			log.Warn().
				Time("last_dispatch_at", st.LastDispatchAt).
				Msg("last dispatch is in the future, throttled until the clock catches up; run reset if the clock was wrong")
		}
		if throttle.ShouldThrottle(now, st, c.cfg.MinInterval) {
			log.Debug().Dur("elapsed", throttle.Elapsed(now, st)).Msg("within minimum interval")
			return skip(res, ErrThrottled)
		}
	}
	res.State = StateThrottleChecked

	collected := feed.Collect(ctx, c.cfg.Fetcher, c.cfg.Sources, c.cfg.Feed)
	for _, fe := range collected.Errors {
		log.Warn().Str("source", fe.Source).Err(fe.Err).Msg("feed fetch failed")
		c.cfg.Metrics.IncFeedFetch(fe.Source, false)
	}
	for name, n := range collected.PerSource {
		log.Debug().Str("source", name).Int("entries", n).Msg("feed fetched")
		c.cfg.Metrics.IncFeedFetch(name, true)
	}
	res.Entries = len(collected.Entries)
	res.FeedErrors = collected.Errors
	c.cfg.Metrics.SetEntriesCollected(res.Entries)

	res.Prompt = c.cfg.Composer.BuildPrompt(digest.NewRequest(now, collected.Entries))
	res.State = StateAggregated

	if opts.DryRun {
		return skip(res, ErrDryRun)
	}
	if c.cfg.Dispatcher == nil {
		res.State = StateFailed
		res.Err = errors.New("pipeline: no dispatcher configured")
		return res
	}

	res.Outcome = c.cfg.Dispatcher.Run(ctx, now, res.Prompt)
	res.State = StateDispatched
	if !res.Outcome.Sent() {
		res.State = StateFailed
		res.Err = res.Outcome.Err
		return res
	}

	if err := c.cfg.Store.Commit(ctx, now); err != nil {
		res.CommitErr = fmt.Errorf("%w: %w", ErrStatePersistence, err)
		log.Error().Err(res.CommitErr).Msg("dispatched but throttle state not saved")
	} else {
		c.cfg.Metrics.SetLastDispatch(now)
	}
	res.State = StateCommitted
	return res
}

func skip(res Result, reason error) Result {
	res.State = StateSkipped
	res.Err = reason
	return res
}

func (c *Controller) record(log zerolog.Logger, res Result) {
	c.cfg.Metrics.ObserveRunDuration(res.Duration)
	c.cfg.Metrics.IncRun(string(res.State))

	switch res.State {
	case StateSkipped:
		ev := log.Info().Str("reason", res.Reason())
		if errors.Is(res.Err, ErrDryRun) {
			ev = ev.Int("entries", res.Entries)
		}
		ev.Msg("run skipped")
	case StateCommitted:
		log.Info().
			Int("entries", res.Entries).
			Int("status", res.Outcome.StatusCode).
			Dur("took", res.Duration).
			Msg("briefing sent")
	default:
		log.Error().Err(res.Err).Str("state", string(res.State)).Int("entries", res.Entries).Msg("run failed")
	}
}
