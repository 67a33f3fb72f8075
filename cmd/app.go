package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/rusiaaaaaaa/ai-news-bot/internal/ai"
	"github.com/rusiaaaaaaa/ai-news-bot/internal/config"
	"github.com/rusiaaaaaaa/ai-news-bot/internal/digest"
	"github.com/rusiaaaaaaa/ai-news-bot/internal/dispatch"
	"github.com/rusiaaaaaaa/ai-news-bot/internal/feed"
	"github.com/rusiaaaaaaa/ai-news-bot/internal/logx"
	"github.com/rusiaaaaaaa/ai-news-bot/internal/metrics"
	"github.com/rusiaaaaaaa/ai-news-bot/internal/pipeline"
	"github.com/rusiaaaaaaa/ai-news-bot/internal/telegram"
	"github.com/rusiaaaaaaa/ai-news-bot/internal/throttle"
)

// app is everything one process needs to run the pipeline.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	store throttle.Store
	reg   *prom.Registry
	ctrl  *pipeline.Controller
	lazy  *lazyDispatcher
}

type dispatchMode int

const (
	// noDispatch builds a pipeline that stops after composing the prompt.
	noDispatch dispatchMode = iota
	// lazyDispatch loads secrets the first time the pipeline dispatches.
	lazyDispatch
	// eagerDispatch loads secrets up front so misconfiguration fails at startup.
	eagerDispatch
)

func openStore(cfg *config.Config) (throttle.Store, error) {
	store, err := throttle.Open(throttle.Config{Driver: cfg.State.Driver, Path: cfg.StatePath()})
	if err != nil {
		return nil, fmt.Errorf("opening throttle state: %w", err)
	}
	return store, nil
}

// newApp wires the pipeline. Secrets are only loaded when the run may
// dispatch, so dry runs and skipped runs work without them.
func newApp(mode dispatchMode) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log := logx.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	reg := prom.NewRegistry()
	composer := digest.New(cfg.Prompt.Language, cfg.Location())
	pcfg := pipeline.Config{
		Window:      cfg.OperatingWindow(),
		MinInterval: cfg.MinIntervalDuration(),
		Location:    cfg.Location(),
		Sources:     feedSources(cfg),
		Feed: feed.Options{
			PerSource:    cfg.Limits.PerSource,
			Total:        cfg.Limits.Total,
			ExcerptChars: cfg.Limits.ExcerptChars,
			Timeout:      cfg.FeedTimeout(),
			Concurrent:   cfg.Fetch.Concurrent,
			RatePerSec:   cfg.Fetch.RatePerSec,
		},
		Fetcher:  feed.NewRSSFetcher(&http.Client{Timeout: cfg.FeedTimeout()}),
		Store:    store,
		Composer: composer,
		Logger:   log,
		Metrics:  metrics.NewPrometheusRecorder(reg),
	}

	a := &app{cfg: cfg, log: log, store: store, reg: reg}
	switch mode {
	case eagerDispatch:
		d, err := newDispatcher(cfg, composer)
		if err != nil {
			store.Close()
			return nil, err
		}
		pcfg.Dispatcher = d
	case lazyDispatch:
		a.lazy = &lazyDispatcher{build: func() (pipeline.Dispatcher, error) {
			return newDispatcher(cfg, composer)
		}}
		pcfg.Dispatcher = a.lazy
	}

	ctrl, err := pipeline.New(pcfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	a.ctrl = ctrl
	return a, nil
}

// lazyDispatcher builds the real dispatcher on first use, so a run that the
// window or the throttle skips never reads secrets.
type lazyDispatcher struct {
	build func() (pipeline.Dispatcher, error)

	once sync.Once
	d    pipeline.Dispatcher
	err  error
}

func (l *lazyDispatcher) Run(ctx context.Context, now time.Time, prompt string) dispatch.Outcome {
	l.once.Do(func() { l.d, l.err = l.build() })
	if l.err != nil {
		return dispatch.Failed(l.err)
	}
	return l.d.Run(ctx, now, prompt)
}

// Err reports a failure to build the dispatcher, if it was ever needed.
func (l *lazyDispatcher) Err() error {
	if l == nil {
		return nil
	}
	return l.err
}

func newDispatcher(cfg *config.Config, composer *digest.Composer) (*dispatch.Dispatcher, error) {
	sec, err := config.LoadSecrets(flagEnvFile, cfg.AI.Provider)
	if err != nil {
		return nil, err
	}
	summarizer, err := ai.New(ai.Options{
		Provider: cfg.AI.Provider,
		Model:    cfg.AI.Model,
		APIKey:   sec.AIKey,
		Timeout:  cfg.AITimeout(),
	})
	if err != nil {
		return nil, err
	}
	sender, err := telegram.New(telegram.Options{
		Token:     sec.TelegramToken,
		ChatID:    sec.ChatID,
		ParseMode: cfg.Telegram.ParseMode,
		Timeout:   cfg.SendTimeout(),
	})
	if err != nil {
		return nil, err
	}
	return dispatch.New(dispatch.Config{
		Summarizer:       summarizer,
		Messenger:        sender,
		Header:           composer.Header,
		SummarizeTimeout: cfg.AITimeout(),
		SendTimeout:      cfg.SendTimeout(),
	}), nil
}

func feedSources(cfg *config.Config) []feed.Source {
	enabled := cfg.EnabledSources()
	out := make([]feed.Source, 0, len(enabled))
	for _, s := range enabled {
		out = append(out, feed.Source{Name: s.Name, URL: s.URL})
	}
	return out
}

// exportMetrics writes the node exporter textfile if one is configured.
func (a *app) exportMetrics() {
	if a.cfg.Metrics.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(a.cfg.Metrics.Textfile, a.reg); err != nil {
		a.log.Warn().Err(err).Msg("metrics textfile not written")
	}
}

func (a *app) Close() error {
	return a.store.Close()
}
