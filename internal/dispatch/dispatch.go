// Package dispatch turns a prompt into a delivered briefing: one call to the
// generative service, then at most one call to the messaging transport.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rusiaaaaaaa/ai-news-bot/internal/ai"
	"github.com/rusiaaaaaaa/ai-news-bot/internal/telegram"
)

var (
	// ErrSummarization means the generative service gave no usable text.
	ErrSummarization = errors.New("summarization failed")
	// ErrTransport means the message was not accepted by the messaging endpoint.
	ErrTransport = errors.New("dispatch transport failed")
)

// Messenger delivers one message and reports the endpoint's answer.
type Messenger interface {
	Send(ctx context.Context, text string) (telegram.Response, error)
}

// Outcome is the result of one Run: either sent with a status code, or failed.
type Outcome struct {
	StatusCode int
	Err        error
	// Text is the message as handed to the messenger, if it got that far.
	Text string
}

func Sent(code int, text string) Outcome { return Outcome{StatusCode: code, Text: text} }
func Failed(err error) Outcome           { return Outcome{Err: err} }

func (o Outcome) Sent() bool { return o.Err == nil }

func (o Outcome) String() string {
	if o.Sent() {
		return fmt.Sprintf("sent(%d)", o.StatusCode)
	}
	return fmt.Sprintf("failed(%v)", o.Err)
}

type Config struct {
	Summarizer ai.Summarizer
	Messenger  Messenger
	// Header renders the first line of the message for the run's time.
	Header           func(now time.Time) string
	SummarizeTimeout time.Duration
	SendTimeout      time.Duration
}

type Dispatcher struct {
	cfg Config
}

// bodyExcerptLimit bounds how much of a rejected response is kept for diagnostics.
const bodyExcerptLimit = 200

func New(cfg Config) *Dispatcher {
	if cfg.SummarizeTimeout <= 0 {
		cfg.SummarizeTimeout = 60 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	return &Dispatcher{cfg: cfg}
}

// Run summarizes prompt and sends the result. No retries are made.
func (d *Dispatcher) Run(ctx context.Context, now time.Time, prompt string) Outcome {
	sctx, cancel := context.WithTimeout(ctx, d.cfg.SummarizeTimeout)
	summary, err := d.cfg.Summarizer.Summarize(sctx, prompt)
	cancel()
	if err != nil {
		return Failed(fmt.Errorf("%w: %w", ErrSummarization, err))
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return Failed(fmt.Errorf("%w: empty summary", ErrSummarization))
	}

	text := summary
	if d.cfg.Header != nil {
		text = d.cfg.Header(now) + "\n\n" + summary
	}

	mctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	resp, err := d.cfg.Messenger.Send(mctx, text)
	cancel()
	if err != nil {
		return Outcome{Err: fmt.Errorf("%w: %w", ErrTransport, err), Text: text}
	}
	if !resp.OK() {
		return Outcome{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: status %d: %s", ErrTransport, resp.StatusCode, excerpt(resp.Body)),
			Text:       text,
		}
	}
	return Sent(resp.StatusCode, text)
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= bodyExcerptLimit {
		return s
	}
	return string(runes[:bodyExcerptLimit]) + "..."
}
