// Package telegram delivers a single text message to one chat through the Bot API.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"
)

// TextLimit is the maximum message length the Bot API accepts.
const TextLimit = 4096

// Response is what the Bot API answered to a send.
type Response struct {
	StatusCode int
	Body       string
}

// OK reports whether the status code is in the 2xx class.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type Options struct {
	Token     string
	ChatID    string // numeric id or @channelname
	ParseMode string // "Markdown", "MarkdownV2", "HTML" or empty
	Timeout   time.Duration
	// BaseURL overrides the Bot API root.
	BaseURL string
}

// Sender posts messages to one chat. It makes exactly one API call per Send.
type Sender struct {
	bot       *tele.Bot
	chat      chatRecipient
	parseMode tele.ParseMode
	rec       *recordingTransport

	mu sync.Mutex // one send at a time; rec holds per-call state
}

type chatRecipient string

func (c chatRecipient) Recipient() string { return string(c) }

func New(opts Options) (*Sender, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if strings.TrimSpace(opts.ChatID) == "" {
		return nil, errors.New("telegram chat id is empty")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	rec := &recordingTransport{base: http.DefaultTransport}
	b, err := tele.NewBot(tele.Settings{
		URL:     opts.BaseURL,
		Token:   opts.Token,
		Client:  &http.Client{Timeout: timeout, Transport: rec},
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	return &Sender{
		bot:       b,
		chat:      chatRecipient(strings.TrimSpace(opts.ChatID)),
		parseMode: tele.ParseMode(opts.ParseMode),
		rec:       rec,
	}, nil
}

// Send delivers text, cut to TextLimit runes. A non-nil error means the API
// never answered; an answer with a non-2xx status is returned as a Response.
func (s *Sender) Send(ctx context.Context, text string) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	s.rec.begin(ctx)
	_, err := s.bot.Send(s.chat, truncate(text, TextLimit), &tele.SendOptions{ParseMode: s.parseMode})
	last := s.rec.end()

	if last != nil {
		// The API answered; its status decides the outcome, not the client's parse of it.
		return *last, nil
	}
	if err == nil {
		err = errors.New("no response recorded")
	}
	return Response{}, fmt.Errorf("telegram send: %w", err)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// recordingTransport captures the status and body of the last answer so the
// caller sees the raw HTTP outcome behind the bot client's error mapping.
type recordingTransport struct {
	base http.RoundTripper

	mu   sync.Mutex
	ctx  context.Context
	last *Response
}

func (t *recordingTransport) begin(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ctx = ctx
	t.last = nil
}

func (t *recordingTransport) end() *Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	last := t.last
	t.ctx = nil
	t.last = nil
	return last
}

func (t *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	ctx := t.ctx
	t.mu.Unlock()
	if ctx != nil {
		req = req.WithContext(ctx)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	t.mu.Lock()
	t.last = &Response{StatusCode: resp.StatusCode, Body: string(body)}
	t.mu.Unlock()
	return resp, nil
}
