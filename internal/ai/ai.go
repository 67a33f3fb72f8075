package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrQuota means the provider rejected the call for rate or quota reasons.
	ErrQuota = errors.New("quota exceeded")
	// ErrTimeout means the call did not finish before its deadline.
	ErrTimeout = errors.New("timed out")
	// ErrMalformed means the provider answered with something we could not read.
	ErrMalformed = errors.New("malformed response")
)

// APIError is a non-2xx answer from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrQuota) match rate-limit answers.
func (e *APIError) Is(target error) bool {
	return target == ErrQuota && e.StatusCode == http.StatusTooManyRequests
}

// Summarizer turns a prompt into generated text.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Options configures a provider.
type Options struct {
	Provider string // "gemini", "claude" or "openai"
	Model    string
	APIKey   string
	// BaseURL overrides the provider endpoint root.
	BaseURL string
	Timeout time.Duration
}

const (
	defaultTimeout        = 60 * time.Second
	maxOutputTokens       = 2048
	geminiMaxOutputTokens = 8192 // thinking tokens count against this limit
	errorBodyLimit        = 1024

	geminiBaseURL = "https://generativelanguage.googleapis.com"
	claudeBaseURL = "https://api.anthropic.com"
	openaiBaseURL = "https://api.openai.com"

	defaultGemini = "gemini-2.5-flash"
	defaultClaude = "claude-haiku-4-5-20251001"
	defaultOpenAI = "gpt-4o-mini"
)

// New creates a Summarizer for the configured provider.
func New(opts Options) (Summarizer, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("AI not configured: missing API key")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	h := httpCaller{client: &http.Client{Timeout: timeout}}

	switch opts.Provider {
	case "", "gemini":
		h.provider = "gemini"
		return &geminiProvider{httpCaller: h, apiKey: opts.APIKey,
			model: orDefault(opts.Model, defaultGemini), baseURL: orDefault(opts.BaseURL, geminiBaseURL)}, nil
	case "claude":
		h.provider = "claude"
		return &claudeProvider{httpCaller: h, apiKey: opts.APIKey,
			model: orDefault(opts.Model, defaultClaude), baseURL: orDefault(opts.BaseURL, claudeBaseURL)}, nil
	case "openai":
		h.provider = "openai"
		return &openaiProvider{httpCaller: h, apiKey: opts.APIKey,
			model: orDefault(opts.Model, defaultOpenAI), baseURL: orDefault(opts.BaseURL, openaiBaseURL)}, nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %q (valid: gemini, claude, openai)", opts.Provider)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type httpCaller struct {
	provider string
	client   *http.Client
}

// post sends body as JSON and decodes a 200 answer into out.
func (h httpCaller) post(ctx context.Context, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%s API: %w: %v", h.provider, ErrTimeout, err)
		}
		return fmt.Errorf("%s API error: %w", h.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &APIError{Provider: h.provider, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%s API: %w: %v", h.provider, ErrTimeout, err)
		}
		return fmt.Errorf("%s API: %w: %v", h.provider, ErrMalformed, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func emptyText(provider string) error {
	return fmt.Errorf("%s API: %w: no text in response", provider, ErrMalformed)
}

// --- Gemini provider ---

type geminiProvider struct {
	httpCaller
	apiKey  string
	model   string
	baseURL string
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (g *geminiProvider) Summarize(ctx context.Context, prompt string) (string, error) {
	req := geminiRequest{Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}}
	req.GenerationConfig.MaxOutputTokens = geminiMaxOutputTokens

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(g.baseURL, "/"), g.model)
	var gr geminiResponse
	if err := g.post(ctx, url, map[string]string{"x-goog-api-key": g.apiKey}, req, &gr); err != nil {
		return "", err
	}
	if gr.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini API: %w: prompt blocked (%s)", ErrMalformed, gr.PromptFeedback.BlockReason)
	}
	if len(gr.Candidates) == 0 {
		return "", emptyText(g.provider)
	}
	var sb strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", emptyText(g.provider)
	}
	return sb.String(), nil
}

// --- Claude provider ---

type claudeProvider struct {
	httpCaller
	apiKey  string
	model   string
	baseURL string
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (c *claudeProvider) Summarize(ctx context.Context, prompt string) (string, error) {
	req := claudeRequest{
		Model:     c.model,
		MaxTokens: maxOutputTokens,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{"x-api-key": c.apiKey, "anthropic-version": "2023-06-01"}

	var cr claudeResponse
	if err := c.post(ctx, strings.TrimRight(c.baseURL, "/")+"/v1/messages", headers, req, &cr); err != nil {
		return "", err
	}
	if len(cr.Content) == 0 || strings.TrimSpace(cr.Content[0].Text) == "" {
		return "", emptyText(c.provider)
	}
	return cr.Content[0].Text, nil
}

// --- OpenAI provider ---

type openaiProvider struct {
	httpCaller
	apiKey  string
	model   string
	baseURL string
}

type openaiRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *openaiProvider) Summarize(ctx context.Context, prompt string) (string, error) {
	req := openaiRequest{
		Model:    o.model,
		Messages: []openaiMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}

	var or openaiResponse
	if err := o.post(ctx, strings.TrimRight(o.baseURL, "/")+"/v1/chat/completions", headers, req, &or); err != nil {
		return "", err
	}
	if len(or.Choices) == 0 || strings.TrimSpace(or.Choices[0].Message.Content) == "" {
		return "", emptyText(o.provider)
	}
	return or.Choices[0].Message.Content, nil
}
