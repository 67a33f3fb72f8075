package pipeline

import (
	"errors"

	"github.com/rusiaaaaaaa/ai-news-bot/internal/dispatch"
)

var (
	ErrWindowClosed = errors.New("outside window")
	ErrThrottled    = errors.New("throttled")
	ErrDryRun       = errors.New("dry run")

	ErrSummarization     = dispatch.ErrSummarization
	ErrDispatchTransport = dispatch.ErrTransport

	// ErrStatePersistence is reported on a Committed run whose timestamp could
	// not be written. The message already went out, so the run still counts.
	ErrStatePersistence = errors.New("state persistence failed")
)
