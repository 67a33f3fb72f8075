// Package throttle persists the time of the last successful dispatch and decides
// whether enough time has passed to dispatch again.
//
// The state is a single timestamp. It is overwritten only after a confirmed
// delivery, so a failed run leaves it untouched and the next trigger may retry
// immediately. A failed commit after a delivery means the next run may dispatch
// sooner than the interval allows: delivery is at-least-once per interval.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrCorrupt is returned by Read when the stored value cannot be parsed.
var ErrCorrupt = errors.New("throttle state corrupt")

// State is the durable record of the last successful dispatch.
type State struct {
	LastDispatchAt time.Time
}

// Store reads and writes the throttle state.
type Store interface {
	// Read returns nil when no dispatch has ever been recorded.
	Read(ctx context.Context) (*State, error)
	// Commit overwrites the stored instant with at.
	Commit(ctx context.Context, at time.Time) error
	// Reset forgets the stored instant.
	Reset(ctx context.Context) error
	Close() error
}

// Config selects a backend.
//
// Driver values:
//   - "file": a small text file holding one RFC 3339 timestamp
//   - "sqlite": a row in a SQLite meta table
type Config struct {
	Driver string
	Path   string
}

// Open initializes the configured store.
func Open(cfg Config) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("throttle: state path is required")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return OpenFile(path)
	case "sqlite", "sqlite3":
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("throttle: unknown driver %q", cfg.Driver)
	}
}

// Elapsed is the time since the last dispatch. s must not be nil.
func Elapsed(now time.Time, s *State) time.Duration {
	return now.Sub(s.LastDispatchAt)
}

// ShouldThrottle reports whether a dispatch at now would come too soon after s.
func ShouldThrottle(now time.Time, s *State, minInterval time.Duration) bool {
	if s == nil {
		return false
	}
	return Elapsed(now, s) < minInterval
}

func formatInstant(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrCorrupt, s, err)
	}
	return t, nil
}
