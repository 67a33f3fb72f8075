package metrics

import "time"

// Recorder defines observability hooks for pipeline runs.
type Recorder interface {
	IncRun(outcome string) // outcome: committed|skipped|failed
	IncFeedFetch(source string, success bool)
	SetEntriesCollected(n int)
	ObserveRunDuration(d time.Duration)
	SetLastDispatch(t time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncRun(string)                    {}
func (NoopRecorder) IncFeedFetch(string, bool)        {}
func (NoopRecorder) SetEntriesCollected(int)          {}
func (NoopRecorder) ObserveRunDuration(time.Duration) {}
func (NoopRecorder) SetLastDispatch(time.Time)        {}
