package feed

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Options bounds a collection.
type Options struct {
	PerSource    int
	Total        int
	ExcerptChars int
	// Timeout bounds each source fetch.
	Timeout time.Duration
	// Concurrent fetches sources in parallel; output order is unaffected.
	Concurrent bool
	// RatePerSec paces fetch starts; 0 means unlimited.
	RatePerSec float64
}

// Result holds the collected entries and the sources that failed.
type Result struct {
	Entries []Entry
	Errors  []*FetchError
	// PerSource counts entries kept from each source before the total cut.
	PerSource map[string]int
}

const (
	maxParallelFetches  = 4
	defaultFetchTimeout = 15 * time.Second
	DefaultExcerptChars = 150
)

// Collect fetches every source and returns up to opts.Total entries: each
// source's first opts.PerSource items in feed order, concatenated in source
// order. A failing source contributes nothing and is reported in Errors.
func Collect(ctx context.Context, f Fetcher, sources []Source, opts Options) Result {
	var limiter *rate.Limiter
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), 1)
	}

	excerpt := opts.ExcerptChars
	if excerpt <= 0 {
		excerpt = DefaultExcerptChars
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	perSource := make([][]Entry, len(sources))
	errs := make([]*FetchError, len(sources))

	fetchOne := func(i int) {
		src := sources[i]
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				errs[i] = &FetchError{Source: src.Name, Err: err}
				return
			}
		}
		fctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		items, err := f.Fetch(fctx, src.URL)
		if err != nil {
			errs[i] = &FetchError{Source: src.Name, Err: err}
			return
		}
		if opts.PerSource > 0 && len(items) > opts.PerSource {
			items = items[:opts.PerSource]
		}
		entries := make([]Entry, 0, len(items))
		for _, it := range items {
			entries = append(entries, normalize(src.Name, it, excerpt))
		}
		perSource[i] = entries
	}

	if opts.Concurrent && len(sources) > 1 {
		var g errgroup.Group
		g.SetLimit(maxParallelFetches)
		for i := range sources {
			g.Go(func() error {
				fetchOne(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range sources {
			fetchOne(i)
		}
	}

	res := Result{PerSource: make(map[string]int, len(sources))}
	for i, entries := range perSource {
		if errs[i] != nil {
			res.Errors = append(res.Errors, errs[i])
			continue
		}
		res.PerSource[sources[i].Name] = len(entries)
		res.Entries = append(res.Entries, entries...)
	}
	if opts.Total > 0 && len(res.Entries) > opts.Total {
		res.Entries = res.Entries[:opts.Total]
	}
	return res
}
