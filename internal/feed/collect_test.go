package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type fakeFetcher struct {
	items map[string][]RawItem
	fail  map[string]error
	delay map[string]time.Duration
	calls atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]RawItem, error) {
	f.calls.Add(1)
	if d := f.delay[url]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.fail[url]; err != nil {
		return nil, err
	}
	return f.items[url], nil
}

func rawItems(prefix string, n int) []RawItem {
	out := make([]RawItem, n)
	for i := range out {
		out[i] = RawItem{Title: fmt.Sprintf("%s-%d", prefix, i), Link: fmt.Sprintf("https://%s/%d", prefix, i)}
	}
	return out
}

var twoSources = []Source{{Name: "one", URL: "u1"}, {Name: "two", URL: "u2"}}

func TestCollectTotalLimitKeepsSourceOrder(t *testing.T) {
	for _, concurrent := range []bool{false, true} {
		f := &fakeFetcher{
			items: map[string][]RawItem{"u1": rawItems("a", 10), "u2": rawItems("b", 10)},
			// Make the first source slower so completion order differs from source order
			delay: map[string]time.Duration{"u1": 20 * time.Millisecond},
		}
		res := Collect(context.Background(), f, twoSources, Options{PerSource: 10, Total: 8, Concurrent: concurrent})

		if len(res.Entries) != 8 {
			t.Fatalf("concurrent=%v: expected 8 entries, got %d", concurrent, len(res.Entries))
		}
		for i, e := range res.Entries {
			if want := fmt.Sprintf("a-%d", i); e.Title != want {
				t.Errorf("concurrent=%v: entry %d = %s, want %s", concurrent, i, e.Title, want)
			}
		}
		if len(res.Errors) != 0 {
			t.Errorf("unexpected errors: %v", res.Errors)
		}
	}
}

func TestCollectPerSourceLimit(t *testing.T) {
	f := &fakeFetcher{items: map[string][]RawItem{"u1": rawItems("a", 10), "u2": rawItems("b", 10)}}
	res := Collect(context.Background(), f, twoSources, Options{PerSource: 3, Total: 8})

	want := []string{"a-0", "a-1", "a-2", "b-0", "b-1", "b-2"}
	if len(res.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(res.Entries))
	}
	for i, e := range res.Entries {
		if e.Title != want[i] {
			t.Errorf("entry %d = %s, want %s", i, e.Title, want[i])
		}
	}
	if res.PerSource["one"] != 3 || res.PerSource["two"] != 3 {
		t.Errorf("unexpected per-source counts: %v", res.PerSource)
	}
}

func TestCollectSourceFailureIsPartial(t *testing.T) {
	boom := errors.New("boom")
	f := &fakeFetcher{
		items: map[string][]RawItem{"u2": rawItems("b", 10)},
		fail:  map[string]error{"u1": boom},
	}
	res := Collect(context.Background(), f, twoSources, Options{PerSource: 5, Total: 8, Concurrent: true})

	if len(res.Entries) != 5 {
		t.Fatalf("expected survivor's 5 entries, got %d", len(res.Entries))
	}
	if res.Entries[0].Source != "two" {
		t.Errorf("expected entries from source two, got %s", res.Entries[0].Source)
	}
	if len(res.Errors) != 1 || res.Errors[0].Source != "one" || !errors.Is(res.Errors[0], boom) {
		t.Errorf("expected one FetchError for source one, got %v", res.Errors)
	}
}

func TestCollectAllFail(t *testing.T) {
	f := &fakeFetcher{fail: map[string]error{"u1": errors.New("x"), "u2": errors.New("y")}}
	res := Collect(context.Background(), f, twoSources, Options{PerSource: 5, Total: 8})
	if len(res.Entries) != 0 || len(res.Errors) != 2 {
		t.Errorf("expected no entries and 2 errors, got %d / %d", len(res.Entries), len(res.Errors))
	}
}

func TestCollectTimeout(t *testing.T) {
	f := &fakeFetcher{
		items: map[string][]RawItem{"u1": rawItems("a", 2), "u2": rawItems("b", 2)},
		delay: map[string]time.Duration{"u1": time.Second},
	}
	res := Collect(context.Background(), f, twoSources, Options{PerSource: 5, Total: 8, Timeout: 20 * time.Millisecond})
	if len(res.Entries) != 2 || res.Entries[0].Source != "two" {
		t.Errorf("expected only source two's entries, got %+v", res.Entries)
	}
	if len(res.Errors) != 1 || !errors.Is(res.Errors[0], context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", res.Errors)
	}
}

func TestCollectDefaultsExcerpt(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	f := &fakeFetcher{items: map[string][]RawItem{"u1": {{Title: "t", Summary: string(long)}}}}
	res := Collect(context.Background(), f, twoSources[:1], Options{PerSource: 5, Total: 5})
	if n := len([]rune(res.Entries[0].Excerpt)); n != DefaultExcerptChars {
		t.Errorf("expected default excerpt length %d, got %d", DefaultExcerptChars, n)
	}
}

func TestCollectRateLimited(t *testing.T) {
	f := &fakeFetcher{items: map[string][]RawItem{"u1": rawItems("a", 1), "u2": rawItems("b", 1)}}
	start := time.Now()
	res := Collect(context.Background(), f, twoSources, Options{PerSource: 5, Total: 8, RatePerSec: 20})
	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(res.Entries))
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Error("expected second fetch to be paced by the limiter")
	}
}

func TestCollectWithRSSFetcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, rssFeed("a", 10)) })
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, rssFeed("b", 10)) })
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sources := []Source{
		{Name: "A", URL: srv.URL + "/a"},
		{Name: "Broken", URL: srv.URL + "/broken"},
		{Name: "B", URL: srv.URL + "/b"},
	}
	res := Collect(context.Background(), NewRSSFetcher(srv.Client()), sources,
		Options{PerSource: 10, Total: 8, ExcerptChars: 150, Concurrent: true})

	if len(res.Entries) != 8 {
		t.Fatalf("expected 8 entries, got %d", len(res.Entries))
	}
	if res.Entries[0].Title != "a 0" || res.Entries[7].Title != "a 7" {
		t.Errorf("expected first 8 entries of A, got %s .. %s", res.Entries[0].Title, res.Entries[7].Title)
	}
	if res.Entries[0].Excerpt != "Body 0" {
		t.Errorf("expected HTML-stripped excerpt, got %q", res.Entries[0].Excerpt)
	}
	if len(res.Errors) != 1 || res.Errors[0].Source != "Broken" {
		t.Errorf("expected Broken to fail, got %v", res.Errors)
	}
}
