package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncRun("committed")
	r.IncRun("skipped")
	r.IncRun("skipped")
	r.IncFeedFetch("KR", true)
	r.IncFeedFetch("US", false)
	r.SetEntriesCollected(8)
	r.ObserveRunDuration(2 * time.Second)
	r.SetLastDispatch(time.Unix(1704844800, 0))

	if got := testutil.ToFloat64(r.runs.WithLabelValues("skipped")); got != 2 {
		t.Errorf("skipped runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.feedFetches.WithLabelValues("US", "failed")); got != 1 {
		t.Errorf("failed fetches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.entries); got != 8 {
		t.Errorf("entries = %v, want 8", got)
	}
	if got := testutil.ToFloat64(r.lastDispatch); got != 1704844800 {
		t.Errorf("last dispatch = %v", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *PrometheusRecorder
	r.IncRun("failed")
	r.IncFeedFetch("x", true)
	r.SetEntriesCollected(1)
	r.ObserveRunDuration(time.Second)
	r.SetLastDispatch(time.Now())
}

func TestWriteTextfile(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)
	r.IncRun("committed")

	path := filepath.Join(t.TempDir(), "sub", "ai_news_bot.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading textfile: %v", err)
	}
	if !strings.Contains(string(data), `ai_news_bot_runs_total{outcome="committed"} 1`) {
		t.Errorf("textfile missing run counter:\n%s", data)
	}
}

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var _ Recorder = NoopRecorder{}
	var _ Recorder = (*PrometheusRecorder)(nil)
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncFeedFetch("Google News KR", true)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `ai_news_bot_feed_fetch_total{result="success",source="Google News KR"} 1`) {
		t.Errorf("unexpected body:\n%s", rec.Body.String())
	}
}
