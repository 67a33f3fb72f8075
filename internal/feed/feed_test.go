package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is a long string", 10, "this is..."},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		got := truncate(tt.input, tt.n)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
		}
	}
}

func TestTruncateUTF8(t *testing.T) {
	input := "인공지능 뉴스 브리핑입니다"
	got := truncate(input, 5)
	want := "인공..."
	if got != want {
		t.Errorf("truncate(%q, 5) = %q, want %q", input, got, want)
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"<p>Hello</p>", "Hello"},
		{"<b>Bold</b> and <i>italic</i>", "Bold and italic"},
		{"No tags here", "No tags here"},
		{"<div>  Multiple   spaces  </div>", "Multiple spaces"},
		{"", ""},
		{`<a href="https://x.com">Link</a>&nbsp;text`, "Link text"},
		{"AT&amp;T &lt;3", "AT&T <3"},
		{"<script>alert(1)</script>safe", "safe"},
	}
	for _, tt := range tests {
		got := plainText(tt.input)
		if got != tt.want {
			t.Errorf("plainText(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	pub := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	e := normalize("src", RawItem{
		Title:           " <b>Title</b> ",
		Link:            " https://example.com/a ",
		PublishedParsed: &pub,
		Summary:         "<p>" + strings.Repeat("x", 200) + "</p>",
	}, 150)

	if e.Title != "Title" || e.Link != "https://example.com/a" || e.Source != "src" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if n := len([]rune(e.Excerpt)); n != 150 {
		t.Errorf("expected excerpt of 150 runes, got %d", n)
	}
	if !strings.HasSuffix(e.Excerpt, "...") {
		t.Errorf("expected truncated excerpt to end with ..., got %q", e.Excerpt)
	}
	if e.Published == nil || !e.Published.Equal(pub) {
		t.Errorf("expected parsed publication time, got %v", e.Published)
	}
}

func TestPublishedLabel(t *testing.T) {
	kst := time.FixedZone("KST", 9*60*60)
	pub := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	if got := (Entry{Published: &pub}).PublishedLabel(kst); got != "2024-01-10 09:00 KST" {
		t.Errorf("parsed label = %q", got)
	}
	if got := (Entry{PublishedRaw: "yesterday"}).PublishedLabel(kst); got != "yesterday" {
		t.Errorf("raw label = %q", got)
	}
	if got := (Entry{}).PublishedLabel(kst); got != Unknown {
		t.Errorf("missing label = %q, want %q", got, Unknown)
	}
}

func rssFeed(prefix string, n int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>test</title>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<item><title>%s %d</title><link>https://example.com/%s/%d</link>`+
			`<description>&lt;p&gt;Body %d&lt;/p&gt;</description>`, prefix, i, prefix, i, i)
		if i%2 == 0 {
			b.WriteString(`<pubDate>Wed, 10 Jan 2024 00:00:00 GMT</pubDate>`)
		}
		b.WriteString(`</item>`)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func TestRSSFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssFeed("a", 3))
	}))
	defer srv.Close()

	items, err := NewRSSFetcher(srv.Client()).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Title != "a 0" || items[2].Link != "https://example.com/a/2" {
		t.Errorf("items out of feed order: %+v", items)
	}
	if items[0].PublishedParsed == nil {
		t.Error("expected pubDate to be parsed")
	}
	if items[1].PublishedParsed != nil || items[1].Published != "" {
		t.Error("expected missing pubDate on odd items")
	}
	if !strings.Contains(items[0].Summary, "Body 0") {
		t.Errorf("expected description in summary, got %q", items[0].Summary)
	}
}

func TestRSSFetcherHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewRSSFetcher(srv.Client()).Fetch(context.Background(), srv.URL); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestRSSFetcherMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not a feed")
	}))
	defer srv.Close()

	if _, err := NewRSSFetcher(srv.Client()).Fetch(context.Background(), srv.URL); err == nil {
		t.Error("expected error for malformed feed")
	}
}
