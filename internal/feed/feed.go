package feed

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

// Fetcher returns the items of a feed in the feed's own order.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]RawItem, error)
}

type RSSFetcher struct {
	parser *gofeed.Parser
}

func NewRSSFetcher(client *http.Client) *RSSFetcher {
	p := gofeed.NewParser()
	p.UserAgent = "ai-news-bot/1.0"
	if client != nil {
		p.Client = client
	}
	return &RSSFetcher{parser: p}
}

func (f *RSSFetcher) Fetch(ctx context.Context, url string) ([]RawItem, error) {
	feed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, err
	}

	items := make([]RawItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		raw := RawItem{
			Title:           item.Title,
			Link:            item.Link,
			Published:       item.Published,
			PublishedParsed: item.PublishedParsed,
			Summary:         item.Description,
		}
		if raw.PublishedParsed == nil && raw.Published == "" {
			raw.Published = item.Updated
			raw.PublishedParsed = item.UpdatedParsed
		}
		if raw.Summary == "" {
			raw.Summary = item.Content
		}
		items = append(items, raw)
	}
	return items, nil
}

var textPolicy = bluemonday.StrictPolicy()

// normalize turns a raw item into an Entry with a bounded plain-text excerpt.
func normalize(source string, it RawItem, excerptChars int) Entry {
	e := Entry{
		Source:  source,
		Title:   strings.TrimSpace(plainText(it.Title)),
		Link:    strings.TrimSpace(it.Link),
		Excerpt: truncate(plainText(it.Summary), excerptChars),
	}
	if it.PublishedParsed != nil {
		t := *it.PublishedParsed
		e.Published = &t
	} else {
		e.PublishedRaw = strings.TrimSpace(it.Published)
	}
	return e
}

func plainText(s string) string {
	s = html.UnescapeString(textPolicy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// FetchError records a source that contributed nothing to a collection.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
