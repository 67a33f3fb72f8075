package feed

import "time"

// Unknown is shown in place of a publication time the feed did not carry.
const Unknown = "unknown"

// Source is a named feed URL.
type Source struct {
	Name string
	URL  string
}

// RawItem is a feed item as delivered by a Fetcher, before normalization.
type RawItem struct {
	Title           string
	Link            string
	Published       string
	PublishedParsed *time.Time
	Summary         string
}

// Entry is a normalized feed item ready for the digest prompt.
type Entry struct {
	Source    string
	Title     string
	Link      string
	Published *time.Time
	// PublishedRaw holds the feed's own date text when it could not be parsed.
	PublishedRaw string
	Excerpt      string
}

// PublishedLabel renders the publication time in loc, the raw feed value, or Unknown.
func (e Entry) PublishedLabel(loc *time.Location) string {
	if e.Published != nil {
		t := *e.Published
		if loc != nil {
			t = t.In(loc)
		}
		return t.Format("2006-01-02 15:04 MST")
	}
	if e.PublishedRaw != "" {
		return e.PublishedRaw
	}
	return Unknown
}
