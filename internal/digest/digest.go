// Package digest builds the briefing prompt and the header of the outgoing message.
package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/rusiaaaaaaa/ai-news-bot/internal/feed"
)

// Request is the input of one briefing. Build it with NewRequest.
type Request struct {
	GeneratedAt time.Time
	Entries     []feed.Entry
}

// NewRequest copies entries so later changes by the caller do not leak in.
func NewRequest(now time.Time, entries []feed.Entry) Request {
	return Request{GeneratedAt: now, Entries: append([]feed.Entry(nil), entries...)}
}

// Composer renders prompts and headers in one language and time zone.
type Composer struct {
	lang template
	loc  *time.Location
}

type template struct {
	intro       string // takes the formatted time
	rules       []string
	sourceLabel string
	noEntries   string
	published   string
	link        string
	header      string // takes the formatted time
	timeLayout  string
}

var templates = map[string]template{
	"ko": {
		intro: "지금은 %s입니다.\n\n아래 최신 AI 관련 뉴스를 신문 기사 스타일로 간결하게 요약해주세요.",
		rules: []string{
			"가장 중요한 4~6개 뉴스만 선별",
			"각 뉴스를 자세히 설명",
			"링크는 포함하지 말 것",
			"불필요한 이모지나 장식은 사용하지 말 것",
			"각 뉴스의 일자,시간 표시",
		},
		sourceLabel: "뉴스 원문:",
		noEntries:   "(수집된 뉴스가 없습니다. 요약할 뉴스가 없다고만 답해주세요.)",
		published:   "발행",
		link:        "링크",
		header:      "AI 뉴스 브리핑 (%s)",
		timeLayout:  "01월 02일 15:04 MST",
	},
	"en": {
		intro: "The current local time is %s.\n\nSummarize the latest AI news below concisely, in newspaper style.",
		rules: []string{
			"Select only the 4-6 most significant stories",
			"Explain each story in detail",
			"Do not include any links",
			"Do not use emoji or decorative symbols",
			"Show the date and time of each story",
		},
		sourceLabel: "Source news:",
		noEntries:   "(No news items were collected. Reply only that there is nothing to summarize.)",
		published:   "Published",
		link:        "Link",
		header:      "AI News Briefing (%s)",
		timeLayout:  "Jan 02 15:04 MST",
	},
}

// New returns a Composer for lang ("ko" or "en"); unknown languages fall back to "ko".
// A nil loc keeps each timestamp's own location.
func New(lang string, loc *time.Location) *Composer {
	t, ok := templates[strings.ToLower(lang)]
	if !ok {
		t = templates["ko"]
	}
	return &Composer{lang: t, loc: loc}
}

func (c *Composer) in(t time.Time) time.Time {
	if c.loc == nil {
		return t
	}
	return t.In(c.loc)
}

// BuildPrompt renders the instructions and source material for req.
// It never fails; an empty entry list still yields a complete prompt.
func (c *Composer) BuildPrompt(req Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, c.lang.intro, c.in(req.GeneratedAt).Format(c.lang.timeLayout))
	sb.WriteString("\n")
	for _, r := range c.lang.rules {
		sb.WriteString("- ")
		sb.WriteString(r)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(c.lang.sourceLabel)
	sb.WriteString("\n")

	if len(req.Entries) == 0 {
		sb.WriteString(c.lang.noEntries)
		return sb.String()
	}

	items := make([]string, 0, len(req.Entries))
	for _, e := range req.Entries {
		items = append(items, c.formatEntry(e))
	}
	sb.WriteString(strings.Join(items, "\n\n"))
	return sb.String()
}

func (c *Composer) formatEntry(e feed.Entry) string {
	var sb strings.Builder
	if e.Source != "" {
		fmt.Fprintf(&sb, "[%s] ", e.Source)
	}
	sb.WriteString(e.Title)
	fmt.Fprintf(&sb, "\n%s: %s", c.lang.published, e.PublishedLabel(c.loc))
	if e.Link != "" {
		fmt.Fprintf(&sb, "\n%s: %s", c.lang.link, e.Link)
	}
	if e.Excerpt != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Excerpt)
	}
	return sb.String()
}

// Header is the first line of the outgoing message, e.g. "AI 뉴스 브리핑 (01/10 09:00 KST)".
func (c *Composer) Header(now time.Time) string {
	return fmt.Sprintf(c.lang.header, FormatStamp(c.in(now)))
}

// FormatStamp renders t as "01/02 15:04 MST".
func FormatStamp(t time.Time) string {
	return t.Format("01/02 15:04 MST")
}
