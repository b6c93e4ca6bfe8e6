package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Entry is a core entity describing one feed item fetched from the source.
type Entry struct {
	GUID        string
	Title       string
	Link        string
	Summary     string // feed-provided description, may contain HTML
	Source      string
	PublishedAt time.Time // zero when the feed gave no timestamp
}

var whitespaceExpr = regexp.MustCompile(`\s+`)

// DedupKey is the stable identity used for every delivered/not-delivered
// decision. Falls back to the link when the feed provides no GUID.
func (e Entry) DedupKey() string {
	if key := strings.TrimSpace(e.GUID); key != "" {
		return key
	}
	return strings.TrimSpace(e.Link)
}

// Excerpt returns the summary with HTML tags stripped, whitespace collapsed
// and the result truncated to maxLen runes.
func (e Entry) Excerpt(maxLen int) string {
	text := e.Summary
	if strings.ContainsRune(text, '<') {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(text)); err == nil {
			text = doc.Text()
		}
	}
	text = strings.TrimSpace(whitespaceExpr.ReplaceAllString(text, " "))

	if maxLen <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}

// FirstImageURL extracts the src of the first img tag embedded in the
// summary markup, or "" when there is none.
func (e Entry) FirstImageURL() string {
	if !strings.Contains(e.Summary, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(e.Summary))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return src
}

// PublishedIn shifts the publication timestamp into a fixed UTC offset.
func (e Entry) PublishedIn(offsetHours int) time.Time {
	if e.PublishedAt.IsZero() {
		return e.PublishedAt
	}
	zone := time.FixedZone("feed", offsetHours*3600)
	return e.PublishedAt.In(zone)
}

// PublishedSameDay reports whether the entry was published on the same
// calendar day as now, both viewed in the configured fixed offset.
// Entries without a timestamp count as current by default so a sloppy feed
// never silently loses items.
func (e Entry) PublishedSameDay(now time.Time, offsetHours int) bool {
	if e.PublishedAt.IsZero() {
		return true
	}
	zone := time.FixedZone("feed", offsetHours*3600)
	py, pm, pd := e.PublishedAt.In(zone).Date()
	ny, nm, nd := now.In(zone).Date()
	return py == ny && pm == nm && pd == nd
}
