package usecase

import (
	"fmt"
	"strings"

	"github.com/EBOLABOY/FeedPilot/internal/domain"
)

// RenderOptions control how a delivery batch is formatted.
type RenderOptions struct {
	Style               string // html, markdown or text
	DigestTitle         string
	IncludeDescription  bool
	IncludeImage        bool
	TimezoneOffsetHours int
}

const publishedLayout = "2006-01-02 15:04"

// RenderDigest formats one delivery batch into a message. When an analysis
// report is present the enriched markdown layout is used; otherwise the
// batch is rendered plainly in the configured style.
func RenderDigest(results []domain.EnrichmentResult, report *domain.AnalysisReport, opts RenderOptions) domain.Message {
	title := fmt.Sprintf("%s (%d items)", opts.DigestTitle, len(results))

	if report != nil {
		return domain.Message{
			Title: title,
			Body:  renderReport(results, report, opts),
			Style: "markdown",
		}
	}

	var body string
	style := opts.Style
	switch style {
	case "markdown":
		body = renderMarkdown(results, title, opts)
	case "text", "txt":
		style = "txt"
		body = renderText(results, opts)
	default:
		style = "html"
		body = renderHTML(results, title, opts)
	}

	return domain.Message{Title: title, Body: body, Style: style}
}

// renderReport lays the analysis verdicts out by category with star
// weights and clickable title links, appending any article the report
// failed to reference so enrichment can never drop a delivered entry.
func renderReport(results []domain.EnrichmentResult, report *domain.AnalysisReport, opts RenderOptions) string {
	var b strings.Builder

	b.WriteString("# " + opts.DigestTitle + "\n\n")
	if report.Summary != "" {
		b.WriteString("**" + report.Summary + "**\n\n---\n\n")
	}

	covered := make(map[int]bool)
	for _, category := range report.Categories {
		if len(category.Articles) == 0 {
			continue
		}

		stars := renderStars(category.Level)
		header := strings.TrimSpace(category.Icon + " " + category.Name)
		fmt.Fprintf(&b, "## %s (%s)\n\n", header, stars)
		if category.Description != "" {
			fmt.Fprintf(&b, "*%s*\n\n", category.Description)
		}

		for _, verdict := range category.Articles {
			if verdict.ArticleID < 1 || verdict.ArticleID > len(results) {
				continue
			}
			covered[verdict.ArticleID] = true
			entry := results[verdict.ArticleID-1].Entry

			fmt.Fprintf(&b, "### [%s](%s)\n", entry.Title, entry.Link)
			if verdict.Reason != "" {
				fmt.Fprintf(&b, "Why: %s\n\n", verdict.Reason)
			}
			if len(verdict.Tags) > 0 {
				tags := make([]string, len(verdict.Tags))
				for i, tag := range verdict.Tags {
					tags[i] = "`" + tag + "`"
				}
				b.WriteString(strings.Join(tags, " ") + "\n\n")
			}
			writeMarkdownDate(&b, entry, opts)
		}
		b.WriteString("---\n\n")
	}

	var uncovered []domain.EnrichmentResult
	for i, res := range results {
		if !covered[i+1] {
			uncovered = append(uncovered, res)
		}
	}
	if len(uncovered) > 0 {
		b.WriteString("## Also new\n\n")
		for _, res := range uncovered {
			fmt.Fprintf(&b, "- [%s](%s)\n", res.Entry.Title, res.Entry.Link)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func renderStars(level int) string {
	if level < 1 {
		level = 1
	}
	if level > 5 {
		level = 5
	}
	return strings.Repeat("★", level) + strings.Repeat("☆", 5-level)
}

func renderHTML(results []domain.EnrichmentResult, title string, opts RenderOptions) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h2>%s</h2><hr>", title)

	for i, res := range results {
		entry := res.Entry
		b.WriteString("<div>")
		fmt.Fprintf(&b, "<h3>%d. %s</h3>", i+1, entry.Title)
		if opts.IncludeDescription {
			if excerpt := entry.Excerpt(200); excerpt != "" {
				fmt.Fprintf(&b, "<p>%s</p>", excerpt)
			}
		}
		fmt.Fprintf(&b, `<p><a href="%s">Read more</a></p>`, entry.Link)
		if opts.IncludeImage {
			if img := entry.FirstImageURL(); img != "" {
				fmt.Fprintf(&b, `<img src="%s" alt="">`, img)
			}
		}
		if !entry.PublishedAt.IsZero() {
			fmt.Fprintf(&b, "<p><small>%s</small></p>",
				entry.PublishedIn(opts.TimezoneOffsetHours).Format(publishedLayout))
		}
		b.WriteString("</div>")
	}

	b.WriteString("<hr></body></html>")
	return b.String()
}

func renderMarkdown(results []domain.EnrichmentResult, title string, opts RenderOptions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", title)

	for i, res := range results {
		entry := res.Entry
		fmt.Fprintf(&b, "\n## %d. %s\n", i+1, entry.Title)
		if opts.IncludeDescription {
			if excerpt := entry.Excerpt(200); excerpt != "" {
				fmt.Fprintf(&b, "\n%s\n", excerpt)
			}
		}
		fmt.Fprintf(&b, "\n[Read more](%s)\n", entry.Link)
		if opts.IncludeImage {
			if img := entry.FirstImageURL(); img != "" {
				fmt.Fprintf(&b, "\n![](%s)\n", img)
			}
		}
		writeMarkdownDate(&b, entry, opts)
		b.WriteString("\n---\n")
	}

	return b.String()
}

func renderText(results []domain.EnrichmentResult, opts RenderOptions) string {
	var b strings.Builder

	for i, res := range results {
		entry := res.Entry
		fmt.Fprintf(&b, "%d. %s\n", i+1, entry.Title)
		if opts.IncludeDescription {
			if excerpt := entry.Excerpt(200); excerpt != "" {
				fmt.Fprintf(&b, "   %s\n", excerpt)
			}
		}
		fmt.Fprintf(&b, "   %s\n", entry.Link)
		if !entry.PublishedAt.IsZero() {
			fmt.Fprintf(&b, "   %s\n", entry.PublishedIn(opts.TimezoneOffsetHours).Format(publishedLayout))
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeMarkdownDate(b *strings.Builder, entry domain.Entry, opts RenderOptions) {
	if entry.PublishedAt.IsZero() {
		return
	}
	fmt.Fprintf(b, "\n%s\n", entry.PublishedIn(opts.TimezoneOffsetHours).Format(publishedLayout))
}
