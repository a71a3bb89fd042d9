package summarizer

import (
	"fmt"
	"html"
	"strings"

	"github.com/ternarybob/indago/internal/models"
)

// hasDocumentRoot reports whether the content starts with a recognizable
// HTML document marker.
func hasDocumentRoot(content string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(content))
	return strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html")
}

// wrapInDocumentShell wraps partial HTML in a minimal valid document
func wrapInDocumentShell(content, topic string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>body{font-family:sans-serif;max-width:860px;margin:2rem auto;padding:0 1rem;line-height:1.6}</style>
</head>
<body>
%s
</body>
</html>`, html.EscapeString(topic), content)
}

// renderFallbackDocument builds the report deterministically when the
// model cannot render it.
func renderFallbackDocument(analysis models.AnalysisResult, topic string, screenshots []models.ScreenshotRef) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(topic))
	fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(analysis.Summary))

	if len(analysis.KeyPoints) > 0 {
		b.WriteString("<h2>Key Points</h2>\n<ul>\n")
		for _, p := range analysis.KeyPoints {
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(p))
		}
		b.WriteString("</ul>\n")
	}

	for _, cat := range analysis.Categories {
		fmt.Fprintf(&b, "<h2>%s</h2>\n<ul>\n", html.EscapeString(cat.Name))
		for _, p := range cat.Points {
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(p))
		}
		b.WriteString("</ul>\n")
	}

	if len(screenshots) > 0 {
		b.WriteString("<h2>Screenshots</h2>\n")
		for _, shot := range screenshots {
			fmt.Fprintf(&b, `<figure><img src="%s" alt="Screenshot of %s" style="max-width:100%%"><figcaption><a href="%s">%s</a></figcaption></figure>`+"\n",
				shot.ImagePath, html.EscapeString(shot.SourceURL), shot.SourceURL, html.EscapeString(shot.SourceURL))
		}
	}

	if len(analysis.Sources) > 0 {
		b.WriteString("<h2>Sources</h2>\n<ul>\n")
		for _, src := range analysis.Sources {
			fmt.Fprintf(&b, `<li><a href="%s">%s</a> (reliability %.2f)</li>`+"\n", src.URL, html.EscapeString(src.Title), src.Reliability)
		}
		b.WriteString("</ul>\n")
	}

	fmt.Fprintf(&b, "<p><em>Confidence: %.2f</em></p>\n", analysis.Confidence)

	return wrapInDocumentShell(b.String(), topic)
}

// RenderMarkdown assembles a markdown rendition of the full research job:
// per-round findings followed by the final analysis. Deterministic, no
// model call involved.
func RenderMarkdown(topic string, rounds []models.SearchRound, analysis models.AnalysisResult, screenshots []models.ScreenshotRef) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Research Report: %s\n\n", topic)
	fmt.Fprintf(&b, "%s\n\n", analysis.Summary)

	if len(analysis.KeyPoints) > 0 {
		b.WriteString("## Key Points\n\n")
		for _, p := range analysis.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("\n")
	}

	for _, cat := range analysis.Categories {
		fmt.Fprintf(&b, "## %s\n\n", cat.Name)
		for _, p := range cat.Points {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("\n")
	}

	if len(rounds) > 0 {
		b.WriteString("## Search Rounds\n\n")
		for _, round := range rounds {
			fmt.Fprintf(&b, "### Round %d: %s\n\n", round.RoundNumber, round.Query)
			if round.KeyFindings != "" {
				fmt.Fprintf(&b, "%s\n\n", round.KeyFindings)
			}
			for _, r := range round.Results {
				fmt.Fprintf(&b, "- [%s](%s)\n", r.Title, r.URL)
			}
			b.WriteString("\n")
		}
	}

	if len(screenshots) > 0 {
		b.WriteString("## Screenshots\n\n")
		for _, shot := range screenshots {
			fmt.Fprintf(&b, "![Screenshot of %s](%s)\n\n", shot.SourceURL, shot.ImagePath)
		}
	}

	if len(analysis.Sources) > 0 {
		b.WriteString("## Sources\n\n")
		for _, src := range analysis.Sources {
			fmt.Fprintf(&b, "- [%s](%s)\n", src.Title, src.URL)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "---\n\nConfidence: %.2f\n", analysis.Confidence)

	return b.String()
}
