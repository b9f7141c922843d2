package insights

import (
	"regexp"
	"strings"
)

// Insight is one parsed bullet from the Key Insights section.
type Insight struct {
	Title   string `json:"title"`
	Data    string `json:"data"`
	Comment string `json:"comment"`
}

// Strategy is one parsed bullet from the Actionable Strategies section.
type Strategy struct {
	Emoji string `json:"emoji"`
	Text  string `json:"text"`
}

// Skipped records a line the parser could not accept and why. Model
// output cannot be fully controlled, so malformed lines are dropped
// rather than failing the whole report; skip counts feed logging.
type Skipped struct {
	Line   string
	Reason string
}

var (
	insightSeparator = regexp.MustCompile(` - |: `)
	whitespaceRun    = regexp.MustCompile(`\s+`)
)

// ExtractSection returns the text between the literal marker
// "### <title>:\n" and the next "###" heading, trimmed. A missing
// marker yields "" — the model omitted the section, which is not an
// error.
func ExtractSection(text, title string) string {
	startMarker := "### " + title + ":\n"
	start := strings.Index(text, startMarker)
	if start == -1 {
		return ""
	}
	start += len(startMarker)

	end := strings.Index(text[start:], "\n###")
	if end == -1 {
		return strings.TrimSpace(text[start:])
	}
	return strings.TrimSpace(text[start : start+end])
}

// FormatInsights parses bullet lines of the form
// "- Title - Data - Comment" (or colon-separated). Lines not starting
// with a dash, or splitting into fewer than three segments, are
// skipped with a reason. Never panics on empty or malformed input.
func FormatInsights(text string) ([]Insight, []Skipped) {
	var insights []Insight
	var skipped []Skipped

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "-") {
			skipped = append(skipped, Skipped{Line: trimmed, Reason: "no bullet marker"})
			continue
		}
		body := strings.TrimSpace(strings.TrimLeft(trimmed, "- "))
		parts := insightSeparator.Split(body, -1)
		if len(parts) < 3 {
			skipped = append(skipped, Skipped{Line: trimmed, Reason: "fewer than three segments"})
			continue
		}
		insights = append(insights, Insight{
			Title:   strings.TrimSpace(strings.ReplaceAll(parts[0], "**", "")),
			Data:    parts[1],
			Comment: strings.TrimSpace(strings.ReplaceAll(parts[2], "**", "")),
		})
	}
	return insights, skipped
}

// FormatStrategies parses bullet lines of the form "- <emoji> text".
// The line splits on the first whitespace run into exactly two parts;
// anything else is skipped.
func FormatStrategies(text string) ([]Strategy, []Skipped) {
	var strategies []Strategy
	var skipped []Skipped

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "-") {
			skipped = append(skipped, Skipped{Line: trimmed, Reason: "no bullet marker"})
			continue
		}
		body := strings.TrimSpace(strings.TrimLeft(trimmed, "-"))
		parts := whitespaceRun.Split(body, 2)
		if len(parts) != 2 {
			skipped = append(skipped, Skipped{Line: trimmed, Reason: "no marker/text split"})
			continue
		}
		strategies = append(strategies, Strategy{Emoji: parts[0], Text: parts[1]})
	}
	return strategies, skipped
}

// Parsed is a full report view assembled from raw model text.
type Parsed struct {
	Summary    string
	Insights   []Insight
	Strategies []Strategy
	// SkippedLines counts bullets dropped across both sections.
	SkippedLines int
}

// ParseReport extracts and parses all three sections from raw model
// output. Absent sections come back empty.
func ParseReport(raw string) Parsed {
	p := Parsed{Summary: ExtractSection(raw, "Summary")}

	insights, skippedI := FormatInsights(ExtractSection(raw, "Key Insights"))
	strategies, skippedS := FormatStrategies(ExtractSection(raw, "Actionable Strategies"))

	p.Insights = insights
	p.Strategies = strategies
	p.SkippedLines = len(skippedI) + len(skippedS)
	return p
}
