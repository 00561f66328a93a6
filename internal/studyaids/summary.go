package studyaids

import (
	"context"
	"fmt"
)

// SummaryKind selects the summary style.
type SummaryKind string

const (
	SummaryConcise  SummaryKind = "concise"
	SummaryDetailed SummaryKind = "detailed"
	SummaryBullets  SummaryKind = "bullets"
)

const (
	summaryMinChars = 50
	summaryMaxChars = 50000
)

// ParseSummaryKind maps user input to a kind; unknown values are bullets.
func ParseSummaryKind(s string) SummaryKind {
	switch SummaryKind(s) {
	case SummaryConcise, SummaryDetailed:
		return SummaryKind(s)
	}
	return SummaryBullets
}

// Summary is a generated summary. Failed marks Text as an error message.
type Summary struct {
	Kind   SummaryKind `json:"summary_type"`
	Text   string      `json:"summary"`
	Failed bool        `json:"failed"`
}

var summaryPrompts = map[SummaryKind]string{
	SummaryConcise: `Summarize the following text in 3-5 short sentences maximum.
Extract only the most critical points. Keep it extremely brief and to the point.
Make it easy to understand and remember quickly.

Text to summarize:
%s

Provide a very short, concise summary (3-5 sentences only):
`,
	SummaryDetailed: `Provide a detailed summary of the following text.
Break it down into sections with headings.
Explain the key concepts thoroughly.
Include important examples or details.

Text to summarize:
%s

Provide a comprehensive summary:
`,
	SummaryBullets: `Summarize the following text as clear, organized bullet points.
Group related points under headings.
Make it easy to scan and memorize.

Text to summarize:
%s

Provide bullet-point summary:
`,
}

// Summarize condenses text. Only input problems are returned as errors; a
// generation failure yields a Summary with Failed set.
func (g *Generator) Summarize(ctx context.Context, text string, kind SummaryKind) (*Summary, error) {
	text, err := prepare(text, summaryMinChars, summaryMaxChars)
	if err != nil {
		return nil, err
	}
	kind = ParseSummaryKind(string(kind))

	out, err := g.complete(ctx, fmt.Sprintf(summaryPrompts[kind], text), 0.3, false)
	if err != nil {
		return &Summary{Kind: kind, Text: fmt.Sprintf("Error generating summary: %v", err), Failed: true}, nil
	}
	return &Summary{Kind: kind, Text: out}, nil
}
