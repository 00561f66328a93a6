package vectordb

import (
	"fmt"
	"strings"
)

// FormatHits renders retrieved chunks as human-readable text.
func FormatHits(hits []Hit) string {
	if len(hits) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d result(s):\n\n", len(hits))
	for i, h := range hits {
		fmt.Fprintf(&sb, "--- Result %d (chunk %d, similarity: %.4f) ---\n", i+1, h.Seq, h.Similarity)
		sb.WriteString(h.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// Texts returns the chunk texts of hits in order.
func Texts(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Text
	}
	return out
}
