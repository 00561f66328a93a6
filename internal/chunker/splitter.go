// Package chunker splits extracted text into overlapping chunks for embedding.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultSeparators are tried in order: paragraphs, lines, sentences,
// words, then single characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// ErrNoChunks is returned when text produces no non-empty chunk.
var ErrNoChunks = errors.New("chunker: text produced no chunks")

// Chunk is one ordered fragment of a document.
type Chunk struct {
	Seq  int
	Text string
}

// Splitter performs recursive character splitting. Lengths are measured
// in runes. A Splitter is immutable and safe for concurrent use.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// NewSplitter validates the parameters and returns a Splitter. With no
// separators, DefaultSeparators is used.
func NewSplitter(size, overlap int, separators ...string) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunker: chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunker: overlap %d must be in [0, %d)", overlap, size)
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	return &Splitter{size: size, overlap: overlap, separators: append([]string(nil), separators...)}, nil
}

// Size returns the target chunk size.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the maximum overlap carried between neighbours.
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the chunk texts in document order.
func (s *Splitter) Split(text string) []string {
	return s.split(text, s.separators)
}

// Chunks splits text and numbers the result from zero.
func (s *Splitter) Chunks(text string) ([]Chunk, error) {
	parts := s.Split(text)
	if len(parts) == 0 {
		return nil, ErrNoChunks
	}
	chunks := make([]Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = Chunk{Seq: i, Text: p}
	}
	return chunks, nil
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var (
		out  []string
		good []string
	)
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) < s.size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			if t := strings.TrimSpace(piece); t != "" {
				out = append(out, t)
			}
			continue
		}
		out = append(out, s.split(piece, rest)...)
	}
	if len(good) > 0 {
		out = append(out, s.merge(good)...)
	}
	return out
}

// merge packs pieces into chunks of at most size runes. When a chunk is
// emitted, leading pieces are dropped until what remains fits within the
// overlap and leaves room for the next piece; the remainder starts the
// next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var (
		out     []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.size && len(current) > 0 {
			if doc := join(current); doc != "" {
				out = append(out, doc)
			}
			for total > s.overlap || (total+n > s.size && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if doc := join(current); doc != "" {
		out = append(out, doc)
	}
	return out
}

// splitKeepingSeparator splits text on sep, attaching each separator to
// the start of the piece that follows it. An empty sep splits into runes.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func join(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
