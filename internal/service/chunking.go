package service

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/votewise/votewise/internal/domain"
)

// DefaultWordBudget is the chunk size used when callers pass a non-positive budget.
const DefaultWordBudget = 400

// ChunkText splits text into sentence-aligned chunks of at most wordBudget
// words. A single sentence longer than the budget becomes its own chunk.
func ChunkText(text string, wordBudget int) []string {
	var chunks []string
	for c := range Chunks(text, wordBudget) {
		chunks = append(chunks, c.Text)
	}
	return chunks
}

// Chunks lazily yields the chunks ChunkText would return.
func Chunks(text string, wordBudget int) iter.Seq[domain.Chunk] {
	if wordBudget <= 0 {
		wordBudget = DefaultWordBudget
	}

	return func(yield func(domain.Chunk) bool) {
		var (
			current []string
			words   int
			index   int
		)

		emit := func() bool {
			chunk := strings.TrimSpace(strings.Join(current, " "))
			if chunk == "" {
				return true
			}
			ok := yield(domain.Chunk{Index: index, Text: chunk, Words: len(strings.Fields(chunk))})
			index++
			return ok
		}

		for sentence := range Sentences(text) {
			n := len(strings.Fields(sentence))
			if words+n > wordBudget {
				if !emit() {
					return
				}
				current = []string{sentence}
				words = n
				continue
			}
			current = append(current, sentence)
			words += n
		}
		emit()
	}
}

// Sentences yields the sentences of text. A boundary is a '.', '?' or '!'
// followed by whitespace; the punctuation stays with the sentence and the
// whitespace run is dropped. Abbreviations such as "e.g. " split too.
func Sentences(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := 0
		i := 0
		for i < len(text) {
			r, size := utf8.DecodeRuneInString(text[i:])
			i += size
			if r != '.' && r != '?' && r != '!' {
				continue
			}
			end := i
			for i < len(text) {
				ws, wsSize := utf8.DecodeRuneInString(text[i:])
				if !unicode.IsSpace(ws) {
					break
				}
				i += wsSize
			}
			if i == end {
				continue
			}
			if !yield(text[start:end]) {
				return
			}
			start = i
		}
		if start < len(text) {
			yield(text[start:])
		}
	}
}

// IndexChunkConfig controls how extracted documents are split into passages.
type IndexChunkConfig struct {
	MaxChars  int
	Overlap   int
	MaxChunks int
}

// DefaultIndexChunkConfig mirrors the passage size the index was built with.
func DefaultIndexChunkConfig() IndexChunkConfig {
	return IndexChunkConfig{
		MaxChars: 1000,
		Overlap:  200,
	}
}

// SplitForIndex cuts text into overlapping windows of at most MaxChars runes,
// preferring to break on whitespace. MaxChunks of zero means unlimited.
func SplitForIndex(text string, cfg IndexChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultIndexChunkConfig()
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.MaxChars {
		cfg.Overlap = 0
	}
	runes := []rune(clean)
	if len(runes) <= cfg.MaxChars {
		return []string{clean}
	}

	chunks := make([]string, 0, len(runes)/(cfg.MaxChars-cfg.Overlap)+1)
	start := 0
	for start < len(runes) {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}

		end := min(start+cfg.MaxChars, len(runes))

		if end < len(runes) {
			// Only accept a whitespace cut that still leaves room past the overlap.
			minCut := start + cfg.Overlap
			for i := end; i > minCut; i-- {
				if unicode.IsSpace(runes[i-1]) {
					end = i
					break
				}
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		nextStart := end
		if cfg.Overlap > 0 && end-start > cfg.Overlap {
			nextStart = end - cfg.Overlap
			// Start the next window on a word boundary.
			for nextStart < end && !unicode.IsSpace(runes[nextStart-1]) {
				nextStart++
			}
		}
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}
