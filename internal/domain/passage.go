package domain

// Passage is a unit of retrieved context. Only Text is needed to answer; the
// rest locates the passage in its source document.
type Passage struct {
	ID         string
	DocumentID string
	Source     string
	Index      int
	Text       string
	Score      float64
}

// Chunk is a sentence-aligned slice of concatenated passage text with its
// approximate word count.
type Chunk struct {
	Index int
	Text  string
	Words int
}

// ChunkFailure records a chunk whose partial answer could not be generated.
type ChunkFailure struct {
	Index int
	Err   error
}

// Answer is the final output of the answer pipeline.
type Answer struct {
	Question   string
	Text       string
	Passages   []Passage
	ChunkCount int
	Failed     []ChunkFailure
	Cached     bool
}

// Degraded reports whether some chunks were dropped from the answer.
func (a *Answer) Degraded() bool {
	return len(a.Failed) > 0
}

// PassageTexts returns the text of every passage, in order.
func PassageTexts(passages []Passage) []string {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	return texts
}

// EmbeddedPassage is a passage ready to be stored in the index.
type EmbeddedPassage struct {
	Passage
	Embedding []float32
}
