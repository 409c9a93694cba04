// Package rag provides the retrieval half of document-grounded chat:
// splitting text into passages, indexing their embeddings per session,
// and retrieving the nearest passages for a question.
package rag

// Chunking defaults, measured in characters (runes).
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// separatorTiers lists natural boundaries from strongest to weakest.
// A cut is placed right after the separator so it stays with the left passage.
var separatorTiers = [][][]rune{
	runesOf("\n\n"),
	runesOf(". ", "! ", "? ", ".\n", "!\n", "?\n", "\n"),
	runesOf(" ", "\t"),
}

func runesOf(seps ...string) [][]rune {
	out := make([][]rune, len(seps))
	for i, s := range seps {
		out[i] = []rune(s)
	}
	return out
}

// Chunker splits text into consecutive passages of at most size characters.
// Every passage after the first starts with the last overlap characters of
// the previous one, so dropping that prefix and concatenating reconstructs
// the input exactly.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker. Non-positive size falls back to
// DefaultChunkSize; overlap is clamped into [0, size-1].
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Size returns the maximum passage length.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of characters shared by adjacent passages.
func (c *Chunker) Overlap() int { return c.overlap }

// Split returns the passages of text. Empty text yields no passages.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for {
		if start+c.size >= n {
			return append(chunks, string(runes[start:]))
		}
		end := c.boundary(runes, start, start+c.size)
		chunks = append(chunks, string(runes[start:end]))
		start = end - c.overlap
	}
}

// boundary picks the cut position for a passage starting at start whose hard
// limit is end. It prefers the last natural boundary in the upper half of the
// window and never returns a position that would stop the next passage from
// advancing past this one.
func (c *Chunker) boundary(runes []rune, start, end int) int {
	lo := start + c.size/2
	if minEnd := start + c.overlap + 1; lo < minEnd {
		lo = minEnd
	}
	if lo > end {
		return end
	}
	for _, tier := range separatorTiers {
		best := -1
		for _, sep := range tier {
			if p := lastBoundary(runes, lo, end, sep); p > best {
				best = p
			}
		}
		if best >= 0 {
			return best
		}
	}
	return end
}

// lastBoundary returns the largest p in [lo, hi] with runes[p-len(sep):p] == sep, or -1.
func lastBoundary(runes []rune, lo, hi int, sep []rune) int {
	for p := hi; p >= lo && p >= len(sep); p-- {
		if equalRunes(runes[p-len(sep):p], sep) {
			return p
		}
	}
	return -1
}

func equalRunes(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Chunk splits text with the given size and overlap.
func Chunk(text string, size, overlap int) []string {
	return NewChunker(size, overlap).Split(text)
}
