package rag

import (
	"context"
	"strings"
)

// DefaultTopK is the number of passages retrieved per question.
const DefaultTopK = 3

// ContextSeparator joins retrieved passages into a single context block.
const ContextSeparator = "\n\n"

// Searcher answers nearest-passage queries. *Index implements it.
type Searcher interface {
	Query(ctx context.Context, text string, k int) ([]SearchResult, error)
}

var _ Searcher = (*Index)(nil)

// Retriever fetches the passages most relevant to a standalone question.
type Retriever struct {
	topK int
}

// NewRetriever creates a Retriever returning topK passages per call.
// Non-positive topK falls back to DefaultTopK.
func NewRetriever(topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{topK: topK}
}

// TopK returns the configured passage count.
func (r *Retriever) TopK() int { return r.topK }

// Retrieve returns the passages for question, most similar first.
func (r *Retriever) Retrieve(ctx context.Context, index Searcher, question string) ([]SearchResult, error) {
	return index.Query(ctx, question, r.topK)
}

// JoinContext concatenates passage texts in rank order.
func JoinContext(results []SearchResult) string {
	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Passage.Text)
	}
	return strings.Join(texts, ContextSeparator)
}
