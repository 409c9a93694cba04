package rag

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Embedder turns text into vectors. Implementations must return vectors of a
// single fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Passage is one indexed chunk together with its embedding.
type Passage struct {
	Ordinal   int
	Text      string
	Embedding []float32
}

// SearchResult is a passage scored against a query.
type SearchResult struct {
	Passage *Passage
	Score   float64
}

// BuildOptions controls how passages are embedded while building an index.
type BuildOptions struct {
	BatchSize   int // texts per embedding request
	Concurrency int // embedding requests in flight
	Dimension   int // expected vector size, 0 accepts whatever the first vector has
}

// DefaultBuildOptions returns the default embedding batch settings.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{BatchSize: 16, Concurrency: 4}
}

// Index is an immutable in-memory vector index over one session's passages.
// It is safe for concurrent queries.
type Index struct {
	embedder  Embedder
	passages  []*Passage
	unit      [][]float64
	dimension int
}

// BuildIndex embeds every text and returns the resulting index. Passages keep
// the order of texts. Any embedding failure aborts the whole build.
func BuildIndex(ctx context.Context, embedder Embedder, texts []string, opts BuildOptions) (*Index, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if len(texts) == 0 {
		return nil, errors.New("no passages to index")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBuildOptions().BatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultBuildOptions().Concurrency
	}

	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for from := 0; from < len(texts); from += opts.BatchSize {
		to := min(from+opts.BatchSize, len(texts))
		g.Go(func() error {
			batch, err := embedder.EmbedBatch(gctx, texts[from:to])
			if err != nil {
				return errors.Wrapf(err, "embed passages %d-%d", from, to-1)
			}
			if len(batch) != to-from {
				return errors.Errorf("embedder returned %d vectors for %d passages", len(batch), to-from)
			}
			copy(vectors[from:to], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := &Index{
		embedder: embedder,
		passages: make([]*Passage, len(texts)),
		unit:     make([][]float64, len(texts)),
	}
	idx.dimension = opts.Dimension
	for i, vec := range vectors {
		if i == 0 && idx.dimension == 0 {
			idx.dimension = len(vec)
		}
		if len(vec) == 0 || len(vec) != idx.dimension {
			return nil, errors.Errorf("passage %d has embedding dimension %d, want %d", i, len(vec), idx.dimension)
		}
		idx.passages[i] = &Passage{Ordinal: i, Text: texts[i], Embedding: vec}
		idx.unit[i] = normalize(vec)
	}
	return idx, nil
}

// Len returns the number of indexed passages.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.passages)
}

// Dimension returns the embedding dimension shared by all passages.
func (idx *Index) Dimension() int { return idx.dimension }

// Query embeds text and returns up to k passages ordered by descending cosine
// similarity. Ties keep ingestion order. k <= 0 returns nothing without
// calling the embedder.
func (idx *Index) Query(ctx context.Context, text string, k int) ([]SearchResult, error) {
	if k <= 0 || idx.Len() == 0 {
		return []SearchResult{}, nil
	}
	vec, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return nil, errors.Wrap(err, "embed query")
	}
	return idx.Search(vec, k)
}

// Search ranks passages against an already embedded query vector.
func (idx *Index) Search(vec []float32, k int) ([]SearchResult, error) {
	if k <= 0 || idx.Len() == 0 {
		return []SearchResult{}, nil
	}
	if len(vec) != idx.dimension {
		return nil, errors.Errorf("query embedding dimension %d does not match index dimension %d", len(vec), idx.dimension)
	}

	q := normalize(vec)
	results := make([]SearchResult, len(idx.passages))
	for i, p := range idx.passages {
		results[i] = SearchResult{Passage: p, Score: dot(q, idx.unit[i])}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func normalize(vec []float32) []float64 {
	out := make([]float64, len(vec))
	var sum float64
	for i, v := range vec {
		out[i] = float64(v)
		sum += out[i] * out[i]
	}
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i := range out {
		out[i] /= norm
	}
	return out
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
