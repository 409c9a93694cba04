package conversation

import (
	"path/filepath"
	"time"

	"github.com/hrygo/docinsight/internal/profile"
	"github.com/hrygo/docinsight/plugin/ai/rag"
	"github.com/hrygo/docinsight/plugin/ai/session"
	"github.com/hrygo/docinsight/plugin/ai/timeout"
)

// DefaultMaxConcurrentIngestions bounds uploads processed at once.
const DefaultMaxConcurrentIngestions = 4

// Config holds the conversation engine tunables.
type Config struct {
	ChunkSize               int
	ChunkOverlap            int
	TopK                    int
	HistoryRetention        int // turns kept before each turn, 0 keeps everything
	EmbedBatchSize          int
	EmbedConcurrency        int
	MaxConcurrentIngestions int64
	EmbedTimeout            time.Duration // per embedding request
	IngestTimeout           time.Duration // whole upload
	ScratchDir              string        // uploads are staged in a fresh subdirectory
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		ChunkSize:               rag.DefaultChunkSize,
		ChunkOverlap:            rag.DefaultChunkOverlap,
		TopK:                    rag.DefaultTopK,
		HistoryRetention:        session.DefaultRetention,
		EmbedBatchSize:          rag.DefaultBuildOptions().BatchSize,
		EmbedConcurrency:        rag.DefaultBuildOptions().Concurrency,
		MaxConcurrentIngestions: DefaultMaxConcurrentIngestions,
		EmbedTimeout:            timeout.EmbeddingTimeout,
		IngestTimeout:           timeout.IngestTimeout,
		ScratchDir:              filepath.Join(".", "uploads"),
	}
}

// NewConfigFromProfile creates the engine config from profile.
func NewConfigFromProfile(p *profile.Profile) Config {
	cfg := DefaultConfig()
	cfg.ChunkSize = p.ChunkSize
	cfg.ChunkOverlap = p.ChunkOverlap
	cfg.TopK = p.TopK
	cfg.HistoryRetention = p.HistoryRetention
	cfg.EmbedBatchSize = p.EmbedBatchSize
	cfg.EmbedConcurrency = p.EmbedConcurrency
	cfg.MaxConcurrentIngestions = p.MaxConcurrentIngestions
	cfg.ScratchDir = p.UploadDir()
	return cfg
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.HistoryRetention < 0 {
		c.HistoryRetention = 0
	}
	if c.EmbedBatchSize <= 0 {
		c.EmbedBatchSize = d.EmbedBatchSize
	}
	if c.EmbedConcurrency <= 0 {
		c.EmbedConcurrency = d.EmbedConcurrency
	}
	if c.MaxConcurrentIngestions <= 0 {
		c.MaxConcurrentIngestions = d.MaxConcurrentIngestions
	}
	if c.EmbedTimeout <= 0 {
		c.EmbedTimeout = d.EmbedTimeout
	}
	if c.IngestTimeout <= 0 {
		c.IngestTimeout = d.IngestTimeout
	}
	if c.ScratchDir == "" {
		c.ScratchDir = d.ScratchDir
	}
}
