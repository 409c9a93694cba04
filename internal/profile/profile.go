package profile

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory; uploads are staged under <Data>/uploads
	Data string
	// Version is the current version of server
	Version string

	// AI Configuration
	AIEmbeddingProvider   string // DOCINSIGHT_AI_EMBEDDING_PROVIDER (default: openai)
	AIEmbeddingModel      string // DOCINSIGHT_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
	AIEmbeddingDimensions int    // DOCINSIGHT_AI_EMBEDDING_DIMENSIONS (default: 0, provider native)
	AILLMProvider         string // DOCINSIGHT_AI_LLM_PROVIDER (default: openai)
	AILLMModel            string // DOCINSIGHT_AI_LLM_MODEL (default: gpt-4o-mini)
	AIOpenAIAPIKey        string // DOCINSIGHT_AI_OPENAI_API_KEY
	AIOpenAIBaseURL       string // DOCINSIGHT_AI_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AISiliconFlowAPIKey   string // DOCINSIGHT_AI_SILICONFLOW_API_KEY
	AISiliconFlowBaseURL  string // DOCINSIGHT_AI_SILICONFLOW_BASE_URL (default: https://api.siliconflow.cn/v1)
	AIDeepSeekAPIKey      string // DOCINSIGHT_AI_DEEPSEEK_API_KEY
	AIDeepSeekBaseURL     string // DOCINSIGHT_AI_DEEPSEEK_BASE_URL (default: https://api.deepseek.com)
	AIOllamaBaseURL       string // DOCINSIGHT_AI_OLLAMA_BASE_URL (default: http://localhost:11434)

	// Text extraction
	TikaServerURL string // DOCINSIGHT_TEXTEXTRACT_TIKA_URL (empty disables pdf support)

	// Conversation engine tunables
	ChunkSize               int
	ChunkOverlap            int
	TopK                    int
	HistoryRetention        int
	SessionIdleTTL          time.Duration
	SessionCapacity         int
	CleanupInterval         time.Duration
	MaxUploadBytes          int64
	EmbedBatchSize          int
	EmbedConcurrency        int
	MaxConcurrentIngestions int64
	RateLimit               float64 // requests per second per client
	RateBurst               int
}

// Engine defaults.
const (
	DefaultChunkSize               = 1000
	DefaultChunkOverlap            = 200
	DefaultTopK                    = 3
	DefaultHistoryRetention        = 6
	DefaultSessionIdleTTL          = 2 * time.Hour
	DefaultSessionCapacity         = 1000
	DefaultCleanupInterval         = 10 * time.Minute
	DefaultMaxUploadBytes          = 32 << 20
	DefaultEmbedBatchSize          = 16
	DefaultEmbedConcurrency        = 4
	DefaultMaxConcurrentIngestions = 4
	DefaultRateLimit               = 10
	DefaultRateBurst               = 20
)

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIConfigured returns true if the selected LLM provider has credentials or an endpoint.
func (p *Profile) IsAIConfigured() bool {
	switch p.AILLMProvider {
	case "openai":
		return p.AIOpenAIAPIKey != ""
	case "deepseek":
		return p.AIDeepSeekAPIKey != ""
	case "siliconflow":
		return p.AISiliconFlowAPIKey != ""
	case "ollama":
		return p.AIOllamaBaseURL != ""
	default:
		return false
	}
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads AI and extraction settings from DOCINSIGHT_* environment variables.
func (p *Profile) FromEnv() {
	p.AIEmbeddingProvider = getEnvOrDefault("DOCINSIGHT_AI_EMBEDDING_PROVIDER", "openai")
	p.AIEmbeddingModel = getEnvOrDefault("DOCINSIGHT_AI_EMBEDDING_MODEL", "text-embedding-3-small")
	if dims, err := strconv.Atoi(os.Getenv("DOCINSIGHT_AI_EMBEDDING_DIMENSIONS")); err == nil && dims > 0 {
		p.AIEmbeddingDimensions = dims
	}
	p.AILLMProvider = getEnvOrDefault("DOCINSIGHT_AI_LLM_PROVIDER", "openai")
	p.AILLMModel = getEnvOrDefault("DOCINSIGHT_AI_LLM_MODEL", "gpt-4o-mini")
	p.AIOpenAIAPIKey = os.Getenv("DOCINSIGHT_AI_OPENAI_API_KEY")
	p.AIOpenAIBaseURL = getEnvOrDefault("DOCINSIGHT_AI_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.AISiliconFlowAPIKey = os.Getenv("DOCINSIGHT_AI_SILICONFLOW_API_KEY")
	p.AISiliconFlowBaseURL = getEnvOrDefault("DOCINSIGHT_AI_SILICONFLOW_BASE_URL", "https://api.siliconflow.cn/v1")
	p.AIDeepSeekAPIKey = os.Getenv("DOCINSIGHT_AI_DEEPSEEK_API_KEY")
	p.AIDeepSeekBaseURL = getEnvOrDefault("DOCINSIGHT_AI_DEEPSEEK_BASE_URL", "https://api.deepseek.com")
	p.AIOllamaBaseURL = getEnvOrDefault("DOCINSIGHT_AI_OLLAMA_BASE_URL", "http://localhost:11434")
	p.TikaServerURL = os.Getenv("DOCINSIGHT_TEXTEXTRACT_TIKA_URL")
}

// applyDefaults fills zero-valued engine tunables.
func (p *Profile) applyDefaults() {
	if p.ChunkSize <= 0 {
		p.ChunkSize = DefaultChunkSize
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		p.ChunkOverlap = min(DefaultChunkOverlap, p.ChunkSize-1)
	}
	if p.TopK <= 0 {
		p.TopK = DefaultTopK
	}
	if p.HistoryRetention < 0 {
		p.HistoryRetention = DefaultHistoryRetention
	}
	if p.SessionIdleTTL == 0 {
		p.SessionIdleTTL = DefaultSessionIdleTTL
	}
	if p.SessionCapacity <= 0 {
		p.SessionCapacity = DefaultSessionCapacity
	}
	if p.CleanupInterval <= 0 {
		p.CleanupInterval = DefaultCleanupInterval
	}
	if p.MaxUploadBytes <= 0 {
		p.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if p.EmbedBatchSize <= 0 {
		p.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if p.EmbedConcurrency <= 0 {
		p.EmbedConcurrency = DefaultEmbedConcurrency
	}
	if p.MaxConcurrentIngestions <= 0 {
		p.MaxConcurrentIngestions = DefaultMaxConcurrentIngestions
	}
	if p.RateLimit <= 0 {
		p.RateLimit = DefaultRateLimit
	}
	if p.RateBurst <= 0 {
		p.RateBurst = DefaultRateBurst
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalises the profile and prepares the data directory.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	p.applyDefaults()

	if p.Data == "" {
		if p.Mode == "prod" {
			if runtime.GOOS == "windows" {
				p.Data = filepath.Join(os.Getenv("ProgramData"), "docinsight")
			} else {
				p.Data = "/var/opt/docinsight"
			}
		} else {
			p.Data = filepath.Join(os.TempDir(), "docinsight")
		}
		if err := os.MkdirAll(p.Data, 0770); err != nil {
			slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir
	return nil
}

// UploadDir returns the scratch directory for in-flight uploads.
func (p *Profile) UploadDir() string {
	return filepath.Join(p.Data, "uploads")
}
