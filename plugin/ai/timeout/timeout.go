// Package timeout defines centralized timeout constants for AI operations.
// Package timeout 定义 AI 操作的集中式超时常量。
package timeout

import "time"

// AI operation timeout constants.
// AI 操作超时常量。
const (
	// EmbeddingTimeout is the timeout for one embedding request (a single batch).
	// EmbeddingTimeout 是单次向量生成请求（一个批次）的超时时间。
	EmbeddingTimeout = 30 * time.Second

	// LLMCallTimeout is the timeout for one generation call, each fallback tier gets its own.
	// LLMCallTimeout 是单次 LLM 生成调用的超时时间，每个降级层级单独计时。
	LLMCallTimeout = 60 * time.Second

	// IngestTimeout bounds a whole upload: extraction, chunking and indexing.
	// IngestTimeout 是一次上传（提取、分块、建索引）的总超时时间。
	IngestTimeout = 5 * time.Minute

	// TextExtractTimeout is the timeout for one remote extraction request.
	// TextExtractTimeout 是单次远程文本提取请求的超时时间。
	TextExtractTimeout = 2 * time.Minute

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	// MaxTruncateLength 是日志中字符串截断的最大长度。
	MaxTruncateLength = 200
)

// Truncate shortens s to MaxTruncateLength runes for logging.
// Truncate 将字符串截断到 MaxTruncateLength 个字符，用于日志输出。
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxTruncateLength {
		return s
	}
	return string(runes[:MaxTruncateLength]) + "..."
}
