package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/hrygo/docinsight/internal/profile"
)

func TestNewProfile_Defaults(t *testing.T) {
	p := newProfile()

	if p.Port != 8000 {
		t.Errorf("Port = %d, want 8000", p.Port)
	}
	if p.HistoryRetention != profile.DefaultHistoryRetention {
		t.Errorf("HistoryRetention = %d, want %d", p.HistoryRetention, profile.DefaultHistoryRetention)
	}
	if p.SessionIdleTTL != profile.DefaultSessionIdleTTL {
		t.Errorf("SessionIdleTTL = %v, want %v", p.SessionIdleTTL, profile.DefaultSessionIdleTTL)
	}
	if p.MaxUploadBytes != profile.DefaultMaxUploadBytes {
		t.Errorf("MaxUploadBytes = %d, want %d", p.MaxUploadBytes, profile.DefaultMaxUploadBytes)
	}
}

func TestNewProfile_Env(t *testing.T) {
	t.Setenv("DOCINSIGHT_TOP_K", "5")
	t.Setenv("DOCINSIGHT_HISTORY_RETENTION", "0")
	t.Setenv("DOCINSIGHT_SESSION_IDLE_TTL", "30m")
	t.Setenv("DOCINSIGHT_AI_LLM_PROVIDER", "deepseek")

	p := newProfile()
	if p.TopK != 5 {
		t.Errorf("TopK = %d, want 5", p.TopK)
	}
	if p.HistoryRetention != 0 {
		t.Errorf("HistoryRetention = %d, want 0", p.HistoryRetention)
	}
	if p.SessionIdleTTL != 30*time.Minute {
		t.Errorf("SessionIdleTTL = %v, want 30m", p.SessionIdleTTL)
	}
	if p.AILLMProvider != "deepseek" {
		t.Errorf("AILLMProvider = %q, want deepseek", p.AILLMProvider)
	}
}

func TestLoadConfigFile(t *testing.T) {
	if err := loadConfigFile(""); err != nil {
		t.Fatalf("empty path: %v", err)
	}

	path := filepath.Join(t.TempDir(), "docinsight.yaml")
	if err := os.WriteFile(path, []byte("chunk-size: 500\nrate-burst: 7\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := loadConfigFile(path); err != nil {
		t.Fatalf("loadConfigFile: %v", err)
	}
	defer viper.Set("chunk-size", profile.DefaultChunkSize)
	defer viper.Set("rate-burst", profile.DefaultRateBurst)

	p := newProfile()
	if p.ChunkSize != 500 {
		t.Errorf("ChunkSize = %d, want 500", p.ChunkSize)
	}
	if p.RateBurst != 7 {
		t.Errorf("RateBurst = %d, want 7", p.RateBurst)
	}

	if err := loadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
