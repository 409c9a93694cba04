package timeout

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	if got := Truncate("short"); got != "short" {
		t.Errorf("expected short string unchanged, got %q", got)
	}

	long := strings.Repeat("界", MaxTruncateLength+10)
	got := Truncate(long)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis suffix, got %q", got)
	}
	if n := len([]rune(strings.TrimSuffix(got, "..."))); n != MaxTruncateLength {
		t.Errorf("expected %d runes, got %d", MaxTruncateLength, n)
	}
}

func TestCallTimeoutsFitInsideIngest(t *testing.T) {
	if EmbeddingTimeout >= IngestTimeout {
		t.Errorf("embedding timeout %v should be shorter than ingest timeout %v", EmbeddingTimeout, IngestTimeout)
	}
	if TextExtractTimeout >= IngestTimeout {
		t.Errorf("extract timeout %v should be shorter than ingest timeout %v", TextExtractTimeout, IngestTimeout)
	}
}
