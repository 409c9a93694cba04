// Package textextract turns uploaded documents into plain text.
// Plain text, HTML, Markdown and DOCX are handled natively; PDF goes through
// an Apache Tika server.
package textextract

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Config holds the text extraction configuration
type Config struct {
	// TikaServerURL is the URL of the Tika server (e.g., http://localhost:9998).
	// Empty disables formats that need Tika.
	TikaServerURL string
	// Timeout is the HTTP timeout for Tika server requests
	Timeout time.Duration
}

// DefaultConfig returns the default text extraction configuration
func DefaultConfig() *Config {
	return &Config{
		TikaServerURL: "",
		Timeout:       30 * time.Second,
	}
}

// TikaClient talks to an Apache Tika server.
type TikaClient struct {
	serverURL  string
	httpClient *http.Client
}

// NewTikaClient creates a Tika client, or returns nil when no server is configured.
func NewTikaClient(config *Config) *TikaClient {
	if config == nil {
		config = DefaultConfig()
	}
	if config.TikaServerURL == "" {
		return nil
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	return &TikaClient{
		serverURL:  strings.TrimRight(config.TikaServerURL, "/"),
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// ExtractText sends data to Tika and returns the plain text it produces.
func (c *TikaClient) ExtractText(ctx context.Context, data []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.serverURL+"/tika", bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("tika server request failed", "url", c.serverURL, "error", err)
		return "", errors.Wrap(err, "tika server request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", errors.Errorf("tika server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response")
	}
	return strings.TrimSpace(string(text)), nil
}

// IsAvailable checks if the Tika server answers.
func (c *TikaClient) IsAvailable(ctx context.Context) bool {
	if c == nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/tika", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
