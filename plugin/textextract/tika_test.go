package textextract

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Empty(t, config.TikaServerURL)
	assert.Equal(t, 30*time.Second, config.Timeout)
}

func TestNewTikaClient_NoServer(t *testing.T) {
	assert.Nil(t, NewTikaClient(nil))
	assert.Nil(t, NewTikaClient(&Config{}))

	var c *TikaClient
	assert.False(t, c.IsAvailable(context.Background()))
}

func TestTikaClient_ExtractText(t *testing.T) {
	var gotType, gotAccept, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tika", r.URL.Path)
		gotType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		_, _ = w.Write([]byte("  extracted pdf text \n"))
	}))
	defer server.Close()

	client := NewTikaClient(&Config{TikaServerURL: server.URL + "/", Timeout: time.Second})
	require.NotNil(t, client)

	text, err := client.ExtractText(context.Background(), []byte("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "extracted pdf text", text)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, "text/plain", gotAccept)
	assert.Equal(t, "%PDF-1.4", gotBody)
}

func TestTikaClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unprocessable", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewTikaClient(&Config{TikaServerURL: server.URL})
	_, err := client.ExtractText(context.Background(), []byte("x"), "application/pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestTikaClient_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("This is Tika Server."))
	}))
	defer server.Close()

	client := NewTikaClient(&Config{TikaServerURL: server.URL})
	assert.True(t, client.IsAvailable(context.Background()))
}
