package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"resume-qa-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProvider_SendsZeroTemperature(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"m","message":{"role":"assistant","content":"ok"},"done":true}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "qwen2.5:7b")
	out, err := p.Generate(context.Background(), "verify", llm.WithTemperature(0), llm.WithMaxTokens(64))
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	options := got["options"].(map[string]interface{})
	assert.Equal(t, 0.0, options["temperature"])
	assert.Equal(t, 64.0, options["num_predict"])
	assert.Equal(t, "qwen2.5:7b", got["model"])
}

func TestOllamaProvider_ClassifiesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "m").Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, llm.ErrQuotaExceeded)

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer slow.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = NewOllamaProvider(slow.URL, "m").Generate(ctx, "hi")
	assert.ErrorIs(t, err, llm.ErrTimeout)
}
