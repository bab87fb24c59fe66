package http

import (
	"context"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-spec-rag/internal/bootstrap"
	"vehicle-spec-rag/internal/config"
)

func newTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.GinMode = "test"
	cfg.DataDir = t.TempDir()
	cfg.LLM = config.LLMConfig{Provider: config.ProviderOllama, BaseURL: "http://localhost:11434", Model: "llama3.2"}
	cfg.VectorStore.InMemory = true

	app, err := bootstrap.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestRouter(t *testing.T) {
	router := NewRouter(newTestApp(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(stdhttp.MethodGet, "/healthz", nil))
	assert.Equal(t, stdhttp.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"passages":0`)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(stdhttp.MethodPost, "/query", strings.NewReader(`{"query":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, stdhttp.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(stdhttp.MethodGet, "/metrics", nil))
	assert.Equal(t, stdhttp.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rag_query_requests_total")
	assert.Contains(t, w.Body.String(), "go_goroutines")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(stdhttp.MethodGet, "/query", nil))
	assert.Equal(t, stdhttp.StatusNotFound, w.Code)
}
