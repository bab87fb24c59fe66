package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-spec-rag/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ProviderGoogleAI, cfg.LLM.Provider)
	assert.Equal(t, "gemini-flash-latest", cfg.LLM.Model)
	assert.Equal(t, "gemini-key", cfg.LLM.Key)
	assert.Equal(t, models.DefaultCollectionName, cfg.RAG.CollectionName)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, StoreChromem, cfg.VectorStore.Type)
	assert.Equal(t, "0.0.0.0:3000", cfg.HTTPAddr())
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
llm:
  provider: openai
  base_url: https://openrouter.ai/api/v1
  model: gpt-4o-mini
  key: sk-test
rag:
  collection_name: workshop
  sentence_group_size: 0
  min_token_length: 12
  top_k: 3
vector_store:
  type: pgvector
database:
  driver: pq
  dsn: postgres://localhost/rag
server:
  port: 8080
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.Key)
	assert.Equal(t, "workshop", cfg.RAG.CollectionName)
	assert.Equal(t, models.DefaultSentenceGroupSize, cfg.RAG.SentenceGroupSize)
	assert.Equal(t, 12, cfg.RAG.MinTokenLength)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, StorePgvector, cfg.VectorStore.Type)
	assert.Equal(t, DriverPq, cfg.Database.Driver)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	// untouched sections keep their defaults
	assert.Equal(t, ProviderOllama, cfg.EmbedLLM.Provider)
	assert.Equal(t, models.DefaultEmbedBatchSize, cfg.EmbedLLM.BatchSize)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: googleai
  key: from-file
`)
	t.Setenv("GEMINI_API_KEY", "ignored")
	t.Setenv("EMBED_MODEL", "mxbai-embed-large")
	t.Setenv("COLLECTION_NAME", "env_collection")
	t.Setenv("RAG_TOP_K", "8")
	t.Setenv("PORT", "not-a-number")
	t.Setenv("VECTOR_DB_PATH", "/tmp/store")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.LLM.Key)
	assert.Equal(t, "mxbai-embed-large", cfg.EmbedLLM.Model)
	assert.Equal(t, "env_collection", cfg.RAG.CollectionName)
	assert.Equal(t, 8, cfg.RAG.TopK)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/tmp/store", cfg.VectorStore.Path)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "rag: [unclosed"},
		{"unknown store", "vector_store:\n  type: qdrant\n"},
		{"pgvector without dsn", "vector_store:\n  type: pgvector\n"},
		{"unknown driver", "vector_store:\n  type: pgvector\ndatabase:\n  driver: mysql\n  dsn: x\n"},
		{"short encryption key", "vector_store:\n  encryption_key: short\n"},
		{"negative min tokens", "rag:\n  min_token_length: -1\n"},
		{"unknown provider", "llm:\n  provider: bedrock\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}
