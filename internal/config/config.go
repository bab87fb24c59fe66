package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"vehicle-spec-rag/internal/models"
)

const (
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"

	StoreChromem  = "chromem"
	StorePgvector = "pgvector"

	DriverPgdriver = "pgdriver"
	DriverPq       = "pq"
)

type Config struct {
	LogLevel    string            `yaml:"log_level"`
	DataDir     string            `yaml:"data_dir"`
	EmbedLLM    LLMConfig         `yaml:"embed_llm"`
	LLM         LLMConfig         `yaml:"llm"`
	RAG         RAGConfig         `yaml:"rag"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Database    DatabaseConfig    `yaml:"database"`
	Server      ServerConfig      `yaml:"server"`
}

// LLMConfig describes one model endpoint, used for both the embedding model
// and the completion model.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Key         string  `yaml:"key"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries"`
	BatchSize   int     `yaml:"batch_size"`
	Concurrency int     `yaml:"concurrency"`
	Temperature float64 `yaml:"temperature"`
}

func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

type RAGConfig struct {
	CollectionName    string `yaml:"collection_name"`
	SentenceGroupSize int    `yaml:"sentence_group_size"`
	MinTokenLength    int    `yaml:"min_token_length"`
	TopK              int    `yaml:"top_k"`
}

type VectorStoreConfig struct {
	Type          string `yaml:"type"`
	Path          string `yaml:"path"`
	InMemory      bool   `yaml:"in_memory"`
	Compress      bool   `yaml:"compress"`
	EncryptionKey string `yaml:"encryption_key"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Debug  bool   `yaml:"debug"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	GinMode     string `yaml:"gin_mode"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LoadConfig reads the YAML file at path, fills in defaults and applies
// environment overrides. A missing file yields the defaults. Variables from a
// .env file in the working directory are loaded first when present.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	applyDefaults(cfg)
	overrideByEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		DataDir:  "./data",
		EmbedLLM: LLMConfig{
			Provider:    ProviderOllama,
			BaseURL:     "http://localhost:11434",
			Model:       "nomic-embed-text",
			TimeoutSecs: 60,
			BatchSize:   models.DefaultEmbedBatchSize,
			Concurrency: 1,
		},
		LLM: LLMConfig{
			Provider:    ProviderGoogleAI,
			Model:       "gemini-flash-latest",
			TimeoutSecs: 90,
		},
		RAG: RAGConfig{
			CollectionName:    models.DefaultCollectionName,
			SentenceGroupSize: models.DefaultSentenceGroupSize,
			MinTokenLength:    models.DefaultMinTokenLength,
			TopK:              models.DefaultTopK,
		},
		VectorStore: VectorStoreConfig{
			Type: StoreChromem,
			Path: "./data/chroma_store",
		},
		Database: DatabaseConfig{
			Driver: DriverPgdriver,
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        3000,
			GinMode:     "release",
			MaxUploadMB: 50,
		},
	}
}

// applyDefaults restores defaults for numeric fields a config file zeroed out.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.RAG.CollectionName == "" {
		cfg.RAG.CollectionName = def.RAG.CollectionName
	}
	if cfg.RAG.SentenceGroupSize <= 0 {
		cfg.RAG.SentenceGroupSize = def.RAG.SentenceGroupSize
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = def.RAG.TopK
	}
	if cfg.EmbedLLM.BatchSize <= 0 {
		cfg.EmbedLLM.BatchSize = def.EmbedLLM.BatchSize
	}
	if cfg.EmbedLLM.Concurrency <= 0 {
		cfg.EmbedLLM.Concurrency = 1
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = def.VectorStore.Type
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = def.Database.Driver
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = def.Server.MaxUploadMB
	}
	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}
}

func overrideByEnv(cfg *Config) {
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)

	cfg.EmbedLLM.BaseURL = getEnv("EMBED_BASE_URL", cfg.EmbedLLM.BaseURL)
	cfg.EmbedLLM.Key = getEnv("EMBED_API_KEY", cfg.EmbedLLM.Key)
	cfg.EmbedLLM.Model = getEnv("EMBED_MODEL", cfg.EmbedLLM.Model)

	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Key = getEnv("LLM_API_KEY", cfg.LLM.Key)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	if cfg.LLM.Provider == ProviderGoogleAI && cfg.LLM.Key == "" {
		cfg.LLM.Key = getEnv("GEMINI_API_KEY", "")
	}

	cfg.RAG.CollectionName = getEnv("COLLECTION_NAME", cfg.RAG.CollectionName)
	cfg.RAG.TopK = getEnvAsInt("RAG_TOP_K", cfg.RAG.TopK)

	cfg.VectorStore.Path = getEnv("VECTOR_DB_PATH", cfg.VectorStore.Path)
	cfg.VectorStore.EncryptionKey = getEnv("VECTOR_DB_ENCRYPTION_KEY", cfg.VectorStore.EncryptionKey)
	cfg.Database.DSN = getEnv("DATABASE_DSN", cfg.Database.DSN)

	cfg.Server.Port = getEnvAsInt("PORT", cfg.Server.Port)
	cfg.Server.GinMode = getEnv("GIN_MODE", cfg.Server.GinMode)
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.VectorStore.Type {
	case StoreChromem:
		if !c.VectorStore.InMemory && c.VectorStore.Path == "" {
			return errors.New("vector_store.path is required for a persistent chromem store")
		}
	case StorePgvector:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the pgvector store")
		}
		if c.Database.Driver != DriverPgdriver && c.Database.Driver != DriverPq {
			return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unsupported vector store type: %s", c.VectorStore.Type)
	}
	if key := c.VectorStore.EncryptionKey; key != "" && len(key) != 32 {
		return errors.New("vector_store.encryption_key must be 32 bytes")
	}
	if c.RAG.MinTokenLength < 0 {
		return errors.New("rag.min_token_length must not be negative")
	}
	for name, p := range map[string]string{"embed_llm": c.EmbedLLM.Provider, "llm": c.LLM.Provider} {
		switch p {
		case ProviderOllama, ProviderOpenAI, ProviderGoogleAI:
		default:
			return fmt.Errorf("%s.provider %q is not supported", name, p)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
