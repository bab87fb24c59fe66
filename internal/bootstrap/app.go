package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"vehicle-spec-rag/internal/chromemdb"
	"vehicle-spec-rag/internal/chunker"
	"vehicle-spec-rag/internal/config"
	"vehicle-spec-rag/internal/db"
	"vehicle-spec-rag/internal/embedding"
	"vehicle-spec-rag/internal/helper"
	"vehicle-spec-rag/internal/llmservice"
	"vehicle-spec-rag/internal/metrics"
	"vehicle-spec-rag/internal/parser"
	"vehicle-spec-rag/internal/rag"
)

// VectorStore is a rag.Store that owns a connection or file handle.
type VectorStore interface {
	rag.Store
	Close() error
}

type App struct {
	Config   *config.Config
	Store    VectorStore
	Ingestor *rag.Ingestor
	RAG      *rag.RAG
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	StartedAt time.Time
}

// New wires every component from cfg. It either returns a complete App or an
// error; nothing is left half-initialized.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	embedder, err := embedding.NewEmbedder(ctx, &cfg.EmbedLLM)
	if err != nil {
		return nil, fmt.Errorf("init embedder failed: %w", err)
	}
	embedSvc := embedding.NewService(embedder, cfg.EmbedLLM.BatchSize,
		embedding.WithConcurrency(cfg.EmbedLLM.Concurrency),
		embedding.WithTimeout(cfg.EmbedLLM.Timeout()),
		embedding.WithRetry(helper.DefaultRetryConfig(cfg.EmbedLLM.MaxRetries)),
	)

	llm, err := llmservice.New(ctx, &cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("init llm failed: %w", err)
	}

	store, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ingestor := rag.NewIngestor(
		parser.ExtractPages,
		chunker.New(cfg.RAG.SentenceGroupSize, cfg.RAG.MinTokenLength),
		embedSvc,
		store,
		m,
	)
	retriever := rag.NewRetriever(embedSvc, store)

	return &App{
		Config:    cfg,
		Store:     store,
		Ingestor:  ingestor,
		RAG:       rag.NewRAG(retriever, llm, cfg.RAG.CollectionName, cfg.RAG.TopK, m),
		Registry:  reg,
		Metrics:   m,
		StartedAt: time.Now(),
	}, nil
}

// NewStore opens the configured vector store.
func NewStore(ctx context.Context, cfg *config.Config) (VectorStore, error) {
	switch cfg.VectorStore.Type {
	case config.StorePgvector:
		sqldb, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		bunDB := db.NewDB(sqldb, cfg.Database.Debug)
		if err := db.InitDB(ctx, bunDB); err != nil {
			bunDB.Close()
			return nil, fmt.Errorf("init database failed: %w", err)
		}
		log.Info().Msg("Using pgvector store")
		return db.NewStore(bunDB), nil

	case config.StoreChromem, "":
		if !cfg.VectorStore.InMemory {
			if err := helper.CreateFolder(cfg.VectorStore.Path); err != nil {
				return nil, err
			}
		}
		store, err := chromemdb.NewVectorDBManager(&cfg.VectorStore)
		if err != nil {
			return nil, err
		}
		if err := store.Import(ctx, cfg.RAG.CollectionName); err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.VectorStore.Path).Bool("in_memory", cfg.VectorStore.InMemory).Msg("Using chromem store")
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported vector store: %s", cfg.VectorStore.Type)
	}
}

func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
