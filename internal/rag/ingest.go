package rag

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"vehicle-spec-rag/internal/helper"
	"vehicle-spec-rag/internal/metrics"
	"vehicle-spec-rag/internal/models"
)

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	RunID      string        `json:"run_id"`
	Collection string        `json:"collection"`
	Source     string        `json:"source"`
	Pages      int           `json:"pages"`
	Chunks     int           `json:"chunks"`
	Duration   time.Duration `json:"duration"`
}

// Ingestor runs extract, chunk, embed and store for one document at a time.
type Ingestor struct {
	extract  ExtractFunc
	chunker  Chunker
	embedder Embedder
	store    Store
	metrics  *metrics.Metrics

	// one run reaches the store at a time
	mu sync.Mutex
}

func NewIngestor(extract ExtractFunc, chunker Chunker, embedder Embedder, store Store, m *metrics.Metrics) *Ingestor {
	return &Ingestor{
		extract:  extract,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		metrics:  m,
	}
}

// Prepare extracts and chunks the document without embedding or storing it.
func (i *Ingestor) Prepare(path string) ([]models.PageRecord, []models.PassageChunk, error) {
	source := filepath.Base(path)
	pages, err := i.extract(path)
	if err != nil {
		i.metrics.IngestionFailed("extract")
		return nil, nil, fmt.Errorf("failed to extract %s: %w", source, err)
	}
	chunks := i.chunker.Chunk(pages)
	for j := range chunks {
		if chunks[j].SourceName == "" {
			chunks[j].SourceName = source
		}
	}
	return pages, chunks, nil
}

// Ingest replaces the collection's content with the passages of the document
// at path. Any failure before the store step leaves the collection untouched.
func (i *Ingestor) Ingest(ctx context.Context, path, collection string) (*IngestReport, error) {
	start := time.Now()
	source := filepath.Base(path)
	runID, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	logger := log.With().Str("run_id", runID).Str("source", source).Str("collection", collection).Logger()
	logger.Info().Msg("Starting ingestion")

	pages, chunks, err := i.Prepare(path)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("Chunked document")
	if len(chunks) == 0 {
		i.metrics.IngestionFailed("chunk")
		return nil, fmt.Errorf("failed to ingest %s: %w", source, models.ErrNoPassages)
	}

	texts := make([]string, len(chunks))
	for j, c := range chunks {
		texts[j] = c.Text
	}
	vectors, err := i.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		i.metrics.IngestionFailed("embed")
		return nil, fmt.Errorf("failed to embed %s: %w", source, err)
	}
	if len(vectors) != len(chunks) {
		i.metrics.IngestionFailed("embed")
		return nil, fmt.Errorf("failed to embed %s: %w: %d vectors for %d chunks",
			source, models.ErrEmbeddingService, len(vectors), len(chunks))
	}
	for j := range chunks {
		chunks[j].Embedding = vectors[j]
	}

	i.mu.Lock()
	err = i.store.Replace(ctx, collection, chunks)
	i.mu.Unlock()
	if err != nil {
		i.metrics.IngestionFailed("store")
		return nil, fmt.Errorf("failed to store %s: %w", source, err)
	}

	report := &IngestReport{
		RunID:      runID,
		Collection: collection,
		Source:     source,
		Pages:      len(pages),
		Chunks:     len(chunks),
		Duration:   time.Since(start),
	}
	i.metrics.ObserveIngestion(report.Pages, report.Chunks, report.Duration)
	logger.Info().Int("chunks", report.Chunks).Dur("took", report.Duration).Msg("Ingestion complete")
	return report, nil
}
