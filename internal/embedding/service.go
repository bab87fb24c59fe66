package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"golang.org/x/sync/errgroup"

	"vehicle-spec-rag/internal/helper"
	"vehicle-spec-rag/internal/models"
)

// Service embeds texts in batches while keeping one vector per input, in input order.
type Service struct {
	embedder    embeddings.Embedder
	batchSize   int
	concurrency int
	timeout     time.Duration
	retry       helper.RetryConfig
}

type Option func(*Service)

// WithConcurrency lets up to n batches run at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithTimeout bounds each batch request, including each retry, to d.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRetry retries failed batches. Count and dimension mismatches are never retried.
func WithRetry(cfg helper.RetryConfig) Option {
	return func(s *Service) {
		s.retry = cfg
	}
}

func NewService(embedder embeddings.Embedder, batchSize int, opts ...Option) *Service {
	if batchSize <= 0 {
		batchSize = models.DefaultEmbedBatchSize
	}
	s := &Service{
		embedder:    embedder,
		batchSize:   batchSize,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) BatchSize() int {
	return s.batchSize
}

// EmbedTexts returns one vector per text in the same order. All vectors share
// the same dimensionality.
func (s *Service) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	start := time.Now()
	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for from := 0; from < len(texts); from += s.batchSize {
		from, to := from, min(from+s.batchSize, len(texts))
		g.Go(func() error {
			return s.embedBatch(gctx, texts[from:to], vectors[from:to], from)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d", models.ErrEmbeddingService, i, len(v), dim)
		}
	}

	log.Debug().
		Int("texts", len(texts)).
		Int("batch_size", s.batchSize).
		Int("dimension", dim).
		Dur("took", time.Since(start)).
		Msg("Embedded texts")
	return vectors, nil
}

func (s *Service) embedBatch(ctx context.Context, batch []string, out [][]float32, offset int) error {
	got, err := helper.RetryWithResult(ctx, s.retry, "embed_batch", func() ([][]float32, error) {
		callCtx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		return s.embedder.EmbedDocuments(callCtx, batch)
	})
	if err != nil {
		return fmt.Errorf("%w: batch at %d: %w", models.ErrEmbeddingService, offset, err)
	}
	if len(got) != len(batch) {
		return fmt.Errorf("%w: batch at %d returned %d vectors for %d texts",
			models.ErrEmbeddingService, offset, len(got), len(batch))
	}
	copy(out, got)
	return nil
}

// EmbedQuery embeds a single query as a one-item batch.
func (s *Service) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := s.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedChunks returns copies of chunks with their Embedding set.
func (s *Service) EmbedChunks(ctx context.Context, chunks []models.PassageChunk) ([]models.PassageChunk, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	out := make([]models.PassageChunk, len(chunks))
	for i, c := range chunks {
		c.Embedding = vectors[i]
		out[i] = c
	}
	return out, nil
}
