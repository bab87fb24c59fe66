package rag

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"vehicle-spec-rag/internal/models"
)

// Retriever embeds a query and looks up the closest passages. Every call
// embeds the query again.
type Retriever struct {
	embedder Embedder
	store    Store
}

func NewRetriever(embedder Embedder, store Store) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns up to k passage texts, best match first.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, collection string) ([]string, error) {
	results, err := r.Search(ctx, query, k, collection)
	if err != nil {
		return nil, err
	}
	return models.Texts(results), nil
}

// Search is Retrieve with the stored metadata of each passage.
func (r *Retriever) Search(ctx context.Context, query string, k int, collection string) ([]models.SearchResult, error) {
	if k <= 0 {
		return []models.SearchResult{}, nil
	}

	vectors, err := r.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for one query", models.ErrEmbeddingService, len(vectors))
	}

	results, err := r.store.Search(ctx, collection, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %s: %w", collection, err)
	}
	log.Debug().Str("collection", collection).Int("k", k).Int("results", len(results)).Msg("Retrieved passages")
	return results, nil
}
