package rag

import (
	"context"

	"vehicle-spec-rag/internal/models"
)

// Embedder turns texts into vectors, one per text, in order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is a vector store holding named collections of passages.
type Store interface {
	// Replace resets the collection and fills it with chunks. Queries never
	// see the collection in between.
	Replace(ctx context.Context, name string, chunks []models.PassageChunk) error
	Search(ctx context.Context, name string, embedding []float32, k int) ([]models.SearchResult, error)
	Count(ctx context.Context, name string) (int, error)
}

// Completer sends a prompt to the language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Chunker splits pages into passages.
type Chunker interface {
	Chunk(pages []models.PageRecord) []models.PassageChunk
}

// ExtractFunc reads a document into pages.
type ExtractFunc func(path string) ([]models.PageRecord, error)
