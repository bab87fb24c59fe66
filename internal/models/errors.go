package models

import "errors"

var (
	// ErrNotFound is returned when the input document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrExtraction is returned when a document cannot be parsed into pages.
	ErrExtraction = errors.New("document extraction failed")
	// ErrEmbeddingService covers embedding calls that fail or break the
	// one-vector-per-input contract.
	ErrEmbeddingService = errors.New("embedding service error")
	// ErrNoPassages is returned when a document yields no chunk that passes
	// the token filter. The target collection is left as it was.
	ErrNoPassages = errors.New("document produced no passages")
	// ErrStore covers vector store read and write failures.
	ErrStore = errors.New("vector store error")
	// ErrEmptyCompletion is returned when the language model produced no text,
	// e.g. a blocked or filtered response.
	ErrEmptyCompletion = errors.New("language model returned no content")
)
