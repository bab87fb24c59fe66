package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"vehicle-spec-rag/internal/answer"
	"vehicle-spec-rag/internal/metrics"
	"vehicle-spec-rag/internal/models"
	"vehicle-spec-rag/internal/prompt"
)

var ErrEmptyQuery = errors.New("query is empty")

type QueryResponse struct {
	Query   string                `json:"query"`
	Answer  models.Answer         `json:"answer"`
	Sources []models.SearchResult `json:"sources"`
}

// RAG answers spec questions: retrieve, build the prompt, complete, parse.
type RAG struct {
	retriever  *Retriever
	llm        Completer
	collection string
	topK       int
	metrics    *metrics.Metrics
}

func NewRAG(retriever *Retriever, llm Completer, collection string, topK int, m *metrics.Metrics) *RAG {
	if topK <= 0 {
		topK = models.DefaultTopK
	}
	return &RAG{
		retriever:  retriever,
		llm:        llm,
		collection: collection,
		topK:       topK,
		metrics:    m,
	}
}

func (r *RAG) Collection() string {
	return r.collection
}

// Query answers query from the collection. A reply that is not valid JSON is
// returned as the error payload, not as an error.
func (r *RAG) Query(ctx context.Context, query string) (*QueryResponse, error) {
	start := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	log.Info().Str("collection", r.collection).Str("query", query).Msg("Received query")

	sources, err := r.retriever.Search(ctx, query, r.topK, r.collection)
	if err != nil {
		r.metrics.QueryFailed("retrieve")
		return nil, err
	}

	p := prompt.Build(query, models.Texts(sources))
	raw, err := r.llm.Complete(ctx, p)
	if err != nil {
		r.metrics.QueryFailed("llm")
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	ans := answer.Parse(raw)
	if ans.IsMalformed() {
		log.Error().Str("raw_response", ans.Malformed.RawResponse).Msg("Failed to parse model reply as JSON")
	}
	r.metrics.ObserveQuery(len(sources), ans.IsMalformed(), time.Since(start))

	return &QueryResponse{Query: query, Answer: ans, Sources: sources}, nil
}
