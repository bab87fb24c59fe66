// Package embeddingtest provides deterministic in-process embedders for tests.
package embeddingtest

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
)

const Dimension = 64

// BagOfWords hashes lower-cased words into a fixed-size, L2-normalized vector,
// so texts sharing words land close together. It records every call.
type BagOfWords struct {
	mu      sync.Mutex
	Calls   [][]string
	Err     error
	Dropped int // drop this many vectors from each response
}

func (b *BagOfWords) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	b.mu.Lock()
	b.Calls = append(b.Calls, append([]string(nil), texts...))
	err, dropped := b.Err, b.Dropped
	b.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, Vector(t))
	}
	if dropped > 0 {
		out = out[:max(0, len(out)-dropped)]
	}
	return out, nil
}

func (b *BagOfWords) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := b.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// CallCount returns the number of EmbedDocuments calls so far.
func (b *BagOfWords) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Calls)
}

// Vector is the embedding BagOfWords produces for text.
func Vector(text string) []float32 {
	v := make([]float32, Dimension)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%Dimension]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v
}
