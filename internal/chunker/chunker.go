package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"vehicle-spec-rag/internal/models"
)

var collapsedBoundaryRe = regexp.MustCompile(`\.([A-Z])`)

// Chunker groups the sentences of each page into fixed-size passages and
// drops passages too short to be useful for retrieval.
type Chunker struct {
	SentenceGroupSize int
	MinTokenLength    int
	splitter          SentenceSplitter
}

// PageSentences is the sentence split of a single page.
type PageSentences struct {
	PageNumber int
	SourceName string
	Sentences  []string
}

func New(sentenceGroupSize, minTokenLength int) *Chunker {
	if sentenceGroupSize <= 0 {
		sentenceGroupSize = models.DefaultSentenceGroupSize
	}
	return &Chunker{
		SentenceGroupSize: sentenceGroupSize,
		MinTokenLength:    minTokenLength,
		splitter:          NewSentenceSplitter(),
	}
}

// WithSplitter replaces the sentence splitter.
func (c *Chunker) WithSplitter(s SentenceSplitter) *Chunker {
	c.splitter = s
	return c
}

// SplitPages sentence-splits every page, keeping page order.
func (c *Chunker) SplitPages(pages []models.PageRecord) []PageSentences {
	out := make([]PageSentences, len(pages))
	for i, p := range pages {
		out[i] = PageSentences{
			PageNumber: p.PageNumber,
			SourceName: p.SourceName,
			Sentences:  c.splitter.Split(p.RawText),
		}
	}
	return out
}

// Chunk returns the passages of all pages in page order, then group order.
// Only passages whose approximate token count exceeds MinTokenLength are kept.
func (c *Chunker) Chunk(pages []models.PageRecord) []models.PassageChunk {
	var all []models.PassageChunk
	for _, ps := range c.SplitPages(pages) {
		log.Debug().
			Str("source", ps.SourceName).
			Int("page", ps.PageNumber).
			Int("sentences", len(ps.Sentences)).
			Msg("Split page")
		all = append(all, c.groupPage(ps)...)
	}

	kept := make([]models.PassageChunk, 0, len(all))
	for _, ch := range all {
		if ch.ApproxTokenCount > float64(c.MinTokenLength) {
			kept = append(kept, ch)
		}
	}

	log.Info().
		Int("pages", len(pages)).
		Int("chunks", len(all)).
		Int("kept", len(kept)).
		Int("min_token_length", c.MinTokenLength).
		Msg("Chunked document")
	return kept
}

func (c *Chunker) groupPage(ps PageSentences) []models.PassageChunk {
	var chunks []models.PassageChunk
	for start, group := 0, 0; start < len(ps.Sentences); start, group = start+c.SentenceGroupSize, group+1 {
		end := min(start+c.SentenceGroupSize, len(ps.Sentences))
		chunk := NewPassageChunk(JoinSentences(ps.Sentences[start:end]))
		chunk.SourceName = ps.SourceName
		chunk.PageNumber = ps.PageNumber
		chunk.GroupIndex = group
		chunks = append(chunks, chunk)
	}
	return chunks
}

// JoinSentences concatenates sentences without a separator, collapses double
// spaces, trims, and restores the space in boundaries like "end.Next".
func JoinSentences(sentences []string) string {
	joined := strings.Join(sentences, "")
	joined = strings.TrimSpace(strings.ReplaceAll(joined, "  ", " "))
	return collapsedBoundaryRe.ReplaceAllString(joined, ". $1")
}

// NewPassageChunk computes the statistics of a passage text.
func NewPassageChunk(text string) models.PassageChunk {
	chars := utf8.RuneCountInString(text)
	return models.PassageChunk{
		Text:             text,
		CharCount:        chars,
		WordCount:        len(strings.Split(text, " ")),
		ApproxTokenCount: float64(chars) / models.CharsPerToken,
	}
}
