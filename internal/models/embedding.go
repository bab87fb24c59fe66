package models

// PageRecord is the extracted, whitespace-normalized text of one document page.
type PageRecord struct {
	SourceName       string  `json:"source_name"`
	PageNumber       int     `json:"page_number"`
	RawText          string  `json:"raw_text"`
	CharCount        int     `json:"char_count"`
	WordCount        int     `json:"word_count"`
	SentenceCountRaw int     `json:"sentence_count_raw"`
	ApproxTokenCount float64 `json:"approx_token_count"`
}

// PassageChunk is a group of consecutive sentences from a single page,
// the unit that gets embedded, stored and ranked.
type PassageChunk struct {
	SourceName       string    `json:"source_name"`
	PageNumber       int       `json:"page_number"`
	GroupIndex       int       `json:"group_index"`
	Text             string    `json:"text"`
	CharCount        int       `json:"char_count"`
	WordCount        int       `json:"word_count"`
	ApproxTokenCount float64   `json:"approx_token_count"`
	Embedding        []float32 `json:"embedding,omitempty"`
}

// SearchResult is a stored passage returned by a similarity query.
type SearchResult struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	SourceName string  `json:"source_name,omitempty"`
	PageNumber int     `json:"page_number"`
	Similarity float32 `json:"similarity"`
}

// Texts returns the passage texts in rank order.
func Texts(results []SearchResult) []string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return texts
}
