package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-spec-rag/internal/models"
)

func numberedSentences(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s step %d tightens the mounting bolt.", prefix, i+1)
	}
	return out
}

func page(num int, sentences []string) models.PageRecord {
	return models.PageRecord{
		SourceName: "manual.pdf",
		PageNumber: num,
		RawText:    strings.Join(sentences, " "),
	}
}

func TestChunk_TwoPageScenario(t *testing.T) {
	first := numberedSentences("Front", 25)
	second := numberedSentences("Rear", 3)
	pages := []models.PageRecord{page(0, first), page(1, second)}

	c := New(10, 5)
	split := c.SplitPages(pages)
	require.Len(t, split[0].Sentences, 25)
	require.Len(t, split[1].Sentences, 3)

	chunks := c.Chunk(pages)
	require.Len(t, chunks, 4)

	expected := []struct {
		page, group int
		sentences   []string
	}{
		{0, 0, first[0:10]},
		{0, 1, first[10:20]},
		{0, 2, first[20:25]},
		{1, 0, second},
	}
	for i, want := range expected {
		got := chunks[i]
		assert.Equal(t, want.page, got.PageNumber, "chunk %d page", i)
		assert.Equal(t, want.group, got.GroupIndex, "chunk %d group", i)
		assert.Equal(t, strings.Join(want.sentences, " "), got.Text, "chunk %d text", i)
		assert.Equal(t, "manual.pdf", got.SourceName)
		assert.Greater(t, got.ApproxTokenCount, 5.0)
	}
}

func TestChunk_TokenFilter(t *testing.T) {
	// one sentence per group so each sentence becomes its own candidate
	pages := []models.PageRecord{
		page(0, []string{"Abcdefg.", "Abcdefgh.", "Short.", "A much longer sentence about the caliper."}),
	}

	chunks := New(1, 2).Chunk(pages)

	// "Abcdefg." is 8 chars = 2.0 tokens, which does not exceed 2
	require.Len(t, chunks, 2)
	assert.Equal(t, "Abcdefgh.", chunks[0].Text)
	assert.Equal(t, 1, chunks[0].GroupIndex)
	assert.InDelta(t, 2.25, chunks[0].ApproxTokenCount, 1e-9)
	assert.Equal(t, "A much longer sentence about the caliper.", chunks[1].Text)
	assert.Equal(t, 3, chunks[1].GroupIndex)

	for _, ch := range chunks {
		assert.Greater(t, ch.ApproxTokenCount, 2.0)
	}
}

func TestChunk_NoQualifyingChunkIsDropped(t *testing.T) {
	pages := []models.PageRecord{
		page(0, numberedSentences("Left", 7)),
		page(1, numberedSentences("Right", 12)),
		page(2, nil),
	}
	c := New(4, 30)

	var expected int
	for _, ps := range c.SplitPages(pages) {
		for _, ch := range c.groupPage(ps) {
			if ch.ApproxTokenCount > 30 {
				expected++
			}
		}
	}

	assert.Len(t, c.Chunk(pages), expected)
	assert.Positive(t, expected)
}

func TestChunk_PreservesOrder(t *testing.T) {
	pages := []models.PageRecord{
		page(0, numberedSentences("Upper", 13)),
		page(1, numberedSentences("Lower", 21)),
	}

	chunks := New(5, 0).Chunk(pages)
	require.NotEmpty(t, chunks)

	lastPage, lastGroup := -1, -1
	offsets := map[int]int{}
	for _, ch := range chunks {
		if ch.PageNumber == lastPage {
			assert.Greater(t, ch.GroupIndex, lastGroup)
		} else {
			assert.Greater(t, ch.PageNumber, lastPage)
		}
		lastPage, lastGroup = ch.PageNumber, ch.GroupIndex

		// chunk text is a contiguous, in-order span of its page
		pageText := pages[ch.PageNumber].RawText
		idx := strings.Index(pageText[offsets[ch.PageNumber]:], ch.Text)
		require.GreaterOrEqual(t, idx, 0, "chunk %q out of order", ch.Text)
		offsets[ch.PageNumber] += idx + len(ch.Text)
	}
}

func TestChunk_Idempotent(t *testing.T) {
	pages := []models.PageRecord{
		page(0, numberedSentences("Brake", 17)),
		page(1, []string{"Lower ball joint nut torque is 175 Nm.Replace the cotter pin.", "Do  not reuse  the nut."}),
	}
	c := New(10, 5)

	first := c.Chunk(pages)
	second := New(10, 5).Chunk(pages)
	assert.Equal(t, first, second)
}

func TestChunk_Empty(t *testing.T) {
	assert.Empty(t, New(10, 30).Chunk(nil))
	assert.Empty(t, New(10, 30).Chunk([]models.PageRecord{{PageNumber: 0}}))
}

func TestJoinSentences(t *testing.T) {
	tests := []struct {
		name      string
		sentences []string
		expected  string
	}{
		{
			name:      "restores boundary space",
			sentences: []string{"Torque is 35 Nm.", "Check the nut."},
			expected:  "Torque is 35 Nm. Check the nut.",
		},
		{
			name:      "collapses double spaces",
			sentences: []string{"Torque  is 35 Nm.", " Check  the nut. "},
			expected:  "Torque is 35 Nm. Check the nut.",
		},
		{
			name:      "lower case after period untouched",
			sentences: []string{"Use part no.", "x12 only."},
			expected:  "Use part no.x12 only.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, JoinSentences(tt.sentences))
		})
	}
}

func TestNewPassageChunk(t *testing.T) {
	ch := NewPassageChunk("Tie-rod end nut torque is 115 Nm")
	assert.Equal(t, 32, ch.CharCount)
	assert.Equal(t, 7, ch.WordCount)
	assert.InDelta(t, 8.0, ch.ApproxTokenCount, 1e-9)
}

func TestChunk_CollapsedPage(t *testing.T) {
	sentences := numberedSentences("Front", 25)
	pages := []models.PageRecord{{
		SourceName: "manual.pdf",
		PageNumber: 0,
		RawText:    strings.Join(sentences, ""),
	}}

	c := New(10, 5)
	split := c.SplitPages(pages)
	require.Len(t, split, 1)
	require.Len(t, split[0].Sentences, 25)

	chunks := c.Chunk(pages)
	require.Len(t, chunks, 3)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.GroupIndex)
	}
	assert.Equal(t, strings.Join(sentences[:10], " "), chunks[0].Text)
	assert.Equal(t, strings.Join(sentences[20:], " "), chunks[2].Text)
}
