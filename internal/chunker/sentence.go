package chunker

import (
	"strings"
	"unicode"
)

// SentenceSplitter splits text into sentences
type SentenceSplitter interface {
	Split(text string) []string
}

// RuleSplitter is a rule-based, abbreviation-aware sentence splitter. A
// sentence ends at '.', '!' or '?' followed by whitespace and an upper-case
// letter, or at the end of the text. A period glued to a following upper-case
// letter ("nut.Remove") also ends a sentence when it closes a lower-case word,
// a number or a bracket.
type RuleSplitter struct {
	abbreviations map[string]bool
}

func NewSentenceSplitter() *RuleSplitter {
	return &RuleSplitter{abbreviations: manualAbbreviations()}
}

// Split returns the trimmed sentences of text in order.
func (s *RuleSplitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	var sentences []string
	var current strings.Builder
	runes := []rune(text)

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])

		if s.isSentenceEnd(runes, i) {
			// keep trailing quotes and brackets with the sentence they close
			for i+1 < len(runes) && isCloser(runes[i+1]) {
				i++
				current.WriteRune(runes[i])
			}
			flush()
		}
	}
	flush()

	return sentences
}

func (s *RuleSplitter) isSentenceEnd(runes []rune, pos int) bool {
	r := runes[pos]
	if r != '.' && r != '!' && r != '?' {
		return false
	}

	if r == '.' {
		wordStart := pos
		for wordStart > 0 && !unicode.IsSpace(runes[wordStart-1]) {
			wordStart--
		}
		if s.isAbbreviation(string(runes[wordStart:pos])) {
			return false
		}

		// decimals such as 3.5
		if pos > 0 && unicode.IsDigit(runes[pos-1]) &&
			pos+1 < len(runes) && unicode.IsDigit(runes[pos+1]) {
			return false
		}

		// ellipsis
		if pos+1 < len(runes) && runes[pos+1] == '.' {
			return false
		}

		// collapsed boundary left by extraction, e.g. "bolt.Install"
		if pos > 0 && pos+1 < len(runes) && unicode.IsUpper(runes[pos+1]) && closesWord(runes[pos-1]) {
			return true
		}
	}

	next := pos + 1
	for next < len(runes) && isCloser(runes[next]) {
		next++
	}
	if next >= len(runes) {
		return true
	}
	if !unicode.IsSpace(runes[next]) {
		return false
	}
	for next < len(runes) && unicode.IsSpace(runes[next]) {
		next++
	}
	if next >= len(runes) {
		return true
	}
	// a new sentence may open with a quote or bracket
	for next < len(runes) && (runes[next] == '"' || runes[next] == '(' || runes[next] == '\'') {
		next++
	}
	return next < len(runes) && unicode.IsUpper(runes[next])
}

func closesWord(r rune) bool {
	return unicode.IsLower(r) || unicode.IsDigit(r) || r == ')'
}

func isCloser(r rune) bool {
	return r == '"' || r == '\'' || r == ')' || r == ']' || r == '}'
}

func (s *RuleSplitter) isAbbreviation(word string) bool {
	word = strings.ToLower(strings.Trim(word, `"'(`))
	return s.abbreviations[word]
}

// manualAbbreviations lists abbreviations common in service manuals that end
// with a period but never close a sentence. Units such as mm or Nm are left
// out: in manuals they routinely end a sentence.
func manualAbbreviations() map[string]bool {
	return map[string]bool{
		"mr": true, "mrs": true, "ms": true, "dr": true,
		"inc": true, "corp": true, "co": true, "ltd": true,
		"vs": true, "etc": true, "i.e": true, "e.g": true, "cf": true,
		"approx": true, "fig": true, "figs": true, "no": true, "nos": true,
		"ref": true, "p": true, "pp": true, "pg": true,
		"sec": true, "ch": true, "vol": true, "assy": true, "qty": true,
		"lh": true, "rh": true, "incl": true,
		"u.s": true, "u.k": true, "jan": true, "feb": true, "mar": true,
		"apr": true, "jun": true, "jul": true, "aug": true, "sep": true,
		"sept": true, "oct": true, "nov": true, "dec": true,
	}
}
