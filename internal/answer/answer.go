package answer

import (
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"

	"vehicle-spec-rag/internal/models"
)

var thinkRe = regexp.MustCompile(models.ThinkTag)

// Parse validates a raw completion into an Answer. It never fails: a reply
// that is not JSON comes back as the error payload carrying the cleaned text.
//
// Several top-level JSON values written back to back are collected into an
// array, the same shape as a reply that used an array in the first place.
// Replies from reasoning models that open with a <think> block are decoded
// from the text after it; the error payload still carries the reply as
// cleaned by Clean, block included.
func Parse(raw string) models.Answer {
	cleaned := Clean(raw)
	value, err := decode(cleaned)
	if err != nil && thinkRe.MatchString(raw) {
		value, err = decode(Clean(thinkRe.ReplaceAllString(raw, "")))
	}
	if err != nil {
		return models.Answer{Malformed: &models.ErrorPayload{
			Error:       models.MalformedAnswerMessage,
			RawResponse: cleaned,
		}}
	}
	return models.Answer{Value: value}
}

// Clean trims the reply and strips a ```json or ``` opening fence and a
// closing ``` fence.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func decode(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var values []any
	for {
		var v any
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	switch len(values) {
	case 0:
		return nil, io.ErrUnexpectedEOF
	case 1:
		return values[0], nil
	default:
		return values, nil
	}
}
