package prompt

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"vehicle-spec-rag/internal/models"
)

//go:embed examples.yaml
var examplesYAML []byte

// Example is a worked query/answer pair shown to the model.
type Example struct {
	Query  string      `yaml:"query"`
	Answer models.Spec `yaml:"answer"`
}

// AnswerJSON is the answer exactly as it appears in the prompt.
func (e Example) AnswerJSON() string {
	b, _ := json.MarshalIndent(e.Answer, "", "    ")
	return string(b)
}

var defaultAssembler = mustNewAssembler(examplesYAML)

// Assembler renders prompts around a fixed bank of examples.
type Assembler struct {
	examples []Example
	rendered string
}

// NewAssembler parses a YAML list of examples. The bank is rendered once.
func NewAssembler(data []byte) (*Assembler, error) {
	var examples []Example
	if err := yaml.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("failed to parse examples: %w", err)
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("example bank is empty")
	}

	blocks := make([]string, len(examples))
	for i, ex := range examples {
		if ex.Query == "" || ex.Answer.Component == "" {
			return nil, fmt.Errorf("example %d is incomplete", i+1)
		}
		blocks[i] = fmt.Sprintf("Example %d:\nQuery: %s\nAnswer: %s", i+1, ex.Query, ex.AnswerJSON())
	}
	return &Assembler{examples: examples, rendered: strings.Join(blocks, "\n\n")}, nil
}

func mustNewAssembler(data []byte) *Assembler {
	a, err := NewAssembler(data)
	if err != nil {
		panic(err)
	}
	return a
}

// Examples returns a copy of the example bank.
func (a *Assembler) Examples() []Example {
	return append([]Example(nil), a.examples...)
}

// Build renders the prompt for query with passages as bullet lines in the
// given order. No passages leave the context region empty.
func (a *Assembler) Build(query string, passages []string) string {
	return fmt.Sprintf(models.SpecPromptTemplate, a.rendered, formatContext(passages), query)
}

func formatContext(passages []string) string {
	if len(passages) == 0 {
		return ""
	}
	return "- " + strings.Join(passages, "\n- ")
}

// Build renders a prompt with the built-in example bank.
func Build(query string, passages []string) string {
	return defaultAssembler.Build(query, passages)
}

// Examples returns the built-in example bank.
func Examples() []Example {
	return defaultAssembler.Examples()
}
