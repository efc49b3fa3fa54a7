// Package catalog loads and serves the ordered list of survey questions.
// The catalog is immutable after load; sessions track their own position
// in it, so concurrent users never disturb each other's question order.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Question is a single multiple-choice survey question.
type Question struct {
	Text     string   `json:"question"`
	Options  []string `json:"options"`
	Multiple bool     `json:"multiple,omitempty"`
}

// Catalog is a read-only ordered sequence of questions.
type Catalog struct {
	questions []Question
}

// New builds a catalog from the given questions after validating them.
func New(questions []Question) (*Catalog, error) {
	for i, q := range questions {
		if err := validate(q); err != nil {
			return nil, fmt.Errorf("catalog: question %d: %w", i, err)
		}
	}
	owned := make([]Question, len(questions))
	copy(owned, questions)
	return &Catalog{questions: owned}, nil
}

// Load reads the question catalog from a JSON file.
// The file holds an ordered array of {"question", "options", "multiple"} objects.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return New(questions)
}

func validate(q Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("empty question text")
	}
	if len(q.Options) == 0 {
		return fmt.Errorf("question %q has no options", q.Text)
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("question %q has an empty option label", q.Text)
		}
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("question %q has duplicate option %q", q.Text, opt)
		}
		// Double-underscore labels are reserved for conversation control
		// tokens and would never reach the answer log.
		if strings.HasPrefix(opt, "__") {
			return fmt.Errorf("question %q option %q uses a reserved label prefix", q.Text, opt)
		}
		seen[opt] = struct{}{}
	}
	return nil
}

// Len returns the number of questions in the catalog.
func (c *Catalog) Len() int {
	return len(c.questions)
}

// At returns the question at index i, or ok=false when i is past the end.
// A false return is the exhaustion signal for the conversation engine.
func (c *Catalog) At(i int) (Question, bool) {
	if i < 0 || i >= len(c.questions) {
		return Question{}, false
	}
	return c.questions[i], true
}

// HasOption reports whether label is one of the question's options.
func (q Question) HasOption(label string) bool {
	for _, opt := range q.Options {
		if opt == label {
			return true
		}
	}
	return false
}
