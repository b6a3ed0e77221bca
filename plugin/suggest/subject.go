// Package suggest holds the normalized, ranked suggestion representation that
// every backend produces, the subject vocabulary it refers to, and the
// combiner used by ensembles.
package suggest

import (
	"context"
	"strings"
)

// Subject is one concept of the controlled vocabulary.
type Subject struct {
	URI      string `json:"uri"`
	Label    string `json:"label"`
	Notation string `json:"notation,omitempty"`
}

// Vocabulary is an immutable subject index with lookup by URI and label.
type Vocabulary struct {
	subjects []Subject
	byURI    map[string]int
	byLabel  map[string]int
}

// NewVocabulary builds a vocabulary. Later duplicates of a URI are ignored.
func NewVocabulary(subjects []Subject) *Vocabulary {
	v := &Vocabulary{
		subjects: make([]Subject, 0, len(subjects)),
		byURI:    make(map[string]int, len(subjects)),
		byLabel:  make(map[string]int, len(subjects)),
	}
	for _, s := range subjects {
		if s.URI == "" {
			continue
		}
		if _, exists := v.byURI[s.URI]; exists {
			continue
		}
		idx := len(v.subjects)
		v.subjects = append(v.subjects, s)
		v.byURI[s.URI] = idx
		if key := normalizeLabel(s.Label); key != "" {
			if _, exists := v.byLabel[key]; !exists {
				v.byLabel[key] = idx
			}
		}
	}
	return v
}

// Len returns the number of subjects.
func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.subjects)
}

// Subjects returns a copy of all subjects in load order.
func (v *Vocabulary) Subjects() []Subject {
	if v == nil {
		return nil
	}
	out := make([]Subject, len(v.subjects))
	copy(out, v.subjects)
	return out
}

// ByURI looks up a subject by URI.
func (v *Vocabulary) ByURI(uri string) (Subject, bool) {
	if v == nil {
		return Subject{}, false
	}
	idx, ok := v.byURI[uri]
	if !ok {
		return Subject{}, false
	}
	return v.subjects[idx], true
}

// ByLabel looks up a subject by label, case-insensitively.
func (v *Vocabulary) ByLabel(label string) (Subject, bool) {
	if v == nil {
		return Subject{}, false
	}
	idx, ok := v.byLabel[normalizeLabel(label)]
	if !ok {
		return Subject{}, false
	}
	return v.subjects[idx], true
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}

// Suggester is anything that can turn text into a suggestion result.
// Implementations must not return nil and must not fail: internal failures
// degrade to an empty result.
type Suggester interface {
	Suggest(ctx context.Context, text string) *Result
}

// SuggesterFunc adapts a function to the Suggester interface.
type SuggesterFunc func(ctx context.Context, text string) *Result

// Suggest calls f(ctx, text).
func (f SuggesterFunc) Suggest(ctx context.Context, text string) *Result {
	return f(ctx, text)
}
