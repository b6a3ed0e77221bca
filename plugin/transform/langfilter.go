package transform

import (
	"strconv"
	"strings"
	"unicode/utf8"

	ierrors "github.com/hrygo/subjectindex/internal/errors"
	"github.com/hrygo/subjectindex/plugin/analyzer"
	"github.com/hrygo/subjectindex/plugin/langdetect"
	"github.com/hrygo/subjectindex/plugin/project"
)

const (
	DefaultTextMinLength     = 500
	DefaultSentenceMinLength = 50
)

// LanguageFilter drops sentences detected to be in a language other than
// the project language. Lengths are counted in characters.
type LanguageFilter struct {
	Language          string
	Analyzer          analyzer.Analyzer
	Detector          langdetect.Detector
	TextMinLength     int
	SentenceMinLength int
}

// NewLanguageFilter creates a filter with the default thresholds.
func NewLanguageFilter(p *project.Project, detector langdetect.Detector) *LanguageFilter {
	a := p.Analyzer
	if a == nil {
		a = analyzer.NewSimple()
	}
	return &LanguageFilter{
		Language:          p.Language,
		Analyzer:          a,
		Detector:          detector,
		TextMinLength:     DefaultTextMinLength,
		SentenceMinLength: DefaultSentenceMinLength,
	}
}

func newLanguageFilter(p *project.Project, args Args, deps *Dependencies) (Transform, error) {
	if p == nil {
		return nil, ierrors.Configuration("filter_lang requires a project")
	}
	f := NewLanguageFilter(p, deps.Detector)

	var err error
	if f.TextMinLength, err = intArg(args, "text_min_length", 0, DefaultTextMinLength); err != nil {
		return nil, err
	}
	if f.SentenceMinLength, err = intArg(args, "sentence_min_length", 1, DefaultSentenceMinLength); err != nil {
		return nil, err
	}
	return f, nil
}

func intArg(args Args, key string, index, def int) (int, error) {
	raw, ok := args.arg(key, index)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, ierrors.Configuration("%s must be a non-negative integer, got %q", key, raw)
	}
	return n, nil
}

func (f *LanguageFilter) Name() string { return "filter_lang" }

func (f *LanguageFilter) Transform(text string) string {
	if utf8.RuneCountInString(text) < f.TextMinLength {
		return text
	}

	sentences := f.Analyzer.TokenizeSentences(text)
	retained := make([]string, 0, len(sentences))
	for _, sentence := range sentences {
		if utf8.RuneCountInString(sentence) < f.SentenceMinLength {
			retained = append(retained, sentence)
			continue
		}
		detected, ok := f.Detector.Detect(sentence)
		if !ok || langdetect.Same(detected, f.Language) {
			retained = append(retained, sentence)
		}
	}
	return strings.Join(retained, " ")
}
