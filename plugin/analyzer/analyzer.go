// Package analyzer splits text into sentences and words.
package analyzer

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	ierrors "github.com/hrygo/subjectindex/internal/errors"
)

// Analyzer tokenizes text for backends and transforms.
type Analyzer interface {
	TokenizeSentences(text string) []string
	TokenizeWords(text string) []string
}

// sentenceEnd matches terminal punctuation followed by whitespace.
var sentenceEnd = regexp.MustCompile(`([.!?…。！？]+["')\]]*)\s+`)

// Simple is a punctuation-driven analyzer. Words shorter than MinTokenLength
// runes are dropped and words are lowercased.
type Simple struct {
	MinTokenLength int
}

// NewSimple creates the default analyzer.
func NewSimple() *Simple {
	return &Simple{MinTokenLength: 3}
}

// New creates an analyzer from a project setting: "simple" or
// "simple(n)" where n is the minimum word length. Empty means simple.
func New(spec string) (Analyzer, error) {
	spec = strings.TrimSpace(spec)
	name, arg, hasArg := strings.Cut(spec, "(")
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "simple":
	default:
		return nil, ierrors.Configuration("unknown analyzer %q", spec)
	}

	a := NewSimple()
	if hasArg {
		arg, ok := strings.CutSuffix(strings.TrimSpace(arg), ")")
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if !ok || err != nil || n < 1 {
			return nil, ierrors.Configuration("invalid analyzer %q: expected simple(n) with n >= 1", spec)
		}
		a.MinTokenLength = n
	}
	return a, nil
}

// TokenizeSentences splits on terminal punctuation and blank lines.
func (a *Simple) TokenizeSentences(text string) []string {
	var sentences []string
	for _, paragraph := range splitParagraphs(text) {
		marked := sentenceEnd.ReplaceAllString(paragraph, "$1\x00")
		for _, s := range strings.Split(marked, "\x00") {
			if s = strings.TrimSpace(s); s != "" {
				sentences = append(sentences, s)
			}
		}
	}
	return sentences
}

func splitParagraphs(text string) []string {
	lines := strings.Split(text, "\n")
	var paragraphs []string
	var current []string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				paragraphs = append(paragraphs, strings.Join(current, " "))
				current = nil
			}
			continue
		}
		current = append(current, strings.TrimSpace(line))
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, strings.Join(current, " "))
	}
	return paragraphs
}

// TokenizeWords returns lowercased alphanumeric words.
func (a *Simple) TokenizeWords(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '-'
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if utf8.RuneCountInString(f) < a.MinTokenLength {
			continue
		}
		words = append(words, strings.ToLower(f))
	}
	return words
}
