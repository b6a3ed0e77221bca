package project

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/subjectindex/plugin/suggest"
)

type staticSources map[string]suggest.Suggester

func (s staticSources) ResolveSource(id string) (suggest.Suggester, error) {
	return s[id], nil
}

func TestNew_Defaults(t *testing.T) {
	p := New("yso-en", "en-GB")

	assert.Equal(t, "yso-en", p.ID)
	assert.Equal(t, "yso-en", p.Name)
	assert.Equal(t, "en", p.Language)
	assert.NotNil(t, p.Analyzer)
	assert.NotNil(t, p.Logger)
	assert.Equal(t, 0, p.Vocabulary.Len())
	assert.Nil(t, p.Store)
}

func TestNew_Options(t *testing.T) {
	vocab := suggest.NewVocabulary([]suggest.Subject{{URI: "http://example.org/a", Label: "a"}})
	sources := staticSources{"other": suggest.SuggesterFunc(func(context.Context, string) *suggest.Result {
		return suggest.Empty()
	})}

	p := New("p", "fi", WithName("Finnish"), WithVocabulary(vocab), WithSources(sources))

	assert.Equal(t, "Finnish", p.Name)
	assert.Equal(t, 1, p.Vocabulary.Len())
	s, err := p.Sources.ResolveSource("other")
	assert.NoError(t, err)
	assert.NotNil(t, s)
}

func TestNew_InvalidLanguageKept(t *testing.T) {
	p := New("p", "not a language")
	assert.Equal(t, "not a language", p.Language)
}
