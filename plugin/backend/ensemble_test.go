package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierrors "github.com/hrygo/subjectindex/internal/errors"
	"github.com/hrygo/subjectindex/plugin/project"
	"github.com/hrygo/subjectindex/plugin/suggest"
)

func subjectHit(name string, score float64) suggest.Hit {
	return suggest.Hit{Subject: suggest.Subject{URI: "http://example.org/" + name, Label: name}, Score: score}
}

func TestParseSources(t *testing.T) {
	sources, err := ParseSources(" first:2 , second")
	require.NoError(t, err)
	assert.Equal(t, []Source{{ProjectID: "first", Weight: 2}, {ProjectID: "second", Weight: 1}}, sources)

	for _, spec := range []string{"", ":2", "a:heavy", "a:-1", "a:NaN", "a:Inf", "a:-Inf"} {
		_, err := ParseSources(spec)
		assert.True(t, ierrors.IsCode(err, ierrors.ErrCodeConfiguration), spec)
	}
}

func TestEnsemble_Suggest(t *testing.T) {
	sources := staticSources{
		"first":  fixed(subjectHit("A", 0.8)),
		"second": fixed(subjectHit("A", 0.2), subjectHit("B", 0.5)),
	}
	b, err := NewRegistry().New("ensemble", "ensemble", Params{"sources": "first,second"}, newTestProject(project.WithSources(sources)))
	require.NoError(t, err)

	result := b.Suggest(context.Background(), "text")

	require.Equal(t, 2, result.Len())
	assert.Equal(t, "http://example.org/A", result.At(0).Subject.URI)
	assert.InDelta(t, 1.0, result.At(0).Score, 1e-9)
	assert.Equal(t, "http://example.org/B", result.At(1).Subject.URI)
	assert.InDelta(t, 0.5, result.At(1).Score, 1e-9)
}

func TestEnsemble_MissingSourceDegrades(t *testing.T) {
	sources := staticSources{"first": fixed(subjectHit("A", 0.8))}
	b, err := NewRegistry().New("ensemble", "ensemble", Params{"sources": "first:0.5,gone"}, newTestProject(project.WithSources(sources)))
	require.NoError(t, err)

	result := b.Suggest(context.Background(), "text")

	require.Equal(t, 1, result.Len())
	assert.InDelta(t, 0.4, result.At(0).Score, 1e-9)
}

func TestEnsemble_Misconfigured(t *testing.T) {
	ctx := context.Background()

	noSources, err := NewRegistry().New("ensemble", "ensemble", nil, newTestProject(project.WithSources(staticSources{})))
	require.NoError(t, err)
	assert.True(t, noSources.Suggest(ctx, "text").IsEmpty())

	noResolver, err := NewRegistry().New("ensemble", "ensemble", Params{"sources": "a"}, newTestProject())
	require.NoError(t, err)
	assert.True(t, noResolver.Suggest(ctx, "text").IsEmpty())

	badAggregation, err := NewRegistry().New("ensemble", "ensemble", Params{"sources": "a", "aggregation": "median"},
		newTestProject(project.WithSources(staticSources{"a": fixed(subjectHit("A", 1))})))
	require.NoError(t, err)
	assert.True(t, badAggregation.Suggest(ctx, "text").IsEmpty())

	assert.True(t, ierrors.IsCode(noSources.Train(ctx, documentCorpus()), ierrors.ErrCodeNotSupported))
}
