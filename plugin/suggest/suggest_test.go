package suggest

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subj(uri string) Subject {
	return Subject{URI: "http://example.org/" + uri, Label: uri}
}

func hit(uri string, score float64) Hit {
	return Hit{Subject: subj(uri), Score: score}
}

func assertCanonical(t *testing.T, r *Result, limit int) {
	t.Helper()
	if limit > 0 {
		assert.LessOrEqual(t, r.Len(), limit)
	}
	seen := make(map[string]bool)
	for i := 0; i < r.Len(); i++ {
		h := r.At(i)
		assert.False(t, seen[h.Subject.URI], "duplicate subject %s", h.Subject.URI)
		seen[h.Subject.URI] = true
		if i > 0 {
			assert.GreaterOrEqual(t, r.At(i-1).Score, h.Score)
		}
	}
}

func TestNewResult_Canonical(t *testing.T) {
	r := NewResult([]Hit{
		hit("b", 0.2),
		hit("a", 0.9),
		hit("b", 0.7),
		hit("c", 0.0),
		hit("d", -0.1),
	}, 10)

	assertCanonical(t, r, 10)
	assert.Equal(t, []string{
		"http://example.org/a",
		"http://example.org/b",
		"http://example.org/c",
		"http://example.org/d",
	}, r.URIs())

	score, ok := r.Score("http://example.org/b")
	require.True(t, ok)
	assert.Equal(t, 0.7, score)

	// zero and negative scores are kept by the container
	_, ok = r.Score("http://example.org/d")
	assert.True(t, ok)
}

func TestNewResult_LimitAppliedLast(t *testing.T) {
	r := NewResult([]Hit{
		hit("low", 0.1),
		hit("high", 0.5),
		hit("high", 0.95),
		hit("mid", 0.4),
	}, 2)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"http://example.org/high", "http://example.org/mid"}, r.URIs())
	assert.Equal(t, 0.95, r.At(0).Score)
}

func TestNewResult_TiesBreakByURI(t *testing.T) {
	r := NewResult([]Hit{hit("z", 0.5), hit("a", 0.5), hit("m", 0.5)}, 0)
	assert.Equal(t, []string{"http://example.org/a", "http://example.org/m", "http://example.org/z"}, r.URIs())
}

func TestNewResult_RandomizedInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		n := rng.Intn(40)
		hits := make([]Hit, n)
		for i := range hits {
			hits[i] = hit(fmt.Sprintf("s%d", rng.Intn(15)), rng.Float64())
		}
		limit := rng.Intn(10) + 1
		assertCanonical(t, NewResult(hits, limit), limit)
	}
}

func TestMergePolicies(t *testing.T) {
	hits := []Hit{hit("a", 0.5), hit("a", 0.5)}

	tests := []struct {
		policy   MergePolicy
		expected float64
	}{
		{MergeMax, 0.5},
		{MergeSum, 1.0},
		{MergeConflate, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			r := NewResultWithPolicy(hits, 10, tt.policy)
			require.Equal(t, 1, r.Len())
			assert.InDelta(t, tt.expected, r.At(0).Score, 1e-9)
		})
	}
}

func TestConflate_NeverBelowLargerInput(t *testing.T) {
	for _, pair := range [][2]float64{{0.1, 0.9}, {0.5, 0.5}, {1, 0}, {0, 0}, {0.3, 0.31}} {
		c := conflate(pair[0], pair[1])
		assert.GreaterOrEqual(t, c+1e-12, max(pair[0], pair[1]), "%v", pair)
		assert.LessOrEqual(t, c, 1.0)
	}
}

func TestParseMergePolicy(t *testing.T) {
	p, err := ParseMergePolicy("")
	require.NoError(t, err)
	assert.Equal(t, MergeMax, p)

	p, err = ParseMergePolicy("SUM")
	require.NoError(t, err)
	assert.Equal(t, MergeSum, p)

	_, err = ParseMergePolicy("median")
	assert.Error(t, err)
}

func TestResult_Filter(t *testing.T) {
	r := NewResult([]Hit{hit("a", 0.9), hit("b", 0.5), hit("c", 0.1)}, 0)

	assert.Equal(t, []string{"http://example.org/a", "http://example.org/b"}, r.Filter(0.5, 0).URIs())
	assert.Equal(t, []string{"http://example.org/a"}, r.Filter(0, 1).URIs())

	var nilResult *Result
	assert.True(t, nilResult.Filter(0, 0).IsEmpty())
	assert.Equal(t, 0, nilResult.Len())
}

func TestResult_HitsIsCopy(t *testing.T) {
	r := NewResult([]Hit{hit("a", 0.9)}, 0)
	hits := r.Hits()
	hits[0].Score = 0
	assert.Equal(t, 0.9, r.At(0).Score)
}

func TestCombine_AdditiveEqualWeights(t *testing.T) {
	first := NewResult([]Hit{hit("A", 0.8)}, 10)
	second := NewResult([]Hit{hit("A", 0.2), hit("B", 0.5)}, 10)

	combined := Combine([]WeightedResult{
		{Result: first, Weight: 1},
		{Result: second, Weight: 1},
	}, AggregateSum, 10)

	require.Equal(t, 2, combined.Len())
	assert.Equal(t, "http://example.org/A", combined.At(0).Subject.URI)
	assert.InDelta(t, 1.0, combined.At(0).Score, 1e-9)
	assert.Equal(t, "http://example.org/B", combined.At(1).Subject.URI)
	assert.InDelta(t, 0.5, combined.At(1).Score, 1e-9)
}

func TestCombine_Aggregations(t *testing.T) {
	inputs := []WeightedResult{
		{Result: NewResult([]Hit{hit("A", 0.8)}, 0), Weight: 3},
		{Result: NewResult([]Hit{hit("A", 0.2), hit("B", 0.5)}, 0), Weight: 1},
	}

	mean := Combine(inputs, AggregateMean, 0)
	score, _ := mean.Score("http://example.org/A")
	assert.InDelta(t, (3*0.8+0.2)/4, score, 1e-9)
	score, _ = mean.Score("http://example.org/B")
	assert.InDelta(t, 0.5/4, score, 1e-9)

	maxed := Combine(inputs, AggregateMax, 0)
	score, _ = maxed.Score("http://example.org/A")
	assert.InDelta(t, 2.4, score, 1e-9)
}

func TestCombine_EmptyMembersDegradeGracefully(t *testing.T) {
	combined := Combine([]WeightedResult{
		{Result: Empty(), Weight: 1},
		{Result: nil, Weight: 1},
		{Result: NewResult([]Hit{hit("A", 0.4), hit("B", 0.6), hit("C", 0.1)}, 0), Weight: 1},
	}, AggregateSum, 2)

	assertCanonical(t, combined, 2)
	assert.Equal(t, []string{"http://example.org/B", "http://example.org/A"}, combined.URIs())

	assert.True(t, Combine(nil, AggregateSum, 10).IsEmpty())
}

func TestParseAggregation(t *testing.T) {
	a, err := ParseAggregation("")
	require.NoError(t, err)
	assert.Equal(t, AggregateSum, a)

	a, err = ParseAggregation("mean")
	require.NoError(t, err)
	assert.Equal(t, AggregateMean, a)

	_, err = ParseAggregation("product")
	assert.Error(t, err)
}

func TestVocabulary(t *testing.T) {
	vocab := NewVocabulary([]Subject{
		{URI: "http://example.org/a", Label: "Apple  Trees"},
		{URI: "http://example.org/a", Label: "duplicate"},
		{URI: "", Label: "no uri"},
		{URI: "http://example.org/b", Label: "banana", Notation: "B1"},
	})

	assert.Equal(t, 2, vocab.Len())

	s, ok := vocab.ByURI("http://example.org/b")
	require.True(t, ok)
	assert.Equal(t, "B1", s.Notation)

	s, ok = vocab.ByLabel("apple trees")
	require.True(t, ok)
	assert.Equal(t, "http://example.org/a", s.URI)

	_, ok = vocab.ByLabel("duplicate")
	assert.False(t, ok)

	var nilVocab *Vocabulary
	assert.Equal(t, 0, nilVocab.Len())
	_, ok = nilVocab.ByURI("x")
	assert.False(t, ok)
}

func TestSuggesterFunc(t *testing.T) {
	var s Suggester = SuggesterFunc(func(_ context.Context, text string) *Result {
		return NewResult([]Hit{hit(text, 1)}, 1)
	})
	assert.Equal(t, []string{"http://example.org/x"}, s.Suggest(context.Background(), "x").URIs())
}
