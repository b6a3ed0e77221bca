package suggest

import (
	"fmt"
	"sort"
	"strings"
)

// Hit is one (subject, score) candidate.
type Hit struct {
	Subject Subject `json:"subject"`
	Score   float64 `json:"score"`
}

// MergePolicy decides how duplicate subjects within one hit list are merged.
type MergePolicy int

const (
	// MergeMax keeps the highest score observed for a subject.
	MergeMax MergePolicy = iota
	// MergeSum adds up all scores observed for a subject.
	MergeSum
	// MergeConflate combines scores so that the result is never below the
	// larger input and approaches 1 as evidence accumulates.
	MergeConflate
)

// String returns the policy name.
func (p MergePolicy) String() string {
	switch p {
	case MergeMax:
		return "max"
	case MergeSum:
		return "sum"
	case MergeConflate:
		return "conflate"
	default:
		return "unknown"
	}
}

// ParseMergePolicy parses "max", "sum" or "conflate". Empty means max.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "max":
		return MergeMax, nil
	case "sum":
		return MergeSum, nil
	case "conflate":
		return MergeConflate, nil
	default:
		return MergeMax, fmt.Errorf("unknown merge policy %q", s)
	}
}

func (p MergePolicy) merge(old, score float64) float64 {
	switch p {
	case MergeSum:
		return old + score
	case MergeConflate:
		return conflate(old, score)
	default:
		if score > old {
			return score
		}
		return old
	}
}

func conflate(a, b float64) float64 {
	a = clamp01(a)/2 + 0.5
	b = clamp01(b)/2 + 0.5
	c := a * b / (a*b + (1-a)*(1-b))
	return (c - 0.5) * 2
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Result is the canonical suggestion list: sorted by non-increasing score,
// one hit per subject, at most limit hits. A Result is immutable.
type Result struct {
	hits []Hit
}

// Empty returns a result without hits.
func Empty() *Result {
	return &Result{}
}

// NewResult canonicalizes hits with the default MergeMax policy.
// A limit <= 0 disables truncation.
func NewResult(hits []Hit, limit int) *Result {
	return NewResultWithPolicy(hits, limit, MergeMax)
}

// NewResultWithPolicy canonicalizes hits: duplicates are merged with policy,
// then hits are sorted by score (ties by URI) and truncated to limit.
func NewResultWithPolicy(hits []Hit, limit int, policy MergePolicy) *Result {
	if len(hits) == 0 {
		return Empty()
	}

	index := make(map[string]int, len(hits))
	merged := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if h.Subject.URI == "" {
			continue
		}
		if i, ok := index[h.Subject.URI]; ok {
			merged[i].Score = policy.merge(merged[i].Score, h.Score)
			continue
		}
		index[h.Subject.URI] = len(merged)
		merged = append(merged, h)
	}

	sortHits(merged)

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return &Result{hits: merged}
}

// sortHits sorts by score descending, then URI ascending for determinism.
func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Subject.URI < hits[j].Subject.URI
	})
}

// Len returns the number of hits.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.hits)
}

// IsEmpty reports whether the result has no hits.
func (r *Result) IsEmpty() bool {
	return r.Len() == 0
}

// At returns the i-th hit.
func (r *Result) At(i int) Hit {
	return r.hits[i]
}

// Hits returns a copy of the hits in rank order.
func (r *Result) Hits() []Hit {
	if r == nil {
		return nil
	}
	out := make([]Hit, len(r.hits))
	copy(out, r.hits)
	return out
}

// URIs returns the subject URIs in rank order.
func (r *Result) URIs() []string {
	if r == nil {
		return nil
	}
	uris := make([]string, len(r.hits))
	for i, h := range r.hits {
		uris[i] = h.Subject.URI
	}
	return uris
}

// Score returns the score of uri and whether it is present.
func (r *Result) Score(uri string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	for _, h := range r.hits {
		if h.Subject.URI == uri {
			return h.Score, true
		}
	}
	return 0, false
}

// Filter returns hits with score >= minScore, at most limit of them.
func (r *Result) Filter(minScore float64, limit int) *Result {
	if r == nil {
		return Empty()
	}
	out := make([]Hit, 0, len(r.hits))
	for _, h := range r.hits {
		if limit > 0 && len(out) >= limit {
			break
		}
		if h.Score >= minScore {
			out = append(out, h)
		}
	}
	return &Result{hits: out}
}
