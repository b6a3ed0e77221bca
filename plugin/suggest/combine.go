package suggest

import (
	"fmt"
	"strings"
)

// Aggregation selects how per-source scores are combined for one subject.
type Aggregation int

const (
	// AggregateSum adds weight*score over all sources (absent counts as 0).
	AggregateSum Aggregation = iota
	// AggregateMean divides the weighted sum by the total weight.
	AggregateMean
	// AggregateMax keeps the largest weighted score.
	AggregateMax
)

// String returns the aggregation name.
func (a Aggregation) String() string {
	switch a {
	case AggregateSum:
		return "sum"
	case AggregateMean:
		return "mean"
	case AggregateMax:
		return "max"
	default:
		return "unknown"
	}
}

// ParseAggregation parses "sum", "mean" or "max". Empty means sum.
func ParseAggregation(s string) (Aggregation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sum":
		return AggregateSum, nil
	case "mean", "avg", "average":
		return AggregateMean, nil
	case "max":
		return AggregateMax, nil
	default:
		return AggregateSum, fmt.Errorf("unknown aggregation %q", s)
	}
}

// WeightedResult is one source's result together with its weight.
type WeightedResult struct {
	Result *Result
	Weight float64
}

type accumulated struct {
	subject Subject
	sum     float64
	max     float64
	order   int
}

// Combine merges the results of several sources into one canonical result.
// Sources with empty or nil results contribute nothing.
func Combine(inputs []WeightedResult, agg Aggregation, limit int) *Result {
	acc := make(map[string]*accumulated)
	totalWeight := 0.0

	for _, in := range inputs {
		totalWeight += in.Weight
		if in.Result == nil {
			continue
		}
		for _, h := range in.Result.hits {
			weighted := in.Weight * h.Score
			a, ok := acc[h.Subject.URI]
			if !ok {
				acc[h.Subject.URI] = &accumulated{
					subject: h.Subject,
					sum:     weighted,
					max:     weighted,
					order:   len(acc),
				}
				continue
			}
			a.sum += weighted
			if weighted > a.max {
				a.max = weighted
			}
		}
	}

	if len(acc) == 0 {
		return Empty()
	}

	hits := make([]Hit, len(acc))
	for _, a := range acc {
		score := a.sum
		switch agg {
		case AggregateMean:
			if totalWeight > 0 {
				score = a.sum / totalWeight
			}
		case AggregateMax:
			score = a.max
		}
		hits[a.order] = Hit{Subject: a.subject, Score: score}
	}

	sortHits(hits)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return &Result{hits: hits}
}
