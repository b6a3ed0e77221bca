package backend

import (
	"context"
	"math"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	ierrors "github.com/hrygo/subjectindex/internal/errors"
	"github.com/hrygo/subjectindex/plugin/corpus"
	"github.com/hrygo/subjectindex/plugin/project"
	"github.com/hrygo/subjectindex/plugin/suggest"
)

// Ensemble combines the suggestions of other projects.
//
// Parameters: sources ("proj-a:2,proj-b", weight defaults to 1) and
// aggregation (sum, mean or max).
type Ensemble struct {
	remoteBase
}

func newEnsemble(id string, params Params, p *project.Project) (Backend, error) {
	return &Ensemble{remoteBase{newBase("ensemble", id, Params{"aggregation": "sum"}, params, p)}}, nil
}

// Source is one weighted ensemble member.
type Source struct {
	ProjectID string
	Weight    float64
}

// ParseSources parses "a:2,b" into weighted sources.
func ParseSources(spec string) ([]Source, error) {
	var sources []Source
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, rawWeight, hasWeight := strings.Cut(part, ":")
		src := Source{ProjectID: strings.TrimSpace(id), Weight: 1}
		if src.ProjectID == "" {
			return nil, ierrors.Configuration("empty project id in sources %q", spec)
		}
		if hasWeight {
			w, err := strconv.ParseFloat(strings.TrimSpace(rawWeight), 64)
			if err != nil || w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, ierrors.Configuration("invalid weight %q for source %s", rawWeight, src.ProjectID)
			}
			src.Weight = w
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return nil, ierrors.Configuration("sources setting is missing")
	}
	return sources, nil
}

func (e *Ensemble) sources() ([]Source, suggest.Aggregation, error) {
	sources, err := ParseSources(e.params.String("sources", ""))
	if err != nil {
		return nil, 0, err
	}
	agg, err := suggest.ParseAggregation(e.params.String("aggregation", "sum"))
	if err != nil {
		return nil, 0, ierrors.Configuration("%s", err.Error())
	}
	return sources, agg, nil
}

// Suggest queries every member concurrently and waits for all of them.
// A member that cannot be resolved or returns nothing contributes no scores.
func (e *Ensemble) Suggest(ctx context.Context, text string) *suggest.Result {
	sources, agg, err := e.sources()
	if err != nil {
		e.logger.Warn("ensemble suggest skipped", "error", err)
		return suggest.Empty()
	}
	if e.project.Sources == nil {
		e.logger.Warn("ensemble has no source resolver")
		return suggest.Empty()
	}

	inputs := make([]suggest.WeightedResult, len(sources))
	var g errgroup.Group
	for i, src := range sources {
		inputs[i].Weight = src.Weight
		g.Go(func() error {
			member, err := e.project.Sources.ResolveSource(src.ProjectID)
			if err != nil {
				e.logger.Warn("ensemble source unavailable", "source", src.ProjectID, "error", err)
				return nil
			}
			inputs[i].Result = member.Suggest(ctx, text)
			return nil
		})
	}
	_ = g.Wait()

	return suggest.Combine(inputs, agg, e.limit())
}

func (e *Ensemble) Train(context.Context, corpus.Corpus) error {
	return e.notSupported("training")
}

func (e *Ensemble) Learn(context.Context, corpus.Corpus) error {
	return e.notSupported("learning")
}
