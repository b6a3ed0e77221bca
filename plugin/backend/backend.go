// Package backend defines the contract shared by all subject indexing
// algorithms and the built-in backend variants.
//
// Suggest never fails: on any internal problem a backend logs a warning
// and returns an empty result. Train and Learn report configuration,
// support and remote failures as typed errors from internal/errors.
package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	ierrors "github.com/hrygo/subjectindex/internal/errors"
	"github.com/hrygo/subjectindex/internal/observability"
	"github.com/hrygo/subjectindex/plugin/corpus"
	"github.com/hrygo/subjectindex/plugin/project"
	"github.com/hrygo/subjectindex/plugin/suggest"
	"github.com/hrygo/subjectindex/store"
)

// Backend is one configured algorithm instance owned by a project.
type Backend interface {
	// ID is the configured instance identifier.
	ID() string
	// Name is the variant identifier ("dummy", "maui", ...).
	Name() string
	// Params are the variant defaults merged with the configuration.
	Params() Params

	Suggest(ctx context.Context, text string) *suggest.Result
	Train(ctx context.Context, c corpus.Corpus) error
	Learn(ctx context.Context, c corpus.Corpus) error

	IsTrained(ctx context.Context) bool
	// ModificationTime is the last time the model changed; zero if unknown.
	ModificationTime(ctx context.Context) time.Time
}

// modelStateName is the backend_state row holding an in-process model.
const modelStateName = "model"

// base carries what every variant needs.
type base struct {
	id      string
	name    string
	params  Params
	project *project.Project
	logger  *slog.Logger
}

func newBase(name, id string, defaults, config Params, p *project.Project) base {
	if p == nil {
		p = project.New("", "")
	}
	return base{
		id:      id,
		name:    name,
		params:  Params{"limit": "100"}.Merge(defaults).Merge(config),
		project: p,
		logger:  observability.BackendLogger(p.Logger, p.ID, id),
	}
}

func (b *base) ID() string     { return b.id }
func (b *base) Name() string   { return b.name }
func (b *base) Params() Params { return b.params }

// limit is the configured limit, falling back to the default when invalid.
func (b *base) limit() int {
	limit, err := b.params.Limit()
	if err != nil {
		b.logger.Warn("invalid limit, using default", "error", err)
		return DefaultLimit
	}
	return limit
}

func (b *base) operation(name string) *observability.OperationContext {
	return observability.NewOperationContext(b.project.Logger, name, b.project.ID, b.id)
}

func (b *base) stateKey() *store.FindBackendState {
	return &store.FindBackendState{ProjectID: b.project.ID, BackendID: b.id, Name: modelStateName}
}

// modelState returns the persisted model of this backend, if any.
func (b *base) modelState(ctx context.Context) *store.BackendState {
	if b.project.Store == nil {
		return nil
	}
	state, err := b.project.Store.GetBackendState(ctx, b.stateKey())
	if err != nil {
		b.logger.Warn("failed to read backend state", "error", err)
		return nil
	}
	return state
}

func (b *base) IsTrained(ctx context.Context) bool {
	return b.modelState(ctx) != nil
}

func (b *base) ModificationTime(ctx context.Context) time.Time {
	state := b.modelState(ctx)
	if state == nil {
		return time.Time{}
	}
	return time.Unix(state.UpdatedTs, 0).UTC()
}

// tag attributes a typed error to this backend.
func (b *base) tag(err error) error {
	var ie *ierrors.IndexError
	if errors.As(err, &ie) && ie.BackendID == "" {
		ie.BackendID = b.id
	}
	return err
}

func (b *base) notSupported(operation string) error {
	return ierrors.NotSupported("%s is not supported by the %s backend", operation, b.name).WithBackend(b.id)
}

// checkDocuments fails when the corpus cannot be read or has no documents.
func (b *base) checkDocuments(c corpus.Corpus) error {
	empty := c.IsEmpty()
	if err := c.Err(); err != nil {
		return ierrors.OperationFailed(err, "failed to read training documents").WithBackend(b.id)
	}
	if empty {
		return b.noDocuments()
	}
	return nil
}

func (b *base) noDocuments() error {
	return ierrors.NotSupported("training backend %s with no documents", b.id).WithBackend(b.id)
}

// remoteBase is embedded by backends whose model lives outside this
// process; they always report themselves as trained.
type remoteBase struct {
	base
}

func (remoteBase) IsTrained(context.Context) bool             { return true }
func (remoteBase) ModificationTime(context.Context) time.Time { return time.Time{} }

// mergePolicy is how duplicate subjects within one response are merged.
func (b *base) mergePolicy() suggest.MergePolicy {
	policy, err := suggest.ParseMergePolicy(b.params.String("merge", ""))
	if err != nil {
		b.logger.Warn("invalid merge policy, using max", "error", err)
		return suggest.MergeMax
	}
	return policy
}

// resolveHits maps raw (uri, score) pairs onto the project vocabulary.
// Unknown subjects and non-positive scores are dropped.
func (b *base) resolveHits(raw []rawHit) *suggest.Result {
	hits := make([]suggest.Hit, 0, len(raw))
	for _, r := range raw {
		if r.score <= 0 {
			continue
		}
		subject, ok := b.project.Vocabulary.ByURI(r.uri)
		if !ok {
			continue
		}
		hits = append(hits, suggest.Hit{Subject: subject, Score: r.score})
	}
	return suggest.NewResultWithPolicy(hits, b.limit(), b.mergePolicy())
}

type rawHit struct {
	uri   string
	score float64
}
