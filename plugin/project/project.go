// Package project holds the per-project collaborators shared by backends:
// language, vocabulary, analyzer and state store.
package project

import (
	"context"
	"log/slog"

	"github.com/hrygo/subjectindex/plugin/analyzer"
	"github.com/hrygo/subjectindex/plugin/langdetect"
	"github.com/hrygo/subjectindex/plugin/suggest"
	"github.com/hrygo/subjectindex/store"
)

// StateStore persists backend state and training runs.
type StateStore interface {
	GetBackendState(ctx context.Context, find *store.FindBackendState) (*store.BackendState, error)
	UpdateBackendState(ctx context.Context, find *store.FindBackendState, fn store.BackendStateUpdateFunc) (*store.BackendState, error)
	DeleteBackendState(ctx context.Context, delete *store.DeleteBackendState) error
	CreateTrainingRun(ctx context.Context, create *store.TrainingRun) (*store.TrainingRun, error)
	UpdateTrainingRun(ctx context.Context, update *store.UpdateTrainingRun) (*store.TrainingRun, error)
}

// SourceResolver looks up another project's suggester by project ID.
type SourceResolver interface {
	ResolveSource(projectID string) (suggest.Suggester, error)
}

// Project is the owning context of a backend.
type Project struct {
	ID         string
	Name       string
	Language   string
	Vocabulary *suggest.Vocabulary
	Analyzer   analyzer.Analyzer
	Store      StateStore
	Sources    SourceResolver
	Logger     *slog.Logger
}

// Option configures a Project.
type Option func(*Project)

func WithName(name string) Option {
	return func(p *Project) { p.Name = name }
}

func WithVocabulary(vocab *suggest.Vocabulary) Option {
	return func(p *Project) { p.Vocabulary = vocab }
}

func WithAnalyzer(a analyzer.Analyzer) Option {
	return func(p *Project) { p.Analyzer = a }
}

func WithStore(s StateStore) Option {
	return func(p *Project) { p.Store = s }
}

func WithSources(r SourceResolver) Option {
	return func(p *Project) { p.Sources = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Project) { p.Logger = logger }
}

// New creates a project. The language code is normalized to its base
// language; an invalid code is kept verbatim and rejected later by
// operations that need it.
func New(id, language string, opts ...Option) *Project {
	if normalized, err := langdetect.Normalize(language); err == nil {
		language = normalized
	}
	p := &Project{
		ID:         id,
		Name:       id,
		Language:   language,
		Vocabulary: suggest.NewVocabulary(nil),
		Analyzer:   analyzer.NewSimple(),
		Logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
