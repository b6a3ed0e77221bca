package indexing

import (
	"context"
	"time"

	"github.com/hrygo/subjectindex/internal/observability"
	"github.com/hrygo/subjectindex/plugin/backend"
	"github.com/hrygo/subjectindex/plugin/corpus"
	"github.com/hrygo/subjectindex/plugin/project"
	"github.com/hrygo/subjectindex/plugin/suggest"
)

// Service runs suggest, train and learn against configured projects.
type Service interface {
	// Projects lists every configured project, sorted by id.
	Projects(ctx context.Context) []*ProjectStatus
	// Project returns the collaborators of a usable project.
	Project(projectID string) (*project.Project, error)

	// Suggest transforms the text and asks the project's backend for subjects.
	Suggest(ctx context.Context, projectID, text string) (*suggest.Result, error)
	// SuggestBatch runs Suggest for every text, at most SuggestJobs at a time.
	// Results keep the order of texts.
	SuggestBatch(ctx context.Context, projectID string, texts []string) ([]*suggest.Result, error)

	Train(ctx context.Context, projectID string, c corpus.Corpus) error
	Learn(ctx context.Context, projectID string, c corpus.Corpus) error

	// Backends lists every known backend variant and whether it is available.
	Backends() []backend.Variant
	Metrics() *observability.MetricsSnapshot

	project.SourceResolver
}

// ProjectStatus describes one configured project.
type ProjectStatus struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Language         string    `json:"language"`
	Backend          string    `json:"backend"`
	Transform        string    `json:"transform"`
	VocabularySize   int       `json:"vocabulary_size"`
	Available        bool      `json:"available"`
	Error            string    `json:"error,omitempty"`
	IsTrained        bool      `json:"is_trained"`
	ModificationTime time.Time `json:"modification_time,omitzero"`
}
