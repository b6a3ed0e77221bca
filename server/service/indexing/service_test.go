package indexing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierrors "github.com/hrygo/subjectindex/internal/errors"
	"github.com/hrygo/subjectindex/internal/profile"
	"github.com/hrygo/subjectindex/plugin/backend"
	"github.com/hrygo/subjectindex/plugin/corpus"
	"github.com/hrygo/subjectindex/plugin/project"
	"github.com/hrygo/subjectindex/plugin/suggest"
	storetest "github.com/hrygo/subjectindex/store/test"
)

// recorder is a backend that echoes its input text as a subject URI and
// records what it was given.
type recorder struct {
	id       string
	suggests atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64

	mu      sync.Mutex
	texts   []string
	trained []string
}

func (r *recorder) ID() string             { return r.id }
func (r *recorder) Name() string           { return "recorder" }
func (r *recorder) Params() backend.Params { return backend.Params{} }

func (r *recorder) Suggest(_ context.Context, text string) *suggest.Result {
	r.suggests.Add(1)
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		peak := r.peak.Load()
		if n <= peak || r.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)

	r.mu.Lock()
	r.texts = append(r.texts, text)
	r.mu.Unlock()
	return suggest.NewResult([]suggest.Hit{{Subject: suggest.Subject{URI: "urn:" + text}, Score: 1}}, 0)
}

func (r *recorder) Train(_ context.Context, c corpus.Corpus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for doc := range c.Documents() {
		r.trained = append(r.trained, doc.Text)
	}
	return nil
}

func (r *recorder) Learn(ctx context.Context, c corpus.Corpus) error {
	if corpus.IsCached(c) {
		return ierrors.NotSupported("learning from cached data")
	}
	return r.Train(ctx, c)
}

func (r *recorder) IsTrained(context.Context) bool             { return true }
func (r *recorder) ModificationTime(context.Context) time.Time { return time.Time{} }

type fixture struct {
	svc       Service
	recorders map[string]*recorder
}

func newFixture(t *testing.T, prof *profile.Profile, configs ...ProjectConfig) *fixture {
	t.Helper()
	f := &fixture{recorders: make(map[string]*recorder)}
	var mu sync.Mutex
	registry := backend.NewRegistry(backend.WithProvider("recorder",
		func(id string, _ backend.Params, _ *project.Project) (backend.Backend, error) {
			mu.Lock()
			defer mu.Unlock()
			r := &recorder{id: id}
			f.recorders[id] = r
			return r, nil
		}))

	if prof == nil {
		prof = &profile.Profile{SuggestJobs: 2}
	}
	ctx := context.Background()
	svc, err := NewService(prof, storetest.NewTestingStore(ctx, t), registry, configs)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestLoadProjects(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "subjects.tsv"), []byte("<http://example.org/fish>\tfish\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "projects.yaml"), []byte(`
projects:
  - id: maui-en
    name: Maui English
    language: en
    backend: maui
    vocab: subjects.tsv
    transform: filter_lang,limit(5000)
    params:
      endpoint: http://localhost:8080/mauiservice/
      tagger: maui-en
      limit: 10
`), 0o644))

	configs, err := LoadProjects(filepath.Join(dir, "projects.yaml"))
	require.NoError(t, err)
	require.Len(t, configs, 1)

	c := configs[0]
	assert.Equal(t, "maui-en", c.ID)
	assert.Equal(t, "Maui English", c.Name)
	assert.Equal(t, filepath.Join(dir, "subjects.tsv"), c.Vocab)
	assert.Equal(t, "filter_lang,limit(5000)", c.Transform)
	assert.Equal(t, "10", c.BackendParams()["limit"])
	assert.Equal(t, "maui-en", c.BackendParams()["tagger"])

	_, err = LoadProjects(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateProjects(t *testing.T) {
	tests := []struct {
		name    string
		configs []ProjectConfig
		message string
	}{
		{"missing id", []ProjectConfig{{Language: "en", Backend: "dummy"}}, "has no id"},
		{"duplicate", []ProjectConfig{
			{ID: "a", Language: "en", Backend: "dummy"},
			{ID: "a", Language: "en", Backend: "dummy"},
		}, "duplicate project id a"},
		{"missing language", []ProjectConfig{{ID: "a", Backend: "dummy"}}, "language setting is missing"},
		{"missing backend", []ProjectConfig{{ID: "a", Language: "en"}}, "backend setting is missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProjects(tt.configs)
			require.Error(t, err)
			assert.True(t, ierrors.IsCode(err, ierrors.ErrCodeConfiguration))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestNewService_InvalidTransform(t *testing.T) {
	_, err := NewService(&profile.Profile{}, nil, backend.NewRegistry(), []ProjectConfig{
		{ID: "a", Language: "en", Backend: "dummy", Transform: "nonexistent"},
	})
	require.Error(t, err)
	assert.True(t, ierrors.IsCode(err, ierrors.ErrCodeConfiguration))
}

func TestNewService_Analyzer(t *testing.T) {
	svc, err := NewService(&profile.Profile{}, nil, backend.NewRegistry(), []ProjectConfig{
		{ID: "a", Language: "en", Backend: "dummy", Analyzer: "simple(1)"},
		{ID: "b", Language: "en", Backend: "dummy"},
	})
	require.NoError(t, err)

	p, err := svc.Project("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, p.Analyzer.TokenizeWords("a b"))

	p, err = svc.Project("b")
	require.NoError(t, err)
	assert.Empty(t, p.Analyzer.TokenizeWords("a b"))

	_, err = NewService(&profile.Profile{}, nil, backend.NewRegistry(), []ProjectConfig{
		{ID: "a", Language: "en", Backend: "dummy", Analyzer: "snowball(english)"},
	})
	require.Error(t, err)
	assert.True(t, ierrors.IsCode(err, ierrors.ErrCodeConfiguration))
}

func TestService_UnavailableBackends(t *testing.T) {
	f := newFixture(t, nil,
		ProjectConfig{ID: "fast", Language: "en", Backend: "fasttext"},
		ProjectConfig{ID: "bogus", Language: "en", Backend: "nonexistent"},
	)
	ctx := context.Background()

	_, err := f.svc.Suggest(ctx, "fast", "text")
	assert.True(t, ierrors.IsCode(err, ierrors.ErrCodeDependencyMissing))
	assert.Contains(t, err.Error(), "fastText not available")

	err = f.svc.Train(ctx, "bogus", corpus.NewDocumentList())
	assert.True(t, errors.Is(err, ierrors.ErrBackendNotFound))

	_, err = f.svc.Suggest(ctx, "missing", "text")
	assert.True(t, errors.Is(err, ErrProjectNotFound))

	statuses := f.svc.Projects(ctx)
	require.Len(t, statuses, 2)
	assert.Equal(t, "bogus", statuses[0].ID)
	assert.False(t, statuses[0].Available)
	assert.Contains(t, statuses[0].Error, "unknown backend: nonexistent")
}

func TestService_SuggestAppliesTransform(t *testing.T) {
	f := newFixture(t, nil, ProjectConfig{ID: "rec", Language: "en", Backend: "recorder", Transform: "limit(5)"})

	result, err := f.svc.Suggest(context.Background(), "rec", "abcdefghij")
	require.NoError(t, err)

	assert.Equal(t, []string{"urn:abcde"}, result.URIs())
	assert.Equal(t, []string{"abcde"}, f.recorders["rec"].texts)
}

func TestService_SuggestBatch(t *testing.T) {
	f := newFixture(t, &profile.Profile{SuggestJobs: 2}, ProjectConfig{ID: "rec", Language: "en", Backend: "recorder"})
	texts := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	results, err := f.svc.SuggestBatch(context.Background(), "rec", texts)
	require.NoError(t, err)
	require.Len(t, results, len(texts))
	for i, text := range texts {
		assert.Equal(t, []string{"urn:" + text}, results[i].URIs())
	}
	assert.LessOrEqual(t, f.recorders["rec"].peak.Load(), int64(2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.svc.SuggestBatch(ctx, "rec", texts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_Cache(t *testing.T) {
	f := newFixture(t, &profile.Profile{SuggestJobs: 1, SuggestCacheTTL: time.Minute},
		ProjectConfig{ID: "rec", Language: "en", Backend: "recorder"},
		ProjectConfig{ID: "other", Language: "en", Backend: "recorder"},
	)
	ctx := context.Background()
	rec, other := f.recorders["rec"], f.recorders["other"]

	for range 3 {
		_, err := f.svc.Suggest(ctx, "rec", "same text")
		require.NoError(t, err)
		_, err = f.svc.Suggest(ctx, "other", "same text")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), rec.suggests.Load())
	assert.Equal(t, int64(1), other.suggests.Load())

	require.NoError(t, f.svc.Learn(ctx, "rec", corpus.NewDocumentList(corpus.Document{Text: "new"})))

	_, err := f.svc.Suggest(ctx, "rec", "same text")
	require.NoError(t, err)
	_, err = f.svc.Suggest(ctx, "other", "same text")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.suggests.Load(), "learn drops the project's cached results")
	assert.Equal(t, int64(1), other.suggests.Load(), "other projects keep theirs")
}

func TestService_CacheDropsDependentEnsembles(t *testing.T) {
	f := newFixture(t, &profile.Profile{SuggestJobs: 1, SuggestCacheTTL: time.Minute},
		ProjectConfig{ID: "rec", Language: "en", Backend: "recorder"},
		ProjectConfig{ID: "other", Language: "en", Backend: "recorder"},
		ProjectConfig{ID: "ens", Language: "en", Backend: "ensemble", Params: map[string]string{"sources": "rec"}},
		ProjectConfig{ID: "outer", Language: "en", Backend: "ensemble", Params: map[string]string{"sources": "ens:2"}},
	)
	ctx := context.Background()
	rec, other := f.recorders["rec"], f.recorders["other"]

	for _, id := range []string{"ens", "outer", "other"} {
		result, err := f.svc.Suggest(ctx, id, "same text")
		require.NoError(t, err)
		require.False(t, result.IsEmpty())
	}
	assert.Equal(t, int64(1), rec.suggests.Load())

	require.NoError(t, f.svc.Learn(ctx, "rec", corpus.NewDocumentList(corpus.Document{Text: "new"})))

	_, err := f.svc.Suggest(ctx, "outer", "same text")
	require.NoError(t, err)
	_, err = f.svc.Suggest(ctx, "other", "same text")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.suggests.Load(), "ensembles over rec are recomputed")
	assert.Equal(t, int64(1), other.suggests.Load())
}

func TestService_TrainTransformsCorpus(t *testing.T) {
	f := newFixture(t, nil, ProjectConfig{ID: "rec", Language: "en", Backend: "recorder", Transform: "limit(3)"})
	ctx := context.Background()

	err := f.svc.Train(ctx, "rec", corpus.NewDocumentList(corpus.Document{Text: "abcdef"}, corpus.Document{Text: "xy"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "xy"}, f.recorders["rec"].trained)

	err = f.svc.Learn(ctx, "rec", corpus.Cached)
	assert.True(t, ierrors.IsCode(err, ierrors.ErrCodeNotSupported), "cached corpus reaches the backend unwrapped")

	snap := f.svc.Metrics()
	assert.Equal(t, int64(2), snap.Backends["rec"].TrainCount)
	assert.Equal(t, int64(1), snap.Backends["rec"].TrainFailed)
}

func TestService_DummyLearnPersists(t *testing.T) {
	dir := t.TempDir()
	vocab := filepath.Join(dir, "subjects.tsv")
	require.NoError(t, os.WriteFile(vocab, []byte("<http://example.org/fish>\tfish\n"), 0o644))

	f := newFixture(t, nil, ProjectConfig{ID: "dummy-en", Language: "en", Backend: "dummy", Vocab: vocab})
	ctx := context.Background()

	require.NoError(t, f.svc.Learn(ctx, "dummy-en", corpus.NewDocumentList(
		corpus.Document{Text: "salmon", URIs: []string{"http://example.org/fish"}},
	)))

	result, err := f.svc.Suggest(ctx, "dummy-en", "anything")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://example.org/fish"}, result.URIs())

	statuses := f.svc.Projects(ctx)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].IsTrained)
	assert.Equal(t, 1, statuses[0].VocabularySize)
	assert.False(t, statuses[0].ModificationTime.IsZero())
}

func TestService_EnsembleResolvesProjects(t *testing.T) {
	f := newFixture(t, nil,
		ProjectConfig{ID: "dummy-a", Language: "en", Backend: "dummy"},
		ProjectConfig{ID: "dummy-b", Language: "en", Backend: "dummy"},
		ProjectConfig{ID: "ens", Language: "en", Backend: "ensemble",
			Params: map[string]string{"sources": "dummy-a,dummy-b:0.5,ens,missing"}},
	)

	result, err := f.svc.Suggest(context.Background(), "ens", "text")
	require.NoError(t, err)

	require.Equal(t, 1, result.Len())
	assert.Equal(t, "http://example.org/dummy", result.At(0).Subject.URI)
	assert.InDelta(t, 1.5, result.At(0).Score, 1e-9)
}

func TestService_Backends(t *testing.T) {
	f := newFixture(t, nil)
	var names []string
	for _, v := range f.svc.Backends() {
		names = append(names, v.Name)
	}
	assert.Contains(t, names, "recorder")
	assert.Contains(t, names, "maui")
	assert.Contains(t, names, "omikuji")
}
