// Package indexing wires projects, transforms and backends together and
// runs suggest, train and learn on behalf of the CLI.
//
// Suggestion results can be cached per project and input text; a train or
// learn of a project drops the cached results of that project and of every
// ensemble that reads it.
package indexing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"iter"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/subjectindex/internal/observability"
	"github.com/hrygo/subjectindex/internal/profile"
	"github.com/hrygo/subjectindex/plugin/analyzer"
	"github.com/hrygo/subjectindex/plugin/backend"
	"github.com/hrygo/subjectindex/plugin/cache"
	"github.com/hrygo/subjectindex/plugin/corpus"
	"github.com/hrygo/subjectindex/plugin/project"
	"github.com/hrygo/subjectindex/plugin/suggest"
	"github.com/hrygo/subjectindex/plugin/transform"
)

// ErrProjectNotFound is returned for unknown project ids.
var ErrProjectNotFound = errors.New("project not found")

// cacheCapacity bounds the number of cached suggestion results.
const cacheCapacity = 1000

type indexedProject struct {
	config    ProjectConfig
	project   *project.Project
	backend   backend.Backend
	transform *transform.Chain
	// sources are the projects an ensemble backend reads.
	sources []string
	// err is set when the backend could not be built; the project is
	// listed but every operation on it fails with err.
	err error
}

type service struct {
	registry *backend.Registry
	projects map[string]*indexedProject
	metrics  *observability.Metrics
	logger   *slog.Logger

	cache    *cache.LRU[*suggest.Result]
	cacheTTL time.Duration
	jobs     int

	transformOpts []transform.Option
}

// Option configures NewService.
type Option func(*service)

// WithLogger sets the logger of the service and its projects.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) { s.logger = logger }
}

// WithMetrics shares a metrics collector with the caller.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *service) { s.metrics = m }
}

// WithTransformOptions passes options to every project's transform chain.
func WithTransformOptions(opts ...transform.Option) Option {
	return func(s *service) { s.transformOpts = append(s.transformOpts, opts...) }
}

// NewService builds every configured project. Vocabulary, analyzer and
// transform errors fail construction; a backend that cannot be resolved only makes
// its own project unavailable. st may be nil, in which case backends keep
// no persistent state.
func NewService(prof *profile.Profile, st project.StateStore, registry *backend.Registry, configs []ProjectConfig, opts ...Option) (Service, error) {
	if err := ValidateProjects(configs); err != nil {
		return nil, err
	}

	s := &service{
		registry: registry,
		projects: make(map[string]*indexedProject, len(configs)),
		metrics:  observability.NewMetrics(),
		logger:   slog.Default(),
		jobs:     max(prof.SuggestJobs, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if prof.SuggestCacheTTL > 0 {
		s.cache = cache.NewLRU[*suggest.Result](cacheCapacity, prof.SuggestCacheTTL)
		s.cacheTTL = prof.SuggestCacheTTL
	}

	for _, cfg := range configs {
		ip, err := s.buildProject(cfg, st)
		if err != nil {
			return nil, errors.Wrapf(err, "project %s", cfg.ID)
		}
		s.projects[cfg.ID] = ip
	}
	return s, nil
}

func (s *service) buildProject(cfg ProjectConfig, st project.StateStore) (*indexedProject, error) {
	opts := []project.Option{
		project.WithSources(s),
		project.WithLogger(s.logger),
	}
	if cfg.Name != "" {
		opts = append(opts, project.WithName(cfg.Name))
	}
	if st != nil {
		opts = append(opts, project.WithStore(st))
	}
	if cfg.Vocab != "" {
		vocab, err := corpus.LoadVocabularyFile(cfg.Vocab)
		if err != nil {
			return nil, err
		}
		opts = append(opts, project.WithVocabulary(vocab))
	}
	if cfg.Analyzer != "" {
		a, err := analyzer.New(cfg.Analyzer)
		if err != nil {
			return nil, err
		}
		opts = append(opts, project.WithAnalyzer(a))
	}
	p := project.New(cfg.ID, cfg.Language, opts...)

	chain, err := transform.New(cfg.Transform, p, s.transformOpts...)
	if err != nil {
		return nil, err
	}

	ip := &indexedProject{config: cfg, project: p, transform: chain, sources: sourceIDs(cfg)}
	ip.backend, ip.err = s.registry.New(cfg.Backend, cfg.ID, cfg.BackendParams(), p)
	if ip.err != nil {
		s.logger.Warn("project unavailable",
			slog.String(observability.LogFieldProjectID, cfg.ID),
			slog.String("backend", cfg.Backend),
			slog.String("error", ip.err.Error()),
		)
	}
	return ip, nil
}

func (s *service) get(projectID string) (*indexedProject, error) {
	ip, ok := s.projects[projectID]
	if !ok {
		return nil, errors.Wrap(ErrProjectNotFound, projectID)
	}
	if ip.err != nil {
		return nil, ip.err
	}
	return ip, nil
}

func (s *service) Project(projectID string) (*project.Project, error) {
	ip, err := s.get(projectID)
	if err != nil {
		return nil, err
	}
	return ip.project, nil
}

func (s *service) Projects(ctx context.Context) []*ProjectStatus {
	statuses := make([]*ProjectStatus, 0, len(s.projects))
	for _, ip := range s.projects {
		status := &ProjectStatus{
			ID:             ip.project.ID,
			Name:           ip.project.Name,
			Language:       ip.project.Language,
			Backend:        ip.config.Backend,
			Transform:      ip.transform.Name(),
			VocabularySize: ip.project.Vocabulary.Len(),
			Available:      ip.err == nil,
		}
		if ip.err != nil {
			status.Error = ip.err.Error()
		} else {
			status.IsTrained = ip.backend.IsTrained(ctx)
			status.ModificationTime = ip.backend.ModificationTime(ctx)
		}
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	return statuses
}

func (s *service) Suggest(ctx context.Context, projectID, text string) (*suggest.Result, error) {
	ip, err := s.get(projectID)
	if err != nil {
		return nil, err
	}
	return s.suggest(ctx, ip, text), nil
}

func (s *service) SuggestBatch(ctx context.Context, projectID string, texts []string) ([]*suggest.Result, error) {
	ip, err := s.get(projectID)
	if err != nil {
		return nil, err
	}

	results := make([]*suggest.Result, len(texts))
	var g errgroup.Group
	g.SetLimit(s.jobs)
	for i, text := range texts {
		g.Go(func() error {
			results[i] = s.suggest(ctx, ip, text)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "batch suggest interrupted")
	}
	return results, nil
}

func (s *service) suggest(ctx context.Context, ip *indexedProject, text string) *suggest.Result {
	key := cacheKey(ip.project.ID, text)
	if s.cache != nil {
		if result, ok := s.cache.Get(key); ok {
			return result
		}
	}

	start := time.Now()
	result := ip.backend.Suggest(withSource(ctx, ip.project.ID), ip.transform.Transform(text))
	s.metrics.RecordSuggest(ip.backend.ID(), time.Since(start), result.IsEmpty())

	// Empty results are often a degraded remote call and are not cached.
	if s.cache != nil && !result.IsEmpty() {
		s.cache.Set(key, result, s.cacheTTL)
	}
	return result
}

func (s *service) Train(ctx context.Context, projectID string, c corpus.Corpus) error {
	return s.update(ctx, "train", projectID, c, backend.Backend.Train)
}

func (s *service) Learn(ctx context.Context, projectID string, c corpus.Corpus) error {
	return s.update(ctx, "learn", projectID, c, backend.Backend.Learn)
}

// update runs a train or learn call on the transformed corpus.
func (s *service) update(ctx context.Context, operation, projectID string, c corpus.Corpus,
	fn func(backend.Backend, context.Context, corpus.Corpus) error,
) error {
	ip, err := s.get(projectID)
	if err != nil {
		return err
	}

	op := observability.NewOperationContext(s.logger, operation, projectID, ip.backend.ID())
	op.Info("starting " + operation)

	err = fn(ip.backend, ctx, transformCorpus(c, ip.transform))
	s.metrics.RecordTrain(ip.backend.ID(), err)
	if s.cache != nil {
		for _, id := range s.dependents(projectID) {
			if n := s.cache.InvalidatePrefix(cachePrefix(id)); n > 0 {
				op.Debug("dropped cached suggestions", slog.String(observability.LogFieldProjectID, id), slog.Int("entries", n))
			}
		}
	}

	if err != nil {
		op.Error(operation+" failed", err, slog.Int64(observability.LogFieldDuration, op.DurationMs()))
		return err
	}
	op.Info(operation+" completed", slog.Int64(observability.LogFieldDuration, op.DurationMs()))
	return nil
}

// dependents returns projectID and every project that reads it as an
// ensemble source, directly or through other ensembles.
func (s *service) dependents(projectID string) []string {
	ids := []string{projectID}
	seen := map[string]bool{projectID: true}
	for i := 0; i < len(ids); i++ {
		for id, ip := range s.projects {
			if !seen[id] && slices.Contains(ip.sources, ids[i]) {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// sourceIDs lists the projects named by a "sources" backend parameter.
// Malformed values are reported by the backend itself.
func sourceIDs(cfg ProjectConfig) []string {
	raw, ok := cfg.BackendParams()["sources"]
	if !ok {
		return nil
	}
	sources, err := backend.ParseSources(raw)
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(sources))
	for _, src := range sources {
		ids = append(ids, src.ProjectID)
	}
	return ids
}

func (s *service) Backends() []backend.Variant {
	return s.registry.Variants()
}

func (s *service) Metrics() *observability.MetricsSnapshot {
	return s.metrics.Snapshot()
}

// ResolveSource returns a suggester for another project, used by ensembles.
// A project that is already being queried higher up the same call yields
// an empty result instead of recursing.
func (s *service) ResolveSource(projectID string) (suggest.Suggester, error) {
	ip, err := s.get(projectID)
	if err != nil {
		return nil, err
	}
	return suggest.SuggesterFunc(func(ctx context.Context, text string) *suggest.Result {
		if inSourceChain(ctx, projectID) {
			s.logger.Warn("ensemble source cycle", slog.String(observability.LogFieldProjectID, projectID))
			return suggest.Empty()
		}
		return s.suggest(ctx, ip, text)
	}), nil
}

type sourceChainKey struct{}

type sourceChain struct {
	projectID string
	parent    *sourceChain
}

func withSource(ctx context.Context, projectID string) context.Context {
	parent, _ := ctx.Value(sourceChainKey{}).(*sourceChain)
	return context.WithValue(ctx, sourceChainKey{}, &sourceChain{projectID: projectID, parent: parent})
}

func inSourceChain(ctx context.Context, projectID string) bool {
	for c, _ := ctx.Value(sourceChainKey{}).(*sourceChain); c != nil; c = c.parent {
		if c.projectID == projectID {
			return true
		}
	}
	return false
}

func cachePrefix(projectID string) string {
	return projectID + "\x00"
}

func cacheKey(projectID, text string) string {
	h := sha256.Sum256([]byte(text))
	return cachePrefix(projectID) + hex.EncodeToString(h[:])
}

// transformedCorpus applies a project's input transform to every document.
type transformedCorpus struct {
	corpus.Corpus
	transform transform.Transform
}

func transformCorpus(c corpus.Corpus, t transform.Transform) corpus.Corpus {
	if corpus.IsCached(c) {
		return c
	}
	return &transformedCorpus{Corpus: c, transform: t}
}

func (c *transformedCorpus) Documents() iter.Seq[corpus.Document] {
	return func(yield func(corpus.Document) bool) {
		for doc := range c.Corpus.Documents() {
			doc.Text = c.transform.Transform(doc.Text)
			if !yield(doc) {
				return
			}
		}
	}
}
