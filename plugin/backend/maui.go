package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	ierrors "github.com/hrygo/subjectindex/internal/errors"
	"github.com/hrygo/subjectindex/internal/observability"
	"github.com/hrygo/subjectindex/plugin/corpus"
	"github.com/hrygo/subjectindex/plugin/project"
	"github.com/hrygo/subjectindex/plugin/suggest"
	"github.com/hrygo/subjectindex/store"
)

// Maui is a backend for a remote Maui Server tagger. The remote service
// owns the model; this backend drives its training protocol and queries it.
type Maui struct {
	remoteBase

	client       *http.Client
	pollInterval time.Duration
	trainTimeout time.Duration
}

func (r *Registry) newMaui(id string, params Params, p *project.Project) (Backend, error) {
	return &Maui{
		remoteBase:   remoteBase{newBase("maui", id, nil, params, p)},
		client:       r.config.HTTPClient,
		pollInterval: r.config.PollInterval,
		trainTimeout: r.config.TrainTimeout,
	}, nil
}

type mauiConfig struct {
	endpoint     string
	tagger       string
	language     string
	pollInterval time.Duration
	trainTimeout time.Duration
}

// taggerURL joins the endpoint, the tagger id and optional path elements.
func (c *mauiConfig) taggerURL(elems ...string) string {
	return strings.TrimRight(c.endpoint, "/") + "/" + strings.Join(append([]string{url.PathEscape(c.tagger)}, elems...), "/")
}

// config validates the parameters an operation needs. Nothing is sent to
// the remote service before this succeeds.
func (m *Maui) config(training bool) (*mauiConfig, error) {
	required := []string{"endpoint", "tagger"}
	if training {
		required = append(required, "language")
	}
	if err := m.params.Require(required...); err != nil {
		return nil, err
	}

	cfg := &mauiConfig{
		endpoint: m.params.String("endpoint", ""),
		tagger:   m.params.String("tagger", ""),
		language: m.params.String("language", ""),
	}
	if u, err := url.Parse(cfg.endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ierrors.Configuration("endpoint %q is not an http(s) URL", cfg.endpoint)
	}

	var err error
	if cfg.pollInterval, err = m.params.Duration("poll_interval", m.pollInterval); err != nil {
		return nil, err
	}
	if cfg.trainTimeout, err = m.params.Duration("train_timeout", m.trainTimeout); err != nil {
		return nil, err
	}
	if cfg.pollInterval <= 0 {
		return nil, ierrors.Configuration("poll_interval must be positive")
	}
	if cfg.trainTimeout <= 0 {
		return nil, ierrors.Configuration("train_timeout must be positive")
	}
	return cfg, nil
}

func (m *Maui) Train(ctx context.Context, c corpus.Corpus) error {
	if corpus.IsCached(c) {
		return m.notSupported("training from cached data")
	}
	cfg, err := m.config(true)
	if err != nil {
		return m.tag(err)
	}
	if err := m.checkDocuments(c); err != nil {
		return err
	}

	op := m.operation("train")
	op.Info("starting remote training", slog.String("tagger", cfg.tagger))
	run := m.startRun(ctx, op)

	session := &trainingSession{maui: m, cfg: cfg, op: op, corpus: c}
	err = session.run(ctx)
	m.finishRun(ctx, run, session.documents, err)

	if err != nil {
		op.Error("remote training failed", err, slog.Int64(observability.LogFieldDuration, op.DurationMs()))
		return m.tag(err)
	}
	op.Info("remote training completed",
		slog.Int("documents", session.documents),
		slog.Int64(observability.LogFieldDuration, op.DurationMs()),
	)
	return nil
}

func (m *Maui) Learn(context.Context, corpus.Corpus) error {
	return m.notSupported("learning")
}

// startRun records the session; bookkeeping failures never fail training.
func (m *Maui) startRun(ctx context.Context, op *observability.OperationContext) *store.TrainingRun {
	if m.project.Store == nil {
		return nil
	}
	run, err := m.project.Store.CreateTrainingRun(ctx, &store.TrainingRun{
		ID:        op.OperationID,
		ProjectID: m.project.ID,
		BackendID: m.id,
		State:     store.TrainingRunRunning,
	})
	if err != nil {
		op.Warn("failed to record training run", slog.String("error", err.Error()))
		return nil
	}
	return run
}

func (m *Maui) finishRun(ctx context.Context, run *store.TrainingRun, documents int, trainErr error) {
	if run == nil {
		return
	}
	state, message := store.TrainingRunCompleted, ""
	if trainErr != nil {
		state, message = store.TrainingRunFailed, trainErr.Error()
	}
	// The training context may already be done; the record should still land.
	_, err := m.project.Store.UpdateTrainingRun(context.WithoutCancel(ctx), &store.UpdateTrainingRun{
		ID:        run.ID,
		State:     &state,
		Documents: &documents,
		Error:     &message,
	})
	if err != nil {
		m.logger.Warn("failed to update training run", "run_id", run.ID, "error", err)
	}
}

type mauiTopic struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Suggest posts the text to the tagger. Any failure yields an empty result.
func (m *Maui) Suggest(ctx context.Context, text string) *suggest.Result {
	cfg, err := m.config(false)
	if err != nil {
		m.logger.Warn("maui suggest skipped", "error", err)
		return suggest.Empty()
	}

	topics, err := m.suggestTopics(ctx, cfg, text)
	if err != nil {
		m.logger.Warn("maui suggest failed", "error", err, observability.LogFieldTextLen, len(text))
		return suggest.Empty()
	}

	raw := make([]rawHit, 0, len(topics))
	for _, t := range topics {
		raw = append(raw, rawHit{uri: t.ID, score: t.Probability})
	}
	return m.resolveHits(raw)
}

func (m *Maui) suggestTopics(ctx context.Context, cfg *mauiConfig, text string) ([]mauiTopic, error) {
	form := url.Values{"text": {text}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.taggerURL("suggest"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Topics []mauiTopic `json:"topics"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "failed to decode response")
	}
	if body.Topics == nil {
		return nil, errors.New("response has no topics")
	}
	return body.Topics, nil
}

// maxResponseBytes bounds remote response bodies.
const maxResponseBytes = 16 << 20
