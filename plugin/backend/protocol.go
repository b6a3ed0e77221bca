package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	ierrors "github.com/hrygo/subjectindex/internal/errors"
	"github.com/hrygo/subjectindex/internal/observability"
	"github.com/hrygo/subjectindex/plugin/corpus"
	"github.com/hrygo/subjectindex/plugin/suggest"
)

// protocolStep is one request of the remote training protocol. Statuses in
// ignore are accepted as success; any other non-2xx status or transport
// error is fatal to the session.
type protocolStep struct {
	name   string
	method string
	url    string
	body   func() (io.Reader, string, error)
	ignore []int
}

// trainingSession runs delete, create, vocabulary upload, training upload
// and completion polling strictly in that order.
type trainingSession struct {
	maui   *Maui
	cfg    *mauiConfig
	op     *observability.OperationContext
	corpus corpus.Corpus

	documents int
}

func (s *trainingSession) steps() []protocolStep {
	return []protocolStep{
		{
			name:   "delete tagger",
			method: http.MethodDelete,
			url:    s.cfg.taggerURL(),
			ignore: []int{http.StatusNotFound},
		},
		{
			name:   "create tagger",
			method: http.MethodPost,
			url:    s.cfg.endpoint,
			body: func() (io.Reader, string, error) {
				data, err := json.Marshal(map[string]string{"id": s.cfg.tagger, "lang": s.cfg.language})
				return bytes.NewReader(data), "application/json", err
			},
		},
		{
			name:   "upload vocabulary",
			method: http.MethodPut,
			url:    s.cfg.taggerURL("vocab"),
			body: func() (io.Reader, string, error) {
				return strings.NewReader(vocabularyTurtle(s.maui.project.Vocabulary, s.cfg.language)), "text/turtle", nil
			},
		},
		{
			name:   "upload training file",
			method: http.MethodPost,
			url:    s.cfg.taggerURL("train"),
			body: func() (io.Reader, string, error) {
				data, n, err := trainingFile(s.corpus, s.maui.project.Vocabulary)
				s.documents = n
				s.op.Info("training file materialized", slog.Int("documents", n), slog.Int("bytes", len(data)))
				return bytes.NewReader(data), "application/json", err
			},
		},
	}
}

func (s *trainingSession) run(ctx context.Context) error {
	for _, step := range s.steps() {
		if err := s.execute(ctx, step); err != nil {
			return err
		}
	}
	return s.waitForCompletion(ctx)
}

func (s *trainingSession) execute(ctx context.Context, step protocolStep) error {
	s.op.Info("remote training step", slog.String(observability.LogFieldStep, step.name))

	var body io.Reader
	contentType := ""
	if step.body != nil {
		var err error
		if body, contentType, err = step.body(); err != nil {
			return ierrors.OperationFailed(err, "%s: failed to prepare request body", step.name)
		}
	}

	req, err := http.NewRequestWithContext(ctx, step.method, step.url, body)
	if err != nil {
		return ierrors.OperationFailed(err, "%s: failed to create request", step.name)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.maui.client.Do(req)
	if err != nil {
		return ierrors.OperationFailed(err, "%s failed", step.name)
	}
	defer resp.Body.Close()

	if slices.Contains(step.ignore, resp.StatusCode) {
		s.op.Debug("ignoring status", slog.String(observability.LogFieldStep, step.name), slog.Int("status", resp.StatusCode))
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ierrors.OperationFailed(statusError(resp), "%s failed", step.name)
	}
	return nil
}

func statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return errors.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}

// waitForCompletion polls the training status at most once per poll
// interval until the tagger reports completion or the timeout elapses.
func (s *trainingSession) waitForCompletion(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.trainTimeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(s.cfg.pollInterval), 1)
	for attempt := 1; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return ierrors.OperationFailed(err, "training did not complete within %s", s.cfg.trainTimeout)
		}

		completed, err := s.status(ctx)
		if err != nil && ctx.Err() != nil {
			return ierrors.OperationFailed(err, "training did not complete within %s", s.cfg.trainTimeout)
		}
		if err != nil {
			return ierrors.OperationFailed(err, "failed to query training status")
		}
		if completed {
			return nil
		}
		s.op.Debug("training not completed yet", slog.Int(observability.LogFieldAttempt, attempt))
	}
}

func (s *trainingSession) status(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.taggerURL("train"), nil)
	if err != nil {
		return false, errors.Wrap(err, "failed to create request")
	}
	resp, err := s.maui.client.Do(req)
	if err != nil {
		return false, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, statusError(resp)
	}

	var body struct {
		Completed *bool `json:"completed"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return false, errors.Wrap(err, "failed to decode training status")
	}
	if body.Completed == nil {
		return false, errors.New("training status has no completed field")
	}
	return *body.Completed, nil
}

type trainingLine struct {
	Content string   `json:"content"`
	Topics  []string `json:"topics"`
	URIs    []string `json:"uris"`
}

// trainingFile serializes the corpus as JSON lines, one document per line,
// with subject labels as topics.
func trainingFile(c corpus.Corpus, vocab *suggest.Vocabulary) ([]byte, int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	n := 0
	for doc := range c.Documents() {
		line := trainingLine{Content: doc.Text, Topics: []string{}, URIs: []string{}}
		for i, uri := range doc.URIs {
			label := ""
			if i < len(doc.Labels) {
				label = doc.Labels[i]
			}
			if label == "" {
				if s, ok := vocab.ByURI(uri); ok {
					label = s.Label
				}
			}
			line.URIs = append(line.URIs, uri)
			if label != "" {
				line.Topics = append(line.Topics, label)
			}
		}
		if err := enc.Encode(line); err != nil {
			return nil, n, errors.Wrap(err, "failed to encode training document")
		}
		n++
	}
	if err := c.Err(); err != nil {
		return nil, n, errors.Wrap(err, "failed to read training documents")
	}
	return buf.Bytes(), n, nil
}

// vocabularyTurtle renders the vocabulary as SKOS concepts in Turtle.
func vocabularyTurtle(vocab *suggest.Vocabulary, language string) string {
	var b strings.Builder
	b.WriteString("@prefix skos: <http://www.w3.org/2004/02/skos/core#> .\n")
	for _, s := range vocab.Subjects() {
		b.WriteString("\n<")
		b.WriteString(s.URI)
		b.WriteString("> a skos:Concept")
		if s.Label != "" {
			b.WriteString(" ;\n    skos:prefLabel ")
			b.WriteString(turtleString(s.Label))
			if language != "" {
				b.WriteString("@")
				b.WriteString(language)
			}
		}
		if s.Notation != "" {
			b.WriteString(" ;\n    skos:notation ")
			b.WriteString(turtleString(s.Notation))
		}
		b.WriteString(" .\n")
	}
	return b.String()
}

var turtleEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

func turtleString(s string) string {
	return `"` + turtleEscaper.Replace(s) + `"`
}
