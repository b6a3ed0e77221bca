package backend

import (
	"context"
	"encoding/json"
	"sync"

	ierrors "github.com/hrygo/subjectindex/internal/errors"
	"github.com/hrygo/subjectindex/plugin/corpus"
	"github.com/hrygo/subjectindex/plugin/project"
	"github.com/hrygo/subjectindex/plugin/suggest"
	"github.com/hrygo/subjectindex/store"
)

// dummySubject is what an untrained dummy backend suggests.
var dummySubject = suggest.Subject{URI: "http://example.org/dummy", Label: "dummy"}

// Dummy always suggests a single subject with score 1.0. Learning switches
// the subject to the first subject found in the corpus.
type Dummy struct {
	base

	mu      sync.RWMutex
	subject suggest.Subject
	loaded  bool
}

func newDummy(id string, params Params, p *project.Project) (Backend, error) {
	return &Dummy{base: newBase("dummy", id, nil, params, p)}, nil
}

func (d *Dummy) current(ctx context.Context) suggest.Subject {
	d.mu.RLock()
	if d.loaded {
		defer d.mu.RUnlock()
		return d.subject
	}
	d.mu.RUnlock()

	subject := dummySubject
	if state := d.modelState(ctx); state != nil {
		var stored suggest.Subject
		if err := json.Unmarshal(state.Data, &stored); err != nil || stored.URI == "" {
			d.logger.Warn("ignoring unreadable dummy state", "error", err)
		} else {
			subject = stored
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded {
		d.subject, d.loaded = subject, true
	}
	return d.subject
}

func (d *Dummy) Suggest(ctx context.Context, _ string) *suggest.Result {
	hit := suggest.Hit{Subject: d.current(ctx), Score: 1.0}
	return suggest.NewResult([]suggest.Hit{hit}, d.limit())
}

// IsTrained is always true; the dummy model needs no training.
func (d *Dummy) IsTrained(context.Context) bool { return true }

func (d *Dummy) Train(ctx context.Context, c corpus.Corpus) error {
	if corpus.IsCached(c) {
		return d.notSupported("training from cached data")
	}
	if err := d.checkDocuments(c); err != nil {
		return err
	}
	return d.persist(ctx, dummySubject)
}

func (d *Dummy) Learn(ctx context.Context, c corpus.Corpus) error {
	if corpus.IsCached(c) {
		return d.notSupported("learning from cached data")
	}

	for doc := range c.Documents() {
		if !doc.HasSubjects() {
			continue
		}
		subject := suggest.Subject{URI: doc.URIs[0]}
		if len(doc.Labels) > 0 {
			subject.Label = doc.Labels[0]
		}
		if known, ok := d.project.Vocabulary.ByURI(subject.URI); ok {
			subject = known
		}
		return d.persist(ctx, subject)
	}
	if err := c.Err(); err != nil {
		return ierrors.OperationFailed(err, "failed to read learning documents").WithBackend(d.id)
	}

	d.logger.Debug("no document with subjects, dummy model unchanged")
	return nil
}

// persist stores the subject and only then switches the in-memory model,
// so a failed write leaves the previous model in place.
func (d *Dummy) persist(ctx context.Context, subject suggest.Subject) error {
	if d.project.Store != nil {
		data, err := json.Marshal(subject)
		if err != nil {
			return ierrors.OperationFailed(err, "failed to encode dummy state").WithBackend(d.id)
		}
		_, err = d.project.Store.UpdateBackendState(ctx, d.stateKey(), func(*store.BackendState) (*store.BackendState, error) {
			return &store.BackendState{Data: data}, nil
		})
		if err != nil {
			return ierrors.OperationFailed(err, "failed to save dummy state").WithBackend(d.id)
		}
	}

	d.mu.Lock()
	d.subject, d.loaded = subject, true
	d.mu.Unlock()

	d.logger.Info("dummy model updated", "uri", subject.URI)
	return nil
}
