package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/subjectindex/internal/observability"
	"github.com/hrygo/subjectindex/plugin/corpus"
	"github.com/hrygo/subjectindex/plugin/project"
	"github.com/hrygo/subjectindex/plugin/suggest"
)

// HTTP queries a generic remote suggestion service. It cannot be trained.
//
// The service receives a form POST with "text" and "limit" and answers
// {"results": [{"uri": ..., "label": ..., "score": ...}]}.
type HTTP struct {
	remoteBase
	client *http.Client
}

func (r *Registry) newHTTP(id string, params Params, p *project.Project) (Backend, error) {
	return &HTTP{
		remoteBase: remoteBase{newBase("http", id, nil, params, p)},
		client:     r.config.HTTPClient,
	}, nil
}

type httpResult struct {
	URI   string  `json:"uri"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (h *HTTP) Suggest(ctx context.Context, text string) *suggest.Result {
	if err := h.params.Require("endpoint"); err != nil {
		h.logger.Warn("http suggest skipped", "error", err)
		return suggest.Empty()
	}

	results, err := h.query(ctx, text)
	if err != nil {
		h.logger.Warn("http suggest failed", "error", err, observability.LogFieldTextLen, len(text))
		return suggest.Empty()
	}

	raw := make([]rawHit, 0, len(results))
	for _, r := range results {
		raw = append(raw, rawHit{uri: r.URI, score: r.Score})
	}
	return h.resolveHits(raw)
}

func (h *HTTP) query(ctx context.Context, text string) ([]httpResult, error) {
	form := url.Values{
		"text":  {text},
		"limit": {strconv.Itoa(h.limit())},
	}
	endpoint := h.params.String("endpoint", "")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Errorf("suggest API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var body struct {
		Results []httpResult `json:"results"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "failed to decode response")
	}
	if body.Results == nil {
		return nil, errors.New("response has no results")
	}
	return body.Results, nil
}

func (h *HTTP) Train(context.Context, corpus.Corpus) error {
	return h.notSupported("training")
}

func (h *HTTP) Learn(context.Context, corpus.Corpus) error {
	return h.notSupported("learning")
}
