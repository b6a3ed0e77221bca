package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/subjectindex/internal/observability"
	"github.com/hrygo/subjectindex/plugin/corpus"
	"github.com/hrygo/subjectindex/plugin/project"
	"github.com/hrygo/subjectindex/plugin/suggest"
)

// LLM asks an OpenAI-compatible chat model for subject labels and maps
// them onto the project vocabulary. It cannot be trained.
type LLM struct {
	remoteBase

	client *openai.Client
	model  string
}

const llmSystemPrompt = `You are a subject indexer for a library catalogue.
Choose subjects that describe the main topics of the document.
Answer with a JSON array only, for example: [{"label": "ships", "score": 0.9}]
Scores are between 0 and 1. Use labels exactly as given in the vocabulary when one is provided.`

func (r *Registry) newLLM(id string, params Params, p *project.Project) (Backend, error) {
	b := newBase("llm", id, Params{
		"max_candidates": "300",
		"max_text":       "4000",
		"timeout":        "30s",
	}, params, p)

	apiKey := b.params.String("api_key", r.config.LLM.APIKey)
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL := b.params.String("base_url", r.config.LLM.BaseURL); baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	clientConfig.HTTPClient = r.config.HTTPClient

	return &LLM{
		remoteBase: remoteBase{b},
		client:     openai.NewClientWithConfig(clientConfig),
		model:      b.params.String("model", r.config.LLM.Model),
	}, nil
}

func (l *LLM) Suggest(ctx context.Context, text string) *suggest.Result {
	labels, err := l.complete(ctx, text)
	if err != nil {
		l.logger.Warn("llm suggest failed", "error", err, observability.LogFieldTextLen, len(text))
		return suggest.Empty()
	}

	hits := make([]suggest.Hit, 0, len(labels))
	for _, s := range labels {
		subject, ok := l.project.Vocabulary.ByLabel(s.Label)
		if !ok || s.Score <= 0 {
			continue
		}
		hits = append(hits, suggest.Hit{Subject: subject, Score: min(s.Score, 1)})
	}
	return suggest.NewResultWithPolicy(hits, l.limit(), l.mergePolicy())
}

type scoredLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (l *LLM) complete(ctx context.Context, text string) ([]scoredLabel, error) {
	if l.model == "" {
		return nil, errors.New("model setting is missing")
	}
	timeout, err := l.params.Duration("timeout", 30*time.Second)
	if err != nil {
		return nil, err
	}
	maxText, err := l.params.Int("max_text", 4000)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if runes := []rune(text); maxText > 0 && len(runes) > maxText {
		text = string(runes[:maxText])
	}

	req := openai.ChatCompletionRequest{
		Model:       l.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llmSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: l.buildPrompt(text)},
		},
	}

	start := time.Now()
	resp, err := l.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "LLM request failed")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty response from LLM")
	}

	labels, err := parseScoredLabels(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("llm suggest completed",
		"labels", len(labels),
		observability.LogFieldDuration, time.Since(start).Milliseconds(),
		"tokens", resp.Usage.TotalTokens,
	)
	return labels, nil
}

func (l *LLM) buildPrompt(text string) string {
	var b strings.Builder
	maxCandidates, err := l.params.Int("max_candidates", 300)
	if err != nil {
		maxCandidates = 0
	}
	if vocab := l.project.Vocabulary; vocab.Len() > 0 && vocab.Len() <= maxCandidates {
		b.WriteString("Vocabulary:\n")
		for _, s := range vocab.Subjects() {
			b.WriteString("- ")
			b.WriteString(s.Label)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if l.project.Language != "" {
		fmt.Fprintf(&b, "Document language: %s\n\n", l.project.Language)
	}
	fmt.Fprintf(&b, "Document:\n%s\n\nReturn at most %d subjects.", text, l.limit())
	return b.String()
}

var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parseScoredLabels extracts the JSON array from a model answer, tolerating
// code fences and surrounding prose.
func parseScoredLabels(content string) ([]scoredLabel, error) {
	content = strings.TrimSpace(content)
	if m := codeFence.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, errors.Errorf("no JSON array in LLM response: %q", truncate(content, 80))
	}

	var labels []scoredLabel
	if err := json.Unmarshal([]byte(content[start:end+1]), &labels); err != nil {
		return nil, errors.Wrap(err, "failed to parse LLM response")
	}
	return labels, nil
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

func (l *LLM) Train(context.Context, corpus.Corpus) error {
	return l.notSupported("training")
}

func (l *LLM) Learn(context.Context, corpus.Corpus) error {
	return l.notSupported("learning")
}
