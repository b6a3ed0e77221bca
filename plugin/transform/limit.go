package transform

import (
	"strconv"

	ierrors "github.com/hrygo/subjectindex/internal/errors"
	"github.com/hrygo/subjectindex/plugin/project"
)

// InputLimiter truncates text to at most Limit characters.
type InputLimiter struct {
	Limit int
}

func newInputLimiter(_ *project.Project, args Args, _ *Dependencies) (Transform, error) {
	raw, ok := args.arg("input_limit", 0)
	if !ok {
		return nil, ierrors.Configuration("limit transform requires an input limit")
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, ierrors.Configuration("input limit must be a non-negative integer, got %q", raw)
	}
	return &InputLimiter{Limit: n}, nil
}

func (l *InputLimiter) Name() string { return "limit" }

func (l *InputLimiter) Transform(text string) string {
	if l.Limit == 0 || len(text) <= l.Limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= l.Limit {
		return text
	}
	return string(runes[:l.Limit])
}
