// Package transform preprocesses input text before it reaches a backend.
// Transforms are configured with a spec string such as
// "filter_lang(text_min_length=300),limit(5000)".
package transform

import (
	"regexp"
	"sort"
	"strings"

	ierrors "github.com/hrygo/subjectindex/internal/errors"
	"github.com/hrygo/subjectindex/plugin/langdetect"
	"github.com/hrygo/subjectindex/plugin/project"
)

// Transform rewrites text. Implementations are pure functions of their
// input and safe for concurrent use.
type Transform interface {
	Name() string
	Transform(text string) string
}

// Chain applies transforms in order.
type Chain struct {
	transforms []Transform
}

// NewChain creates a chain of transforms.
func NewChain(transforms ...Transform) *Chain {
	return &Chain{transforms: transforms}
}

func (c *Chain) Name() string {
	names := make([]string, len(c.transforms))
	for i, t := range c.transforms {
		names[i] = t.Name()
	}
	return strings.Join(names, ",")
}

func (c *Chain) Transform(text string) string {
	for _, t := range c.transforms {
		text = t.Transform(text)
	}
	return text
}

// Len returns the number of transforms in the chain.
func (c *Chain) Len() int {
	return len(c.transforms)
}

// Args are the arguments of one transform in a spec.
type Args struct {
	Positional []string
	Keyword    map[string]string
}

// Spec is one parsed transform invocation.
type Spec struct {
	Name string
	Args Args
}

// Factory builds a transform for a project.
type Factory func(p *project.Project, args Args, deps *Dependencies) (Transform, error)

// Dependencies are collaborators shared by transform factories.
type Dependencies struct {
	Detector langdetect.Detector
}

// Option configures New.
type Option func(*Dependencies)

// WithDetector replaces the language detector used by filter_lang.
func WithDetector(d langdetect.Detector) Option {
	return func(deps *Dependencies) { deps.Detector = d }
}

var factories = map[string]Factory{
	"pass":           newIdentity,
	"limit":          newInputLimiter,
	"strip_markdown": newMarkdownStripper,
	"filter_lang":    newLanguageFilter,
}

// Names returns the registered transform names.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// splitSpecs splits on commas that are not inside parentheses.
func splitSpecs(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

var specPattern = regexp.MustCompile(`^(\w+)(?:\((.*)\))?$`)

// Parse parses a transform spec. Unparsable parts are rejected.
func Parse(spec string) ([]Spec, error) {
	var specs []Spec
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}
	for _, part := range splitSpecs(spec) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m := specPattern.FindStringSubmatch(part)
		if m == nil {
			return nil, ierrors.Configuration("invalid transform specification %q", part)
		}
		specs = append(specs, Spec{Name: m[1], Args: parseArgs(m[2])})
	}
	return specs, nil
}

func parseArgs(s string) Args {
	args := Args{Keyword: map[string]string{}}
	if strings.TrimSpace(s) == "" {
		return args
	}
	for _, arg := range strings.Split(s, ",") {
		arg = strings.TrimSpace(arg)
		if key, value, ok := strings.Cut(arg, "="); ok {
			args.Keyword[strings.TrimSpace(key)] = strings.TrimSpace(value)
			continue
		}
		args.Positional = append(args.Positional, arg)
	}
	return args
}

// New builds the chain described by spec for a project. An empty spec
// yields the identity transform. Unknown transforms are configuration
// errors.
func New(spec string, p *project.Project, opts ...Option) (*Chain, error) {
	deps := &Dependencies{Detector: langdetect.NewWhatlang()}
	for _, opt := range opts {
		opt(deps)
	}

	specs, err := Parse(spec)
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return NewChain(identity{}), nil
	}

	transforms := make([]Transform, 0, len(specs))
	for _, s := range specs {
		factory, ok := factories[s.Name]
		if !ok {
			return nil, ierrors.Configuration("no such transform %s", s.Name)
		}
		t, err := factory(p, s.Args, deps)
		if err != nil {
			return nil, err
		}
		transforms = append(transforms, t)
	}
	return NewChain(transforms...), nil
}

// arg returns the keyword argument or the positional argument at index.
func (a Args) arg(key string, index int) (string, bool) {
	if v, ok := a.Keyword[key]; ok {
		return v, true
	}
	if index < len(a.Positional) {
		return a.Positional[index], true
	}
	return "", false
}

type identity struct{}

func newIdentity(*project.Project, Args, *Dependencies) (Transform, error) {
	return identity{}, nil
}

func (identity) Name() string                 { return "pass" }
func (identity) Transform(text string) string { return text }
