package backend

import (
	"net/http"
	"sort"
	"time"

	ierrors "github.com/hrygo/subjectindex/internal/errors"
	"github.com/hrygo/subjectindex/plugin/project"
)

// Factory constructs a backend instance. Construction never validates
// required parameters; operations that need them do.
type Factory func(id string, params Params, p *project.Project) (Backend, error)

// optionalVariants are known backends whose algorithm is provided by an
// external capability, keyed by variant name.
var optionalVariants = map[string]string{
	"fasttext":    "fastText",
	"omikuji":     "Omikuji",
	"nn_ensemble": "TensorFlow",
	"yake":        "YAKE",
}

// Variant describes one known backend identifier.
type Variant struct {
	Name       string `json:"name"`
	Available  bool   `json:"available"`
	Capability string `json:"capability,omitempty"`
}

// Config holds process-wide settings shared by backend factories.
type Config struct {
	HTTPClient   *http.Client
	PollInterval time.Duration
	TrainTimeout time.Duration
	LLM          LLMConfig
}

// LLMConfig configures the OpenAI-compatible client of the llm backend.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithProvider supplies the implementation of a backend variant, making an
// optional variant available or replacing a built-in one.
func WithProvider(name string, factory Factory) RegistryOption {
	return func(r *Registry) { r.providers[name] = factory }
}

// WithHTTPClient sets the client used by remote backends.
func WithHTTPClient(client *http.Client) RegistryOption {
	return func(r *Registry) { r.config.HTTPClient = client }
}

// WithTrainingBounds sets the default remote training poll interval and timeout.
func WithTrainingBounds(pollInterval, timeout time.Duration) RegistryOption {
	return func(r *Registry) {
		r.config.PollInterval = pollInterval
		r.config.TrainTimeout = timeout
	}
}

// WithLLM configures the llm backend client.
func WithLLM(cfg LLMConfig) RegistryOption {
	return func(r *Registry) { r.config.LLM = cfg }
}

// Registry resolves backend identifiers. Availability of optional variants
// is fixed when the registry is built.
type Registry struct {
	config    Config
	providers map[string]Factory
	factories map[string]Factory
}

// NewRegistry builds a registry with the built-in variants.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		config: Config{
			HTTPClient:   &http.Client{Timeout: 60 * time.Second},
			PollInterval: time.Second,
			TrainTimeout: 2 * time.Hour,
		},
		providers: make(map[string]Factory),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.factories = map[string]Factory{
		"dummy":    newDummy,
		"maui":     r.newMaui,
		"http":     r.newHTTP,
		"llm":      r.newLLM,
		"ensemble": newEnsemble,
	}
	for name, factory := range r.providers {
		r.factories[name] = factory
	}
	return r
}

// Get resolves name to a factory. Unknown names fail with
// BACKEND_NOT_FOUND; known optional variants without a provider fail with
// DEPENDENCY_MISSING naming the capability.
func (r *Registry) Get(name string) (Factory, error) {
	if factory, ok := r.factories[name]; ok {
		return factory, nil
	}
	if capability, ok := optionalVariants[name]; ok {
		return nil, ierrors.DependencyMissing(capability)
	}
	return nil, ierrors.BackendNotFound(name)
}

// New resolves name and constructs a backend.
func (r *Registry) New(name, id string, params Params, p *project.Project) (Backend, error) {
	factory, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return factory(id, params, p)
}

// Variants lists every known identifier with its availability.
func (r *Registry) Variants() []Variant {
	seen := make(map[string]bool)
	var variants []Variant
	for name := range r.factories {
		seen[name] = true
		variants = append(variants, Variant{Name: name, Available: true, Capability: optionalVariants[name]})
	}
	for name, capability := range optionalVariants {
		if !seen[name] {
			variants = append(variants, Variant{Name: name, Available: false, Capability: capability})
		}
	}
	sort.Slice(variants, func(i, j int) bool { return variants[i].Name < variants[j].Name })
	return variants
}
