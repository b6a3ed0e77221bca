package indexing

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	ierrors "github.com/hrygo/subjectindex/internal/errors"
	"github.com/hrygo/subjectindex/plugin/backend"
)

// ProjectConfig is one entry of the project definitions file.
type ProjectConfig struct {
	ID        string            `mapstructure:"id"`
	Name      string            `mapstructure:"name"`
	Language  string            `mapstructure:"language"`
	Backend   string            `mapstructure:"backend"`
	Vocab     string            `mapstructure:"vocab"`
	Transform string            `mapstructure:"transform"`
	Analyzer  string            `mapstructure:"analyzer"`
	Params    map[string]string `mapstructure:"params"`
}

// BackendParams returns the configured backend parameters.
func (c ProjectConfig) BackendParams() backend.Params {
	params := make(backend.Params, len(c.Params))
	for k, v := range c.Params {
		params[k] = v
	}
	return params
}

// LoadProjects reads project definitions from a yaml, toml or json file:
//
//	projects:
//	  - id: maui-en
//	    language: en
//	    backend: maui
//	    vocab: subjects.tsv
//	    transform: filter_lang,limit(5000)
//	    analyzer: simple(3)
//	    params:
//	      endpoint: http://localhost:8080/mauiservice/
//	      tagger: maui-en
//
// Relative vocabulary paths are resolved against the file's directory.
func LoadProjects(path string) ([]ProjectConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read projects file %s", path)
	}

	var configs []ProjectConfig
	if err := v.UnmarshalKey("projects", &configs); err != nil {
		return nil, errors.Wrapf(err, "failed to parse projects file %s", path)
	}

	dir := filepath.Dir(path)
	for i := range configs {
		if vocab := configs[i].Vocab; vocab != "" && !filepath.IsAbs(vocab) {
			configs[i].Vocab = filepath.Join(dir, vocab)
		}
	}
	if err := ValidateProjects(configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// ValidateProjects checks that every project has an id, a language and a
// backend, and that ids are unique.
func ValidateProjects(configs []ProjectConfig) error {
	seen := make(map[string]bool, len(configs))
	for i, c := range configs {
		id := strings.TrimSpace(c.ID)
		switch {
		case id == "":
			return ierrors.Configuration("project #%d has no id", i+1)
		case seen[id]:
			return ierrors.Configuration("duplicate project id %s", id)
		case strings.TrimSpace(c.Language) == "":
			return ierrors.Configuration("project %s: language setting is missing", id)
		case strings.TrimSpace(c.Backend) == "":
			return ierrors.Configuration("project %s: backend setting is missing", id)
		}
		seen[id] = true
	}
	return nil
}
