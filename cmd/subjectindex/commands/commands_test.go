package commands

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/subjectindex/internal/profile"
	"github.com/hrygo/subjectindex/plugin/corpus"
	"github.com/hrygo/subjectindex/plugin/suggest"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeProjects(t *testing.T) (configFile string) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"subjects.tsv": "<http://example.org/fish>\tfish\n<http://example.org/ships>\tships\n",
		"projects.yaml": `
projects:
  - id: dummy-en
    language: en
    backend: dummy
    vocab: subjects.tsv
`,
		"config.yaml": "data: " + dir + "\nprojects: " + filepath.Join(dir, "projects.yaml") + "\n",
		"train.tsv":   "Salmon in rivers\t<http://example.org/fish>\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return filepath.Join(dir, "config.yaml")
}

func TestBackendsCommand(t *testing.T) {
	out, err := run(t, "", "backends")
	require.NoError(t, err)
	assert.Contains(t, out, "maui")
	assert.Contains(t, out, "fastText")
}

func TestSuggestAndLearn(t *testing.T) {
	config := writeProjects(t)
	dir := filepath.Dir(config)

	out, err := run(t, "some text", "--config", config, "suggest", "dummy-en")
	require.NoError(t, err)
	assert.Equal(t, "<http://example.org/dummy>\tdummy\t1.0000\n", out)

	_, err = run(t, "", "--config", config, "learn", "dummy-en", filepath.Join(dir, "train.tsv"))
	require.NoError(t, err)

	out, err = run(t, "some text", "--config", config, "suggest", "dummy-en")
	require.NoError(t, err)
	assert.Equal(t, "<http://example.org/fish>\tfish\t1.0000\n", out)

	out, err = run(t, "", "--config", config, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "dummy-en")

	_, err = run(t, "", "--config", config, "suggest", "unknown")
	assert.Error(t, err)
}

func TestOpenCorpus(t *testing.T) {
	dir := t.TempDir()
	tsv := filepath.Join(dir, "docs.tsv")
	require.NoError(t, os.WriteFile(tsv, []byte("a text\t<http://example.org/fish>\n"), 0o644))
	vocab := suggest.NewVocabulary([]suggest.Subject{{URI: "http://example.org/fish", Label: "fish"}})

	c, err := openCorpus([]string{tsv, tsv}, vocab)
	require.NoError(t, err)
	assert.Equal(t, 2, corpus.Count(c))

	_, err = openCorpus([]string{filepath.Join(dir, "docs.json")}, vocab)
	assert.Error(t, err)
}

func TestNewLogHandler(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newLogHandler(&profile.Profile{Mode: "prod"}, &buf)).Info("started", "project", "maui-en")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "started", record["msg"])
	assert.Equal(t, "maui-en", record["project"])

	buf.Reset()
	slog.New(newLogHandler(&profile.Profile{Mode: "dev", LogLevel: "warn"}, &buf)).Info("hidden")
	assert.Empty(t, buf.String())
	slog.New(newLogHandler(&profile.Profile{Mode: "dev"}, &buf)).Info("started")
	assert.Contains(t, buf.String(), "msg=started")
}
