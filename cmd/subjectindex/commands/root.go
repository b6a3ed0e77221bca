package commands

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/subjectindex/internal/profile"
	"github.com/hrygo/subjectindex/plugin/backend"
	"github.com/hrygo/subjectindex/server/service/indexing"
	"github.com/hrygo/subjectindex/store"
	"github.com/hrygo/subjectindex/store/db"
)

var (
	// Global flags
	cfgFile      string
	projectsFile string
	logLevel     string
	outputJSON   bool

	prof *profile.Profile
)

var rootCmd = &cobra.Command{
	Use:   "subjectindex",
	Short: "Automated subject indexing",
	Long: `subjectindex suggests subjects from a controlled vocabulary for a text.

Each project combines a vocabulary, an input transform and a backend
algorithm. Backends are trained and updated from document corpora.

Examples:
  # Suggest subjects for a text
  echo "Shipwrecks of the Baltic" | subjectindex suggest maui-en

  # Train from a directory of .txt files with .tsv or .key subject files
  subjectindex train maui-en ./corpus/

  # List backends
  subjectindex backends
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initProfile()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml or toml)")
	rootCmd.PersistentFlags().StringVar(&projectsFile, "projects", "", "project definitions file (overrides the projects key)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(backendsCmd)
}

func initProfile() error {
	var err error
	prof, err = profile.Load(cfgFile)
	if err != nil {
		return err
	}
	if projectsFile != "" {
		prof.ProjectsFile = projectsFile
	}
	if logLevel != "" {
		prof.LogLevel = logLevel
	}
	if err := prof.Validate(); err != nil {
		return err
	}

	slog.SetDefault(slog.New(newLogHandler(prof, os.Stderr)))
	return nil
}

// newLogHandler logs text in dev and demo mode and JSON in prod.
func newLogHandler(prof *profile.Profile, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: prof.SlogLevel()}
	if prof.IsDev() {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func newRegistry() *backend.Registry {
	return backend.NewRegistry(
		backend.WithTrainingBounds(prof.TrainPollInterval, prof.TrainTimeout),
		backend.WithLLM(backend.LLMConfig{
			APIKey:  prof.LLMAPIKey,
			BaseURL: prof.LLMBaseURL,
			Model:   prof.LLMModel,
		}),
	)
}

// app is the service together with the store it owns.
type app struct {
	indexing.Service
	store *store.Store
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("failed to close store", "error", err)
	}
}

func newApp(ctx context.Context) (*app, error) {
	driver, err := db.NewDBDriver(prof)
	if err != nil {
		return nil, err
	}
	st := store.New(driver, prof)
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, errors.Wrap(err, "failed to migrate")
	}

	configs, err := indexing.LoadProjects(prof.ProjectsFile)
	if err != nil {
		st.Close()
		return nil, err
	}
	svc, err := indexing.NewService(prof, st, newRegistry(), configs, indexing.WithLogger(slog.Default()))
	if err != nil {
		st.Close()
		return nil, err
	}
	return &app{Service: svc, store: st}, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
