package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by the profile.
const EnvPrefix = "SUBJECTINDEX"

// Profile is the configuration to start the indexer.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the data directory
	Data string
	// DSN points to where backend state is stored
	DSN string
	// Driver is the database driver (only sqlite is supported)
	Driver string
	// ProjectsFile is the path of the project definitions file
	ProjectsFile string
	// LogLevel is one of debug, info, warn, error
	LogLevel string

	// LLM backend configuration
	LLMAPIKey  string // SUBJECTINDEX_LLM_API_KEY
	LLMBaseURL string // SUBJECTINDEX_LLM_BASE_URL (default: https://api.openai.com/v1)
	LLMModel   string // SUBJECTINDEX_LLM_MODEL (default: gpt-4o-mini)

	// Remote training bounds
	TrainPollInterval time.Duration // SUBJECTINDEX_TRAIN_POLL_INTERVAL (default: 1s)
	TrainTimeout      time.Duration // SUBJECTINDEX_TRAIN_TIMEOUT (default: 2h)

	// Suggest orchestration
	SuggestCacheTTL time.Duration // SUBJECTINDEX_SUGGEST_CACHE_TTL (default: 0, disabled)
	SuggestJobs     int           // SUBJECTINDEX_SUGGEST_JOBS (default: 4)

	// Document text extraction
	TikaURL     string        // SUBJECTINDEX_EXTRACT_TIKA_URL (default: "", plain text only)
	TikaTimeout time.Duration // SUBJECTINDEX_EXTRACT_TIMEOUT (default: 30s)
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "dev")
	v.SetDefault("data", ".")
	v.SetDefault("driver", "sqlite")
	v.SetDefault("dsn", "")
	v.SetDefault("projects", "projects.yaml")
	v.SetDefault("log_level", "info")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("train.poll_interval", time.Second)
	v.SetDefault("train.timeout", 2*time.Hour)
	v.SetDefault("suggest.cache_ttl", time.Duration(0))
	v.SetDefault("suggest.jobs", 4)
	v.SetDefault("extract.tika_url", "")
	v.SetDefault("extract.timeout", 30*time.Second)
	return v
}

// Load reads the optional config file, then environment overrides.
func Load(configFile string) (*Profile, error) {
	v := NewViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}
	return FromViper(v), nil
}

// FromViper builds a profile from an already configured viper instance.
func FromViper(v *viper.Viper) *Profile {
	return &Profile{
		Mode:              v.GetString("mode"),
		Data:              v.GetString("data"),
		DSN:               v.GetString("dsn"),
		Driver:            v.GetString("driver"),
		ProjectsFile:      v.GetString("projects"),
		LogLevel:          v.GetString("log_level"),
		LLMAPIKey:         v.GetString("llm.api_key"),
		LLMBaseURL:        v.GetString("llm.base_url"),
		LLMModel:          v.GetString("llm.model"),
		TrainPollInterval: v.GetDuration("train.poll_interval"),
		TrainTimeout:      v.GetDuration("train.timeout"),
		SuggestCacheTTL:   v.GetDuration("suggest.cache_ttl"),
		SuggestJobs:       v.GetInt("suggest.jobs"),
		TikaURL:           v.GetString("extract.tika_url"),
		TikaTimeout:       v.GetDuration("extract.timeout"),
	}
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (p *Profile) SlogLevel() slog.Level {
	switch strings.ToLower(p.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func checkDataDir(dataDir string) (string, error) {
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && (p.Data == "" || p.Data == ".") {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "subjectindex")
		} else {
			p.Data = "/var/opt/subjectindex"
		}
		if err := os.MkdirAll(p.Data, 0770); err != nil {
			slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" {
		return errors.Errorf("unsupported driver %q", p.Driver)
	}
	if p.DSN == "" {
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("subjectindex_%s.db", p.Mode))
	}

	if p.TrainPollInterval <= 0 {
		p.TrainPollInterval = time.Second
	}
	if p.TrainTimeout <= 0 {
		p.TrainTimeout = 2 * time.Hour
	}
	if p.SuggestJobs <= 0 {
		p.SuggestJobs = 1
	}
	return nil
}
