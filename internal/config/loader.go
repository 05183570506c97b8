package config

import (
	"context"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/pitchlens/internal/domain/introspect"
	"github.com/okian/pitchlens/internal/domain/tracking"
)

// Environment variables understood by Load.
const (
	EnvPrefix  = "PITCHLENS_"
	EnvConfig  = EnvPrefix + "CONFIG"
	EnvDotfile = EnvPrefix + "ENV_FILE"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PITCHLENS_CONFIG is set
//  3. env (prefix PITCHLENS_, "__" separates nested keys)
//
// A .env file (or PITCHLENS_ENV_FILE) is read first; variables already set
// in the process win over it.
func Load(_ context.Context) (*Config, error) {
	if err := loadDotenv(); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "read env file"), ErrLoadConfig)
	}

	k := koanf.New(".")

	if path := os.Getenv(EnvConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "read %s", path), ErrLoadConfig)
		}
	}

	// PITCHLENS_ROSTER__DEFAULT_MATCH_LENGTH -> roster.default_match_length
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "read environment"), ErrLoadConfig)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode"), ErrLoadConfig)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotenv() error {
	path := os.Getenv(EnvDotfile)
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

var (
	logLevels    = []string{"debug", "info", "warn", "error"}
	compressions = []string{"snappy", "zstd", "gzip", "none"}
)

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.Mark(errors.Newf(format, args...), ErrInvalidConfig)
	}

	switch {
	case !slices.Contains(logLevels, c.LogLevel):
		return invalid("log_level must be one of %v, got %q", logLevels, c.LogLevel)
	case strings.TrimSpace(c.ArtifactRoot) == "":
		return invalid("artifact_root must not be empty")
	case c.WorkerCount < 1:
		return invalid("worker_count must be positive, got %d", c.WorkerCount)
	case c.QueueSize < 1:
		return invalid("queue_size must be positive, got %d", c.QueueSize)
	case c.BatchFrames < 1:
		return invalid("batch_frames must be positive, got %d", c.BatchFrames)
	case c.Roster.DefaultMatchLength <= 0:
		return invalid("roster.default_match_length must be positive, got %v", c.Roster.DefaultMatchLength)
	case c.Roster.GoalkeeperAcronym == "":
		return invalid("roster.goalkeeper_acronym must not be empty")
	case c.Tracking.MaxLineBytes < 1024:
		return invalid("tracking.max_line_bytes must be at least 1024, got %d", c.Tracking.MaxLineBytes)
	case !slices.Contains(compressions, c.Output.Compression):
		return invalid("output.compression must be one of %v, got %q", compressions, c.Output.Compression)
	case c.KnowledgeBank.SampleLimit < 1 || c.KnowledgeBank.SampleRows < 1:
		return invalid("knowledge_bank sample sizes must be positive")
	case c.KnowledgeBank.MaxSamples < 0:
		return invalid("knowledge_bank.max_samples must not be negative")
	case c.KnowledgeBank.CategoricalThreshold < 1:
		return invalid("knowledge_bank.categorical_threshold must be positive")
	}

	if _, err := tracking.ParsePolicy(c.Tracking.OnMalformed); err != nil {
		return errors.Mark(errors.Wrap(err, "tracking.on_malformed"), ErrInvalidConfig)
	}
	if _, err := introspect.ParseFormat(c.KnowledgeBank.Format); err != nil {
		return errors.Mark(errors.Wrap(err, "knowledge_bank.format"), ErrInvalidConfig)
	}
	return nil
}
