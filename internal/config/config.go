// Package config defines pipeline configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"runtime"

	"github.com/okian/pitchlens/internal/domain/clock"
	"github.com/okian/pitchlens/internal/domain/introspect"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// ArtifactRoot is the directory artifacts are written under, one
	// subdirectory per match.
	ArtifactRoot string `koanf:"artifact_root"`

	// WorkerCount sets the number of join workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the number of frame batches waiting for a worker.
	QueueSize int `koanf:"queue_size"`

	// BatchFrames is the number of frames flattened into one batch.
	BatchFrames int `koanf:"batch_frames"`

	// MetricsFile, when set, receives the Prometheus text exposition at exit.
	MetricsFile string `koanf:"metrics_file"`

	// MetricsAddr, when set, serves /metrics while the run is in progress.
	MetricsAddr string `koanf:"metrics_addr"`

	// HTTPAddr is the listen address of the artifact API.
	HTTPAddr string `koanf:"http_addr"`

	Roster        RosterConfig        `koanf:"roster"`
	Tracking      TrackingConfig      `koanf:"tracking"`
	Output        OutputConfig        `koanf:"output"`
	KnowledgeBank KnowledgeBankConfig `koanf:"knowledge_bank"`
}

// RosterConfig tunes metadata normalization.
type RosterConfig struct {
	// DefaultMatchLength is used as a player's end time when it is null.
	DefaultMatchLength float64 `koanf:"default_match_length"`
	// GoalkeeperAcronym identifies goalkeepers by position acronym.
	GoalkeeperAcronym string `koanf:"goalkeeper_acronym"`
}

// TrackingConfig tunes tracking decoding.
type TrackingConfig struct {
	// OnMalformed is "abort" or "skip".
	OnMalformed  string `koanf:"on_malformed"`
	MaxLineBytes int    `koanf:"max_line_bytes"`
	DedupeWindow int    `koanf:"dedupe_window"`
}

// OutputConfig controls the enriched tracking artifact.
type OutputConfig struct {
	// Compression is one of snappy, zstd, gzip or none.
	Compression string `koanf:"compression"`
}

// KnowledgeBankConfig controls schema introspection.
type KnowledgeBankConfig struct {
	Description          string                   `koanf:"description"`
	Format               string                   `koanf:"format"`
	SampleRows           int                      `koanf:"sample_rows"`
	SampleLimit          int                      `koanf:"sample_limit"`
	MaxSamples           int                      `koanf:"max_samples"`
	CategoricalThreshold int                      `koanf:"categorical_threshold"`
	Workers              int                      `koanf:"workers"`
	Datasets             map[string]DatasetConfig `koanf:"datasets"`
}

// DatasetConfig is the field catalog of one dataset.
type DatasetConfig struct {
	Description    string              `koanf:"description"`
	CriticalFields []string            `koanf:"critical_fields"`
	Categories     map[string][]string `koanf:"categories"`
	Descriptions   map[string]string   `koanf:"descriptions"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		ArtifactRoot: "artifacts",
		WorkerCount:  runtime.NumCPU(),
		QueueSize:    64,
		BatchFrames:  250,
		HTTPAddr:     ":9080",
		Roster: RosterConfig{
			DefaultMatchLength: clock.FullMatch,
			GoalkeeperAcronym:  "GK",
		},
		Tracking: TrackingConfig{
			OnMalformed:  "abort",
			MaxLineBytes: 4 << 20,
			DedupeWindow: 50_000,
		},
		Output: OutputConfig{
			Compression: "snappy",
		},
		KnowledgeBank: KnowledgeBankConfig{
			Description:          "Match dataset field documentation and knowledge bank",
			Format:               "json",
			SampleRows:           1000,
			SampleLimit:          1000,
			MaxSamples:           5,
			CategoricalThreshold: 20,
			Workers:              runtime.NumCPU(),
			Datasets:             defaultDatasets(),
		},
	}
}

// Catalogs converts the configured datasets into introspection catalogs.
func (c *Config) Catalogs() map[string]introspect.Catalog {
	out := make(map[string]introspect.Catalog, len(c.KnowledgeBank.Datasets))
	for name, ds := range c.KnowledgeBank.Datasets {
		out[name] = introspect.Catalog{
			Description:    ds.Description,
			CriticalFields: ds.CriticalFields,
			Categories:     ds.Categories,
			Descriptions:   ds.Descriptions,
		}
	}
	return out
}
