package introspect

import (
	"runtime"

	"github.com/okian/pitchlens/internal/domain/diag"
	"github.com/okian/pitchlens/pkg/logger"
)

// Default scan configuration.
const (
	DefaultSampleLimit          = 1000
	DefaultMaxSamples           = 5
	DefaultCategoricalThreshold = 20
)

// Option configures an Introspector.
type Option func(*Introspector)

// WithSampleLimit caps the non-null values inspected per column.
func WithSampleLimit(n int) Option {
	return func(in *Introspector) {
		if n > 0 {
			in.sampleLimit = n
		}
	}
}

// WithMaxSamples caps the distinct sample values reported per field.
func WithMaxSamples(n int) Option {
	return func(in *Introspector) {
		if n > 0 {
			in.maxSamples = n
		}
	}
}

// WithCategoricalThreshold sets the distinct-value count below which a
// column is categorical.
func WithCategoricalThreshold(n int) Option {
	return func(in *Introspector) {
		if n > 0 {
			in.threshold = n
		}
	}
}

// WithWorkers sets how many columns are scanned at once.
func WithWorkers(n int) Option {
	return func(in *Introspector) {
		if n > 0 {
			in.workers = n
		}
	}
}

// WithCatalogs sets the per-dataset field configuration.
func WithCatalogs(catalogs map[string]Catalog) Option {
	return func(in *Introspector) {
		for name, c := range catalogs {
			in.catalogs[name] = compile(c)
		}
	}
}

// WithCollector records configuration gaps in c.
func WithCollector(c *diag.Collector) Option {
	return func(in *Introspector) {
		in.collector = c
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(in *Introspector) {
		if l != nil {
			in.logger = l
		}
	}
}

func defaultWorkers() int {
	return runtime.NumCPU()
}
