package service

import (
	"github.com/okian/pitchlens/internal/domain/introspect"
	"github.com/okian/pitchlens/internal/domain/roster"
	"github.com/okian/pitchlens/internal/domain/tracking"
	"github.com/okian/pitchlens/pkg/logger"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithWorkerCount sets the number of join workers.
func WithWorkerCount(count int) Option {
	return func(p *Pipeline) {
		if count > 0 {
			p.workerCount = count
		}
	}
}

// WithQueueSize sets how many frame batches may wait for a worker.
func WithQueueSize(size int) Option {
	return func(p *Pipeline) {
		if size > 0 {
			p.queueSize = size
		}
	}
}

// WithCompression sets the enriched tracking compression codec name.
func WithCompression(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.compression = name
		}
	}
}

// WithKnowledgeBankFormat sets the knowledge bank serialization.
func WithKnowledgeBankFormat(f introspect.Format) Option {
	return func(p *Pipeline) {
		if f != "" {
			p.format = f
		}
	}
}

// WithDescription sets the knowledge bank description.
func WithDescription(description string) Option {
	return func(p *Pipeline) {
		p.description = description
	}
}

// WithSampleRows caps the rows each raw dataset adapter keeps for inference.
func WithSampleRows(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.sampleRows = n
		}
	}
}

// WithReprocess invalidates existing artifacts of the match before writing.
func WithReprocess(reprocess bool) Option {
	return func(p *Pipeline) {
		p.reprocess = reprocess
	}
}

// WithRosterOptions passes options to the metadata normalizer.
func WithRosterOptions(opts ...roster.Option) Option {
	return func(p *Pipeline) {
		p.rosterOpts = append(p.rosterOpts, opts...)
	}
}

// WithTrackingOptions passes options to the tracking flattener.
func WithTrackingOptions(opts ...tracking.Option) Option {
	return func(p *Pipeline) {
		p.trackingOpts = append(p.trackingOpts, opts...)
	}
}

// WithIntrospectOptions passes options to the schema introspector.
func WithIntrospectOptions(opts ...introspect.Option) Option {
	return func(p *Pipeline) {
		p.introspectOpts = append(p.introspectOpts, opts...)
	}
}

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}
