package tracking

import (
	"fmt"

	"github.com/okian/pitchlens/internal/domain/diag"
	"github.com/okian/pitchlens/pkg/logger"
)

// Policy decides what happens to a malformed tracking line.
type Policy string

const (
	// Skip counts the line in diagnostics and continues.
	Skip Policy = "skip"
	// Abort fails the run on the first malformed line.
	Abort Policy = "abort"
)

// ParsePolicy converts a configuration value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case Skip, Abort:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Default decoder and flattener configuration.
const (
	DefaultMaxLineBytes = 4 << 20
	DefaultBatchFrames  = 250
	DefaultDedupeWindow = 50000
)

// Option configures a Decoder or Flattener.
type Option func(*settings)

type settings struct {
	policy       Policy
	maxLineBytes int
	batchFrames  int
	dedupeWindow int
	collector    *diag.Collector
	logger       logger.Logger
}

func defaults() settings {
	return settings{
		policy:       Abort,
		maxLineBytes: DefaultMaxLineBytes,
		batchFrames:  DefaultBatchFrames,
		dedupeWindow: DefaultDedupeWindow,
		logger:       logger.Nop(),
	}
}

// WithPolicy sets the malformed-line policy.
func WithPolicy(p Policy) Option {
	return func(s *settings) {
		if p != "" {
			s.policy = p
		}
	}
}

// WithMaxLineBytes caps the size of a single NDJSON line.
func WithMaxLineBytes(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxLineBytes = n
		}
	}
}

// WithBatchFrames sets how many frames go into one batch.
func WithBatchFrames(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.batchFrames = n
		}
	}
}

// WithDedupeWindow sets how many recent frame ids are remembered for
// duplicate detection. Zero or negative remembers every id.
func WithDedupeWindow(n int) Option {
	return func(s *settings) {
		s.dedupeWindow = n
	}
}

// WithCollector sets where skipped lines and frame anomalies are recorded.
func WithCollector(c *diag.Collector) Option {
	return func(s *settings) {
		s.collector = c
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
