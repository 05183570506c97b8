package roster

import (
	"github.com/okian/pitchlens/internal/domain/clock"
	"github.com/okian/pitchlens/pkg/logger"
)

// Default normalizer configuration.
const (
	DefaultMatchLength       = float64(clock.FullMatch)
	DefaultGoalkeeperAcronym = "GK"
)

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithDefaultMatchLength sets the end time, in seconds, used for players
// without a recorded end time.
func WithDefaultMatchLength(seconds float64) Option {
	return func(n *Normalizer) {
		if seconds > 0 {
			n.defaultEnd = seconds
		}
	}
}

// WithGoalkeeperAcronym sets the position acronym that marks goalkeepers.
func WithGoalkeeperAcronym(acronym string) Option {
	return func(n *Normalizer) {
		if acronym != "" {
			n.gkAcronym = acronym
		}
	}
}

// WithLogger sets the normalizer logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}
