package synth

import "github.com/okian/pitchlens/pkg/logger"

type settings struct {
	logger logger.Logger
}

// Option configures Run.
type Option func(*settings)

// WithLogger sets the logger used for progress output.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
