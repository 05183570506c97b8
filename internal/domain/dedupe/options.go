package dedupe

type config struct {
	maxSize int
}

// Option configures a deduper.
type Option func(*config)

// WithMaxSize sets the number of keys kept in memory.
// If maxSize > 0: bounded mode, oldest key evicted first.
// If maxSize <= 0: unbounded mode.
func WithMaxSize(maxSize int) Option {
	return func(c *config) {
		c.maxSize = maxSize
	}
}
