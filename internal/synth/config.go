package synth

import "time"

// Config holds configuration for a synthetic match.
type Config struct {
	MatchID         int64  `validate:"gt=0"`
	PlayersPerTeam  int    `validate:"gte=1"`
	Substitutes     int    `validate:"gte=0,ltefield=PlayersPerTeam"`
	Bench           int    `validate:"gte=0"`
	FramesPerPeriod int    `validate:"gte=1"`
	FrameRate       int    `validate:"gte=1"`
	StrayFrames     int    `validate:"gte=0"`
	DuplicateFrames int    `validate:"gte=0"`
	MalformedLines  int    `validate:"gte=0"`
	ChunkFrames     int    `validate:"gte=1"`
	Workers         int    `validate:"gte=1"`
	OutputDir       string `validate:"required"`

	// Seed drives every random choice; equal seeds give equal files.
	Seed uint64
	// Verify runs the pipeline on the output and checks the counts.
	Verify  bool
	Verbose bool
}

// Default configuration values.
const (
	DefaultMatchID         = 1886347
	DefaultPlayersPerTeam  = 11
	DefaultSubstitutes     = 3
	DefaultBench           = 4
	DefaultFramesPerPeriod = 27000
	DefaultFrameRate       = 10
	DefaultChunkFrames     = 500
)

// Stats holds generation statistics.
type Stats struct {
	Players         int
	Excluded        int
	Frames          int
	TrackingLines   int
	ExpectedRows    int
	StrayRows       int
	DuplicateFrames int
	MalformedLines  int
	Events          int
	Phases          int
	Files           Files
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

// Files names the generated inputs.
type Files struct {
	Metadata string
	Tracking string
	Events   string
	Phases   string
}
