package synth

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/okian/pitchlens/pkg/logger"
)

// Run generates the match described by cfg into cfg.OutputDir and, when
// cfg.Verify is set, checks that the pipeline reproduces the expected counts.
func Run(ctx context.Context, cfg *Config, opts ...Option) (*Stats, error) {
	s := settings{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&s)
	}
	log := s.logger

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	if err := os.MkdirAll(cfg.OutputDir, directoryPermission); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}

	start := time.Now()
	log.Info(ctx, "generating synthetic match",
		logger.Int64("matchID", cfg.MatchID),
		logger.Int("playersPerTeam", cfg.PlayersPerTeam),
		logger.Int("framesPerPeriod", cfg.FramesPerPeriod),
		logger.Int("workers", cfg.Workers),
		logger.String("outputDir", cfg.OutputDir))

	g := NewGenerator(*cfg)
	stats := g.Expect()
	stats.StartTime = start
	stats.Files = Files{
		Metadata: filepath.Join(cfg.OutputDir, MetadataFile),
		Tracking: filepath.Join(cfg.OutputDir, TrackingFile),
		Events:   filepath.Join(cfg.OutputDir, EventsFile),
		Phases:   filepath.Join(cfg.OutputDir, PhasesFile),
	}

	// Step 1: Metadata
	if err := writeFile(stats.Files.Metadata, g.WriteMetadata); err != nil {
		return nil, errors.Wrap(err, "metadata generation failed")
	}

	// Step 2: Tracking
	err := writeFile(stats.Files.Tracking, func(w io.Writer) error {
		lines, err := g.WriteTracking(ctx, w)
		if err == nil && lines != stats.TrackingLines {
			err = errors.Newf("wrote %d tracking lines, expected %d", lines, stats.TrackingLines)
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "tracking generation failed")
	}

	// Step 3: Events and phases
	err = writeFile(stats.Files.Events, func(w io.Writer) (err error) {
		stats.Events, err = g.WriteEvents(w)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "event generation failed")
	}
	err = writeFile(stats.Files.Phases, func(w io.Writer) (err error) {
		stats.Phases, err = g.WritePhases(w)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "phase generation failed")
	}

	// Step 4: Verify
	if cfg.Verify {
		if err := verify(ctx, cfg, &stats, log); err != nil {
			return &stats, errors.Wrap(err, "result verification failed")
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, &stats)
	return &stats, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}

// displayFinalStats logs the final generation statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var rowsPerSecond float64
	if stats.Duration > 0 {
		rowsPerSecond = float64(stats.ExpectedRows) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("players", stats.Players),
		logger.Int("excluded", stats.Excluded),
		logger.Int("frames", stats.Frames),
		logger.Int("trackingLines", stats.TrackingLines),
		logger.Int("expectedRows", stats.ExpectedRows),
		logger.Int("strayRows", stats.StrayRows),
		logger.Int("duplicateFrames", stats.DuplicateFrames),
		logger.Int("malformedLines", stats.MalformedLines),
		logger.Int("events", stats.Events),
		logger.Int("phases", stats.Phases),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("rowsPerSecond", rowsPerSecond))
}
