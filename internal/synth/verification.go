package synth

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/okian/pitchlens/internal/adapters/repository"
	service "github.com/okian/pitchlens/internal/app"
	"github.com/okian/pitchlens/internal/domain/tracking"
	"github.com/okian/pitchlens/pkg/logger"
)

// ArtifactDir is where verification stores the pipeline output, relative to
// the output directory.
const ArtifactDir = "artifacts"

// verify runs the enrichment pipeline on the generated files and compares
// its report with the counts the generator promised.
func verify(ctx context.Context, cfg *Config, stats *Stats, log logger.Logger) error {
	log.Info(ctx, "verifying generated match")

	store, err := repository.NewFileStore(filepath.Join(cfg.OutputDir, ArtifactDir),
		repository.WithLogger(log))
	if err != nil {
		return err
	}
	p := service.New(store,
		service.WithReprocess(true),
		service.WithWorkerCount(cfg.Workers),
		service.WithTrackingOptions(tracking.WithPolicy(tracking.Skip)),
		service.WithLogger(log),
	)
	rep, err := p.Run(ctx, service.Inputs{
		MatchID:  strconv.FormatInt(cfg.MatchID, 10),
		Metadata: stats.Files.Metadata,
		Tracking: stats.Files.Tracking,
		Events:   stats.Files.Events,
		Phases:   stats.Files.Phases,
	})
	if err != nil {
		return errors.Wrap(err, "pipeline run failed")
	}

	if err := compare(stats, rep); err != nil {
		return err
	}
	log.Info(ctx, "verification passed", logger.String("runID", rep.RunID))
	return nil
}

// compare reports every count that differs between stats and rep.
func compare(stats *Stats, rep *service.Report) error {
	var mismatches []string
	check := func(name string, got, want int64) {
		if got != want {
			mismatches = append(mismatches, fmt.Sprintf("%s: got %d, want %d", name, got, want))
		}
	}

	check("roster players", int64(rep.Roster.Players), int64(stats.Players))
	check("excluded players", int64(rep.Roster.Excluded), int64(stats.Excluded))
	check("tracking lines", rep.Tracking.Lines, int64(stats.TrackingLines))
	check("enriched rows", rep.Enriched.Rows, int64(stats.ExpectedRows))
	check("dropped rows", rep.Enriched.Dropped, int64(stats.StrayRows))
	check("unique frames", int64(rep.Enriched.UniqueFrames), int64(stats.Frames))
	check("duplicate frames", rep.Diagnostics.DuplicateFrames, int64(stats.DuplicateFrames))
	check("skipped lines", rep.Diagnostics.SkippedLines, int64(stats.MalformedLines))

	if len(mismatches) > 0 {
		return errors.Newf("counts differ: %s", strings.Join(mismatches, "; "))
	}
	return nil
}
