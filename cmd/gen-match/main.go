package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/okian/pitchlens/internal/synth"
	"github.com/okian/pitchlens/pkg/logger"
)

func main() {
	var (
		outputDir  = flag.String("out", "synthetic", "Output directory")
		matchID    = flag.Int64("match", synth.DefaultMatchID, "Match id")
		players    = flag.Int("players", synth.DefaultPlayersPerTeam, "Players on the pitch per team")
		subs       = flag.Int("subs", synth.DefaultSubstitutes, "Half-time substitutions per team")
		bench      = flag.Int("bench", synth.DefaultBench, "Unused substitutes per team")
		frames     = flag.Int("frames", synth.DefaultFramesPerPeriod, "Tracking frames per half")
		rate       = flag.Int("rate", synth.DefaultFrameRate, "Frames per second")
		stray      = flag.Int("stray", 0, "Frames carrying a player missing from the roster")
		duplicates = flag.Int("duplicates", 0, "Frames written twice")
		malformed  = flag.Int("malformed", 0, "Malformed lines mixed into the tracking stream")
		workers    = flag.Int("workers", runtime.NumCPU(), "Concurrent encoders")
		seed       = flag.Uint64("seed", 1, "Random seed")
		verify     = flag.Bool("verify", false, "Enrich the output and check the counts")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		synth.ShowHelp(os.Stdout)
		return
	}

	if err := synth.SetupLogging(*verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &synth.Config{
		MatchID:         *matchID,
		PlayersPerTeam:  *players,
		Substitutes:     *subs,
		Bench:           *bench,
		FramesPerPeriod: *frames,
		FrameRate:       *rate,
		StrayFrames:     *stray,
		DuplicateFrames: *duplicates,
		MalformedLines:  *malformed,
		ChunkFrames:     synth.DefaultChunkFrames,
		Workers:         *workers,
		OutputDir:       *outputDir,
		Seed:            *seed,
		Verify:          *verify,
		Verbose:         *verbose,
	}

	if _, err := synth.Run(ctx, cfg, synth.WithLogger(logger.Named("gen-match"))); err != nil {
		os.Stderr.WriteString("Generation failed: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
