package synth

import (
	"fmt"
	"io"

	"github.com/okian/pitchlens/pkg/logger"
)

// SetupLogging initializes the global logger for the generator tool.
func SetupLogging(verbose bool) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the match generator.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Synthetic Match Generator
=========================

Writes a match metadata document, a tracking stream, events and phases of
play that the pitchlens pipeline can enrich. Anomalies can be injected to
exercise its diagnostics.

Usage:
  go run ./cmd/gen-match [options]

Options:
  -out string
        Output directory (default "synthetic")
  -match int
        Match id (default 1886347)
  -players int
        Players on the pitch per team (default 11)
  -subs int
        Half-time substitutions per team (default 3)
  -bench int
        Unused substitutes per team (default 4)
  -frames int
        Tracking frames per half (default 27000)
  -rate int
        Frames per second (default 10)
  -stray int
        Frames carrying a player missing from the roster
  -duplicates int
        Frames written twice
  -malformed int
        Malformed lines mixed into the tracking stream
  -workers int
        Concurrent encoders (default CPU cores)
  -seed uint
        Random seed (default 1)
  -verify
        Enrich the output and check the counts
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # A full match
  go run ./cmd/gen-match -out /tmp/match

  # A short match with anomalies, verified end to end
  go run ./cmd/gen-match -frames 600 -stray 5 -duplicates 3 -malformed 2 -verify
`)
}
