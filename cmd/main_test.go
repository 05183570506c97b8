package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/pitchlens/pkg/metrics"
)

const metadataDoc = `{
  "id": 1886347,
  "home_team": {"id": 100, "name": "Auckland FC"},
  "away_team": {"id": 200, "name": "Newcastle Jets"},
  "home_team_side": ["left_to_right", "right_to_left"],
  "pitch_length": 104,
  "pitch_width": 68,
  "players": [
    {"id": 1, "short_name": "H. Home", "number": 9, "team_id": 100,
     "start_time": "00:00:00", "end_time": null,
     "player_role": {"position_group": "Forward", "name": "Center Forward", "acronym": "CF"}},
    {"id": 2, "short_name": "A. Away", "number": 1, "team_id": 200,
     "start_time": "00:00:00", "end_time": null,
     "player_role": {"position_group": "Goalkeeper", "name": "Goalkeeper", "acronym": "GK"}}
  ]
}`

func frameLine(frame int64) string {
	return fmt.Sprintf(`{"frame": %d, "timestamp": "00:00:%02d.00", "period": 1,`+
		` "ball_data": {"x": 0.1, "y": 0.2, "z": 0.3, "is_detected": true},`+
		` "possession": {"player_id": null, "group": null},`+
		` "player_data": [{"x": 1.5, "y": 2.5, "player_id": 1, "is_detected": true},`+
		` {"x": -3.5, "y": 0.5, "player_id": 2, "is_detected": false}]}`, frame, frame)
}

// cli runs the command line in a scratch directory and captures its output.
type cli struct {
	dir      string
	metadata string
	tracking string
}

func newCLI(t *testing.T) cli {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return path
	}
	t.Setenv("PITCHLENS_ARTIFACT_ROOT", filepath.Join(dir, "artifacts"))
	t.Setenv("PITCHLENS_LOG_LEVEL", "error")
	t.Setenv("PITCHLENS_METRICS_FILE", filepath.Join(dir, "pitchlens.prom"))
	return cli{
		dir:      dir,
		metadata: write("match_data.json", metadataDoc),
		tracking: write("tracking.jsonl", frameLine(1)+"\n"+frameLine(2)+"\n"),
	}
}

func (c cli) run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun(t *testing.T) {
	c := newCLI(t)
	code, out, errOut := c.run("enrich", "-metadata", c.metadata, "-tracking", c.tracking)

	convey.Convey("Given a match enriched from the command line", t, func() {
		convey.Convey("Then the run report is printed", func() {
			convey.So(errOut, convey.ShouldBeEmpty)
			convey.So(code, convey.ShouldEqual, exitOK)
			convey.So(out, convey.ShouldContainSubstring, `"match_id": "1886347"`)
			convey.So(out, convey.ShouldContainSubstring, `"rows": 4`)
		})

		convey.Convey("Then the metrics file is written", func() {
			data, err := os.ReadFile(filepath.Join(c.dir, "pitchlens.prom"))
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(data), convey.ShouldContainSubstring, "pitchlens_")
		})

		convey.Convey("Then the stored report can be printed", func() {
			code, out, _ := c.run("report", "-match", "1886347")
			convey.So(code, convey.ShouldEqual, exitOK)
			convey.So(out, convey.ShouldContainSubstring, `"run_id"`)
		})

		convey.Convey("Then a field of the knowledge bank can be looked up", func() {
			code, out, _ := c.run("field", "-match", "1886347", "-dataset", "enriched_tracking", "-field", "player_id")
			convey.So(code, convey.ShouldEqual, exitOK)
			convey.So(out, convey.ShouldContainSubstring, `"field_name": "player_id"`)
			convey.So(out, convey.ShouldContainSubstring, `"inferred_type": "identifier"`)

			code, _, errOut := c.run("field", "-match", "1886347", "-dataset", "enriched_tracking", "-field", "nope")
			convey.So(code, convey.ShouldEqual, exitInput)
			convey.So(errOut, convey.ShouldContainSubstring, "nope")
		})

		convey.Convey("Then enriching it again needs -reprocess", func() {
			code, _, errOut := c.run("enrich", "-metadata", c.metadata, "-tracking", c.tracking)
			convey.So(code, convey.ShouldEqual, exitInput)
			convey.So(errOut, convey.ShouldNotBeEmpty)

			code, _, _ = c.run("enrich", "-metadata", c.metadata, "-tracking", c.tracking, "-reprocess")
			convey.So(code, convey.ShouldEqual, exitOK)
		})
	})
}

func TestRunFailures(t *testing.T) {
	c := newCLI(t)

	convey.Convey("Given invalid invocations", t, func() {
		convey.Convey("When no command is given", func() {
			code, _, errOut := c.run()
			convey.So(code, convey.ShouldEqual, exitInput)
			convey.So(errOut, convey.ShouldContainSubstring, "Usage:")
		})

		convey.Convey("When the command is unknown", func() {
			code, _, errOut := c.run("score")
			convey.So(code, convey.ShouldEqual, exitInput)
			convey.So(errOut, convey.ShouldContainSubstring, `unknown command "score"`)
		})

		convey.Convey("When required flags are missing", func() {
			code, _, errOut := c.run("enrich", "-metadata", c.metadata)
			convey.So(code, convey.ShouldEqual, exitInput)
			convey.So(errOut, convey.ShouldContainSubstring, "-tracking")

			code, _, _ = c.run("report")
			convey.So(code, convey.ShouldEqual, exitInput)
		})

		convey.Convey("When an input file does not exist", func() {
			code, out, errOut := c.run("enrich", "-metadata", filepath.Join(c.dir, "missing.json"), "-tracking", c.tracking)
			convey.So(code, convey.ShouldEqual, exitInput)
			convey.So(out, convey.ShouldBeEmpty)
			convey.So(strings.Count(errOut, "\n"), convey.ShouldEqual, 1)
		})

		convey.Convey("When a match was never processed", func() {
			code, _, _ := c.run("report", "-match", "404")
			convey.So(code, convey.ShouldEqual, exitInput)
		})

		convey.Convey("When the configuration is invalid", func() {
			t.Setenv("PITCHLENS_TRACKING__ON_MALFORMED", "explode")
			code, _, errOut := c.run("report", "-match", "1")
			convey.So(code, convey.ShouldEqual, exitInput)
			convey.So(errOut, convey.ShouldContainSubstring, "explode")
		})
	})
}

func TestServe(t *testing.T) {
	newCLI(t)

	convey.Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		convey.Convey("When the API is served", func() {
			var stdout, stderr bytes.Buffer
			code := run(ctx, []string{"serve", "-addr", "127.0.0.1:0"}, &stdout, &stderr)

			convey.Convey("Then it shuts down cleanly", func() {
				convey.So(stderr.String(), convey.ShouldBeEmpty)
				convey.So(code, convey.ShouldEqual, exitOK)
			})
		})
	})
}

func TestMetricsHelpers(t *testing.T) {
	convey.Convey("Given the metrics helpers", t, func() {
		convey.Convey("When the system metrics updater runs until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startSystemMetricsUpdater(ctx)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When system metrics are updated", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("When no metrics address is set", func() {
			stop := serveMetrics(context.Background(), "", nil)
			convey.So(stop, convey.ShouldNotPanic)
		})

		convey.Convey("When a metrics manager uses its own registry", func() {
			manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
			convey.So(manager, convey.ShouldNotBeNil)
		})
	})
}
