package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/pitchlens/internal/adapters/http/api"
	"github.com/okian/pitchlens/internal/adapters/repository"
	app "github.com/okian/pitchlens/internal/app"
	"github.com/okian/pitchlens/internal/config"
	"github.com/okian/pitchlens/internal/domain/dataerr"
	"github.com/okian/pitchlens/internal/domain/introspect"
	"github.com/okian/pitchlens/internal/domain/roster"
	"github.com/okian/pitchlens/internal/domain/tracking"
	"github.com/okian/pitchlens/pkg/logger"
	"github.com/okian/pitchlens/pkg/metrics"
)

// Exit codes.
const (
	exitOK       = 0
	exitInternal = 1
	exitInput    = 2
)

// Metrics server constants.
const (
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 5 * time.Second
	systemMetricsInterval = 10 * time.Second
)

const usage = `pitchlens enriches football tracking data and documents its datasets.

Usage:
  pitchlens enrich -metadata FILE -tracking FILE [-events FILE] [-phases FILE] [-match ID] [-reprocess]
  pitchlens field  -match ID -dataset NAME -field NAME
  pitchlens report -match ID
  pitchlens serve  [-addr ADDR]

Configuration is read from PITCHLENS_CONFIG (YAML) and PITCHLENS_* variables.
`

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code. Failures are
// printed to stderr as a single message.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = io.WriteString(stderr, usage)
		return exitInput
	}

	if err := logger.Init(); err != nil {
		fmt.Fprintf(stderr, "pitchlens: failed to initialize logging: %v\n", err)
		return exitInternal
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "pitchlens: %v\n", err)
		return exitInput
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}
	log := logger.Named("pitchlens")

	store, err := repository.NewFileStore(cfg.ArtifactRoot, repository.WithLogger(log))
	if err != nil {
		fmt.Fprintf(stderr, "pitchlens: %v\n", err)
		return exitInternal
	}
	opts := pipelineOptions(cfg, log)
	newPipeline := func(extra ...app.Option) *app.Pipeline {
		return app.New(store, slices.Concat(opts, extra)...)
	}

	stopMetrics := serveMetrics(ctx, cfg.MetricsAddr, log)
	defer stopMetrics()
	if cfg.MetricsFile != "" {
		defer func() {
			updateSystemMetrics()
			if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
				log.Warn(ctx, "failed to write metrics file", logger.Error(err))
			}
		}()
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "enrich":
		err = enrich(ctx, newPipeline, rest, stdout, stderr)
	case "field":
		err = field(ctx, newPipeline(), rest, stdout, stderr)
	case "report":
		err = report(ctx, newPipeline(), rest, stdout, stderr)
	case "serve":
		err = serve(ctx, newPipeline(), cfg.HTTPAddr, rest, stderr, log)
	case "help", "-h", "-help", "--help":
		_, _ = io.WriteString(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "pitchlens: unknown command %q\n\n%s", cmd, usage)
		return exitInput
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage), errors.Is(err, repository.ErrAlreadyExists), dataerr.IsInputError(err):
		fmt.Fprintf(stderr, "pitchlens: %v\n", err)
		return exitInput
	default:
		fmt.Fprintf(stderr, "pitchlens: %v\n", err)
		return exitInternal
	}
}

var errUsage = errors.New("usage")

func enrich(ctx context.Context, newPipeline func(...app.Option) *app.Pipeline, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("enrich", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		in        app.Inputs
		reprocess bool
	)
	fs.StringVar(&in.Metadata, "metadata", "", "Match metadata JSON file")
	fs.StringVar(&in.Tracking, "tracking", "", "Tracking NDJSON file")
	fs.StringVar(&in.Events, "events", "", "Events CSV file (optional)")
	fs.StringVar(&in.Phases, "phases", "", "Phases of play CSV file (optional)")
	fs.StringVar(&in.MatchID, "match", "", "Match id (default: metadata id)")
	fs.BoolVar(&reprocess, "reprocess", false, "Replace existing artifacts of the match")
	if err := fs.Parse(args); err != nil {
		return usageError(err)
	}
	if in.Metadata == "" || in.Tracking == "" {
		return fmt.Errorf("%w: -metadata and -tracking are required", errUsage)
	}

	rep, err := newPipeline(app.WithReprocess(reprocess)).Run(ctx, in)
	if err != nil {
		return err
	}
	return rep.Encode(stdout)
}

func field(ctx context.Context, p *app.Pipeline, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("field", flag.ContinueOnError)
	fs.SetOutput(stderr)
	matchID := fs.String("match", "", "Match id")
	dataset := fs.String("dataset", "", "Dataset name, e.g. enriched_tracking")
	name := fs.String("field", "", "Field name")
	if err := fs.Parse(args); err != nil {
		return usageError(err)
	}
	if *matchID == "" || *dataset == "" || *name == "" {
		return fmt.Errorf("%w: -match, -dataset and -field are required", errUsage)
	}

	fd, err := p.Field(ctx, *matchID, *dataset, *name)
	if errors.Is(err, introspect.ErrFieldNotFound) || errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err != nil {
		return err
	}
	out, err := sonic.ConfigStd.MarshalIndent(fd, "", "  ")
	if err != nil {
		return err
	}
	_, err = stdout.Write(append(out, '\n'))
	return err
}

func report(ctx context.Context, p *app.Pipeline, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	matchID := fs.String("match", "", "Match id")
	if err := fs.Parse(args); err != nil {
		return usageError(err)
	}
	if *matchID == "" {
		return fmt.Errorf("%w: -match is required", errUsage)
	}
	rep, err := p.RunReport(ctx, *matchID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err != nil {
		return err
	}
	return rep.Encode(stdout)
}

// serve exposes stored artifacts over HTTP until ctx ends.
func serve(ctx context.Context, p *app.Pipeline, defaultAddr string, args []string, stderr io.Writer, log logger.Logger) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", defaultAddr, "Listen address")
	if err := fs.Parse(args); err != nil {
		return usageError(err)
	}

	mux := http.NewServeMux()
	api.NewServer(p).Register(ctx, mux)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	updaterCtx, stopUpdater := context.WithCancel(ctx)
	defer stopUpdater()
	go startSystemMetricsUpdater(updaterCtx)

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "serving artifact api", logger.String("addr", *addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(ctx, "shutting down artifact api")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func usageError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %v", errUsage, err)
}

// pipelineOptions maps configuration onto pipeline options. cfg has been
// validated, so parse errors cannot occur here.
func pipelineOptions(cfg *config.Config, log logger.Logger) []app.Option {
	policy, _ := tracking.ParsePolicy(cfg.Tracking.OnMalformed)
	format, _ := introspect.ParseFormat(cfg.KnowledgeBank.Format)
	kb := cfg.KnowledgeBank

	return []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithCompression(cfg.Output.Compression),
		app.WithKnowledgeBankFormat(format),
		app.WithDescription(kb.Description),
		app.WithSampleRows(kb.SampleRows),
		app.WithRosterOptions(
			roster.WithDefaultMatchLength(cfg.Roster.DefaultMatchLength),
			roster.WithGoalkeeperAcronym(cfg.Roster.GoalkeeperAcronym),
		),
		app.WithTrackingOptions(
			tracking.WithPolicy(policy),
			tracking.WithMaxLineBytes(cfg.Tracking.MaxLineBytes),
			tracking.WithBatchFrames(cfg.BatchFrames),
			tracking.WithDedupeWindow(cfg.Tracking.DedupeWindow),
		),
		app.WithIntrospectOptions(
			introspect.WithSampleLimit(kb.SampleLimit),
			introspect.WithMaxSamples(kb.MaxSamples),
			introspect.WithCategoricalThreshold(kb.CategoricalThreshold),
			introspect.WithWorkers(kb.Workers),
			introspect.WithCatalogs(cfg.Catalogs()),
		),
	}
}

// serveMetrics exposes the metrics registry on addr until the returned
// function is called. An empty addr disables it.
func serveMetrics(ctx context.Context, addr string, log logger.Logger) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "serving metrics", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "metrics server failed", logger.Error(err))
		}
	}()

	updaterCtx, cancel := context.WithCancel(ctx)
	go startSystemMetricsUpdater(updaterCtx)

	return func() {
		cancel()
		shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn(ctx, "metrics server shutdown failed", logger.Error(err))
		}
	}
}

// startSystemMetricsUpdater refreshes process metrics until ctx ends.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
