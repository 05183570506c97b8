// Package service runs the enrichment pipeline: it normalizes the roster,
// flattens and joins tracking frames, persists the enriched dataset and
// documents every dataset in a knowledge bank.
package service

import (
	"context"
	"io"
	"io/fs"
	"os"
	"runtime"
	"slices"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/pitchlens/internal/adapters/mq/queue"
	"github.com/okian/pitchlens/internal/adapters/mq/worker"
	"github.com/okian/pitchlens/internal/adapters/repository"
	"github.com/okian/pitchlens/internal/adapters/source"
	"github.com/okian/pitchlens/internal/domain/dataerr"
	"github.com/okian/pitchlens/internal/domain/diag"
	"github.com/okian/pitchlens/internal/domain/introspect"
	"github.com/okian/pitchlens/internal/domain/join"
	"github.com/okian/pitchlens/internal/domain/roster"
	"github.com/okian/pitchlens/internal/domain/tracking"
	"github.com/okian/pitchlens/pkg/logger"
	"github.com/okian/pitchlens/pkg/metrics"
)

// Dataset names used in the knowledge bank.
const (
	DatasetMetadata        = "metadata"
	DatasetMetadataPlayers = "metadata_players"
	DatasetTracking        = "tracking"
	DatasetEvents          = "events"
	DatasetPhases          = "phases"
	DatasetEnriched        = "enriched_tracking"
)

// DefaultDescription is the knowledge bank description.
const DefaultDescription = "Match dataset field documentation and knowledge bank"

// Inputs names the files of one match. Events and Phases are optional.
// An empty MatchID is replaced by the metadata document id.
type Inputs struct {
	MatchID  string
	Metadata string
	Tracking string
	Events   string
	Phases   string
}

// Pipeline processes one match per Run call. It keeps no state between runs.
type Pipeline struct {
	store repository.Store

	workerCount int
	queueSize   int
	sampleRows  int
	compression string
	format      introspect.Format
	description string
	reprocess   bool

	rosterOpts     []roster.Option
	trackingOpts   []tracking.Option
	introspectOpts []introspect.Option

	logger logger.Logger
}

// New constructs a Pipeline writing artifacts to store.
func New(store repository.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:       store,
		workerCount: runtime.NumCPU(),
		queueSize:   64,
		sampleRows:  source.DefaultSampleRows,
		compression: "snappy",
		format:      introspect.FormatJSON,
		description: DefaultDescription,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run holds the state of one Run call.
type run struct {
	p         *Pipeline
	in        Inputs
	matchID   string
	collector *diag.Collector
	scanner   *introspect.Introspector
	logger    logger.Logger

	match  *roster.Match
	joiner *join.Joiner
	stats  tracking.Stats
	bank   *introspect.KnowledgeBank

	committed bool
}

// Run processes one match. On success every artifact has been written and
// the returned report describes the run. On failure nothing is left behind
// for the match except artifacts that existed before the run.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Report, error) {
	start := time.Now()
	rep := &Report{RunID: uuid.NewString(), StartedAt: start.UTC()}

	err := p.run(ctx, in, rep)
	rep.DurationMS = time.Since(start).Milliseconds()
	metrics.RecordStageDuration("run", time.Since(start))

	switch {
	case err == nil:
		metrics.RecordRun("success")
		p.logger.Info(ctx, "run complete",
			logger.String("run_id", rep.RunID),
			logger.String("match_id", rep.MatchID),
			logger.Int64("rows", rep.Enriched.Rows),
			logger.Int64("dropped", rep.Enriched.Dropped),
		)
		return rep, nil
	case dataerr.IsInputError(err):
		metrics.RecordRun("input_error")
	default:
		metrics.RecordRun("failure")
	}
	p.logger.Error(ctx, "run failed",
		logger.String("run_id", rep.RunID),
		logger.String("match_id", rep.MatchID),
		logger.Error(err),
	)
	return nil, err
}

func (p *Pipeline) run(ctx context.Context, in Inputs, rep *Report) error {
	if in.Metadata == "" {
		return dataerr.Missing(dataerr.InputMetadata, "", "file")
	}
	if in.Tracking == "" {
		return dataerr.Missing(dataerr.InputTracking, "", "file")
	}

	r := &run{
		p:         p,
		in:        in,
		matchID:   in.MatchID,
		collector: diag.NewCollector(0),
		logger:    p.logger.Named("run"),
	}
	r.scanner = introspect.New(slices.Concat(p.introspectOpts, []introspect.Option{
		introspect.WithCollector(r.collector),
		introspect.WithLogger(p.logger),
	})...)

	if r.matchID == "" {
		// The artifact key must be known before any row is written.
		m, err := r.normalize(ctx)
		if err != nil {
			return err
		}
		r.match = m
		r.matchID = strconv.FormatInt(m.ID, 10)
	}
	rep.MatchID = r.matchID

	if p.reprocess {
		if err := p.store.Invalidate(ctx, r.matchID); err != nil {
			return dataerr.Internal(err, "invalidate previous artifacts")
		}
	}

	err := r.execute(ctx, rep)
	if err != nil && r.committed {
		if ierr := p.store.Invalidate(context.WithoutCancel(ctx), r.matchID); ierr != nil {
			r.logger.Error(ctx, "failed to invalidate partial artifacts", logger.Error(ierr))
		}
	}
	return err
}

func (r *run) execute(ctx context.Context, rep *Report) error {
	p := r.p

	out, err := p.store.Create(ctx, r.matchID, repository.EnrichedTracking)
	if err != nil {
		return dataerr.Internal(err, "create enriched artifact")
	}
	ew, err := repository.NewEnrichedWriter(out, p.compression)
	if err != nil {
		repository.Abort(out)
		return dataerr.Internal(err, "create enriched writer")
	}

	if err := r.enrich(ctx, ew); err != nil {
		repository.Abort(out)
		return err
	}
	if err := ew.Close(); err != nil {
		repository.Abort(out)
		return dataerr.Internal(err, "finish enriched artifact")
	}
	if err := out.Close(); err != nil {
		return dataerr.Internal(err, "commit enriched artifact")
	}
	r.committed = true

	persistStart := time.Now()
	enriched, err := r.readBack(ctx)
	if err != nil {
		return err
	}

	bankName, err := r.writeBank(ctx)
	if err != nil {
		return err
	}

	rep.MatchName = r.matchName()
	rep.Roster = RosterSummary{Players: len(r.match.Entries), Excluded: r.match.Excluded}
	rep.Tracking = trackingSummary(r.stats)
	rep.Enriched = enriched
	rep.Diagnostics = r.collector.Snapshot()
	rep.Datasets = datasetSummaries(r.bank)
	rep.Artifacts = []string{repository.EnrichedTracking, bankName, repository.RunReport}
	rep.DurationMS = time.Since(rep.StartedAt).Milliseconds()

	if err := r.writeArtifact(ctx, repository.RunReport, rep.Encode); err != nil {
		return err
	}
	metrics.RecordStageDuration("persist", time.Since(persistStart))
	return nil
}

// enrich runs roster normalization, tracking flattening and raw dataset
// introspection concurrently. Join workers wait for the roster, then drain
// the batch queue into the sequencer, which writes batches in stream order.
func (r *run) enrich(ctx context.Context, ew *repository.EnrichedWriter) error {
	p := r.p
	g, gctx := errgroup.WithContext(ctx)

	batches := queue.NewInMemoryQueue[tracking.Batch](queue.WithCapacity(p.queueSize))
	ready := make(chan struct{})
	seq := newSequencer(ew.Write)

	pool := worker.NewPool[tracking.Batch](p.workerCount, batches,
		func(_ context.Context, b tracking.Batch) error {
			if err := seq.Submit(b.Seq, r.joiner.Join(b.Rows)); err != nil {
				return dataerr.Internal(err, "write enriched batch")
			}
			return nil
		},
		worker.WithGate(ready),
		worker.WithLogger(p.logger),
	)
	pool.Start(gctx)

	g.Go(func() error {
		start := time.Now()
		if r.match == nil {
			m, err := r.normalize(gctx)
			if err != nil {
				return err
			}
			r.match = m
		}
		ix, err := join.NewIndex(r.match.Entries)
		if err != nil {
			return err
		}
		r.joiner = join.NewJoiner(ix, r.collector)
		metrics.UpdateRosterSize(ix.Len())
		metrics.RecordStageDuration("metadata", time.Since(start))
		close(ready)
		return nil
	})

	g.Go(func() error {
		defer func() { _ = batches.Close() }()
		start := time.Now()
		f, err := openInput(dataerr.InputTracking, r.in.Tracking)
		if err != nil {
			return err
		}
		defer f.Close()

		fl := tracking.NewFlattener(slices.Concat(p.trackingOpts, []tracking.Option{
			tracking.WithCollector(r.collector),
			tracking.WithLogger(p.logger),
		})...)
		r.stats, err = fl.Run(gctx, f, r.matchID, func(ctx context.Context, b tracking.Batch) error {
			return batches.Put(ctx, b)
		})
		metrics.RecordStageDuration("tracking", time.Since(start))
		return err
	})

	g.Go(pool.Wait)

	g.Go(func() error {
		start := time.Now()
		datasets, err := r.rawDatasets()
		if err != nil {
			return err
		}
		bank, err := introspect.Generate(gctx, r.scanner, p.description, datasets...)
		if err != nil {
			return err
		}
		r.bank = bank
		metrics.RecordStageDuration("introspect", time.Since(start))
		return nil
	})

	if err := g.Wait(); err != nil {
		if dataerr.IsInputError(err) {
			return err
		}
		return dataerr.Internal(err, "enrich tracking")
	}
	if n := seq.Pending(); n != 0 {
		return dataerr.Internal(errors.Newf("%d batches never written", n), "enrich tracking")
	}
	r.logger.Debug(ctx, "enrichment finished",
		logger.Int64("batches", seq.Written()),
		logger.Int64("processed", pool.Processed()),
		logger.Int64("rows", ew.Rows()),
	)
	return nil
}

func (r *run) normalize(ctx context.Context) (*roster.Match, error) {
	f, err := openInput(dataerr.InputMetadata, r.in.Metadata)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	n := roster.NewNormalizer(slices.Concat(r.p.rosterOpts, []roster.Option{roster.WithLogger(r.p.logger)})...)
	return n.NormalizeMatch(ctx, f)
}

// rawDatasets loads every input file as an introspection dataset, in
// knowledge bank order.
func (r *run) rawDatasets() ([]introspect.Dataset, error) {
	rows := r.p.sampleRows
	var out []introspect.Dataset

	f, err := openInput(dataerr.InputMetadata, r.in.Metadata)
	if err != nil {
		return nil, err
	}
	doc, players, err := source.JSONDocument(DatasetMetadata, f, "players", DatasetMetadataPlayers, rows)
	_ = f.Close()
	if err != nil {
		return nil, err
	}
	out = append(out, doc, players)

	f, err = openInput(dataerr.InputTracking, r.in.Tracking)
	if err != nil {
		return nil, err
	}
	frames, skipped, err := source.NDJSON(DatasetTracking, f, rows)
	_ = f.Close()
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		r.logger.Debug(context.Background(), "tracking sample skipped lines", logger.Int("skipped", skipped))
	}
	out = append(out, frames)

	for _, opt := range []struct {
		name  string
		input dataerr.Input
		path  string
	}{
		{DatasetEvents, dataerr.InputEvents, r.in.Events},
		{DatasetPhases, dataerr.InputPhases, r.in.Phases},
	} {
		if opt.path == "" {
			continue
		}
		f, err := openInput(opt.input, opt.path)
		if err != nil {
			return nil, err
		}
		t, err := source.CSV(opt.name, f, rows)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// readBack streams the committed artifact to compute the enriched summary
// and introspects it for the knowledge bank.
func (r *run) readBack(ctx context.Context) (EnrichedSummary, error) {
	f, err := r.p.store.Open(ctx, r.matchID, repository.EnrichedTracking)
	if err != nil {
		return EnrichedSummary{}, dataerr.Internal(err, "open enriched artifact")
	}
	defer f.Close()

	tally := newEnrichedTally()
	rows, err := repository.ReadEnriched(f, 0, tally.add)
	if err != nil {
		return EnrichedSummary{}, dataerr.Internal(err, "read enriched artifact")
	}

	t, err := source.EnrichedParquet(DatasetEnriched, f, r.p.sampleRows)
	if err != nil {
		return EnrichedSummary{}, dataerr.Internal(err, "load enriched artifact")
	}
	rep, err := r.scanner.Scan(ctx, t)
	if err != nil {
		return EnrichedSummary{}, dataerr.Internal(err, "introspect enriched artifact")
	}
	r.bank.Add(rep)

	return tally.summary(rows, r.joiner.Dropped()), nil
}

func (r *run) writeBank(ctx context.Context) (string, error) {
	name := repository.KnowledgeBankJSON
	if r.p.format == introspect.FormatYAML {
		name = repository.KnowledgeBankYAML
	}
	err := r.writeArtifact(ctx, name, func(w io.Writer) error {
		return r.bank.Encode(w, r.p.format)
	})
	return name, err
}

func (r *run) writeArtifact(ctx context.Context, name string, encode func(io.Writer) error) error {
	w, err := r.p.store.Create(ctx, r.matchID, name)
	if err != nil {
		return dataerr.Internal(err, "create "+name)
	}
	if err := encode(w); err != nil {
		repository.Abort(w)
		return dataerr.Internal(err, "encode "+name)
	}
	if err := w.Close(); err != nil {
		return dataerr.Internal(err, "commit "+name)
	}
	return nil
}

func (r *run) matchName() string {
	if len(r.match.Entries) > 0 {
		return r.match.Entries[0].MatchName
	}
	return r.match.HomeTeam.Name + " vs " + r.match.AwayTeam.Name
}

func openInput(input dataerr.Input, path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, dataerr.Missing(input, path, "file")
	}
	if err != nil {
		return nil, dataerr.Internal(err, "open "+string(input))
	}
	return f, nil
}

func datasetSummaries(kb *introspect.KnowledgeBank) []DatasetSummary {
	names := make([]string, 0, len(kb.Datasets))
	for name := range kb.Datasets {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]DatasetSummary, 0, len(names))
	for _, name := range names {
		d := kb.Datasets[name]
		out = append(out, DatasetSummary{
			Name:                  name,
			Rows:                  d.RowCount,
			Columns:               d.ColumnCount,
			MissingCriticalFields: d.MissingCritical,
		})
	}
	return out
}
