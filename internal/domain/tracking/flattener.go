package tracking

import (
	"context"
	"io"

	"github.com/okian/pitchlens/internal/domain/dedupe"
	"github.com/okian/pitchlens/internal/domain/model"
	"github.com/okian/pitchlens/pkg/logger"
	"github.com/okian/pitchlens/pkg/metrics"
)

// Batch is a run of consecutive frames' rows. Seq numbers batches from zero
// in stream order.
type Batch struct {
	Seq    int64
	Frames int
	Rows   []model.TrackingRow
}

// Stats summarizes one flattening pass.
type Stats struct {
	Lines            int64
	Frames           int64
	Rows             int64
	Batches          int64
	DuplicateFrames  int64
	OutOfOrderFrames int64
}

// Flattener turns a tracking stream into ordered row batches.
type Flattener struct {
	opts []Option
	s    settings
}

// NewFlattener creates a Flattener. The options are also applied to the
// underlying Decoder.
func NewFlattener(opts ...Option) *Flattener {
	s := defaults()
	for _, opt := range opts {
		opt(&s)
	}
	return &Flattener{opts: opts, s: s}
}

// Run reads r frame by frame and hands each full batch to emit before reading
// further, so memory stays bounded by the batch size. Repeated frame ids are
// dropped; frame ids that go backwards are counted and kept in input order.
func (fl *Flattener) Run(ctx context.Context, r io.Reader, matchID string, emit func(context.Context, Batch) error) (Stats, error) {
	dec := NewDecoder(r, fl.opts...)
	seen := dedupe.NewWindow[int64](dedupe.WithMaxSize(fl.s.dedupeWindow))

	var (
		st      Stats
		last    int64
		started bool
		batch   = Batch{Rows: make([]model.TrackingRow, 0, fl.s.batchFrames*23)}
	)

	flush := func() error {
		if batch.Frames == 0 {
			return nil
		}
		metrics.RecordRowsFlattened(len(batch.Rows))
		if err := emit(ctx, batch); err != nil {
			return err
		}
		st.Batches++
		batch = Batch{Seq: batch.Seq + 1, Rows: make([]model.TrackingRow, 0, cap(batch.Rows))}
		return nil
	}

	for f, err := range dec.Frames(ctx) {
		if err != nil {
			st.Lines = dec.Line()
			return st, err
		}

		if seen.SeenAndRecord(ctx, f.Frame) {
			st.DuplicateFrames++
			metrics.RecordDuplicateFrame()
			if fl.s.collector != nil {
				fl.s.collector.AddDuplicateFrame()
			}
			fl.s.logger.Debug(ctx, "dropping duplicate frame", logger.Int64("frame", f.Frame))
			continue
		}
		if started && f.Frame < last {
			st.OutOfOrderFrames++
			metrics.RecordOutOfOrderFrame()
			if fl.s.collector != nil {
				fl.s.collector.AddOutOfOrderFrame()
			}
		}
		last, started = f.Frame, true

		st.Frames++
		before := len(batch.Rows)
		batch.Rows = AppendRows(batch.Rows, matchID, f)
		st.Rows += int64(len(batch.Rows) - before)
		batch.Frames++

		if batch.Frames >= fl.s.batchFrames {
			if err := flush(); err != nil {
				st.Lines = dec.Line()
				return st, err
			}
		}
	}

	st.Lines = dec.Line()
	if err := flush(); err != nil {
		return st, err
	}
	return st, nil
}
