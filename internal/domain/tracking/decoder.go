// Package tracking decodes the NDJSON tracking stream and flattens each frame
// into one row per tracked player.
package tracking

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/bytedance/sonic"
	"github.com/okian/pitchlens/internal/domain/dataerr"
	"github.com/okian/pitchlens/internal/domain/model"
	"github.com/okian/pitchlens/pkg/logger"
	"github.com/okian/pitchlens/pkg/metrics"
)

type ballDoc struct {
	X          *float64 `json:"x"`
	Y          *float64 `json:"y"`
	Z          *float64 `json:"z"`
	IsDetected *bool    `json:"is_detected"`
}

type possessionDoc struct {
	PlayerID *int64  `json:"player_id"`
	Group    *string `json:"group"`
}

type playerDoc struct {
	X          *float64 `json:"x" validate:"required"`
	Y          *float64 `json:"y" validate:"required"`
	PlayerID   *int64   `json:"player_id" validate:"required"`
	IsDetected *bool    `json:"is_detected"`
}

type frameDoc struct {
	Frame      *int64         `json:"frame" validate:"required"`
	Timestamp  *string        `json:"timestamp"`
	Period     *int           `json:"period" validate:"omitempty,oneof=1 2"`
	Ball       *ballDoc       `json:"ball_data"`
	Possession *possessionDoc `json:"possession"`
	Players    []playerDoc    `json:"player_data" validate:"dive"`
}

// Decoder reads one frame per line. Lines are never loaded all at once.
type Decoder struct {
	r        *bufio.Reader
	s        settings
	validate *dataerr.Validator
	line     int64
	buf      []byte
}

// NewDecoder wraps r.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	s := defaults()
	for _, opt := range opts {
		opt(&s)
	}
	return &Decoder{
		r:        bufio.NewReaderSize(r, 64<<10),
		s:        s,
		validate: dataerr.NewValidator(),
	}
}

// Line returns the number of lines consumed so far.
func (d *Decoder) Line() int64 { return d.line }

// Next returns the next frame, or io.EOF once the stream is exhausted.
// Malformed lines are skipped or returned as MalformedValue per the policy.
func (d *Decoder) Next(ctx context.Context) (model.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return model.Frame{}, err
		}

		raw, err := d.readLine()
		if err == io.EOF && raw == nil {
			return model.Frame{}, io.EOF
		}
		if err != nil && err != io.EOF {
			if derr, ok := dataerr.As(err); ok {
				if skipErr := d.reject(ctx, derr); skipErr != nil {
					return model.Frame{}, skipErr
				}
				continue
			}
			return model.Frame{}, dataerr.Internal(err, "read tracking")
		}

		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}

		f, derr := d.decode(ctx, raw)
		if derr != nil {
			if skipErr := d.reject(ctx, derr); skipErr != nil {
				return model.Frame{}, skipErr
			}
			continue
		}
		metrics.RecordFrameRead()
		return f, nil
	}
}

// Frames exposes the stream as a lazy sequence. Iteration stops after the
// first error.
func (d *Decoder) Frames(ctx context.Context) iter.Seq2[model.Frame, error] {
	return func(yield func(model.Frame, error) bool) {
		for {
			f, err := d.Next(ctx)
			if err == io.EOF {
				return
			}
			if !yield(f, err) || err != nil {
				return
			}
		}
	}
}

// readLine returns one line without the trailing newline. Overlong lines are
// consumed to their end and reported as MalformedValue.
func (d *Decoder) readLine() ([]byte, error) {
	d.buf = d.buf[:0]
	tooLong := false
	for {
		chunk, isPrefix, err := d.r.ReadLine()
		if err != nil {
			if err == io.EOF && len(d.buf) == 0 && !tooLong {
				return nil, io.EOF
			}
			if err != io.EOF {
				return nil, err
			}
			break
		}
		if !tooLong {
			if len(d.buf)+len(chunk) > d.s.maxLineBytes {
				tooLong = true
				d.buf = d.buf[:0]
			} else {
				d.buf = append(d.buf, chunk...)
			}
		}
		if !isPrefix {
			break
		}
	}
	d.line++
	if tooLong {
		return nil, dataerr.Malformed(dataerr.InputTracking, fmt.Sprintf("line %d", d.line), "", ErrLineTooLong.Error())
	}
	return d.buf, nil
}

func (d *Decoder) decode(ctx context.Context, raw []byte) (model.Frame, *dataerr.Error) {
	record := fmt.Sprintf("line %d", d.line)

	var doc frameDoc
	if err := sonic.ConfigStd.Unmarshal(raw, &doc); err != nil {
		return model.Frame{}, dataerr.Malformed(dataerr.InputTracking, record, "", "invalid json")
	}
	if doc.Frame != nil {
		record = fmt.Sprintf("frame %d (line %d)", *doc.Frame, d.line)
	}
	if err := d.validate.Check(ctx, dataerr.InputTracking, record, &doc); err != nil {
		derr, _ := dataerr.As(err)
		if derr == nil {
			derr = dataerr.Malformed(dataerr.InputTracking, record, "", err.Error())
		}
		return model.Frame{}, derr
	}
	return toFrame(&doc), nil
}

// reject applies the policy to a malformed line.
func (d *Decoder) reject(ctx context.Context, derr *dataerr.Error) error {
	metrics.RecordMalformedLine()
	if d.s.policy == Abort {
		metrics.RecordErrorByComponent("tracking", "malformed_line")
		return derr
	}
	if d.s.collector != nil {
		d.s.collector.AddSkipped(d.line, derr.Error())
	}
	d.s.logger.Warn(ctx, "skipping malformed tracking line",
		logger.Int64("line", d.line),
		logger.Error(derr),
	)
	return nil
}

func toFrame(doc *frameDoc) model.Frame {
	f := model.Frame{
		Frame:     *doc.Frame,
		Timestamp: doc.Timestamp,
		Period:    doc.Period,
		Players:   make([]model.PlayerObservation, len(doc.Players)),
	}
	if b := doc.Ball; b != nil {
		f.Ball = model.BallObservation{X: b.X, Y: b.Y, Z: b.Z, IsDetected: b.IsDetected != nil && *b.IsDetected}
	}
	if p := doc.Possession; p != nil {
		f.Possession = model.PossessionState{PlayerID: p.PlayerID, Group: p.Group}
	}
	for i := range doc.Players {
		p := &doc.Players[i]
		f.Players[i] = model.PlayerObservation{
			PlayerID:   *p.PlayerID,
			X:          *p.X,
			Y:          *p.Y,
			IsDetected: p.IsDetected != nil && *p.IsDetected,
		}
	}
	return f
}
