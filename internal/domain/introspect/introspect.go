// Package introspect builds field catalogs for tabular datasets. It knows
// nothing about specific datasets; adapters expose columns through Dataset
// and per-dataset Catalogs supply criticality and categories.
package introspect

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/okian/pitchlens/internal/domain/dataerr"
	"github.com/okian/pitchlens/internal/domain/diag"
	"github.com/okian/pitchlens/pkg/logger"
	"github.com/okian/pitchlens/pkg/metrics"
	"github.com/panjf2000/ants/v2"
)

// Column is one named column. Kind is Unknown unless the adapter knows the
// storage type. Values yields the column's values in row order; nil marks a
// missing value.
type Column struct {
	Name   string
	Kind   Kind
	Values iter.Seq[any]
}

// Dataset is what an adapter must provide to be scanned.
type Dataset interface {
	Name() string
	Rows() int
	Columns() []Column
}

// FieldDescriptor describes one column.
type FieldDescriptor struct {
	FieldName    string   `json:"field_name" yaml:"field_name"`
	InferredType Kind     `json:"inferred_type" yaml:"inferred_type"`
	Category     string   `json:"category" yaml:"category"`
	IsCritical   bool     `json:"is_critical" yaml:"is_critical"`
	SampleValues []string `json:"sample_values" yaml:"sample_values"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Report is the scan result for one dataset. Fields follow column order.
type Report struct {
	Dataset             string            `json:"dataset" yaml:"dataset"`
	Description         string            `json:"description,omitempty" yaml:"description,omitempty"`
	RowCount            int               `json:"row_count" yaml:"row_count"`
	ColumnCount         int               `json:"column_count" yaml:"column_count"`
	MemoryEstimateBytes int64             `json:"memory_estimate_bytes" yaml:"memory_estimate_bytes"`
	CriticalFields      []string          `json:"critical_fields" yaml:"critical_fields"`
	MissingCritical     []string          `json:"missing_critical_fields,omitempty" yaml:"missing_critical_fields,omitempty"`
	Fields              []FieldDescriptor `json:"fields" yaml:"fields"`
}

// Field returns the descriptor named name.
func (r *Report) Field(name string) (FieldDescriptor, bool) {
	for _, f := range r.Fields {
		if f.FieldName == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// Introspector scans datasets. It holds no per-run state and may be shared.
type Introspector struct {
	sampleLimit int
	maxSamples  int
	threshold   int
	workers     int
	catalogs    map[string]*compiled
	collector   *diag.Collector
	logger      logger.Logger
}

// New creates an Introspector.
func New(opts ...Option) *Introspector {
	in := &Introspector{
		sampleLimit: DefaultSampleLimit,
		maxSamples:  DefaultMaxSamples,
		threshold:   DefaultCategoricalThreshold,
		workers:     defaultWorkers(),
		catalogs:    make(map[string]*compiled),
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

type scanned struct {
	desc    FieldDescriptor
	avgSize float64
	gap     bool
}

// Scan describes every column of ds, one descriptor per column. Duplicate
// column names are rejected since descriptors are keyed by name.
func (in *Introspector) Scan(ctx context.Context, ds Dataset) (*Report, error) {
	name := ds.Name()
	cols := ds.Columns()
	cat := in.catalogs[name]

	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, dup := seen[c.Name]; dup {
			return nil, dataerr.Malformed(dataerr.Input(name), "header", c.Name, "duplicate column")
		}
		seen[c.Name] = struct{}{}
	}

	results := make([]scanned, len(cols))
	pool, err := ants.NewPool(in.workers)
	if err != nil {
		return nil, dataerr.Internal(err, "create scan pool")
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range cols {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i] = in.column(ctx, cat, cols[i])
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, dataerr.Internal(err, "submit column scan")
		}
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := ds.Rows()
	rep := &Report{
		Dataset:        name,
		RowCount:       rows,
		ColumnCount:    len(cols),
		CriticalFields: []string{},
		Fields:         make([]FieldDescriptor, len(cols)),
	}
	if cat != nil {
		rep.Description = cat.description
		rep.CriticalFields = cat.criticalList
		for _, f := range cat.criticalList {
			if !hasField(cols, f) {
				rep.MissingCritical = append(rep.MissingCritical, f)
			}
		}
	}

	var mem float64
	gaps := 0
	for i, r := range results {
		rep.Fields[i] = r.desc
		mem += r.avgSize * float64(rows)
		if r.gap {
			gaps++
			if in.collector != nil {
				_ = in.collector.Record(dataerr.Gap(name, r.desc.FieldName), 0)
			}
			metrics.RecordConfigurationGap(name)
		}
	}
	rep.MemoryEstimateBytes = int64(mem)
	metrics.RecordFieldsScanned(name, len(cols))

	in.logger.Debug(ctx, "dataset scanned",
		logger.String("dataset", name),
		logger.Int("rows", rows),
		logger.Int("columns", len(cols)),
		logger.Int("configuration_gaps", gaps),
	)
	return rep, nil
}

func (in *Introspector) column(ctx context.Context, cat *compiled, col Column) scanned {
	samples := make([]any, 0, min(in.sampleLimit, 64))
	shown := make([]string, 0, in.maxSamples)
	distinct := make(map[string]struct{})
	var bytes int64

	if col.Values != nil {
		for v := range col.Values {
			if ctx.Err() != nil || len(samples) >= in.sampleLimit {
				break
			}
			if isNull(v) {
				continue
			}
			samples = append(samples, v)
			bytes += size(v)

			s := display(v)
			if _, ok := distinct[s]; !ok {
				distinct[s] = struct{}{}
				if len(shown) < in.maxSamples {
					shown = append(shown, s)
				}
			}
		}
	}

	category, critical, description, configured := cat.lookup(col.Name)
	out := scanned{
		desc: FieldDescriptor{
			FieldName:    col.Name,
			InferredType: infer(col.Name, col.Kind, samples, len(distinct), in.threshold),
			Category:     category,
			IsCritical:   critical,
			SampleValues: shown,
			Description:  description,
		},
		gap: !configured,
	}
	if len(samples) > 0 {
		out.avgSize = float64(bytes) / float64(len(samples))
	}
	return out
}

func hasField(cols []Column, name string) bool {
	return slices.ContainsFunc(cols, func(c Column) bool { return c.Name == name })
}

// String implements fmt.Stringer for log output.
func (r *Report) String() string {
	return fmt.Sprintf("%s: %d rows, %d fields", r.Dataset, r.RowCount, len(r.Fields))
}
