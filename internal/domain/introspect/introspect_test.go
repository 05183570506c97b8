package introspect_test

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/okian/pitchlens/internal/domain/dataerr"
	"github.com/okian/pitchlens/internal/domain/diag"
	"github.com/okian/pitchlens/internal/domain/introspect"
	. "github.com/smartystreets/goconvey/convey"
)

// table is a column-major in-memory dataset.
type table struct {
	name  string
	names []string
	kinds map[string]introspect.Kind
	cols  map[string][]any
	rows  int
}

func newTable(name string) *table {
	return &table{name: name, kinds: map[string]introspect.Kind{}, cols: map[string][]any{}}
}

func (t *table) with(col string, values ...any) *table {
	t.names = append(t.names, col)
	t.cols[col] = values
	t.rows = max(t.rows, len(values))
	return t
}

func (t *table) Name() string { return t.name }
func (t *table) Rows() int    { return t.rows }
func (t *table) Columns() []introspect.Column {
	out := make([]introspect.Column, len(t.names))
	for i, n := range t.names {
		out[i] = introspect.Column{Name: n, Kind: t.kinds[n], Values: slices.Values(t.cols[n])}
	}
	return out
}

func sixColumns() *table {
	return newTable("events").
		with("event_id", "1", "2", "3").
		with("frame_start", "10", "20", "30").
		with("event_type", "pass", "pass", "shot").
		with("x_start", "1.5", "-3.25", "").
		with("xthreat", "0.01", "0.2", "0.05").
		with("player_name", "A", "B", "C")
}

func TestScan(t *testing.T) {
	ctx := context.Background()
	catalogs := map[string]introspect.Catalog{
		"events": {
			Description:    "events",
			CriticalFields: []string{"event_id", "frame_start"},
			Categories: map[string][]string{
				"identification": {"event_id"},
				"temporal":       {"frame_start"},
				"event_type":     {"event_type"},
				"spatial":        {"x_start"},
			},
			Descriptions: map[string]string{"x_start": "Start x (meters)"},
		},
	}

	Convey("Given a six column dataset with two critical fields", t, func() {
		c := diag.NewCollector(0)
		in := introspect.New(introspect.WithCatalogs(catalogs), introspect.WithCollector(c), introspect.WithWorkers(3))
		rep, err := in.Scan(ctx, sixColumns())
		So(err, ShouldBeNil)

		Convey("Then there is one descriptor per column in column order", func() {
			So(len(rep.Fields), ShouldEqual, 6)
			So(rep.ColumnCount, ShouldEqual, 6)
			So(rep.RowCount, ShouldEqual, 3)
			names := map[string]bool{}
			for i, f := range rep.Fields {
				So(f.FieldName, ShouldEqual, sixColumns().names[i])
				So(names[f.FieldName], ShouldBeFalse)
				names[f.FieldName] = true
			}
		})

		Convey("Then exactly two fields are critical", func() {
			critical := 0
			for _, f := range rep.Fields {
				if f.IsCritical {
					critical++
				}
			}
			So(critical, ShouldEqual, 2)
			So(rep.CriticalFields, ShouldResemble, []string{"event_id", "frame_start"})
			So(rep.MissingCritical, ShouldBeEmpty)
		})

		Convey("Then categories come from the catalog and gaps default", func() {
			f, _ := rep.Field("x_start")
			So(f.Category, ShouldEqual, "spatial")
			So(f.Description, ShouldEqual, "Start x (meters)")
			f, _ = rep.Field("xthreat")
			So(f.Category, ShouldEqual, introspect.Uncategorized)
			So(f.IsCritical, ShouldBeFalse)
			So(c.Snapshot().ConfigurationGaps["events"], ShouldResemble, []string{"player_name", "xthreat"})
		})

		Convey("Then types are inferred", func() {
			want := map[string]introspect.Kind{
				"event_id":    introspect.Identifier,
				"frame_start": introspect.Numeric,
				"event_type":  introspect.Categorical,
				"x_start":     introspect.Numeric,
				"xthreat":     introspect.Numeric,
				"player_name": introspect.Categorical,
			}
			for _, f := range rep.Fields {
				So(f.InferredType, ShouldEqual, want[f.FieldName])
			}
		})

		Convey("Then samples are distinct and skip nulls", func() {
			f, _ := rep.Field("event_type")
			So(f.SampleValues, ShouldResemble, []string{"pass", "shot"})
			f, _ = rep.Field("x_start")
			So(f.SampleValues, ShouldResemble, []string{"1.5", "-3.25"})
		})
	})

	Convey("Given a dataset with no catalog", t, func() {
		ds := newTable("unknown").with("a", 1).with("b", 2)
		rep, err := introspect.New().Scan(ctx, ds)

		Convey("Then every field is uncategorized and nothing fails", func() {
			So(err, ShouldBeNil)
			So(len(rep.Fields), ShouldEqual, 2)
			for _, f := range rep.Fields {
				So(f.Category, ShouldEqual, introspect.Uncategorized)
				So(f.IsCritical, ShouldBeFalse)
			}
			So(rep.CriticalFields, ShouldBeEmpty)
		})
	})

	Convey("Given nested field names", t, func() {
		cat := map[string]introspect.Catalog{"tracking": {
			CriticalFields: []string{"ball_data", "ball_data.z", "player_data", "frame"},
			Categories:     map[string][]string{"ball": {"ball_data"}, "ball_height": {"ball_data.z"}},
		}}
		ds := newTable("tracking").with("frame", 1).with("ball_data.x", 0.5).with("ball_data.z", 0.1)
		rep, err := introspect.New(introspect.WithCatalogs(cat)).Scan(ctx, ds)
		So(err, ShouldBeNil)

		Convey("Then children inherit the category of their parent unless listed", func() {
			x, _ := rep.Field("ball_data.x")
			So(x.Category, ShouldEqual, "ball")
			z, _ := rep.Field("ball_data.z")
			So(z.Category, ShouldEqual, "ball_height")
		})

		Convey("Then only fields named in the critical list are critical", func() {
			x, _ := rep.Field("ball_data.x")
			So(x.IsCritical, ShouldBeFalse)
			z, _ := rep.Field("ball_data.z")
			So(z.IsCritical, ShouldBeTrue)
			frame, _ := rep.Field("frame")
			So(frame.IsCritical, ShouldBeTrue)
		})

		Convey("Then critical fields absent from the data are reported", func() {
			So(rep.MissingCritical, ShouldResemble, []string{"ball_data", "player_data"})
		})
	})

	Convey("Given columns of every kind", t, func() {
		var many []any
		for i := 0; i < 50; i++ {
			many = append(many, fmt.Sprintf("free text number %d", i))
		}
		long := strings.Repeat("x", 150)
		ds := newTable("kinds").
			with("flag", true, false, nil).
			with("flag_text", "True", "false", "").
			with("when", "2024-11-30T04:00:00Z", "2024-12-01 18:30:00").
			with("clock", "00:00:01.10", "01:30:00").
			with("notes", many...).
			with("empty", nil, "", nil).
			with("nested", map[string]any{"k": long}, []any{1.0, 2.0}).
			with("declared", "1", "2")
		ds.kinds["declared"] = introspect.Boolean

		rep, err := introspect.New(introspect.WithMaxSamples(3)).Scan(ctx, ds)
		So(err, ShouldBeNil)

		Convey("Then each is classified", func() {
			kinds := map[string]introspect.Kind{}
			for _, f := range rep.Fields {
				kinds[f.FieldName] = f.InferredType
			}
			So(kinds["flag"], ShouldEqual, introspect.Boolean)
			So(kinds["flag_text"], ShouldEqual, introspect.Boolean)
			So(kinds["when"], ShouldEqual, introspect.Timestamp)
			So(kinds["clock"], ShouldEqual, introspect.Timestamp)
			So(kinds["notes"], ShouldEqual, introspect.Text)
			So(kinds["empty"], ShouldEqual, introspect.Text)
			So(kinds["declared"], ShouldEqual, introspect.Boolean)
		})

		Convey("Then samples are capped and long values truncated", func() {
			notes, _ := rep.Field("notes")
			So(notes.SampleValues, ShouldResemble, []string{"free text number 0", "free text number 1", "free text number 2"})

			nested, _ := rep.Field("nested")
			So(len(nested.SampleValues[0]), ShouldEqual, 103)
			So(strings.HasSuffix(nested.SampleValues[0], "..."), ShouldBeTrue)
			So(nested.SampleValues[1], ShouldEqual, "[1,2]")

			empty, _ := rep.Field("empty")
			So(empty.SampleValues, ShouldBeEmpty)
		})
	})

	Convey("Given a sample limit", t, func() {
		values := []any{"a", "b"}
		for i := 0; i < 100; i++ {
			values = append(values, fmt.Sprint(i))
		}
		ds := newTable("limited").with("mixed", values...)
		rep, err := introspect.New(introspect.WithSampleLimit(2)).Scan(ctx, ds)

		Convey("Then only the first values drive inference", func() {
			So(err, ShouldBeNil)
			So(rep.Fields[0].InferredType, ShouldEqual, introspect.Categorical)
		})
	})

	Convey("Given a numeric column", t, func() {
		ds := newTable("mem").with("x", 1.0, 2.0, 3.0, 4.0)
		rep, err := introspect.New().Scan(ctx, ds)

		Convey("Then memory is estimated from value size and rows", func() {
			So(err, ShouldBeNil)
			So(rep.MemoryEstimateBytes, ShouldEqual, 32)
		})
	})

	Convey("Given duplicate column names", t, func() {
		ds := newTable("dup").with("a", 1).with("a", 2)
		_, err := introspect.New().Scan(ctx, ds)

		Convey("Then MalformedValue is returned", func() {
			So(errors.Is(err, dataerr.ErrMalformedValue), ShouldBeTrue)
		})
	})
}

func TestKnowledgeBank(t *testing.T) {
	ctx := context.Background()

	Convey("Given a generated knowledge bank", t, func() {
		in := introspect.New(introspect.WithCatalogs(map[string]introspect.Catalog{
			"events": {CriticalFields: []string{"event_id"}},
		}))
		kb, err := introspect.Generate(ctx, in, "test bank", sixColumns(), newTable("phases").with("phase_id", 1))
		So(err, ShouldBeNil)

		Convey("Then each dataset is present", func() {
			So(kb.Version, ShouldEqual, introspect.Version)
			So(len(kb.Datasets), ShouldEqual, 2)
			So(kb.CreatedAt.Location(), ShouldEqual, time.UTC)
		})

		Convey("Then single fields can be looked up", func() {
			f, err := kb.Field("events", "event_id")
			So(err, ShouldBeNil)
			So(f.IsCritical, ShouldBeTrue)

			_, err = kb.Field("events", "nope")
			So(errors.Is(err, introspect.ErrFieldNotFound), ShouldBeTrue)
			_, err = kb.Field("nope", "event_id")
			So(errors.Is(err, introspect.ErrFieldNotFound), ShouldBeTrue)
		})

		Convey("Then it survives both encodings", func() {
			for _, format := range []introspect.Format{introspect.FormatJSON, introspect.FormatYAML} {
				var buf bytes.Buffer
				So(kb.Encode(&buf, format), ShouldBeNil)

				back, err := introspect.Decode(&buf, format)
				So(err, ShouldBeNil)
				So(len(back.Datasets["events"].Fields), ShouldEqual, 6)
				f, err := back.Field("events", "event_type")
				So(err, ShouldBeNil)
				So(f.InferredType, ShouldEqual, introspect.Categorical)
			}
		})

		Convey("Then JSON output uses snake case keys", func() {
			var buf bytes.Buffer
			So(kb.Encode(&buf, introspect.FormatJSON), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, `"inferred_type": "identifier"`)
			So(buf.String(), ShouldContainSubstring, `"created_at"`)
		})

		Convey("Then unknown formats are rejected", func() {
			So(errors.Is(kb.Encode(&bytes.Buffer{}, "xml"), introspect.ErrUnknownFormat), ShouldBeTrue)
			_, err := introspect.ParseFormat("toml")
			So(errors.Is(err, introspect.ErrUnknownFormat), ShouldBeTrue)
		})
	})
}
