package api_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pitchlens/internal/adapters/http/api"
	"github.com/okian/pitchlens/internal/adapters/repository"
	service "github.com/okian/pitchlens/internal/app"
	"github.com/okian/pitchlens/internal/domain/introspect"
)

// fakeDeps serves a single processed match with id "1886347".
type fakeDeps struct {
	kb  *introspect.KnowledgeBank
	rep *service.Report
	err error
}

func newFakeDeps() *fakeDeps {
	kb := introspect.NewKnowledgeBank("test bank", time.Date(2024, 11, 30, 4, 0, 0, 0, time.UTC))
	kb.Add(&introspect.Report{
		Dataset:     "enriched_tracking",
		RowCount:    4,
		ColumnCount: 1,
		Fields: []introspect.FieldDescriptor{{
			FieldName:    "player_id",
			InferredType: introspect.Identifier,
			Category:     "identifiers",
			IsCritical:   true,
			SampleValues: []string{"1", "2"},
		}},
	})
	return &fakeDeps{
		kb:  kb,
		rep: &service.Report{RunID: "run-1", MatchID: "1886347"},
	}
}

func (f *fakeDeps) lookup(matchID string) error {
	if f.err != nil {
		return f.err
	}
	if matchID != "1886347" {
		return fmt.Errorf("%w: %s", repository.ErrNotFound, matchID)
	}
	return nil
}

func (f *fakeDeps) KnowledgeBank(_ context.Context, matchID string) (*introspect.KnowledgeBank, error) {
	if err := f.lookup(matchID); err != nil {
		return nil, err
	}
	return f.kb, nil
}

func (f *fakeDeps) Field(ctx context.Context, matchID, dataset, field string) (introspect.FieldDescriptor, error) {
	kb, err := f.KnowledgeBank(ctx, matchID)
	if err != nil {
		return introspect.FieldDescriptor{}, err
	}
	return kb.Field(dataset, field)
}

func (f *fakeDeps) RunReport(_ context.Context, matchID string) (*service.Report, error) {
	if err := f.lookup(matchID); err != nil {
		return nil, err
	}
	return f.rep, nil
}

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(context.Background(), mux)
	return mux
}

func get(mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	Convey("Given the API server", t, func() {
		mux := newMux(newFakeDeps())

		Convey("When /healthz is requested", func() {
			rec := get(mux, "/healthz")

			Convey("Then it reports ok", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Type"), ShouldStartWith, "application/json")
				So(rec.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			})
		})

		Convey("When /metrics is requested after a request", func() {
			_ = get(mux, "/healthz")
			rec := get(mux, "/metrics")

			Convey("Then the request counter is exposed", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "pitchlens_http_requests_total")
			})
		})

		Convey("When a write method is used", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))

			Convey("Then it is not allowed", func() {
				So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestMatchEndpoints(t *testing.T) {
	Convey("Given a processed match", t, func() {
		deps := newFakeDeps()
		mux := newMux(deps)

		Convey("When its report is requested", func() {
			rec := get(mux, "/matches/1886347/report")

			Convey("Then the stored report is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var rep service.Report
				So(sonic.Unmarshal(rec.Body.Bytes(), &rep), ShouldBeNil)
				So(rep.RunID, ShouldEqual, "run-1")
			})
		})

		Convey("When its knowledge bank is requested", func() {
			Convey("Then JSON is the default", func() {
				rec := get(mux, "/matches/1886347/knowledge-bank")
				So(rec.Code, ShouldEqual, http.StatusOK)
				kb, err := introspect.Decode(rec.Body, introspect.FormatJSON)
				So(err, ShouldBeNil)
				So(kb.Datasets, ShouldContainKey, "enriched_tracking")
			})

			Convey("Then YAML can be asked for", func() {
				rec := get(mux, "/matches/1886347/knowledge-bank?format=yaml")
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Type"), ShouldStartWith, "application/yaml")
				kb, err := introspect.Decode(rec.Body, introspect.FormatYAML)
				So(err, ShouldBeNil)
				So(kb.Description, ShouldEqual, "test bank")
			})

			Convey("Then an unknown format is rejected", func() {
				rec := get(mux, "/matches/1886347/knowledge-bank?format=xml")
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(rec.Body.String(), ShouldContainSubstring, `"code":"bad_request"`)
			})
		})

		Convey("When a field is requested", func() {
			rec := get(mux, "/matches/1886347/datasets/enriched_tracking/fields/player_id")

			Convey("Then its descriptor is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var fd introspect.FieldDescriptor
				So(sonic.Unmarshal(rec.Body.Bytes(), &fd), ShouldBeNil)
				So(fd.InferredType, ShouldEqual, introspect.Identifier)
				So(fd.IsCritical, ShouldBeTrue)
			})
		})

		Convey("When an unknown field or match is requested", func() {
			for _, path := range []string{
				"/matches/1886347/datasets/enriched_tracking/fields/nope",
				"/matches/1886347/datasets/nope/fields/player_id",
				"/matches/404/report",
				"/matches/404/knowledge-bank",
			} {
				rec := get(mux, path)
				So(rec.Code, ShouldEqual, http.StatusNotFound)
				So(rec.Body.String(), ShouldContainSubstring, `"code":"not_found"`)
			}
		})

		Convey("When the store fails", func() {
			deps.err = fmt.Errorf("disk on fire")
			rec := get(mux, "/matches/1886347/report")

			Convey("Then the error is internal", func() {
				So(rec.Code, ShouldEqual, http.StatusInternalServerError)
				So(strings.Contains(rec.Body.String(), "disk on fire"), ShouldBeTrue)
			})
		})
	})
}

func TestPipelineAsDependencies(t *testing.T) {
	Convey("Given a pipeline over an empty store", t, func() {
		store, err := repository.NewFileStore(t.TempDir())
		So(err, ShouldBeNil)
		mux := newMux(service.New(store))

		Convey("Then lookups of unprocessed matches are not found", func() {
			So(get(mux, "/matches/1/report").Code, ShouldEqual, http.StatusNotFound)
			So(get(mux, "/matches/1/knowledge-bank").Code, ShouldEqual, http.StatusNotFound)
			So(get(mux, "/matches/1/datasets/tracking/fields/frame").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
