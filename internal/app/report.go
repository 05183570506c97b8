package service

import (
	"io"
	"slices"
	"time"

	"github.com/bytedance/sonic"

	"github.com/okian/pitchlens/internal/domain/diag"
	"github.com/okian/pitchlens/internal/domain/model"
	"github.com/okian/pitchlens/internal/domain/tracking"
)

// Report summarizes one pipeline run. It is written next to the artifacts.
type Report struct {
	RunID       string           `json:"run_id"`
	MatchID     string           `json:"match_id"`
	MatchName   string           `json:"match_name"`
	StartedAt   time.Time        `json:"started_at"`
	DurationMS  int64            `json:"duration_ms"`
	Roster      RosterSummary    `json:"roster"`
	Tracking    TrackingSummary  `json:"tracking"`
	Enriched    EnrichedSummary  `json:"enriched"`
	Diagnostics diag.Report      `json:"diagnostics"`
	Datasets    []DatasetSummary `json:"datasets"`
	Artifacts   []string         `json:"artifacts"`
}

// RosterSummary describes the normalized roster.
type RosterSummary struct {
	Players  int `json:"players"`
	Excluded int `json:"excluded"`
}

// TrackingSummary mirrors tracking.Stats.
type TrackingSummary struct {
	Lines            int64 `json:"lines"`
	Frames           int64 `json:"frames"`
	Rows             int64 `json:"rows"`
	Batches          int64 `json:"batches"`
	DuplicateFrames  int64 `json:"duplicate_frames"`
	OutOfOrderFrames int64 `json:"out_of_order_frames"`
}

func trackingSummary(st tracking.Stats) TrackingSummary {
	return TrackingSummary{
		Lines:            st.Lines,
		Frames:           st.Frames,
		Rows:             st.Rows,
		Batches:          st.Batches,
		DuplicateFrames:  st.DuplicateFrames,
		OutOfOrderFrames: st.OutOfOrderFrames,
	}
}

// EnrichedSummary is computed by reading the persisted artifact back.
type EnrichedSummary struct {
	Rows          int64   `json:"rows"`
	Dropped       int64   `json:"dropped"`
	UniquePlayers int     `json:"unique_players"`
	UniqueFrames  int     `json:"unique_frames"`
	Periods       []int32 `json:"periods"`
}

// DatasetSummary is a short view of one knowledge bank entry.
type DatasetSummary struct {
	Name                  string   `json:"name"`
	Rows                  int      `json:"rows"`
	Columns               int      `json:"columns"`
	MissingCriticalFields []string `json:"missing_critical_fields,omitempty"`
}

// enrichedTally accumulates EnrichedSummary fields from record batches.
type enrichedTally struct {
	players map[int64]struct{}
	frames  map[int64]struct{}
	periods map[int32]struct{}
}

func newEnrichedTally() *enrichedTally {
	return &enrichedTally{
		players: make(map[int64]struct{}),
		frames:  make(map[int64]struct{}),
		periods: make(map[int32]struct{}),
	}
}

func (t *enrichedTally) add(records []model.EnrichedRecord) error {
	for i := range records {
		r := &records[i]
		t.players[r.PlayerID] = struct{}{}
		t.frames[r.Frame] = struct{}{}
		if r.Period != nil {
			t.periods[*r.Period] = struct{}{}
		}
	}
	return nil
}

func (t *enrichedTally) summary(rows, dropped int64) EnrichedSummary {
	periods := make([]int32, 0, len(t.periods))
	for p := range t.periods {
		periods = append(periods, p)
	}
	slices.Sort(periods)
	return EnrichedSummary{
		Rows:          rows,
		Dropped:       dropped,
		UniquePlayers: len(t.players),
		UniqueFrames:  len(t.frames),
		Periods:       periods,
	}
}

// Encode writes r as indented JSON.
func (r *Report) Encode(w io.Writer) error {
	raw, err := sonic.ConfigStd.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	return err
}

// DecodeReport reads a report written by Encode.
func DecodeReport(rd io.Reader) (*Report, error) {
	raw, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := sonic.ConfigStd.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
