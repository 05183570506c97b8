package source

import (
	"io"
	"strings"

	"github.com/okian/pitchlens/internal/domain/dataerr"
	"github.com/okian/pitchlens/internal/domain/introspect"
	"github.com/okian/pitchlens/internal/domain/model"
	"github.com/parquet-go/parquet-go"
)

type enrichedColumn struct {
	name string
	kind introspect.Kind
	get  func(*model.EnrichedRecord) any
}

func str(p *string) any {
	if p == nil {
		return nil
	}
	return strings.Clone(*p)
}

func f64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// enrichedColumns lists the persisted columns in file order.
var enrichedColumns = []enrichedColumn{
	{"match_id", introspect.Unknown, func(r *model.EnrichedRecord) any { return strings.Clone(r.MatchID) }},
	{"frame", introspect.Numeric, func(r *model.EnrichedRecord) any { return r.Frame }},
	{"timestamp", introspect.Unknown, func(r *model.EnrichedRecord) any { return str(r.Timestamp) }},
	{"period", introspect.Unknown, func(r *model.EnrichedRecord) any {
		if r.Period == nil {
			return nil
		}
		return int64(*r.Period)
	}},
	{"player_id", introspect.Unknown, func(r *model.EnrichedRecord) any { return r.PlayerID }},
	{"x", introspect.Numeric, func(r *model.EnrichedRecord) any { return r.X }},
	{"y", introspect.Numeric, func(r *model.EnrichedRecord) any { return r.Y }},
	{"is_detected", introspect.Boolean, func(r *model.EnrichedRecord) any { return r.IsDetected }},
	{"ball_x", introspect.Numeric, func(r *model.EnrichedRecord) any { return f64(r.BallX) }},
	{"ball_y", introspect.Numeric, func(r *model.EnrichedRecord) any { return f64(r.BallY) }},
	{"ball_z", introspect.Numeric, func(r *model.EnrichedRecord) any { return f64(r.BallZ) }},
	{"ball_is_detected", introspect.Boolean, func(r *model.EnrichedRecord) any { return r.BallIsDetected }},
	{"possession_player_id", introspect.Unknown, func(r *model.EnrichedRecord) any {
		if r.PossessionPlayerID == nil {
			return nil
		}
		return *r.PossessionPlayerID
	}},
	{"possession_group", introspect.Unknown, func(r *model.EnrichedRecord) any { return str(r.PossessionGroup) }},
	{"short_name", introspect.Unknown, func(r *model.EnrichedRecord) any { return strings.Clone(r.ShortName) }},
	{"first_name", introspect.Unknown, func(r *model.EnrichedRecord) any { return strings.Clone(r.FirstName) }},
	{"last_name", introspect.Unknown, func(r *model.EnrichedRecord) any { return strings.Clone(r.LastName) }},
	{"number", introspect.Unknown, func(r *model.EnrichedRecord) any { return int64(r.Number) }},
	{"team_id", introspect.Unknown, func(r *model.EnrichedRecord) any { return r.TeamID }},
	{"team_name", introspect.Unknown, func(r *model.EnrichedRecord) any { return strings.Clone(r.TeamName) }},
	{"home_away", introspect.Unknown, func(r *model.EnrichedRecord) any { return strings.Clone(r.HomeAway) }},
	{"position_group", introspect.Unknown, func(r *model.EnrichedRecord) any { return strings.Clone(r.PositionGroup) }},
	{"position_name", introspect.Unknown, func(r *model.EnrichedRecord) any { return strings.Clone(r.PositionName) }},
	{"position_acronym", introspect.Unknown, func(r *model.EnrichedRecord) any { return strings.Clone(r.PositionAcronym) }},
	{"is_goalkeeper", introspect.Boolean, func(r *model.EnrichedRecord) any { return r.IsGoalkeeper }},
	{"start_time", introspect.Unknown, func(r *model.EnrichedRecord) any { return strings.Clone(r.StartTime) }},
	{"end_time", introspect.Unknown, func(r *model.EnrichedRecord) any { return str(r.EndTime) }},
	{"total_time_seconds", introspect.Numeric, func(r *model.EnrichedRecord) any { return r.TotalTimeSeconds }},
	{"direction_first_half", introspect.Unknown, func(r *model.EnrichedRecord) any { return strings.Clone(r.DirectionFirstHalf) }},
	{"direction_second_half", introspect.Unknown, func(r *model.EnrichedRecord) any { return strings.Clone(r.DirectionSecondHalf) }},
	{"match_name", introspect.Unknown, func(r *model.EnrichedRecord) any { return strings.Clone(r.MatchName) }},
	{"date_time", introspect.Unknown, func(r *model.EnrichedRecord) any { return strings.Clone(r.DateTime) }},
	{"home_team_name", introspect.Unknown, func(r *model.EnrichedRecord) any { return strings.Clone(r.HomeTeamName) }},
	{"away_team_name", introspect.Unknown, func(r *model.EnrichedRecord) any { return strings.Clone(r.AwayTeamName) }},
}

// EnrichedParquet samples an enriched tracking file. The row count comes
// from the file footer.
func EnrichedParquet(name string, in io.ReaderAt, sampleRows int) (t *Table, err error) {
	defer func() {
		// parquet-go panics on some corrupt footers
		if r := recover(); r != nil {
			t, err = nil, dataerr.Malformed(dataerr.Input(name), "", "", "unreadable parquet file")
		}
	}()

	t = newTable(name, sampleRows)
	for _, c := range enrichedColumns {
		t.column(c.name, c.kind)
	}

	r := parquet.NewGenericReader[model.EnrichedRecord](in)
	defer r.Close()

	buf := make([]model.EnrichedRecord, min(t.limit, 1024))
	for t.sampling() {
		n, rerr := r.Read(buf[:min(len(buf), t.limit-len(t.sample))])
		for i := 0; i < n; i++ {
			row := make([]any, len(enrichedColumns))
			for j, c := range enrichedColumns {
				row[j] = c.get(&buf[i])
			}
			t.sample = append(t.sample, row)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, dataerr.Malformed(dataerr.Input(name), "", "", rerr.Error())
		}
		if n == 0 {
			break
		}
	}
	t.rows = int(r.NumRows())
	return t, nil
}
