// Package model contains domain models passed between layers.
package model

// HomeAway classifies a team relative to the match's home team.
type HomeAway string

const (
	Home HomeAway = "home"
	Away HomeAway = "away"
)

// Frame is one sampled instant of the tracking stream.
// Period and Timestamp are nil in pre-kickoff frames.
type Frame struct {
	Frame      int64
	Timestamp  *string
	Period     *int
	Ball       BallObservation
	Possession PossessionState
	Players    []PlayerObservation
}

// PlayerObservation is one player's position in a frame.
type PlayerObservation struct {
	PlayerID   int64
	X          float64
	Y          float64
	IsDetected bool // false: low-confidence estimate
}

// BallObservation is the ball position in a frame. Coordinates are nil when
// the ball is not tracked.
type BallObservation struct {
	X          *float64
	Y          *float64
	Z          *float64
	IsDetected bool
}

// PossessionState attributes the ball; both fields nil when undetermined.
type PossessionState struct {
	PlayerID *int64
	Group    *string
}

// RosterEntry is one player who took part in the match.
type RosterEntry struct {
	PlayerID        int64
	ShortName       string
	FirstName       string
	LastName        string
	Number          int
	TeamID          int64
	TeamName        string
	HomeAway        HomeAway
	PositionGroup   string
	PositionName    string
	PositionAcronym string
	IsGoalkeeper    bool
	StartTime       string
	EndTime         *string
	StartSeconds    float64
	EndSeconds      float64
	TotalSeconds    float64
	DirectionFirst  string
	DirectionSecond string

	MatchName    string // "Home vs Away"
	DateTime     string
	HomeTeamName string
	AwayTeamName string
}

// TrackingRow is one (frame, player) row with the frame context denormalized.
type TrackingRow struct {
	MatchID            string
	Frame              int64
	Timestamp          *string
	Period             *int
	PlayerID           int64
	X                  float64
	Y                  float64
	IsDetected         bool
	BallX              *float64
	BallY              *float64
	BallZ              *float64
	BallIsDetected     bool
	PossessionPlayerID *int64
	PossessionGroup    *string
}

// EnrichedRecord is a TrackingRow joined with exactly one RosterEntry.
// Field tags define the persisted column names.
type EnrichedRecord struct {
	MatchID            string   `parquet:"match_id"`
	Frame              int64    `parquet:"frame"`
	Timestamp          *string  `parquet:"timestamp,optional"`
	Period             *int32   `parquet:"period,optional"`
	PlayerID           int64    `parquet:"player_id"`
	X                  float64  `parquet:"x"`
	Y                  float64  `parquet:"y"`
	IsDetected         bool     `parquet:"is_detected"`
	BallX              *float64 `parquet:"ball_x,optional"`
	BallY              *float64 `parquet:"ball_y,optional"`
	BallZ              *float64 `parquet:"ball_z,optional"`
	BallIsDetected     bool     `parquet:"ball_is_detected"`
	PossessionPlayerID *int64   `parquet:"possession_player_id,optional"`
	PossessionGroup    *string  `parquet:"possession_group,optional"`

	ShortName           string  `parquet:"short_name"`
	FirstName           string  `parquet:"first_name"`
	LastName            string  `parquet:"last_name"`
	Number              int32   `parquet:"number"`
	TeamID              int64   `parquet:"team_id"`
	TeamName            string  `parquet:"team_name"`
	HomeAway            string  `parquet:"home_away"`
	PositionGroup       string  `parquet:"position_group"`
	PositionName        string  `parquet:"position_name"`
	PositionAcronym     string  `parquet:"position_acronym"`
	IsGoalkeeper        bool    `parquet:"is_goalkeeper"`
	StartTime           string  `parquet:"start_time"`
	EndTime             *string `parquet:"end_time,optional"`
	TotalTimeSeconds    float64 `parquet:"total_time_seconds"`
	DirectionFirstHalf  string  `parquet:"direction_first_half"`
	DirectionSecondHalf string  `parquet:"direction_second_half"`
	MatchName           string  `parquet:"match_name"`
	DateTime            string  `parquet:"date_time"`
	HomeTeamName        string  `parquet:"home_team_name"`
	AwayTeamName        string  `parquet:"away_team_name"`
}

// Enrich combines a tracking row with its roster entry.
func Enrich(row TrackingRow, e RosterEntry) EnrichedRecord {
	var period *int32
	if row.Period != nil {
		p := int32(*row.Period)
		period = &p
	}
	return EnrichedRecord{
		MatchID:            row.MatchID,
		Frame:              row.Frame,
		Timestamp:          row.Timestamp,
		Period:             period,
		PlayerID:           row.PlayerID,
		X:                  row.X,
		Y:                  row.Y,
		IsDetected:         row.IsDetected,
		BallX:              row.BallX,
		BallY:              row.BallY,
		BallZ:              row.BallZ,
		BallIsDetected:     row.BallIsDetected,
		PossessionPlayerID: row.PossessionPlayerID,
		PossessionGroup:    row.PossessionGroup,

		ShortName:           e.ShortName,
		FirstName:           e.FirstName,
		LastName:            e.LastName,
		Number:              int32(e.Number),
		TeamID:              e.TeamID,
		TeamName:            e.TeamName,
		HomeAway:            string(e.HomeAway),
		PositionGroup:       e.PositionGroup,
		PositionName:        e.PositionName,
		PositionAcronym:     e.PositionAcronym,
		IsGoalkeeper:        e.IsGoalkeeper,
		StartTime:           e.StartTime,
		EndTime:             e.EndTime,
		TotalTimeSeconds:    e.TotalSeconds,
		DirectionFirstHalf:  e.DirectionFirst,
		DirectionSecondHalf: e.DirectionSecond,
		MatchName:           e.MatchName,
		DateTime:            e.DateTime,
		HomeTeamName:        e.HomeTeamName,
		AwayTeamName:        e.AwayTeamName,
	}
}
