package tracking

import "github.com/okian/pitchlens/internal/domain/model"

// Flatten explodes a frame into one row per player observation, in
// observation order. A frame without players yields no rows.
func Flatten(matchID string, f model.Frame) []model.TrackingRow {
	return AppendRows(nil, matchID, f)
}

// AppendRows appends the rows of f to dst.
func AppendRows(dst []model.TrackingRow, matchID string, f model.Frame) []model.TrackingRow {
	for _, p := range f.Players {
		dst = append(dst, model.TrackingRow{
			MatchID:            matchID,
			Frame:              f.Frame,
			Timestamp:          f.Timestamp,
			Period:             f.Period,
			PlayerID:           p.PlayerID,
			X:                  p.X,
			Y:                  p.Y,
			IsDetected:         p.IsDetected,
			BallX:              f.Ball.X,
			BallY:              f.Ball.Y,
			BallZ:              f.Ball.Z,
			BallIsDetected:     f.Ball.IsDetected,
			PossessionPlayerID: f.Possession.PlayerID,
			PossessionGroup:    f.Possession.Group,
		})
	}
	return dst
}
