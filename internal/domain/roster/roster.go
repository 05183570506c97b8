// Package roster turns a match metadata document into one RosterEntry per
// player who took part in the match.
package roster

import (
	"context"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/okian/pitchlens/internal/domain/clock"
	"github.com/okian/pitchlens/internal/domain/dataerr"
	"github.com/okian/pitchlens/internal/domain/direction"
	"github.com/okian/pitchlens/internal/domain/model"
	"github.com/okian/pitchlens/pkg/logger"
)

type teamDoc struct {
	ID        *int64 `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	ShortName string `json:"short_name"`
}

type roleDoc struct {
	PositionGroup string `json:"position_group"`
	Name          string `json:"name"`
	Acronym       string `json:"acronym"`
}

type playerDoc struct {
	ID        *int64  `json:"id" validate:"required"`
	ShortName string  `json:"short_name"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Number    *int    `json:"number"`
	TeamID    *int64  `json:"team_id" validate:"required"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Role      roleDoc `json:"player_role"`
}

type competitionDoc struct {
	Name string `json:"name"`
}

type editionDoc struct {
	Competition competitionDoc `json:"competition"`
}

type metadataDoc struct {
	ID           *int64      `json:"id" validate:"required"`
	DateTime     string      `json:"date_time"`
	HomeTeam     *teamDoc    `json:"home_team" validate:"required"`
	AwayTeam     *teamDoc    `json:"away_team" validate:"required"`
	HomeTeamSide []string    `json:"home_team_side" validate:"required"`
	PitchLength  *float64    `json:"pitch_length" validate:"required,gt=0"`
	PitchWidth   *float64    `json:"pitch_width" validate:"required,gt=0"`
	Edition      editionDoc  `json:"competition_edition"`
	Players      []playerDoc `json:"players" validate:"required"`
}

// Team identifies one side of the match.
type Team struct {
	ID   int64
	Name string
}

// Match is the normalized metadata document.
type Match struct {
	ID          int64
	DateTime    string
	Competition string
	HomeTeam    Team
	AwayTeam    Team
	PitchLength float64
	PitchWidth  float64
	Entries     []model.RosterEntry
	// Excluded counts roster slots with neither start nor end time.
	Excluded int
}

// Normalizer converts metadata documents to roster entries.
type Normalizer struct {
	defaultEnd float64
	gkAcronym  string
	validate   *dataerr.Validator
	logger     logger.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		defaultEnd: DefaultMatchLength,
		gkAcronym:  DefaultGoalkeeperAcronym,
		validate:   dataerr.NewValidator(),
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize reads one metadata document and returns its roster.
func (n *Normalizer) Normalize(ctx context.Context, r io.Reader) ([]model.RosterEntry, error) {
	m, err := n.NormalizeMatch(ctx, r)
	if err != nil {
		return nil, err
	}
	return m.Entries, nil
}

// NormalizeMatch reads one metadata document and returns the match with its
// roster. No partial roster is returned on error.
func (n *Normalizer) NormalizeMatch(ctx context.Context, r io.Reader) (*Match, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, dataerr.Internal(err, "read metadata")
	}

	var doc metadataDoc
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return nil, dataerr.Malformed(dataerr.InputMetadata, "", "", "invalid json: "+err.Error())
	}
	if err := n.validate.Check(ctx, dataerr.InputMetadata, "", &doc); err != nil {
		return nil, err
	}

	// Resolve once per side; a bad side array fails even for an empty roster.
	home, err := direction.Resolve(doc.HomeTeamSide, model.Home)
	if err != nil {
		return nil, err
	}
	away, err := direction.Resolve(doc.HomeTeamSide, model.Away)
	if err != nil {
		return nil, err
	}

	m := &Match{
		ID:          *doc.ID,
		DateTime:    doc.DateTime,
		Competition: doc.Edition.Competition.Name,
		HomeTeam:    Team{ID: *doc.HomeTeam.ID, Name: doc.HomeTeam.Name},
		AwayTeam:    Team{ID: *doc.AwayTeam.ID, Name: doc.AwayTeam.Name},
		PitchLength: *doc.PitchLength,
		PitchWidth:  *doc.PitchWidth,
		Entries:     make([]model.RosterEntry, 0, len(doc.Players)),
	}
	matchName := m.HomeTeam.Name + " vs " + m.AwayTeam.Name

	for i := range doc.Players {
		p := &doc.Players[i]
		if p.StartTime == nil && p.EndTime == nil {
			m.Excluded++
			continue
		}

		record := fmt.Sprintf("players[%d]", i)
		if p.ID != nil {
			record = fmt.Sprintf("player %d", *p.ID)
		}
		if err := n.validate.Check(ctx, dataerr.InputMetadata, record, p); err != nil {
			return nil, err
		}

		e, err := n.entry(p, record, m, home, away)
		if err != nil {
			return nil, err
		}
		e.MatchName = matchName
		m.Entries = append(m.Entries, e)
	}

	n.logger.Debug(ctx, "roster normalized",
		logger.Int64("match_id", m.ID),
		logger.Int("players", len(m.Entries)),
		logger.Int("excluded", m.Excluded),
	)
	return m, nil
}

func (n *Normalizer) entry(p *playerDoc, record string, m *Match, home, away direction.Pair) (model.RosterEntry, error) {
	var start float64
	startTime := ""
	if p.StartTime != nil {
		s, err := clock.Seconds(*p.StartTime)
		if err != nil {
			return model.RosterEntry{}, dataerr.Malformed(dataerr.InputMetadata, record, "start_time", err.Error())
		}
		start = s
		startTime = *p.StartTime
	}
	end, err := clock.SecondsOr(p.EndTime, n.defaultEnd)
	if err != nil {
		return model.RosterEntry{}, dataerr.Malformed(dataerr.InputMetadata, record, "end_time", err.Error())
	}

	total := end - start
	if !(total >= 0) { // NaN fails too
		return model.RosterEntry{}, dataerr.Malformed(dataerr.InputMetadata, record, "end_time",
			fmt.Sprintf("ends before it starts (%.0fs < %.0fs)", end, start))
	}

	side, team, dir := model.Away, m.AwayTeam, away
	if *p.TeamID == m.HomeTeam.ID {
		side, team, dir = model.Home, m.HomeTeam, home
	}

	number := 0
	if p.Number != nil {
		number = *p.Number
	}

	return model.RosterEntry{
		PlayerID:        *p.ID,
		ShortName:       p.ShortName,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		Number:          number,
		TeamID:          *p.TeamID,
		TeamName:        team.Name,
		HomeAway:        side,
		PositionGroup:   p.Role.PositionGroup,
		PositionName:    p.Role.Name,
		PositionAcronym: p.Role.Acronym,
		IsGoalkeeper:    p.Role.Acronym == n.gkAcronym,
		StartTime:       startTime,
		EndTime:         p.EndTime,
		StartSeconds:    start,
		EndSeconds:      end,
		TotalSeconds:    total,
		DirectionFirst:  dir.FirstHalf,
		DirectionSecond: dir.SecondHalf,
		DateTime:        m.DateTime,
		HomeTeamName:    m.HomeTeam.Name,
		AwayTeamName:    m.AwayTeam.Name,
	}, nil
}
