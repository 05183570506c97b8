package synth

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/sourcegraph/conc/stream"
)

// StrayPlayerID is carried by stray frames and never appears in the roster.
const StrayPlayerID = 9999999

// Pitch and clock constants.
const (
	pitchLength   = 105.0
	pitchWidth    = 68.0
	halfSeconds   = 45 * 60
	firstFrame    = 10
	homeIDBase    = 10000
	awayIDBase    = 20000
	homeTeamID    = 100
	awayTeamID    = 200
	detectedRatio = 0.9
)

var (
	eventTypes = []string{"pass", "carry", "shot", "clearance", "interception", "duel"}
	phaseTypes = []string{"build_up", "create", "finish", "direct", "quick_break", "transition", "chaotic", "set_play"}
)

type teamDoc struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

type roleDoc struct {
	PositionGroup string `json:"position_group"`
	Name          string `json:"name"`
	Acronym       string `json:"acronym"`
}

type playerDoc struct {
	ID        int64   `json:"id"`
	ShortName string  `json:"short_name"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Number    int     `json:"number"`
	TeamID    int64   `json:"team_id"`
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
	ID           int64       `json:"id"`
	DateTime     string      `json:"date_time"`
	HomeTeam     teamDoc     `json:"home_team"`
	AwayTeam     teamDoc     `json:"away_team"`
	HomeTeamSide []string    `json:"home_team_side"`
	PitchLength  float64     `json:"pitch_length"`
	PitchWidth   float64     `json:"pitch_width"`
	Edition      editionDoc  `json:"competition_edition"`
	Players      []playerDoc `json:"players"`
}

type ballDoc struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	IsDetected bool    `json:"is_detected"`
}

type possessionDoc struct {
	PlayerID *int64  `json:"player_id"`
	Group    *string `json:"group"`
}

type positionDoc struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	PlayerID   int64   `json:"player_id"`
	IsDetected bool    `json:"is_detected"`
}

type frameDoc struct {
	Frame      int64         `json:"frame"`
	Timestamp  string        `json:"timestamp"`
	Period     int           `json:"period"`
	Ball       ballDoc       `json:"ball_data"`
	Possession possessionDoc `json:"possession"`
	Players    []positionDoc `json:"player_data"`
}

// onPitch lists the players of one team in one period.
type onPitch struct {
	teamID int64
	group  string
	ids    []int64
}

// Generator produces one synthetic match. Output depends only on the Config.
type Generator struct {
	cfg      Config
	metadata metadataDoc
	// lineups[period-1] holds the home and away players on the pitch.
	lineups [2][2]onPitch
}

// NewGenerator builds the roster of a match described by cfg.
func NewGenerator(cfg Config) *Generator {
	g := &Generator{cfg: cfg}
	rng := g.rng(math.MaxUint64)

	sides := []string{"left_to_right", "right_to_left"}
	if rng.IntN(2) == 1 {
		sides[0], sides[1] = sides[1], sides[0]
	}
	g.metadata = metadataDoc{
		ID:           cfg.MatchID,
		DateTime:     "2024-11-30T04:00:00Z",
		HomeTeam:     teamDoc{ID: homeTeamID, Name: "Synthetic Home FC", ShortName: "Home"},
		AwayTeam:     teamDoc{ID: awayTeamID, Name: "Synthetic Away FC", ShortName: "Away"},
		HomeTeamSide: sides,
		PitchLength:  pitchLength,
		PitchWidth:   pitchWidth,
		Edition:      editionDoc{Competition: competitionDoc{Name: "Synthetic League"}},
	}

	for side, team := range []struct {
		id    int64
		base  int64
		group string
	}{
		{homeTeamID, homeIDBase, "home team"},
		{awayTeamID, awayIDBase, "away team"},
	} {
		first, second := g.squad(team.id, team.base)
		g.lineups[0][side] = onPitch{teamID: team.id, group: team.group, ids: first}
		g.lineups[1][side] = onPitch{teamID: team.id, group: team.group, ids: second}
	}
	return g
}

// squad appends the players of one team and returns who is on the pitch in
// each half. The last starters make way for the substitutes at half-time.
func (g *Generator) squad(teamID, base int64) (first, second []int64) {
	kickoff, halfTime := "00:00:00", "00:45:00"
	n := g.cfg.PlayersPerTeam + g.cfg.Substitutes + g.cfg.Bench
	subbedOff := g.cfg.PlayersPerTeam - g.cfg.Substitutes

	for i := range n {
		p := playerDoc{
			ID:        base + int64(i) + 1,
			FirstName: "Player",
			LastName:  strconv.FormatInt(base+int64(i)+1, 10),
			Number:    i + 1,
			TeamID:    teamID,
			Role:      roleDoc{PositionGroup: "Midfield", Name: "Central Midfield", Acronym: "CM"},
		}
		p.ShortName = fmt.Sprintf("P. %d", p.ID)
		if i == 0 {
			p.Role = roleDoc{PositionGroup: "Goalkeeper", Name: "Goalkeeper", Acronym: "GK"}
		}

		switch {
		case i < subbedOff:
			p.StartTime = &kickoff
			first = append(first, p.ID)
			second = append(second, p.ID)
		case i < g.cfg.PlayersPerTeam:
			p.StartTime, p.EndTime = &kickoff, &halfTime
			first = append(first, p.ID)
		case i < g.cfg.PlayersPerTeam+g.cfg.Substitutes:
			p.StartTime = &halfTime
			second = append(second, p.ID)
		}
		g.metadata.Players = append(g.metadata.Players, p)
	}
	return first, second
}

func (g *Generator) rng(seq uint64) *rand.Rand {
	return rand.New(rand.NewPCG(g.cfg.Seed, seq))
}

// Frames is the number of distinct tracking frames.
func (g *Generator) Frames() int { return 2 * g.cfg.FramesPerPeriod }

// Expect returns the counts the pipeline must reproduce for this match.
func (g *Generator) Expect() Stats {
	frames := g.Frames()
	var rows int
	for _, lineup := range g.lineups {
		rows += g.cfg.FramesPerPeriod * (len(lineup[0].ids) + len(lineup[1].ids))
	}
	players := 0
	for _, p := range g.metadata.Players {
		if p.StartTime != nil || p.EndTime != nil {
			players++
		}
	}
	dups := min(g.cfg.DuplicateFrames, frames)
	malformed := min(g.cfg.MalformedLines, frames)
	return Stats{
		Players:         players,
		Excluded:        len(g.metadata.Players) - players,
		Frames:          frames,
		TrackingLines:   frames + dups + malformed,
		ExpectedRows:    rows,
		StrayRows:       min(g.cfg.StrayFrames, frames),
		DuplicateFrames: dups,
		MalformedLines:  malformed,
	}
}

// WriteMetadata writes the match metadata document.
func (g *Generator) WriteMetadata(w io.Writer) error {
	data, err := sonic.ConfigStd.MarshalIndent(g.metadata, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// WriteTracking streams the tracking file. Chunks of frames are encoded
// concurrently and written in frame order.
func (g *Generator) WriteTracking(ctx context.Context, w io.Writer) (int, error) {
	bw := bufio.NewWriterSize(w, 1<<20)
	s := stream.New().WithMaxGoroutines(g.cfg.Workers)

	var (
		lines int
		werr  error
	)
	for first := 0; first < g.Frames(); first += g.cfg.ChunkFrames {
		if ctx.Err() != nil {
			break
		}
		last := min(first+g.cfg.ChunkFrames, g.Frames())
		s.Go(func() stream.Callback {
			buf, n, err := g.encodeChunk(first, last)
			return func() {
				if werr != nil {
					return
				}
				if err != nil {
					werr = err
					return
				}
				_, werr = bw.Write(buf)
				lines += n
			}
		})
	}
	s.Wait()

	if werr != nil {
		return lines, werr
	}
	if err := ctx.Err(); err != nil {
		return lines, err
	}
	return lines, bw.Flush()
}

// encodeChunk renders frames [first, last) with their injected anomalies.
// Each frame draws from its own source so chunking does not change output.
func (g *Generator) encodeChunk(first, last int) ([]byte, int, error) {
	var (
		buf   []byte
		lines int
	)
	for i := first; i < last; i++ {
		if i < g.cfg.MalformedLines {
			buf = append(buf, `{"frame": `+strconv.Itoa(firstFrame+i)+`, "player_data": [`...)
			buf = append(buf, '\n')
			lines++
		}
		line, err := sonic.Marshal(g.frame(i, g.rng(uint64(i))))
		if err != nil {
			return nil, 0, err
		}
		buf = append(append(buf, line...), '\n')
		lines++
		if i < g.cfg.DuplicateFrames {
			buf = append(append(buf, line...), '\n')
			lines++
		}
	}
	return buf, lines, nil
}

func (g *Generator) frame(i int, rng *rand.Rand) frameDoc {
	period := i/g.cfg.FramesPerPeriod + 1
	lineup := g.lineups[period-1]
	offset := float64(i%g.cfg.FramesPerPeriod) / float64(g.cfg.FrameRate)

	f := frameDoc{
		Frame:     int64(firstFrame + i),
		Timestamp: clockString(float64((period-1)*halfSeconds) + offset),
		Period:    period,
		Ball: ballDoc{
			X:          coord(rng, pitchLength),
			Y:          coord(rng, pitchWidth),
			Z:          round2(rng.Float64() * 3),
			IsDetected: rng.Float64() < detectedRatio,
		},
		Players: make([]positionDoc, 0, len(lineup[0].ids)+len(lineup[1].ids)+1),
	}

	// Possession alternates every ten seconds of play.
	owner := lineup[(i/(10*g.cfg.FrameRate))%2]
	holder := owner.ids[rng.IntN(len(owner.ids))]
	f.Possession = possessionDoc{PlayerID: &holder, Group: &owner.group}

	for _, team := range lineup {
		for _, id := range team.ids {
			f.Players = append(f.Players, positionDoc{
				X:          coord(rng, pitchLength),
				Y:          coord(rng, pitchWidth),
				PlayerID:   id,
				IsDetected: rng.Float64() < detectedRatio,
			})
		}
	}
	if i < g.cfg.StrayFrames {
		f.Players = append(f.Players, positionDoc{PlayerID: StrayPlayerID, IsDetected: false})
	}
	return f
}

// WriteEvents writes one event every five seconds of play and returns the
// number of rows.
func (g *Generator) WriteEvents(w io.Writer) (int, error) {
	rng := g.rng(math.MaxUint64 - 1)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"event_id", "index", "match_id", "frame_start", "frame_end", "period",
		"team_id", "player_id", "event_type", "x_start", "y_start", "xthreat",
	})

	step := 5 * g.cfg.FrameRate
	n := 0
	for i := 0; i < g.Frames(); i += step {
		period := i/g.cfg.FramesPerPeriod + 1
		team := g.lineups[period-1][rng.IntN(2)]
		xthreat := ""
		if rng.IntN(3) > 0 {
			xthreat = strconv.FormatFloat(round2(rng.Float64()/10), 'f', -1, 64)
		}
		_ = cw.Write([]string{
			fmt.Sprintf("%d_%d", period, n),
			strconv.Itoa(n),
			strconv.FormatInt(g.cfg.MatchID, 10),
			strconv.Itoa(firstFrame + i),
			strconv.Itoa(firstFrame + min(i+g.cfg.FrameRate, g.Frames()-1)),
			strconv.Itoa(period),
			strconv.FormatInt(team.teamID, 10),
			strconv.FormatInt(team.ids[rng.IntN(len(team.ids))], 10),
			eventTypes[rng.IntN(len(eventTypes))],
			strconv.FormatFloat(coord(rng, pitchLength), 'f', -1, 64),
			strconv.FormatFloat(coord(rng, pitchWidth), 'f', -1, 64),
			xthreat,
		})
		n++
	}
	cw.Flush()
	return n, cw.Error()
}

// WritePhases writes the phases of play, thirty seconds each, and returns the
// number of rows.
func (g *Generator) WritePhases(w io.Writer) (int, error) {
	rng := g.rng(math.MaxUint64 - 2)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"index", "match_id", "frame_start", "frame_end", "period",
		"team_in_possession_id", "team_possession_phase_type",
	})

	step := 30 * g.cfg.FrameRate
	n := 0
	for period := 1; period <= 2; period++ {
		base := (period - 1) * g.cfg.FramesPerPeriod
		for i := 0; i < g.cfg.FramesPerPeriod; i += step {
			last := min(i+step, g.cfg.FramesPerPeriod) - 1
			team := g.lineups[period-1][rng.IntN(2)]
			_ = cw.Write([]string{
				strconv.Itoa(n),
				strconv.FormatInt(g.cfg.MatchID, 10),
				strconv.Itoa(firstFrame + base + i),
				strconv.Itoa(firstFrame + base + last),
				strconv.Itoa(period),
				strconv.FormatInt(team.teamID, 10),
				phaseTypes[rng.IntN(len(phaseTypes))],
			})
			n++
		}
	}
	cw.Flush()
	return n, cw.Error()
}

// clockString renders seconds as HH:MM:SS.ss.
func clockString(seconds float64) string {
	h := int(seconds) / 3600
	m := int(seconds) % 3600 / 60
	s := seconds - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%05.2f", h, m, s)
}

func coord(rng *rand.Rand, extent float64) float64 {
	return round2((rng.Float64() - 0.5) * extent)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
