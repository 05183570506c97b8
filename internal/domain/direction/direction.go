// Package direction resolves each player's attacking direction per half.
package direction

import (
	"fmt"

	"github.com/okian/pitchlens/internal/domain/dataerr"
	"github.com/okian/pitchlens/internal/domain/model"
)

// Canonical direction tokens.
const (
	LeftToRight = "left_to_right"
	RightToLeft = "right_to_left"
)

// Pair holds a team's direction in the first and second half.
type Pair struct {
	FirstHalf  string
	SecondHalf string
}

// Resolve maps the home team's per-half sides to the directions of a player on
// the given side. Home players get the sides verbatim; away players get them
// with the halves swapped.
func Resolve(sides []string, side model.HomeAway) (Pair, error) {
	if len(sides) < 2 {
		return Pair{}, dataerr.Malformed(dataerr.InputMetadata, "", "home_team_side",
			fmt.Sprintf("expected two halves, got %d", len(sides)))
	}
	for i, s := range sides[:2] {
		if !Valid(s) {
			return Pair{}, dataerr.Malformed(dataerr.InputMetadata, "", "home_team_side",
				fmt.Sprintf("half %d: unknown direction %q", i+1, s))
		}
	}

	switch side {
	case model.Home:
		return Pair{FirstHalf: sides[0], SecondHalf: sides[1]}, nil
	case model.Away:
		return Pair{FirstHalf: sides[1], SecondHalf: sides[0]}, nil
	default:
		return Pair{}, dataerr.Malformed(dataerr.InputMetadata, "", "home_away",
			fmt.Sprintf("unknown side %q", side))
	}
}

// Valid reports whether s is a canonical direction token.
func Valid(s string) bool {
	return s == LeftToRight || s == RightToLeft
}
