// Package clock converts match clock strings ("H:M:S", optionally with
// fractional seconds) to seconds from kickoff.
package clock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedClock is returned for strings that are not H:M:S.
var ErrMalformedClock = errors.New("malformed clock")

// FullMatch is the regulation length of a match in seconds.
const FullMatch = 90 * 60

// Seconds parses an H:M:S clock string. Hours are unbounded so that extra time
// ("01:58:03") parses; minutes and seconds must be below 60.
func Seconds(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedClock, s)
	}

	h, err := strconv.Atoi(parts[0])
	if !decimal(parts[0]) || err != nil {
		return 0, fmt.Errorf("%w: %q: bad hours", ErrMalformedClock, s)
	}
	m, err := strconv.Atoi(parts[1])
	if !decimal(parts[1]) || err != nil || m > 59 {
		return 0, fmt.Errorf("%w: %q: bad minutes", ErrMalformedClock, s)
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if !decimal(parts[2]) || err != nil || sec >= 60 {
		return 0, fmt.Errorf("%w: %q: bad seconds", ErrMalformedClock, s)
	}

	return float64(h*3600+m*60) + sec, nil
}

// decimal reports whether s is digits with an optional fraction. ParseFloat
// alone would also take "NaN", "Inf" and hex floats.
func decimal(s string) bool {
	digits, dot := 0, false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && !dot && digits > 0:
			dot = true
		default:
			return false
		}
	}
	return digits > 0
}

// SecondsOr parses s, or returns fallback when s is nil.
func SecondsOr(s *string, fallback float64) (float64, error) {
	if s == nil {
		return fallback, nil
	}
	return Seconds(*s)
}

// IsClock reports whether s parses as a clock string.
func IsClock(s string) bool {
	_, err := Seconds(s)
	return err == nil
}
