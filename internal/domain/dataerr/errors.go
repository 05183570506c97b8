// Package dataerr defines the error taxonomy shared by every ingestion stage.
//
// MissingField and MalformedValue abort the stage that raised them and are
// reported to the caller as input errors ("fix the file and retry").
// UnmatchedReference and ConfigurationGap never abort; they are aggregated in
// run diagnostics instead.
package dataerr

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Error kinds. Match them with errors.Is.
var (
	ErrMissingField       = errors.New("missing field")
	ErrMalformedValue     = errors.New("malformed value")
	ErrUnmatchedReference = errors.New("unmatched reference")
	ErrConfigurationGap   = errors.New("configuration gap")
	ErrInternal           = errors.New("internal error")
)

// Input names one of the datasets a run consumes or produces.
type Input string

const (
	InputMetadata Input = "metadata"
	InputTracking Input = "tracking"
	InputEvents   Input = "events"
	InputPhases   Input = "phases"
	InputEnriched Input = "enriched_tracking"
)

// Error is a classified failure tied to a specific input record.
type Error struct {
	Input  Input
	Kind   error
	Record string // e.g. "player 12345", "frame 1021 (line 1022)"
	Field  string
	Reason string

	// Ref is the unmatched id of an UnmatchedReference.
	Ref int64
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Input))
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Field != "" {
		fmt.Fprintf(&b, " %q", e.Field)
	}
	if e.Record != "" {
		b.WriteString(" at ")
		b.WriteString(e.Record)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// Unwrap exposes the kind so errors.Is(err, ErrMalformedValue) works.
func (e *Error) Unwrap() error { return e.Kind }

// Missing builds a MissingField error.
func Missing(input Input, record, field string) *Error {
	return &Error{Input: input, Kind: ErrMissingField, Record: record, Field: field}
}

// Malformed builds a MalformedValue error.
func Malformed(input Input, record, field, reason string) *Error {
	return &Error{Input: input, Kind: ErrMalformedValue, Record: record, Field: field, Reason: reason}
}

// Unmatched builds an UnmatchedReference error for a tracking player id that
// has no roster entry.
func Unmatched(playerID int64) *Error {
	return &Error{
		Input:  InputTracking,
		Kind:   ErrUnmatchedReference,
		Record: fmt.Sprintf("player %d", playerID),
		Field:  "player_id",
		Ref:    playerID,
	}
}

// Gap builds a ConfigurationGap error for a field no catalog mentions.
func Gap(dataset, field string) *Error {
	return &Error{Input: Input(dataset), Kind: ErrConfigurationGap, Field: field, Reason: "defaults applied"}
}

// IsInputError reports whether err is caused by bad input data rather than
// by the pipeline itself.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingField) || errors.Is(err, ErrMalformedValue)
}

// IsFatal reports whether err must abort the enclosing stage.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrUnmatchedReference) && !errors.Is(err, ErrConfigurationGap)
}

// As extracts the classified error from a wrapped chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Internal marks err as an internal failure unless it is already classified.
func Internal(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return errors.Wrap(err, msg)
	}
	return errors.Mark(errors.Wrap(err, msg), ErrInternal)
}
