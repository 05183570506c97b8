package introspect

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/okian/pitchlens/internal/domain/clock"
)

// Kind is a column type, either declared by an adapter or inferred.
type Kind string

const (
	Unknown     Kind = ""
	Numeric     Kind = "numeric"
	Categorical Kind = "categorical"
	Boolean     Kind = "boolean"
	Identifier  Kind = "identifier"
	Timestamp   Kind = "timestamp"
	Text        Kind = "text"
)

// maxDisplay is the length above which sample values are truncated.
const maxDisplay = 100

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

// IsIdentifierName reports whether a column name marks an identifier.
func IsIdentifierName(name string) bool {
	return name == "id" || strings.HasSuffix(name, "_id") || strings.HasSuffix(name, ".id")
}

// isNull treats nil and blank strings as missing.
func isNull(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

func isBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return true
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "false"
	}
	return false
}

func isNumber(v any) bool {
	switch t := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	case json.Number:
		_, err := t.Float64()
		return err == nil
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return err == nil
	}
	return false
}

func isTimestamp(v any) bool {
	switch t := v.(type) {
	case time.Time:
		return true
	case string:
		s := strings.TrimSpace(t)
		if clock.IsClock(s) {
			return true
		}
		for _, layout := range timestampLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return true
			}
		}
	}
	return false
}

func all(values []any, pred func(any) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}

// infer classifies a column from its name, declared kind and non-null
// samples. distinct is the number of distinct display values in samples.
func infer(name string, declared Kind, samples []any, distinct, threshold int) Kind {
	if IsIdentifierName(name) {
		return Identifier
	}
	switch declared {
	case Numeric, Boolean, Timestamp:
		return declared
	}
	switch {
	case len(samples) == 0:
		return Text
	case all(samples, isBool):
		return Boolean
	case all(samples, isNumber):
		return Numeric
	case all(samples, isTimestamp):
		return Timestamp
	case distinct < threshold:
		return Categorical
	default:
		return Text
	}
}

// display renders v as a display-safe string.
func display(v any) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case bool:
		s = strconv.FormatBool(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int64:
		s = strconv.FormatInt(t, 10)
	case int:
		s = strconv.Itoa(t)
	case json.Number:
		s = t.String()
	case time.Time:
		s = t.Format(time.RFC3339Nano)
	case map[string]any, []any:
		raw, err := sonic.ConfigStd.Marshal(t)
		if err != nil {
			s = fmt.Sprint(t)
		} else {
			s = string(raw)
		}
	default:
		s = fmt.Sprint(t)
	}
	return truncate(s)
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxDisplay {
		return s
	}
	r := []rune(s)
	return string(r[:maxDisplay]) + "..."
}

// size approximates the in-memory footprint of one value in bytes.
func size(v any) int64 {
	switch t := v.(type) {
	case bool, int8, uint8:
		return 1
	case string:
		return int64(len(t)) + 16
	case map[string]any, []any:
		return int64(len(display(t))) + 16
	default:
		return 8
	}
}
