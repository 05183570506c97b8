// Package diag aggregates recoverable problems found during a run so that
// dropped rows and defaulted fields are visible in the run report.
package diag

import (
	"slices"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/okian/pitchlens/internal/domain/dataerr"
)

// DefaultMaxSamples caps the number of skipped-line details kept.
const DefaultMaxSamples = 100

// Skipped describes one tracking line that was skipped.
type Skipped struct {
	Line   int64  `json:"line" yaml:"line"`
	Reason string `json:"reason" yaml:"reason"`
}

// Report is an immutable snapshot of a Collector.
type Report struct {
	UnmatchedRows     int64               `json:"unmatched_rows" yaml:"unmatched_rows"`
	UnmatchedByPlayer map[int64]int64     `json:"unmatched_by_player,omitempty" yaml:"unmatched_by_player,omitempty"`
	ConfigurationGaps map[string][]string `json:"configuration_gaps,omitempty" yaml:"configuration_gaps,omitempty"`
	SkippedLines      int64               `json:"skipped_lines" yaml:"skipped_lines"`
	SkippedSamples    []Skipped           `json:"skipped_samples,omitempty" yaml:"skipped_samples,omitempty"`
	DuplicateFrames   int64               `json:"duplicate_frames" yaml:"duplicate_frames"`
	OutOfOrderFrames  int64               `json:"out_of_order_frames" yaml:"out_of_order_frames"`
}

// Collector is safe for concurrent use.
type Collector struct {
	mu         sync.Mutex
	maxSamples int

	unmatched      int64
	unmatchedBy    map[int64]int64
	gaps           map[string]map[string]struct{}
	skipped        int64
	skippedSamples []Skipped
	duplicates     int64
	outOfOrder     int64
}

// NewCollector returns an empty collector keeping at most maxSamples skipped
// line details (DefaultMaxSamples when maxSamples <= 0).
func NewCollector(maxSamples int) *Collector {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Collector{
		maxSamples:  maxSamples,
		unmatchedBy: make(map[int64]int64),
		gaps:        make(map[string]map[string]struct{}),
	}
}

// Record aggregates a recoverable error. n is the number of rows it affected
// and is ignored for configuration gaps. Fatal errors are returned unchanged
// and nothing is recorded.
func (c *Collector) Record(err error, n int64) error {
	if err == nil {
		return nil
	}
	de, ok := dataerr.As(err)
	if !ok || dataerr.IsFatal(err) {
		return err
	}
	switch {
	case errors.Is(de.Kind, dataerr.ErrUnmatchedReference):
		c.addUnmatched(de.Ref, n)
	case errors.Is(de.Kind, dataerr.ErrConfigurationGap):
		c.addGap(string(de.Input), de.Field)
	default:
		return err
	}
	return nil
}

func (c *Collector) addUnmatched(playerID, n int64) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	c.unmatched += n
	c.unmatchedBy[playerID] += n
	c.mu.Unlock()
}

func (c *Collector) addGap(dataset, field string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fields, ok := c.gaps[dataset]
	if !ok {
		fields = make(map[string]struct{})
		c.gaps[dataset] = fields
	}
	fields[field] = struct{}{}
}

// AddSkipped records a tracking line skipped under the skip policy.
func (c *Collector) AddSkipped(line int64, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skipped++
	if len(c.skippedSamples) < c.maxSamples {
		c.skippedSamples = append(c.skippedSamples, Skipped{Line: line, Reason: reason})
	}
}

// AddDuplicateFrame records a dropped repeated frame id.
func (c *Collector) AddDuplicateFrame() {
	c.mu.Lock()
	c.duplicates++
	c.mu.Unlock()
}

// AddOutOfOrderFrame records a frame id lower than its predecessor.
func (c *Collector) AddOutOfOrderFrame() {
	c.mu.Lock()
	c.outOfOrder++
	c.mu.Unlock()
}

// UnmatchedRows returns the number of dropped tracking rows so far.
func (c *Collector) UnmatchedRows() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unmatched
}

// Snapshot copies the current state. Gap fields are sorted.
func (c *Collector) Snapshot() Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := Report{
		UnmatchedRows:    c.unmatched,
		SkippedLines:     c.skipped,
		DuplicateFrames:  c.duplicates,
		OutOfOrderFrames: c.outOfOrder,
	}
	if len(c.unmatchedBy) > 0 {
		r.UnmatchedByPlayer = make(map[int64]int64, len(c.unmatchedBy))
		for id, n := range c.unmatchedBy {
			r.UnmatchedByPlayer[id] = n
		}
	}
	if len(c.gaps) > 0 {
		r.ConfigurationGaps = make(map[string][]string, len(c.gaps))
		for ds, fields := range c.gaps {
			list := make([]string, 0, len(fields))
			for f := range fields {
				list = append(list, f)
			}
			slices.Sort(list)
			r.ConfigurationGaps[ds] = list
		}
	}
	if len(c.skippedSamples) > 0 {
		r.SkippedSamples = slices.Clone(c.skippedSamples)
	}
	return r
}
