// Package join enriches tracking rows with roster attributes through an
// inner hash join on player id.
package join

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/pitchlens/internal/domain/dataerr"
	"github.com/okian/pitchlens/internal/domain/diag"
	"github.com/okian/pitchlens/internal/domain/model"
	"github.com/okian/pitchlens/pkg/metrics"
)

// Index is a read-only lookup from player id to roster entry. It is safe to
// share between goroutines once built.
type Index struct {
	entries map[int64]model.RosterEntry
}

// NewIndex builds the lookup in one pass. A player id listed twice would make
// the join ambiguous and is rejected.
func NewIndex(roster []model.RosterEntry) (*Index, error) {
	entries := make(map[int64]model.RosterEntry, len(roster))
	for _, e := range roster {
		if _, dup := entries[e.PlayerID]; dup {
			return nil, dataerr.Malformed(dataerr.InputMetadata, fmt.Sprintf("player %d", e.PlayerID), "id",
				"player listed more than once")
		}
		entries[e.PlayerID] = e
	}
	return &Index{entries: entries}, nil
}

// Lookup returns the entry for id.
func (ix *Index) Lookup(id int64) (model.RosterEntry, bool) {
	e, ok := ix.entries[id]
	return e, ok
}

// Len returns the roster size.
func (ix *Index) Len() int { return len(ix.entries) }

// Joiner performs the join and counts rejected rows. Join may be called from
// many goroutines.
type Joiner struct {
	index     *Index
	collector *diag.Collector

	matched   atomic.Int64
	dropped   atomic.Int64
	droppedBy sync.Map // int64 -> *atomic.Int64
}

// NewJoiner creates a Joiner over ix. Unmatched rows are also reported to c
// when it is not nil.
func NewJoiner(ix *Index, c *diag.Collector) *Joiner {
	return &Joiner{index: ix, collector: c}
}

// Join returns one record per row whose player is in the roster, in row
// order. Other rows are dropped and counted.
func (j *Joiner) Join(rows []model.TrackingRow) []model.EnrichedRecord {
	out := make([]model.EnrichedRecord, 0, len(rows))
	var misses map[int64]int64

	for i := range rows {
		e, ok := j.index.Lookup(rows[i].PlayerID)
		if !ok {
			if misses == nil {
				misses = make(map[int64]int64)
			}
			misses[rows[i].PlayerID]++
			continue
		}
		out = append(out, model.Enrich(rows[i], e))
	}

	j.matched.Add(int64(len(out)))
	metrics.RecordRowsEnriched(len(out))

	var dropped int64
	for id, n := range misses {
		dropped += n
		c, _ := j.droppedBy.LoadOrStore(id, new(atomic.Int64))
		c.(*atomic.Int64).Add(n)
		if j.collector != nil {
			_ = j.collector.Record(dataerr.Unmatched(id), n)
		}
	}
	if dropped > 0 {
		j.dropped.Add(dropped)
		metrics.RecordRowsDropped(int(dropped))
	}
	return out
}

// Matched returns the number of records produced so far.
func (j *Joiner) Matched() int64 { return j.matched.Load() }

// Dropped returns the number of rows rejected so far.
func (j *Joiner) Dropped() int64 { return j.dropped.Load() }

// DroppedBy returns rejected row counts per unknown player id.
func (j *Joiner) DroppedBy() map[int64]int64 {
	out := make(map[int64]int64)
	j.droppedBy.Range(func(k, v any) bool {
		out[k.(int64)] = v.(*atomic.Int64).Load()
		return true
	})
	return out
}
