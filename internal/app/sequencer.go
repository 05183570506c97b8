package service

import (
	"sync"

	"github.com/okian/pitchlens/internal/domain/model"
)

// sequencer restores batch order between the join workers and the artifact
// writer. Batches are written as soon as every earlier batch has been.
type sequencer struct {
	mu      sync.Mutex
	next    int64
	pending map[int64][]model.EnrichedRecord
	write   func([]model.EnrichedRecord) error
	err     error
}

func newSequencer(write func([]model.EnrichedRecord) error) *sequencer {
	return &sequencer{
		pending: make(map[int64][]model.EnrichedRecord),
		write:   write,
	}
}

// Submit hands over the records of batch seq. Each seq must be submitted once.
func (s *sequencer) Submit(seq int64, records []model.EnrichedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.pending[seq] = records
	for {
		recs, ok := s.pending[s.next]
		if !ok {
			return nil
		}
		delete(s.pending, s.next)
		if err := s.write(recs); err != nil {
			s.err = err
			return err
		}
		s.next++
	}
}

// Written returns the number of batches written so far.
func (s *sequencer) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Pending returns the number of batches held back waiting for a gap.
func (s *sequencer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
