// Package repository keeps run artifacts keyed by match id. Artifacts are
// written once, read many times, and invalidated explicitly before a match is
// reprocessed.
package repository

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/okian/pitchlens/pkg/logger"
)

// Artifact names.
const (
	EnrichedTracking  = "enriched_tracking.parquet"
	KnowledgeBankJSON = "knowledge_bank.json"
	KnowledgeBankYAML = "knowledge_bank.yaml"
	RunReport         = "run_report.json"
)

// Store provides write-once access to per-match artifacts.
type Store interface {
	// Create opens a new artifact for writing. The artifact becomes visible
	// when the returned writer is closed. Returns ErrAlreadyExists if the
	// artifact was already committed.
	Create(ctx context.Context, matchID, name string) (io.WriteCloser, error)

	// Open returns a committed artifact. Returns ErrNotFound if absent.
	Open(ctx context.Context, matchID, name string) (*os.File, error)

	// List returns the committed artifact names of a match, sorted.
	List(ctx context.Context, matchID string) ([]string, error)

	// Invalidate removes every artifact of a match.
	Invalidate(ctx context.Context, matchID string) error
}

// FileStore lays artifacts out as <root>/<match_id>/<name>.
type FileStore struct {
	root    string
	dirMode uint32
	logger  logger.Logger

	mu      sync.Mutex
	pending map[string]struct{} // paths with an open writer
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string, opts ...Option) (*FileStore, error) {
	s := &FileStore{
		root:    root,
		dirMode: 0o755,
		logger:  logger.Nop(),
		pending: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(root, os.FileMode(s.dirMode)); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return s, nil
}

// Root returns the store directory.
func (s *FileStore) Root() string { return s.root }

// Path returns where an artifact lives, committed or not.
func (s *FileStore) Path(matchID, name string) string {
	return filepath.Join(s.root, matchID, name)
}

func validKey(k string) bool {
	return k != "" && k != "." && k != ".." && !strings.ContainsAny(k, `/\`) && !strings.HasPrefix(k, ".")
}

func (s *FileStore) Create(ctx context.Context, matchID, name string) (io.WriteCloser, error) {
	if !validKey(matchID) || !validKey(name) {
		return nil, fmt.Errorf("%w: %q/%q", ErrInvalidKey, matchID, name)
	}
	final := s.Path(matchID, name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.pending[final]; busy {
		return nil, fmt.Errorf("%w: %s/%s is being written", ErrAlreadyExists, matchID, name)
	}
	if _, err := os.Stat(final); err == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrAlreadyExists, matchID, name)
	}
	if err := os.MkdirAll(filepath.Dir(final), os.FileMode(s.dirMode)); err != nil {
		return nil, fmt.Errorf("create match directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(final), "."+name+".*")
	if err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}
	s.pending[final] = struct{}{}

	s.logger.Debug(ctx, "artifact opened", logger.String("match_id", matchID), logger.String("artifact", name))
	return &pendingFile{store: s, f: tmp, final: final}, nil
}

func (s *FileStore) Open(_ context.Context, matchID, name string) (*os.File, error) {
	if !validKey(matchID) || !validKey(name) {
		return nil, fmt.Errorf("%w: %q/%q", ErrInvalidKey, matchID, name)
	}
	f, err := os.Open(s.Path(matchID, name))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, matchID, name)
	}
	return f, err
}

func (s *FileStore) List(_ context.Context, matchID string) ([]string, error) {
	if !validKey(matchID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, matchID)
	}
	entries, err := os.ReadDir(filepath.Join(s.root, matchID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *FileStore) Invalidate(ctx context.Context, matchID string) error {
	if !validKey(matchID) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, matchID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.RemoveAll(filepath.Join(s.root, matchID)); err != nil {
		return fmt.Errorf("invalidate %s: %w", matchID, err)
	}
	s.logger.Info(ctx, "artifacts invalidated", logger.String("match_id", matchID))
	return nil
}

// pendingFile commits to its final path on Close.
type pendingFile struct {
	store  *FileStore
	f      *os.File
	final  string
	closed bool
}

func (p *pendingFile) Write(b []byte) (int, error) {
	if p.closed {
		return 0, ErrClosed
	}
	return p.f.Write(b)
}

func (p *pendingFile) Close() error {
	if p.closed {
		return ErrClosed
	}
	p.closed = true

	s := p.store
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, p.final)

	if err := p.f.Sync(); err != nil {
		p.discard()
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err := p.f.Close(); err != nil {
		_ = os.Remove(p.f.Name())
		return fmt.Errorf("close artifact: %w", err)
	}
	// the match directory may have been invalidated meanwhile
	if _, err := os.Stat(filepath.Dir(p.final)); err != nil {
		_ = os.Remove(p.f.Name())
		return fmt.Errorf("commit artifact: %w", err)
	}
	if err := os.Rename(p.f.Name(), p.final); err != nil {
		_ = os.Remove(p.f.Name())
		return fmt.Errorf("commit artifact: %w", err)
	}
	return nil
}

// Abort drops an uncommitted artifact.
func (p *pendingFile) Abort() {
	if p.closed {
		return
	}
	p.closed = true
	s := p.store
	s.mu.Lock()
	delete(s.pending, p.final)
	s.mu.Unlock()
	p.discard()
}

func (p *pendingFile) discard() {
	_ = p.f.Close()
	_ = os.Remove(p.f.Name())
}

// Abort drops w without committing it when w came from Create; otherwise it
// closes w.
func Abort(w io.WriteCloser) {
	if p, ok := w.(*pendingFile); ok {
		p.Abort()
		return
	}
	_ = w.Close()
}
