package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"SampleFinder/logger"
	"SampleFinder/model"

	"github.com/gofrs/flock"
)

// ErrUnsupportedVersion is returned when the persisted document was written by a newer build.
var ErrUnsupportedVersion = errors.New("library document version is newer than supported")

var errCorruptDocument = errors.New("library document is corrupt")

// DocumentStore persists the whole LocalState as one document.
// Load must return a usable state for a missing document.
type DocumentStore interface {
	Load(ctx context.Context) (*model.LocalState, error)
	Save(ctx context.Context, state *model.LocalState) error
	Clear(ctx context.Context) error
}

// Locker is implemented by document stores shared between processes.
// Store holds the lock for the whole read/modify/write cycle.
type Locker interface {
	Lock(ctx context.Context) (func(), error)
}

// migrations upgrades a document from the keyed version to the next one.
var migrations = map[int]func(*model.LocalState){
	// v0 documents have no version field; the layout is the same but
	// collections and flags may be null and palettes may hold duplicates.
	0: func(s *model.LocalState) {
		for i := range s.Palettes {
			s.Palettes[i].AssetIDs = dedupeIDs(s.Palettes[i].AssetIDs)
		}
	},
}

// decodeState parses a persisted document and brings it to CurrentStateVersion.
func decodeState(data []byte) (*model.LocalState, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return model.NewLocalState(), nil
	}

	var state model.LocalState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptDocument, err)
	}
	if err := migrateState(&state); err != nil {
		return nil, err
	}
	return &state, nil
}

func migrateState(state *model.LocalState) error {
	if state.Version > model.CurrentStateVersion {
		return fmt.Errorf("%w: got %d, want <= %d", ErrUnsupportedVersion, state.Version, model.CurrentStateVersion)
	}
	if state.Version < 0 {
		return fmt.Errorf("%w: negative version %d", errCorruptDocument, state.Version)
	}

	for state.Version < model.CurrentStateVersion {
		step, ok := migrations[state.Version]
		if !ok {
			return fmt.Errorf("no migration from library version %d", state.Version)
		}
		normalizeState(state)
		step(state)
		logger.Info("migrated library document", logger.Int("from", state.Version), logger.Int("to", state.Version+1))
		state.Version++
	}
	normalizeState(state)
	return nil
}

// normalizeState replaces null collections so the document always round-trips as arrays and objects.
func normalizeState(s *model.LocalState) {
	if s.Assets == nil {
		s.Assets = []model.Asset{}
	}
	if s.Palettes == nil {
		s.Palettes = []model.Palette{}
	}
	if s.Receipts == nil {
		s.Receipts = []model.Receipt{}
	}
	for i := range s.Assets {
		if s.Assets[i].Tags == nil {
			s.Assets[i].Tags = []string{}
		}
	}
	for i := range s.Palettes {
		if s.Palettes[i].AssetIDs == nil {
			s.Palettes[i].AssetIDs = []string{}
		}
	}
	for i := range s.Receipts {
		if s.Receipts[i].LicenseFlags == nil {
			s.Receipts[i].LicenseFlags = map[string]bool{}
		}
	}
}

// FileDocumentStore keeps the document as a JSON file. Writes go to a temp
// file in the same directory and are renamed into place.
type FileDocumentStore struct {
	path string
	lock *flock.Flock
}

// NewFileDocumentStore creates the parent directory of path if needed.
func NewFileDocumentStore(path string) (*FileDocumentStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create library directory: %w", err)
	}
	return &FileDocumentStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the document location.
func (s *FileDocumentStore) Path() string {
	return s.path
}

// Lock implements Locker with an advisory file lock.
func (s *FileDocumentStore) Lock(ctx context.Context) (func(), error) {
	locked, err := s.lock.TryLockContext(ctx, 25*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("failed to lock library: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to lock library: %s", s.lock.Path())
	}
	return func() {
		if err := s.lock.Unlock(); err != nil {
			logger.Warn("failed to unlock library", logger.ErrorField(err))
		}
	}, nil
}

// Load reads the document. A corrupt file is moved aside and a fresh state is returned.
func (s *FileDocumentStore) Load(ctx context.Context) (*model.LocalState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewLocalState(), nil
		}
		return nil, fmt.Errorf("failed to read library document: %w", err)
	}

	state, err := decodeState(data)
	if errors.Is(err, errCorruptDocument) {
		backup := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().UnixMilli())
		if renameErr := os.Rename(s.path, backup); renameErr != nil {
			logger.Error("failed to move corrupt library aside", logger.ErrorField(renameErr))
		}
		logger.Warn("library document is corrupt, starting from an empty library",
			logger.String("path", s.path),
			logger.String("backup", backup),
			logger.ErrorField(err))
		return model.NewLocalState(), nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Save writes the document atomically.
func (s *FileDocumentStore) Save(ctx context.Context, state *model.LocalState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode library document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".library-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write library document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync library document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close library document: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace library document: %w", err)
	}
	return nil
}

// Clear removes the document.
func (s *FileDocumentStore) Clear(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove library document: %w", err)
	}
	return nil
}

// MemoryDocumentStore keeps the document in memory. Used by tests and the server when no library dir is wanted.
type MemoryDocumentStore struct {
	mu    sync.Mutex
	state *model.LocalState
}

func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{}
}

func (m *MemoryDocumentStore) Load(ctx context.Context) (*model.LocalState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return model.NewLocalState(), nil
	}
	state := m.state.Clone()
	if err := migrateState(state); err != nil {
		return nil, err
	}
	return state, nil
}

func (m *MemoryDocumentStore) Save(ctx context.Context, state *model.LocalState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state.Clone()
	return nil
}

func (m *MemoryDocumentStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = nil
	return nil
}
