package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nholik/save-snapper/internal/snapshot"
	"github.com/rs/zerolog"
)

// FileStore persists the ledger as JSON on disk.
type FileStore struct {
	path   string
	logger zerolog.Logger
}

// NewFileStore returns a JSON-backed ledger store.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Path returns the ledger file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the ledger. Missing or corrupt files return an empty ledger with a warning.
func (s *FileStore) Load(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Warn().Str("path", s.path).Msg("ledger missing, starting fresh")
			return State{}, nil
		}
		return State{}, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn().Str("path", s.path).Err(err).Msg("ledger corrupt, starting fresh")
		return State{}, nil
	}
	return state, nil
}

// Save writes the ledger atomically.
func (s *FileStore) Save(ctx context.Context, state State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeJSONAtomic(s.path, state); err != nil {
		return fmt.Errorf("save ledger %s: %w", s.path, err)
	}
	return nil
}

// writeJSONAtomic encodes v into a temp file next to path, then renames it
// over path and syncs the directory.
func writeJSONAtomic(path string, v any) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err = encoder.Encode(v); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return err
	}

	if d, openErr := os.Open(dir); openErr == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// Append loads the ledger, adds rec and saves it back.
func Append(ctx context.Context, store Store, rec snapshot.Record) error {
	current, err := store.Load(ctx)
	if err != nil {
		return err
	}
	current.Snapshots = append(current.Snapshots, rec)
	return store.Save(ctx, current)
}
