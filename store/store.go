package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/lazharichir/playnine/game"
)

// SchemaVersion is the snapshot file format version. Files with an unknown
// version are skipped on load with a logged warning.
const SchemaVersion = 1

// fileState is the on-disk shape: the full table state with a version
// integer at the top level.
type fileState struct {
	Version int `json:"version"`
	*game.TableState
}

// Store persists one JSON snapshot file per table. Each table session is the
// single writer of its own file; the store itself holds no locks.
type Store struct {
	dir string
	log slog.Logger
}

// New creates a snapshot store rooted at dir, creating it if needed.
func New(dir string, log slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

func (s *Store) path(tableName string) string {
	return filepath.Join(s.dir, tableName+".json")
}

// Save atomically writes the table's snapshot: a temp file with a random
// suffix is renamed over the target.
func (s *Store) Save(st *game.TableState) error {
	data, err := json.MarshalIndent(fileState{Version: SchemaVersion, TableState: st}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot for %s: %w", st.Name, err)
	}

	tmp := s.path(st.Name) + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path(st.Name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename snapshot into place: %w", err)
	}
	return nil
}

// Load reads one table's snapshot. Returns (nil, nil) when no file exists or
// the file carries an unknown schema version.
func (s *Store) Load(tableName string) (*game.TableState, error) {
	data, err := os.ReadFile(s.path(tableName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot for %s: %w", tableName, err)
	}

	st := game.NewTableState(tableName)
	file := fileState{TableState: st}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode snapshot for %s: %w", tableName, err)
	}
	if file.Version != SchemaVersion {
		s.log.Warnf("Skipping snapshot %s: unknown schema version %d", tableName, file.Version)
		return nil, nil
	}
	normalize(st)
	return st, nil
}

// normalize backfills fields a hand-edited or older snapshot may lack.
func normalize(st *game.TableState) {
	if st.Players == nil {
		st.Players = []game.Player{}
	}
	if st.Scores == nil {
		st.Scores = map[string]int{}
	}
	if st.PlayerLastActive == nil {
		st.PlayerLastActive = map[string]int64{}
	}
	if st.Phase == "" {
		st.Phase = game.PhaseEmpty
	}
}

// Delete removes a table's snapshot file. Missing files are not an error.
func (s *Store) Delete(tableName string) error {
	err := os.Remove(s.path(tableName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete snapshot for %s: %w", tableName, err)
	}
	return nil
}

// List returns the table names with a snapshot on disk.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scan snapshot dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return names, nil
}
