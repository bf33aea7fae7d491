/* file_store.go
 * Contains FileStore, which keeps each collection as a JSON file (teams.json, matches.json, state.json) in a data
 * directory. Writes go to a temporary file that is renamed over the old one so a reader never sees a partial file
 * Authors: Zachary Bower
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"ladder-bot/api/shared"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

const (
	TeamsFile   = "teams.json"
	MatchesFile = "matches.json"
	StateFile   = "state.json"
)

// FileStore persists ladder collections as JSON files on an afero filesystem
type FileStore struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the data directory if needed and returns a store rooted there
// Preconditions: Receives the filesystem to use (afero.NewOsFs() in production) and a directory path
// Postconditions: Returns a FileStore, or an error if the directory cannot be created
func NewFileStore(fsys afero.Fs, dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{fs: fsys, dir: dir}, nil
}

// LoadTeams reads teams.json. A missing file is an empty collection.
func (s *FileStore) LoadTeams(ctx context.Context) ([]shared.Team, error) {
	var teams []shared.Team
	if err := s.load(TeamsFile, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// SaveTeams replaces teams.json
func (s *FileStore) SaveTeams(ctx context.Context, teams []shared.Team) error {
	if teams == nil {
		teams = []shared.Team{}
	}
	return s.save(TeamsFile, teams)
}

// LoadMatches reads matches.json. A missing file is an empty collection.
func (s *FileStore) LoadMatches(ctx context.Context) ([]shared.Challenge, error) {
	var matches []shared.Challenge
	if err := s.load(MatchesFile, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// SaveMatches replaces matches.json
func (s *FileStore) SaveMatches(ctx context.Context, matches []shared.Challenge) error {
	if matches == nil {
		matches = []shared.Challenge{}
	}
	return s.save(MatchesFile, matches)
}

// LoadState reads state.json. A missing file is the zero state: not running, no channels.
func (s *FileStore) LoadState(ctx context.Context) (shared.LadderState, error) {
	var state shared.LadderState
	if err := s.load(StateFile, &state); err != nil {
		return shared.LadderState{}, err
	}
	return state, nil
}

// SaveState replaces state.json
func (s *FileStore) SaveState(ctx context.Context, state shared.LadderState) error {
	return s.save(StateFile, state)
}

// Close is a no-op, files are closed after every write
func (s *FileStore) Close(ctx context.Context) error {
	return nil
}

func (s *FileStore) load(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) save(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		if rmErr := s.fs.Remove(tmp); rmErr != nil {
			slog.Warn("Failed to remove temporary file", "path", tmp, "error", rmErr)
		}
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
