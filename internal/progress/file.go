package progress

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileStore keeps the snapshot in a YAML file. Saves go to a temp file in the same
// directory and are renamed over the old one, so a failed save leaves the previous
// snapshot intact.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{Version: StateVersion}, nil
		}
		return State{}, fmt.Errorf("read progress: %w", err)
	}
	var state State
	if err := yaml.Unmarshal(b, &state); err != nil {
		return State{}, fmt.Errorf("parse progress: %w", err)
	}
	if state.Version > StateVersion {
		return State{}, fmt.Errorf("unsupported progress version %d (max supported %d)", state.Version, StateVersion)
	}
	return state, nil
}

func (s *FileStore) Save(ctx context.Context, state State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create progress dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".progress-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp progress: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write progress: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync progress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close progress: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace progress: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
