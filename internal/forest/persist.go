package forest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrArtifactNotFound is returned when the model artifact is missing.
var ErrArtifactNotFound = errors.New("model artifact not found")

// Save writes the fitted model to path atomically: the artifact is fully
// written to a temp file in the same directory and then renamed over the
// destination, so a serving process never observes a half-written model.
func (m *Model) Save(path string) error {
	if m == nil || len(m.TreeRoots) == 0 {
		return ErrNotFitted
	}
	if path == "" {
		return errors.New("artifact path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		tmpFile.Close()
		return fmt.Errorf("chmod temp artifact: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), path); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

// Load reads a fitted model from path.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if len(m.TreeRoots) == 0 || m.NumFeatures == 0 {
		return nil, fmt.Errorf("model artifact at %s has no trees", path)
	}
	return &m, nil
}
