package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONFile is a typed JSON document on local disk. Writes go to a temp file
// and are renamed into place, so readers never see a partial document.
type JSONFile[T any] struct {
	mu   sync.RWMutex
	path string
}

func NewJSONFile[T any](path string) (*JSONFile[T], error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &JSONFile[T]{path: path}, nil
}

func (f *JSONFile[T]) Path() string { return f.path }

// Load decodes the file. A missing file yields the zero value and no error.
func (f *JSONFile[T]) Load() (T, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var out T
	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return out, err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&out); err != nil {
		return out, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return out, nil
}

func (f *JSONFile[T]) Save(data T) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp := f.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, f.path)
}

// BadgeSeed is one entry of the badge seed file.
type BadgeSeed struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	ImageURL       string `json:"image_url"`
	PointsRequired int    `json:"points_required"`
}

// LoadBadgeSeeds reads a JSON array of badges. An empty path or a missing file
// yields no seeds.
func LoadBadgeSeeds(path string) ([]BadgeSeed, error) {
	if path == "" {
		return nil, nil
	}
	f, err := NewJSONFile[[]BadgeSeed](path)
	if err != nil {
		return nil, err
	}
	return f.Load()
}
