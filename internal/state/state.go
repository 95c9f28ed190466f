// Package state persists engine state between runs: fitted models and the
// set of pairs with an open spread position, both as JSON files under the
// configured state directory.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tylertayyk/pairs-trading/internal/models"
)

const modelsFileName = "models.json"
const inTradeFileName = "in_trade.json"

// FileStore reads and writes state files under a single directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the state directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// LoadModels returns the persisted model mapping, or an empty mapping if
// no file exists yet.
func (f *FileStore) LoadModels() (map[string]*models.CointegrationModel, error) {
	path := filepath.Join(f.dir, modelsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]*models.CointegrationModel), nil
		}
		return nil, err
	}

	out := make(map[string]*models.CointegrationModel)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", modelsFileName, err)
	}
	return out, nil
}

// SaveModels writes the full model mapping, replacing any previous file.
func (f *FileStore) SaveModels(mapping map[string]*models.CointegrationModel) error {
	return f.writeJSON(modelsFileName, mapping)
}

// LoadInTradeSet returns the keys of pairs recorded as holding an open
// spread position.
func (f *FileStore) LoadInTradeSet() (map[string]bool, error) {
	path := filepath.Join(f.dir, inTradeFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]bool), nil
		}
		return nil, err
	}

	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", inTradeFileName, err)
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set, nil
}

// SaveInTradeSet writes the in-trade pair keys in sorted order so the
// file diff is stable between runs.
func (f *FileStore) SaveInTradeSet(set map[string]bool) error {
	keys := make([]string, 0, len(set))
	for k, in := range set {
		if in {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return f.writeJSON(inTradeFileName, keys)
}

func (f *FileStore) writeJSON(name string, v interface{}) error {
	path := filepath.Join(f.dir, name)
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// DefaultDir expands the configured state directory, resolving a leading
// "~" against the user's home directory.
func DefaultDir(configured string) (string, error) {
	if len(configured) > 0 && configured[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, configured[1:]), nil
	}
	return configured, nil
}
