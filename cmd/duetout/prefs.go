package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Selection is the persisted pair of chosen device uids. Uids survive
// reconnects and restarts; numeric device ids do not and are never written.
type Selection struct {
	PrimaryUID   string `json:"primary_uid"`
	SecondaryUID string `json:"secondary_uid"`
}

// PrefStore persists the device selection as a small JSON file in the XDG
// state directory.
type PrefStore struct {
	filepath string
}

// NewPrefStore resolves the selection file path.
func NewPrefStore() (*PrefStore, error) {
	path, err := xdg.StateFile(prefsFileName)
	if err != nil {
		return nil, fmt.Errorf("resolve state file path: %w", err)
	}
	return &PrefStore{filepath: path}, nil
}

// newPrefStoreAt is the test seam for a custom location.
func newPrefStoreAt(path string) *PrefStore {
	return &PrefStore{filepath: path}
}

// Load reads the stored selection. A missing file is not an error: it means
// setup never ran, and the zero Selection reports no valid configuration.
func (p *PrefStore) Load() (Selection, error) {
	b, err := os.ReadFile(p.filepath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Selection{}, nil
		}
		return Selection{}, fmt.Errorf("read selection file: %w", err)
	}

	var sel Selection
	if err := json.Unmarshal(b, &sel); err != nil {
		return Selection{}, fmt.Errorf("decode selection file: %w", err)
	}
	return sel, nil
}

// Save writes the selection to disk, creating the parent directory if needed.
func (p *PrefStore) Save(sel Selection) error {
	b, err := json.MarshalIndent(sel, "", "  ")
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.filepath), 0o755); err != nil {
		return fmt.Errorf("create selection dir: %w", err)
	}
	if err := os.WriteFile(p.filepath, append(b, '\n'), 0o600); err != nil {
		return fmt.Errorf("write selection file: %w", err)
	}
	return nil
}
