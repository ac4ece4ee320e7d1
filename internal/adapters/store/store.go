// Package store persists the pipeline's durable state as JSON files:
// one ledger per game, the handle-to-identity mapping, the processed
// tournament set, and the provider credentials.
//
// Every document is human-readable (sorted keys, stable indentation)
// and safe to hand-edit between runs. Writes go to a temp file first
// and are renamed into place.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	fileMode = 0o644
	dirMode  = 0o755
)

// Credentials authenticate against the bracket provider. The document
// layout is {"challonge": {"username": ..., "key": ...}}.
type Credentials struct {
	Challonge struct {
		Username string `json:"username"`
		Key      string `json:"key"`
	} `json:"challonge"`
}

// Files is a JSON file store rooted at a database directory.
type Files struct {
	dir string
}

// New constructs a store rooted at dir.
func New(dir string) *Files {
	return &Files{dir: dir}
}

// Dir returns the store root (primarily for testing).
func (f *Files) Dir() string {
	return f.dir
}

// LoadLedger reads a per-game ledger (identity -> cumulative score).
// The file is operator data and must exist.
func (f *Files) LoadLedger(name string) (map[string]int, error) {
	ledger := make(map[string]int)
	if err := f.load(name, &ledger); err != nil {
		return nil, err
	}
	for id, score := range ledger {
		if score < 0 {
			return nil, fmt.Errorf("%w: %q has negative score %d in %s", ErrCorruptStore, id, score, name)
		}
	}
	return ledger, nil
}

// SaveLedger writes a per-game ledger.
func (f *Files) SaveLedger(name string, ledger map[string]int) error {
	return f.save(name, ledger)
}

// LoadMapping reads the handle-to-identity mapping. The file is
// operator data and must exist.
func (f *Files) LoadMapping() (map[string]string, error) {
	mapping := make(map[string]string)
	if err := f.load("challonge.json", &mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

// SaveMapping writes the handle-to-identity mapping.
func (f *Files) SaveMapping(mapping map[string]string) error {
	return f.save("challonge.json", mapping)
}

// LoadProcessed reads the processed tournament ids. The file is
// internal bookkeeping: a missing file loads as an empty set.
func (f *Files) LoadProcessed() ([]int64, error) {
	var ids []int64
	err := f.load("processed.json", &ids)
	if errors.Is(err, ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// SaveProcessed writes the processed tournament ids.
func (f *Files) SaveProcessed(ids []int64) error {
	if ids == nil {
		ids = []int64{}
	}
	return f.save("processed.json", ids)
}

// LoadCredentials reads the provider credentials document.
func (f *Files) LoadCredentials() (Credentials, error) {
	var creds Credentials
	if err := f.load("login.json", &creds); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

func (f *Files) load(name string, payload any) error {
	path := filepath.Join(f.dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrMissingFile, path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptStore, path, err)
	}
	return nil
}

// save marshals payload with stable indentation and renames a temp file
// into place so a crash mid-write never truncates the live document.
func (f *Files) save(name string, payload any) error {
	if err := os.MkdirAll(f.dir, dirMode); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	data, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	data = append(data, '\n')

	target := filepath.Join(f.dir, name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, fileMode); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("rename %s: %w", target, err)
	}
	return nil
}
