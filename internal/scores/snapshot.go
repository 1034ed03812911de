package scores

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// Snapshot is a DB persisted as one JSON file. Writes go to a temp file
// first and are renamed into place.
type Snapshot struct {
	mu   sync.RWMutex
	Path string
	db   *DB
}

// OpenSnapshot loads path. A missing file yields an empty DB.
func OpenSnapshot(path string) (*Snapshot, error) {
	s := &Snapshot{Path: path}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load re-reads the file.
func (s *Snapshot) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Path == "" {
		return errors.New("snapshot path empty")
	}
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			s.db = &DB{}
			return nil
		}
		return err
	}
	var db DB
	if err := json.Unmarshal(b, &db); err != nil {
		return fmt.Errorf("decode %s: %w", s.Path, err)
	}
	s.db = &db
	return nil
}

// DB returns the loaded data. Callers must not modify it; use Replace.
func (s *Snapshot) DB() *DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// Replace swaps in db and writes it out.
func (s *Snapshot) Replace(db *DB) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := WriteJSON(s.Path, db); err != nil {
		return err
	}
	s.db = db
	return nil
}

// WriteJSON writes db to path atomically.
func WriteJSON(path string, db *DB) error {
	tmp := path + ".tmp"
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
