package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store persists the highest applied block height per chainhook.
type Store interface {
	Load(ctx context.Context, name string) (uint64, bool, error)
	Save(ctx context.Context, name string, height uint64) error
}

// FileStore stores cursors in a local JSON file.
type FileStore struct {
	Path string

	mu sync.Mutex
}

type stateRecord struct {
	LastBlockHeight uint64 `json:"last_block_height"`
	UpdatedAt       string `json:"updated_at"`
}

func (s *FileStore) Load(ctx context.Context, name string) (uint64, bool, error) {
	if s == nil || s.Path == "" {
		return 0, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return 0, false, err
	}
	rec, ok := records[name]
	if !ok {
		return 0, false, nil
	}
	return rec.LastBlockHeight, true, nil
}

// Save records height for name unless a higher height is already stored.
func (s *FileStore) Save(ctx context.Context, name string, height uint64) error {
	if s == nil || s.Path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	if rec, ok := records[name]; ok && rec.LastBlockHeight >= height {
		return nil
	}
	records[name] = stateRecord{
		LastBlockHeight: height,
		UpdatedAt:       time.Now().UTC().Format(time.RFC3339Nano),
	}

	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

func (s *FileStore) read() (map[string]stateRecord, error) {
	records := make(map[string]stateRecord)
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return records, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return records, nil
}
