package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pollsterHook/internal/model"
)

// JsonlStorage appends delivery records to a JSONL file. The file is opened
// on first use and kept open until Close.
type JsonlStorage struct {
	path string

	mu   sync.Mutex
	file *os.File
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutDeliveryBatch writes the batch as one append so concurrent webhooks
// never interleave lines.
func (s *JsonlStorage) PutDeliveryBatch(_ context.Context, deliveries []model.Delivery) error {
	if len(deliveries) == 0 {
		return nil
	}

	var buf []byte
	for _, record := range deliveries {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal delivery %s: %w", record.ID, err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.open(); err != nil {
		return err
	}
	if _, err := s.file.Write(buf); err != nil {
		// Reopen on the next batch; the file may have been rotated away.
		s.file.Close()
		s.file = nil
		return fmt.Errorf("append deliveries: %w", err)
	}
	return nil
}

// Close releases the underlying file. A later write reopens it.
func (s *JsonlStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *JsonlStorage) open() error {
	if s.file != nil {
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	s.file = file
	return nil
}
