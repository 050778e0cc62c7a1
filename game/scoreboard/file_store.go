package scoreboard

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore appends records to a JSON-lines file
type FileStore struct {
	mu      sync.Mutex
	file    *os.File
	records []Record
}

// NewFileStore opens or creates the log at path and replays existing records
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create scoreboard directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open scoreboard file: %w", err)
	}

	records, err := load(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to load scoreboard %s: %w", filepath.Base(path), err)
	}

	return &FileStore{file: file, records: records}, nil
}

// load replays every line of the log
func load(file *os.File) ([]Record, error) {
	if _, err := file.Seek(0, 0); err != nil {
		return nil, err
	}

	var records []Record
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// RecordResult appends rec and syncs the file before returning
func (s *FileStore) RecordResult(ctx context.Context, rec Record) (Record, error) {
	rec, err := prepare(rec)
	if err != nil {
		return rec, err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return rec, fmt.Errorf("failed to marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return rec, fmt.Errorf("failed to append record: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return rec, fmt.Errorf("failed to sync scoreboard: %w", err)
	}
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *FileStore) Latest(ctx context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return nil, ErrNoResults
	}
	latest := newestFirst(s.records, 1)[0]
	return &latest, nil
}

func (s *FileStore) List(ctx context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newestFirst(s.records, limit), nil
}

// Close closes the underlying file
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
