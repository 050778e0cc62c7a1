// Package scoreboard records the outcome of every finished run.
//
// Records are appended, never rewritten. FileStore keeps them as one JSON
// object per line so the log survives crashes and can be inspected with
// ordinary text tools; MemoryStore backs tests and servers started without a
// scoreboard file.
package scoreboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/quest-for-water/game/engine"
)

var (
	ErrNoResults     = errors.New("no results recorded")
	ErrInvalidRecord = errors.New("invalid result record")
)

// Record is one finished run
type Record struct {
	ID             string            `json:"id"`
	SessionID      string            `json:"session_id"`
	ConfigName     string            `json:"config_name"`
	Difficulty     engine.Difficulty `json:"difficulty"`
	Outcome        engine.Outcome    `json:"outcome"`
	ElapsedSeconds int               `json:"elapsed_seconds"`
	FinalWater     int               `json:"final_water"`
	Steps          int               `json:"steps"`
	RecordedAt     time.Time         `json:"recorded_at"`
}

// Store persists finished runs
type Store interface {
	// RecordResult stores rec, filling in ID and RecordedAt when empty
	RecordResult(ctx context.Context, rec Record) (Record, error)
	// Latest returns the most recently recorded run or ErrNoResults
	Latest(ctx context.Context) (*Record, error)
	// List returns up to limit runs, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// NewRecord builds a record from a finished game state
func NewRecord(sessionID string, state *engine.GameState, config *engine.GameConfig) Record {
	return Record{
		SessionID:      sessionID,
		ConfigName:     state.ConfigName,
		Difficulty:     state.Difficulty,
		Outcome:        state.Outcome,
		ElapsedSeconds: state.ElapsedSeconds(config),
		FinalWater:     state.Water,
		Steps:          state.Steps,
	}
}

// prepare validates rec and fills generated fields
func prepare(rec Record) (Record, error) {
	if rec.Outcome != engine.OutcomeHomeReached && rec.Outcome != engine.OutcomeDepleted {
		return rec, fmt.Errorf("%w: outcome %q", ErrInvalidRecord, rec.Outcome)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	return rec, nil
}

// newestFirst returns up to limit records, newest first. Records with equal
// timestamps keep reverse insertion order.
func newestFirst(records []Record, limit int) []Record {
	out := make([]Record, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, records[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MemoryStore keeps records in memory
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) RecordResult(ctx context.Context, rec Record) (Record, error) {
	rec, err := prepare(rec)
	if err != nil {
		return rec, err
	}
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
	return rec, nil
}

func (m *MemoryStore) Latest(ctx context.Context) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.records) == 0 {
		return nil, ErrNoResults
	}
	latest := newestFirst(m.records, 1)[0]
	return &latest, nil
}

func (m *MemoryStore) List(ctx context.Context, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.records, limit), nil
}

func (m *MemoryStore) Close() error { return nil }
