package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/quest-for-water/game/engine"
	"github.com/wricardo/quest-for-water/game/service"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Manager is the session registry. Lookups ignore case: "RUN1" and "run1"
// name the same session in memory and on disk.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*service.Session
	store    SessionPersistence
}

// NewManager returns a registry that lives in memory only
func NewManager() *Manager {
	return NewManagerWithPersistence(nil)
}

// NewManagerWithPersistence returns a registry that writes through to store.
// A nil store keeps everything in memory.
func NewManagerWithPersistence(store SessionPersistence) *Manager {
	return &Manager{
		sessions: make(map[string]*service.Session),
		store:    store,
	}
}

// sessionKey normalizes an ID for the registry and for file names
func sessionKey(id string) string {
	return strings.ToLower(id)
}

// validSessionID rejects ids that are unsafe as file names
func validSessionID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// newSessionID returns four random hex characters
func newSessionID() string {
	b := make([]byte, 2)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Create registers an idle session on a fresh board. An empty id is replaced
// by a generated one. configID is the name config was loaded by and is what
// gets persisted.
func (m *Manager) Create(id string, config *engine.GameConfig, configID string) (*service.Session, error) {
	if id == "" {
		id = newSessionID()
	}
	if !validSessionID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	eng, err := engine.NewEngine(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(id)
	if _, taken := m.sessions[key]; taken {
		return nil, ErrSessionAlreadyExists
	}

	now := time.Now()
	sess := &service.Session{
		ID:             id,
		Engine:         eng,
		Config:         config,
		ConfigID:       configID,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.sessions[key] = sess

	if m.store != nil {
		if err := m.store.Save(sess); err != nil {
			log.Printf("Warning: Failed to persist session %s: %v", id, err)
		}
	}
	return sess, nil
}

// Get returns the session for id. A session missing from memory is loaded
// from the store and cached.
func (m *Manager) Get(id string) (*service.Session, error) {
	key := sessionKey(id)

	m.mu.RLock()
	sess, ok := m.sessions[key]
	m.mu.RUnlock()
	if ok {
		return sess, nil
	}

	if m.store == nil || !validSessionID(id) || !m.store.Exists(key) {
		return nil, ErrSessionNotFound
	}
	loaded, err := m.store.Load(key)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[key]; ok {
		return sess, nil
	}
	m.sessions[key] = loaded
	return loaded, nil
}

// List returns every session held in memory
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	return out
}

// Count is the number of sessions held in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Delete removes a session from memory and from the store
func (m *Manager) Delete(id string) error {
	key := sessionKey(id)

	m.mu.Lock()
	defer m.mu.Unlock()

	_, inMemory := m.sessions[key]
	delete(m.sessions, key)

	if m.store != nil && m.store.Exists(key) {
		if err := m.store.Delete(key); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}
	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory evicts a session and leaves its file alone
func (m *Manager) DeleteFromMemory(id string) error {
	key := sessionKey(id)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[key]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, key)
	return nil
}

// UpdateLastAccessed marks a session as used now. The new time reaches the
// store on the next Save.
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionKey(id)]
	if !ok {
		return ErrSessionNotFound
	}
	sess.LastAccessedAt = time.Now()
	return nil
}

// Save writes one session to the store
func (m *Manager) Save(id string) error {
	if m.store == nil {
		return nil
	}

	m.mu.RLock()
	sess, ok := m.sessions[sessionKey(id)]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	return m.store.Save(sess)
}

// SaveAllSessions writes every in-memory session to the store
func (m *Manager) SaveAllSessions() error {
	if m.store == nil {
		return nil
	}

	failed := 0
	for _, sess := range m.List() {
		if err := m.store.Save(sess); err != nil {
			log.Printf("Warning: Failed to save session %s: %v", sess.ID, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to save %d sessions", failed)
	}
	return nil
}

// LoadPersistedSessions pulls every stored session that is not already in
// memory. Unreadable files are logged and skipped.
func (m *Manager) LoadPersistedSessions() error {
	if m.store == nil {
		return nil
	}

	ids, err := m.store.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		key := sessionKey(id)
		if _, ok := m.sessions[key]; ok {
			continue
		}
		sess, err := m.store.Load(key)
		if err != nil {
			log.Printf("Warning: Failed to load persisted session %s: %v", id, err)
			continue
		}
		m.sessions[key] = sess
		loaded++
	}

	if loaded > 0 {
		log.Printf("Loaded %d persisted sessions from storage", loaded)
	}
	return nil
}

// CleanupExpiredSessions evicts sessions idle for longer than maxAge and
// returns how many went. Files are kept.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, sess := range m.sessions {
		if sess.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, key)
			removed++
		}
	}
	return removed
}

// PruneOrphaned evicts in-memory sessions whose file was deleted
func (m *Manager) PruneOrphaned() int {
	if m.store == nil {
		return 0
	}

	pruned := 0
	for _, sess := range m.List() {
		if m.store.Exists(sessionKey(sess.ID)) {
			continue
		}
		if err := m.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			log.Printf("Pruned session %s from memory (file deleted)", sess.ID)
		}
	}
	return pruned
}
