package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/quest-for-water/game/engine"
	"github.com/wricardo/quest-for-water/game/service"
)

const sessionExt = ".json"

// FilePersistence stores one JSON document per session in a directory.
// File names are the lower-cased session ID, so lookups ignore case.
type FilePersistence struct {
	dir     string
	configs service.ConfigManager
}

// NewFilePersistence creates dir if needed. configs resolves the rule set a
// stored session was created with.
func NewFilePersistence(dir string, configs service.ConfigManager) (*FilePersistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &FilePersistence{dir: dir, configs: configs}, nil
}

func (fp *FilePersistence) path(id string) string {
	return filepath.Join(fp.dir, sessionKey(id)+sessionExt)
}

// Save writes the session through a temp file and a rename, so readers never
// see a partial document.
func (fp *FilePersistence) Save(sess *service.Session) error {
	if sess == nil {
		return fmt.Errorf("session cannot be nil")
	}

	configID := sess.ConfigID
	if configID == "" {
		configID = fp.configIDFor(sess.Config.Name)
	}

	doc, err := json.MarshalIndent(PersistedSessionData{
		ID:             sess.ID,
		ConfigName:     configID,
		ManualClock:    sess.ManualClock,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", sess.ID, err)
	}

	target := fp.path(sess.ID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, doc, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// Load rebuilds a session: its rule set, a new engine and the saved state
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	raw, err := os.ReadFile(fp.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var doc PersistedSessionData
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	if doc.GameState == nil {
		return nil, fmt.Errorf("session %s has no game state", id)
	}

	cfg, err := fp.configs.LoadConfig(doc.ConfigName)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s': %w", doc.ConfigName, err)
	}
	eng, err := engine.NewEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create game engine: %w", err)
	}
	if err := eng.SetState(doc.GameState); err != nil {
		return nil, fmt.Errorf("failed to restore game state: %w", err)
	}

	return &service.Session{
		ID:             doc.ID,
		Engine:         eng,
		Config:         cfg,
		ConfigID:       doc.ConfigName,
		ManualClock:    doc.ManualClock,
		CreatedAt:      doc.CreatedAt,
		LastAccessedAt: doc.LastAccessedAt,
	}, nil
}

// Delete removes the session file
func (fp *FilePersistence) Delete(id string) error {
	err := os.Remove(fp.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// ListAll returns the IDs of every stored session
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if id, ok := strings.CutSuffix(entry.Name(), sessionExt); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Exists reports whether a file is stored for id
func (fp *FilePersistence) Exists(id string) bool {
	_, err := os.Stat(fp.path(id))
	return err == nil
}

// configIDFor maps a rule set display name back to the ID it is loaded by.
// Unknown names are assumed to be IDs already.
func (fp *FilePersistence) configIDFor(displayName string) string {
	infos, err := fp.configs.ListConfigs()
	if err != nil {
		return displayName
	}
	for _, info := range infos {
		if info.Name == displayName {
			return info.ConfigID
		}
	}
	return displayName
}
