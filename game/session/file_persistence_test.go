package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/wricardo/quest-for-water/game/config"
	"github.com/wricardo/quest-for-water/game/engine"
)

func newTestPersistence(t *testing.T) (*FilePersistence, *config.Manager, string) {
	t.Helper()
	configManager, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	dir := t.TempDir()
	persistence, err := NewFilePersistence(dir, configManager)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	return persistence, configManager, dir
}

func TestFilePersistence(t *testing.T) {
	persistence, configManager, dir := newTestPersistence(t)
	manager := NewManagerWithPersistence(persistence)

	marathon, err := configManager.LoadConfig("marathon")
	if err != nil {
		t.Fatal(err)
	}
	session, err := manager.Create("run1", marathon, "marathon")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	session.ManualClock = true

	if _, err := session.Engine.Start("hard"); err != nil {
		t.Fatal(err)
	}
	session.Engine.Tick()
	if _, err := session.Engine.Move("right"); err != nil {
		t.Fatal(err)
	}
	if err := manager.Save("run1"); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	t.Run("file layout", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(dir, "run1.json"))
		if err != nil {
			t.Fatalf("Expected session file: %v", err)
		}
		var persisted PersistedSessionData
		if err := json.Unmarshal(data, &persisted); err != nil {
			t.Fatalf("Session file is not valid JSON: %v", err)
		}
		if persisted.ConfigName != "marathon" {
			t.Errorf("Expected config id 'marathon', got '%s'", persisted.ConfigName)
		}
		if !persisted.ManualClock {
			t.Error("Expected manual_clock to be persisted")
		}
		if _, err := os.Stat(filepath.Join(dir, "run1.json.tmp")); !os.IsNotExist(err) {
			t.Error("Temporary file should not survive a save")
		}
	})

	t.Run("load restores state", func(t *testing.T) {
		loaded, err := persistence.Load("run1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		want := session.Engine.GetState()
		got := loaded.Engine.GetState()

		if got.Status != engine.Running || got.Difficulty != engine.Hard {
			t.Errorf("Expected running hard game, got %s/%s", got.Status, got.Difficulty)
		}
		if got.TimeLeft != want.TimeLeft || got.Water != want.Water || got.Steps != want.Steps {
			t.Errorf("Counters differ: got time=%d water=%d steps=%d, want time=%d water=%d steps=%d",
				got.TimeLeft, got.Water, got.Steps, want.TimeLeft, want.Water, want.Steps)
		}
		if got.Epoch != want.Epoch {
			t.Errorf("Expected epoch %d, got %d", want.Epoch, got.Epoch)
		}
		if len(got.Grid) != 10 {
			t.Errorf("Expected 10x10 grid, got %d rows", len(got.Grid))
		}
		for y := range want.Grid {
			for x := range want.Grid[y] {
				if got.Grid[y][x] != want.Grid[y][x] {
					t.Fatalf("Grid differs at (%d,%d)", x, y)
				}
			}
		}
		if len(loaded.Engine.GetMoveHistory()) != 1 {
			t.Errorf("Expected 1 history entry, got %d", len(loaded.Engine.GetMoveHistory()))
		}
		if !loaded.ManualClock || loaded.ConfigID != "marathon" {
			t.Errorf("Expected manual clock marathon session, got manual=%t config=%s", loaded.ManualClock, loaded.ConfigID)
		}
	})

	t.Run("manager loads lazily", func(t *testing.T) {
		fresh := NewManagerWithPersistence(persistence)
		loaded, err := fresh.Get("RUN1")
		if err != nil {
			t.Fatalf("Failed to get persisted session: %v", err)
		}
		again, _ := fresh.Get("run1")
		if loaded != again {
			t.Error("Session should be cached after the first load")
		}
	})

	t.Run("load all", func(t *testing.T) {
		fresh := NewManagerWithPersistence(persistence)
		if err := fresh.LoadPersistedSessions(); err != nil {
			t.Fatal(err)
		}
		if fresh.Count() != 1 {
			t.Errorf("Expected 1 loaded session, got %d", fresh.Count())
		}
	})

	t.Run("prune orphaned", func(t *testing.T) {
		if err := os.Remove(filepath.Join(dir, "run1.json")); err != nil {
			t.Fatal(err)
		}
		if pruned := manager.PruneOrphaned(); pruned != 1 {
			t.Errorf("Expected 1 pruned session, got %d", pruned)
		}
		if _, err := manager.Get("run1"); err != ErrSessionNotFound {
			t.Errorf("Expected pruned session to be gone, got %v", err)
		}
	})
}

func TestFilePersistence_DeleteAndList(t *testing.T) {
	persistence, configManager, _ := newTestPersistence(t)
	manager := NewManagerWithPersistence(persistence)

	for _, id := range []string{"aa11", "bb22"} {
		if _, err := manager.Create(id, configManager.GetDefault(), "classic"); err != nil {
			t.Fatal(err)
		}
	}

	ids, err := persistence.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("Expected 2 persisted sessions, got %v", ids)
	}

	if err := manager.Delete("aa11"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if persistence.Exists("aa11") {
		t.Error("Expected session file to be removed")
	}
	if err := persistence.Delete("aa11"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
	if _, err := persistence.Load("aa11"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestFilePersistence_CorruptFile(t *testing.T) {
	persistence, _, dir := newTestPersistence(t)
	if err := os.WriteFile(filepath.Join(dir, "bad1.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := persistence.Load("bad1"); err == nil {
		t.Error("Expected error for corrupt session file")
	}

	manager := NewManagerWithPersistence(persistence)
	if err := manager.LoadPersistedSessions(); err != nil {
		t.Fatalf("Corrupt files should be skipped, got %v", err)
	}
	if manager.Count() != 0 {
		t.Errorf("Expected no sessions loaded, got %d", manager.Count())
	}
}

func TestFilePersistence_MixedCaseIDs(t *testing.T) {
	persistence, configManager, dir := newTestPersistence(t)

	if _, err := NewManagerWithPersistence(persistence).Create("Trip-A", configManager.GetDefault(), "classic"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "trip-a.json")); err != nil {
		t.Fatalf("Expected lower-cased session file: %v", err)
	}

	// a restarted server resolves any spelling of the id
	restarted := NewManagerWithPersistence(persistence)
	for _, id := range []string{"TRIP-A", "trip-a", "Trip-A"} {
		sess, err := restarted.Get(id)
		if err != nil {
			t.Fatalf("Get(%q) failed: %v", id, err)
		}
		if sess.ID != "Trip-A" {
			t.Errorf("Expected original id to survive, got %s", sess.ID)
		}
	}
	if restarted.Count() != 1 {
		t.Errorf("Expected one cached session, got %d", restarted.Count())
	}

	if !persistence.Exists("TRIP-A") {
		t.Error("Exists should ignore case")
	}
	if err := NewManagerWithPersistence(persistence).Delete("TRIP-A"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "trip-a.json")); !os.IsNotExist(err) {
		t.Error("Expected session file to be removed")
	}

	loader := NewManagerWithPersistence(persistence)
	if err := loader.LoadPersistedSessions(); err != nil {
		t.Fatal(err)
	}
	if loader.Count() != 0 {
		t.Errorf("Expected nothing to load after delete, got %d", loader.Count())
	}
}
