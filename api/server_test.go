package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/quest-for-water/game/config"
	"github.com/wricardo/quest-for-water/game/engine"
	"github.com/wricardo/quest-for-water/game/scoreboard"
	"github.com/wricardo/quest-for-water/game/service"
	"github.com/wricardo/quest-for-water/game/session"
	"github.com/wricardo/quest-for-water/game/timer"
	ws "github.com/wricardo/quest-for-water/transport/websocket"
)

type testEnv struct {
	server *Server
	hub    *ws.Hub
	svc    service.GameService
	clock  *timer.ManualSource
}

// newTestEnv wires the real stack on a copy of the shipped configs
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	for _, name := range []string{"classic.json", "marathon.yaml"} {
		data, err := os.ReadFile(filepath.Join("..", "configs", name))
		if err != nil {
			t.Fatalf("Failed to read shipped config: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}

	configManager, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	hub := ws.NewHub()
	go hub.Run(ctx)

	clock := timer.NewManualSource()
	svc := service.NewGameService(session.NewManager(), configManager,
		service.WithNotifier(hub),
		service.WithTimerSource(clock),
		service.WithScoreboard(scoreboard.NewMemoryStore()),
	)
	t.Cleanup(func() {
		svc.Close()
		cancel()
	})

	return &testEnv{server: NewServer(svc, hub), hub: hub, svc: svc, clock: clock}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("Expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

func (e *testEnv) createSession(t *testing.T, body interface{}) service.SessionInfo {
	t.Helper()
	rr := e.do(t, "POST", "/api/sessions", body)
	expectStatus(t, rr, http.StatusCreated)
	var info service.SessionInfo
	decode(t, rr, &info)
	return info
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "GET", "/api/health", nil)
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), "healthy") {
		t.Errorf("Unexpected health body: %s", rr.Body.String())
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	t.Run("create with default config", func(t *testing.T) {
		info := env.createSession(t, nil)
		if info.ConfigName != "classic" {
			t.Errorf("Expected classic config, got %s", info.ConfigName)
		}
		if info.GameState.Status != engine.Idle {
			t.Errorf("Expected idle session, got %s", info.GameState.Status)
		}
	})

	t.Run("create with config id and manual clock", func(t *testing.T) {
		info := env.createSession(t, map[string]interface{}{"config_id": "marathon", "manual_clock": true})
		if info.ConfigName != "marathon" || !info.ManualClock {
			t.Errorf("Unexpected session: config=%s manual=%t", info.ConfigName, info.ManualClock)
		}
		if len(info.GameState.Grid) != 10 {
			t.Errorf("Expected 10x10 marathon board, got %d rows", len(info.GameState.Grid))
		}
	})

	t.Run("create with legacy config_name", func(t *testing.T) {
		info := env.createSession(t, map[string]string{"config_name": "marathon"})
		if info.ConfigName != "marathon" {
			t.Errorf("Expected marathon, got %s", info.ConfigName)
		}
	})

	t.Run("unknown config", func(t *testing.T) {
		rr := env.do(t, "POST", "/api/sessions", map[string]string{"config_id": "nope"})
		expectStatus(t, rr, http.StatusNotFound)
		if !strings.Contains(rr.Body.String(), "Available configs") {
			t.Errorf("Expected available configs hint, got %s", rr.Body.String())
		}
	})

	t.Run("list with limit", func(t *testing.T) {
		rr := env.do(t, "GET", "/api/sessions?limit=2&sort=created&order=asc", nil)
		expectStatus(t, rr, http.StatusOK)
		var body struct {
			Count    int                   `json:"count"`
			Total    int                   `json:"total"`
			Sessions []service.SessionInfo `json:"sessions"`
		}
		decode(t, rr, &body)
		if body.Count != 2 || body.Total != 3 {
			t.Errorf("Expected 2 of 3 sessions, got %d of %d", body.Count, body.Total)
		}
		if body.Sessions[0].CreatedAt.After(body.Sessions[1].CreatedAt) {
			t.Error("Expected ascending creation order")
		}
	})

	t.Run("get and delete", func(t *testing.T) {
		info := env.createSession(t, nil)

		rr := env.do(t, "GET", "/api/sessions/"+info.ID, nil)
		expectStatus(t, rr, http.StatusOK)

		rr = env.do(t, "DELETE", "/api/sessions/"+info.ID, nil)
		expectStatus(t, rr, http.StatusOK)

		rr = env.do(t, "GET", "/api/sessions/"+info.ID, nil)
		expectStatus(t, rr, http.StatusNotFound)

		rr = env.do(t, "DELETE", "/api/sessions/"+info.ID, nil)
		expectStatus(t, rr, http.StatusNotFound)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/sessions", strings.NewReader("{"))
		rr := httptest.NewRecorder()
		env.server.ServeHTTP(rr, req)
		expectStatus(t, rr, http.StatusBadRequest)
	})
}

func TestGameplayEndpoints(t *testing.T) {
	env := newTestEnv(t)
	info := env.createSession(t, map[string]interface{}{"manual_clock": true})
	base := "/api/sessions/" + info.ID

	t.Run("move before start is ignored", func(t *testing.T) {
		rr := env.do(t, "POST", base+"/move", map[string]string{"direction": "right"})
		expectStatus(t, rr, http.StatusOK)
		var res service.ActionResult
		decode(t, rr, &res)
		if res.Success || res.Events[0].Type != service.EventIgnored {
			t.Errorf("Expected ignored move, got %+v", res)
		}
	})

	t.Run("start", func(t *testing.T) {
		rr := env.do(t, "POST", base+"/start", map[string]string{"difficulty": "hard"})
		expectStatus(t, rr, http.StatusOK)
		var res service.ActionResult
		decode(t, rr, &res)
		if res.GameState.Status != engine.Running || res.GameState.TimeLeft != 10 {
			t.Errorf("Expected running hard game with 10s, got %s/%d", res.GameState.Status, res.GameState.TimeLeft)
		}
	})

	t.Run("start with bad difficulty", func(t *testing.T) {
		rr := env.do(t, "POST", base+"/start", map[string]string{"difficulty": "brutal"})
		expectStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("move along the cleared top row", func(t *testing.T) {
		rr := env.do(t, "POST", base+"/move", map[string]string{"direction": "right"})
		expectStatus(t, rr, http.StatusOK)
		var res service.ActionResult
		decode(t, rr, &res)
		if res.GameState.PlayerPos != (engine.Position{X: 1, Y: 0}) {
			t.Errorf("Expected (1,0), got %+v", res.GameState.PlayerPos)
		}
	})

	t.Run("invalid direction", func(t *testing.T) {
		rr := env.do(t, "POST", base+"/move", map[string]string{"direction": "diagonal"})
		expectStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("tick", func(t *testing.T) {
		rr := env.do(t, "POST", base+"/tick", nil)
		expectStatus(t, rr, http.StatusOK)
		var res service.ActionResult
		decode(t, rr, &res)
		if res.GameState.TimeLeft != 9 || res.GameState.Water != 99 {
			t.Errorf("Expected 9s and 99 water, got %ds and %d", res.GameState.TimeLeft, res.GameState.Water)
		}
	})

	t.Run("bulk move to victory", func(t *testing.T) {
		// hard keeps the top row and right column clean
		moves := []string{"right", "right", "right", "right", "down", "down", "down", "down", "down", "down"}
		rr := env.do(t, "POST", base+"/bulk-move", map[string]interface{}{"moves": moves})
		expectStatus(t, rr, http.StatusOK)
		var res service.BulkMoveResult
		decode(t, rr, &res)
		if !res.GameOver || res.StopReasonCode != "victory" {
			t.Fatalf("Expected victory, got %+v", res)
		}
		if res.EndPos != (engine.Position{X: 5, Y: 5}) {
			t.Errorf("Expected to end at home, got %+v", res.EndPos)
		}
		if res.MovesExecuted != 9 || res.StoppedOnMove != 10 {
			t.Errorf("Expected 9 executed and a stop on move 10, got %d and %d", res.MovesExecuted, res.StoppedOnMove)
		}
	})

	t.Run("scoreboard", func(t *testing.T) {
		rr := env.do(t, "GET", "/api/scoreboard/latest", nil)
		expectStatus(t, rr, http.StatusOK)
		var rec scoreboard.Record
		decode(t, rr, &rec)
		if rec.SessionID != info.ID || rec.Outcome != engine.OutcomeHomeReached {
			t.Errorf("Unexpected latest result: %+v", rec)
		}
		if rec.ElapsedSeconds != 1 || rec.Steps != 10 {
			t.Errorf("Expected 1s elapsed and 10 steps, got %d and %d", rec.ElapsedSeconds, rec.Steps)
		}

		rr = env.do(t, "GET", "/api/scoreboard?limit=5", nil)
		expectStatus(t, rr, http.StatusOK)
		var list struct {
			Count int `json:"count"`
		}
		decode(t, rr, &list)
		if list.Count != 1 {
			t.Errorf("Expected 1 result, got %d", list.Count)
		}
	})

	t.Run("history", func(t *testing.T) {
		rr := env.do(t, "GET", base+"/history?limit=3&order=asc", nil)
		expectStatus(t, rr, http.StatusOK)
		var history service.HistoryResponse
		decode(t, rr, &history)
		if history.TotalMoves != 10 || len(history.Moves) != 3 || history.Moves[0].MoveNumber != 1 {
			t.Errorf("Unexpected history page: %+v", history)
		}
	})

	t.Run("reset", func(t *testing.T) {
		rr := env.do(t, "POST", base+"/reset", nil)
		expectStatus(t, rr, http.StatusOK)

		rr = env.do(t, "GET", base+"/state", nil)
		expectStatus(t, rr, http.StatusOK)
		var state engine.GameState
		decode(t, rr, &state)
		if state.Status != engine.Idle || state.Difficulty != engine.Hard {
			t.Errorf("Expected idle hard board after reset, got %s/%s", state.Status, state.Difficulty)
		}
	})
}

func TestBulkMoveValidation(t *testing.T) {
	env := newTestEnv(t)
	info := env.createSession(t, map[string]interface{}{"manual_clock": true})
	base := "/api/sessions/" + info.ID

	moves := make([]string, engine.MaxBulkMoves+1)
	for i := range moves {
		moves[i] = "up"
	}
	rr := env.do(t, "POST", base+"/bulk-move", map[string]interface{}{"moves": moves})
	expectStatus(t, rr, http.StatusBadRequest)

	rr = env.do(t, "POST", base+"/bulk-move", map[string]interface{}{"moves": []string{}})
	expectStatus(t, rr, http.StatusBadRequest)

	rr = env.do(t, "POST", "/api/sessions/missing/bulk-move", map[string]interface{}{"moves": []string{"up"}})
	expectStatus(t, rr, http.StatusNotFound)
}

func TestTickOnServerClockConflicts(t *testing.T) {
	env := newTestEnv(t)
	info := env.createSession(t, nil)

	rr := env.do(t, "POST", "/api/sessions/"+info.ID+"/tick", nil)
	expectStatus(t, rr, http.StatusConflict)
}

func TestConfigEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("list", func(t *testing.T) {
		rr := env.do(t, "GET", "/api/configs", nil)
		expectStatus(t, rr, http.StatusOK)
		var configs []service.ConfigInfo
		decode(t, rr, &configs)
		if len(configs) != 2 || configs[0].ConfigID != "classic" || configs[1].ConfigID != "marathon" {
			t.Errorf("Unexpected configs: %+v", configs)
		}
	})

	t.Run("get with extension", func(t *testing.T) {
		rr := env.do(t, "GET", "/api/configs/marathon.yaml", nil)
		expectStatus(t, rr, http.StatusOK)
		var cfg engine.GameConfig
		decode(t, rr, &cfg)
		if cfg.StartingWater != 150 {
			t.Errorf("Expected 150 starting water, got %d", cfg.StartingWater)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		rr := env.do(t, "GET", "/api/configs/missing", nil)
		expectStatus(t, rr, http.StatusNotFound)
	})

	t.Run("create", func(t *testing.T) {
		custom := engine.DefaultConfig()
		custom.Name = "sprint"
		custom.GridSize = 4
		rr := env.do(t, "POST", "/api/configs", custom)
		expectStatus(t, rr, http.StatusCreated)

		info := env.createSession(t, map[string]string{"config_id": "sprint"})
		if len(info.GameState.Grid) != 4 {
			t.Errorf("Expected 4x4 board from new config, got %d", len(info.GameState.Grid))
		}
	})

	t.Run("create invalid", func(t *testing.T) {
		bad := engine.DefaultConfig()
		bad.Name = "bad"
		bad.StartingWater = 0
		rr := env.do(t, "POST", "/api/configs", bad)
		expectStatus(t, rr, http.StatusBadRequest)

		rr = env.do(t, "POST", "/api/configs", map[string]string{"description": "no name"})
		expectStatus(t, rr, http.StatusBadRequest)
	})
}

func TestScoreboardEmpty(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "GET", "/api/scoreboard/latest", nil)
	expectStatus(t, rr, http.StatusNotFound)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("session x: %w", service.ErrSessionNotFound), http.StatusNotFound},
		{fmt.Errorf("wrap: %w", config.ErrConfigNotFound), http.StatusNotFound},
		{scoreboard.ErrNoResults, http.StatusNotFound},
		{fmt.Errorf("move 2: %w", engine.ErrInvalidDirection), http.StatusBadRequest},
		{engine.ErrInvalidDifficulty, http.StatusBadRequest},
		{service.ErrTooManyMoves, http.StatusBadRequest},
		{config.ErrInvalidConfig, http.StatusBadRequest},
		{config.ErrInvalidName, http.StatusBadRequest},
		{service.ErrManualClockOnly, http.StatusConflict},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWebSocketReceivesTimerTicks(t *testing.T) {
	env := newTestEnv(t)
	info := env.createSession(t, nil)

	server := httptest.NewServer(env.server)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?session=" + info.ID

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	read := func() ws.Message {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read message: %v", err)
		}
		var msg ws.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to decode message: %v", err)
		}
		return msg
	}

	initial := read()
	if initial.GameState == nil || initial.GameState.Status != engine.Idle {
		t.Fatalf("Expected idle initial state, got %+v", initial)
	}

	deadline := time.Now().Add(time.Second)
	for env.hub.ClientCount(info.ID) != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	rr := env.do(t, "POST", "/api/sessions/"+info.ID+"/start", map[string]string{"difficulty": "easy"})
	expectStatus(t, rr, http.StatusOK)
	if msg := read(); msg.Event != ws.EventStateUpdate || msg.GameState.Status != engine.Running {
		t.Fatalf("Expected running state update, got %+v", msg)
	}
	if msg := read(); msg.Event != service.EventStart {
		t.Fatalf("Expected start event, got %q", msg.Event)
	}

	env.clock.Fire()
	msg := read()
	if msg.Event != ws.EventStateUpdate || msg.GameState.TimeLeft != 29 {
		t.Fatalf("Expected tick state update with 29s left, got %+v", msg)
	}
	if msg := read(); msg.Event != service.EventTick {
		t.Fatalf("Expected tick event, got %q", msg.Event)
	}
}

func TestWebSocketRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/ws", nil)
	expectStatus(t, rr, http.StatusBadRequest)

	rr = env.do(t, "GET", "/ws?session=ghost", nil)
	expectStatus(t, rr, http.StatusNotFound)
}
