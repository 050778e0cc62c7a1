package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wricardo/quest-for-water/api"
	"github.com/wricardo/quest-for-water/game/config"
	"github.com/wricardo/quest-for-water/game/engine"
	"github.com/wricardo/quest-for-water/game/scoreboard"
	"github.com/wricardo/quest-for-water/game/service"
	"github.com/wricardo/quest-for-water/game/session"
	"github.com/wricardo/quest-for-water/game/timer"
)

// newTestClient starts the REST API over the shipped configs with a manual clock
func newTestClient(t *testing.T) (*Client, *timer.ManualSource) {
	t.Helper()

	configManager, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}

	clock := timer.NewManualSource()
	svc := service.NewGameService(session.NewManager(), configManager,
		service.WithTimerSource(clock),
		service.WithScoreboard(scoreboard.NewMemoryStore()),
	)
	t.Cleanup(func() { svc.Close() })

	server := httptest.NewServer(api.NewServer(svc, nil))
	t.Cleanup(server.Close)

	return NewClient(server.URL), clock
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]interface{}) (string, bool) {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	result, err := handler(context.Background(), request)
	if err != nil {
		t.Fatalf("%s returned error: %v", name, err)
	}
	if result == nil || len(result.Content) == 0 {
		t.Fatalf("%s returned no content", name)
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("%s returned non-text content", name)
	}
	return text.Text, result.IsError
}

func createSession(t *testing.T, c *Client, args map[string]interface{}) string {
	t.Helper()
	text, isErr := callTool(t, c.handleCreateSession, "create_session", args)
	if isErr {
		t.Fatalf("create_session failed: %s", text)
	}
	firstLine := strings.SplitN(text, "\n", 2)[0]
	return strings.TrimPrefix(firstLine, "Created session ")
}

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080/"
	client := NewClient(baseURL)

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCallError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/plain" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": "session not found", "code": 404})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall(context.Background(), "GET", "/json", nil, nil)
	if err == nil || err.Error() != "session not found" {
		t.Errorf("Expected API error message, got %v", err)
	}

	err = client.apiCall(context.Background(), "GET", "/plain", nil, nil)
	if err == nil || err.Error() != "API error: 502" {
		t.Errorf("Expected status fallback, got %v", err)
	}
}

func TestClient_SessionTools(t *testing.T) {
	client, _ := newTestClient(t)

	id := createSession(t, client, map[string]interface{}{"config_id": "marathon", "manual_clock": true})
	if id == "" {
		t.Fatal("Expected a session id")
	}

	text, isErr := callTool(t, client.handleGetSession, "get_session", map[string]interface{}{"session_id": id})
	if isErr {
		t.Fatalf("get_session failed: %s", text)
	}
	if !strings.Contains(text, "Manual clock: true") || !strings.Contains(text, "Status: idle") {
		t.Errorf("Unexpected session description:\n%s", text)
	}

	text, _ = callTool(t, client.handleListSessions, "list_sessions", nil)
	if !strings.Contains(text, "Active sessions: 1") || !strings.Contains(text, id) {
		t.Errorf("Unexpected session list:\n%s", text)
	}

	text, isErr = callTool(t, client.handleGetSession, "get_session", map[string]interface{}{"session_id": "nope"})
	if !isErr || !strings.Contains(text, "not found") {
		t.Errorf("Expected not found error, got %q", text)
	}

	text, isErr = callTool(t, client.handleCreateSession, "create_session", map[string]interface{}{"config_id": "missing"})
	if !isErr || !strings.Contains(text, "Available configs") {
		t.Errorf("Expected unknown config error, got %q", text)
	}
}

func TestClient_PlayToVictory(t *testing.T) {
	client, _ := newTestClient(t)
	id := createSession(t, client, map[string]interface{}{"manual_clock": true})

	text, isErr := callTool(t, client.handleStart, "start_game", map[string]interface{}{"session_id": id, "difficulty": "hard"})
	if isErr {
		t.Fatalf("start_game failed: %s", text)
	}
	if !strings.Contains(text, "Status: running | Difficulty: hard") || !strings.Contains(text, "Time: 10s") {
		t.Errorf("Unexpected start output:\n%s", text)
	}

	text, _ = callTool(t, client.handleMove, "move", map[string]interface{}{
		"session_id": id,
		"direction":  "right",
		"intent":     "the top row is always clean on hard",
	})
	if !strings.Contains(text, "✓ Move successful") || !strings.Contains(text, "(0,0)→(1,0)") {
		t.Errorf("Unexpected move output:\n%s", text)
	}

	text, _ = callTool(t, client.handleMove, "move", map[string]interface{}{"session_id": id, "direction": "up"})
	if !strings.Contains(text, "✗ Move had no effect") {
		t.Errorf("Expected a no-op at the edge:\n%s", text)
	}

	text, isErr = callTool(t, client.handleMove, "move", map[string]interface{}{"session_id": id, "direction": "sideways"})
	if !isErr {
		t.Errorf("Expected invalid direction error, got %q", text)
	}

	text, _ = callTool(t, client.handleTick, "tick", map[string]interface{}{"session_id": id})
	if !strings.Contains(text, "Water: 99") || !strings.Contains(text, "Time: 9s") {
		t.Errorf("Unexpected tick output:\n%s", text)
	}

	moves := []interface{}{"right", "right", "right", "right", "down", "down", "down", "down", "down", "left"}
	text, isErr = callTool(t, client.handleBulkMove, "bulk_move", map[string]interface{}{
		"session_id": id,
		"moves":      moves,
		"intent":     "follow the right column home",
	})
	if isErr {
		t.Fatalf("bulk_move failed: %s", text)
	}
	for _, want := range []string{"Executed 9/10 moves", "Stopped on move 10", "(victory)", "🎉 VICTORY!", "Local 3x3:"} {
		if !strings.Contains(text, want) {
			t.Errorf("bulk_move output missing %q:\n%s", want, text)
		}
	}

	text, _ = callTool(t, client.handleLatestResult, "latest_result", nil)
	if !strings.Contains(text, "Won (home reached)") || !strings.Contains(text, "Session: "+id) || !strings.Contains(text, "Elapsed: 1s") {
		t.Errorf("Unexpected latest result:\n%s", text)
	}

	text, _ = callTool(t, client.handleMoveHistory, "move_history", map[string]interface{}{
		"session_id": id,
		"page":       float64(1),
		"limit":      float64(5),
		"order":      "asc",
	})
	if !strings.Contains(text, "Page 1/3, Total: 11 moves") || !strings.Contains(text, "1. ✓ right: (0,0) → (1,0)") {
		t.Errorf("Unexpected history:\n%s", text)
	}
	if !strings.Contains(text, "More moves available") {
		t.Errorf("Expected a next page hint:\n%s", text)
	}

	text, _ = callTool(t, client.handleReset, "reset_game", map[string]interface{}{"session_id": id})
	if !strings.Contains(text, "Game reset") || !strings.Contains(text, "Status: idle | Difficulty: hard") {
		t.Errorf("Unexpected reset output:\n%s", text)
	}
}

func TestClient_DescribeCell(t *testing.T) {
	client, _ := newTestClient(t)
	id := createSession(t, client, nil)
	callTool(t, client.handleStart, "start_game", map[string]interface{}{"session_id": id})

	text, isErr := callTool(t, client.handleDescribeCell, "describe_cell", map[string]interface{}{
		"session_id": id, "x": float64(5), "y": float64(5),
	})
	if isErr {
		t.Fatalf("describe_cell failed: %s", text)
	}
	if !strings.Contains(text, "Character: H") || !strings.Contains(text, "Distance to you: 10 steps") {
		t.Errorf("Unexpected home description:\n%s", text)
	}

	text, _ = callTool(t, client.handleDescribeCell, "describe_cell", map[string]interface{}{
		"session_id": id, "x": float64(0), "y": float64(0),
	})
	if !strings.Contains(text, "Clean ground") || !strings.Contains(text, "You are standing here.") {
		t.Errorf("Unexpected start description:\n%s", text)
	}

	text, isErr = callTool(t, client.handleDescribeCell, "describe_cell", map[string]interface{}{
		"session_id": id, "x": float64(6), "y": float64(0),
	})
	if !isErr || !strings.Contains(text, "out of bounds") {
		t.Errorf("Expected out of bounds error, got %q", text)
	}

	text, isErr = callTool(t, client.handleDescribeCell, "describe_cell", map[string]interface{}{"session_id": id})
	if !isErr {
		t.Errorf("Expected missing coordinates error, got %q", text)
	}
}

func TestClient_ManualClockOnly(t *testing.T) {
	client, _ := newTestClient(t)
	id := createSession(t, client, nil)
	callTool(t, client.handleStart, "start_game", map[string]interface{}{"session_id": id})

	text, isErr := callTool(t, client.handleTick, "tick", map[string]interface{}{"session_id": id})
	if !isErr || !strings.Contains(text, "driven by the server") {
		t.Errorf("Expected manual clock error, got %q", text)
	}
}

func TestClient_TimerTicksVisible(t *testing.T) {
	client, clock := newTestClient(t)
	id := createSession(t, client, nil)
	callTool(t, client.handleStart, "start_game", map[string]interface{}{"session_id": id, "difficulty": "easy"})

	clock.Fire()
	clock.Fire()

	var text string
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		text, _ = callTool(t, client.handleGameState, "game_state", map[string]interface{}{"session_id": id})
		if strings.Contains(text, "Time: 28s") {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !strings.Contains(text, "Time: 28s") || !strings.Contains(text, "Water: 98") {
		t.Errorf("Expected two timer ticks in state:\n%s", text)
	}
	if !strings.Contains(text, "@") || !strings.Contains(text, "H") {
		t.Errorf("Expected rendered grid:\n%s", text)
	}
}

func TestClient_ConfigsAndInstructions(t *testing.T) {
	client, _ := newTestClient(t)

	text, _ := callTool(t, client.handleListConfigs, "list_configs", nil)
	if !strings.Contains(text, "config_id: classic") || !strings.Contains(text, "config_id: marathon") {
		t.Errorf("Unexpected config list:\n%s", text)
	}

	text, isErr := callTool(t, client.handleLatestResult, "latest_result", nil)
	if !isErr {
		t.Errorf("Expected no results error, got %q", text)
	}

	text, _ = callTool(t, client.handleGameInstructions, "game_instructions", nil)
	if !strings.Contains(text, "Quest for Water") || !strings.Contains(text, "manual_clock") {
		t.Error("Instructions should describe the game and the manual clock")
	}
}

func TestClient_HTTPHandler(t *testing.T) {
	client, _ := newTestClient(t)
	handler := client.HTTPHandler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/mcp", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET, got %d", rec.Code)
	}

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/mcp", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var response struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	names := map[string]bool{}
	for _, tool := range response.Result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"create_session", "start_game", "move", "bulk_move", "tick", "describe_cell", "latest_result"} {
		if !names[want] {
			t.Errorf("Expected tool %s to be listed", want)
		}
	}
}

func TestFormatGameState(t *testing.T) {
	if got := formatGameState(nil); got != "No game state available" {
		t.Errorf("Unexpected nil formatting: %q", got)
	}

	grid := engine.Grid{
		{engine.Clean, engine.Dirty},
		{engine.Clean, engine.Home},
	}
	state := &engine.GameState{
		Grid:       grid,
		PlayerPos:  engine.Position{X: 1, Y: 1},
		Water:      3,
		TimeLeft:   2,
		Steps:      2,
		Status:     engine.Won,
		Difficulty: engine.Difficulty("easy"),
		Message:    "Home!",
	}
	got := formatGameState(state)
	for _, want := range []string{"Status: won", "Position: (1,1)", "Water: 3", "🎉 VICTORY!", "Message: Home!"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatGameState missing %q:\n%s", want, got)
		}
	}
}
