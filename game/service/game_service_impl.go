package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/quest-for-water/game/engine"
	"github.com/wricardo/quest-for-water/game/scoreboard"
	"github.com/wricardo/quest-for-water/game/timer"
)

// DefaultTickInterval is one game second
const DefaultTickInterval = time.Second

// gameServiceImpl implements the GameService interface. Every operation,
// including timer ticks, runs under mu, so a session never sees a tick and a
// move at the same time.
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	notifier Notifier
	results  scoreboard.Store
	source   timer.Source
	interval time.Duration

	timers map[string]*timer.Handle
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// Option customizes the game service
type Option func(*gameServiceImpl)

// WithNotifier pushes state updates and events to n
func WithNotifier(n Notifier) Option {
	return func(s *gameServiceImpl) { s.notifier = n }
}

// WithScoreboard records finished runs in store
func WithScoreboard(store scoreboard.Store) Option {
	return func(s *gameServiceImpl) { s.results = store }
}

// WithTimerSource drives session clocks from src
func WithTimerSource(src timer.Source) Option {
	return func(s *gameServiceImpl) { s.source = src }
}

// WithTickInterval sets the wall-clock length of one game second
func WithTickInterval(d time.Duration) Option {
	return func(s *gameServiceImpl) {
		if d > 0 {
			s.interval = d
		}
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		source:   timer.RealSource,
		interval: DefaultTickInterval,
		timers:   make(map[string]*timer.Handle),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.results == nil {
		s.results = scoreboard.NewMemoryStore()
	}
	return s
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// CreateSession creates a new idle game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string, opts SessionOptions) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	configID := configName
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v: %w", configName, configIDs, err)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations: %w", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = s.getConfigID(config.Name)
	}

	sess, err := s.sessions.Create("", config, configID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if opts.ManualClock {
		sess.ManualClock = true
		s.persist(sess)
	}

	log.Printf("[SESSION] created session=%s config=%s manual_clock=%t", sess.ID, configID, sess.ManualClock)
	return s.sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession stops the session clock and removes the session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, err := s.sessions.Get(sessionID); err == nil {
		s.stopTimer(sess.ID)
	}
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	return nil
}

// Start begins (or restarts) a run and starts the session clock
func (s *gameServiceImpl) Start(ctx context.Context, sessionID, difficulty string) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	res, err := sess.Engine.Start(difficulty)
	if err != nil {
		return nil, err
	}

	s.stopTimer(sess.ID)
	if !sess.ManualClock {
		s.startTimer(sess)
	}

	state := sess.Engine.GetState()
	log.Printf("[START] session=%s difficulty=%s epoch=%d time=%d water=%d",
		sess.ID, state.Difficulty, state.Epoch, state.TimeLeft, state.Water)

	events := []GameEvent{newEvent(EventStart, res.Message, res.Position)}
	return s.complete(sess, res, events), nil
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	res, err := sess.Engine.Move(direction)
	if err != nil {
		return nil, err
	}

	if res.Move != nil {
		log.Printf("[MOVE] session=%s %s (%d,%d)->(%d,%d) tile=%s water=%d steps=%d status=%s",
			sess.ID, res.Move.Direction, res.Move.From.X, res.Move.From.Y,
			res.Move.Final.X, res.Move.Final.Y, res.Move.Tile, res.Water, res.Steps, res.Status)
	}

	return s.complete(sess, res, moveEvents(res)), nil
}

// BulkMove executes multiple moves in sequence. Every direction is validated
// before any move is applied.
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string) (*BulkMoveResult, error) {
	if len(moves) == 0 {
		return nil, fmt.Errorf("%w: no moves given", engine.ErrInvalidDirection)
	}
	if len(moves) > engine.MaxBulkMoves {
		return nil, fmt.Errorf("%w: %d requested, limit is %d", ErrTooManyMoves, len(moves), engine.MaxBulkMoves)
	}
	for i, move := range moves {
		if _, err := engine.ParseDirection(move); err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.GetState()
	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Success:        true,
		Events:         make([]GameEvent, 0),
		StartPos:       state.PlayerPos,
		StartWater:     state.Water,
	}

	results, err := sess.Engine.BulkMove(moves)
	if err != nil {
		// directions were validated above
		return nil, err
	}
	result.Results = results
	for _, res := range results {
		result.Events = append(result.Events, moveEvents(res)...)
		if !res.NoOp {
			result.MovesExecuted++
		}
	}

	if n := len(results); n > 0 && results[n-1].Ended {
		s.finishRun(sess, &result.Events)
	}

	if len(results) < len(moves) {
		result.StoppedOnMove = len(results) + 1
		switch sess.Engine.Status() {
		case engine.Won:
			result.StopReasonCode = "victory"
			result.StoppedReason = "home reached"
		case engine.Lost:
			result.Success = false
			result.StopReasonCode = "game_over"
			result.StoppedReason = "run already over"
		default:
			result.Success = false
			result.StopReasonCode = "not_running"
			result.StoppedReason = "game is not running; call start first"
		}
	}

	s.persist(sess)
	snapshot := sess.Engine.Snapshot()
	s.notify(sess.ID, snapshot, result.Events)

	result.GameState = snapshot
	result.EndPos = snapshot.PlayerPos
	result.EndWater = snapshot.Water
	result.GameOver = sess.Engine.IsGameOver()
	result.Message = snapshot.Message
	result.LocalView3x3 = buildLocal3x3(snapshot)

	log.Printf("[BULK] session=%s exec=%d/%d stop=%s end=(%d,%d) water=%d",
		sess.ID, result.MovesExecuted, result.RequestedMoves, result.StopReasonCode,
		result.EndPos.X, result.EndPos.Y, result.EndWater)

	return result, nil
}

// Tick advances a manual-clock session by one second
func (s *gameServiceImpl) Tick(ctx context.Context, sessionID string) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.ManualClock {
		return nil, fmt.Errorf("session %s: %w", sess.ID, ErrManualClockOnly)
	}

	res := sess.Engine.Tick()
	return s.complete(sess, res, tickEvents(res)), nil
}

// Reset stops the clock and returns the session to an idle board
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	s.stopTimer(sess.ID)
	res := sess.Engine.Reset()
	log.Printf("[RESET] session=%s epoch=%d", sess.ID, sess.Engine.Epoch())

	events := []GameEvent{newEvent(EventReset, res.Message, res.Position)}
	return s.complete(sess, res, events), nil
}

// GetGameState retrieves a snapshot of the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.Snapshot(), nil
}

// GetMoveHistory returns paginated move history of the current run
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveHistoryEntry{}
	if opts.Order == "desc" {
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = append(moves, history[start:end]...)
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// LatestResult returns the most recently finished run
func (s *gameServiceImpl) LatestResult(ctx context.Context) (*scoreboard.Record, error) {
	return s.results.Latest(ctx)
}

// ListResults returns finished runs, newest first
func (s *gameServiceImpl) ListResults(ctx context.Context, limit int) ([]scoreboard.Record, error) {
	return s.results.List(ctx, limit)
}

// ResumeClocks restarts timers for running sessions loaded from storage
func (s *gameServiceImpl) ResumeClocks(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	resumed := 0
	for _, sess := range s.sessions.List() {
		if sess.ManualClock || !sess.Engine.IsRunning() {
			continue
		}
		if _, ok := s.timers[sess.ID]; ok {
			continue
		}
		s.startTimer(sess)
		resumed++
	}
	if resumed > 0 {
		log.Printf("[CLOCK] resumed %d running sessions", resumed)
	}
	return resumed
}

// Close stops every session clock
func (s *gameServiceImpl) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.timers {
		s.stopTimer(id)
	}
	s.cancel()
	return nil
}

// onTimerTick applies one wall-clock tick. A tick for an epoch the session
// has already left is dropped.
func (s *gameServiceImpl) onTimerTick(sessionID string, epoch int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		s.stopTimer(sessionID)
		return
	}
	if sess.Engine.Epoch() != epoch || !sess.Engine.IsRunning() {
		return
	}

	res := sess.Engine.Tick()
	s.complete(sess, res, tickEvents(res))
}

// complete finishes a transition: records a finished run, persists, and notifies
func (s *gameServiceImpl) complete(sess *Session, res *engine.Result, events []GameEvent) *ActionResult {
	if res.Ended {
		s.finishRun(sess, &events)
	}

	s.sessions.UpdateLastAccessed(sess.ID)
	s.persist(sess)

	snapshot := sess.Engine.Snapshot()
	s.notify(sess.ID, snapshot, events)

	return &ActionResult{
		Success:   !res.Ignored && !res.NoOp,
		GameState: snapshot,
		Result:    res,
		Message:   snapshot.Message,
		Events:    events,
	}
}

// finishRun stops the clock and records the result of a run that just ended
func (s *gameServiceImpl) finishRun(sess *Session, events *[]GameEvent) {
	s.stopTimer(sess.ID)

	state := sess.Engine.GetState()
	rec := scoreboard.NewRecord(sess.ID, state, sess.Config)
	if sess.ConfigID != "" {
		rec.ConfigName = sess.ConfigID
	}
	if _, err := s.results.RecordResult(s.ctx, rec); err != nil {
		log.Printf("[SCOREBOARD] session=%s failed to record result: %v", sess.ID, err)
	}

	log.Printf("[END] session=%s outcome=%s steps=%d water=%d time=%d",
		sess.ID, state.Outcome, state.Steps, state.Water, state.TimeLeft)

	switch state.Status {
	case engine.Won:
		*events = append(*events, newEvent(EventVictory, state.Message, state.PlayerPos))
	case engine.Lost:
		*events = append(*events, newEvent(EventGameOver, state.Message, state.PlayerPos))
	}
}

// startTimer starts the wall clock for the session's current epoch. Caller holds mu.
func (s *gameServiceImpl) startTimer(sess *Session) {
	id, epoch := sess.ID, sess.Engine.Epoch()
	s.timers[id] = timer.Start(s.ctx, s.source, s.interval, func() {
		s.onTimerTick(id, epoch)
	})
}

// stopTimer stops the session clock if one is running. Caller holds mu.
func (s *gameServiceImpl) stopTimer(id string) {
	if h, ok := s.timers[id]; ok {
		h.Stop()
		delete(s.timers, id)
	}
}

func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return sess, nil
}

func (s *gameServiceImpl) persist(sess *Session) {
	if err := s.sessions.Save(sess.ID); err != nil {
		log.Printf("Warning: Failed to persist session %s: %v", sess.ID, err)
	}
}

func (s *gameServiceImpl) notify(sessionID string, state *engine.GameState, events []GameEvent) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastToSession(sessionID, state)
	for _, ev := range events {
		s.notifier.BroadcastEvent(sessionID, ev.Type, ev)
	}
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	configID := sess.ConfigID
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		ManualClock:    sess.ManualClock,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.Snapshot(),
		GameConfig:     sess.Config,
	}
}

func newEvent(kind, message string, pos engine.Position) GameEvent {
	return GameEvent{
		Type:      kind,
		Message:   message,
		Timestamp: time.Now(),
		Position:  pos,
	}
}

// moveEvents generates events from a move result
func moveEvents(res *engine.Result) []GameEvent {
	switch {
	case res.Ignored:
		return []GameEvent{newEvent(EventIgnored, "game is not running", res.Position)}
	case res.NoOp:
		return []GameEvent{newEvent(EventNoOp, "blocked by the edge of the field", res.Position)}
	}

	m := res.Move
	events := []GameEvent{
		newEvent(EventMove, fmt.Sprintf("Moved %s to (%d,%d)", m.Direction, m.To.X, m.To.Y), m.To),
	}
	for _, step := range res.Milestones {
		ev := newEvent(EventMilestone, fmt.Sprintf("%d steps taken", step), res.Position)
		ev.Milestone = step
		events = append(events, ev)
	}
	if m.Tile == engine.Dirty {
		events = append(events, newEvent(EventDirty,
			fmt.Sprintf("Dirty tile at (%d,%d): -%d water, back to start", m.To.X, m.To.Y, m.Penalty), m.To))
	}
	return events
}

func tickEvents(res *engine.Result) []GameEvent {
	if res.Ignored {
		return []GameEvent{newEvent(EventIgnored, "game is not running", res.Position)}
	}
	return []GameEvent{newEvent(EventTick, fmt.Sprintf("Water: %d | Time: %ds", res.Water, res.TimeLeft), res.Position)}
}

// buildLocal3x3 renders the player's neighborhood; off-grid cells are '#'
func buildLocal3x3(state *engine.GameState) []string {
	if state == nil {
		return nil
	}
	px, py := state.PlayerPos.X, state.PlayerPos.Y
	lines := make([]string, 0, 3)
	for dy := -1; dy <= 1; dy++ {
		var row strings.Builder
		for dx := -1; dx <= 1; dx++ {
			p := engine.Position{X: px + dx, Y: py + dy}
			switch {
			case dx == 0 && dy == 0:
				row.WriteString("@")
			case !state.Grid.InBounds(p):
				row.WriteString("#")
			default:
				row.WriteString(engine.TileChar(state.Grid.At(p)))
			}
		}
		lines = append(lines, row.String())
	}
	return lines
}
