package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultDifficulties returns the static difficulty table
func DefaultDifficulties() map[Difficulty]DifficultySettings {
	return map[Difficulty]DifficultySettings{
		Easy:   {DirtyChance: 0.15, TimeBudget: 30},
		Normal: {DirtyChance: 0.28, TimeBudget: 20},
		Hard:   {DirtyChance: 0.45, TimeBudget: 10, ClearBorder: true},
	}
}

// DefaultMilestones are the step counts that trigger an encouragement message
func DefaultMilestones() []int {
	return []int{3, 6, 9}
}

// DefaultConfig returns the classic 6x6 rule set
func DefaultConfig() *GameConfig {
	return &GameConfig{
		Name:              "classic",
		Description:       "Carry water home across a 6x6 field",
		GridSize:          DefaultGridSize,
		StartingWater:     DefaultWater,
		DirtyPenalty:      DefaultPenalty,
		Milestones:        DefaultMilestones(),
		DefaultDifficulty: Easy,
		Difficulties:      DefaultDifficulties(),
		Messages: Messages{
			Welcome:     "Press start to begin your quest for water.",
			Started:     "Go! Bring the water home.",
			Milestone:   "Great job! %d steps taken!",
			DirtyTile:   "Dirty water! You lost some water and went back to start.",
			HomeReached: "You made it home!",
			Depleted:    "Time's up or water depleted!",
			Reset:       "Game reset.",
		},
	}
}

// Settings returns the difficulty row for d
func (c *GameConfig) Settings(d Difficulty) (DifficultySettings, error) {
	s, ok := c.Difficulties[d]
	if !ok {
		return DifficultySettings{}, fmt.Errorf("%w: %q", ErrInvalidDifficulty, d)
	}
	return s, nil
}

// ValidateGameConfig validates a rule set for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	if config.GridSize < MinGridSize || config.GridSize > MaxGridSize {
		return fmt.Errorf("config validation: grid_size must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.GridSize)
	}

	if config.StartingWater < MinStartingWater || config.StartingWater > MaxStartingWater {
		return fmt.Errorf("config validation: starting_water must be between %d and %d, got %d",
			MinStartingWater, MaxStartingWater, config.StartingWater)
	}
	if config.DirtyPenalty < 0 || config.DirtyPenalty > MaxDirtyPenalty {
		return fmt.Errorf("config validation: dirty_penalty must be between 0 and %d, got %d", MaxDirtyPenalty, config.DirtyPenalty)
	}

	prev := 0
	for i, m := range config.Milestones {
		if m <= prev {
			return fmt.Errorf("config validation: milestones must be positive and strictly ascending, got %d at index %d", m, i)
		}
		prev = m
	}

	for _, d := range Difficulties {
		s, ok := config.Difficulties[d]
		if !ok {
			return fmt.Errorf("config validation: difficulties['%s'] is required", d)
		}
		if s.DirtyChance < 0 || s.DirtyChance >= 1 {
			return fmt.Errorf("config validation: difficulties['%s'].dirty_chance must be in [0,1), got %v", d, s.DirtyChance)
		}
		if s.TimeBudget < 1 {
			return fmt.Errorf("config validation: difficulties['%s'].time_budget must be positive, got %d", d, s.TimeBudget)
		}
	}
	for d := range config.Difficulties {
		if _, err := ParseDifficulty(string(d)); err != nil {
			return fmt.Errorf("config validation: unknown difficulty '%s'", d)
		}
	}

	if config.DefaultDifficulty != "" {
		if _, ok := config.Difficulties[config.DefaultDifficulty]; !ok {
			return fmt.Errorf("config validation: default_difficulty '%s' is not in difficulties", config.DefaultDifficulty)
		}
	}

	if config.Messages.HomeReached == "" {
		return fmt.Errorf("config validation: messages.home_reached is required")
	}
	if config.Messages.Depleted == "" {
		return fmt.Errorf("config validation: messages.depleted is required")
	}
	if config.Messages.Milestone != "" && !stepTemplate(config.Messages.Milestone) {
		return fmt.Errorf("config validation: messages.milestone must contain exactly one %%d for the step count, got %q", config.Messages.Milestone)
	}

	return nil
}

// stepTemplate reports whether s formats exactly one int. "%%" is a literal.
func stepTemplate(s string) bool {
	verbs := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		i++
		if i == len(s) {
			return false
		}
		switch s[i] {
		case '%':
		case 'd':
			verbs++
		default:
			return false
		}
	}
	return verbs == 1
}

// LoadGameConfig loads and validates a rule set from a .json, .yaml or .yml file
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := DecodeGameConfig(filepath.Ext(filename), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", filepath.Base(filename), err)
	}

	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// DecodeGameConfig parses data according to the file extension ext
func DecodeGameConfig(ext string, data []byte) (*GameConfig, error) {
	var config GameConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	case ".json", "":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	return &config, nil
}

// InitGameStateFromConfig creates an idle state with an inert board for difficulty d
func InitGameStateFromConfig(config *GameConfig, gen *Generator, d Difficulty) (*GameState, error) {
	if config == nil {
		config = DefaultConfig()
	}
	settings, err := config.Settings(d)
	if err != nil {
		return nil, err
	}
	grid, err := gen.GenerateBoard(config.GridSize, settings)
	if err != nil {
		return nil, err
	}

	return &GameState{
		Grid:            grid,
		PlayerPos:       StartPosition(),
		Water:           config.StartingWater,
		TimeLeft:        settings.TimeBudget,
		Steps:           0,
		MilestonesShown: []int{},
		Status:          Idle,
		Outcome:         OutcomeNone,
		Difficulty:      d,
		Message:         config.Messages.Welcome,
		ConfigName:      config.Name,
		MoveHistory:     []MoveHistoryEntry{},
	}, nil
}
