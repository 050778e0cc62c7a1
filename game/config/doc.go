// Package config provides rule set management for Quest for Water.
//
// The config package handles:
//   - Loading rule sets from JSON or YAML files
//   - Validation through engine.ValidateGameConfig
//   - Default rule set selection
//   - Rule set discovery and listing
//
// Rule Set Format:
//
// Rule sets live in the configs directory as <id>.json, <id>.yaml or
// <id>.yml. The id (file name without extension) is what sessions are
// created with. Each rule set defines:
//   - Grid size, starting water and dirty-tile penalty
//   - Milestone step counts
//   - The difficulty table (dirty chance, time budget, border clearing)
//   - Messages for starting, milestones, dirty tiles, winning and losing
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load specific rule set
//	gameConfig, err := manager.LoadConfig("marathon")
//
//	// Get default rule set
//	defaultConfig := manager.GetDefault()
//
//	// List available rule sets
//	configs, err := manager.ListConfigs()
//
// The default is "classic" when present, otherwise the first valid file,
// otherwise engine.DefaultConfig.
package config
