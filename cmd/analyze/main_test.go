package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/quest-for-water/game/engine"
)

func TestStatsRates(t *testing.T) {
	stats := Stats{Boards: 4, Solvable: 3, TotalDirty: 10}
	if stats.SolvableRate() != 75 {
		t.Errorf("Expected 75%% solvable, got %.1f", stats.SolvableRate())
	}
	if stats.MeanDirty() != 2.5 {
		t.Errorf("Expected mean dirty 2.5, got %.1f", stats.MeanDirty())
	}

	var empty Stats
	if empty.SolvableRate() != 0 || empty.MeanDirty() != 0 {
		t.Error("Empty stats should report zeros")
	}
}

func TestAnalyze_ClearBorderAlwaysSolvable(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.Difficulties[engine.Hard] = engine.DifficultySettings{DirtyChance: 0.9, TimeBudget: 10, ClearBorder: true}

	stats, err := analyze(cfg, engine.Hard, 200, 7)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if stats.Solvable != stats.Boards {
		t.Errorf("Boards with a clear border should always be solvable, got %d/%d", stats.Solvable, stats.Boards)
	}
	if stats.MaxDirty == 0 {
		t.Error("Expected some dirty tiles at 90% density")
	}
}

func TestAnalyze_NoDirtTiles(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.Difficulties[engine.Easy] = engine.DifficultySettings{DirtyChance: 0, TimeBudget: 30}

	stats, err := analyze(cfg, engine.Easy, 50, 1)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if stats.TotalDirty != 0 || stats.MinDirty != 0 || stats.MaxDirty != 0 {
		t.Errorf("Expected no dirty tiles, got %+v", stats)
	}
	if stats.SolvableRate() != 100 {
		t.Errorf("Expected every clean board to be solvable, got %.1f%%", stats.SolvableRate())
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	cfg := engine.DefaultConfig()

	first, err := analyze(cfg, engine.Normal, 100, 42)
	if err != nil {
		t.Fatal(err)
	}
	second, err := analyze(cfg, engine.Normal, 100, 42)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("Same seed should give the same stats: %+v vs %+v", first, second)
	}
}

func TestAnalyze_ZeroBoards(t *testing.T) {
	stats, err := analyze(engine.DefaultConfig(), engine.Easy, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if stats.MinDirty != 0 || stats.Boards != 0 {
		t.Errorf("Unexpected stats for zero boards: %+v", stats)
	}
}

func TestReport(t *testing.T) {
	var out bytes.Buffer
	if err := report(&out, "default", engine.DefaultConfig(), 20, 3); err != nil {
		t.Fatalf("report failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{"=== Analyzing default ===", "Grid Size: 6 x 6", "easy", "normal", "hard", "solvable"} {
		if !strings.Contains(text, want) {
			t.Errorf("Report missing %q:\n%s", want, text)
		}
	}
}

func newTestCommand(out *bytes.Buffer) *cli.Command {
	return &cli.Command{
		Name: "analyze",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: "../../configs"},
			&cli.IntFlag{Name: "boards", Value: 10},
			&cli.IntFlag{Name: "seed", Value: 1},
		},
		Writer: out,
		Action: run,
	}
}

func TestRun_ShippedConfigs(t *testing.T) {
	var out bytes.Buffer
	if err := newTestCommand(&out).Run(context.Background(), []string{"analyze", "classic", "marathon"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out.String(), "=== Analyzing classic ===") || !strings.Contains(out.String(), "Grid Size: 10 x 10") {
		t.Errorf("Unexpected output:\n%s", out.String())
	}

	out.Reset()
	if err := newTestCommand(&out).Run(context.Background(), []string{"analyze", "missing"}); err == nil {
		t.Error("Expected error for unknown config")
	}
}
