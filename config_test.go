package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("unexpected default addr: %s", cfg.Server.Addr)
	}
	if cfg.World.CellSize != 50 || cfg.World.MaxObjects != 4096 {
		t.Errorf("unexpected world defaults: %+v", cfg.World)
	}
	if cfg.Sim.TickRate != 30 {
		t.Errorf("unexpected default tick rate: %d", cfg.Sim.TickRate)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Addr != DefaultConfig().Server.Addr {
		t.Error("missing file should fall back to defaults")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.toml")
	content := `
[server]
addr = ":9999"
db_path = "/tmp/test.db"

[world]
size_x = 500.0
cell_size = 25.0
max_objects = 128
overlap_headroom = 4

[sim]
tick_rate = 20
broadcast_rate = 10
drones = 50
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("addr override lost: %s", cfg.Server.Addr)
	}
	if cfg.World.SizeX != 500 || cfg.World.CellSize != 25 {
		t.Errorf("world override lost: %+v", cfg.World)
	}
	// Unset keys keep defaults
	if cfg.World.SizeY != 1000 {
		t.Errorf("unset size_y should keep default, got %g", cfg.World.SizeY)
	}
	if cfg.Sim.Obstacles != 20 {
		t.Errorf("unset obstacles should keep default, got %d", cfg.Sim.Obstacles)
	}

	gc := cfg.GridConfig()
	if gc.WorldSize.X != 500 || gc.CellSize != 25 || gc.MaxObjects != 128 || gc.OverlapHeadroom != 4 {
		t.Errorf("GridConfig derivation wrong: %+v", gc)
	}
	sc := cfg.SimConfig()
	if sc.TickRate != 20 || sc.BroadcastRate != 10 || sc.Drones != 50 {
		t.Errorf("SimConfig derivation wrong: %+v", sc)
	}
}

func TestLoadConfigRejectsBadRates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	content := `
[sim]
tick_rate = 10
broadcast_rate = 60
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for broadcast_rate > tick_rate")
	}
}
