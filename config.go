package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"gonum.org/v1/gonum/spatial/r3"
)

// Config is the full server configuration, loadable from a TOML file.
// Missing keys keep their defaults; a missing file is not an error.
type Config struct {
	Server ServerConfig `toml:"server"`
	World  WorldConfig  `toml:"world"`
	Sim    SimTuning    `toml:"sim"`
}

type ServerConfig struct {
	Addr      string `toml:"addr"`
	ClientDir string `toml:"client_dir"`
	DBPath    string `toml:"db_path"`
}

type WorldConfig struct {
	SizeX           float64 `toml:"size_x"`
	SizeY           float64 `toml:"size_y"`
	SizeZ           float64 `toml:"size_z"`
	CellSize        float64 `toml:"cell_size"`
	MaxObjects      int     `toml:"max_objects"`
	OverlapHeadroom int     `toml:"overlap_headroom"`
}

type SimTuning struct {
	TickRate      int `toml:"tick_rate"`
	BroadcastRate int `toml:"broadcast_rate"`
	Drones        int `toml:"drones"`
	Obstacles     int `toml:"obstacles"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:      ":8080",
			ClientDir: "../client",
			DBPath:    "swarmsim.db",
		},
		World: WorldConfig{
			SizeX:      1000,
			SizeY:      1000,
			SizeZ:      1000,
			CellSize:   50,
			MaxObjects: 4096,
		},
		Sim: SimTuning{
			TickRate:      30,
			BroadcastRate: 15,
			Drones:        200,
			Obstacles:     20,
		},
	}
}

// LoadConfig reads a TOML config file over the defaults. An empty path or a
// missing file returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Sim.TickRate <= 0 {
		return fmt.Errorf("sim.tick_rate must be positive, got %d", c.Sim.TickRate)
	}
	if c.Sim.BroadcastRate <= 0 || c.Sim.BroadcastRate > c.Sim.TickRate {
		return fmt.Errorf("sim.broadcast_rate must be in 1..tick_rate, got %d", c.Sim.BroadcastRate)
	}
	if c.Sim.Drones < 0 || c.Sim.Obstacles < 0 {
		return fmt.Errorf("sim.drones and sim.obstacles must be non-negative")
	}
	return nil
}

// GridConfig derives the spatial grid configuration
func (c Config) GridConfig() GridConfig {
	return GridConfig{
		WorldSize:       r3.Vec{X: c.World.SizeX, Y: c.World.SizeY, Z: c.World.SizeZ},
		CellSize:        c.World.CellSize,
		MaxObjects:      c.World.MaxObjects,
		OverlapHeadroom: c.World.OverlapHeadroom,
	}
}

// SimConfig derives the per-session simulation configuration
func (c Config) SimConfig() SimConfig {
	return SimConfig{
		Grid:          c.GridConfig(),
		TickRate:      c.Sim.TickRate,
		BroadcastRate: c.Sim.BroadcastRate,
		Drones:        c.Sim.Drones,
		Obstacles:     c.Sim.Obstacles,
	}
}
