package main

import (
	"errors"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the optional engine configuration, read from a TOML file.
type Config struct {
	// Port names the MIDI output to open; empty means the first
	// available one.
	Port string `toml:"port"`

	// TicksPerBeat sets the startup timebase.
	TicksPerBeat int `toml:"ticks_per_beat"`

	// Monitor starts the interactive transport view instead of the
	// stdin command protocol.
	Monitor bool `toml:"monitor"`
}

// defaultConfigPath is tried when no --config flag is given.
const defaultConfigPath = "epichord.toml"

// loadConfig reads path if it exists; a missing file yields defaults.
func loadConfig(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
