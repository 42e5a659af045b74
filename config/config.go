package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
)

// SimConfig holds parameters for the built-in game simulator.
type SimConfig struct {
	Players    int `json:"players"`
	Flips      int `json:"flips"`
	MaxDelayMS int `json:"max_delay_ms"`
}

// Config holds all configurable server parameters.
type Config struct {
	Port      int    `json:"port"`
	Host      string `json:"host"`
	BoardFile string `json:"board_file"`

	// WatchSendBuffer is the per-spectator send channel capacity on the
	// WebSocket feed; a slow client drops frames past this.
	WatchSendBuffer int `json:"watch_send_buffer"`

	// Sim configures the simulator run when the server starts with
	// SIMULATE=1.
	Sim SimConfig `json:"sim"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Port:            8080,
		Host:            "localhost",
		BoardFile:       "boards/perfect.txt",
		WatchSendBuffer: 16,
		Sim: SimConfig{
			Players:    4,
			Flips:      10,
			MaxDelayMS: 100,
		},
	}
}

// Load reads configuration from an optional config.json file, then
// applies environment variable overrides, then positional command-line
// arguments (PORT, then BOARD_FILE). Fields not set in any source
// retain their default values.
func Load(args []string) *Config {
	cfg := Defaults()

	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			log.Printf("Warning: failed to parse config.json: %v", err)
		}
	}

	overrideInt(&cfg.Port, "PORT")
	overrideString(&cfg.Host, "HOST")
	overrideString(&cfg.BoardFile, "BOARD_FILE")
	overrideInt(&cfg.WatchSendBuffer, "WATCH_SEND_BUFFER")
	overrideInt(&cfg.Sim.Players, "SIM_PLAYERS")
	overrideInt(&cfg.Sim.Flips, "SIM_FLIPS")
	overrideInt(&cfg.Sim.MaxDelayMS, "SIM_MAX_DELAY_MS")

	if len(args) >= 1 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			cfg.Port = n
		} else {
			log.Printf("Warning: invalid PORT argument: %q", args[0])
		}
	}
	if len(args) >= 2 {
		cfg.BoardFile = args[1]
	}

	return cfg
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
