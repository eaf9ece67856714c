package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// RoomConfig tunes one room's gameplay. Values were fixed constants in the
// original prototype; they are configuration here so rooms of different modes
// can vary without code changes.
type RoomConfig struct {
	MaxPlayers         int     `json:"max_players"`
	DeckSize           int     `json:"deck_size"`
	InitialBoardSize   int     `json:"initial_board_size"`
	RoundSeconds       float64 `json:"round_seconds"`
	ClaimWindowSeconds float64 `json:"claim_window_seconds"`
	CooldownSeconds    float64 `json:"cooldown_seconds"`
	DeckLowThreshold   int     `json:"deck_low_threshold"`
	// TimerSyncTicks configures how many loop ticks pass between remaining-time
	// broadcasts to clients.
	TimerSyncTicks int `json:"timer_sync_ticks"`
}

// DefaultRoomConfig mirrors the original game's tuning.
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		MaxPlayers:         4,
		DeckSize:           80,
		InitialBoardSize:   4,
		RoundSeconds:       120,
		ClaimWindowSeconds: 4,
		CooldownSeconds:    7,
		DeckLowThreshold:   10,
		TimerSyncTicks:     5,
	}
}

var (
	cfg      *RoomConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadRoomConfig loads the room configuration from the given path once per
// process. Missing or partial fields keep their defaults.
func LoadRoomConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read room config: %w", err)
			return
		}

		c := DefaultRoomConfig()
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal room config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetRoomConfig returns the loaded configuration, or defaults when no config
// file was loaded.
func GetRoomConfig() RoomConfig {
	if cfg == nil {
		return DefaultRoomConfig()
	}
	return *cfg
}
