package services

import (
	"fmt"
	"time"

	"github.com/tbourn/hoststand/internal/config"
	"github.com/tbourn/hoststand/internal/floor"
)

// Policy decides what seat-party and complete-service do with table numbers
// that do not resolve to an active table.
type Policy string

const (
	// PolicyStrict fails the whole operation.
	PolicyStrict Policy = "strict"
	// PolicyBestEffort skips the table, logs it, and flags the result partial.
	PolicyBestEffort Policy = "best-effort"
)

// FloorSettings are the restaurant rules the services apply.
type FloorSettings struct {
	// Capacity is the total seat count; 0 means the sum of active tables.
	Capacity        int
	Window          floor.Window
	Location        *time.Location
	Duration        floor.DurationPolicy
	Step            time.Duration
	SuggestionLimit int
	Policy          Policy
	NoShowGrace     time.Duration
	IdempotencyTTL  time.Duration
}

// DefaultSettings matches the configuration defaults.
func DefaultSettings() FloorSettings {
	return FloorSettings{
		Window:          floor.Window{Open: 17 * 60, Close: 22 * 60},
		Location:        time.Local,
		Duration:        floor.DurationPolicy{Fixed: 90 * time.Minute},
		Step:            30 * time.Minute,
		SuggestionLimit: 3,
		Policy:          PolicyStrict,
		NoShowGrace:     20 * time.Minute,
		IdempotencyTTL:  24 * time.Hour,
	}
}

// SettingsFromConfig converts validated configuration into FloorSettings.
func SettingsFromConfig(cfg config.Config) (FloorSettings, error) {
	f := cfg.Floor
	open, err := floor.ParseClock(f.OpenTime)
	if err != nil {
		return FloorSettings{}, fmt.Errorf("OPEN_TIME: %w", err)
	}
	closing, err := floor.ParseClock(f.CloseTime)
	if err != nil {
		return FloorSettings{}, fmt.Errorf("CLOSE_TIME: %w", err)
	}
	return FloorSettings{
		Capacity: f.Capacity,
		Window:   floor.Window{Open: open, Close: closing},
		Location: f.Location(),
		Duration: floor.DurationPolicy{
			Fixed:       f.DiningDuration,
			ByPartySize: f.DurationMode == "party",
		},
		Step:            f.SlotStep,
		SuggestionLimit: f.SuggestionLimit,
		Policy:          Policy(f.SeatingPolicy),
		NoShowGrace:     f.NoShowGrace,
		IdempotencyTTL:  cfg.IdempotencyTTL,
	}, nil
}
