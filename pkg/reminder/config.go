package reminder

import (
	"time"

	"github.com/ytlin/thsr-reminder/internal/models"
)

// Config holds configuration for the reminder service.
type Config struct {
	// SettingsPath is the YAML schedule file, re-read on every tick.
	SettingsPath string

	// BaseURL overrides the THSR open-data endpoint root (tests).
	BaseURL string

	// TTSBaseURL overrides the speech synthesis endpoint (tests).
	TTSBaseURL string

	// PollInterval is the tick period.
	PollInterval time.Duration

	// RefreshInterval is the minimum delay between timetable refreshes.
	RefreshInterval time.Duration

	// PlayerCommand is the external audio player argv prefix.
	PlayerCommand []string
}

// DefaultConfig returns default configuration. The 10-second tick matches
// the one-minute granularity of reminder windows with room for clock skew;
// the one-hour refresh keeps the open-data API happy.
func DefaultConfig() Config {
	return Config{
		SettingsPath:    "settings.yml",
		PollInterval:    10 * time.Second,
		RefreshInterval: time.Hour,
	}
}

// Status is a snapshot of the running service for the HTTP surface.
type Status struct {
	LastTick          time.Time          `json:"last_tick"`
	LastRefresh       time.Time          `json:"last_refresh"`
	ConsecutiveErrors int                `json:"consecutive_errors"`
	Targets           []string           `json:"targets"`
	Alerts            []models.AlertInfo `json:"alerts"`
}
