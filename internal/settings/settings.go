// Package settings loads and validates the user's reminder schedule.
//
// The settings file is re-read on every tick; the scheduler compares the
// loaded value against its previous snapshot to detect edits, so Settings
// must stay a plain comparable-by-value structure.
package settings

import (
	"fmt"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/ytlin/thsr-reminder/internal/models"
	"github.com/ytlin/thsr-reminder/internal/timeutil"
)

// Voice is the spoken part of a reminder.
type Voice struct {
	Message string `yaml:"message" json:"message"`
	Lang    string `yaml:"lang" json:"lang"`
}

// Reminder fires inside the window [target-BeforeMin, target-LastBeforeMin],
// inclusive, at most once per window.
type Reminder struct {
	BeforeMin     int    `yaml:"before_min" json:"before_min"`
	LastBeforeMin int    `yaml:"last_before_min" json:"last_before_min"`
	Repeat        int    `yaml:"repeat" json:"repeat"`
	SoundBefore   string `yaml:"sound_before" json:"sound_before,omitempty"`
	Voice         Voice  `yaml:"voice" json:"voice"`
}

// Target selects which of the tracked train's stop times the reference time
// and the reminder countdowns apply to.
type Target struct {
	Where string `yaml:"where" json:"where"`
	When  string `yaml:"when" json:"when"`
}

// Occasion converts the target into the model selector.
func (t Target) Occasion() models.Occasion {
	return models.Occasion{Where: models.Where(t.Where), When: models.When(t.When)}
}

// ScheduleItem is one tracked station pair. Items are identified by their
// index in the file and replaced wholesale when the file changes.
type ScheduleItem struct {
	Orig          string     `yaml:"orig" json:"orig"`
	Dest          string     `yaml:"dest" json:"dest"`
	Time          string     `yaml:"time" json:"time"`
	Target        Target     `yaml:"target" json:"target"`
	Enabled       bool       `yaml:"enabled" json:"enabled"`
	ActiveWeekday []string   `yaml:"active_weekday" json:"active_weekday"`
	Reminders     []Reminder `yaml:"reminders" json:"reminders"`
}

// Alert configures the aggregate service-alert notification.
type Alert struct {
	Sound string `yaml:"sound" json:"sound"`
}

// Settings is the full settings file.
type Settings struct {
	Schedule []ScheduleItem `yaml:"schedule" json:"schedule"`
	Alert    Alert          `yaml:"alert" json:"alert"`
}

// Load reads and validates the settings file. Any failure here is a
// settings authoring bug and is treated as fatal by the caller.
func Load(path string) (*Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}
	return &s, nil
}

func (s *Settings) validate() error {
	for i := range s.Schedule {
		item := &s.Schedule[i]

		if _, err := timeutil.ToMinuteOfDay(item.Time); err != nil {
			return fmt.Errorf("schedule item %d: %w", i, err)
		}
		if item.Target.Where != string(models.WhereOrig) && item.Target.Where != string(models.WhereDest) {
			return fmt.Errorf("schedule item %d: unknown target where %q", i, item.Target.Where)
		}
		if item.Target.When != string(models.WhenArrival) && item.Target.When != string(models.WhenDeparture) {
			return fmt.Errorf("schedule item %d: unknown target when %q", i, item.Target.When)
		}

		for j := range item.Reminders {
			rem := &item.Reminders[j]
			if rem.Repeat == 0 {
				rem.Repeat = 1
			}
			if rem.LastBeforeMin < 0 {
				return fmt.Errorf("schedule item %d reminder %d: negative last_before_min", i, j)
			}
			if rem.BeforeMin < rem.LastBeforeMin {
				return fmt.Errorf("schedule item %d reminder %d: before_min %d < last_before_min %d",
					i, j, rem.BeforeMin, rem.LastBeforeMin)
			}
		}
	}
	return nil
}

// Equal reports full structural equality; the scheduler clears all reminder
// state whenever two consecutive loads differ.
func (s *Settings) Equal(other *Settings) bool {
	if other == nil {
		return false
	}
	return reflect.DeepEqual(s, other)
}

// StationPairs returns the deduplicated station pairs referenced by the
// schedule, in first-appearance order.
func (s *Settings) StationPairs() []models.StationPair {
	seen := make(map[models.StationPair]bool)
	var pairs []models.StationPair

	for _, item := range s.Schedule {
		pair := models.StationPair{Orig: item.Orig, Dest: item.Dest}
		if !seen[pair] {
			seen[pair] = true
			pairs = append(pairs, pair)
		}
	}
	return pairs
}
