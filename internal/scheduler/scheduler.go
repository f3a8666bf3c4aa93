// Package scheduler decides, on every polling tick, which reminders fire
// and which notifications to emit.
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/ytlin/thsr-reminder/internal/cache"
	"github.com/ytlin/thsr-reminder/internal/models"
	"github.com/ytlin/thsr-reminder/internal/settings"
	"github.com/ytlin/thsr-reminder/internal/thsr"
	"github.com/ytlin/thsr-reminder/internal/timeutil"
)

// MaxConsecutiveErrors bounds the soft-retry budget for data-source
// failures. One more consecutive failure becomes fatal.
const MaxConsecutiveErrors = 6

const alertLang = "zh-tw"

// reminderKey identifies a reminder by its position in the settings file.
type reminderKey struct {
	Item     int
	Reminder int
}

// Scheduler is the per-process scheduling context: the last settings
// snapshot, the fire-once-per-window bookkeeping, and the error counter.
// It is driven from a single goroutine; nothing here is safe for
// concurrent use.
type Scheduler struct {
	cache  *cache.Cache
	logger *slog.Logger
	now    func() time.Time

	last        *settings.Settings
	pairs       []models.StationPair
	remindState map[reminderKey]int
	errCount    int
	lastTargets []string
}

// New creates a scheduler evaluating against the given cache.
func New(c *cache.Cache, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cache:       c,
		logger:      logger,
		now:         time.Now,
		remindState: make(map[reminderKey]int),
	}
}

// ConsecutiveErrors returns the current count of consecutive data-source
// failures.
func (s *Scheduler) ConsecutiveErrors() int {
	return s.errCount
}

// Targets returns a description of the last tick's target trains.
func (s *Scheduler) Targets() []string {
	return slices.Clone(s.lastTargets)
}

// Tick runs one full evaluation pass and returns the notifications to
// dispatch, in schedule order, followed by at most one aggregate alert
// notification.
//
// A data-source failure on the rate-limited refresh is soft: the tick
// returns an empty list and the failure counts against the retry budget.
// Every other error, including a fetch failure on the forced refresh right
// after a settings change, is returned to the caller and is fatal.
func (s *Scheduler) Tick(cfg *settings.Settings) ([]models.NotificationAction, error) {
	now := s.now()

	if !cfg.Equal(s.last) {
		s.logger.Info("settings changed, resetting reminder state")
		s.last = cfg
		s.remindState = make(map[reminderKey]int)
		s.pairs = cfg.StationPairs()

		if err := s.cache.Refresh(s.pairs, true); err != nil {
			return nil, fmt.Errorf("forced refresh after settings change: %w", err)
		}
	}

	if err := s.cache.Refresh(s.pairs, false); err != nil {
		var fe *thsr.FetchError
		if errors.As(err, &fe) {
			s.errCount++
			if s.errCount <= MaxConsecutiveErrors {
				s.logger.Warn("timetable refresh failed, will retry",
					"error", err, "consecutive", s.errCount)
				return nil, nil
			}
		}
		return nil, err
	}
	s.errCount = 0

	actions, targets, err := s.evaluateSchedule(cfg, now)
	if err != nil {
		return nil, err
	}
	s.logTargets(targets)

	if s.cache.ConsumeNewAlertFlag() {
		actions = append(actions, s.alertAction(cfg))
	}
	return actions, nil
}

func (s *Scheduler) evaluateSchedule(cfg *settings.Settings, now time.Time) ([]models.NotificationAction, []string, error) {
	var actions []models.NotificationAction
	var targets []string
	nowMinute := timeutil.MinuteOfDay(now)

	for i, item := range cfg.Schedule {
		if !item.Enabled || !timeutil.IsActiveWeekday(now, item.ActiveWeekday) {
			continue
		}

		trains, err := s.cache.Timetable(models.StationPair{Orig: item.Orig, Dest: item.Dest})
		if err != nil {
			return nil, nil, err
		}

		refMinute, err := timeutil.ToMinuteOfDay(item.Time)
		if err != nil {
			return nil, nil, err
		}

		target, targetMinute, err := selectLatest(trains, item.Target.Occasion(), refMinute)
		if err != nil {
			return nil, nil, err
		}
		if target == nil {
			targets = append(targets, fmt.Sprintf("item %d: no train at or before %s", i, item.Time))
			continue
		}
		targets = append(targets, fmt.Sprintf("item %d: train %s (%s %s %s)",
			i, target.TrainNo, target.Direction.Name(), item.Target.Where, item.Target.When))

		fields, err := newMessageFields(target, targetMinute, nowMinute)
		if err != nil {
			return nil, nil, err
		}

		for j, rem := range item.Reminders {
			windowStart := targetMinute - rem.BeforeMin
			windowEnd := targetMinute - rem.LastBeforeMin
			if nowMinute < windowStart || nowMinute > windowEnd {
				continue
			}

			// Fire once per window: a recorded fire inside the current
			// window means this occurrence was already announced.
			key := reminderKey{Item: i, Reminder: j}
			if fired, ok := s.remindState[key]; ok && fired >= windowStart && fired <= windowEnd {
				continue
			}

			message, err := expandTemplate(rem.Voice.Message, fields)
			if err != nil {
				return nil, nil, err
			}

			s.remindState[key] = nowMinute
			action := models.NotificationAction{
				SoundBefore: rem.SoundBefore,
				Message:     message,
				Lang:        rem.Voice.Lang,
			}
			for n := 0; n < rem.Repeat; n++ {
				actions = append(actions, action)
			}
		}
	}

	return actions, targets, nil
}

// alertAction aggregates all current alerts into one spoken notification.
func (s *Scheduler) alertAction(cfg *settings.Settings) models.NotificationAction {
	var b strings.Builder
	for _, alert := range s.cache.Alerts() {
		b.WriteString(strings.Join([]string{
			"請注意高鐵有異常營運狀態",
			"狀態: " + alert.Status,
			"標題: " + alert.Title,
			"描述: " + alert.Description,
			"影響狀態: " + alert.Effects,
			"運行方向: " + alert.Direction,
			"運行區間: " + alert.AffectedSection,
		}, "。"))
	}

	return models.NotificationAction{
		SoundBefore: cfg.Alert.Sound,
		Message:     b.String(),
		Lang:        alertLang,
	}
}

// logTargets logs the target trains whenever the set changes.
func (s *Scheduler) logTargets(targets []string) {
	if slices.Equal(targets, s.lastTargets) {
		return
	}
	for _, target := range targets {
		s.logger.Info("train to remind", "target", target)
	}
	s.lastTargets = targets
}
