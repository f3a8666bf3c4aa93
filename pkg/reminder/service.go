// Package reminder wires the settings loader, timetable cache, scheduler,
// and voice sink into the long-running reminder service.
package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ytlin/thsr-reminder/internal/cache"
	"github.com/ytlin/thsr-reminder/internal/models"
	"github.com/ytlin/thsr-reminder/internal/scheduler"
	"github.com/ytlin/thsr-reminder/internal/settings"
	"github.com/ytlin/thsr-reminder/internal/sound"
	"github.com/ytlin/thsr-reminder/internal/thsr"
	"github.com/ytlin/thsr-reminder/internal/voice"
)

// Sink consumes finished notification actions. Failure handling past
// dispatch is the sink's own; the service never retries an action.
type Sink interface {
	Speak(models.NotificationAction) error
	NotifyError()
}

// Service runs the serial polling loop: load settings, tick the scheduler,
// dispatch the resulting notifications.
type Service struct {
	cfg    Config
	cache  *cache.Cache
	sched  *scheduler.Scheduler
	sink   Sink
	player *sound.Player
	logger *slog.Logger

	mu       sync.RWMutex
	lastTick time.Time
	schedule []settings.ScheduleItem
}

// New creates a service against the real THSR API and audio player.
func New(cfg Config, logger *slog.Logger) *Service {
	player := sound.NewPlayer(cfg.PlayerCommand, logger)
	s := newService(cfg, thsr.NewClient(cfg.BaseURL), voice.NewSynthesizer(cfg.TTSBaseURL, player), logger)
	s.player = player
	return s
}

// newService is the test seam: any API and sink.
func newService(cfg Config, api thsr.API, sink Sink, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}

	c := cache.New(api, cfg.RefreshInterval)
	return &Service{
		cfg:    cfg,
		cache:  c,
		sched:  scheduler.New(c, logger),
		sink:   sink,
		logger: logger,
	}
}

// Close releases the audio player. Call after Run has returned.
func (s *Service) Close() {
	if s.player != nil {
		s.player.Close()
	}
}

// Run executes ticks until the context is cancelled or a fatal error
// occurs. Ticks never overlap: the next one starts only after the previous
// one, including dispatch, has finished. On a fatal error the sink is asked
// to announce it and the error is returned so a supervisor can restart the
// process.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := s.runOnce(); err != nil {
			s.logger.Error("tick failed", "error", err)
			s.sink.NotifyError()
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) runOnce() error {
	cfg, err := settings.Load(s.cfg.SettingsPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	actions, err := s.sched.Tick(cfg)
	s.lastTick = time.Now()
	s.schedule = cfg.Schedule
	s.mu.Unlock()
	if err != nil {
		return err
	}

	for _, action := range actions {
		if err := s.sink.Speak(action); err != nil {
			s.logger.Warn("speech dispatch failed", "error", err)
		}
	}
	return nil
}

// Status returns a snapshot of the service state.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		LastTick:          s.lastTick,
		LastRefresh:       s.cache.LastRefresh(),
		ConsecutiveErrors: s.sched.ConsecutiveErrors(),
		Targets:           s.sched.Targets(),
		Alerts:            s.cache.Alerts(),
	}
}

// Schedule returns the schedule items from the last loaded settings.
func (s *Service) Schedule() []settings.ScheduleItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]settings.ScheduleItem, len(s.schedule))
	copy(result, s.schedule)
	return result
}

// Alerts returns the current service alerts.
func (s *Service) Alerts() []models.AlertInfo {
	return s.cache.Alerts()
}
