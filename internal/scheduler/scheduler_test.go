package scheduler

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ytlin/thsr-reminder/internal/cache"
	"github.com/ytlin/thsr-reminder/internal/models"
	"github.com/ytlin/thsr-reminder/internal/settings"
	"github.com/ytlin/thsr-reminder/internal/thsr"
)

// fakeAPI scripts the data source; fields may be swapped between ticks.
type fakeAPI struct {
	trains []models.Train
	alerts []models.AlertInfo
	err    error
}

func (f *fakeAPI) ReadTimetable(orig, dest string, date time.Time) ([]models.Train, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.trains, nil
}

func (f *fakeAPI) ReadAlertInfo() ([]models.AlertInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.alerts, nil
}

func fetchFailure() error {
	return &thsr.FetchError{URL: "test", Err: errors.New("connection refused")}
}

// at returns a Monday at the given wall-clock time.
func at(hour, minute int) time.Time {
	return time.Date(2024, 4, 15, hour, minute, 0, 0, time.Local)
}

func testSettings() *settings.Settings {
	return &settings.Settings{
		Schedule: []settings.ScheduleItem{{
			Orig:          "Taipei",
			Dest:          "Zuoying",
			Time:          "10:30",
			Target:        settings.Target{Where: "dest", When: "arrival"},
			Enabled:       true,
			ActiveWeekday: []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
			Reminders: []settings.Reminder{{
				BeforeMin:     30,
				LastBeforeMin: 10,
				Repeat:        2,
				SoundBefore:   "sound/doorbell.mp3",
				Voice: settings.Voice{
					Message: "Train {train_number} in {before_min} minutes",
					Lang:    "en",
				},
			}},
		}},
		Alert: settings.Alert{Sound: "sound/alert.mp3"},
	}
}

// newTestScheduler wires a scheduler against the fake API. The tiny cache
// interval makes every non-forced refresh hit the API again, so swapped
// fake data is visible on the next tick.
func newTestScheduler(api *fakeAPI, now *time.Time) *Scheduler {
	c := cache.New(api, time.Nanosecond)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(c, logger)
	s.now = func() time.Time { return *now }
	return s
}

func mustTick(t *testing.T, s *Scheduler, cfg *settings.Settings) []models.NotificationAction {
	t.Helper()

	actions, err := s.Tick(cfg)
	if err != nil {
		t.Fatalf("Unexpected tick error: %v", err)
	}
	return actions
}

func TestTickFiresOncePerWindow(t *testing.T) {
	api := &fakeAPI{trains: []models.Train{trainArrivingAt("0818", "10:00")}}
	now := at(9, 40)
	s := newTestScheduler(api, &now)
	cfg := testSettings()

	// Window is [09:30, 09:50]; 09:40 fires with repeat 2.
	actions := mustTick(t, s, cfg)
	if len(actions) != 2 {
		t.Fatalf("Expected 2 actions, got %d", len(actions))
	}
	want := models.NotificationAction{
		SoundBefore: "sound/doorbell.mp3",
		Message:     "Train 0818 in 20 minutes",
		Lang:        "en",
	}
	for i, action := range actions {
		if action != want {
			t.Errorf("Action %d = %+v, want %+v", i, action, want)
		}
	}

	// Same window, later tick: already fired.
	now = at(9, 45)
	if actions := mustTick(t, s, cfg); len(actions) != 0 {
		t.Errorf("Expected no actions on second tick in window, got %d", len(actions))
	}

	// Past the window: nothing.
	now = at(9, 51)
	if actions := mustTick(t, s, cfg); len(actions) != 0 {
		t.Errorf("Expected no actions after window, got %d", len(actions))
	}
}

func TestTickBeforeWindow(t *testing.T) {
	api := &fakeAPI{trains: []models.Train{trainArrivingAt("0818", "10:00")}}
	now := at(9, 20)
	s := newTestScheduler(api, &now)

	if actions := mustTick(t, s, testSettings()); len(actions) != 0 {
		t.Errorf("Expected no actions before window, got %d", len(actions))
	}
}

func TestTickSettingsChangeResetsReminderState(t *testing.T) {
	api := &fakeAPI{trains: []models.Train{trainArrivingAt("0818", "10:00")}}
	now := at(9, 40)
	s := newTestScheduler(api, &now)

	original := testSettings()
	if actions := mustTick(t, s, original); len(actions) != 2 {
		t.Fatalf("Expected initial fire, got %d actions", len(actions))
	}

	// An edited file clears the fired state even inside the same window.
	edited := testSettings()
	edited.Schedule[0].Reminders[0].SoundBefore = "sound/chime.mp3"
	now = at(9, 42)
	if actions := mustTick(t, s, edited); len(actions) != 2 {
		t.Errorf("Expected re-fire after settings change, got %d actions", len(actions))
	}

	// Reverting to the original content is itself a change and re-fires.
	now = at(9, 45)
	if actions := mustTick(t, s, testSettings()); len(actions) != 2 {
		t.Errorf("Expected re-fire after revert, got %d actions", len(actions))
	}
}

func TestTickSkipsDisabledItems(t *testing.T) {
	api := &fakeAPI{trains: []models.Train{trainArrivingAt("0818", "10:00")}}
	now := at(9, 40)
	s := newTestScheduler(api, &now)

	cfg := testSettings()
	cfg.Schedule[0].Enabled = false
	if actions := mustTick(t, s, cfg); len(actions) != 0 {
		t.Errorf("Expected no actions for disabled item, got %d", len(actions))
	}
}

func TestTickSkipsInactiveWeekday(t *testing.T) {
	api := &fakeAPI{trains: []models.Train{trainArrivingAt("0818", "10:00")}}
	now := at(9, 40)
	s := newTestScheduler(api, &now)

	cfg := testSettings()
	cfg.Schedule[0].ActiveWeekday = []string{"Sat", "Sun"}
	if actions := mustTick(t, s, cfg); len(actions) != 0 {
		t.Errorf("Expected no actions on inactive weekday, got %d", len(actions))
	}
}

func TestTickNoQualifyingTrain(t *testing.T) {
	api := &fakeAPI{trains: []models.Train{trainArrivingAt("0818", "10:00")}}
	now := at(9, 40)
	s := newTestScheduler(api, &now)

	cfg := testSettings()
	cfg.Schedule[0].Time = "08:00"
	if actions := mustTick(t, s, cfg); len(actions) != 0 {
		t.Errorf("Expected no actions without a qualifying train, got %d", len(actions))
	}

	// The item still shows up in the target log set.
	targets := s.Targets()
	if len(targets) != 1 || !strings.Contains(targets[0], "no train") {
		t.Errorf("Expected a no-train target entry, got %v", targets)
	}
}

func TestTickRecomputesWindowForNewTarget(t *testing.T) {
	api := &fakeAPI{trains: []models.Train{trainArrivingAt("0818", "10:00")}}
	now := at(9, 40)
	s := newTestScheduler(api, &now)

	cfg := testSettings()
	cfg.Schedule[0].Time = "11:30"

	if actions := mustTick(t, s, cfg); len(actions) != 2 {
		t.Fatalf("Expected fire for the 10:00 target, got %d actions", len(actions))
	}

	// A later refresh tracks a later train; the window moves with it and
	// the reminder becomes eligible again.
	api.trains = []models.Train{trainArrivingAt("0822", "11:00")}
	now = at(10, 35)
	actions := mustTick(t, s, cfg)
	if len(actions) != 2 {
		t.Fatalf("Expected re-fire for the new target, got %d actions", len(actions))
	}
	if actions[0].Message != "Train 0822 in 25 minutes" {
		t.Errorf("Unexpected message: %q", actions[0].Message)
	}
}

func TestTickAlertChange(t *testing.T) {
	api := &fakeAPI{trains: []models.Train{trainArrivingAt("0818", "10:00")}}
	now := at(9, 40)
	s := newTestScheduler(api, &now)
	cfg := testSettings()

	// Baseline snapshot plus the reminder fire.
	if actions := mustTick(t, s, cfg); len(actions) != 2 {
		t.Fatalf("Expected 2 reminder actions, got %d", len(actions))
	}

	// Alert content changes: exactly one aggregate action on the next tick.
	api.alerts = []models.AlertInfo{{
		Status:          "部分營運",
		Title:           "颱風影響",
		Description:     "部分區間減班",
		Effects:         "誤點",
		Direction:       "雙向",
		AffectedSection: "台中-左營",
	}}
	now = at(9, 41)
	actions := mustTick(t, s, cfg)
	if len(actions) != 1 {
		t.Fatalf("Expected 1 alert action, got %d", len(actions))
	}

	alert := actions[0]
	if alert.Lang != "zh-tw" {
		t.Errorf("Expected zh-tw, got %s", alert.Lang)
	}
	if alert.SoundBefore != "sound/alert.mp3" {
		t.Errorf("Unexpected alert sound: %s", alert.SoundBefore)
	}
	wantMessage := "請注意高鐵有異常營運狀態。狀態: 部分營運。標題: 颱風影響。" +
		"描述: 部分區間減班。影響狀態: 誤點。運行方向: 雙向。運行區間: 台中-左營"
	if alert.Message != wantMessage {
		t.Errorf("Alert message = %q, want %q", alert.Message, wantMessage)
	}

	// No repeat on the following tick.
	now = at(9, 42)
	if actions := mustTick(t, s, cfg); len(actions) != 0 {
		t.Errorf("Expected no actions after alert was announced, got %d", len(actions))
	}
}

func TestTickAlertActionOrderedAfterReminders(t *testing.T) {
	api := &fakeAPI{trains: []models.Train{trainArrivingAt("0818", "10:00")}}

	// Baseline outside the firing window.
	now := at(9, 20)
	s := newTestScheduler(api, &now)
	cfg := testSettings()
	mustTick(t, s, cfg)

	api.alerts = []models.AlertInfo{{Status: "停駛", Title: "地震影響"}}
	now = at(9, 40)
	actions := mustTick(t, s, cfg)
	if len(actions) != 3 {
		t.Fatalf("Expected 2 reminders + 1 alert, got %d", len(actions))
	}
	if actions[0].Lang != "en" || actions[1].Lang != "en" {
		t.Error("Expected reminder actions first")
	}
	if actions[2].Lang != "zh-tw" {
		t.Error("Expected the alert action last")
	}
}

func TestTickSoftFailsThenEscalates(t *testing.T) {
	api := &fakeAPI{trains: []models.Train{trainArrivingAt("0818", "10:00")}}
	now := at(9, 20)
	s := newTestScheduler(api, &now)
	cfg := testSettings()

	mustTick(t, s, cfg)

	// Six consecutive failures are soft: empty list, counter climbing.
	api.err = fetchFailure()
	for i := 1; i <= MaxConsecutiveErrors; i++ {
		now = now.Add(10 * time.Second)
		actions, err := s.Tick(cfg)
		if err != nil {
			t.Fatalf("Expected soft failure %d, got error: %v", i, err)
		}
		if len(actions) != 0 {
			t.Fatalf("Expected empty action list on failure %d, got %d", i, len(actions))
		}
		if s.ConsecutiveErrors() != i {
			t.Fatalf("Expected error count %d, got %d", i, s.ConsecutiveErrors())
		}
	}

	// The seventh consecutive failure propagates.
	now = now.Add(10 * time.Second)
	if _, err := s.Tick(cfg); err == nil {
		t.Fatal("Expected fatal error on seventh consecutive failure")
	}
}

func TestTickSuccessResetsErrorCounter(t *testing.T) {
	api := &fakeAPI{trains: []models.Train{trainArrivingAt("0818", "10:00")}}
	now := at(9, 20)
	s := newTestScheduler(api, &now)
	cfg := testSettings()

	mustTick(t, s, cfg)

	api.err = fetchFailure()
	now = now.Add(10 * time.Second)
	mustTick(t, s, cfg)
	now = now.Add(10 * time.Second)
	mustTick(t, s, cfg)
	if s.ConsecutiveErrors() != 2 {
		t.Fatalf("Expected error count 2, got %d", s.ConsecutiveErrors())
	}

	api.err = nil
	now = now.Add(10 * time.Second)
	mustTick(t, s, cfg)
	if s.ConsecutiveErrors() != 0 {
		t.Errorf("Expected error count reset, got %d", s.ConsecutiveErrors())
	}
}

func TestTickForcedRefreshFailureIsFatal(t *testing.T) {
	api := &fakeAPI{err: fetchFailure()}
	now := at(9, 20)
	s := newTestScheduler(api, &now)

	// The very first tick force-refreshes for the new settings; its failure
	// does not consume the soft-retry budget.
	if _, err := s.Tick(testSettings()); err == nil {
		t.Fatal("Expected fatal error from forced refresh")
	}
	if s.ConsecutiveErrors() != 0 {
		t.Errorf("Expected error counter untouched, got %d", s.ConsecutiveErrors())
	}
}

func TestTickTemplateErrorIsFatal(t *testing.T) {
	api := &fakeAPI{trains: []models.Train{trainArrivingAt("0818", "10:00")}}
	now := at(9, 40)
	s := newTestScheduler(api, &now)

	cfg := testSettings()
	cfg.Schedule[0].Reminders[0].Voice.Message = "Train {unknown_field}"

	_, err := s.Tick(cfg)
	if err == nil {
		t.Fatal("Expected error, got none")
	}

	var te *TemplateError
	if !errors.As(err, &te) {
		t.Errorf("Expected *TemplateError, got %T: %v", err, err)
	}
}
