// Package cache holds the latest fetched timetables and service alerts.
package cache

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ytlin/thsr-reminder/internal/models"
	"github.com/ytlin/thsr-reminder/internal/thsr"
)

// ErrPairNotFound indicates a timetable lookup for a station pair that was
// never part of a refresh. The scheduler derives the pair set from the same
// settings it evaluates, so hitting this is a programming error.
var ErrPairNotFound = errors.New("station pair not registered")

// DefaultRefreshInterval is the minimum delay between non-forced refreshes.
const DefaultRefreshInterval = time.Hour

// Cache manages in-memory timetable and alert data for the station pairs
// referenced by the current settings.
type Cache struct {
	api             thsr.API
	refreshInterval time.Duration
	now             func() time.Time

	mu          sync.RWMutex
	timetables  map[models.StationPair][]models.Train
	alerts      []models.AlertInfo
	haveAlerts  bool
	newAlert    bool
	lastRefresh time.Time
}

// New creates a cache reading through the given API. A non-positive
// refreshInterval selects the default.
func New(api thsr.API, refreshInterval time.Duration) *Cache {
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}
	return &Cache{
		api:             api,
		refreshInterval: refreshInterval,
		now:             time.Now,
		timetables:      make(map[models.StationPair][]models.Train),
	}
}

// Refresh re-reads every pair's timetable for today plus the alert feed,
// unless the last successful refresh is recent enough and force is false.
// The replacement is all-or-nothing: any fetch failure leaves the prior
// contents untouched and is returned to the caller.
func (c *Cache) Refresh(pairs []models.StationPair, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !force && c.now().Sub(c.lastRefresh) <= c.refreshInterval {
		return nil
	}

	date := c.now()
	timetables := make(map[models.StationPair][]models.Train, len(pairs))
	for _, pair := range pairs {
		trains, err := c.api.ReadTimetable(pair.Orig, pair.Dest, date)
		if err != nil {
			return err
		}
		timetables[pair] = trains
	}

	alerts, err := c.api.ReadAlertInfo()
	if err != nil {
		return err
	}

	if c.haveAlerts && !slices.Equal(alerts, c.alerts) {
		c.newAlert = true
	}

	c.timetables = timetables
	c.alerts = alerts
	c.haveAlerts = true
	c.lastRefresh = c.now()
	return nil
}

// Timetable returns the cached trains for a pair, possibly empty.
func (c *Cache) Timetable(pair models.StationPair) ([]models.Train, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	trains, ok := c.timetables[pair]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPairNotFound, pair)
	}

	result := make([]models.Train, len(trains))
	copy(result, trains)
	return result, nil
}

// ConsumeNewAlertFlag returns whether the alert list changed on a refresh
// since the last call, and clears the flag.
func (c *Cache) ConsumeNewAlertFlag() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	flag := c.newAlert
	c.newAlert = false
	return flag
}

// Alerts returns the current alert snapshot.
func (c *Cache) Alerts() []models.AlertInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]models.AlertInfo, len(c.alerts))
	copy(result, c.alerts)
	return result
}

// LastRefresh returns the time of the last successful refresh.
func (c *Cache) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh
}
