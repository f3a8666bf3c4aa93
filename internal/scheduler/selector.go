package scheduler

import (
	"sort"

	"github.com/ytlin/thsr-reminder/internal/models"
	"github.com/ytlin/thsr-reminder/internal/timeutil"
)

// selectLatest picks the latest train whose occasion time is at or before
// refMinute: the train a commuter would actually be catching. Trains are
// ranked ascending by the occasion's minute-of-day, stable so ties keep the
// timetable's order. Returns a nil train when refMinute precedes every
// occasion time.
func selectLatest(trains []models.Train, occ models.Occasion, refMinute int) (*models.Train, int, error) {
	type entry struct {
		train  models.Train
		minute int
	}

	entries := make([]entry, 0, len(trains))
	for i := range trains {
		s, err := trains[i].OccasionTime(occ)
		if err != nil {
			return nil, 0, err
		}
		minute, err := timeutil.ToMinuteOfDay(s)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry{train: trains[i], minute: minute})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].minute < entries[j].minute
	})

	// Rightmost entry with minute <= refMinute.
	idx := sort.Search(len(entries), func(i int) bool {
		return entries[i].minute > refMinute
	})
	if idx == 0 {
		return nil, 0, nil
	}

	target := entries[idx-1]
	return &target.train, target.minute, nil
}
