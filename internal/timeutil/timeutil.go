// Package timeutil converts wall-clock times and "HH:MM" strings into
// comparable minute-of-day integers.
//
// All arithmetic is plain subtraction on values in [0, 1439]; intervals
// that would span midnight are not wrapped, so a reminder window computed
// across midnight never matches.
package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedTime indicates a time string that is not "HH:MM".
var ErrMalformedTime = errors.New("malformed time")

// ToMinuteOfDay parses an "HH:MM" string into hour*60+minute.
func ToMinuteOfDay(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}

	return hour*60 + minute, nil
}

// MinuteOfDay returns t's minute-of-day in local time.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// HourPart formats the hour component of a minute-of-day value, zero-padded.
func HourPart(minute int) string {
	return fmt.Sprintf("%02d", minute/60)
}

// MinutePart formats the minute component of a minute-of-day value, zero-padded.
func MinutePart(minute int) string {
	return fmt.Sprintf("%02d", minute%60)
}

// IsActiveWeekday reports whether t's weekday appears in active, which may
// hold full English names ("Monday") or 3-letter abbreviations ("Mon").
func IsActiveWeekday(t time.Time, active []string) bool {
	full := t.Weekday().String()
	abbr := full[:3]

	for _, day := range active {
		if day == full || day == abbr {
			return true
		}
	}
	return false
}
