package timeutil

import (
	"errors"
	"testing"
	"time"
)

func TestToMinuteOfDay(t *testing.T) {
	tests := []struct {
		input       string
		want        int
		expectError bool
	}{
		{input: "00:00", want: 0},
		{input: "09:30", want: 570},
		{input: "10:00", want: 600},
		{input: "23:59", want: 1439},
		{input: "7:05", want: 425},
		{input: "12", expectError: true},
		{input: "12:30:15", expectError: true},
		{input: "ab:30", expectError: true},
		{input: "12:cd", expectError: true},
		{input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ToMinuteOfDay(tt.input)

			if tt.expectError {
				if err == nil {
					t.Fatalf("Expected error for %q, got %d", tt.input, got)
				}
				if !errors.Is(err, ErrMalformedTime) {
					t.Errorf("Expected ErrMalformedTime, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ToMinuteOfDay(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMinuteOfDay(t *testing.T) {
	at := time.Date(2024, 4, 15, 9, 40, 30, 0, time.Local)
	if got := MinuteOfDay(at); got != 580 {
		t.Errorf("Expected 580, got %d", got)
	}
}

func TestFixedWidthParts(t *testing.T) {
	tests := []struct {
		minute     int
		hourPart   string
		minutePart string
	}{
		{minute: 0, hourPart: "00", minutePart: "00"},
		{minute: 425, hourPart: "07", minutePart: "05"},
		{minute: 600, hourPart: "10", minutePart: "00"},
		{minute: 1439, hourPart: "23", minutePart: "59"},
	}

	for _, tt := range tests {
		if got := HourPart(tt.minute); got != tt.hourPart {
			t.Errorf("HourPart(%d) = %q, want %q", tt.minute, got, tt.hourPart)
		}
		if got := MinutePart(tt.minute); got != tt.minutePart {
			t.Errorf("MinutePart(%d) = %q, want %q", tt.minute, got, tt.minutePart)
		}
	}
}

func TestIsActiveWeekday(t *testing.T) {
	monday := time.Date(2024, 4, 15, 9, 0, 0, 0, time.Local)
	tuesday := time.Date(2024, 4, 16, 9, 0, 0, 0, time.Local)

	tests := []struct {
		name   string
		at     time.Time
		active []string
		want   bool
	}{
		{name: "full name match", at: monday, active: []string{"Monday"}, want: true},
		{name: "abbreviation match", at: monday, active: []string{"Mon", "Wed", "Fri"}, want: true},
		{name: "no match", at: tuesday, active: []string{"Mon", "Wed", "Fri"}, want: false},
		{name: "empty set", at: monday, active: nil, want: false},
		{name: "mixed styles", at: tuesday, active: []string{"Monday", "Tue"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsActiveWeekday(tt.at, tt.active); got != tt.want {
				t.Errorf("IsActiveWeekday = %v, want %v", got, tt.want)
			}
		})
	}
}
