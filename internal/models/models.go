package models

import (
	"fmt"
)

// StationPair identifies a timetable query by origin and destination.
type StationPair struct {
	Orig string `json:"orig"`
	Dest string `json:"dest"`
}

func (p StationPair) String() string {
	return p.Orig + "-" + p.Dest
}

// StationName holds the localized name pair the THSR API returns.
type StationName struct {
	En   string `json:"En"`
	ZhTw string `json:"Zh_tw"`
}

// Direction is the running direction of a train.
type Direction int

const (
	Southbound Direction = 0
	Northbound Direction = 1
)

// Name returns the English direction name.
func (d Direction) Name() string {
	if d == Northbound {
		return "North"
	}
	return "South"
}

// NameZhTw returns the Taiwanese Mandarin direction name.
func (d Direction) NameZhTw() string {
	if d == Northbound {
		return "北上"
	}
	return "南下"
}

// StopTime is one scheduled stop of a train, with times as "HH:MM" strings
// exactly as the API reports them.
type StopTime struct {
	Station   StationName `json:"station"`
	Arrival   string      `json:"arrival"`
	Departure string      `json:"departure"`
}

// Train is an immutable snapshot of one scheduled service on the queried
// day. A fresh list replaces the prior one on every refresh.
type Train struct {
	TrainNo     string    `json:"train_no"`
	Direction   Direction `json:"direction"`
	Origin      StopTime  `json:"origin"`
	Destination StopTime  `json:"destination"`
}

// Where selects the station role of an occasion.
type Where string

// When selects the event type of an occasion.
type When string

const (
	WhereOrig Where = "orig"
	WhereDest Where = "dest"

	WhenArrival   When = "arrival"
	WhenDeparture When = "departure"
)

// Occasion selects one of a train's four stop-time fields.
type Occasion struct {
	Where Where `json:"where"`
	When  When  `json:"when"`
}

// OccasionTime resolves the occasion against the train's stop times.
func (t *Train) OccasionTime(o Occasion) (string, error) {
	var stop StopTime
	switch o.Where {
	case WhereOrig:
		stop = t.Origin
	case WhereDest:
		stop = t.Destination
	default:
		return "", fmt.Errorf("unknown target where %q", o.Where)
	}

	switch o.When {
	case WhenArrival:
		return stop.Arrival, nil
	case WhenDeparture:
		return stop.Departure, nil
	default:
		return "", fmt.Errorf("unknown target when %q", o.When)
	}
}

// AlertInfo is one active service disruption. Alert lists are compared by
// full-value equality to detect changes between refreshes.
type AlertInfo struct {
	Status          string `json:"status"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Effects         string `json:"effects"`
	Direction       string `json:"direction"`
	AffectedSection string `json:"affected_section"`
}

// NotificationAction describes one speech notification: a pre-sound to play
// first, then a message to synthesize in the given language.
type NotificationAction struct {
	SoundBefore string `json:"sound_before,omitempty"`
	Message     string `json:"message"`
	Lang        string `json:"lang"`
}
