package scheduler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ytlin/thsr-reminder/internal/models"
	"github.com/ytlin/thsr-reminder/internal/timeutil"
)

// TemplateError indicates a voice message template referencing a field that
// does not exist. Templates live in the settings file, so this is an
// authoring bug and is fatal.
type TemplateError struct {
	Field string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("unknown template field %q", e.Field)
}

// messageFields is the fixed set of values a reminder message may reference.
// All minute values are minute-of-day; countdowns are plain differences
// against the current minute and may go negative once the event has passed.
type messageFields struct {
	beforeMin int

	origArrival   int
	origDeparture int
	destArrival   int
	destDeparture int

	minToOrigArrival   int
	minToOrigDeparture int
	minToDestArrival   int
	minToDestDeparture int

	directionName     string
	directionNameZhTw string

	trainNumber string

	origStationName     string
	origStationNameZhTw string
	destStationName     string
	destStationNameZhTw string
}

// newMessageFields resolves all substitutable values for one target train.
func newMessageFields(train *models.Train, targetMinute, nowMinute int) (*messageFields, error) {
	origArr, err := timeutil.ToMinuteOfDay(train.Origin.Arrival)
	if err != nil {
		return nil, err
	}
	origDep, err := timeutil.ToMinuteOfDay(train.Origin.Departure)
	if err != nil {
		return nil, err
	}
	destArr, err := timeutil.ToMinuteOfDay(train.Destination.Arrival)
	if err != nil {
		return nil, err
	}
	destDep, err := timeutil.ToMinuteOfDay(train.Destination.Departure)
	if err != nil {
		return nil, err
	}

	return &messageFields{
		beforeMin: targetMinute - nowMinute,

		origArrival:   origArr,
		origDeparture: origDep,
		destArrival:   destArr,
		destDeparture: destDep,

		minToOrigArrival:   origArr - nowMinute,
		minToOrigDeparture: origDep - nowMinute,
		minToDestArrival:   destArr - nowMinute,
		minToDestDeparture: destDep - nowMinute,

		directionName:     train.Direction.Name(),
		directionNameZhTw: train.Direction.NameZhTw(),

		trainNumber: train.TrainNo,

		origStationName:     train.Origin.Station.En,
		origStationNameZhTw: train.Origin.Station.ZhTw,
		destStationName:     train.Destination.Station.En,
		destStationNameZhTw: train.Destination.Station.ZhTw,
	}, nil
}

func (f *messageFields) value(name string) (string, bool) {
	switch name {
	case "before_min":
		return strconv.Itoa(f.beforeMin), true
	case "orig_arrival_hour":
		return timeutil.HourPart(f.origArrival), true
	case "orig_arrival_min":
		return timeutil.MinutePart(f.origArrival), true
	case "orig_departure_hour":
		return timeutil.HourPart(f.origDeparture), true
	case "orig_departure_min":
		return timeutil.MinutePart(f.origDeparture), true
	case "dest_arrival_hour":
		return timeutil.HourPart(f.destArrival), true
	case "dest_arrival_min":
		return timeutil.MinutePart(f.destArrival), true
	case "dest_departure_hour":
		return timeutil.HourPart(f.destDeparture), true
	case "dest_departure_min":
		return timeutil.MinutePart(f.destDeparture), true
	case "min_to_orig_arrival":
		return strconv.Itoa(f.minToOrigArrival), true
	case "min_to_orig_departure":
		return strconv.Itoa(f.minToOrigDeparture), true
	case "min_to_dest_arrival":
		return strconv.Itoa(f.minToDestArrival), true
	case "min_to_dest_departure":
		return strconv.Itoa(f.minToDestDeparture), true
	case "direction_name":
		return f.directionName, true
	case "direction_name_tw":
		return f.directionNameZhTw, true
	case "train_number":
		return f.trainNumber, true
	case "orig_station_name":
		return f.origStationName, true
	case "orig_station_name_tw":
		return f.origStationNameZhTw, true
	case "dest_station_name":
		return f.destStationName, true
	case "dest_station_name_tw":
		return f.destStationNameZhTw, true
	}
	return "", false
}

// expandTemplate substitutes {field} placeholders. "{{" and "}}" escape
// literal braces. Unknown fields and unbalanced braces are errors.
func expandTemplate(tmpl string, fields *messageFields) (string, error) {
	var b strings.Builder

	for i := 0; i < len(tmpl); {
		switch tmpl[i] {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("unterminated placeholder in %q", tmpl)
			}
			name := tmpl[i+1 : i+1+end]
			v, ok := fields.value(name)
			if !ok {
				return "", &TemplateError{Field: name}
			}
			b.WriteString(v)
			i += end + 2
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i += 2
				continue
			}
			return "", fmt.Errorf("stray '}' in %q", tmpl)
		default:
			b.WriteByte(tmpl[i])
			i++
		}
	}
	return b.String(), nil
}
