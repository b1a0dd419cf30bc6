package geniushub

import (
	"fmt"
	"sort"
)

// endOfDay is the period end used when a heating period runs out the day.
const endOfDay = 86400

// dayStartSentinel marks the first event of a timer day; it carries no
// heating period of its own.
const dayStartSentinel = -1

// buildTimerSchedule reconstructs a zone's weekly timer programme from
// the flat v3 event list. baseSetpoint seeds each day's default; for
// on/off timer zones every setpoint is booleanized.
func buildTimerSchedule(events []rawScheduleEvent, baseSetpoint float64, onOff bool) (map[string]DaySchedule, error) {
	mk := TempSetpoint
	if onOff {
		mk = func(v float64) Setpoint { return OnOffSetpoint(v != 0) }
	}
	return buildSchedule(events, mk(baseSetpoint), mk, func(tm int) bool {
		return tm == dayStartSentinel
	})
}

// buildFootprintSchedule reconstructs the footprint (away/reactive)
// programme. The default setpoint is the footprint's away setpoint, not
// the zone's base setpoint, and a day's period chain is closed by the
// canonical night start rather than a -1 sentinel.
func buildFootprintSchedule(events []rawScheduleEvent, awaySetpoint float64, nightStart int) (map[string]DaySchedule, error) {
	return buildSchedule(events, TempSetpoint(awaySetpoint), TempSetpoint, func(tm int) bool {
		return tm == dayStartSentinel || tm == nightStart
	})
}

// buildSchedule turns the flat, per-day setpoint change events into a
// weekday-name keyed mapping of default setpoint plus ordered heating
// periods.
//
// The hub sends events grouped by ascending weekday then time of day, but
// never promises it; events are stable-sorted here rather than trusting
// the ordering. A period opens at each event whose setpoint differs from
// the day default and closes at the next event's time, or at end of day
// when there is no same-day successor or the successor is a sentinel.
// Contiguous periods at an identical setpoint are merged. A result
// covering fewer than 7 weekdays is returned along with an error; callers
// must treat it as a data error.
func buildSchedule(events []rawScheduleEvent, defaultSP Setpoint, mk func(float64) Setpoint, endsDay func(tm int) bool) (map[string]DaySchedule, error) {
	sorted := make([]rawScheduleEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Day != sorted[j].Day {
			return sorted[i].Day < sorted[j].Day
		}
		return sorted[i].Time < sorted[j].Time
	})

	days := make(map[string]DaySchedule, 7)
	lastDay := -1
	var dayName string
	for i, ev := range sorted {
		if ev.Day < 0 || ev.Day > 6 {
			return days, fmt.Errorf("event %d has weekday %d out of range", i, ev.Day)
		}
		if ev.Day > lastDay {
			lastDay = ev.Day
			dayName = weekdayNames[ev.Day]
			days[dayName] = DaySchedule{
				DefaultSetpoint: defaultSP,
				HeatingPeriods:  []HeatingPeriod{},
			}
		}
		if ev.Time == dayStartSentinel {
			continue
		}
		sp := mk(ev.Setpoint)
		if sp == defaultSP {
			continue
		}

		end := endOfDay
		if i+1 < len(sorted) {
			next := sorted[i+1]
			if next.Day == ev.Day && !endsDay(next.Time) {
				end = next.Time
			}
		}

		day := days[dayName]
		if n := len(day.HeatingPeriods); n > 0 &&
			day.HeatingPeriods[n-1].End == ev.Time &&
			day.HeatingPeriods[n-1].Setpoint == sp {
			day.HeatingPeriods[n-1].End = end
		} else {
			day.HeatingPeriods = append(day.HeatingPeriods, HeatingPeriod{
				Start:    ev.Time,
				End:      end,
				Setpoint: sp,
			})
		}
		days[dayName] = day
	}

	if len(days) != 7 {
		return days, fmt.Errorf("schedule covers %d of 7 weekdays", len(days))
	}
	return days, nil
}
