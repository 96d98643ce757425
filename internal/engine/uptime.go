// internal/engine/uptime.go - Daily availability reconstruction from liveness flips
package engine

import (
	"time"

	"stakewatch/internal/types"
)

const minutesPerDay = 24 * 60

// ReconstructDaily derives a per-calendar-day availability series from a
// validator's liveness transitions. Liveness is recorded only as flip
// events, so availability is obtained by integrating outage intervals over
// time and clipping each interval's contribution to UTC day bounds.
//
// events must be ordered by timestamp ascending and may include a transition
// from before windowStart (an outage already in progress when the window
// opens); only the in-window portion of any outage counts. An empty event
// list yields 100% for every day: absence of evidence of downtime, not
// evidence of absence. currentlyDown corroborates an outage left open at
// the window edge; an open outage is counted up to windowEnd either way so
// the result stays deterministic when the flag and the event log disagree.
func ReconstructDaily(events []types.LivenessEvent, windowStart, windowEnd time.Time, currentlyDown bool) []types.DailyAvailability {
	windowStart = windowStart.UTC()
	windowEnd = windowEnd.UTC()
	if !windowEnd.After(windowStart) {
		return nil
	}

	days := make([]types.DailyAvailability, 0, 8)
	for d := windowStart.Truncate(24 * time.Hour); d.Before(windowEnd); d = d.Add(24 * time.Hour) {
		days = append(days, types.DailyAvailability{Date: d})
	}

	var openStart time.Time
	open := false
	for _, ev := range events {
		switch ev.Kind {
		case types.LivenessWentDown:
			// A second WENT_DOWN without an intervening CAME_UP is a
			// protocol anomaly; keep the earliest start.
			if !open {
				openStart = ev.Timestamp.UTC()
				open = true
			}
		case types.LivenessCameUp:
			if open {
				addOutage(days, windowStart, windowEnd, openStart, ev.Timestamp.UTC())
				open = false
			}
		}
	}
	if open {
		// Ongoing downtime counted up to now.
		addOutage(days, windowStart, windowEnd, openStart, windowEnd)
	}

	for i := range days {
		pct := 100 - days[i].DelinquentMinutes/minutesPerDay*100
		if pct < 0 {
			pct = 0
		}
		days[i].AvailabilityPercent = pct
	}
	return days
}

// addOutage distributes the outage interval [start, end) across every day it
// overlaps, clipping to the query window and to each day's bounds.
func addOutage(days []types.DailyAvailability, windowStart, windowEnd, start, end time.Time) {
	if start.Before(windowStart) {
		start = windowStart
	}
	if end.After(windowEnd) {
		end = windowEnd
	}
	if !end.After(start) {
		return
	}
	for i := range days {
		dayStart := days[i].Date
		dayEnd := dayStart.Add(24 * time.Hour)
		s, e := start, end
		if s.Before(dayStart) {
			s = dayStart
		}
		if e.After(dayEnd) {
			e = dayEnd
		}
		if e.After(s) {
			days[i].DelinquentMinutes += e.Sub(s).Minutes()
		}
	}
}
