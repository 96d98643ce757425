package engine

import (
	"testing"
	"time"

	"stakewatch/internal/types"
)

func liveness(kind types.LivenessKind, at time.Time) types.LivenessEvent {
	return types.LivenessEvent{ID: "ev", VoteAccount: "vote1", Kind: kind, Timestamp: at}
}

func day(d int) time.Time {
	return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC)
}

func TestReconstructDailyNoEvents(t *testing.T) {
	days := ReconstructDaily(nil, day(1), day(4), false)
	if len(days) != 3 {
		t.Fatalf("got %d days, want 3", len(days))
	}
	for _, d := range days {
		if d.AvailabilityPercent != 100 || d.DelinquentMinutes != 0 {
			t.Fatalf("day %v: availability %v, delinquent %v, want 100/0",
				d.Date, d.AvailabilityPercent, d.DelinquentMinutes)
		}
	}
}

func TestReconstructDailyOutageSpansMidnight(t *testing.T) {
	// Down 18:00 day 1, back 06:00 day 2: 360 minutes on each day.
	events := []types.LivenessEvent{
		liveness(types.LivenessWentDown, day(1).Add(18*time.Hour)),
		liveness(types.LivenessCameUp, day(2).Add(6*time.Hour)),
	}
	days := ReconstructDaily(events, day(1), day(3), false)
	if len(days) != 2 {
		t.Fatalf("got %d days, want 2", len(days))
	}
	for i := 0; i < 2; i++ {
		if days[i].DelinquentMinutes != 360 {
			t.Fatalf("day %d: %v delinquent minutes, want 360", i+1, days[i].DelinquentMinutes)
		}
		if days[i].AvailabilityPercent != 75 {
			t.Fatalf("day %d: %v%% availability, want 75", i+1, days[i].AvailabilityPercent)
		}
	}
}

func TestReconstructDailySameDayOutage(t *testing.T) {
	events := []types.LivenessEvent{
		liveness(types.LivenessWentDown, day(1).Add(10*time.Hour)),
		liveness(types.LivenessCameUp, day(1).Add(12*time.Hour)),
	}
	days := ReconstructDaily(events, day(1), day(2), false)
	if len(days) != 1 {
		t.Fatalf("got %d days, want 1", len(days))
	}
	if days[0].DelinquentMinutes != 120 {
		t.Fatalf("delinquent minutes = %v, want 120", days[0].DelinquentMinutes)
	}
}

func TestReconstructDailyOutageOpenBeforeWindow(t *testing.T) {
	// Went down before the window and came back 12:00 on day 1: only the
	// in-window half of the outage counts.
	events := []types.LivenessEvent{
		liveness(types.LivenessWentDown, day(1).Add(-6*time.Hour)),
		liveness(types.LivenessCameUp, day(1).Add(12*time.Hour)),
	}
	days := ReconstructDaily(events, day(1), day(2), false)
	if days[0].DelinquentMinutes != 720 {
		t.Fatalf("delinquent minutes = %v, want 720", days[0].DelinquentMinutes)
	}
	if days[0].AvailabilityPercent != 50 {
		t.Fatalf("availability = %v, want 50", days[0].AvailabilityPercent)
	}
}

func TestReconstructDailyOutageStillOpen(t *testing.T) {
	// No CAME_UP: downtime runs to the end of the window regardless of the
	// current flag.
	events := []types.LivenessEvent{
		liveness(types.LivenessWentDown, day(1).Add(12*time.Hour)),
	}
	for _, currentlyDown := range []bool{true, false} {
		days := ReconstructDaily(events, day(1), day(3), currentlyDown)
		if days[0].DelinquentMinutes != 720 {
			t.Fatalf("day 1: %v minutes, want 720", days[0].DelinquentMinutes)
		}
		if days[1].DelinquentMinutes != 1440 {
			t.Fatalf("day 2: %v minutes, want 1440", days[1].DelinquentMinutes)
		}
		if days[1].AvailabilityPercent != 0 {
			t.Fatalf("day 2: %v%%, want 0", days[1].AvailabilityPercent)
		}
	}
}

func TestReconstructDailyNearInstantFlip(t *testing.T) {
	// Down for one second: a sliver of downtime, availability just under 100.
	at := day(1).Add(12 * time.Hour)
	events := []types.LivenessEvent{
		liveness(types.LivenessWentDown, at),
		liveness(types.LivenessCameUp, at.Add(time.Second)),
	}
	days := ReconstructDaily(events, day(1), day(2), false)
	if days[0].DelinquentMinutes <= 0 || days[0].DelinquentMinutes >= 1 {
		t.Fatalf("delinquent minutes = %v, want a fraction of a minute", days[0].DelinquentMinutes)
	}
	if days[0].AvailabilityPercent >= 100 {
		t.Fatalf("availability = %v, want under 100", days[0].AvailabilityPercent)
	}
}

func TestReconstructDailyDoubleWentDownKeepsEarliest(t *testing.T) {
	events := []types.LivenessEvent{
		liveness(types.LivenessWentDown, day(1).Add(10*time.Hour)),
		liveness(types.LivenessWentDown, day(1).Add(11*time.Hour)),
		liveness(types.LivenessCameUp, day(1).Add(12*time.Hour)),
	}
	days := ReconstructDaily(events, day(1), day(2), false)
	if days[0].DelinquentMinutes != 120 {
		t.Fatalf("delinquent minutes = %v, want 120 from the earliest start", days[0].DelinquentMinutes)
	}
}

func TestReconstructDailyEmptyWindow(t *testing.T) {
	if days := ReconstructDaily(nil, day(2), day(2), false); days != nil {
		t.Fatalf("empty window produced %d days", len(days))
	}
	if days := ReconstructDaily(nil, day(2), day(1), false); days != nil {
		t.Fatalf("inverted window produced %d days", len(days))
	}
}
