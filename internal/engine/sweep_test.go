package engine

import (
	"testing"
	"time"

	"stakewatch/internal/types"
)

var sweepAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func observation(voteAccount string, epoch uint64, commission, mev int, mevDisabled, delinquent bool) types.Observation {
	return types.Observation{
		VoteAccount:   voteAccount,
		Epoch:         epoch,
		ObservedAt:    sweepAt,
		Commission:    commission,
		MEVCommission: mev,
		MEVDisabled:   mevDisabled,
		Delinquent:    delinquent,
	}
}

// priorFrom rebuilds the prefetched state a store would serve after the
// result's write set landed.
func priorFrom(existing map[string]PriorState, res SweepResult) map[string]PriorState {
	prior := make(map[string]PriorState, len(existing))
	for k, v := range existing {
		prior[k] = v
	}
	for _, v := range res.Validators {
		p := prior[v.VoteAccount]
		p.Known = true
		p.Delinquent = v.Delinquent
		prior[v.VoteAccount] = p
	}
	for i := range res.Snapshots {
		snap := res.Snapshots[i]
		p := prior[snap.VoteAccount]
		switch snap.Kind {
		case types.KindCommission:
			p.Commission = &snap
		case types.KindMEV:
			p.MEV = &snap
		}
		prior[snap.VoteAccount] = p
	}
	for _, t := range res.Transitions {
		p := prior[t.Event.VoteAccount]
		p.Delinquent = t.Delinquent
		prior[t.Event.VoteAccount] = p
	}
	return prior
}

func TestRunSweepFirstObservation(t *testing.T) {
	obs := []types.Observation{observation("vote1", 800, 5, 10, false, false)}
	res := RunSweep(obs, map[string]PriorState{}, SweepOptions{})

	if len(res.Validators) != 1 {
		t.Fatalf("got %d validator rows, want 1", len(res.Validators))
	}
	if res.Validators[0].FirstSeenAt != sweepAt {
		t.Fatalf("FirstSeenAt = %v, want %v", res.Validators[0].FirstSeenAt, sweepAt)
	}
	if len(res.Snapshots) != 2 {
		t.Fatalf("got %d snapshots, want baseline for both attributes", len(res.Snapshots))
	}
	if len(res.Events) != 0 {
		t.Fatalf("first observation produced %d change events", len(res.Events))
	}
	if len(res.Transitions) != 0 {
		t.Fatalf("first observation produced %d liveness transitions", len(res.Transitions))
	}
	if len(res.Notifications) != 0 {
		t.Fatalf("first observation produced %d notifications", len(res.Notifications))
	}
}

func TestRunSweepIdempotent(t *testing.T) {
	obs := []types.Observation{
		observation("vote1", 800, 5, 10, false, false),
		observation("vote2", 800, 0, 0, true, true),
	}
	first := RunSweep(obs, map[string]PriorState{}, SweepOptions{})
	second := RunSweep(obs, priorFrom(nil, first), SweepOptions{})
	if !second.Empty() {
		t.Fatalf("re-run with refreshed prior state produced writes: %+v", second)
	}
}

func TestRunSweepRugChange(t *testing.T) {
	obs := []types.Observation{observation("vote1", 800, 5, 10, false, false)}
	prior := priorFrom(nil, RunSweep(obs, map[string]PriorState{}, SweepOptions{}))

	next := []types.Observation{observation("vote1", 801, 100, 10, false, false)}
	res := RunSweep(next, prior, SweepOptions{})

	if len(res.Validators) != 0 {
		t.Fatalf("known validator produced %d new rows", len(res.Validators))
	}
	if len(res.Snapshots) != 1 {
		t.Fatalf("got %d snapshots, want only the changed attribute", len(res.Snapshots))
	}
	if len(res.Events) != 1 {
		t.Fatalf("got %d change events, want 1", len(res.Events))
	}
	ev := res.Events[0]
	if ev.Severity != types.SeverityRug {
		t.Fatalf("severity = %v, want RUG", ev.Severity)
	}
	if ev.From != 5 || ev.To != 100 || ev.Delta != 95 {
		t.Fatalf("event transition = %d -> %d delta %d", ev.From, ev.To, ev.Delta)
	}
	if ev.ID == "" {
		t.Fatal("event missing ID")
	}
	if len(res.Notifications) != 1 || res.Notifications[0].Severity != types.SeverityRug {
		t.Fatalf("notifications = %+v, want one RUG", res.Notifications)
	}
}

func TestRunSweepInfoBelowNotifyFloor(t *testing.T) {
	obs := []types.Observation{observation("vote1", 800, 5, 10, false, false)}
	prior := priorFrom(nil, RunSweep(obs, map[string]PriorState{}, SweepOptions{}))

	next := []types.Observation{observation("vote1", 801, 7, 10, false, false)}
	res := RunSweep(next, prior, SweepOptions{})

	if len(res.Events) != 1 || res.Events[0].Severity != types.SeverityInfo {
		t.Fatalf("events = %+v, want one INFO", res.Events)
	}
	if len(res.Notifications) != 0 {
		t.Fatalf("INFO event was notified at the default floor")
	}

	// Lowering the floor lets it through.
	res = RunSweep(next, prior, SweepOptions{NotifyMin: types.SeverityInfo})
	if len(res.Notifications) != 1 {
		t.Fatalf("INFO event not notified with lowered floor")
	}
}

func TestRunSweepLivenessFlip(t *testing.T) {
	obs := []types.Observation{observation("vote1", 800, 5, 10, false, false)}
	prior := priorFrom(nil, RunSweep(obs, map[string]PriorState{}, SweepOptions{}))

	down := []types.Observation{observation("vote1", 801, 5, 10, false, true)}
	res := RunSweep(down, prior, SweepOptions{})
	if len(res.Transitions) != 1 {
		t.Fatalf("got %d transitions, want 1", len(res.Transitions))
	}
	tr := res.Transitions[0]
	if tr.Event.Kind != types.LivenessWentDown || !tr.Delinquent {
		t.Fatalf("transition = %+v, want WENT_DOWN with flag set", tr)
	}
	if tr.Event.Timestamp != sweepAt {
		t.Fatalf("transition timestamp = %v, want observation time", tr.Event.Timestamp)
	}

	prior = priorFrom(prior, res)
	up := []types.Observation{observation("vote1", 802, 5, 10, false, false)}
	res = RunSweep(up, prior, SweepOptions{})
	if len(res.Transitions) != 1 || res.Transitions[0].Event.Kind != types.LivenessCameUp {
		t.Fatalf("recovery transitions = %+v, want one CAME_UP", res.Transitions)
	}
}

func TestRunSweepMalformedObservation(t *testing.T) {
	obs := []types.Observation{observation("vote1", 800, 5, 10, false, false)}
	prior := priorFrom(nil, RunSweep(obs, map[string]PriorState{}, SweepOptions{}))

	// One malformed validator must not stop a healthy one in the same batch.
	batch := []types.Observation{
		observation("vote1", 801, 150, 10, false, false),
		observation("vote2", 801, 5, 0, true, false),
	}
	res := RunSweep(batch, prior, SweepOptions{})

	if res.Anomalies != 1 {
		t.Fatalf("anomalies = %d, want 1", res.Anomalies)
	}
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(res.Events))
	}
	ev := res.Events[0]
	if ev.Severity != types.SeverityInfo {
		t.Fatalf("out-of-domain severity = %v, want INFO", ev.Severity)
	}
	if ev.To != 100 {
		t.Fatalf("stored To = %d, want clamped 100", ev.To)
	}
	if len(res.Validators) != 1 || res.Validators[0].VoteAccount != "vote2" {
		t.Fatalf("healthy validator in the batch was not processed: %+v", res.Validators)
	}

	// The clamped value is the stored baseline, so repeating the same
	// malformed reading emits nothing new.
	res = RunSweep([]types.Observation{batch[0]}, priorFrom(prior, res), SweepOptions{})
	if len(res.Snapshots) != 0 || len(res.Events) != 0 {
		t.Fatalf("repeated malformed reading produced writes: %+v", res)
	}
}

func TestRunSweepMEVDisableEnable(t *testing.T) {
	obs := []types.Observation{observation("vote1", 800, 5, 10, false, false)}
	prior := priorFrom(nil, RunSweep(obs, map[string]PriorState{}, SweepOptions{}))

	disable := []types.Observation{observation("vote1", 801, 5, 0, true, false)}
	res := RunSweep(disable, prior, SweepOptions{})
	if len(res.Events) != 1 || res.Events[0].Severity != types.SeverityInfo || !res.Events[0].ToDisabled {
		t.Fatalf("disable events = %+v, want one INFO with ToDisabled", res.Events)
	}

	prior = priorFrom(prior, res)
	enable := []types.Observation{observation("vote1", 802, 5, 95, false, false)}
	res = RunSweep(enable, prior, SweepOptions{})
	if len(res.Events) != 1 {
		t.Fatalf("enable events = %+v, want 1", res.Events)
	}
	if res.Events[0].Severity != types.SeverityCaution {
		t.Fatalf("enable at 95%% severity = %v, want CAUTION ceiling", res.Events[0].Severity)
	}
}
