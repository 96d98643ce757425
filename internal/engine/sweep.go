// internal/engine/sweep.go - Per-sweep decision pass over the validator population
package engine

import (
	"log/slog"

	"github.com/google/uuid"

	"stakewatch/internal/types"
)

// PriorState is the orchestrator's prefetched view of one validator: the most
// recent stored snapshot per attribute plus the stored delinquency flag.
// Known is false for validators never seen before.
type PriorState struct {
	Commission *types.AttributeSnapshot
	MEV        *types.AttributeSnapshot
	Delinquent bool
	Known      bool
}

// SweepResult is the materialized write set for one sweep. The engine only
// decides the side effects; the caller executes them.
type SweepResult struct {
	Validators    []types.Validator
	Snapshots     []types.AttributeSnapshot
	Events        []types.ChangeEvent
	Transitions   []types.LivenessTransition
	Notifications []types.Notification
	Anomalies     int
}

// Empty reports whether the sweep produced no writes at all.
func (r SweepResult) Empty() bool {
	return len(r.Validators) == 0 && len(r.Snapshots) == 0 &&
		len(r.Events) == 0 && len(r.Transitions) == 0
}

// SweepOptions tunes a sweep run.
type SweepOptions struct {
	// NotifyMin is the lowest severity handed to the notifier. The zero
	// value means SeverityCaution.
	NotifyMin types.Severity
	Logger    *slog.Logger
}

// RunSweep compares one batch of observations against prior state and
// decides every write and notification the collaborators must perform. It
// performs no I/O. Re-running it with refreshed prior state and identical
// observations yields an empty write set, which is what makes collaborator
// retries and resumed partial sweeps safe. Validators are independent of
// each other; a malformed observation degrades that one validator's records
// and never aborts the rest of the batch.
func RunSweep(observations []types.Observation, prior map[string]PriorState, opts SweepOptions) SweepResult {
	notifyMin := opts.NotifyMin
	if notifyMin == types.SeverityNone {
		notifyMin = types.SeverityCaution
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var res SweepResult
	for _, obs := range observations {
		p := prior[obs.VoteAccount]
		if !p.Known {
			res.Validators = append(res.Validators, types.Validator{
				VoteAccount: obs.VoteAccount,
				Delinquent:  obs.Delinquent,
				FirstSeenAt: obs.ObservedAt,
				UpdatedAt:   obs.ObservedAt,
			})
		}

		sweepAttribute(&res, obs, types.KindCommission, p.Commission, obs.Commission, false, notifyMin, logger)
		sweepAttribute(&res, obs, types.KindMEV, p.MEV, obs.MEVCommission, obs.MEVDisabled, notifyMin, logger)

		// Liveness flips only count against a stored flag; the first
		// observation just seeds the baseline carried by the validator row.
		if p.Known && ShouldEmitLiveness(p.Delinquent, obs.Delinquent) {
			res.Transitions = append(res.Transitions, types.LivenessTransition{
				Event: types.LivenessEvent{
					ID:          uuid.NewString(),
					VoteAccount: obs.VoteAccount,
					Kind:        LivenessKindFor(obs.Delinquent),
					Timestamp:   obs.ObservedAt,
				},
				Delinquent: obs.Delinquent,
			})
		}
	}
	return res
}

func sweepAttribute(res *SweepResult, obs types.Observation, kind types.AttributeKind,
	last *types.AttributeSnapshot, value int, disabled bool,
	notifyMin types.Severity, logger *slog.Logger) {

	if !disabled && !inDomain(value) {
		logger.Warn("observed value outside commission domain",
			"vote_account", obs.VoteAccount,
			"kind", string(kind),
			"value", value)
		res.Anomalies++
	}

	// Compare on the clamped value so a repeated out-of-domain reading does
	// not produce a second snapshot with the same stored value.
	clamped := ClampPercent(value)
	decision := ShouldEmit(last, clamped, disabled)
	if !decision.Emit {
		return
	}

	res.Snapshots = append(res.Snapshots, types.AttributeSnapshot{
		VoteAccount: obs.VoteAccount,
		Kind:        kind,
		Epoch:       obs.Epoch,
		ObservedAt:  obs.ObservedAt,
		Value:       clamped,
		Disabled:    disabled,
	})
	if decision.FirstObservation {
		// Baseline snapshot only: there is no "from" side to classify.
		return
	}

	// Classify on the raw value: out-of-domain readings degrade to INFO.
	sev := Classify(kind, last.Value, value, last.Disabled, disabled)
	ev := types.ChangeEvent{
		ID:           uuid.NewString(),
		VoteAccount:  obs.VoteAccount,
		Kind:         kind,
		Epoch:        obs.Epoch,
		ObservedAt:   obs.ObservedAt,
		From:         last.Value,
		To:           clamped,
		Delta:        clamped - last.Value,
		FromDisabled: last.Disabled,
		ToDisabled:   disabled,
		Severity:     sev,
	}
	res.Events = append(res.Events, ev)

	if sev >= notifyMin {
		res.Notifications = append(res.Notifications, types.Notification{
			VoteAccount:  ev.VoteAccount,
			Kind:         ev.Kind,
			Epoch:        ev.Epoch,
			From:         ev.From,
			To:           ev.To,
			FromDisabled: ev.FromDisabled,
			ToDisabled:   ev.ToDisabled,
			Severity:     ev.Severity,
		})
	}
}
