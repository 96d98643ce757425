// internal/engine/aggregate.go - Read-time dedup over stored change events
package engine

import (
	"sort"

	"stakewatch/internal/types"
)

// GroupMode selects the dedup granularity for Aggregate.
type GroupMode int

const (
	// GroupAll disables dedup: every event passes through, sorted newest
	// first.
	GroupAll GroupMode = iota

	// GroupByValidator keeps at most one event per validator across the
	// whole window: the "current risk" view. A validator that rugs in epoch
	// N and again in epoch N+2 shows only the most severe (or, tied, the
	// most recent) occurrence; the earlier one is suppressed from this view.
	GroupByValidator

	// GroupByValidatorEpochKind keeps one event per (validator, epoch,
	// attribute): the historical feed, where a RUG in epoch 873 and another
	// in 874 both survive, but a RUG and an INFO in the same epoch collapse
	// to the RUG.
	GroupByValidatorEpochKind
)

type aggKey struct {
	voteAccount string
	epoch       uint64
	kind        types.AttributeKind
}

// Aggregate folds a batch of change events down to one severity-ranked
// winner per composite key. Every distinct key yields exactly one event.
// The input slice is not mutated.
func Aggregate(events []types.ChangeEvent, mode GroupMode) []types.ChangeEvent {
	if mode == GroupAll {
		out := append([]types.ChangeEvent(nil), events...)
		sortFeed(out)
		return out
	}

	winners := make(map[aggKey]types.ChangeEvent, len(events))
	order := make([]aggKey, 0, len(events))
	for _, ev := range events {
		key := aggKey{voteAccount: ev.VoteAccount}
		if mode == GroupByValidatorEpochKind {
			key.epoch = ev.Epoch
			key.kind = ev.Kind
		}
		incumbent, ok := winners[key]
		if !ok {
			winners[key] = ev
			order = append(order, key)
			continue
		}
		if beats(ev, incumbent) {
			winners[key] = ev
		}
	}

	out := make([]types.ChangeEvent, 0, len(winners))
	for _, key := range order {
		out = append(out, winners[key])
	}
	sortFeed(out)
	return out
}

// beats reports whether challenger replaces incumbent: higher severity wins,
// then the later observation. On a full tie the incumbent stays, so the fold
// is deterministic in input order.
func beats(challenger, incumbent types.ChangeEvent) bool {
	if challenger.Severity != incumbent.Severity {
		return challenger.Severity > incumbent.Severity
	}
	return challenger.ObservedAt.After(incumbent.ObservedAt)
}

// sortFeed orders a feed newest first: epoch descending, then observation
// time descending. The sort is stable so equal rows keep input order.
func sortFeed(events []types.ChangeEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Epoch != events[j].Epoch {
			return events[i].Epoch > events[j].Epoch
		}
		return events[i].ObservedAt.After(events[j].ObservedAt)
	})
}
