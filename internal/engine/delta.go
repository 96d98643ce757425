// internal/engine/delta.go - Write suppression for unchanged attribute values
package engine

import "stakewatch/internal/types"

// DeltaDecision is the outcome of comparing a fresh observation against the
// most recent stored snapshot.
type DeltaDecision struct {
	// Emit is true when a new snapshot must be written.
	Emit bool
	// FirstObservation is true when no prior snapshot existed. The snapshot
	// establishes a baseline and no change event may be produced for it.
	FirstObservation bool
}

// ShouldEmit decides whether a newly observed attribute value warrants a new
// snapshot. last is nil when no prior snapshot exists for the
// (validator, attribute) pair. Unchanged values are suppressed entirely;
// this is the dominant case on every sweep and bounds write volume.
func ShouldEmit(last *types.AttributeSnapshot, newValue int, newDisabled bool) DeltaDecision {
	if last == nil {
		return DeltaDecision{Emit: true, FirstObservation: true}
	}
	if sameValue(last.Value, last.Disabled, newValue, newDisabled) {
		return DeltaDecision{}
	}
	return DeltaDecision{Emit: true}
}

// sameValue treats two disabled sides as equal regardless of any numeric
// payload carried alongside the flag.
func sameValue(aVal int, aDisabled bool, bVal int, bDisabled bool) bool {
	if aDisabled || bDisabled {
		return aDisabled == bDisabled
	}
	return aVal == bVal
}

// ShouldEmitLiveness reports whether the delinquency flag flipped. On emit
// the caller records a liveness event and updates the stored flag as one
// logical unit.
func ShouldEmitLiveness(lastDelinquent, newDelinquent bool) bool {
	return lastDelinquent != newDelinquent
}

// LivenessKindFor maps the new flag value to the event direction.
func LivenessKindFor(delinquent bool) types.LivenessKind {
	if delinquent {
		return types.LivenessWentDown
	}
	return types.LivenessCameUp
}
