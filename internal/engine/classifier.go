// internal/engine/classifier.go - Severity classification for attribute transitions
package engine

import "stakewatch/internal/types"

// Commission thresholds, in percentage points.
const (
	// rugFloor is the commission at or above which an increase is a RUG:
	// the operator keeps (nearly) all delegator rewards.
	rugFloor = 90

	// commissionCautionDelta is the fee commission jump that warrants CAUTION.
	commissionCautionDelta = 10

	// mevCautionDelta is the MEV commission jump that warrants CAUTION. MEV
	// commission is more volatile, so the threshold is double the fee one.
	mevCautionDelta = 20
)

// Classify assigns a severity to a single attribute transition. It is total:
// every input combination yields a severity, and values outside the 0-100
// commission domain degrade to INFO instead of failing.
func Classify(kind types.AttributeKind, from, to int, fromDisabled, toDisabled bool) types.Severity {
	if kind == types.KindMEV {
		return classifyMEV(from, to, fromDisabled, toDisabled)
	}
	return classifyCommission(from, to)
}

func classifyCommission(from, to int) types.Severity {
	if !inDomain(from) || !inDomain(to) {
		return types.SeverityInfo
	}
	if to >= rugFloor && to > from {
		return types.SeverityRug
	}
	if to-from >= commissionCautionDelta && to < rugFloor {
		return types.SeverityCaution
	}
	return types.SeverityInfo
}

func classifyMEV(from, to int, fromDisabled, toDisabled bool) types.Severity {
	switch {
	case fromDisabled && toDisabled:
		// Should not occur; nothing changed that delegators can lose.
		return types.SeverityInfo
	case fromDisabled:
		// Enabling MEV is judged on the new value alone. No prior MEV
		// rewards existed to be taken, so the ceiling is CAUTION.
		if inDomain(to) && to >= rugFloor {
			return types.SeverityCaution
		}
		return types.SeverityInfo
	case toDisabled:
		// Disabling MEV loses delegators future rewards but the operator
		// does not gain them.
		return types.SeverityInfo
	}
	if !inDomain(from) || !inDomain(to) {
		return types.SeverityInfo
	}
	if to >= rugFloor && to > from {
		return types.SeverityRug
	}
	if to-from >= mevCautionDelta {
		return types.SeverityCaution
	}
	return types.SeverityInfo
}

func inDomain(v int) bool {
	return v >= 0 && v <= 100
}

// ClampPercent forces a commission value into the 0-100 domain for storage.
func ClampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
