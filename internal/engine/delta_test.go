package engine

import (
	"testing"
	"time"

	"stakewatch/internal/types"
)

func snap(value int, disabled bool) *types.AttributeSnapshot {
	return &types.AttributeSnapshot{
		VoteAccount: "vote1",
		Kind:        types.KindCommission,
		Epoch:       800,
		ObservedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Value:       value,
		Disabled:    disabled,
	}
}

func TestShouldEmit(t *testing.T) {
	tests := []struct {
		name        string
		last        *types.AttributeSnapshot
		newValue    int
		newDisabled bool
		wantEmit    bool
		wantFirst   bool
	}{
		{"first observation", nil, 10, false, true, true},
		{"first observation disabled", nil, 0, true, true, true},
		{"unchanged", snap(10, false), 10, false, false, false},
		{"changed", snap(10, false), 11, false, true, false},
		{"still disabled", snap(0, true), 0, true, false, false},
		{"disabled with different payload is still unchanged", snap(0, true), 42, true, false, false},
		{"enable", snap(0, true), 5, false, true, false},
		{"disable", snap(5, false), 0, true, true, false},
		{"disable carrying same payload", snap(5, false), 5, true, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldEmit(tt.last, tt.newValue, tt.newDisabled)
			if got.Emit != tt.wantEmit || got.FirstObservation != tt.wantFirst {
				t.Fatalf("ShouldEmit = %+v, want Emit=%v FirstObservation=%v",
					got, tt.wantEmit, tt.wantFirst)
			}
		})
	}
}

func TestShouldEmitLiveness(t *testing.T) {
	if ShouldEmitLiveness(false, false) || ShouldEmitLiveness(true, true) {
		t.Fatal("unchanged flag must not emit")
	}
	if !ShouldEmitLiveness(false, true) || !ShouldEmitLiveness(true, false) {
		t.Fatal("flipped flag must emit")
	}
}

func TestLivenessKindFor(t *testing.T) {
	if got := LivenessKindFor(true); got != types.LivenessWentDown {
		t.Fatalf("LivenessKindFor(true) = %v", got)
	}
	if got := LivenessKindFor(false); got != types.LivenessCameUp {
		t.Fatalf("LivenessKindFor(false) = %v", got)
	}
}
