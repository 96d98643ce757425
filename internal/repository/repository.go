package repository

import (
	"context"
	"time"

	"stakewatch/internal/types"
)

// EventQuery narrows a change event range query.
type EventQuery struct {
	// VoteAccount limits results to one validator; empty means all.
	VoteAccount string
	// EpochFrom and EpochTo bound the window, inclusive. EpochTo zero means
	// open-ended.
	EpochFrom uint64
	EpochTo   uint64
	Limit     int
}

// ValidatorRepository persists the monitored validator registry.
type ValidatorRepository interface {
	UpsertValidator(ctx context.Context, v *types.Validator) error
	GetValidator(ctx context.Context, voteAccount string) (*types.Validator, error)
	ListValidators(ctx context.Context) ([]types.Validator, error)
}

// SnapshotRepository persists attribute snapshots keyed by
// (vote account, kind, epoch). A duplicate-key write must be a no-op, never
// a second row.
type SnapshotRepository interface {
	UpsertSnapshot(ctx context.Context, snap *types.AttributeSnapshot) error
	LatestSnapshot(ctx context.Context, voteAccount string, kind types.AttributeKind) (*types.AttributeSnapshot, error)
	// LatestSnapshots returns the most recent snapshot per
	// (validator, kind) in one pass, for the pre-sweep prefetch.
	LatestSnapshots(ctx context.Context) ([]types.AttributeSnapshot, error)
}

// EventRepository persists classified change events keyed by
// (vote account, kind, epoch). Duplicate-key writes overwrite.
type EventRepository interface {
	UpsertChangeEvent(ctx context.Context, ev *types.ChangeEvent) error
	ListChangeEvents(ctx context.Context, q EventQuery) ([]types.ChangeEvent, error)
}

// LivenessRepository persists liveness flips. ApplyTransition writes the
// event and the validator's delinquency flag as one unit: both or neither,
// so the flag can never say "down" without a matching WENT_DOWN event.
type LivenessRepository interface {
	ApplyTransition(ctx context.Context, t types.LivenessTransition) error
	// ListLivenessEvents returns events in [from, to), ordered by timestamp
	// ascending.
	ListLivenessEvents(ctx context.Context, voteAccount string, from, to time.Time) ([]types.LivenessEvent, error)
	// LastLivenessBefore returns the most recent event strictly before the
	// given time, or ErrNotFound. Callers use it to detect an outage already
	// open when a query window starts.
	LastLivenessBefore(ctx context.Context, voteAccount string, before time.Time) (*types.LivenessEvent, error)
}

// Store bundles everything the monitor daemon and the feed service need.
type Store interface {
	ValidatorRepository
	SnapshotRepository
	EventRepository
	LivenessRepository
}
