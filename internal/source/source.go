// Package source provides the observation feeds a sweep consumes.
package source

import (
	"context"

	"stakewatch/internal/types"
)

// Source produces one batch of validator observations per call. A batch is
// a point-in-time view of every monitored validator; the sweep diffs it
// against stored state.
type Source interface {
	Fetch(ctx context.Context) ([]types.Observation, error)
}
