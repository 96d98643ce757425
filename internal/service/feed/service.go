// Package feed exposes the read-side views: the deduplicated change event
// feed and reconstructed daily availability.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stakewatch/internal/engine"
	"stakewatch/internal/repository"
	"stakewatch/internal/types"
)

// Service answers feed queries against the store. All derivation happens at
// read time; the store only holds raw events.
type Service struct {
	store repository.Store
}

func New(store repository.Store) *Service {
	return &Service{store: store}
}

// ChangeFeed returns change events in the query window, deduplicated per the
// grouping mode and ordered newest first.
func (s *Service) ChangeFeed(ctx context.Context, q repository.EventQuery, mode engine.GroupMode) ([]types.ChangeEvent, error) {
	events, err := s.store.ListChangeEvents(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list change events: %w", err)
	}
	return engine.Aggregate(events, mode), nil
}

// DailyUptime reconstructs the per-day availability series for one validator
// over [windowStart, windowEnd). An outage already open when the window
// starts is found by looking at the last flip before it.
func (s *Service) DailyUptime(ctx context.Context, voteAccount string, windowStart, windowEnd time.Time) ([]types.DailyAvailability, error) {
	v, err := s.store.GetValidator(ctx, voteAccount)
	if err != nil {
		return nil, fmt.Errorf("get validator: %w", err)
	}

	events, err := s.store.ListLivenessEvents(ctx, voteAccount, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("list liveness events: %w", err)
	}

	// A WENT_DOWN before the window with no flip since means the validator
	// entered the window already down; its interval gets clipped to the
	// window by the reconstruction.
	prior, err := s.store.LastLivenessBefore(ctx, voteAccount, windowStart)
	switch {
	case err == nil:
		if prior.Kind == types.LivenessWentDown {
			events = append([]types.LivenessEvent{*prior}, events...)
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, fmt.Errorf("last liveness before window: %w", err)
	}

	days := engine.ReconstructDaily(events, windowStart, windowEnd, v.Delinquent)
	for i := range days {
		days[i].VoteAccount = voteAccount
	}
	return days, nil
}
