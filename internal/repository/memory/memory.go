// Package memory is the in-memory storage backend. It backs small
// deployments that do not need durability, and doubles as the test double
// for everything that consumes the repository interfaces.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"stakewatch/internal/repository"
	"stakewatch/internal/types"
)

type attrKey struct {
	voteAccount string
	kind        types.AttributeKind
}

type eventKey struct {
	voteAccount string
	kind        types.AttributeKind
	epoch       uint64
}

type livenessKey struct {
	voteAccount string
	ts          time.Time
}

// Store is a thread-safe in-memory implementation of repository.Store.
type Store struct {
	mu         sync.RWMutex
	validators map[string]types.Validator
	snapshots  map[attrKey][]types.AttributeSnapshot
	events     map[eventKey]types.ChangeEvent
	liveness   map[string][]types.LivenessEvent
	seenFlips  map[livenessKey]struct{}
}

var _ repository.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		validators: make(map[string]types.Validator),
		snapshots:  make(map[attrKey][]types.AttributeSnapshot),
		events:     make(map[eventKey]types.ChangeEvent),
		liveness:   make(map[string][]types.LivenessEvent),
		seenFlips:  make(map[livenessKey]struct{}),
	}
}

func (s *Store) UpsertValidator(_ context.Context, v *types.Validator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.validators[v.VoteAccount]; ok {
		existing.Delinquent = v.Delinquent
		existing.UpdatedAt = v.UpdatedAt
		s.validators[v.VoteAccount] = existing
		return nil
	}
	s.validators[v.VoteAccount] = *v
	return nil
}

func (s *Store) GetValidator(_ context.Context, voteAccount string) (*types.Validator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.validators[voteAccount]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := v
	return &out, nil
}

func (s *Store) ListValidators(_ context.Context) ([]types.Validator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Validator, 0, len(s.validators))
	for _, v := range s.validators {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VoteAccount < out[j].VoteAccount })
	return out, nil
}

func (s *Store) UpsertSnapshot(_ context.Context, snap *types.AttributeSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attrKey{voteAccount: snap.VoteAccount, kind: snap.Kind}
	for _, existing := range s.snapshots[key] {
		// Duplicate (vote account, kind, epoch) writes are no-ops.
		if existing.Epoch == snap.Epoch {
			return nil
		}
	}
	s.snapshots[key] = append(s.snapshots[key], *snap)
	sort.Slice(s.snapshots[key], func(i, j int) bool {
		return s.snapshots[key][i].Epoch < s.snapshots[key][j].Epoch
	})
	return nil
}

func (s *Store) LatestSnapshot(_ context.Context, voteAccount string, kind types.AttributeKind) (*types.AttributeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snaps := s.snapshots[attrKey{voteAccount: voteAccount, kind: kind}]
	if len(snaps) == 0 {
		return nil, repository.ErrNotFound
	}
	out := snaps[len(snaps)-1]
	return &out, nil
}

func (s *Store) LatestSnapshots(_ context.Context) ([]types.AttributeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.AttributeSnapshot, 0, len(s.snapshots))
	for _, snaps := range s.snapshots {
		if len(snaps) > 0 {
			out = append(out, snaps[len(snaps)-1])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VoteAccount != out[j].VoteAccount {
			return out[i].VoteAccount < out[j].VoteAccount
		}
		return out[i].Kind < out[j].Kind
	})
	return out, nil
}

func (s *Store) UpsertChangeEvent(_ context.Context, ev *types.ChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Last write wins on a duplicate key, matching the postgres backend.
	s.events[eventKey{voteAccount: ev.VoteAccount, kind: ev.Kind, epoch: ev.Epoch}] = *ev
	return nil
}

func (s *Store) ListChangeEvents(_ context.Context, q repository.EventQuery) ([]types.ChangeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit := q.Limit
	if limit <= 0 {
		limit = 500
	}
	out := make([]types.ChangeEvent, 0)
	for key, ev := range s.events {
		if q.VoteAccount != "" && key.voteAccount != q.VoteAccount {
			continue
		}
		if key.epoch < q.EpochFrom {
			continue
		}
		if q.EpochTo != 0 && key.epoch > q.EpochTo {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Epoch != out[j].Epoch {
			return out[i].Epoch > out[j].Epoch
		}
		return out[i].ObservedAt.After(out[j].ObservedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ApplyTransition(_ context.Context, t types.LivenessTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := livenessKey{voteAccount: t.Event.VoteAccount, ts: t.Event.Timestamp}
	if _, dup := s.seenFlips[key]; !dup {
		s.seenFlips[key] = struct{}{}
		s.liveness[t.Event.VoteAccount] = append(s.liveness[t.Event.VoteAccount], t.Event)
		sort.Slice(s.liveness[t.Event.VoteAccount], func(i, j int) bool {
			return s.liveness[t.Event.VoteAccount][i].Timestamp.Before(s.liveness[t.Event.VoteAccount][j].Timestamp)
		})
	}
	// The flag update applies even when the event was a duplicate, so
	// retried transitions converge on the same state.
	if v, ok := s.validators[t.Event.VoteAccount]; ok {
		v.Delinquent = t.Delinquent
		v.UpdatedAt = t.Event.Timestamp
		s.validators[t.Event.VoteAccount] = v
	}
	return nil
}

func (s *Store) ListLivenessEvents(_ context.Context, voteAccount string, from, to time.Time) ([]types.LivenessEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.LivenessEvent, 0)
	for _, ev := range s.liveness[voteAccount] {
		if ev.Timestamp.Before(from) || !ev.Timestamp.Before(to) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *Store) LastLivenessBefore(_ context.Context, voteAccount string, before time.Time) (*types.LivenessEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.liveness[voteAccount]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Timestamp.Before(before) {
			out := events[i]
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}
