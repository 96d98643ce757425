package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stakewatch/internal/repository"
	"stakewatch/internal/types"
)

// Repository implements the persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var _ repository.Store = (*Repository)(nil)

// UpsertValidator inserts a validator or refreshes its mutable fields.
func (r *Repository) UpsertValidator(ctx context.Context, v *types.Validator) error {
	const query = `INSERT INTO validators (vote_account, delinquent, first_seen_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (vote_account) DO UPDATE SET
			delinquent = EXCLUDED.delinquent,
			updated_at = EXCLUDED.updated_at`
	_, err := r.pool.Exec(ctx, query, v.VoteAccount, v.Delinquent, v.FirstSeenAt, v.UpdatedAt)
	return err
}

// GetValidator fetches one validator by vote account.
func (r *Repository) GetValidator(ctx context.Context, voteAccount string) (*types.Validator, error) {
	const query = `SELECT vote_account, delinquent, first_seen_at, updated_at
		FROM validators WHERE vote_account = $1`
	row := r.pool.QueryRow(ctx, query, voteAccount)
	var v types.Validator
	if err := row.Scan(&v.VoteAccount, &v.Delinquent, &v.FirstSeenAt, &v.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// ListValidators returns the whole registry.
func (r *Repository) ListValidators(ctx context.Context) ([]types.Validator, error) {
	const query = `SELECT vote_account, delinquent, first_seen_at, updated_at
		FROM validators ORDER BY vote_account`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	validators := make([]types.Validator, 0)
	for rows.Next() {
		var v types.Validator
		if err := rows.Scan(&v.VoteAccount, &v.Delinquent, &v.FirstSeenAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		validators = append(validators, v)
	}
	return validators, rows.Err()
}

// UpsertSnapshot writes an attribute snapshot. A duplicate
// (vote_account, kind, epoch) key is a no-op, which is what makes re-run
// sweeps safe.
func (r *Repository) UpsertSnapshot(ctx context.Context, snap *types.AttributeSnapshot) error {
	const query = `INSERT INTO attribute_snapshots (vote_account, kind, epoch, observed_at, value, disabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (vote_account, kind, epoch) DO NOTHING`
	_, err := r.pool.Exec(ctx, query,
		snap.VoteAccount, string(snap.Kind), snap.Epoch, snap.ObservedAt, snap.Value, snap.Disabled)
	return err
}

// LatestSnapshot returns the most recent snapshot for one validator and
// attribute, or repository.ErrNotFound.
func (r *Repository) LatestSnapshot(ctx context.Context, voteAccount string, kind types.AttributeKind) (*types.AttributeSnapshot, error) {
	const query = `SELECT vote_account, kind, epoch, observed_at, value, disabled
		FROM attribute_snapshots
		WHERE vote_account = $1 AND kind = $2
		ORDER BY epoch DESC, observed_at DESC
		LIMIT 1`
	row := r.pool.QueryRow(ctx, query, voteAccount, string(kind))
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return snap, nil
}

// LatestSnapshots returns the most recent snapshot per (validator, kind) in
// one query, for the pre-sweep prefetch pass.
func (r *Repository) LatestSnapshots(ctx context.Context) ([]types.AttributeSnapshot, error) {
	const query = `SELECT DISTINCT ON (vote_account, kind)
			vote_account, kind, epoch, observed_at, value, disabled
		FROM attribute_snapshots
		ORDER BY vote_account, kind, epoch DESC, observed_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snaps := make([]types.AttributeSnapshot, 0)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

// UpsertChangeEvent writes a change event. A duplicate
// (vote_account, kind, epoch) key overwrites: last write wins when two
// observations land in the same epoch.
func (r *Repository) UpsertChangeEvent(ctx context.Context, ev *types.ChangeEvent) error {
	const query = `INSERT INTO change_events
			(id, vote_account, kind, epoch, observed_at, from_value, to_value, delta, from_disabled, to_disabled, severity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (vote_account, kind, epoch) DO UPDATE SET
			observed_at = EXCLUDED.observed_at,
			from_value = EXCLUDED.from_value,
			to_value = EXCLUDED.to_value,
			delta = EXCLUDED.delta,
			from_disabled = EXCLUDED.from_disabled,
			to_disabled = EXCLUDED.to_disabled,
			severity = EXCLUDED.severity`
	_, err := r.pool.Exec(ctx, query,
		ev.ID, ev.VoteAccount, string(ev.Kind), ev.Epoch, ev.ObservedAt,
		ev.From, ev.To, ev.Delta, ev.FromDisabled, ev.ToDisabled, ev.Severity.String())
	return err
}

// ListChangeEvents returns events in the query window, newest first.
func (r *Repository) ListChangeEvents(ctx context.Context, q repository.EventQuery) ([]types.ChangeEvent, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 500
	}
	const query = `SELECT id, vote_account, kind, epoch, observed_at, from_value, to_value, delta, from_disabled, to_disabled, severity
		FROM change_events
		WHERE ($1 = '' OR vote_account = $1)
			AND epoch >= $2
			AND ($3 = 0 OR epoch <= $3)
		ORDER BY epoch DESC, observed_at DESC
		LIMIT $4`
	rows, err := r.pool.Query(ctx, query, q.VoteAccount, q.EpochFrom, q.EpochTo, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]types.ChangeEvent, 0)
	for rows.Next() {
		var (
			ev       types.ChangeEvent
			kind     string
			severity string
		)
		if err := rows.Scan(&ev.ID, &ev.VoteAccount, &kind, &ev.Epoch, &ev.ObservedAt,
			&ev.From, &ev.To, &ev.Delta, &ev.FromDisabled, &ev.ToDisabled, &severity); err != nil {
			return nil, err
		}
		ev.Kind = types.AttributeKind(kind)
		ev.Severity = types.ParseSeverity(severity)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ApplyTransition writes the liveness event and the validator's delinquency
// flag in one transaction. A duplicate (vote_account, ts) event key is a
// no-op, but the flag update still applies so retries converge.
func (r *Repository) ApplyTransition(ctx context.Context, t types.LivenessTransition) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const eventInsert = `INSERT INTO liveness_events (id, vote_account, kind, ts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (vote_account, ts) DO NOTHING`
	if _, err := tx.Exec(ctx, eventInsert,
		t.Event.ID, t.Event.VoteAccount, string(t.Event.Kind), t.Event.Timestamp); err != nil {
		return fmt.Errorf("insert liveness event: %w", err)
	}

	const flagUpdate = `UPDATE validators SET delinquent = $2, updated_at = $3 WHERE vote_account = $1`
	if _, err := tx.Exec(ctx, flagUpdate, t.Event.VoteAccount, t.Delinquent, t.Event.Timestamp); err != nil {
		return fmt.Errorf("update delinquency flag: %w", err)
	}

	return tx.Commit(ctx)
}

// ListLivenessEvents returns events in [from, to), oldest first.
func (r *Repository) ListLivenessEvents(ctx context.Context, voteAccount string, from, to time.Time) ([]types.LivenessEvent, error) {
	const query = `SELECT id, vote_account, kind, ts
		FROM liveness_events
		WHERE vote_account = $1 AND ts >= $2 AND ts < $3
		ORDER BY ts ASC`
	rows, err := r.pool.Query(ctx, query, voteAccount, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]types.LivenessEvent, 0)
	for rows.Next() {
		ev, err := scanLiveness(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

// LastLivenessBefore returns the most recent event strictly before the given
// time, or repository.ErrNotFound.
func (r *Repository) LastLivenessBefore(ctx context.Context, voteAccount string, before time.Time) (*types.LivenessEvent, error) {
	const query = `SELECT id, vote_account, kind, ts
		FROM liveness_events
		WHERE vote_account = $1 AND ts < $2
		ORDER BY ts DESC
		LIMIT 1`
	row := r.pool.QueryRow(ctx, query, voteAccount, before)
	ev, err := scanLiveness(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ev, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(s scanner) (*types.AttributeSnapshot, error) {
	var (
		snap types.AttributeSnapshot
		kind string
	)
	if err := s.Scan(&snap.VoteAccount, &kind, &snap.Epoch, &snap.ObservedAt, &snap.Value, &snap.Disabled); err != nil {
		return nil, err
	}
	snap.Kind = types.AttributeKind(kind)
	return &snap, nil
}

func scanLiveness(s scanner) (*types.LivenessEvent, error) {
	var (
		ev   types.LivenessEvent
		kind string
	)
	if err := s.Scan(&ev.ID, &ev.VoteAccount, &kind, &ev.Timestamp); err != nil {
		return nil, err
	}
	ev.Kind = types.LivenessKind(kind)
	return &ev, nil
}
