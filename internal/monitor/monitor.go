// internal/monitor/monitor.go - Sweep loop wiring source, engine, store and notifier
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"stakewatch/internal/config"
	"stakewatch/internal/engine"
	"stakewatch/internal/notifications"
	"stakewatch/internal/prometheus"
	"stakewatch/internal/repository"
	"stakewatch/internal/source"
	"stakewatch/internal/types"
)

type Monitor struct {
	source   source.Source
	store    repository.Store
	notifier *notifications.Notifier
	metrics  *prometheus.Metrics
	logger   *slog.Logger

	mu        sync.Mutex
	interval  time.Duration
	notifyMin types.Severity
}

func New(src source.Source, store repository.Store, notifier *notifications.Notifier,
	metrics *prometheus.Metrics, cfg *config.Config, logger *slog.Logger) *Monitor {

	return &Monitor{
		source:    src,
		store:     store,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
		interval:  cfg.Sweep.Interval,
		notifyMin: cfg.Notifications.Severity(),
	}
}

// ApplyConfig picks up reloadable settings. An interval change takes effect
// after the next tick.
func (m *Monitor) ApplyConfig(cfg *config.Config) {
	m.mu.Lock()
	m.interval = cfg.Sweep.Interval
	m.notifyMin = cfg.Notifications.Severity()
	m.mu.Unlock()

	m.notifier.SetMinSeverity(cfg.Notifications.Severity())
	m.notifier.SetCooldown(cfg.Notifications.Cooldown)
	m.logger.Info("Monitor config applied",
		"sweep_interval", cfg.Sweep.Interval,
		"min_severity", cfg.Notifications.MinSeverity)
}

// Start runs an immediate sweep and then sweeps on the configured interval
// until ctx is cancelled. Sweeps never overlap.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	interval := m.interval
	m.mu.Unlock()

	m.logger.Info("Starting validator state monitor", "sweep_interval", interval)

	if err := m.RunOnce(ctx); err != nil {
		m.logger.Error("Initial sweep failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Shutting down validator state monitor")
			return

		case <-ticker.C:
			if err := m.RunOnce(ctx); err != nil {
				m.logger.Error("Sweep failed", "error", err)
			}

			m.mu.Lock()
			if m.interval != interval {
				interval = m.interval
				ticker.Reset(interval)
				m.logger.Info("Sweep interval updated", "sweep_interval", interval)
			}
			m.mu.Unlock()
		}
	}
}

// RunOnce performs one full sweep: fetch observations, prefetch prior state,
// decide the write set, persist it and deliver notifications. Persistence
// failures are isolated per record; notification failures never roll back
// writes.
func (m *Monitor) RunOnce(ctx context.Context) error {
	start := time.Now()

	observations, err := m.source.Fetch(ctx)
	if err != nil {
		m.metrics.RecordSweep(engine.SweepResult{}, 0, err)
		return err
	}

	prior, err := m.prefetch(ctx)
	if err != nil {
		m.metrics.RecordSweep(engine.SweepResult{}, 0, err)
		return err
	}

	m.mu.Lock()
	notifyMin := m.notifyMin
	m.mu.Unlock()

	res := engine.RunSweep(observations, prior, engine.SweepOptions{
		NotifyMin: notifyMin,
		Logger:    m.logger,
	})

	failed := m.apply(ctx, res)
	m.deliver(ctx, res)
	m.updatePopulation(observations)
	m.metrics.RecordSweep(res, time.Since(start), nil)

	m.logger.Info("Sweep completed",
		"observations", len(observations),
		"new_validators", len(res.Validators),
		"snapshots", len(res.Snapshots),
		"change_events", len(res.Events),
		"liveness_flips", len(res.Transitions),
		"notifications", len(res.Notifications),
		"write_failures", failed,
		"duration", time.Since(start))
	return nil
}

// prefetch loads the stored view of every known validator into one map so
// the sweep itself does no I/O.
func (m *Monitor) prefetch(ctx context.Context) (map[string]engine.PriorState, error) {
	validators, err := m.store.ListValidators(ctx)
	if err != nil {
		return nil, err
	}
	snapshots, err := m.store.LatestSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	prior := make(map[string]engine.PriorState, len(validators))
	for _, v := range validators {
		prior[v.VoteAccount] = engine.PriorState{Delinquent: v.Delinquent, Known: true}
	}
	for i := range snapshots {
		snap := snapshots[i]
		p := prior[snap.VoteAccount]
		switch snap.Kind {
		case types.KindCommission:
			p.Commission = &snap
		case types.KindMEV:
			p.MEV = &snap
		}
		prior[snap.VoteAccount] = p
	}
	return prior, nil
}

// apply executes the write set. One failing record is logged and skipped so
// the rest of the batch still lands; the engine re-emits anything missing on
// the next sweep.
func (m *Monitor) apply(ctx context.Context, res engine.SweepResult) int {
	failed := 0
	for i := range res.Validators {
		if err := m.store.UpsertValidator(ctx, &res.Validators[i]); err != nil {
			m.logger.Error("Failed to upsert validator",
				"vote_account", res.Validators[i].VoteAccount, "error", err)
			failed++
		}
	}
	for i := range res.Snapshots {
		if err := m.store.UpsertSnapshot(ctx, &res.Snapshots[i]); err != nil {
			m.logger.Error("Failed to write snapshot",
				"vote_account", res.Snapshots[i].VoteAccount,
				"kind", string(res.Snapshots[i].Kind), "error", err)
			failed++
		}
	}
	for i := range res.Events {
		if err := m.store.UpsertChangeEvent(ctx, &res.Events[i]); err != nil {
			m.logger.Error("Failed to write change event",
				"vote_account", res.Events[i].VoteAccount,
				"kind", string(res.Events[i].Kind), "error", err)
			failed++
		}
	}
	for _, t := range res.Transitions {
		if err := m.store.ApplyTransition(ctx, t); err != nil {
			m.logger.Error("Failed to apply liveness transition",
				"vote_account", t.Event.VoteAccount,
				"kind", string(t.Event.Kind), "error", err)
			failed++
		}
	}
	return failed
}

func (m *Monitor) deliver(ctx context.Context, res engine.SweepResult) {
	for _, n := range res.Notifications {
		if err := m.notifier.NotifyChange(ctx, n); err != nil {
			m.logger.Warn("Failed to deliver change notification",
				"vote_account", n.VoteAccount, "error", err)
		}
	}
	for _, t := range res.Transitions {
		if err := m.notifier.NotifyLiveness(ctx, t.Event); err != nil {
			m.logger.Warn("Failed to deliver liveness notification",
				"vote_account", t.Event.VoteAccount, "error", err)
		}
	}
}

func (m *Monitor) updatePopulation(observations []types.Observation) {
	delinquent := 0
	for _, obs := range observations {
		if obs.Delinquent {
			delinquent++
		}
	}
	m.metrics.UpdatePopulation(len(observations), delinquent)
}
