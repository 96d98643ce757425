// internal/notifications/notifier.go - Severity-routed alert delivery with per-key cooldown
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"stakewatch/internal/types"
)

type NotificationLevel int

const (
	LevelStandard NotificationLevel = iota
	LevelCritical
)

const defaultCooldown = 30 * time.Minute

// Notifier fans alerts out over shoutrrr. RUG events go to both the
// standard and the critical channel sets, CAUTION to standard only, INFO is
// suppressed unless the minimum severity is lowered. Repeats for the same
// (validator, kind) are muted for the cooldown window; critical alerts are
// never muted.
type Notifier struct {
	standard *ShoutrrrSender
	critical *ShoutrrrSender
	cooldown CooldownStore
	logger   *slog.Logger

	mu          sync.RWMutex
	minSeverity types.Severity
	cooldownTTL time.Duration
}

func New(standardURLs, criticalURLs []string, cooldown CooldownStore, logger *slog.Logger) *Notifier {
	if cooldown == nil {
		cooldown = NewMemoryCooldown()
	}
	return &Notifier{
		standard:    NewShoutrrrSender(standardURLs, logger),
		critical:    NewShoutrrrSender(criticalURLs, logger),
		cooldown:    cooldown,
		logger:      logger,
		minSeverity: types.SeverityCaution,
		cooldownTTL: defaultCooldown,
	}
}

// SetMinSeverity adjusts the delivery floor, used by config hot reload.
func (n *Notifier) SetMinSeverity(min types.Severity) {
	n.mu.Lock()
	n.minSeverity = min
	n.mu.Unlock()
}

// SetCooldown adjusts the mute window, used by config hot reload.
func (n *Notifier) SetCooldown(ttl time.Duration) {
	n.mu.Lock()
	n.cooldownTTL = ttl
	n.mu.Unlock()
}

// NotifyChange delivers one classified change alert.
func (n *Notifier) NotifyChange(ctx context.Context, alert types.Notification) error {
	n.mu.RLock()
	min, ttl := n.minSeverity, n.cooldownTTL
	n.mu.RUnlock()

	if alert.Severity < min {
		return nil
	}

	level := LevelStandard
	if alert.Severity == types.SeverityRug {
		level = LevelCritical
	}

	key := fmt.Sprintf("change:%s:%s", alert.VoteAccount, alert.Kind)
	if level != LevelCritical {
		ok, err := n.cooldown.Acquire(ctx, key, ttl)
		if err != nil {
			n.logger.Warn("Cooldown check failed, sending anyway", "key", key, "error", err)
		} else if !ok {
			n.logger.Debug("Notification muted", "key", key, "severity", alert.Severity)
			return nil
		}
	}

	return n.deliver(changeMessage(alert), level, key)
}

// NotifyLiveness delivers a delinquency flip alert. WENT_DOWN is critical,
// CAME_UP standard.
func (n *Notifier) NotifyLiveness(ctx context.Context, ev types.LivenessEvent) error {
	level := LevelStandard
	msg := fmt.Sprintf("✅ Validator %s is voting again (as of %s)",
		ev.VoteAccount, ev.Timestamp.UTC().Format(time.RFC3339))
	if ev.Kind == types.LivenessWentDown {
		level = LevelCritical
		msg = fmt.Sprintf("🚨 Validator %s went delinquent (as of %s)",
			ev.VoteAccount, ev.Timestamp.UTC().Format(time.RFC3339))
	}

	key := fmt.Sprintf("liveness:%s", ev.VoteAccount)
	return n.deliver(msg, level, key)
}

func (n *Notifier) deliver(message string, level NotificationLevel, key string) error {
	levelStr := "STANDARD"
	if level == LevelCritical {
		levelStr = "CRITICAL"
	}
	n.logger.Info("Sending notification", "key", key, "level", levelStr)

	n.standard.Send(message)
	if level == LevelCritical {
		n.critical.Send(message)
	}
	return nil
}

func changeMessage(alert types.Notification) string {
	var prefix string
	switch alert.Severity {
	case types.SeverityRug:
		prefix = "🚨 RUG"
	case types.SeverityCaution:
		prefix = "⚠️ CAUTION"
	default:
		prefix = "ℹ️ INFO"
	}

	attr := "commission"
	if alert.Kind == types.KindMEV {
		attr = "MEV commission"
	}

	from := fmt.Sprintf("%d%%", alert.From)
	if alert.FromDisabled {
		from = "disabled"
	}
	to := fmt.Sprintf("%d%%", alert.To)
	if alert.ToDisabled {
		to = "disabled"
	}

	return fmt.Sprintf("%s: validator %s changed %s %s → %s (epoch %d)",
		prefix, alert.VoteAccount, attr, from, to, alert.Epoch)
}
