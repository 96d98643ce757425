package notifications

import (
	"context"
	"sync"
	"time"
)

// CooldownStore suppresses repeat alerts for the same key inside a TTL
// window. Acquire returns true when the caller holds the window and may
// send.
type CooldownStore interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// MemoryCooldown is the process-local CooldownStore. State is lost on
// restart, which at worst means one extra alert.
type MemoryCooldown struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{
		last: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (m *MemoryCooldown) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sent, ok := m.last[key]; ok && m.now().Sub(sent) < ttl {
		return false, nil
	}
	m.last[key] = m.now()
	return true, nil
}
