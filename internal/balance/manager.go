package balance

import (
	"context"
	"log"
	"sync"
	"time"
)

// Source supplies the venue-side account balance.
type Source interface {
	Available() float64
}

// Manager caches the tradable account balance. With a Source configured it
// re-syncs periodically; without one it starts from a fixed configured value.
// Realized PnL is folded in between syncs so margin checks stay current.
type Manager struct {
	mu        sync.RWMutex
	source    Source
	available float64
	lastSync  time.Time

	interval time.Duration
}

// NewManager creates a balance manager. source may be nil; initial seeds the
// cache and is the standing value when no source exists.
func NewManager(source Source, initial float64, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Manager{
		source:    source,
		available: initial,
		interval:  interval,
	}
}

// Start begins periodic syncs until ctx is cancelled. No-op without a source.
func (m *Manager) Start(ctx context.Context) {
	if m.source == nil {
		return
	}
	m.Sync()

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sync()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Sync pulls the current balance from the source.
func (m *Manager) Sync() {
	if m.source == nil {
		return
	}
	v := m.source.Available()
	m.mu.Lock()
	m.available = v
	m.lastSync = time.Now()
	m.mu.Unlock()
}

// Available returns the cached tradable balance.
func (m *Manager) Available() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.available
}

// ApplyPnL folds a realized PnL delta into the cache between syncs.
func (m *Manager) ApplyPnL(delta float64) {
	m.mu.Lock()
	m.available += delta
	if m.available < 0 {
		log.Printf("balance: available went negative (%.2f)", m.available)
	}
	m.mu.Unlock()
}

// LastSync returns the time of the last successful source sync.
func (m *Manager) LastSync() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}
