package connectivity

import "sync"

// StaticMonitor is a manually driven Monitor for tests and for hosts that
// already own a connectivity signal.
type StaticMonitor struct {
	hub subscriberHub

	mu      sync.Mutex
	offline bool
}

// NewStaticMonitor creates a monitor reporting the given initial state.
func NewStaticMonitor(offline bool) *StaticMonitor {
	return &StaticMonitor{offline: offline}
}

// Offline reports the current state.
func (m *StaticMonitor) Offline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offline
}

// SetOffline updates the state, notifying subscribers only when it changes.
func (m *StaticMonitor) SetOffline(offline bool) {
	m.mu.Lock()
	if m.offline == offline {
		m.mu.Unlock()
		return
	}
	m.offline = offline
	m.mu.Unlock()

	m.hub.notify(offline)
}

// Subscribe registers fn for transition notifications.
func (m *StaticMonitor) Subscribe(fn func(offline bool)) func() {
	return m.hub.subscribe(fn)
}
