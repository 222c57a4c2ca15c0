// Package netmon tracks the device's connectivity state and fans changes out
// to subscribers.
//
// Transitions to online are delivered immediately so queued mutations start
// draining as soon as the network returns. Transitions to offline are held
// back for a short debounce window; brief drops (elevator, tunnel, Wi-Fi
// handover) come and go without the rest of the app ever hearing about them.
package netmon

import (
	"sync"
	"time"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
)

// Listener receives connectivity transitions. It is invoked without the
// monitor's lock held, so implementations may call back into the monitor.
type Listener func(online bool)

// Monitor holds the current connectivity state. Probing is someone else's
// job: a background prober feeds observations in through [Monitor.SetOnline].
type Monitor struct {
	mu           sync.Mutex
	online       bool
	debounce     time.Duration
	offlineTimer *time.Timer

	nextID    int
	listeners map[int]Listener

	logger *logger.Logger
}

// NewMonitor constructs a Monitor that starts in the offline state. The
// first successful probe flips it online; starting pessimistic means the
// queue never attempts a drain before connectivity is confirmed.
func NewMonitor(debounce time.Duration, logger *logger.Logger) *Monitor {
	return &Monitor{
		debounce:  debounce,
		listeners: make(map[int]Listener),
		logger:    logger,
	}
}

// IsOnline reports the current debounced connectivity state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers a listener for connectivity transitions and returns a
// function that removes it. The listener is not called with the current
// state at subscribe time; callers that need it should read
// [Monitor.IsOnline] first.
func (m *Monitor) Subscribe(listener Listener) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = listener

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// SetOnline feeds a connectivity observation into the monitor.
//
// An online observation cancels any pending offline notification and, if the
// state actually changed, notifies listeners immediately. An offline
// observation arms a timer instead; listeners hear about it only if no
// online observation arrives within the debounce window.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()

	if online {
		if m.offlineTimer != nil {
			m.offlineTimer.Stop()
			m.offlineTimer = nil
		}
		if m.online {
			m.mu.Unlock()
			return
		}
		m.online = true
		listeners := m.snapshotListeners()
		m.mu.Unlock()

		m.logger.Info().Str("func", "*Monitor.SetOnline").Msg("connectivity restored")
		notify(listeners, true)
		return
	}

	if !m.online || m.offlineTimer != nil {
		m.mu.Unlock()
		return
	}
	m.offlineTimer = time.AfterFunc(m.debounce, m.confirmOffline)
	m.mu.Unlock()
}

// confirmOffline fires after the debounce window with no contradicting
// online observation.
func (m *Monitor) confirmOffline() {
	m.mu.Lock()
	if m.offlineTimer == nil {
		// an online observation won the race
		m.mu.Unlock()
		return
	}
	m.offlineTimer = nil
	m.online = false
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	m.logger.Info().Str("func", "*Monitor.confirmOffline").Msg("connectivity lost")
	notify(listeners, false)
}

// snapshotListeners must be called with the lock held.
func (m *Monitor) snapshotListeners() []Listener {
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	return listeners
}

func notify(listeners []Listener, online bool) {
	for _, l := range listeners {
		l(online)
	}
}
