package state

import (
	"sync"
	"time"
)

// Manager stores sessions keyed by user id. Single calls are safe for
// concurrent use; a read-modify-write across calls needs Lock (or the
// Serialize middleware) to keep updates of one user from interleaving.
type Manager[T any] struct {
	mu       sync.RWMutex
	locks    userLocks
	sessions map[int64]*Session[T]
	ttl      time.Duration
	now      func() time.Time
	handlers map[State]Handler
}

// Option tweaks a Manager.
type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL expires sessions untouched for longer than ttl. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// NewMemoryManager constructs an in-memory session manager.
func NewMemoryManager[T any](opts ...Option) *Manager[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager[T]{
		sessions: make(map[int64]*Session[T]),
		ttl:      o.ttl,
		now:      o.now,
		handlers: make(map[State]Handler),
	}
}

func (m *Manager[T]) expired(s *Session[T], now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.Touched) > m.ttl
}

// Get returns a copy of the user's session or an idle one.
func (m *Manager[T]) Get(userID int64) Session[T] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[userID]; ok && !m.expired(s, m.now()) {
		return *s
	}
	return Session[T]{State: StateIdle}
}

// Set replaces the state and data of the user's session.
func (m *Manager[T]) Set(userID int64, st State, data T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = &Session[T]{State: st, Data: data, Touched: m.now()}
}

// Update applies fn to the stored session, creating an idle one if needed.
// An expired session is reset before fn sees it.
func (m *Manager[T]) Update(userID int64, fn func(s *Session[T])) Session[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	s, ok := m.sessions[userID]
	if !ok || m.expired(s, now) {
		s = &Session[T]{State: StateIdle}
		m.sessions[userID] = s
	}
	fn(s)
	s.Touched = now
	return *s
}

// SetState moves the user to st, keeping the session data.
func (m *Manager[T]) SetState(userID int64, st State) {
	m.Update(userID, func(s *Session[T]) { s.State = st })
}

// GetState returns the current state of a user, or StateIdle if none exists.
func (m *Manager[T]) GetState(userID int64) State {
	return m.Get(userID).State
}

// Clear removes the entire session for a user.
func (m *Manager[T]) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// InProgress reports whether the user currently has an active state.
func (m *Manager[T]) InProgress(userID int64) bool {
	return !m.Get(userID).Idle()
}

// Len returns the number of stored sessions, expired ones included.
func (m *Manager[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (m *Manager[T]) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}
