package state

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

// userLocks hands out one mutex per user, dropping it once nobody holds or
// waits on it.
type userLocks struct {
	mu   sync.Mutex
	held map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	if l.held == nil {
		l.held = make(map[int64]*userLock)
	}
	ul, ok := l.held[userID]
	if !ok {
		ul = &userLock{}
		l.held[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		if ul.refs--; ul.refs == 0 {
			delete(l.held, userID)
		}
		l.mu.Unlock()
	}
}

// Lock blocks until the caller owns the user's dialogue and returns the
// release func. Reads and writes of one session between Lock and release
// are not interleaved with another locked update of that user.
func (m *Manager[T]) Lock(userID int64) (unlock func()) {
	return m.locks.lock(userID)
}

// Serialize is a middleware that runs the updates of one user one at a time.
// Updates without a sender pass straight through.
func (m *Manager[T]) Serialize(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		user := c.Sender()
		if user == nil {
			return next(c)
		}
		unlock := m.Lock(user.ID)
		defer unlock()
		return next(c)
	}
}
