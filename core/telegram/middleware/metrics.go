package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "out_counters"

// Counters describes what a handler sent back for one update. Sends may run
// on dispatcher workers, so the fields are atomic.
type Counters struct {
	sent     atomic.Int32
	edited   atomic.Int32
	keyboard atomic.Bool
}

// Sent is the number of new messages (send and reply).
func (c *Counters) Sent() int { return int(c.sent.Load()) }

// Edited is the number of edited messages.
func (c *Counters) Edited() int { return int(c.edited.Load()) }

// Keyboard reports whether any outgoing message carried markup.
func (c *Counters) Keyboard() bool { return c.keyboard.Load() }

// countingContext proxies the outgoing calls of tele.Context into Counters.
type countingContext struct {
	tele.Context
	counters *Counters
}

func (m countingContext) count(edit bool, opts []any) {
	if edit {
		m.counters.edited.Add(1)
	} else {
		m.counters.sent.Add(1)
	}
	if carriesMarkup(opts) {
		m.counters.keyboard.Store(true)
	}
}

func carriesMarkup(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (m countingContext) Send(what any, opts ...any) error {
	err := m.Context.Send(what, opts...)
	if err == nil {
		m.count(false, opts)
	}
	return err
}

func (m countingContext) Reply(what any, opts ...any) error {
	err := m.Context.Reply(what, opts...)
	if err == nil {
		m.count(false, opts)
	}
	return err
}

func (m countingContext) Edit(what any, opts ...any) error {
	err := m.Context.Edit(what, opts...)
	if err == nil {
		m.count(true, opts)
	}
	return err
}

// MessageMetricsMiddleware counts the messages a handler sends or edits.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, wrapped := c.(countingContext); wrapped {
			return next(c)
		}
		counters := &Counters{}
		c.Set(countersKey, counters)
		return next(countingContext{Context: c, counters: counters})
	}
}

// GetCounters returns the counters of the update, or an empty set when the
// metrics middleware did not run.
func GetCounters(c tele.Context) *Counters {
	if counters, ok := c.Get(countersKey).(*Counters); ok {
		return counters
	}
	return &Counters{}
}
