package state

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func TestSerializeRunsOneUserAtATime(t *testing.T) {
	m := NewMemoryManager[draft]()
	var running, peak atomic.Int32
	h := m.Serialize(func(c tele.Context) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		// Read-modify-write that loses items without the lock.
		s := m.Get(c.Sender().ID)
		time.Sleep(time.Millisecond)
		m.Set(c.Sender().ID, "reg.roster", draft{Items: append(s.Data.Items, c.Text())})
		running.Add(-1)
		return nil
	})

	bot := &tele.Bot{}
	const updates = 20
	var wg sync.WaitGroup
	for i := 0; i < updates; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := bot.NewContext(tele.Update{Message: &tele.Message{
				Sender: &tele.User{ID: 7},
				Text:   "x",
			}})
			if err := h(c); err != nil {
				t.Errorf("handler: %v", err)
			}
		}()
	}
	wg.Wait()

	if p := peak.Load(); p != 1 {
		t.Fatalf("peak concurrency = %d, want 1", p)
	}
	if got := len(m.Get(7).Data.Items); got != updates {
		t.Fatalf("items = %d, want %d", got, updates)
	}
	if n := len(m.locks.held); n != 0 {
		t.Fatalf("locks left behind: %d", n)
	}
}

func TestLockIsPerUser(t *testing.T) {
	m := NewMemoryManager[draft]()
	unlock := m.Lock(1)

	done := make(chan struct{})
	go func() {
		m.Lock(2)()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		unlock()
		t.Fatal("another user's lock blocked")
	}

	blocked := make(chan struct{})
	go func() {
		m.Lock(1)()
		close(blocked)
	}()
	select {
	case <-blocked:
		t.Fatal("second lock of the same user did not wait")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-blocked
}
