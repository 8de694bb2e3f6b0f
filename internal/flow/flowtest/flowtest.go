// Package flowtest provides test doubles for the conversation packages.
package flowtest

import (
	"context"
	"strings"
	"sync"

	"github.com/m3rciful/cupbot/internal/flow"
)

// Kind tells which Responder method produced a Reply.
type Kind string

const (
	KindSend   Kind = "send"
	KindEdit   Kind = "edit"
	KindAnswer Kind = "answer"
)

// Reply is one recorded outbound call.
type Reply struct {
	Kind     Kind
	Text     string
	Keyboard *flow.Keyboard
}

// HasButton reports whether the reply keyboard carries a button with the given label or payload.
func (r Reply) HasButton(s string) bool {
	if r.Keyboard == nil {
		return false
	}
	for _, row := range r.Keyboard.Reply {
		for _, l := range row {
			if l == s {
				return true
			}
		}
	}
	for _, row := range r.Keyboard.Inline {
		for _, b := range row {
			if b.Text == s || b.Data == s {
				return true
			}
		}
	}
	return false
}

// Recorder is a flow.Responder that keeps every call.
type Recorder struct {
	mu      sync.Mutex
	Replies []Reply
}

var _ flow.Responder = (*Recorder)(nil)

func (r *Recorder) add(kind Kind, text string, kb *flow.Keyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Replies = append(r.Replies, Reply{Kind: kind, Text: text, Keyboard: kb})
	return nil
}

func (r *Recorder) Send(_ context.Context, text string, kb *flow.Keyboard) error {
	return r.add(KindSend, text, kb)
}

func (r *Recorder) Edit(_ context.Context, text string, kb *flow.Keyboard) error {
	return r.add(KindEdit, text, kb)
}

func (r *Recorder) Answer(_ context.Context, text string) error {
	return r.add(KindAnswer, text, nil)
}

// Last returns the latest reply, or a zero Reply.
func (r *Recorder) Last() Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Replies) == 0 {
		return Reply{}
	}
	return r.Replies[len(r.Replies)-1]
}

// Contains reports whether any reply text contains sub.
func (r *Recorder) Contains(sub string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rep := range r.Replies {
		if strings.Contains(rep.Text, sub) {
			return true
		}
	}
	return false
}

// Reset drops recorded replies.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Replies = nil
}
