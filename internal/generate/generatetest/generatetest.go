// Package generatetest provides a scripted Generator for tests.
package generatetest

import (
	"context"
	"errors"
	"sync"

	"github.com/hpungsan/kiln/internal/generate"
)

// ErrScriptExhausted is returned when more calls arrive than replies were scripted.
var ErrScriptExhausted = errors.New("generatetest: no scripted reply left")

// Reply is one scripted answer.
type Reply struct {
	Text string
	Err  error
}

// Call records one Generate invocation.
type Call struct {
	System string
	Turns  []generate.Message
}

// Scripted returns its replies in order and records every call.
type Scripted struct {
	ModelName string

	mu      sync.Mutex
	replies []Reply
	calls   []Call
}

// New returns a Scripted generator that answers with texts in order.
func New(texts ...string) *Scripted {
	s := &Scripted{ModelName: "scripted-model"}
	for _, t := range texts {
		s.replies = append(s.replies, Reply{Text: t})
	}
	return s
}

// Then appends a reply.
func (s *Scripted) Then(text string, err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, Reply{Text: text, Err: err})
	return s
}

func (s *Scripted) Model() string {
	return s.ModelName
}

func (s *Scripted) Generate(_ context.Context, system string, turns []generate.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{System: system, Turns: append([]generate.Message(nil), turns...)})
	if len(s.replies) == 0 {
		return "", ErrScriptExhausted
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.Text, r.Err
}

// Calls returns a copy of the recorded calls.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}
