// Package status carries progress and status notifications from the
// pipelines to whatever is watching them. Sinks are safe for concurrent use
// and never block a pipeline on rendering.
package status

import (
	"sync"
	"sync/atomic"
)

// Sink receives pipeline notifications. Begin announces the number of work
// units, Advance reports completed units and Status carries a
// human-readable message.
type Sink interface {
	Begin(total int)
	Advance(n int)
	Status(msg string)
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Begin(int)     {}
func (Discard) Advance(int)   {}
func (Discard) Status(string) {}

// Multi fans notifications out to several sinks.
type Multi []Sink

func (m Multi) Begin(total int) {
	for _, s := range m {
		s.Begin(total)
	}
}

func (m Multi) Advance(n int) {
	for _, s := range m {
		s.Advance(n)
	}
}

func (m Multi) Status(msg string) {
	for _, s := range m {
		s.Status(msg)
	}
}

// Recorder keeps everything it is told. Tests use it to inspect a run.
type Recorder struct {
	total atomic.Int64
	count atomic.Int64

	mu       sync.Mutex
	messages []string
}

func (r *Recorder) Begin(total int) { r.total.Store(int64(total)) }
func (r *Recorder) Advance(n int)   { r.count.Add(int64(n)) }

func (r *Recorder) Status(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

// Total returns the value of the last Begin.
func (r *Recorder) Total() int { return int(r.total.Load()) }

// Count returns the sum of all Advance calls.
func (r *Recorder) Count() int { return int(r.count.Load()) }

// Messages returns a copy of the statuses received so far.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

// Last returns the most recent status, or "".
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return ""
	}
	return r.messages[len(r.messages)-1]
}
