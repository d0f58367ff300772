package registry

import (
	"sync"

	"driftchat/internal/metrics"
)

// SubscriberBuffer bounds pending payloads per subscription. When the buffer
// is full the newest payload is dropped rather than backpressuring the
// pipeline: persistence already succeeded, a missed push only delays the
// recipient until the next history fetch.
const SubscriberBuffer = 100

// Fanout is the per-username delivery handle shared by every live session of
// that user (multi-device). Sessions subscribe a fresh receive end on
// connect and close it on teardown.
type Fanout struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

type Subscription struct {
	// C yields serialized outbound messages; it is closed on Close.
	C <-chan []byte

	c    chan []byte
	f    *Fanout
	once sync.Once
}

func (f *Fanout) Subscribe() *Subscription {
	sub := &Subscription{
		c: make(chan []byte, SubscriberBuffer),
		f: f,
	}
	sub.C = sub.c

	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	return sub
}

// Close detaches the subscription and closes its channel. Safe to call more
// than once; the session teardown path and the registry sweep may both race
// into it.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.f.mu.Lock()
		delete(s.f.subs, s)
		close(s.c)
		s.f.mu.Unlock()
	})
}

// TryPublish enqueues payload on every live subscription without ever
// blocking. A full buffer is counted and skipped. Returns how many
// subscribers actually received the payload.
func (f *Fanout) TryPublish(payload []byte) int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	delivered := 0
	for sub := range f.subs {
		select {
		case sub.c <- payload:
			delivered++
			metrics.FanoutDelivered.Inc()
		default:
			metrics.FanoutDropped.Inc()
		}
	}
	return delivered
}

// Subscribers reports how many live receive ends are attached.
func (f *Fanout) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

func (f *Fanout) idle() bool {
	return f.Subscribers() == 0
}

// Registry is the process-wide directory from username to fan-out handle.
// Constructed once at startup and passed by reference to every session and
// to the pipeline.
type Registry struct {
	mu      sync.RWMutex
	fanouts map[string]*Fanout
}

func New() *Registry {
	return &Registry{fanouts: make(map[string]*Fanout)}
}

// Register returns the fan-out handle for username, creating it on first
// use. At most one handle is ever created per username, no matter how many
// first connections race here.
func (r *Registry) Register(username string) *Fanout {
	r.mu.RLock()
	f, ok := r.fanouts[username]
	r.mu.RUnlock()
	if ok {
		return f
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.fanouts[username]; ok {
		return f
	}
	f = &Fanout{subs: make(map[*Subscription]struct{})}
	r.fanouts[username] = f
	metrics.RegistryEntries.Set(float64(len(r.fanouts)))
	return f
}

// Subscribe attaches a fresh receive end for username, creating the entry on
// first use. Creation and attachment happen under the registry lock, so a
// concurrent Sweep can never remove the entry in between and strand the new
// session on an orphaned handle.
func (r *Registry) Subscribe(username string) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.fanouts[username]
	if !ok {
		f = &Fanout{subs: make(map[*Subscription]struct{})}
		r.fanouts[username] = f
		metrics.RegistryEntries.Set(float64(len(r.fanouts)))
	}
	return f.Subscribe()
}

// TryPublish is the fire-and-forget push: a missing entry or a full buffer
// means "user offline" and is never surfaced as an error to the caller.
func (r *Registry) TryPublish(username string, payload []byte) {
	r.mu.RLock()
	f, ok := r.fanouts[username]
	r.mu.RUnlock()
	if !ok {
		return
	}
	f.TryPublish(payload)
}

// Sweep removes entries that have no live subscription left, so long-idle
// usernames do not accumulate forever. Sessions attach through Subscribe,
// which excludes the sweep while it creates and wires the entry, so a swept
// name is always genuinely idle.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for name, f := range r.fanouts {
		if f.idle() {
			delete(r.fanouts, name)
			removed++
		}
	}
	metrics.RegistryEntries.Set(float64(len(r.fanouts)))
	return removed
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fanouts)
}
