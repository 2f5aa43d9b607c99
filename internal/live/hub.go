// Package live turns one-shot store reads into subscriptions that re-run
// whenever the transactions table changes.
//
// Writers call Hub.Publish after a successful commit. Every subscriber owns a
// one-slot signal channel, so bursts of writes coalesce into a single re-run
// and a slow subscriber always reads the latest state rather than a backlog.
package live

import (
	"sync"

	"github.com/google/uuid"
)

type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// Change describes a committed mutation of the transactions table.
type Change struct {
	Op      Op     `json:"op"`
	ID      int64  `json:"id"`
	Date    int64  `json:"date,omitempty"`
	Origin  string `json:"origin,omitempty"`
	Version uint64 `json:"version,omitempty"`
}

type Hub struct {
	origin string

	mu        sync.Mutex
	version   uint64
	subs      map[*Subscription]struct{}
	listeners map[int]func(Change)
	nextKey   int
}

func NewHub() *Hub {
	return &Hub{
		origin:    uuid.NewString(),
		subs:      make(map[*Subscription]struct{}),
		listeners: make(map[int]func(Change)),
	}
}

// Origin identifies this process when changes are relayed to other instances.
func (h *Hub) Origin() string {
	return h.origin
}

// Version is the number of changes observed so far.
func (h *Hub) Version() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.version
}

// Publish records a change and wakes every subscriber. Changes without an
// origin are stamped as local.
func (h *Hub) Publish(c Change) Change {
	if c.Origin == "" {
		c.Origin = h.origin
	}

	h.mu.Lock()
	h.version++
	c.Version = h.version
	subs := make([]*Subscription, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	listeners := make([]func(Change), 0, len(h.listeners))
	for _, fn := range h.listeners {
		listeners = append(listeners, fn)
	}
	h.mu.Unlock()

	// Listeners run before any subscriber is woken.
	for _, fn := range listeners {
		fn(c)
	}
	for _, s := range subs {
		s.notify()
	}
	return c
}

// OnChange registers fn to run synchronously on every Publish. fn must not
// block. The returned func unregisters it.
func (h *Hub) OnChange(fn func(Change)) (unregister func()) {
	h.mu.Lock()
	key := h.nextKey
	h.nextKey++
	h.listeners[key] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.listeners, key)
		h.mu.Unlock()
	}
}

// Subscribers returns the number of attached subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Subscription receives a signal after one or more changes.
type Subscription struct {
	hub  *Hub
	c    chan struct{}
	once sync.Once
}

func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{hub: h, c: make(chan struct{}, 1)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// C is signalled when the table changed since the last receive.
func (s *Subscription) C() <-chan struct{} {
	return s.c
}

func (s *Subscription) notify() {
	select {
	case s.c <- struct{}{}:
	default:
	}
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
	})
}
