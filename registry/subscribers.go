// Package registry implements the subscribers registry: an identity-keyed
// catalog of subscribers, their topic subscriptions, and a reverse index
// from topic pattern to subscribers. It carries no internal locking — it is
// owned exclusively by the broker's single loop goroutine (§5 of the
// protocol design), the same "single owner, no locks" discipline the
// teacher's session cache relaxes into sharded locking only because it is
// shared across many goroutines. Here it is not.
package registry

import (
	"errors"
	"net"

	"github.com/lattixio/telemetry-mesh/topics"
)

// ErrAlreadyConnected is returned by Attach when the client id is already
// bound to a live connection.
var ErrAlreadyConnected = errors.New("registry: client already connected")

// Subscriber is a single client's persistent record: its identifier, its
// current connection (nil when detached), and its topic subscriptions.
// The record survives detach/reattach so subscriptions are not lost across
// a disconnection.
type Subscriber struct {
	ID       string
	Conn     net.Conn // nil while detached
	Patterns map[string]topics.Pattern
}

// Attached reports whether the subscriber currently has a live connection.
func (s *Subscriber) Attached() bool {
	return s.Conn != nil
}

// Registry is the subscribers registry: id-index (owner), connection-index
// (attached subscribers only), and pattern-index (reverse lookup for
// fan-out).
type Registry struct {
	byID      map[string]*Subscriber
	byConn    map[net.Conn]*Subscriber
	byPattern map[string]*bucket
}

type bucket struct {
	pattern     topics.Pattern
	subscribers map[*Subscriber]struct{}
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byID:      make(map[string]*Subscriber),
		byConn:    make(map[net.Conn]*Subscriber),
		byPattern: make(map[string]*bucket),
	}
}

// Attach binds conn to the subscriber identified by id. If id is known and
// currently detached, the existing record is reattached and its prior
// subscriptions are preserved. If id is known and already attached, Attach
// fails with ErrAlreadyConnected and leaves the incumbent connection
// untouched. Otherwise a new record is created.
func (r *Registry) Attach(conn net.Conn, id string) (*Subscriber, error) {
	if sub, ok := r.byID[id]; ok {
		if sub.Attached() {
			return nil, ErrAlreadyConnected
		}
		sub.Conn = conn
		r.byConn[conn] = sub
		return sub, nil
	}

	sub := &Subscriber{
		ID:       id,
		Conn:     conn,
		Patterns: make(map[string]topics.Pattern),
	}
	r.byID[id] = sub
	r.byConn[conn] = sub
	return sub, nil
}

// Detach marks the subscriber owning conn as detached. Subscriptions are
// retained. An unknown connection is a silent no-op.
func (r *Registry) Detach(conn net.Conn) {
	sub, ok := r.byConn[conn]
	if !ok {
		return
	}
	delete(r.byConn, conn)
	sub.Conn = nil
}

// BySubscriberConn returns the subscriber attached at conn, if any.
func (r *Registry) BySubscriberConn(conn net.Conn) (*Subscriber, bool) {
	sub, ok := r.byConn[conn]
	return sub, ok
}

// Subscribe adds pattern to the subscriber attached at conn and indexes it
// in the pattern bucket. Subscribing to the same pattern twice is
// idempotent.
func (r *Registry) Subscribe(conn net.Conn, pattern topics.Pattern) {
	sub, ok := r.byConn[conn]
	if !ok {
		return
	}
	key := pattern.String()
	sub.Patterns[key] = pattern

	b, ok := r.byPattern[key]
	if !ok {
		b = &bucket{pattern: pattern, subscribers: make(map[*Subscriber]struct{})}
		r.byPattern[key] = b
	}
	b.subscribers[sub] = struct{}{}
}

// Unsubscribe removes pattern from the subscriber attached at conn. If the
// pattern's bucket becomes empty, the bucket itself is removed.
func (r *Registry) Unsubscribe(conn net.Conn, pattern topics.Pattern) {
	sub, ok := r.byConn[conn]
	if !ok {
		return
	}
	key := pattern.String()
	delete(sub.Patterns, key)

	b, ok := r.byPattern[key]
	if !ok {
		return
	}
	delete(b.subscribers, sub)
	if len(b.subscribers) == 0 {
		delete(r.byPattern, key)
	}
}

// RecipientsFor scans the pattern index and returns the connections of
// every currently-attached subscriber holding a pattern that matches
// concreteTopic. The scan cost is proportional to the number of distinct
// patterns in the index, not the number of subscribers.
func (r *Registry) RecipientsFor(concreteTopic topics.Pattern) []net.Conn {
	seen := make(map[net.Conn]struct{})
	var out []net.Conn
	for _, b := range r.byPattern {
		if !b.pattern.Match(concreteTopic) {
			continue
		}
		for sub := range b.subscribers {
			if !sub.Attached() {
				continue
			}
			if _, dup := seen[sub.Conn]; dup {
				continue
			}
			seen[sub.Conn] = struct{}{}
			out = append(out, sub.Conn)
		}
	}
	return out
}
