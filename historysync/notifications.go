// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package historysync

import (
	"container/list"
	"fmt"
	"sync"
)

// EventType represents the type of an engine event.
type EventType int

// Constants for the type of an event.
const (
	// EventStart indicates the catch-up loop has begun.
	EventStart EventType = iota

	// EventProgress indicates the completion value crossed a reporting
	// threshold.
	EventProgress

	// EventFinish indicates the local store reached the remote tip.  The
	// network listener has been released by the time it is delivered.
	EventFinish
)

// eventTypeStrings is a map of event types back to their constant names for
// pretty printing.
var eventTypeStrings = map[EventType]string{
	EventStart:    "EventStart",
	EventProgress: "EventProgress",
	EventFinish:   "EventFinish",
}

// String returns the EventType in human-readable form.
func (t EventType) String() string {
	if s, ok := eventTypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("Unknown EventType (%d)", int(t))
}

// Info is a point in time snapshot of the engine state.
type Info struct {
	// Progress is the completion value rendered with six decimals.
	Progress string

	// Local is the highest block in the local store.
	Local BlockRef

	// Remote is the last known remote tip.
	Remote BlockRef
}

// Event is delivered to subscribers.  Info is the engine state at the time
// the event was raised.
type Event struct {
	Type EventType
	Info Info
}

// Subscription receives engine events on C in the order they were raised.
// Delivery never blocks the engine; events queue up until the subscriber
// reads them.  C is closed once Unsubscribe is called.
type Subscription struct {
	C <-chan Event

	c       chan Event
	mtx     sync.Mutex
	pending *list.List
	wake    chan struct{}
	quit    chan struct{}
	once    sync.Once
	n       *notifier
}

// Unsubscribe stops delivery and closes C.  Events still queued are dropped.
// It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.n.remove(s)
		close(s.quit)
	})
}

// enqueue queues an event for delivery without blocking.
func (s *Subscription) enqueue(e Event) {
	s.mtx.Lock()
	s.pending.PushBack(e)
	s.mtx.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// deliveryHandler moves queued events to C.  It must be run as a goroutine.
func (s *Subscription) deliveryHandler() {
	defer close(s.c)

	for {
		s.mtx.Lock()
		next := s.pending.Front()
		if next != nil {
			s.pending.Remove(next)
		}
		s.mtx.Unlock()

		if next == nil {
			select {
			case <-s.wake:
				continue
			case <-s.quit:
				return
			}
		}

		select {
		case s.c <- next.Value.(Event):
		case <-s.quit:
			return
		}
	}
}

// notifier fans engine events out to subscriptions.
type notifier struct {
	mtx  sync.Mutex
	subs map[*Subscription]struct{}
}

// subscribe registers and returns a new subscription.
func (n *notifier) subscribe() *Subscription {
	c := make(chan Event)
	s := &Subscription{
		C:       c,
		c:       c,
		pending: list.New(),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		n:       n,
	}

	n.mtx.Lock()
	if n.subs == nil {
		n.subs = make(map[*Subscription]struct{})
	}
	n.subs[s] = struct{}{}
	n.mtx.Unlock()

	go s.deliveryHandler()
	return s
}

func (n *notifier) remove(s *Subscription) {
	n.mtx.Lock()
	delete(n.subs, s)
	n.mtx.Unlock()
}

// publish queues e on every current subscription.
func (n *notifier) publish(e Event) {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	for s := range n.subs {
		s.enqueue(e)
	}
}
