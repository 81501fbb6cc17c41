// Package live turns store mutations into per-user change notifications and
// snapshot subscriptions.
package live

import (
	"sync/atomic"

	"github.com/starford/dock/internal/models"
)

// Change kinds.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// Change describes one mutation of a user's records.
type Change struct {
	UserID string          `json:"-"`
	Kind   string          `json:"kind"`
	ID     string          `json:"id"`
	Type   models.ItemType `json:"type,omitempty"`
}

type subscriber struct {
	userID string
	ch     chan Change
}

// Broker fans changes out to subscribers of the same user.
//
// A single event loop goroutine owns the subscriber set. Public methods talk to
// it over channels, so no mutexes are required.
type Broker struct {
	subscribeCh   chan *subscriber
	unsubscribeCh chan *subscriber
	publishCh     chan Change
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker.
func NewBroker() *Broker {
	b := &Broker{
		subscribeCh:   make(chan *subscriber),
		unsubscribeCh: make(chan *subscriber),
		publishCh:     make(chan Change, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	subs := make(map[*subscriber]struct{})

	for {
		select {
		case <-b.stopCh:
			for s := range subs {
				close(s.ch)
			}
			return

		case s := <-b.subscribeCh:
			subs[s] = struct{}{}

		case s := <-b.unsubscribeCh:
			if _, ok := subs[s]; ok {
				delete(subs, s)
				close(s.ch)
			}

		case c := <-b.publishCh:
			for s := range subs {
				if s.userID != c.UserID {
					continue
				}
				select {
				case s.ch <- c:
				default:
					// Subscriber buffer full; it re-lists anyway.
				}
			}

		case resp := <-b.countReqCh:
			resp <- len(subs)
		}
	}
}

// Close stops the event loop and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscription is a registered listener for one user's changes.
type Subscription struct {
	b *Broker
	s *subscriber
}

// C delivers changes. It is closed by Unsubscribe or Broker.Close.
func (sub *Subscription) C() <-chan Change { return sub.s.ch }

// Unsubscribe removes the listener and closes its channel.
func (sub *Subscription) Unsubscribe() {
	if sub.b.closed.Load() {
		return
	}
	select {
	case sub.b.unsubscribeCh <- sub.s:
	case <-sub.b.stopped:
	}
}

// Subscribe registers a listener for userID.
func (b *Broker) Subscribe(userID string) *Subscription {
	s := &subscriber{userID: userID, ch: make(chan Change, 16)}
	sub := &Subscription{b: b, s: s}
	if b.closed.Load() {
		close(s.ch)
		return sub
	}
	select {
	case b.subscribeCh <- s:
	case <-b.stopped:
		close(s.ch)
	}
	return sub
}

// Publish delivers c to the subscribers of c.UserID.
func (b *Broker) Publish(c Change) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- c:
	case <-b.stopped:
	}
}

// SubscriberCount returns the number of registered listeners.
func (b *Broker) SubscriberCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}
