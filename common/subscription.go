package common

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const subscriptionChanSize = 16

// SubscriptionTarget defines the interface between a subscription and its
// target object
type SubscriptionTarget interface {
	NewSubscription() (*Subscription, error)
	CloseSubscription(*Subscription) error
}

// Subscription exposes an event channel for consumers, and attaches to a
// SubscriptionTarget, that will feed it with events
type Subscription struct {
	events   chan any
	quitChan chan struct{}
	id       uuid.UUID
	target   SubscriptionTarget
	closed   bool
	closeMu  sync.Mutex
	sync.RWMutex
}

// ID returns the unique ID for this subscription
func (s *Subscription) ID() string {
	return s.id.String()
}

// Events returns a chan reader for reading events published to this
// subscription
func (s *Subscription) Events() <-chan any {
	return s.events
}

// Write pushes an event onto the events channel, giving up after
// DefaultTimeout if the consumer is not reading
func (s *Subscription) Write(event any) error {
	s.RLock()
	defer s.RUnlock()
	select {
	case <-s.quitChan:
		return ErrClosed
	default:
	}

	timeout := time.NewTimer(DefaultTimeout)
	defer timeout.Stop()
	select {
	case <-s.quitChan:
		return ErrClosed
	case s.events <- event:
		return nil
	case <-timeout.C:
		return ErrTimeout
	}
}

// Close cleans up resources and notifies the target that the subscription
// should no longer be used.  It is important to close subscriptions when you
// are done with them to avoid blocking operations.
func (s *Subscription) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		Log.Warnf(`subscription %s already closed`, s.ID())
		return ErrClosed
	}
	s.closed = true
	// Unblock pending writers before taking the write lock
	close(s.quitChan)
	s.closeMu.Unlock()
	s.Lock()
	close(s.events)
	s.Unlock()
	return s.target.CloseSubscription(s)
}

// NewSubscription returns a *Subscription attached to the specified target
func NewSubscription(target SubscriptionTarget) *Subscription {
	return &Subscription{
		events:   make(chan any, subscriptionChanSize),
		quitChan: make(chan struct{}),
		id:       uuid.New(),
		target:   target,
	}
}
