// Package event handles triggering of operations without direct dependency
package event

import (
	"context"
	"sync"

	"umlforge/local-app/internal/log"
)

// Event is anything that reports its own type tag
type Event[T comparable] interface {
	EventType() T
}

// Handler is a function type for event handlers
type Handler[E any] func(E)

type subscription[E any] struct {
	id      uint64
	handler Handler[E]
}

// Manager manages event subscriptions and publications.
// Publish delivers synchronously, in subscription order, on the caller's goroutine.
type Manager[T comparable, E Event[T]] struct {
	subscribers map[T][]subscription[E]
	all         []subscription[E]
	nextID      uint64
	mu          sync.RWMutex
	logger      *log.Logger
}

// NewManager creates a new Manager instance
func NewManager[T comparable, E Event[T]](logger *log.Logger) *Manager[T, E] {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Manager[T, E]{
		subscribers: make(map[T][]subscription[E]),
		logger:      logger,
	}
}

// Subscribe adds a handler for a specific event type and returns a function removing it
func (m *Manager[T, E]) Subscribe(eventType T, handler Handler[E]) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.subscribers[eventType] = append(m.subscribers[eventType], subscription[E]{id: id, handler: handler})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.subscribers[eventType] = removeSubscription(m.subscribers[eventType], id)
	}
}

// SubscribeAll adds a handler receiving every event
func (m *Manager[T, E]) SubscribeAll(handler Handler[E]) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.all = append(m.all, subscription[E]{id: id, handler: handler})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.all = removeSubscription(m.all, id)
	}
}

// Publish sends an event to all subscribed handlers.
// A panicking handler is logged and does not prevent the remaining handlers from running.
func (m *Manager[T, E]) Publish(event E) {
	m.mu.RLock()
	handlers := make([]subscription[E], 0, len(m.subscribers[event.EventType()])+len(m.all))
	handlers = append(handlers, m.subscribers[event.EventType()]...)
	handlers = append(handlers, m.all...)
	m.mu.RUnlock()

	for _, s := range handlers {
		m.dispatch(s.handler, event)
	}
}

func (m *Manager[T, E]) dispatch(handler Handler[E], event E) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error(context.Background(), "Panic in event handler", log.Fields{
				"event": event.EventType(),
				"panic": r,
			})
		}
	}()
	handler(event)
}

func removeSubscription[E any](subs []subscription[E], id uint64) []subscription[E] {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
