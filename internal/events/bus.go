// Package events carries host events to the listeners that judge them
package events

import (
	"sort"
	"sync"

	duelerr "github.com/KirkDiggler/cduello/internal/errors"
	"github.com/sirupsen/logrus"
)

// EventListener processes events
type EventListener interface {
	HandleEvent(event Event) error
	Priority() int
	ID() string
}

// Bus manages event distribution
type Bus struct {
	listeners map[EventType][]EventListener
	logger    logrus.FieldLogger
	mu        sync.RWMutex
}

// NewBus creates a new event bus. A nil logger uses the standard logger.
func NewBus(logger logrus.FieldLogger) *Bus {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Bus{
		listeners: make(map[EventType][]EventListener),
		logger:    logger.WithField("component", "events"),
	}
}

// Subscribe adds a listener for specific event types
func (b *Bus) Subscribe(eventType EventType, listener EventListener) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listeners[eventType] = append(b.listeners[eventType], listener)

	// Sort by priority
	sort.SliceStable(b.listeners[eventType], func(i, j int) bool {
		return b.listeners[eventType][i].Priority() < b.listeners[eventType][j].Priority()
	})

	b.logger.WithFields(logrus.Fields{
		"listener": listener.ID(),
		"event":    eventType,
		"priority": listener.Priority(),
	}).Debug("Subscribed listener")
}

// Unsubscribe removes a listener
func (b *Bus) Unsubscribe(eventType EventType, listenerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	listeners := b.listeners[eventType]
	for i, l := range listeners {
		if l.ID() != listenerID {
			continue
		}
		b.listeners[eventType] = append(listeners[:i:i], listeners[i+1:]...)
		b.logger.WithFields(logrus.Fields{"listener": listenerID, "event": eventType}).Debug("Unsubscribed listener")
		return
	}
}

// Emit sends an event to all registered listeners
func (b *Bus) Emit(event Event) error {
	b.mu.RLock()
	listeners := make([]EventListener, len(b.listeners[event.GetType()]))
	copy(listeners, b.listeners[event.GetType()])
	b.mu.RUnlock()

	// Process listeners in priority order
	for _, listener := range listeners {
		if event.IsCancelled() {
			break
		}

		if err := listener.HandleEvent(event); err != nil {
			return duelerr.Wrapf(err, "listener %s failed", listener.ID())
		}
	}

	return nil
}

// Clear removes all listeners
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listeners = make(map[EventType][]EventListener)
}
