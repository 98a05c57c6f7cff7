package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeUserBanned   EventType = "user_banned"
	EventTypeCoinsGranted EventType = "coins_granted"
	EventTypeGiftSent     EventType = "gift_sent"
)

// Event is the base interface for all events
type Event interface {
	EventType() string
}

// UserBannedEvent fires when an admin bans or unbans a user. Live sessions
// for that user are told immediately instead of waiting for their next
// gated action to be rejected.
type UserBannedEvent struct {
	UserID   string
	Username string
	Banned   bool
}

func (e UserBannedEvent) EventType() string {
	return string(EventTypeUserBanned)
}

// CoinsGrantedEvent fires when an admin grant or top-up lands, carrying the
// post-credit balance so live sessions can refresh without a reload.
type CoinsGrantedEvent struct {
	UserID   string
	Amount   int64
	NewCoins int64
}

func (e CoinsGrantedEvent) EventType() string {
	return string(EventTypeCoinsGranted)
}

// GiftSentEvent fires after a gift purchase commits.
type GiftSentEvent struct {
	UserID   string
	GiftID   string
	Room     string
	Cost     int64
	NewCoins int64
}

func (e GiftSentEvent) EventType() string {
	return string(EventTypeGiftSent)
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[EventType(event.EventType())]))
	copy(handlers, b.handlers[EventType(event.EventType())])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.EventType(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Call handlers asynchronously to avoid blocking the emitter
	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.EventType(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}

// TransactionalBus stashes events raised inside a unit of work and flushes
// them to the real bus only after the database commit succeeds.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish queues an event until Flush or Discard
func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events; called after a successful commit. Events
// are emitted on a background context so they outlive the transaction.
func (b *TransactionalBus) Flush() {
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops pending events; called after rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
