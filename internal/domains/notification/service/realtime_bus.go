package service

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ================================================
// REALTIME BUS IMPLEMENTATION
// ================================================
// Grounded on websocket_service.go's register/unregister/broadcast channel
// shape, collapsed to an in-process subscribe/publish port so the transport
// (websocket, SSE, or a test harness) stays out of the domain layer.

type subscription struct {
	id      uint64
	handler func(Event)
}

type realtimeBus struct {
	mu      sync.RWMutex
	nextID  uint64
	byUser  map[uuid.UUID]map[uint64]subscription
}

func NewRealtimeBus() RealtimeBus {
	return &realtimeBus{byUser: make(map[uuid.UUID]map[uint64]subscription)}
}

// Subscribe registers handler for events addressed to userID. A second
// Subscribe call for the same userID adds a second, independent
// subscription (one per client connection); each returned unsubscribe
// func removes only its own registration.
func (b *realtimeBus) Subscribe(userID uuid.UUID, handler func(Event)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.byUser[userID] == nil {
		b.byUser[userID] = make(map[uint64]subscription)
	}
	b.byUser[userID][id] = subscription{id: id, handler: handler}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.byUser[userID]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(b.byUser, userID)
			}
		}
	}
}

// Publish fans event out to every subscriber of event.Row.UserID. A
// handler panic is contained so one broken subscriber can't take down
// the publisher or other subscribers.
func (b *realtimeBus) Publish(event Event) {
	b.mu.RLock()
	subs := make([]subscription, 0, len(b.byUser[event.Row.UserID]))
	for _, s := range b.byUser[event.Row.UserID] {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		s := s
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Msg("realtime bus: subscriber handler panicked")
				}
			}()
			s.handler(event)
		}()
	}
}
