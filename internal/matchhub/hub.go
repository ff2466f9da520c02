package matchhub

import (
	"encoding/json"
	"log"

	"radargo/backend/internal/models"
)

// Hub keeps the registry of connected clients and fans change events out to
// them. Events arrive from two sources: the matcher dispatches the outcomes
// of its own pairing attempts, and the redis change listener replays events
// published by any backend instance. Duplicate delivery is harmless, the
// client projection is idempotent.
type Hub struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	// EventCh carries change events awaiting fan-out.
	EventCh chan models.ChangeEvent

	Storage Store
}

func NewHub(s Store) *Hub {
	return &Hub{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		EventCh:      make(chan models.ChangeEvent, 64),
		Storage:      s,
	}
}

// Dispatch hands an event to the hub loop for fan-out. Safe from any
// goroutine.
func (h *Hub) Dispatch(ev models.ChangeEvent) {
	h.EventCh <- ev
}

// StartChangeListener subscribes to the shared change channel and feeds
// incoming events into the hub loop.
func (h *Hub) StartChangeListener() {
	go func() {
		pubsub := h.Storage.SubscribeChanges()
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var ev models.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("Error unmarshalling change event: %v", err)
				continue
			}
			h.EventCh <- ev
		}
	}()
}

// Run is the hub dispatcher goroutine. It owns the Clients map.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.RegisterCh:
			h.Clients[client.GetParticipantID()] = client

		case client := <-h.UnregisterCh:
			if current, ok := h.Clients[client.GetParticipantID()]; ok && current == client {
				delete(h.Clients, client.GetParticipantID())
				client.Close()
			}

		case ev := <-h.EventCh:
			h.route(ev)
		}
	}
}

// route delivers an event to the clients it concerns. A client whose send
// buffer is full simply misses the push; its periodic re-poll covers the gap.
func (h *Hub) route(ev models.ChangeEvent) {
	switch ev.Table {
	case models.TableQueue:
		if ev.ParticipantID != "" {
			h.deliver(ev.ParticipantID, ev)
		}
		if ev.MatchedWith != "" {
			h.deliver(ev.MatchedWith, ev)
		}

	case models.TableSessions:
		if ev.SessionID == "" {
			return
		}
		session, err := h.Storage.GetSession(ev.SessionID)
		if err != nil {
			return
		}
		h.deliver(session.ParticipantAID, ev)
		h.deliver(session.ParticipantBID, ev)

	case models.TableParticipants:
		// Presence changes concern everyone watching the radar.
		for _, client := range h.Clients {
			select {
			case client.GetSendChannel() <- ev:
			default:
			}
		}
	}
}

func (h *Hub) deliver(participantID string, ev models.ChangeEvent) {
	client, ok := h.Clients[participantID]
	if !ok {
		return
	}
	select {
	case client.GetSendChannel() <- ev:
	default:
	}
}
