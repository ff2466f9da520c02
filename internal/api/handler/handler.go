package handler

import (
	"radargo/backend/internal/matchhub"
	"radargo/backend/internal/presence"
	"radargo/backend/internal/storage"
)

// Handler wires the HTTP surface to the core services.
type Handler struct {
	Hub      *matchhub.Hub
	Matcher  *matchhub.Matcher
	Presence *presence.Service
	Tracker  *presence.Tracker
	Storage  storage.Storage
}

func NewHandler(hub *matchhub.Hub, matcher *matchhub.Matcher, p *presence.Service, t *presence.Tracker, s storage.Storage) *Handler {
	return &Handler{
		Hub:      hub,
		Matcher:  matcher,
		Presence: p,
		Tracker:  t,
		Storage:  s,
	}
}
