package models

import "time"

// Connection is the durable trace of a completed session, written by the
// session landing surface once a session starts and queried later by the
// history view. Its ID equals the session ID.
type Connection struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	InitiatorID string    `gorm:"index;not null" json:"initiator_id"`
	PeerID      string    `gorm:"not null" json:"peer_id"`
	ConnectedAt time.Time `json:"connected_at"`
	Notes       string    `gorm:"type:text" json:"notes"`

	// Enriched on read from the participants table, not stored.
	PeerName   string  `gorm:"-" json:"peer_name,omitempty"`
	PeerAvatar *string `gorm:"-" json:"peer_avatar,omitempty"`
}
