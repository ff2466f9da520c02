package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session statuses. The only legal transition is active -> ended.
const (
	SessionActive = "active"
	SessionEnded  = "ended"
)

// Session is the durable record of two participants having been paired.
// The participant pair is immutable once written.
type Session struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	ParticipantAID string    `gorm:"not null" json:"participant_a_id"`
	ParticipantBID string    `gorm:"not null" json:"participant_b_id"`
	Status         string    `gorm:"index" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return
}

// Includes reports whether the given participant is one of the pair.
func (s *Session) Includes(participantID string) bool {
	return s.ParticipantAID == participantID || s.ParticipantBID == participantID
}

// PeerOf returns the other participant of the pair, or "" when the given
// participant is not part of the session.
func (s *Session) PeerOf(participantID string) string {
	switch participantID {
	case s.ParticipantAID:
		return s.ParticipantBID
	case s.ParticipantBID:
		return s.ParticipantAID
	}
	return ""
}
