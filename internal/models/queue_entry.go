package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Queue entry statuses. An entry is created as "waiting" and flips to
// "matched" exactly once, by whichever pairing attempt wins the claim.
const (
	QueueWaiting = "waiting"
	QueueMatched = "matched"
)

// QueueEntry is a participant's current matchmaking request. At most one
// waiting entry may exist per participant at any time; a matched entry is
// never deleted, the session it points at must stand.
type QueueEntry struct {
	ID            string `gorm:"primaryKey" json:"id"`
	ParticipantID string `gorm:"index;not null" json:"participant_id"`
	Status        string `gorm:"index;not null" json:"status"`
	// MatchedWith is the peer's participant ID, set together with SessionID
	// when the entry is claimed.
	MatchedWith *string `json:"matched_with"`
	// SessionID points at the Session created by the winning pairing attempt.
	SessionID *string   `gorm:"index" json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *QueueEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return
}
