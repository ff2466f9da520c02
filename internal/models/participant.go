package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Participant statuses. Presence is derived from heartbeat recency, not from
// record deletion: a participant row is never hard-deleted.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Participant represents one pseudonymous client instance on the radar board.
// The ID is generated client-side on first visit and reused by the same
// browser, so the backend treats it as an opaque stable identifier.
type Participant struct {
	// ID is the stable anonymous identifier (UUID).
	ID string `gorm:"primaryKey" json:"id"`
	// DisplayName is the self-declared name. Never verified.
	DisplayName string `gorm:"type:text;not null" json:"display_name"`
	// AvatarURL is an optional avatar image link.
	AvatarURL *string `json:"avatar_url"`
	// Status is "online" or "offline".
	Status string `gorm:"index" json:"status"`
	// LastHeartbeat is refreshed by every heartbeat tick.
	LastHeartbeat time.Time `gorm:"index" json:"last_heartbeat"`
	// Tags are self-selected interest tags shown on the radar card.
	Tags pq.StringArray `gorm:"type:text[]" json:"tags"`
	// TelegramChatID, when set, lets the notifier push a "Match found"
	// alert to the participant's linked Telegram chat.
	TelegramChatID *int64 `json:"-"`
}

// BeforeCreate is a GORM hook that fills in the ID when the client did not
// supply one.
func (p *Participant) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return
}
