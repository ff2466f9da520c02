package matchhub

import (
	"github.com/redis/go-redis/v9"

	"radargo/backend/internal/models"
)

// Client is the interface for any connected participant surface (WebSocket
// today, other transports later). It abstracts the underlying connection so
// the hub can fan events out uniformly.
type Client interface {
	// GetParticipantID returns the anonymous identifier for this client.
	GetParticipantID() string
	// GetSessionID returns the session the client was paired into, or "".
	GetSessionID() string
	// SetSessionID records the session handed off after a match.
	SetSessionID(string)

	// GetSendChannel returns the channel the hub pushes change events into.
	GetSendChannel() chan<- models.ChangeEvent

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the client's connection and channels.
	Close()
}

// Store is the slice of the storage layer the hub and matcher operate on.
// Every queue mutation the matcher performs goes through these methods.
type Store interface {
	FindWaitingEntry(participantID string) (*models.QueueEntry, error)
	InsertQueueEntry(entry *models.QueueEntry) error
	FindWaitingCandidate(excludeParticipantID string) (*models.QueueEntry, error)
	ListWaitingEntries() ([]models.QueueEntry, error)
	ClaimQueueEntry(entryID, matchedWith, sessionID string) (bool, error)
	GetQueueEntry(participantID string) (*models.QueueEntry, error)
	DeleteWaitingEntry(participantID string) error

	SaveSession(s *models.Session) error
	GetSession(id string) (*models.Session, error)
	EndSession(id string) error

	PublishChange(ev models.ChangeEvent) error
	SubscribeChanges() *redis.PubSub
}
