package models_test

import (
	"reflect"
	"testing"

	"radargo/backend/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

// TestParticipantBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestParticipantBeforeCreate_GeneratesUUID(t *testing.T) {
	// Arrange
	p := &models.Participant{
		DisplayName: "Nova",
		Status:      models.StatusOnline,
		Tags:        pq.StringArray{"music", "hiking"},
	}
	assert.Empty(t, p.ID, "Participant ID should be empty before BeforeCreate")

	// Act - Call the hook directly (GORM would call this automatically)
	err := p.BeforeCreate(nil) // nil *gorm.DB is acceptable for this hook

	// Assert
	assert.NoError(t, err)
	assert.NotEmpty(t, p.ID, "Participant ID must be populated after BeforeCreate")

	parsedUUID, parseErr := uuid.Parse(p.ID)
	assert.NoError(t, parseErr, "Participant ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsedUUID)
}

// TestParticipantBeforeCreate_PreservesExistingID verifies that the hook doesn't
// overwrite the client-supplied anonymous identifier.
func TestParticipantBeforeCreate_PreservesExistingID(t *testing.T) {
	// Arrange - clients mint their own anonymous id and reuse it across visits
	existingID := uuid.New().String()
	p := &models.Participant{
		ID:          existingID,
		DisplayName: "Echo",
		Status:      models.StatusOnline,
	}

	// Act
	err := p.BeforeCreate(nil)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, existingID, p.ID, "BeforeCreate should preserve existing ID")
}

// TestQueueEntryBeforeCreate verifies UUID generation for queue entries.
func TestQueueEntryBeforeCreate(t *testing.T) {
	entry := &models.QueueEntry{
		ParticipantID: uuid.New().String(),
		Status:        models.QueueWaiting,
	}

	err := entry.BeforeCreate(nil)

	assert.NoError(t, err)
	_, parseErr := uuid.Parse(entry.ID)
	assert.NoError(t, parseErr)
}

// TestSessionBeforeCreate verifies UUID generation for sessions.
func TestSessionBeforeCreate(t *testing.T) {
	session := &models.Session{
		ParticipantAID: "p1",
		ParticipantBID: "p2",
		Status:         models.SessionActive,
	}

	err := session.BeforeCreate(nil)

	assert.NoError(t, err)
	_, parseErr := uuid.Parse(session.ID)
	assert.NoError(t, parseErr)
}

// TestSessionHelpers verifies membership and peer lookup on the pair.
func TestSessionHelpers(t *testing.T) {
	session := &models.Session{
		ID:             "s1",
		ParticipantAID: "p1",
		ParticipantBID: "p2",
		Status:         models.SessionActive,
	}

	assert.True(t, session.Includes("p1"))
	assert.True(t, session.Includes("p2"))
	assert.False(t, session.Includes("p3"))

	assert.Equal(t, "p2", session.PeerOf("p1"))
	assert.Equal(t, "p1", session.PeerOf("p2"))
	assert.Empty(t, session.PeerOf("p3"))
}

// TestParticipantStructTags verifies that struct tags are correctly defined for GORM and JSON.
func TestParticipantStructTags(t *testing.T) {
	pType := reflect.TypeOf(models.Participant{})

	idField, found := pType.FieldByName("ID")
	assert.True(t, found, "ID field should exist")
	assert.Contains(t, idField.Tag.Get("gorm"), "primaryKey", "ID should be marked as primary key")

	hbField, found := pType.FieldByName("LastHeartbeat")
	assert.True(t, found, "LastHeartbeat field should exist")
	assert.Contains(t, hbField.Tag.Get("gorm"), "index", "LastHeartbeat should be indexed for the stale sweep")

	tagsField, found := pType.FieldByName("Tags")
	assert.True(t, found, "Tags field should exist")
	assert.Contains(t, tagsField.Tag.Get("gorm"), "type:text[]", "Tags should use PostgreSQL array type")

	// The Telegram chat id never leaves the backend.
	chatField, found := pType.FieldByName("TelegramChatID")
	assert.True(t, found, "TelegramChatID field should exist")
	assert.Equal(t, "-", chatField.Tag.Get("json"), "TelegramChatID should be excluded from JSON")
}
