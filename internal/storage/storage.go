package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"radargo/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ChangeChannel is the redis Pub/Sub channel carrying row change events.
const ChangeChannel = "radar:changes"

// ErrSessionNotFound is returned by GetSession for unknown or reaped IDs.
var ErrSessionNotFound = errors.New("session not found")

type Storage interface {
	// Participants
	SaveParticipant(p *models.Participant) error
	UpsertParticipant(id, displayName string) (*models.Participant, error)
	TouchHeartbeat(id string) error
	SetParticipantStatus(id, status string) error
	GetParticipant(id string) (*models.Participant, error)
	ListParticipantsByStatus(status string) ([]models.Participant, error)
	CountParticipantsByStatus(status string) (int64, error)
	DemoteStaleParticipants(olderThan time.Duration) ([]string, error)

	// Queue
	FindWaitingEntry(participantID string) (*models.QueueEntry, error)
	InsertQueueEntry(entry *models.QueueEntry) error
	FindWaitingCandidate(excludeParticipantID string) (*models.QueueEntry, error)
	ListWaitingEntries() ([]models.QueueEntry, error)
	ClaimQueueEntry(entryID, matchedWith, sessionID string) (bool, error)
	GetQueueEntry(participantID string) (*models.QueueEntry, error)
	DeleteWaitingEntry(participantID string) error

	// Sessions
	SaveSession(s *models.Session) error
	GetSession(id string) (*models.Session, error)
	EndSession(id string) error
	ReapOrphanSessions(grace time.Duration) ([]string, error)

	// Connections
	SaveConnection(c *models.Connection) error
	UpdateConnectionNotes(id, initiatorID, notes string) (bool, error)
	ListConnectionsFor(participantID string) ([]models.Connection, error)

	// Change notification
	PublishChange(ev models.ChangeEvent) error
	SubscribeChanges() *redis.PubSub
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// ----- Participants -----

// SaveParticipant writes a participant row to PostgreSQL.
func (s *Service) SaveParticipant(p *models.Participant) error {
	return s.DB.Save(p).Error
}

// UpsertParticipant creates the participant row if absent, otherwise flips it
// online and refreshes the heartbeat. Repeated calls are a no-op beyond the
// timestamp refresh.
func (s *Service) UpsertParticipant(id, displayName string) (*models.Participant, error) {
	var p models.Participant

	err := s.DB.Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p = models.Participant{
			ID:            id,
			DisplayName:   displayName,
			Status:        models.StatusOnline,
			LastHeartbeat: time.Now(),
		}
		if err := s.DB.Create(&p).Error; err != nil {
			return nil, err
		}
		return &p, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"status":         models.StatusOnline,
		"last_heartbeat": time.Now(),
	}
	if displayName != "" {
		updates["display_name"] = displayName
	}
	if err := s.DB.Model(&p).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// TouchHeartbeat refreshes last_heartbeat and keeps the participant online.
func (s *Service) TouchHeartbeat(id string) error {
	return s.DB.Model(&models.Participant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         models.StatusOnline,
			"last_heartbeat": time.Now(),
		}).Error
}

func (s *Service) SetParticipantStatus(id, status string) error {
	return s.DB.Model(&models.Participant{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (s *Service) GetParticipant(id string) (*models.Participant, error) {
	var p models.Participant
	err := s.DB.Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListParticipantsByStatus returns the radar view, most recent heartbeat first.
func (s *Service) ListParticipantsByStatus(status string) ([]models.Participant, error) {
	var participants []models.Participant
	err := s.DB.Where("status = ?", status).
		Order("last_heartbeat desc").
		Find(&participants).Error
	if err != nil {
		log.Printf("ERROR: Failed to list %s participants: %v", status, err)
		return nil, err
	}
	return participants, nil
}

// countCacheTTL bounds how stale the radar's online counter may get.
const countCacheTTL = 5 * time.Second

// CountParticipantsByStatus serves the radar's counter. The count is cached
// in redis for a few seconds; every connected browser polls it.
func (s *Service) CountParticipantsByStatus(status string) (int64, error) {
	cacheKey := "radar:count:" + status

	if s.Redis != nil {
		if cached, err := s.Redis.Get(s.Ctx, cacheKey).Int64(); err == nil {
			return cached, nil
		}
	}

	var n int64
	if err := s.DB.Model(&models.Participant{}).Where("status = ?", status).Count(&n).Error; err != nil {
		return 0, err
	}

	if s.Redis != nil {
		if err := s.Redis.Set(s.Ctx, cacheKey, n, countCacheTTL).Err(); err != nil {
			log.Printf("Error caching %s count: %v", status, err)
		}
	}
	return n, nil
}

// DemoteStaleParticipants flips every nominally-online participant whose last
// heartbeat is older than the threshold to offline, and returns their IDs.
func (s *Service) DemoteStaleParticipants(olderThan time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-olderThan)

	var ids []string
	if err := s.DB.Model(&models.Participant{}).
		Where("status = ? AND last_heartbeat < ?", models.StatusOnline, cutoff).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := s.DB.Model(&models.Participant{}).
		Where("id IN ?", ids).
		Update("status", models.StatusOffline).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ----- Queue -----

// FindWaitingEntry returns the participant's waiting entry, or nil when the
// participant is not currently queued.
func (s *Service) FindWaitingEntry(participantID string) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	err := s.DB.Where("participant_id = ? AND status = ?", participantID, models.QueueWaiting).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Service) InsertQueueEntry(entry *models.QueueEntry) error {
	return s.DB.Create(entry).Error
}

// FindWaitingCandidate returns the oldest waiting entry belonging to anyone
// but the given participant, or nil when the queue holds no candidate.
func (s *Service) FindWaitingCandidate(excludeParticipantID string) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	err := s.DB.Where("status = ? AND participant_id <> ?", models.QueueWaiting, excludeParticipantID).
		Order("created_at asc").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Service) ListWaitingEntries() ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := s.DB.Where("status = ?", models.QueueWaiting).
		Order("created_at asc").
		Find(&entries).Error
	return entries, err
}

// ClaimQueueEntry is the conditional update at the heart of pairing: it flips
// an entry from waiting to matched only if no concurrent attempt got there
// first. The returned bool reports whether this caller won the claim.
func (s *Service) ClaimQueueEntry(entryID, matchedWith, sessionID string) (bool, error) {
	res := s.DB.Model(&models.QueueEntry{}).
		Where("id = ? AND status = ?", entryID, models.QueueWaiting).
		Updates(map[string]interface{}{
			"status":       models.QueueMatched,
			"matched_with": matchedWith,
			"session_id":   sessionID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetQueueEntry returns the participant's newest queue entry regardless of
// status, or nil when none exists.
func (s *Service) GetQueueEntry(participantID string) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	err := s.DB.Where("participant_id = ?", participantID).
		Order("created_at desc").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// DeleteWaitingEntry removes the participant's entry only while it is still
// waiting. A matched entry is never deleted, the session must stand. Deleting
// an absent entry is a no-op.
func (s *Service) DeleteWaitingEntry(participantID string) error {
	return s.DB.Where("participant_id = ? AND status = ?", participantID, models.QueueWaiting).
		Delete(&models.QueueEntry{}).Error
}

// ----- Sessions -----

func (s *Service) SaveSession(session *models.Session) error {
	return s.DB.Save(session).Error
}

func (s *Service) GetSession(id string) (*models.Session, error) {
	var session models.Session
	err := s.DB.Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to get session %s: %v", id, err)
		return nil, err
	}
	return &session, nil
}

// EndSession sets status=ended. Irreversible.
func (s *Service) EndSession(id string) error {
	return s.DB.Model(&models.Session{}).
		Where("id = ?", id).
		Update("status", models.SessionEnded).Error
}

// ReapOrphanSessions ends active sessions older than the grace period that
// fewer than two queue entries reference. A complete pair holds two matched
// rows pointing at its session; anything less is debris from a simultaneous
// pairing attempt, either a discarded duplicate nothing references or a
// half-claimed session whose second participant was stolen mid-claim.
func (s *Service) ReapOrphanSessions(grace time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-grace)

	rawSQL := `
        SELECT s.id
        FROM sessions s
        WHERE s.status = ?
          AND s.created_at < ?
          AND (SELECT COUNT(*) FROM queue_entries q WHERE q.session_id = s.id) < 2
    `

	var ids []string
	if err := s.DB.Raw(rawSQL, models.SessionActive, cutoff).Scan(&ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := s.DB.Model(&models.Session{}).
		Where("id IN ?", ids).
		Update("status", models.SessionEnded).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ----- Connections -----

func (s *Service) SaveConnection(c *models.Connection) error {
	if c.ConnectedAt.IsZero() {
		c.ConnectedAt = time.Now()
	}
	return s.DB.Save(c).Error
}

// UpdateConnectionNotes rewrites the notes on a connection, scoped to its
// initiator so one participant cannot edit another's history. Reports whether
// a matching row existed.
func (s *Service) UpdateConnectionNotes(id, initiatorID, notes string) (bool, error) {
	res := s.DB.Model(&models.Connection{}).
		Where("id = ? AND initiator_id = ?", id, initiatorID).
		Update("notes", notes)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListConnectionsFor returns a participant's connection history, newest first,
// enriched with the peer's current display name and avatar.
func (s *Service) ListConnectionsFor(participantID string) ([]models.Connection, error) {
	var connections []models.Connection
	err := s.DB.Where("initiator_id = ?", participantID).
		Order("connected_at desc").
		Find(&connections).Error
	if err != nil {
		log.Printf("ERROR: Failed to list connections for %s: %v", participantID, err)
		return nil, err
	}

	for i := range connections {
		peer, err := s.GetParticipant(connections[i].PeerID)
		if err != nil || peer == nil {
			connections[i].PeerName = "Anonymous"
			continue
		}
		connections[i].PeerName = peer.DisplayName
		connections[i].PeerAvatar = peer.AvatarURL
	}
	return connections, nil
}

// ----- Change notification -----

// PublishChange pushes a change event onto the shared redis channel.
func (s *Service) PublishChange(ev models.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, ChangeChannel, string(payload)).Err()
}

// SubscribeChanges subscribes to the shared change channel.
func (s *Service) SubscribeChanges() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, ChangeChannel)
}
