package presence

import (
	"log"

	"radargo/backend/internal/models"
)

// Store is the slice of the storage layer presence operates on. Presence
// rows are upsert-only and each participant only ever writes its own row, so
// there is no cross-participant contention here.
type Store interface {
	UpsertParticipant(id, displayName string) (*models.Participant, error)
	TouchHeartbeat(id string) error
	SetParticipantStatus(id, status string) error
	GetParticipant(id string) (*models.Participant, error)
	ListParticipantsByStatus(status string) ([]models.Participant, error)
	CountParticipantsByStatus(status string) (int64, error)
	PublishChange(ev models.ChangeEvent) error
}

// Service implements the heartbeat side of presence: announce online, tick,
// announce offline. No error is surfaced to the participant for the
// best-effort operations; failures are logged and the next interval tick
// retries.
type Service struct {
	Storage Store
}

func NewService(s Store) *Service {
	return &Service{Storage: s}
}

// AnnounceOnline creates the participant record if absent, otherwise flips
// it online and refreshes the heartbeat. Idempotent.
func (s *Service) AnnounceOnline(id, displayName string) (*models.Participant, error) {
	p, err := s.Storage.UpsertParticipant(id, displayName)
	if err != nil {
		return nil, err
	}
	s.publishStatus(p.ID, models.StatusOnline)
	return p, nil
}

// Heartbeat refreshes the participant's liveness. Called on a fixed interval
// while the client considers itself online.
func (s *Service) Heartbeat(id string) error {
	if err := s.Storage.TouchHeartbeat(id); err != nil {
		return err
	}
	s.publishStatus(id, models.StatusOnline)
	return nil
}

// AnnounceOffline flips the participant offline. Best effort: invoked on
// explicit toggle and on page teardown, with no durable guarantee if the
// client terminates abruptly.
func (s *Service) AnnounceOffline(id string) error {
	if err := s.Storage.SetParticipantStatus(id, models.StatusOffline); err != nil {
		return err
	}
	s.publishStatus(id, models.StatusOffline)
	return nil
}

func (s *Service) publishStatus(id, status string) {
	err := s.Storage.PublishChange(models.ChangeEvent{
		Table:         models.TableParticipants,
		Op:            models.OpUpdate,
		ParticipantID: id,
		Status:        status,
	})
	if err != nil {
		log.Printf("Error publishing presence change for %s: %v", id, err)
	}
}
