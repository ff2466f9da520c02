package tasks

import (
	"context"
	"log"
	"time"

	"radargo/backend/internal/config"
	"radargo/backend/internal/models"

	"github.com/hibiken/asynq"
)

const (
	TypePresenceSweep = "presence:sweep"
	TypeSessionReap   = "session:reap"
)

// Store is the slice of the storage layer the maintenance tasks operate on.
type Store interface {
	DemoteStaleParticipants(olderThan time.Duration) ([]string, error)
	ReapOrphanSessions(grace time.Duration) ([]string, error)
	PublishChange(ev models.ChangeEvent) error
}

// Handlers holds the scheduled maintenance task handlers.
type Handlers struct {
	Storage Store
}

func NewHandlers(s Store) *Handlers {
	return &Handlers{Storage: s}
}

// HandlePresenceSweep demotes participants whose heartbeat went stale to
// offline, closing the gap left by clients that vanished without an explicit
// offline announcement.
func (h *Handlers) HandlePresenceSweep(ctx context.Context, t *asynq.Task) error {
	demoted, err := h.Storage.DemoteStaleParticipants(config.StaleThreshold)
	if err != nil {
		return err
	}
	if len(demoted) == 0 {
		return nil
	}

	log.Printf("Presence sweep demoted %d stale participants", len(demoted))
	for _, id := range demoted {
		if err := h.Storage.PublishChange(models.ChangeEvent{
			Table:         models.TableParticipants,
			Op:            models.OpUpdate,
			ParticipantID: id,
			Status:        models.StatusOffline,
		}); err != nil {
			log.Printf("Error publishing sweep change for %s: %v", id, err)
		}
	}
	return nil
}

// HandleSessionReap ends active sessions no queue entry references, the
// discarded halves of simultaneous pairing attempts.
func (h *Handlers) HandleSessionReap(ctx context.Context, t *asynq.Task) error {
	reaped, err := h.Storage.ReapOrphanSessions(config.OrphanSessionGrace)
	if err != nil {
		return err
	}
	if len(reaped) > 0 {
		log.Printf("Session reap ended %d orphan sessions", len(reaped))
	}
	return nil
}

// StartWorker runs the asynq server and scheduler for the maintenance tasks.
// Blocks; run it in its own goroutine.
func StartWorker(redisOpt asynq.RedisClientOpt, h *Handlers) {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypePresenceSweep, h.HandlePresenceSweep)
	mux.HandleFunc(TypeSessionReap, h.HandleSessionReap)

	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register(config.PresenceSweepCron, asynq.NewTask(TypePresenceSweep, nil)); err != nil {
		log.Fatal("Failed to register presence sweep:", err)
	}
	if _, err := scheduler.Register(config.SessionReapCron, asynq.NewTask(TypeSessionReap, nil)); err != nil {
		log.Fatal("Failed to register session reap:", err)
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatal("Scheduler failed to start:", err)
		}
	}()

	if err := srv.Run(mux); err != nil {
		log.Fatal("Task worker failed to start:", err)
	}
}
