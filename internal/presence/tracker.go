package presence

import (
	"log"
	"sync"

	"radargo/backend/internal/models"
)

// Tracker maintains the radar read model: the set of participants with a
// watched status, ordered by most recent heartbeat. Subscribers get a full
// re-list on every relevant change; at tens of concurrent participants that
// is simpler and cheap enough compared to incremental diffing.
//
// Liveness is heartbeat-based, not subscription-based: a participant whose
// heartbeats stopped without an explicit offline announcement stays listed
// as online until the sweep task demotes it.
type Tracker struct {
	Storage Store

	// EventCh receives change events to react to. Fed by the redis change
	// listener in production, directly by tests.
	EventCh chan models.ChangeEvent

	mu     sync.Mutex
	nextID int
	subs   map[int]subscription

	quit chan struct{}
}

type subscription struct {
	status   string
	onChange func([]models.Participant)
}

func NewTracker(s Store) *Tracker {
	return &Tracker{
		Storage: s,
		EventCh: make(chan models.ChangeEvent, 64),
		subs:    make(map[int]subscription),
		quit:    make(chan struct{}),
	}
}

// List returns the current set for a status, most recent heartbeat first.
func (t *Tracker) List(status string) ([]models.Participant, error) {
	return t.Storage.ListParticipantsByStatus(status)
}

// Count returns how many participants currently hold the status.
func (t *Tracker) Count(status string) (int64, error) {
	return t.Storage.CountParticipantsByStatus(status)
}

// Subscribe registers a callback invoked with a fresh listing whenever any
// participant's status changes to or from the watched value. The returned
// cancel func removes the subscription.
func (t *Tracker) Subscribe(status string, onChange func([]models.Participant)) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = subscription{status: status, onChange: onChange}
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// Run consumes change events and re-lists for affected subscribers.
func (t *Tracker) Run() {
	for {
		select {
		case ev := <-t.EventCh:
			if ev.Table == models.TableParticipants {
				t.notify()
			}
		case <-t.quit:
			return
		}
	}
}

func (t *Tracker) Stop() {
	close(t.quit)
}

func (t *Tracker) notify() {
	t.mu.Lock()
	subs := make([]subscription, 0, len(t.subs))
	for _, sub := range t.subs {
		subs = append(subs, sub)
	}
	t.mu.Unlock()

	// One listing per distinct status, shared across its subscribers.
	listings := make(map[string][]models.Participant)
	for _, sub := range subs {
		listing, ok := listings[sub.status]
		if !ok {
			var err error
			listing, err = t.Storage.ListParticipantsByStatus(sub.status)
			if err != nil {
				log.Printf("Error re-listing %s participants: %v", sub.status, err)
				continue
			}
			listings[sub.status] = listing
		}
		sub.onChange(listing)
	}
}
