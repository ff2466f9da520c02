package matchhub_test

import (
	"errors"
	"sync"
	"time"

	"radargo/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// fakeStore is an in-memory Store with the same conditional-update semantics
// as the real one: a claim only succeeds while the target entry is still
// waiting. Entries are keyed by ID, with order preserving insertion sequence
// for candidate selection. The beforeClaim hook is one-shot and lets a test
// interleave a "concurrent instance" between the candidate query and the
// claim.
type fakeStore struct {
	mu       sync.Mutex
	order    []string
	entries  map[string]*models.QueueEntry
	sessions map[string]*models.Session
	events   []models.ChangeEvent

	insertErr   error
	beforeClaim func(entryID string)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries:  make(map[string]*models.QueueEntry),
		sessions: make(map[string]*models.Session),
	}
}

func (f *fakeStore) FindWaitingEntry(participantID string) (*models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.order {
		e := f.entries[id]
		if e.ParticipantID == participantID && e.Status == models.QueueWaiting {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) InsertQueueEntry(entry *models.QueueEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	cp := *entry
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.entries[cp.ID] = &cp
	f.order = append(f.order, cp.ID)
	return nil
}

func (f *fakeStore) FindWaitingCandidate(excludeParticipantID string) (*models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.order {
		e := f.entries[id]
		if e.Status == models.QueueWaiting && e.ParticipantID != excludeParticipantID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListWaitingEntries() ([]models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.QueueEntry
	for _, id := range f.order {
		e := f.entries[id]
		if e.Status == models.QueueWaiting {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeStore) ClaimQueueEntry(entryID, matchedWith, sessionID string) (bool, error) {
	f.mu.Lock()
	hook := f.beforeClaim
	f.beforeClaim = nil
	f.mu.Unlock()
	if hook != nil {
		hook(entryID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[entryID]
	if !ok || e.Status != models.QueueWaiting {
		return false, nil
	}
	e.Status = models.QueueMatched
	e.MatchedWith = &matchedWith
	e.SessionID = &sessionID
	e.UpdatedAt = time.Now()
	return true, nil
}

// claimDirect flips an entry bypassing the hook, for simulating a concurrent
// instance from inside the hook itself.
func (f *fakeStore) claimDirect(entryID, matchedWith, sessionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[entryID]
	if !ok || e.Status != models.QueueWaiting {
		return false
	}
	e.Status = models.QueueMatched
	e.MatchedWith = &matchedWith
	e.SessionID = &sessionID
	return true
}

func (f *fakeStore) GetQueueEntry(participantID string) (*models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.order) - 1; i >= 0; i-- {
		e := f.entries[f.order[i]]
		if e.ParticipantID == participantID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) DeleteWaitingEntry(participantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keep []string
	for _, id := range f.order {
		e := f.entries[id]
		if e.ParticipantID == participantID && e.Status == models.QueueWaiting {
			delete(f.entries, id)
			continue
		}
		keep = append(keep, id)
	}
	f.order = keep
	return nil
}

func (f *fakeStore) SaveSession(s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	f.sessions[cp.ID] = &cp
	return nil
}

func (f *fakeStore) GetSession(id string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, errors.New("session not found")
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) EndSession(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		s.Status = models.SessionEnded
	}
	return nil
}

// ReapOrphanSessions mirrors the real reaper: an aged active session that
// fewer than two queue entries reference gets ended.
func (f *fakeStore) ReapOrphanSessions(grace time.Duration) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().Add(-grace)

	var reaped []string
	for id, s := range f.sessions {
		if s.Status != models.SessionActive || !s.CreatedAt.Before(cutoff) {
			continue
		}
		refs := 0
		for _, e := range f.entries {
			if e.SessionID != nil && *e.SessionID == id {
				refs++
			}
		}
		if refs < 2 {
			s.Status = models.SessionEnded
			reaped = append(reaped, id)
		}
	}
	return reaped, nil
}

func (f *fakeStore) PublishChange(ev models.ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeStore) SubscribeChanges() *redis.PubSub {
	return &redis.PubSub{}
}

// ----- assertion helpers -----

func (f *fakeStore) waitingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.Status == models.QueueWaiting {
			n++
		}
	}
	return n
}

func (f *fakeStore) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func (f *fakeStore) sessionsByStatus(status string) []models.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for _, s := range f.sessions {
		if s.Status == status {
			out = append(out, *s)
		}
	}
	return out
}

// mockClient is a test double for the matchhub.Client interface.
type mockClient struct {
	participantID string
	sessionID     string
	send          chan models.ChangeEvent
}

func newMockClient(id string) *mockClient {
	return &mockClient{
		participantID: id,
		send:          make(chan models.ChangeEvent, 10), // buffered to prevent blocking in tests
	}
}

func (c *mockClient) GetParticipantID() string { return c.participantID }
func (c *mockClient) GetSessionID() string     { return c.sessionID }
func (c *mockClient) SetSessionID(id string)   { c.sessionID = id }

func (c *mockClient) GetSendChannel() chan<- models.ChangeEvent { return c.send }

func (c *mockClient) Run()   {}
func (c *mockClient) Close() { close(c.send) }

// drainEvents empties the send channel for assertions.
func (c *mockClient) drainEvents() []models.ChangeEvent {
	var events []models.ChangeEvent
	for {
		select {
		case ev := <-c.send:
			events = append(events, ev)
		default:
			return events
		}
	}
}

// mockNotifier records MatchFound calls.
type mockNotifier struct {
	mu    sync.Mutex
	calls map[string]string // participantID -> sessionID
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{calls: make(map[string]string)}
}

func (n *mockNotifier) MatchFound(participantID, sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[participantID] = sessionID
}

func (n *mockNotifier) notified(participantID string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	sid, ok := n.calls[participantID]
	return sid, ok
}
