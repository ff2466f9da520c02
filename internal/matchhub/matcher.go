package matchhub

import (
	"fmt"
	"log"
	"time"

	"radargo/backend/internal/config"
	"radargo/backend/internal/models"
	"radargo/backend/internal/notify"

	"github.com/google/uuid"
)

// Matcher is the serialized matching worker: every queue mutation in this
// process flows through its single Run goroutine, so two local joins can
// never race each other. The conditional claims in the store remain the
// guard against a second backend instance working the same queue.
type Matcher struct {
	Hub      *Hub
	Storage  Store
	Notifier notify.Notifier

	JoinCh  chan models.MatchRequest
	LeaveCh chan models.LeaveRequest

	retryInterval time.Duration
	quit          chan struct{}
}

// NewMatcherService creates a matcher wired to the hub and store.
func NewMatcherService(hub *Hub, s Store, n notify.Notifier) *Matcher {
	if n == nil {
		n = notify.Noop{}
	}
	return &Matcher{
		Hub:           hub,
		Storage:       s,
		Notifier:      n,
		JoinCh:        make(chan models.MatchRequest),
		LeaveCh:       make(chan models.LeaveRequest),
		retryInterval: config.PairingRetryInterval,
		quit:          make(chan struct{}),
	}
}

// Run starts the matcher goroutine. Join and leave requests are served in
// arrival order; between requests a periodic tick re-attempts pairing for
// every waiting entry, bounding match latency when a push was missed.
func (m *Matcher) Run() {
	log.Println("Matcher Service started.")

	ticker := time.NewTicker(m.retryInterval)
	defer ticker.Stop()

	for {
		select {
		case req := <-m.JoinCh:
			req.ResultCh <- m.handleJoin(req.ParticipantID)

		case req := <-m.LeaveCh:
			req.ResultCh <- m.handleLeave(req.ParticipantID)

		case <-ticker.C:
			m.retryWaiting()

		case <-m.quit:
			return
		}
	}
}

// Stop terminates the Run loop.
func (m *Matcher) Stop() {
	close(m.quit)
}

// Join enqueues the participant and runs an immediate pairing attempt.
// Blocking; safe to call from any goroutine. Calling it again while already
// waiting resumes the existing entry instead of inserting a duplicate.
func (m *Matcher) Join(participantID string) (*models.QueueEntry, error) {
	req := models.MatchRequest{
		ParticipantID: participantID,
		ResultCh:      make(chan models.MatchResult, 1),
	}
	m.JoinCh <- req
	res := <-req.ResultCh
	return res.Entry, res.Err
}

// Leave removes the participant's waiting entry. A no-op when the
// participant is not queued; a matched entry is never removed.
func (m *Matcher) Leave(participantID string) error {
	req := models.LeaveRequest{
		ParticipantID: participantID,
		ResultCh:      make(chan error, 1),
	}
	m.LeaveCh <- req
	return <-req.ResultCh
}

func (m *Matcher) handleJoin(participantID string) models.MatchResult {
	existing, err := m.Storage.FindWaitingEntry(participantID)
	if err != nil {
		return models.MatchResult{Err: fmt.Errorf("join failed: %w", err)}
	}

	entry := existing
	if entry == nil {
		entry = &models.QueueEntry{
			ID:            uuid.New().String(),
			ParticipantID: participantID,
			Status:        models.QueueWaiting,
		}
		if err := m.Storage.InsertQueueEntry(entry); err != nil {
			return models.MatchResult{Err: fmt.Errorf("join failed: %w", err)}
		}
		m.publish(models.ChangeEvent{
			Table:         models.TableQueue,
			Op:            models.OpInsert,
			ParticipantID: participantID,
			Status:        models.QueueWaiting,
		})
	}

	if updated := m.PairingAttempt(entry); updated != nil {
		entry = updated
	}
	return models.MatchResult{Entry: entry}
}

func (m *Matcher) handleLeave(participantID string) error {
	if err := m.Storage.DeleteWaitingEntry(participantID); err != nil {
		return fmt.Errorf("leave failed: %w", err)
	}
	m.publish(models.ChangeEvent{
		Table:         models.TableQueue,
		Op:            models.OpDelete,
		ParticipantID: participantID,
	})
	return nil
}

// PairingAttempt runs one execution of the pairing algorithm for a waiting
// entry: find another waiting participant, create the session, then claim
// both rows with conditional updates. It returns the entry's new state when
// the attempt resolved it, or nil when the participant keeps waiting.
// Round-trip failures are transient misses, the next tick retries.
func (m *Matcher) PairingAttempt(entry *models.QueueEntry) *models.QueueEntry {
	candidate, err := m.Storage.FindWaitingCandidate(entry.ParticipantID)
	if err != nil {
		log.Printf("Pairing attempt for %s: %v", entry.ParticipantID, err)
		return nil
	}
	if candidate == nil {
		return nil
	}

	session := &models.Session{
		ID:             uuid.New().String(),
		ParticipantAID: entry.ParticipantID,
		ParticipantBID: candidate.ParticipantID,
		Status:         models.SessionActive,
	}
	if err := m.Storage.SaveSession(session); err != nil {
		log.Printf("Error saving session for %s: %v", entry.ParticipantID, err)
		return nil
	}

	wonSelf, err := m.Storage.ClaimQueueEntry(entry.ID, candidate.ParticipantID, session.ID)
	if err != nil {
		log.Printf("Error claiming own entry for %s: %v", entry.ParticipantID, err)
		return nil
	}
	if !wonSelf {
		// A concurrent attempt claimed this row first. Discard the session we
		// just created and adopt the winner's outcome.
		if err := m.Storage.EndSession(session.ID); err != nil {
			log.Printf("Error ending orphan session %s: %v", session.ID, err)
		}
		claimed, err := m.Storage.GetQueueEntry(entry.ParticipantID)
		if err != nil || claimed == nil || claimed.Status != models.QueueMatched {
			return nil
		}
		m.announceMatch(claimed)
		return claimed
	}

	wonPeer, err := m.Storage.ClaimQueueEntry(candidate.ID, entry.ParticipantID, session.ID)
	if err != nil {
		log.Printf("Error claiming peer entry for %s: %v", candidate.ParticipantID, err)
	}
	if !wonPeer {
		// The candidate was claimed by another instance between our query and
		// our update. Our row stands pointing at a half-claimed session; the
		// reaper ends sessions with fewer than two referencing rows after the
		// grace period.
		log.Printf("Peer claim lost for %s (session %s)", candidate.ParticipantID, session.ID)
	}

	matchedWith := candidate.ParticipantID
	sessionID := session.ID
	entry.Status = models.QueueMatched
	entry.MatchedWith = &matchedWith
	entry.SessionID = &sessionID

	m.announceMatch(entry)
	log.Printf("Match found: %s and %s in session %s",
		entry.ParticipantID, candidate.ParticipantID, session.ID)
	return entry
}

// announceMatch publishes the claim of a queue entry and alerts both parties.
func (m *Matcher) announceMatch(entry *models.QueueEntry) {
	ev := models.ChangeEvent{
		Table:         models.TableQueue,
		Op:            models.OpUpdate,
		ParticipantID: entry.ParticipantID,
		Status:        models.QueueMatched,
	}
	if entry.SessionID != nil {
		ev.SessionID = *entry.SessionID
	}
	if entry.MatchedWith != nil {
		ev.MatchedWith = *entry.MatchedWith
	}

	m.publish(ev)
	m.Hub.Dispatch(ev)

	if entry.SessionID != nil {
		go m.Notifier.MatchFound(entry.ParticipantID, *entry.SessionID)
		if entry.MatchedWith != nil {
			go m.Notifier.MatchFound(*entry.MatchedWith, *entry.SessionID)
		}
	}
}

// retryWaiting re-runs the pairing attempt for every waiting entry. Entries
// matched earlier in the same sweep are skipped.
func (m *Matcher) retryWaiting() {
	entries, err := m.Storage.ListWaitingEntries()
	if err != nil {
		log.Printf("Error listing waiting entries: %v", err)
		return
	}

	matched := make(map[string]bool)
	for i := range entries {
		entry := entries[i]
		if matched[entry.ParticipantID] {
			continue
		}
		updated := m.PairingAttempt(&entry)
		if updated != nil && updated.Status == models.QueueMatched {
			matched[updated.ParticipantID] = true
			if updated.MatchedWith != nil {
				matched[*updated.MatchedWith] = true
			}
		}
	}
}

func (m *Matcher) publish(ev models.ChangeEvent) {
	if err := m.Storage.PublishChange(ev); err != nil {
		log.Printf("Error publishing change event: %v", err)
	}
}
