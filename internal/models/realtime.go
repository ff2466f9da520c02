package models

// Tables carried on the change channel.
const (
	TableParticipants = "participants"
	TableQueue        = "queue_entries"
	TableSessions     = "sessions"
)

// Change operations.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ChangeEvent is published on the shared change channel whenever a watched
// row is inserted, updated or deleted. Subscribers filter by table plus
// participant or session ID.
type ChangeEvent struct {
	Table         string `json:"table"`
	Op            string `json:"op"`
	ParticipantID string `json:"participant_id,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
	Status        string `json:"status,omitempty"`
	// MatchedWith carries the peer ID on queue claim events.
	MatchedWith string `json:"matched_with,omitempty"`
	// Error carries the raw failure message on error events pushed to a
	// single client. Never set on events published to the shared channel.
	Error string `json:"error,omitempty"`
}

// MatchResult is what a join request resolves to: the participant's queue
// entry after the insert and the immediate pairing attempt.
type MatchResult struct {
	Entry *QueueEntry
	Err   error
}

// MatchRequest asks the matcher to put a participant into the queue. The
// outcome is delivered on ResultCh.
type MatchRequest struct {
	ParticipantID string
	ResultCh      chan MatchResult
}

// LeaveRequest asks the matcher to remove a participant's waiting entry.
type LeaveRequest struct {
	ParticipantID string
	ResultCh      chan error
}
