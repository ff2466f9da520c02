package notify

// Notifier delivers best-effort user-visible alerts. Delivery is
// fire-and-forget: a suppressed or failed notification never affects
// matching correctness.
type Notifier interface {
	// MatchFound alerts a participant that a session is waiting for them.
	MatchFound(participantID, sessionID string)
}

// Noop discards every notification.
type Noop struct{}

func (Noop) MatchFound(participantID, sessionID string) {}
