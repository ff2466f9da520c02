package config

import "time"

const (
	// Presence
	HeartbeatInterval = 30 * time.Second
	// StaleThreshold is three missed heartbeats. The sweep task demotes any
	// participant whose last heartbeat is older than this to offline.
	StaleThreshold    = 90 * time.Second
	PresenceSweepCron = "*/1 * * * *"

	// Matching
	PairingRetryInterval = 2 * time.Second
	// OrphanSessionGrace is how long an active session may go unreferenced
	// by any matched queue entry before the reaper ends it.
	OrphanSessionGrace = 5 * time.Minute
	SessionReapCron    = "*/5 * * * *"

	// Identity
	TokenTTL    = 72 * time.Hour
	TokenIssuer = "radargo-service"
)
