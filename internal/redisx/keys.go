package redisx

import "time"

const (
	// Session-scoped value: sess:{session_id}:{key}
	KeySession = "sess:%s:%s"

	// Checkout submission guard: lock:{name}
	KeyLock = "lock:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Activity tally per event type: activity:count:{event_type}
	KeyActivityCount = "activity:count:%s"
)

var (
	TTLDedup = 48 * time.Hour
)
