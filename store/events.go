package store

import "github.com/tailored-agentic-units/silo/observability"

// Store event types emitted during assembly and shutdown.
const (
	EventStoreReady  observability.EventType = "store.ready"
	EventStoreInvoke observability.EventType = "store.invoke"
	EventStoreClose  observability.EventType = "store.close"
)
