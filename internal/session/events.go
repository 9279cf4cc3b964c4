package session

// EventKind names a background outcome.
type EventKind string

const (
	EventHydrated           EventKind = "hydrated"
	EventHydrationFailed    EventKind = "hydration_failed"
	EventReplacementCreated EventKind = "replacement_created"
	EventReplacementFailed  EventKind = "replacement_failed"
)

// Event reports the outcome of work the manager did in the background,
// where there is no caller to return an error to.
type Event struct {
	Kind           EventKind
	ConversationID string
	Err            error
}

// Notifier receives events. It is called without the manager's lock held
// and may call back into the manager.
type Notifier func(Event)
