package auth

// EventType enumerates identity provider lifecycle events.
type EventType string

const (
	EventSignedIn       EventType = "signed_in"
	EventTokenRefreshed EventType = "token_refreshed"
	EventInitialSession EventType = "initial_session"
	EventSignedOut      EventType = "signed_out"
)

// Event is a provider lifecycle event. Identity is nil for SignedOut.
type Event struct {
	Type     EventType
	Identity *Identity
}

// TriggersResolution reports whether the event starts a resolution run.
func (t EventType) TriggersResolution() bool {
	switch t {
	case EventSignedIn, EventTokenRefreshed, EventInitialSession:
		return true
	default:
		return false
	}
}
