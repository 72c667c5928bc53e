package events

// KindSessionStatusChanged identifies session status transitions.
const KindSessionStatusChanged Kind = "session.status_changed"

// SessionStatusChanged marks a session status transition. Err is set for
// transitions into the error status.
type SessionStatusChanged struct {
	Base
	Status string
	Err    error
}

// NewSessionStatusChanged creates a session status changed event.
func NewSessionStatusChanged(sessionID, status string, err error) SessionStatusChanged {
	return SessionStatusChanged{Base: NewBase(KindSessionStatusChanged, sessionID), Status: status, Err: err}
}
