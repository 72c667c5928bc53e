package live

import "time"

type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusListening  Status = "active-listening"
	StatusSpeaking   Status = "active-speaking"
	StatusClosed     Status = "closed"
	StatusError      Status = "error"
)

// IsActive reports whether the session is streaming in either direction.
func (s Status) IsActive() bool {
	return s == StatusListening || s == StatusSpeaking
}

func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusError
}

// Session is a point-in-time snapshot of the engine's current session.
type Session struct {
	ID        string
	Status    Status
	StartedAt time.Time
}
