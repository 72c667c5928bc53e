package events

import "time"

type Kind string

type Event interface {
	Kind() Kind
	SessionID() string
	Timestamp() time.Time
}

type Base struct {
	kind      Kind
	sessionID string
	timestamp time.Time
}

func NewBase(kind Kind, sessionID string) Base {
	return Base{kind: kind, sessionID: sessionID, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

// SessionID identifies the session that produced the event. It is empty for
// events raised before a session exists.
func (b Base) SessionID() string {
	return b.sessionID
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}
