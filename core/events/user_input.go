package events

const (
	// KindUserSpeechStarted identifies start of user speech activity.
	KindUserSpeechStarted Kind = "user_input.speech_started"
	// KindUserSpeechEnded identifies end of user speech activity.
	KindUserSpeechEnded Kind = "user_input.speech_ended"
)

// UserSpeechStarted marks when user speech activity starts.
type UserSpeechStarted struct {
	Base
	Peak float32
}

// NewUserSpeechStarted creates a user speech started event.
func NewUserSpeechStarted(sessionID string, peak float32) UserSpeechStarted {
	return UserSpeechStarted{Base: NewBase(KindUserSpeechStarted, sessionID), Peak: peak}
}

// UserSpeechEnded marks when user speech activity ends.
type UserSpeechEnded struct{ Base }

// NewUserSpeechEnded creates a user speech ended event.
func NewUserSpeechEnded(sessionID string) UserSpeechEnded {
	return UserSpeechEnded{Base: NewBase(KindUserSpeechEnded, sessionID)}
}
