// Package transcript accumulates streamed transcript fragments per speaker
// and turns them into finalized turns.
package transcript

import (
	"strings"
	"sync"

	"github.com/koscakluka/ema-live/core/wire"
)

type Turn struct {
	Role wire.Role
	Text string
}

// Aggregator keeps one in-progress buffer per role. It retains no history
// after Flush.
type Aggregator struct {
	user      strings.Builder
	assistant strings.Builder

	mu sync.Mutex
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// AppendFragment concatenates text onto the buffer for role. Fragments for
// unknown roles are ignored.
func (a *Aggregator) AppendFragment(role wire.Role, text string) {
	if text == "" || !role.Valid() {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	switch role {
	case wire.RoleUser:
		a.user.WriteString(text)
	case wire.RoleAssistant:
		a.assistant.WriteString(text)
	}
}

// Flush finalizes every role with non-blank buffered text, user first, and
// clears the buffers.
func (a *Aggregator) Flush() []Turn {
	a.mu.Lock()
	defer a.mu.Unlock()

	var turns []Turn
	if text := strings.TrimSpace(a.user.String()); text != "" {
		turns = append(turns, Turn{Role: wire.RoleUser, Text: text})
	}
	if text := strings.TrimSpace(a.assistant.String()); text != "" {
		turns = append(turns, Turn{Role: wire.RoleAssistant, Text: text})
	}

	a.user.Reset()
	a.assistant.Reset()
	return turns
}

// Pending reports the current, not yet finalized, text for role.
func (a *Aggregator) Pending(role wire.Role) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch role {
	case wire.RoleUser:
		return a.user.String()
	case wire.RoleAssistant:
		return a.assistant.String()
	}
	return ""
}

// Reset drops pending fragments without producing turns.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user.Reset()
	a.assistant.Reset()
}
