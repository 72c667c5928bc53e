package events

const (
	// KindToolCallStarted identifies tool call execution start.
	KindToolCallStarted Kind = "tool_call.started"
	// KindToolCallCompleted identifies successful tool call completion.
	KindToolCallCompleted Kind = "tool_call.completed"
	// KindToolCallFailed identifies tool call failure.
	KindToolCallFailed Kind = "tool_call.failed"
	// KindToolCallCancelled identifies cancellation of a pending tool call.
	KindToolCallCancelled Kind = "tool_call.cancelled"
)

// ToolCallStarted marks start of tool execution.
type ToolCallStarted struct {
	Base
	ID        string
	Name      string
	Arguments string
}

// NewToolCallStarted creates a tool call started event.
func NewToolCallStarted(sessionID, id, name, arguments string) ToolCallStarted {
	return ToolCallStarted{Base: NewBase(KindToolCallStarted, sessionID), ID: id, Name: name, Arguments: arguments}
}

// ToolCallCompleted marks successful tool execution.
type ToolCallCompleted struct {
	Base
	ID       string
	Name     string
	Response string
}

// NewToolCallCompleted creates a tool call completed event.
func NewToolCallCompleted(sessionID, id, name, response string) ToolCallCompleted {
	return ToolCallCompleted{Base: NewBase(KindToolCallCompleted, sessionID), ID: id, Name: name, Response: response}
}

// ToolCallFailed marks failed tool execution.
type ToolCallFailed struct {
	Base
	ID    string
	Name  string
	Code  string
	Error string
}

// NewToolCallFailed creates a tool call failed event.
func NewToolCallFailed(sessionID, id, name, code, err string) ToolCallFailed {
	return ToolCallFailed{Base: NewBase(KindToolCallFailed, sessionID), ID: id, Name: name, Code: code, Error: err}
}

// ToolCallCancelled marks a pending call whose result will not be sent.
type ToolCallCancelled struct {
	Base
	ID   string
	Name string
}

// NewToolCallCancelled creates a tool call cancelled event.
func NewToolCallCancelled(sessionID, id, name string) ToolCallCancelled {
	return ToolCallCancelled{Base: NewBase(KindToolCallCancelled, sessionID), ID: id, Name: name}
}
