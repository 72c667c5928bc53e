package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/koscakluka/ema-live/core/tools"
)

func TestCurrentTimeTool(t *testing.T) {
	dispatcher := tools.NewDispatcher(demoTools()...)

	result := dispatcher.Dispatch(context.Background(), tools.Call{ID: "1", Name: "get_current_time", Args: json.RawMessage(`{"timezone":"UTC"}`)})
	if !result.OK() {
		t.Fatalf("expected success, got %v", result.Err)
	}
	output, ok := result.Output.(map[string]string)
	if !ok || output["timezone"] != "UTC" || output["time"] == "" {
		t.Fatalf("unexpected output %#v", result.Output)
	}

	result = dispatcher.Dispatch(context.Background(), tools.Call{ID: "2", Name: "get_current_time", Args: json.RawMessage(`{"timezone":"Mars/Olympus"}`)})
	if result.Code != tools.ResultToolFailed {
		t.Fatalf("expected tool failure for unknown zone, got %q", result.Code)
	}
}
