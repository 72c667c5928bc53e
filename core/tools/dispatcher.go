package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/koscakluka/ema-live/core/wire"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Call struct {
	ID   string
	Name string
	Args json.RawMessage
}

func CallFromEnvelope(call wire.ToolCall) Call {
	return Call{ID: call.ID, Name: call.Name, Args: call.Args}
}

type ResultCode string

const (
	ResultOK               ResultCode = "ok"
	ResultUnknownTool      ResultCode = "unknown_tool"
	ResultInvalidArguments ResultCode = "invalid_arguments"
	ResultToolFailed       ResultCode = "tool_failed"
)

// Result is the outcome of one dispatch. ID always matches the call.
type Result struct {
	ID     string
	Name   string
	Code   ResultCode
	Output any
	Err    error
}

func (r Result) OK() bool { return r.Code == ResultOK }

// Envelope converts the result into the message sent back to the remote
// side. Failures are reported in the payload, never by omitting the reply.
func (r Result) Envelope() wire.ToolResult {
	response := map[string]any{}
	if r.OK() {
		response["output"] = r.Output
	} else {
		message := string(r.Code)
		if r.Err != nil {
			message = r.Err.Error()
		}
		response["error"] = map[string]any{"code": string(r.Code), "message": message}
	}
	return wire.ToolResult{ID: r.ID, Name: r.Name, Response: response}
}

type Dispatcher struct {
	tools map[string]Tool
	order []string

	mu sync.RWMutex
}

func NewDispatcher(tools ...Tool) *Dispatcher {
	d := &Dispatcher{tools: map[string]Tool{}}
	for _, tool := range tools {
		d.RegisterTool(tool)
	}
	return d
}

// Register adds a handler without a parameter schema. Registering an
// existing name replaces the previous handler.
func (d *Dispatcher) Register(name string, handler Handler) {
	d.RegisterTool(Tool{Name: name, Handler: handler})
}

func (d *Dispatcher) RegisterTool(tool Tool) {
	if tool.Name == "" || tool.Handler == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tools[tool.Name]; !ok {
		d.order = append(d.order, tool.Name)
	}
	d.tools[tool.Name] = tool
}

// Declarations returns registered tools in registration order.
func (d *Dispatcher) Declarations() []Tool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tools := make([]Tool, 0, len(d.order))
	for _, name := range d.order {
		tools = append(tools, d.tools[name])
	}
	return tools
}

func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.tools)
}

// Dispatch runs the handler registered for call.Name. It never panics and
// always returns a result carrying call.ID.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) (result Result) {
	ctx, span := tracer.Start(ctx, "execute tool")
	defer span.End()
	span.SetAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.ID),
	)

	result = Result{ID: call.ID, Name: call.Name}
	defer func() {
		if result.Err != nil {
			span.RecordError(result.Err)
			span.SetStatus(codes.Error, result.Err.Error())
			logger.Warn("tool call failed", "tool.name", call.Name, "tool.call_id", call.ID, "code", string(result.Code), "error", result.Err)
		}
	}()

	d.mu.RLock()
	tool, ok := d.tools[call.Name]
	d.mu.RUnlock()
	if !ok {
		result.Code = ResultUnknownTool
		result.Err = fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)
		return result
	}

	if len(call.Args) > 0 && !json.Valid(call.Args) {
		result.Code = ResultInvalidArguments
		result.Err = fmt.Errorf("%w: arguments are not valid JSON", ErrInvalidArguments)
		return result
	}

	output, err := run(ctx, tool, call.Args)
	switch {
	case errors.Is(err, ErrInvalidArguments):
		result.Code = ResultInvalidArguments
		result.Err = err
	case err != nil:
		result.Code = ResultToolFailed
		result.Err = fmt.Errorf("failed to execute tool %q: %w", call.Name, err)
	default:
		result.Code = ResultOK
		result.Output = output
	}
	return result
}

func run(ctx context.Context, tool Tool, args json.RawMessage) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return tool.Handler(ctx, args)
}
