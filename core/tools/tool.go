// Package tools matches remote tool invocations to locally registered
// handlers.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Handler executes a tool call. The returned value must be JSON serializable.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

type Tool struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Handler     Handler
}

// NewTool builds a tool whose arguments are decoded into T. The parameter
// schema advertised to the model is reflected from T.
func NewTool[T any](name, description string, fn func(ctx context.Context, args T) (any, error)) Tool {
	return Tool{
		Name:        name,
		Description: description,
		Parameters:  reflectParameters[T](),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args T
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &args); err != nil {
					return nil, fmt.Errorf("%w: %w", ErrInvalidArguments, err)
				}
			}
			return fn(ctx, args)
		},
	}
}

func reflectParameters[T any]() *jsonschema.Schema {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	reflector := jsonschema.Reflector{DoNotReference: true, AllowAdditionalProperties: true}
	schema := reflector.ReflectFromType(t)
	// The remote endpoint only understands the OpenAPI subset, so drop the
	// draft identifiers.
	schema.Version = ""
	schema.ID = ""
	return schema
}
