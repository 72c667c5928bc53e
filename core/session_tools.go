package live

import (
	"context"
	"errors"
	"time"

	"github.com/koscakluka/ema-live/core/tools"
)

const endSessionGrace = 10 * time.Second

func sessionTools(e *Engine) []tools.Tool {
	return []tools.Tool{
		tools.NewTool("end_session", "End the voice call. Say goodbye before calling this, the call ends once you finish speaking.",
			func(ctx context.Context, parameters struct {
				Reason string `json:"reason,omitempty" jsonschema:"description=Why the call is ending"`
			}) (any, error) {
				s, ok := sessionFromContext(ctx)
				if !ok || s.engine != e {
					return nil, errors.New("no active session")
				}
				logger.Info("session end requested by model", "session_id", s.id, "reason", parameters.Reason)
				s.requestEnd(endSessionGrace)
				return "Success. The call will end after your current response.", nil
			}),
	}
}
