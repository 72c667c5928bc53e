package main

import (
	"context"
	"fmt"
	"time"

	"github.com/koscakluka/ema-live/core/tools"
)

type currentTimeArgs struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"description=IANA time zone such as Europe/Zagreb. Defaults to the local zone."`
}

func demoTools() []tools.Tool {
	return []tools.Tool{
		tools.NewTool("get_current_time", "Get the current date and time", currentTime),
	}
}

func currentTime(_ context.Context, args currentTimeArgs) (any, error) {
	location := time.Local
	if args.Timezone != "" {
		var err error
		if location, err = time.LoadLocation(args.Timezone); err != nil {
			return nil, fmt.Errorf("unknown time zone %q: %w", args.Timezone, err)
		}
	}

	now := time.Now().In(location)
	return map[string]string{
		"time":     now.Format(time.RFC3339),
		"timezone": location.String(),
		"weekday":  now.Weekday().String(),
	}, nil
}
