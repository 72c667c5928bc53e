package live

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-live/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)

	droppedFrames, _ = meter.Int64Counter(
		"ema_live.capture.dropped_frames",
		metric.WithDescription("Captured frames that were not sent because no live session could take them"),
	)
)
