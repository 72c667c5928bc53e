package playback

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-live/core/playback"

var (
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)

	decodeErrors, _ = meter.Int64Counter(
		"ema_live.playback.decode_errors",
		metric.WithDescription("Inbound audio chunks dropped because they could not be decoded"),
	)
)
