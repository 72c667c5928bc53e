package miniaudio

import "go.opentelemetry.io/contrib/bridges/otelslog"

const instrumentationName = "github.com/koscakluka/ema-live/core/audio/miniaudio"

var logger = otelslog.NewLogger(instrumentationName)
