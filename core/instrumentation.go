package dialogue

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-companion/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	recognitionRestarts, _ = meter.Int64Counter("dialogue.recognition.restarts",
		metric.WithDescription("Speech-to-text streams restarted after ending on their own"))
	fallbackReplies, _ = meter.Int64Counter("dialogue.responses.fallbacks",
		metric.WithDescription("Replies replaced by the fallback text"))
	loggedTurns, _ = meter.Int64Counter("dialogue.turns",
		metric.WithDescription("Turns appended to the conversation log"))
)
