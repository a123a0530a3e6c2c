package broadcast

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
)

const scopeName = "github.com/kingbootoshi/Stream-Buddy/core/broadcast"

var (
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)
