package server

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/kingbootoshi/Stream-Buddy/internal/server"

var logger = otelslog.NewLogger(scopeName)
