package openrouter

import "go.opentelemetry.io/otel"

const scopeName = "github.com/kingbootoshi/Stream-Buddy/core/llms/openrouter"

var tracer = otel.Tracer(scopeName)
