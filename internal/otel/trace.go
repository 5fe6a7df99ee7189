package otel

import (
	"os"
	"sync/atomic"
)

// traceEnabled is set at package init from REDVIEW_TRACE and may be
// turned on later by the --trace flag. Read from the UI goroutine.
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("REDVIEW_TRACE") != "")
}

// TraceEnabled reports whether REDVIEW_TRACE is set. When it is, the UI
// records every message it receives and handles.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// SetTraceEnabled turns message tracing on or off.
func SetTraceEnabled(v bool) {
	traceEnabled.Store(v)
}
