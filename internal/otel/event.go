// Package otel records what the pager, trigger and preference bus did.
//
// Events are typed structs written as JSONL by an async Logger. A
// RingBuffer keeps the most recent events in memory for the debug overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Pager events
	KindPageRequest  EventKind = "page.request"
	KindPageComplete EventKind = "page.complete"
	KindPageError    EventKind = "page.error"
	KindPageRetry    EventKind = "page.retry"
	KindPageNotFound EventKind = "page.notfound"
	KindPageEnd      EventKind = "page.end"
	KindPageStale    EventKind = "page.stale"
	KindPageReset    EventKind = "page.reset"

	// Scroll trigger events
	KindTriggerArm    EventKind = "trigger.arm"
	KindTriggerFire   EventKind = "trigger.fire"
	KindTriggerManual EventKind = "trigger.manual"

	// Preference events
	KindPrefWrite       EventKind = "pref.write"
	KindPrefDecodeError EventKind = "pref.decode_error"

	// Thread and refresh events
	KindThreadFetch  EventKind = "thread.fetch"
	KindThreadError  EventKind = "thread.error"
	KindRefreshCheck EventKind = "refresh.check"
	KindRefreshError EventKind = "refresh.error"

	// Store events
	KindStoreError EventKind = "store.error"

	// UI events
	KindNavigate EventKind = "ui.navigate"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"

	// Trace events, only with REDVIEW_TRACE set
	KindMsgReceived EventKind = "trace.msg_received"
	KindMsgHandled  EventKind = "trace.msg_handled"
)

// Event is one observability record. Every field except Kind and Time is
// optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // "pager", "trigger", "prefs", "ui", "coord", "main"
	SessionID string         `json:"session_id,omitempty"`
	Route     string         `json:"route,omitempty"` // feed location, e.g. "/r/aww?viewType=hot"
	Page      int            `json:"page,omitempty"`
	Attempt   int            `json:"attempt,omitempty"`
	Status    int            `json:"status,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"`
	Count     int            `json:"count,omitempty"`
	URL       string         `json:"url,omitempty"`
	Key       string         `json:"key,omitempty"` // preference key
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON converts Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}

// Subsystem returns the part of the kind before the dot.
func (k EventKind) Subsystem() string {
	for i := 0; i < len(k); i++ {
		if k[i] == '.' {
			return string(k[:i])
		}
	}
	return string(k)
}
