// Package trigger decides when a feed should ask for its next page.
//
// A Trigger watches a sentinel row (the "load more" line below the last
// item). It is armed a short delay after the view mounts so the first
// render does not immediately request page 1, and it fires each time the
// sentinel scrolls into range. It does no scheduling itself: Mount hands
// back a token and a delay, and the owner delivers the token to Arm when
// the delay has passed.
package trigger

import (
	"fmt"
	"time"

	"github.com/abelbrown/redview/internal/otel"
)

const (
	DefaultArmDelay = 1500 * time.Millisecond
	// DefaultMargin is how many rows below the viewport still count as visible.
	DefaultMargin = 5
)

// State of a Trigger.
type State int

const (
	Unarmed   State = iota // mounted, arm delay pending
	Armed                  // waiting for the sentinel to appear
	Triggered              // fired; waiting for the sentinel to leave
	Rearmed                // sentinel left after a fire; next appearance fires
	Closed
)

func (s State) String() string {
	switch s {
	case Unarmed:
		return "unarmed"
	case Armed:
		return "armed"
	case Triggered:
		return "triggered"
	case Rearmed:
		return "rearmed"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Token identifies one Mount. Zero is never issued.
type Token uint64

// Options configures a Trigger.
type Options struct {
	ArmDelay time.Duration
	Margin   int
}

func (o Options) withDefaults() Options {
	if o.ArmDelay <= 0 {
		o.ArmDelay = DefaultArmDelay
	}
	if o.Margin <= 0 {
		o.Margin = DefaultMargin
	}
	return o
}

// Trigger is not safe for concurrent use; it lives in the UI update loop.
type Trigger struct {
	opts   Options
	onFire func()
	events *otel.Logger

	state   State
	last    Token
	pending Token
	visible bool
	fires   int
}

// New creates a closed Trigger that calls onFire every time it fires.
// Call Mount to start it.
func New(onFire func(), opts Options) *Trigger {
	return &Trigger{opts: opts.withDefaults(), onFire: onFire, state: Closed}
}

// SetEvents attaches an event log.
func (t *Trigger) SetEvents(l *otel.Logger) { t.events = l }

// Margin returns the visibility margin in rows.
func (t *Trigger) Margin() int { return t.opts.Margin }

// Mount starts a new arm cycle. Any token from an earlier Mount becomes
// stale. The caller must pass the returned token to Arm after delay.
func (t *Trigger) Mount() (Token, time.Duration) {
	t.last++
	t.pending = t.last
	t.state = Unarmed
	t.visible = false
	return t.pending, t.opts.ArmDelay
}

// Arm completes the deferred setup started by Mount. Stale tokens, or a
// token delivered after Teardown, are ignored. If the sentinel is already
// in range the trigger fires immediately. Returns whether it armed.
func (t *Trigger) Arm(tok Token) bool {
	if tok == 0 || tok != t.pending || t.state != Unarmed {
		return false
	}
	t.pending = 0
	t.state = Armed
	t.emit(otel.KindTriggerArm)
	if t.visible {
		t.fire(otel.KindTriggerFire)
	}
	return true
}

// Observe records whether the sentinel is within range of the viewport.
// It fires when the sentinel comes into range while armed and reports
// whether it did.
func (t *Trigger) Observe(visible bool) bool {
	was := t.visible
	t.visible = visible

	switch t.state {
	case Armed, Rearmed:
		if visible && !was {
			t.fire(otel.KindTriggerFire)
			return true
		}
	case Triggered:
		if !visible {
			t.state = Rearmed
		}
	}
	return false
}

// Fire is the manual override. It ignores visibility and arming and
// works in every state except Closed.
func (t *Trigger) Fire() bool {
	if t.state == Closed {
		return false
	}
	t.fire(otel.KindTriggerManual)
	return true
}

func (t *Trigger) fire(kind otel.EventKind) {
	if t.state == Armed || t.state == Rearmed {
		t.state = Triggered
	}
	t.fires++
	t.emit(kind)
	if t.onFire != nil {
		t.onFire()
	}
}

// Teardown detaches the trigger and invalidates the pending arm token.
// Safe to call more than once.
func (t *Trigger) Teardown() {
	t.pending = 0
	t.state = Closed
	t.visible = false
}

// State returns the current state.
func (t *Trigger) State() State { return t.state }

// Fires returns how many times the trigger has fired since New.
func (t *Trigger) Fires() int { return t.fires }

// InRange reports whether a sentinel at row sentinel is within margin rows
// below the last visible row. Rows are zero-based.
func InRange(sentinel, lastVisible, margin int) bool {
	return sentinel <= lastVisible+margin
}

func (t *Trigger) emit(kind otel.EventKind) {
	if t.events == nil {
		return
	}
	t.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: kind, Comp: "trigger", Count: t.fires})
}
