package trigger

import (
	"testing"
	"time"
)

func newCounting(opts Options) (*Trigger, *int) {
	n := 0
	return New(func() { n++ }, opts), &n
}

func TestMountReturnsDelay(t *testing.T) {
	tr, _ := newCounting(Options{})
	tok, delay := tr.Mount()
	if tok == 0 {
		t.Error("token must be non-zero")
	}
	if delay != DefaultArmDelay {
		t.Errorf("delay = %v, want %v", delay, DefaultArmDelay)
	}
	if tr.State() != Unarmed {
		t.Errorf("state = %v, want unarmed", tr.State())
	}

	tr2, _ := newCounting(Options{ArmDelay: 200 * time.Millisecond, Margin: 2})
	if _, d := tr2.Mount(); d != 200*time.Millisecond {
		t.Errorf("custom delay = %v", d)
	}
	if tr2.Margin() != 2 {
		t.Errorf("margin = %d, want 2", tr2.Margin())
	}
}

func TestNoFireBeforeArm(t *testing.T) {
	tr, n := newCounting(Options{})
	tr.Mount()

	if tr.Observe(true) {
		t.Error("fired before arm delay elapsed")
	}
	if *n != 0 {
		t.Errorf("callback ran %d times", *n)
	}
}

func TestArmFiresWhenSentinelAlreadyVisible(t *testing.T) {
	tr, n := newCounting(Options{})
	tok, _ := tr.Mount()
	tr.Observe(true)

	if !tr.Arm(tok) {
		t.Fatal("Arm refused current token")
	}
	if *n != 1 {
		t.Errorf("fires = %d, want 1", *n)
	}
	if tr.State() != Triggered {
		t.Errorf("state = %v, want triggered", tr.State())
	}
}

func TestStaleTokenIgnored(t *testing.T) {
	tr, _ := newCounting(Options{})
	old, _ := tr.Mount()
	cur, _ := tr.Mount()

	if tr.Arm(old) {
		t.Error("stale token armed the trigger")
	}
	if tr.State() != Unarmed {
		t.Errorf("state = %v, want unarmed", tr.State())
	}
	if !tr.Arm(cur) {
		t.Error("current token refused")
	}
	if tr.Arm(cur) {
		t.Error("token accepted twice")
	}
}

func TestContinuousFiring(t *testing.T) {
	tr, n := newCounting(Options{})
	tok, _ := tr.Mount()
	tr.Arm(tok)

	// Scroll down: sentinel appears.
	if !tr.Observe(true) {
		t.Fatal("expected fire on first appearance")
	}
	// Cursor keeps moving while the page loads: no duplicate fires.
	for i := 0; i < 3; i++ {
		if tr.Observe(true) {
			t.Fatal("fired again while sentinel stayed visible")
		}
	}
	// Page appended: sentinel pushed out of range.
	tr.Observe(false)
	if tr.State() != Rearmed {
		t.Fatalf("state = %v, want rearmed", tr.State())
	}
	// Scroll again.
	if !tr.Observe(true) {
		t.Fatal("expected fire after rearm")
	}
	if *n != 2 {
		t.Errorf("fires = %d, want 2", *n)
	}
}

func TestManualFire(t *testing.T) {
	tr, n := newCounting(Options{})
	tr.Mount()

	// Works before arming.
	if !tr.Fire() {
		t.Error("manual fire refused while unarmed")
	}
	if tr.State() != Unarmed {
		t.Errorf("manual fire changed state to %v", tr.State())
	}
	if *n != 1 {
		t.Errorf("fires = %d, want 1", *n)
	}

	tr.Teardown()
	if tr.Fire() {
		t.Error("manual fire accepted after teardown")
	}
	if tr.Fires() != 1 {
		t.Errorf("Fires() = %d, want 1", tr.Fires())
	}
}

func TestTeardown(t *testing.T) {
	tr, n := newCounting(Options{})
	tok, _ := tr.Mount()

	tr.Teardown()
	tr.Teardown()

	if tr.Arm(tok) {
		t.Error("token armed a torn-down trigger")
	}
	if tr.Observe(true) {
		t.Error("torn-down trigger fired")
	}
	if *n != 0 {
		t.Errorf("callback ran %d times", *n)
	}

	// A remount starts a fresh cycle.
	tok2, _ := tr.Mount()
	if tok2 == tok {
		t.Error("remount reused a token")
	}
	if !tr.Arm(tok2) {
		t.Error("remount token refused")
	}
}

func TestNewStartsClosed(t *testing.T) {
	tr, _ := newCounting(Options{})
	if tr.State() != Closed {
		t.Errorf("state = %v, want closed", tr.State())
	}
	if tr.Fire() {
		t.Error("fire before mount")
	}
}

func TestInRange(t *testing.T) {
	tests := []struct {
		sentinel, last, margin int
		want                   bool
	}{
		{10, 10, 0, true},
		{11, 10, 0, false},
		{15, 10, 5, true},
		{16, 10, 5, false},
		{3, 10, 5, true},
	}
	for _, tt := range tests {
		if got := InRange(tt.sentinel, tt.last, tt.margin); got != tt.want {
			t.Errorf("InRange(%d, %d, %d) = %v, want %v", tt.sentinel, tt.last, tt.margin, got, tt.want)
		}
	}
}
