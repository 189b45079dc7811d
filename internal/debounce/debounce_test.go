package debounce

import (
	"testing"
	"time"
)

var start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// setupBaselinedDetector returns a detector with a 250ms period whose stable
// level is already established.
func setupBaselinedDetector(t *testing.T, level bool) *Detector {
	t.Helper()
	d := New(250 * time.Millisecond)
	d.Process(level, start)
	if r := d.Process(level, start.Add(250*time.Millisecond)); r != Baseline {
		t.Fatalf("expected baseline, got %s", r)
	}
	return d
}

func TestNewDetector(t *testing.T) {
	d := New(250 * time.Millisecond)
	if d.Period() != 250*time.Millisecond {
		t.Errorf("expected period 250ms, got %v", d.Period())
	}
	if d.IsBaselined() {
		t.Error("new detector should not be baselined")
	}
}

func TestBaselineEstablishment(t *testing.T) {
	d := New(250 * time.Millisecond)

	// First sample - starts observation
	if r := d.Process(true, start); r != None {
		t.Errorf("expected NONE during baseline, got %s", r)
	}

	// Before debounce period
	if r := d.Process(true, start.Add(200*time.Millisecond)); r != None {
		t.Errorf("expected NONE during baseline, got %s", r)
	}
	if d.IsBaselined() {
		t.Error("should not be baselined before debounce period")
	}

	// After debounce period - baseline established
	if r := d.Process(true, start.Add(250*time.Millisecond)); r != Baseline {
		t.Errorf("expected BASELINE, got %s", r)
	}
	if !d.IsBaselined() || !d.Stable() {
		t.Error("should be baselined ON after debounce period")
	}
}

func TestBaselineResetOnChange(t *testing.T) {
	d := New(250 * time.Millisecond)

	d.Process(true, start)
	// Change level before debounce completes
	d.Process(false, start.Add(100*time.Millisecond))

	// Full period from the original time - should NOT baseline because the level changed
	if r := d.Process(false, start.Add(250*time.Millisecond)); r != None {
		t.Errorf("expected NONE, got %s", r)
	}

	// Full period from the change
	if r := d.Process(false, start.Add(350*time.Millisecond)); r != Baseline {
		t.Errorf("expected BASELINE, got %s", r)
	}
	if d.Stable() {
		t.Error("expected stable OFF")
	}
}

func TestZeroPeriodBaselinesImmediately(t *testing.T) {
	d := New(0)
	if r := d.Process(true, start); r != Baseline {
		t.Fatalf("expected BASELINE, got %s", r)
	}
	if r := d.Process(false, start); r != Changed {
		t.Errorf("expected CHANGED, got %s", r)
	}
}

func TestNoTransitionsForStableLevel(t *testing.T) {
	d := setupBaselinedDetector(t, true)
	now := start.Add(time.Minute)

	for i := 0; i < 10; i++ {
		if r := d.Process(true, now.Add(time.Duration(i)*100*time.Millisecond)); r != None {
			t.Errorf("iteration %d: expected NONE for stable level, got %s", i, r)
		}
	}
}

func TestSingleTransitionOnToOff(t *testing.T) {
	d := setupBaselinedDetector(t, true)
	now := start.Add(time.Minute)

	if r := d.Process(false, now); r != None {
		t.Errorf("expected NONE before debounce, got %s", r)
	}
	if r := d.Process(false, now.Add(200*time.Millisecond)); r != None {
		t.Errorf("expected NONE before debounce, got %s", r)
	}
	if r := d.Process(false, now.Add(250*time.Millisecond)); r != Changed {
		t.Fatalf("expected CHANGED after debounce, got %s", r)
	}
	if d.Stable() {
		t.Error("expected stable OFF")
	}
}

func TestBounceShorterThanDebounce(t *testing.T) {
	d := setupBaselinedDetector(t, false)
	now := start.Add(time.Minute)

	d.Process(true, now)
	// Bounce back before debounce completes
	d.Process(false, now.Add(100*time.Millisecond))

	if r := d.Process(false, now.Add(300*time.Millisecond)); r != None {
		t.Errorf("expected NONE for bounce, got %s", r)
	}
	if d.Stable() {
		t.Error("stable level should remain OFF")
	}
}

func TestMultipleBounces(t *testing.T) {
	d := setupBaselinedDetector(t, false)
	now := start.Add(time.Minute)

	levels := []bool{true, false, true, false, true}
	for i, l := range levels {
		if r := d.Process(l, now.Add(time.Duration(i)*50*time.Millisecond)); r != None {
			t.Errorf("bounce %d: expected NONE, got %s", i, r)
		}
	}

	// Last level (true) held long enough; pending since 200ms
	if r := d.Process(true, now.Add(450*time.Millisecond)); r != Changed {
		t.Errorf("expected CHANGED, got %s", r)
	}
}

func TestDebounceExactTiming(t *testing.T) {
	d := setupBaselinedDetector(t, false)
	now := start.Add(time.Minute)

	d.Process(true, now)
	if r := d.Process(true, now.Add(249*time.Millisecond)); r != None {
		t.Errorf("expected NONE at 249ms, got %s", r)
	}
	if r := d.Process(true, now.Add(250*time.Millisecond)); r != Changed {
		t.Errorf("expected CHANGED at exactly 250ms, got %s", r)
	}
}

func TestCountsIncrementOnTransition(t *testing.T) {
	d := setupBaselinedDetector(t, false)
	now := start.Add(time.Minute)

	for i := 0; i < 3; i++ {
		base := now.Add(time.Duration(i) * time.Second)
		d.Process(true, base)
		d.Process(true, base.Add(250*time.Millisecond))
		d.Process(false, base.Add(500*time.Millisecond))
		d.Process(false, base.Add(750*time.Millisecond))
	}

	c := d.Counts()
	if c.On != 3 || c.Off != 3 {
		t.Errorf("expected 3/3, got %+v", c)
	}
}

func TestResultString(t *testing.T) {
	if Changed.String() != "CHANGED" || Result(9).String() != "NONE" {
		t.Error("unexpected result names")
	}
}
