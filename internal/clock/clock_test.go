package clock

import (
	"testing"
	"time"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := NewFake(start)

	f.Advance(250 * time.Millisecond)

	if got := f.Now(); !got.Equal(start.Add(250 * time.Millisecond)) {
		t.Errorf("Now: got %v, want %v", got, start.Add(250*time.Millisecond))
	}
	if got := f.Micros(); got != 250_000 {
		t.Errorf("Micros: got %d, want 250000", got)
	}
}

func TestFakeMicrosWrap(t *testing.T) {
	f := NewFake(time.Time{})
	f.SetMicros(^uint32(0) - 99)

	before := f.Micros()
	f.Advance(200 * time.Microsecond)
	after := f.Micros()

	if after-before != 200 {
		t.Errorf("wrapping difference: got %d, want 200", after-before)
	}
}

func TestSystemMicrosMonotonic(t *testing.T) {
	var c Clock = System{}
	a := c.Micros()
	time.Sleep(2 * time.Millisecond)
	b := c.Micros()
	if b-a < 1000 {
		t.Errorf("expected at least 1000us between reads, got %d", b-a)
	}
}
