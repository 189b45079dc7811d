package gpio

import (
	"errors"
	"testing"
)

func TestFakeLineRead(t *testing.T) {
	f := NewFakeLine(true, false, true)

	want := []bool{true, false, true, true} // last sample repeats
	for i, w := range want {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("sample %d: unexpected error: %v", i, err)
		}
		if got != w {
			t.Errorf("sample %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestFakeLineNoSamplesReadsLevel(t *testing.T) {
	f := NewFakeLine()
	f.SetLevel(true)

	got, err := f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Error("expected current level")
	}
}

func TestFakeLineError(t *testing.T) {
	f := NewFakeLine(true)
	f.ReadError = errors.New("simulated error")

	_, err := f.Read()
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeLineEdgeCallsHandler(t *testing.T) {
	f := NewFakeLine()
	var levels []bool
	var stamps []uint32
	if err := f.Watch(func(level bool, micros uint32) {
		levels = append(levels, level)
		stamps = append(stamps, micros)
	}); err != nil {
		t.Fatalf("watch: %v", err)
	}

	f.Edge(true, 100)
	f.Edge(false, 300)

	if len(levels) != 2 || !levels[0] || levels[1] {
		t.Errorf("levels = %v", levels)
	}
	if stamps[1] != 300 {
		t.Errorf("stamps = %v", stamps)
	}
	if f.Level() {
		t.Error("level should follow the last edge")
	}
}

func TestFakeLineWrite(t *testing.T) {
	f := NewFakeLine()
	if err := f.Write(true); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.WriteError = errors.New("busy")
	if err := f.Write(false); err == nil {
		t.Error("expected write error")
	}
	if len(f.Writes) != 1 || !f.Writes[0] {
		t.Errorf("writes = %v", f.Writes)
	}
}

func TestFakeLineCloseAndReset(t *testing.T) {
	f := NewFakeLine(true, false)

	if f.Closed {
		t.Error("should not be closed initially")
	}
	f.Read()
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	f.Reset()
	got, _ := f.Read()
	if !got {
		t.Error("after reset: expected first sample again")
	}
}

func TestFakeChip(t *testing.T) {
	c := NewFakeChip()
	c.Fail[5] = errors.New("busy")

	in, err := c.Input(3, InputConfig{})
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	if err := in.Watch(func(bool, uint32) {}); !errors.Is(err, ErrNoEdges) {
		t.Errorf("expected ErrNoEdges without edge detection, got %v", err)
	}

	out, err := c.Output(4, OutputConfig{Initial: true})
	if err != nil {
		t.Fatalf("output: %v", err)
	}
	if !c.Line(4).Level() {
		t.Error("output should start at its initial level")
	}
	_ = out

	if _, err := c.Input(5, InputConfig{}); err == nil {
		t.Error("expected request error")
	}

	if err := c.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if err := c.Close(); err == nil {
		t.Error("second close should fail")
	}
}
