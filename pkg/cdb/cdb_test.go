package cdb

import "testing"

type fakeSource struct {
	result Result
	has    bool
	taken  int
}

func (f *fakeSource) HasResult() bool { return f.has }
func (f *fakeSource) TakeResult() Result {
	f.taken++
	f.has = false
	return f.result
}

func TestArbitrationPrefersRegistrationOrder(t *testing.T) {
	c := New()
	first := &fakeSource{result: Result{RobIdx: 1}, has: true}
	second := &fakeSource{result: Result{RobIdx: 2}, has: true}
	c.Register(first)
	c.Register(second)

	c.Step()
	r, ok := c.Peek()
	if !ok || r.RobIdx != 1 {
		t.Fatalf("expected the first registered source to win, got %+v ok=%v", r, ok)
	}
	if second.taken != 0 {
		t.Fatal("the second source should not have been drained this cycle")
	}
}

func TestSlotStaysOccupiedUntilDrained(t *testing.T) {
	c := New()
	src := &fakeSource{result: Result{RobIdx: 7}, has: true}
	c.Register(src)

	c.Step()
	c.Step() // slot already full, should not re-arbitrate
	if src.taken != 1 {
		t.Fatalf("expected exactly one TakeResult call, got %d", src.taken)
	}

	r, ok := c.Drain()
	if !ok || r.RobIdx != 7 {
		t.Fatalf("expected to drain RobIdx 7, got %+v ok=%v", r, ok)
	}
	if _, ok := c.Drain(); ok {
		t.Fatal("expected the slot to be empty after draining")
	}
}

func TestStepSkipsSourcesWithNoResult(t *testing.T) {
	c := New()
	empty := &fakeSource{has: false}
	ready := &fakeSource{result: Result{RobIdx: 3}, has: true}
	c.Register(empty)
	c.Register(ready)

	c.Step()
	r, ok := c.Peek()
	if !ok || r.RobIdx != 3 {
		t.Fatalf("expected to skip the empty source and take from the ready one, got %+v ok=%v", r, ok)
	}
}
