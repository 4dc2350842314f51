package rs

import "testing"

// fakeEntry is a minimal Entry used only to exercise Station in isolation.
type fakeEntry struct {
	rob     int
	rs1     Operand
	ready   bool
}

func (f *fakeEntry) ROBIdx() int { return f.rob }
func (f *fakeEntry) IsReady() bool {
	return f.ready || f.rs1.Ready()
}
func (f *fakeEntry) UpdateFromCDB(robIdx int, value int64) {
	if op, ok := f.rs1.UpdateFromCDB(robIdx, value); ok {
		f.rs1 = op
		f.ready = true
	}
}

func TestIssueAndPickOldestReady(t *testing.T) {
	s := New[*fakeEntry](2)
	if !s.Issue(&fakeEntry{rob: 0, ready: true}) {
		t.Fatal("expected Issue to succeed into a clear slot")
	}
	if !s.Issue(&fakeEntry{rob: 1, ready: true}) {
		t.Fatal("expected Issue to succeed into the second slot")
	}
	if s.Issue(&fakeEntry{rob: 2, ready: true}) {
		t.Fatal("expected Issue to fail, station is full")
	}

	idx, ok := s.PickOldestReady()
	if !ok || idx != 0 {
		t.Fatalf("expected to pick slot 0 first, got idx=%d ok=%v", idx, ok)
	}
	if s.StatusOf(0) != Executing {
		t.Fatalf("expected slot 0 to move to Executing, got %v", s.StatusOf(0))
	}

	idx, ok = s.PickOldestReady()
	if !ok || idx != 1 {
		t.Fatalf("expected to pick slot 1 next, got idx=%d ok=%v", idx, ok)
	}

	if _, ok := s.PickOldestReady(); ok {
		t.Fatal("expected no more ready entries")
	}
}

func TestIssueWaitingOperandsUntilCDBResolves(t *testing.T) {
	s := New[*fakeEntry](1)
	e := &fakeEntry{rob: 5, rs1: Operand{Tag: TagPending, RobIdx: 3}}
	s.Issue(e)
	if s.StatusOf(0) != WaitingOperands {
		t.Fatalf("expected WaitingOperands, got %v", s.StatusOf(0))
	}

	s.UpdateFromCDB(3, 77)
	if s.StatusOf(0) != Ready {
		t.Fatalf("expected the entry to become Ready once its producer's ROB index broadcasts, got %v", s.StatusOf(0))
	}
	if got := s.Entry(0).rs1.Value; got != 77 {
		t.Fatalf("expected forwarded value 77, got %d", got)
	}
}

func TestClearResetsSlot(t *testing.T) {
	s := New[*fakeEntry](1)
	s.Issue(&fakeEntry{rob: 0, ready: true})
	s.PickOldestReady()
	s.MarkDone(0, s.Entry(0))
	if s.StatusOf(0) != Done {
		t.Fatalf("expected Done, got %v", s.StatusOf(0))
	}
	s.Clear(0)
	if s.StatusOf(0) != Clear {
		t.Fatalf("expected Clear, got %v", s.StatusOf(0))
	}
	if !s.HasFreeSlot() {
		t.Fatal("expected a free slot after Clear")
	}
}

func TestPickNewestReadyFollowsTrueIssueOrderAfterRecycling(t *testing.T) {
	s := New[*fakeEntry](3)
	s.Issue(&fakeEntry{rob: 0, ready: true}) // A -> slot 0
	s.Issue(&fakeEntry{rob: 1, ready: true}) // B -> slot 1
	s.Issue(&fakeEntry{rob: 2, ready: true}) // C -> slot 2

	idx, ok := s.PickNewestReady()
	if !ok || idx != 2 {
		t.Fatalf("expected slot 2 (C) to be newest, got idx=%d ok=%v", idx, ok)
	}
	s.MarkDone(2, s.Entry(2))
	s.Clear(2)

	s.Clear(1) // B retires without going through Done, freeing slot 1
	s.Issue(&fakeEntry{rob: 3, ready: true}) // D -> slot 1, now the youngest live entry

	idx, ok = s.PickNewestReady()
	if !ok || idx != 1 {
		t.Fatalf("expected slot 1 (D), the most recently issued entry, got idx=%d ok=%v", idx, ok)
	}
}

func TestOperandUpdateFromCDBOnlyResolvesMatchingTag(t *testing.T) {
	arch := FromReg(4)
	if _, ok := arch.UpdateFromCDB(0, 1); ok {
		t.Fatal("a TagArch operand should never resolve directly from the CDB")
	}

	pending := Operand{Tag: TagPending, RobIdx: 9}
	if _, ok := pending.UpdateFromCDB(8, 1); ok {
		t.Fatal("a pending operand watching ROB 9 should not resolve on a packet for ROB 8")
	}
	resolved, ok := pending.UpdateFromCDB(9, 42)
	if !ok || !resolved.Ready() || resolved.Value != 42 {
		t.Fatalf("expected the operand to resolve to 42, got %+v ok=%v", resolved, ok)
	}
}
