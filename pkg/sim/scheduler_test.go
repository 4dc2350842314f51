package sim

import (
	"strings"
	"testing"

	"github.com/len5sim/rvsim/pkg/dmem"
	"github.com/len5sim/rvsim/pkg/trace"
)

// program: addi x1, x0, 5 ; addi x2, x1, 3 — a RAW hazard on x1 that must
// flow through the CDB before the second instruction can execute.
const rawHazardProgram = `
   0:	00500093          	addi	x1,x0,5
   4:	00308113          	addi	x2,x1,3
`

func buildScheduler(t *testing.T, policy PickPolicy) *Scheduler {
	t.Helper()
	program, err := trace.DecodeAll(strings.NewReader(rawHazardProgram))
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	mem := dmem.New(dmem.Config{CacheLatency: 1, MemLatency: 2, HitRate: 1, Seed: 1})
	cfg := Config{
		ROBSize: 4, RSEntries: 1, IssueWidth: 1, MaxCycles: 100,
		Policy: policy, Seed: 1,
	}
	return New(cfg, program, mem)
}

func runToCompletion(t *testing.T, s *Scheduler) int {
	t.Helper()
	for cycle := 0; cycle < 100; cycle++ {
		if err := s.Step(cycle); err != nil {
			t.Fatalf("Step(%d): %v", cycle, err)
		}
		if s.Done() {
			return cycle
		}
	}
	t.Fatal("simulation did not drain within 100 cycles")
	return -1
}

func TestRAWHazardThroughCDBWithSingleRSEntry(t *testing.T) {
	s := buildScheduler(t, PickOldest)
	runToCompletion(t, s)

	if got := s.RF.Read(1); got != 5 {
		t.Fatalf("expected x1 == 5, got %d", got)
	}
	if got := s.RF.Read(2); got != 8 {
		t.Fatalf("expected x2 == 8 (5+3, forwarded through the CDB), got %d", got)
	}
}

func TestDoneIsFalseBeforeDraining(t *testing.T) {
	s := buildScheduler(t, PickOldest)
	if s.Done() {
		t.Fatal("a freshly-built scheduler with a non-empty program should not report Done")
	}
}

func TestStatsTrackCommittedInstructions(t *testing.T) {
	s := buildScheduler(t, PickOldest)
	runToCompletion(t, s)

	if got := s.Stats.Committed.Load(); got != 2 {
		t.Fatalf("expected 2 committed instructions, got %d", got)
	}
}

func TestDumpCommitHistoryJSONEncodesRetiredInstructions(t *testing.T) {
	s := buildScheduler(t, PickOldest)
	runToCompletion(t, s)

	var buf strings.Builder
	if err := s.DumpCommitHistoryJSON(&buf); err != nil {
		t.Fatalf("DumpCommitHistoryJSON: %v", err)
	}
	if !strings.Contains(buf.String(), `"rd_idx": 1`) {
		t.Fatalf("expected the JSON history to mention rd_idx 1, got %s", buf.String())
	}
}
