// Package sim implements the top-level cycle scheduler that sequences the
// Commit Unit, the execution units, the LSU, the Dispatcher and CDB
// arbitration in the fixed intra-cycle order, and drives the simulation
// until the instruction trace, dispatcher and ROB have all drained.
// Grounded on original_source/src/scheduler.py.
package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/len5sim/rvsim/pkg/cdb"
	"github.com/len5sim/rvsim/pkg/commit"
	"github.com/len5sim/rvsim/pkg/dispatch"
	"github.com/len5sim/rvsim/pkg/dmem"
	"github.com/len5sim/rvsim/pkg/exec"
	"github.com/len5sim/rvsim/pkg/isa"
	"github.com/len5sim/rvsim/pkg/rf"
	"github.com/len5sim/rvsim/pkg/rs"
)

// PickPolicy selects which ready reservation-station entry an execution
// unit executes next, matching rs_pick_policy.py's named strategies.
type PickPolicy string

const (
	PickOldest PickPolicy = "oldest"
	PickNewest PickPolicy = "newest"
	PickFirst  PickPolicy = "first"
	PickLast   PickPolicy = "last"
	PickRandom PickPolicy = "random"
)

// Config bundles every tunable the scheduler needs to build a simulation.
type Config struct {
	ROBSize       int
	RSEntries     int
	IssueWidth    int
	MaxCycles     int
	Policy        PickPolicy
	Seed          uint64
	ForwardStores bool
	DMEM          dmem.Config

	RobDump           bool
	MemDump           bool
	CommitHistoryDump bool
	RobDumpWriter     io.Writer
	MemDumpWriter     io.Writer
	CommitDumpWriter  io.Writer
}

// Stats holds live counters safe to read from another goroutine while the
// scheduler loop runs, mirroring the atomic.Int64 progress counters
// pkg/search/worker.go keeps for its own worker loop.
type Stats struct {
	Cycles    atomic.Int64
	Committed atomic.Int64
}

// Scheduler owns every simulated component and sequences their step
// methods in a fixed per-cycle phase order: commit, arithmetic, branch,
// LSU, dispatch, then CDB arbitration.
type Scheduler struct {
	cfg Config

	CDB      *cdb.CDB
	RF       *rf.RF
	Commit   *commit.Unit
	Arith    *exec.ArithUnit
	Branch   *exec.BranchUnit
	LSU      *exec.LSU
	Dispatch *dispatch.Dispatcher
	Stats    *Stats

	rng *rngShim
}

// New builds a fully-wired Scheduler for the given program and memory
// image, matching Scheduler.__init__/connect in scheduler.py.
func New(cfg Config, program []isa.Instruction, mem *dmem.DMEM) *Scheduler {
	bus := cdb.New()
	regFile := &rf.RF{}
	commitUnit := commit.New(cfg.ROBSize, bus, regFile)

	arith := exec.NewArithUnit(cfg.RSEntries)
	branch := exec.NewBranchUnit(cfg.RSEntries)
	lsu := exec.NewLSU(cfg.RSEntries, mem)
	lsu.ForwardStoreToLoad = cfg.ForwardStores

	bus.Register(arith)
	bus.Register(lsu.Load)
	bus.Register(lsu.Store)
	bus.Register(branch)

	d := dispatch.New(cfg.IssueWidth, program, commitUnit, regFile, bus, arith, branch, lsu.Load, lsu.Store)

	return &Scheduler{
		cfg: cfg, CDB: bus, RF: regFile, Commit: commitUnit,
		Arith: arith, Branch: branch, LSU: lsu, Dispatch: d,
		Stats: &Stats{},
		rng:   newRNGShim(cfg.Seed),
	}
}

// Step runs one full simulation cycle in the fixed phase order:
// commit, arithmetic, branch, LSU, dispatch, then CDB arbitration.
func (s *Scheduler) Step(cycle int) error {
	s.Stats.Cycles.Store(int64(cycle))
	retiredBefore := len(s.Commit.History())

	if err := s.Commit.Step(cycle); err != nil {
		return fmt.Errorf("sim: cycle %d: %w", cycle, err)
	}
	s.Stats.Committed.Add(int64(len(s.Commit.History()) - retiredBefore))

	s.Arith.Step(func(st *rs.Station[*exec.ArithEntry]) (int, bool) { return pickWith(st, s.cfg.Policy, s.rng) })
	s.Branch.Step(func(st *rs.Station[*exec.BranchEntry]) (int, bool) { return pickWith(st, s.cfg.Policy, s.rng) })

	robHead := s.Commit.ROB.Head()
	s.LSU.Step(robHead)

	if err := s.Dispatch.Step(); err != nil {
		return fmt.Errorf("sim: cycle %d: %w", cycle, err)
	}

	s.CDB.Step()

	s.dump(cycle)
	return nil
}

// Done reports whether the trace, dispatcher and commit unit have all
// drained — the scheduler's drain predicate (scheduler.py's check()).
func (s *Scheduler) Done() bool {
	return s.Dispatch.Empty() && s.Commit.Empty()
}

func (s *Scheduler) dump(cycle int) {
	if s.cfg.RobDump && s.cfg.RobDumpWriter != nil {
		fmt.Fprintf(s.cfg.RobDumpWriter, "Cycle: %d\n%s", cycle, s.Commit.ROB)
	}
	if s.cfg.MemDump && s.cfg.MemDumpWriter != nil {
		fmt.Fprintf(s.cfg.MemDumpWriter, "Cycle: %d\n%s", cycle, s.LSU.Mem)
	}
}

// DumpCommitHistory writes every retired instruction to w, for
// --commit_history_dump, once the run finishes (scheduler.py only writes
// this file on the exception that ends the simulation loop).
func (s *Scheduler) DumpCommitHistory(w io.Writer) {
	if w == nil {
		return
	}
	for _, h := range s.Commit.History() {
		fmt.Fprintf(w, "cycle=%d pc=0x%x instr=%s rd=%d value=%d valid=%v taken=%v\n", h.Cycle, h.PC, h.Mnemo, h.RdIdx, h.Value, h.Valid, h.Taken)
	}
}

// DumpCommitHistoryJSON writes the same retired-instruction history as a
// JSON array, for --commit_history_json.
func (s *Scheduler) DumpCommitHistoryJSON(w io.Writer) error {
	if w == nil {
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s.Commit.History())
}
