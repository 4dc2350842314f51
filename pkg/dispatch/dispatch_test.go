package dispatch

import (
	"testing"

	"github.com/len5sim/rvsim/pkg/cdb"
	"github.com/len5sim/rvsim/pkg/commit"
	"github.com/len5sim/rvsim/pkg/exec"
	"github.com/len5sim/rvsim/pkg/isa"
	"github.com/len5sim/rvsim/pkg/rf"
	"github.com/len5sim/rvsim/pkg/rs"
)

func newTestDispatcher(program []isa.Instruction) (*Dispatcher, *commit.Unit, *rf.RF) {
	bus := cdb.New()
	regFile := &rf.RF{}
	commitUnit := commit.New(8, bus, regFile)
	arith := exec.NewArithUnit(4)
	branch := exec.NewBranchUnit(4)
	load := exec.NewLoadUnit(4)
	store := exec.NewStoreUnit(4)
	bus.Register(arith)
	bus.Register(load)
	bus.Register(store)
	bus.Register(branch)
	d := New(1, program, commitUnit, regFile, bus, arith, branch, load, store)
	return d, commitUnit, regFile
}

func TestDispatchRegisterZeroAlwaysResolvesToZero(t *testing.T) {
	instr := isa.Instruction{PC: 0, Type: isa.TypeIArith, Rs1: 0, Rd: 1, Imm: 5, Funct3: 0}
	d, _, _ := newTestDispatcher([]isa.Instruction{instr})

	if err := d.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if d.Arith.Station.StatusOf(0) == 0 {
		// Clear == 0; if it's still clear, issue silently failed.
		t.Fatal("expected the arithmetic entry to have been issued")
	}
	entry := d.Arith.Station.Entry(0)
	if !entry.Rs1.Ready() || entry.Rs1.Value != 0 {
		t.Fatalf("expected x0 to resolve to a literal zero, got %+v", entry.Rs1)
	}
}

func TestDispatchUnmappedTypeIsError(t *testing.T) {
	instr := isa.Instruction{PC: 0, Type: isa.TypeU, Rd: 1, Imm: 0x1000}
	d, _, _ := newTestDispatcher([]isa.Instruction{instr})
	if err := d.Step(); err == nil {
		t.Fatal("expected an error dispatching a U-type instruction")
	}
}

func TestForwardOperandPrefersCommitOverRegisterFile(t *testing.T) {
	d, commitUnit, regFile := newTestDispatcher(nil)
	regFile.Write(2, 999) // stale value; should be shadowed by an in-flight producer

	robIdx := commitUnit.ROB.Push(isa.Instruction{PC: 0x4, Rd: 2})
	commitUnit.ROB.Update(robIdx, 2, 55, false)

	op := rs.FromReg(2)
	d.forwardOperand(&op, 0x8)
	if !op.Ready() || op.Value != 55 {
		t.Fatalf("expected the ROB's resolved value 55 to win over the stale register file, got %+v", op)
	}
}

func TestForwardOperandPendingTagWhenProducerNotYetResolved(t *testing.T) {
	d, commitUnit, _ := newTestDispatcher(nil)
	robIdx := commitUnit.ROB.Push(isa.Instruction{PC: 0x4, Rd: 3})

	op := rs.FromReg(3)
	d.forwardOperand(&op, 0x8)
	if op.Ready() {
		t.Fatal("the producer has not resolved yet, the operand must stay pending")
	}
	if op.RobIdx != robIdx {
		t.Fatalf("expected the operand to watch ROB index %d, got %d", robIdx, op.RobIdx)
	}
}
