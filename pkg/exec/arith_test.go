package exec

import (
	"testing"

	"github.com/len5sim/rvsim/pkg/isa"
	"github.com/len5sim/rvsim/pkg/riscv"
	"github.com/len5sim/rvsim/pkg/rs"
)

func TestNewArithEntryFoldsImmediateIntoRs2(t *testing.T) {
	instr := isa.Instruction{PC: 0x4, Type: isa.TypeIArith, Rs1: 1, Rd: 2, Imm: 10}
	e := NewArithEntry(instr, 0, riscv.OpAdd)
	if e.Rs1.Ready() {
		t.Fatal("rs1 should still be unresolved, pending a register read")
	}
	if !e.Rs2.Ready() || e.Rs2.Value != 10 {
		t.Fatalf("expected rs2 resolved to the immediate 10, got %+v", e.Rs2)
	}
	if e.IsReady() {
		t.Fatal("the entry should not be ready until rs1 is forwarded")
	}
}

func TestArithUnitExecutesOnceBothOperandsResolve(t *testing.T) {
	u := NewArithUnit(1)
	e := &ArithEntry{RobIdx: 3, RdIdx: 5, Op: riscv.OpAdd, Rs1: rs.FromReg(1), Rs2: rs.Operand{Tag: rs.TagResolved, Value: 2}}
	e.Rs1 = rs.Operand{Tag: rs.TagPending, RobIdx: 1}
	if !u.Station.Issue(e) {
		t.Fatal("expected Issue to succeed")
	}
	if u.Station.StatusOf(0) != rs.WaitingOperands {
		t.Fatalf("expected WaitingOperands, got %v", u.Station.StatusOf(0))
	}

	u.Station.UpdateFromCDB(1, 40)
	if u.Station.StatusOf(0) != rs.Ready {
		t.Fatalf("expected Ready once rs1 forwards, got %v", u.Station.StatusOf(0))
	}

	u.Step(PickOldestReady[*ArithEntry])
	if u.HasResult() {
		t.Fatal("a 1-cycle-latency unit should not produce a result the same cycle it starts executing")
	}
	u.Step(PickOldestReady[*ArithEntry])
	if !u.HasResult() {
		t.Fatal("expected a result after the pipeline's single stage drains")
	}
	r := u.TakeResult()
	if r.RobIdx != 3 || r.RdIdx != 5 || r.Value != 42 {
		t.Fatalf("unexpected result: %+v", r)
	}
}
