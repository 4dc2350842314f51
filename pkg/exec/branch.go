package exec

import (
	"github.com/len5sim/rvsim/pkg/isa"
	"github.com/len5sim/rvsim/pkg/riscv"
	"github.com/len5sim/rvsim/pkg/rs"
)

// BranchEntry is the reservation-station entry for B-type conditional
// branches, JAL and JALR. Grounded on branch_unit.py's
// branchReservationStationEntry; unlike the Python original (which encodes
// "no operand" as rs1_idx/rs2_idx == None), HasRs1/HasRs2 make the operand
// shape explicit.
type BranchEntry struct {
	PC      uint64
	RobIdx  int
	RdIdx   int // -1 for a plain conditional branch, which writes no register
	Imm     int64
	HasRs1  bool
	HasRs2  bool
	Rs1     rs.Operand
	Rs2     rs.Operand
	Op      riscv.BranchOp
	IsJalr  bool
	IsJal   bool
}

// NewBranchEntry builds the entry for a B-type branch.
func NewBranchEntry(instr isa.Instruction, robIdx int, op riscv.BranchOp) BranchEntry {
	return BranchEntry{
		PC: instr.PC, RobIdx: robIdx, RdIdx: isa.NoReg, Imm: instr.Imm,
		HasRs1: true, HasRs2: true,
		Rs1: rs.FromReg(uint8(instr.Rs1)), Rs2: rs.FromReg(uint8(instr.Rs2)), Op: op,
	}
}

// NewJalEntry builds the entry for an unconditional jump (always ready).
func NewJalEntry(instr isa.Instruction, robIdx int) BranchEntry {
	return BranchEntry{PC: instr.PC, RobIdx: robIdx, RdIdx: instr.Rd, Imm: instr.Imm, IsJal: true}
}

// NewJalrEntry builds the entry for JALR, which needs only rs1.
func NewJalrEntry(instr isa.Instruction, robIdx int) BranchEntry {
	return BranchEntry{
		PC: instr.PC, RobIdx: robIdx, RdIdx: instr.Rd, Imm: instr.Imm,
		HasRs1: true, Rs1: rs.FromReg(uint8(instr.Rs1)), IsJalr: true,
	}
}

func (e BranchEntry) ROBIdx() int { return e.RobIdx }

func (e BranchEntry) IsReady() bool {
	switch {
	case e.HasRs1 && e.HasRs2:
		return e.Rs1.Ready() && e.Rs2.Ready()
	case e.HasRs1:
		return e.Rs1.Ready()
	default:
		return true
	}
}

func (e *BranchEntry) UpdateFromCDB(robIdx int, value int64) {
	if e.HasRs1 {
		if op, ok := e.Rs1.UpdateFromCDB(robIdx, value); ok {
			e.Rs1 = op
		}
	}
	if e.HasRs2 {
		if op, ok := e.Rs2.UpdateFromCDB(robIdx, value); ok {
			e.Rs2 = op
		}
	}
}

// Taken reports whether this entry's branch/jump is taken. The second
// value is the link value PC+4 for JAL/JALR and zero for a conditional
// branch; the branch or jump target address is not computed.
func (e *BranchEntry) Taken() (taken bool, target uint64) {
	switch {
	case e.IsJal || e.IsJalr:
		return true, e.PC + 4
	default:
		return riscv.EvalBranch(e.Op, e.Rs1.Value, e.Rs2.Value), 0
	}
}

// BranchUnit evaluates branch/jump outcomes. There is no speculative
// fetch to squash, so the unit's only architectural effect is writing the
// link register for JAL/JALR; branches are resolved in commit order.
type BranchUnit struct {
	*Unit[*BranchEntry]
}

// NewBranchUnit creates a branch unit with nEntries RS slots.
func NewBranchUnit(nEntries int) *BranchUnit {
	u := NewUnit[*BranchEntry](nEntries, 1, true, func(e *BranchEntry) (int64, int, bool) {
		taken, target := e.Taken()
		if e.IsJal || e.IsJalr {
			return int64(target), e.RdIdx, taken
		}
		return 0, e.RdIdx, taken
	})
	return &BranchUnit{u}
}
