package exec

import (
	"github.com/len5sim/rvsim/pkg/isa"
	"github.com/len5sim/rvsim/pkg/riscv"
	"github.com/len5sim/rvsim/pkg/rs"
)

// ArithEntry is the reservation-station entry for an R-type or I-type
// arithmetic instruction. Grounded on arith_unit.py's
// arithReservationStationEntry.
type ArithEntry struct {
	PC     uint64
	RobIdx int
	RdIdx  int
	Op     riscv.ArithOp
	Rs1    rs.Operand
	Rs2    rs.Operand // TagResolved with the sign-extended immediate for I-type
}

// NewArithEntry builds an ArithEntry from a decoded instruction. imm is
// already folded into Rs2 as a resolved operand for I-type instructions;
// R-type instructions pass rs2 as an unresolved register operand.
func NewArithEntry(instr isa.Instruction, robIdx int, op riscv.ArithOp) ArithEntry {
	e := ArithEntry{PC: instr.PC, RobIdx: robIdx, RdIdx: instr.Rd, Op: op, Rs1: rs.FromReg(uint8(instr.Rs1))}
	if instr.Type == isa.TypeR {
		e.Rs2 = rs.FromReg(uint8(instr.Rs2))
	} else {
		e.Rs2 = rs.Operand{Tag: rs.TagResolved, Value: instr.Imm}
	}
	return e
}

func (e ArithEntry) ROBIdx() int { return e.RobIdx }

func (e ArithEntry) IsReady() bool { return e.Rs1.Ready() && e.Rs2.Ready() }

func (e *ArithEntry) UpdateFromCDB(robIdx int, value int64) {
	if op, ok := e.Rs1.UpdateFromCDB(robIdx, value); ok {
		e.Rs1 = op
	}
	if op, ok := e.Rs2.UpdateFromCDB(robIdx, value); ok {
		e.Rs2 = op
	}
}

// ArithUnit executes ADD/SUB/logical/shift/comparison operations.
type ArithUnit struct {
	*Unit[*ArithEntry]
}

// NewArithUnit creates an arithmetic unit with nEntries RS slots.
func NewArithUnit(nEntries int) *ArithUnit {
	u := NewUnit[*ArithEntry](nEntries, 1, true, func(e *ArithEntry) (int64, int, bool) {
		return riscv.Exec(e.Op, e.Rs1.Value, e.Rs2.Value), e.RdIdx, false
	})
	return &ArithUnit{u}
}
