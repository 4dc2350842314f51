// Package dispatch implements the Dispatcher: a bounded refill/issue
// buffer in front of the execution units, the static instruction-type to
// execution-unit dispatch table, and the unified operand-forwarding
// helper every reservation-station schema uses at issue time. Grounded on
// original_source/src/dispatcher.py (itself mostly a stub — the original
// never got past TODOs) plus the forwardOperands bodies duplicated across
// branch_unit.py, load_unit.py and store_unit.py, which this package
// collapses into one precedence-ordered lookup instead of one copy per
// unit family.
package dispatch

import (
	"fmt"

	"github.com/len5sim/rvsim/pkg/cdb"
	"github.com/len5sim/rvsim/pkg/commit"
	"github.com/len5sim/rvsim/pkg/dmem"
	"github.com/len5sim/rvsim/pkg/exec"
	"github.com/len5sim/rvsim/pkg/isa"
	"github.com/len5sim/rvsim/pkg/rf"
	"github.com/len5sim/rvsim/pkg/riscv"
	"github.com/len5sim/rvsim/pkg/rs"
)

// pending is one buffered instruction awaiting ROB allocation or issue.
type pending struct {
	instr  isa.Instruction
	robIdx int
	hasRob bool
}

// Dispatcher is the refill/issue unit sitting between the instruction
// trace and the execution units.
type Dispatcher struct {
	issueWidth int
	buffer     []pending
	program    []isa.Instruction
	cursor     int

	commit *commit.Unit
	rf     *rf.RF
	cdbBus *cdb.CDB

	Arith  *exec.ArithUnit
	Branch *exec.BranchUnit
	Load   *exec.LoadUnit
	Store  *exec.StoreUnit
}

// New creates a Dispatcher with the given issue width (dispatch buffer
// capacity), fronting the supplied program and wired to the shared
// commit unit, register file and CDB.
func New(issueWidth int, program []isa.Instruction, commitUnit *commit.Unit, regFile *rf.RF, bus *cdb.CDB, arith *exec.ArithUnit, branch *exec.BranchUnit, load *exec.LoadUnit, store *exec.StoreUnit) *Dispatcher {
	return &Dispatcher{
		issueWidth: issueWidth,
		program:    program,
		commit:     commitUnit,
		rf:         regFile,
		cdbBus:     bus,
		Arith:      arith,
		Branch:     branch,
		Load:       load,
		Store:      store,
	}
}

// Empty reports whether the dispatcher has no buffered work left and the
// program has been fully consumed — one of the scheduler's drain
// predicates.
func (d *Dispatcher) Empty() bool {
	return d.cursor >= len(d.program) && len(d.buffer) == 0
}

// Step runs one dispatcher cycle: refill from the program into the
// dispatch buffer (allocating ROB entries), then try to issue every
// buffered instruction that already has a ROB index into its target
// execution unit.
func (d *Dispatcher) Step() error {
	d.refill()
	return d.issue()
}

func (d *Dispatcher) refill() {
	for _, p := range d.buffer {
		if !p.hasRob {
			return
		}
	}
	for len(d.buffer) < d.issueWidth && d.cursor < len(d.program) {
		instr := d.program[d.cursor]
		robIdx := d.commit.ROB.Push(instr)
		if robIdx < 0 {
			d.cursor++
			d.buffer = append(d.buffer, pending{instr: instr, hasRob: false})
			return
		}
		d.cursor++
		d.buffer = append(d.buffer, pending{instr: instr, robIdx: robIdx, hasRob: true})
	}
}

func (d *Dispatcher) issue() error {
	remaining := d.buffer[:0]
	for _, p := range d.buffer {
		if !p.hasRob {
			if robIdx := d.commit.ROB.Push(p.instr); robIdx >= 0 {
				p.robIdx, p.hasRob = robIdx, true
			} else {
				remaining = append(remaining, p)
				continue
			}
		}
		issued, err := d.issueOne(p.instr, p.robIdx)
		if err != nil {
			return err
		}
		if !issued {
			remaining = append(remaining, p)
		}
	}
	d.buffer = remaining
	return nil
}

func (d *Dispatcher) issueOne(instr isa.Instruction, robIdx int) (bool, error) {
	switch instr.Type {
	case isa.TypeR, isa.TypeIArith:
		op, err := riscv.DecodeArithOp(instr.Funct3, instr.Funct7, instr.Type == isa.TypeR)
		if err != nil {
			return false, fmt.Errorf("dispatch: %w", err)
		}
		entry := exec.NewArithEntry(instr, robIdx, op)
		d.forwardArith(&entry, instr.PC)
		return d.Arith.Station.Issue(&entry), nil

	case isa.TypeILoad:
		entry := exec.NewLoadEntry(instr, robIdx, dmem.Word)
		d.forwardOperand(&entry.Rs1, instr.PC)
		return d.Load.Station().Issue(&entry), nil

	case isa.TypeS:
		entry := exec.NewStoreEntry(instr, robIdx, dmem.Word)
		d.forwardOperand(&entry.Rs1, instr.PC)
		d.forwardOperand(&entry.Rs2, instr.PC)
		return d.Store.Station().Issue(&entry), nil

	case isa.TypeB:
		op, err := riscv.DecodeBranchOp(instr.Funct3)
		if err != nil {
			return false, fmt.Errorf("dispatch: %w", err)
		}
		entry := exec.NewBranchEntry(instr, robIdx, op)
		d.forwardOperand(&entry.Rs1, instr.PC)
		d.forwardOperand(&entry.Rs2, instr.PC)
		return d.Branch.Station.Issue(&entry), nil

	case isa.TypeJ:
		entry := exec.NewJalEntry(instr, robIdx)
		return d.Branch.Station.Issue(&entry), nil

	case isa.TypeIJalr:
		entry := exec.NewJalrEntry(instr, robIdx)
		d.forwardOperand(&entry.Rs1, instr.PC)
		return d.Branch.Station.Issue(&entry), nil

	default:
		return false, fmt.Errorf("dispatch: %w: unmapped instruction type %s at pc 0x%x", ErrUnmappedType, instr.Type, instr.PC)
	}
}

func (d *Dispatcher) forwardArith(e *exec.ArithEntry, pc uint64) {
	d.forwardOperand(&e.Rs1, pc)
	if e.Rs2.Tag == rs.TagArch {
		d.forwardOperand(&e.Rs2, pc)
	}
}

// forwardOperand resolves op in place following a fixed precedence:
// commit-unit lookup (ROB then commit FIFO), then the CDB's last-valid
// packet, then the register file. Register 0 always resolves to the
// literal zero without consulting any producer.
func (d *Dispatcher) forwardOperand(op *rs.Operand, requesterPC uint64) {
	if op.Tag != rs.TagArch {
		return
	}
	regIdx := int(op.RegIdx)
	if regIdx == 0 {
		*op = rs.Operand{Tag: rs.TagResolved, Value: 0}
		return
	}

	if entry, robIdx, ok := d.commit.SearchOperand(regIdx, requesterPC); ok {
		if entry.ResReady {
			*op = rs.Operand{Tag: rs.TagResolved, Value: entry.ResValue}
		} else {
			*op = rs.Operand{Tag: rs.TagPending, RobIdx: robIdx}
		}
		return
	}

	if result, ok := d.cdbBus.Peek(); ok && result.RdIdx == regIdx {
		*op = rs.Operand{Tag: rs.TagResolved, Value: result.Value}
		return
	}

	*op = rs.Operand{Tag: rs.TagResolved, Value: d.rf.Read(regIdx)}
}
