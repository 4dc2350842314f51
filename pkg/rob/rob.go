// Package rob implements the Reorder Buffer: a fixed-size circular buffer
// of in-flight instructions that enforces in-order commit. Grounded on
// original_source/src/rob.py: updates are index-addressed and operand
// searches scan newest-first.
package rob

import (
	"fmt"

	"github.com/len5sim/rvsim/pkg/isa"
)

// Entry is one slot of the Reorder Buffer.
type Entry struct {
	Instruction  isa.Instruction
	PC           uint64
	ResReady     bool
	ResValue     int64
	RdIdx        int // -1 when the instruction has no architectural destination
	MemCrit      bool
	OrderCrit    bool
	ExceptRaised bool
	Valid        bool // false once popped, or once a no-destination entry is marked ready
	Taken        bool // branch/jump outcome, recorded for observation only
}

func (e Entry) String() string {
	return fmt.Sprintf("ROBEntry(instr=%s, pc=0x%x, res_ready=%v, res_value=%d, rd_idx=%d, valid=%v, taken=%v)",
		e.Instruction.Mnemo, e.PC, e.ResReady, e.ResValue, e.RdIdx, e.Valid, e.Taken)
}

// ROB is the fixed-size circular reorder buffer.
type ROB struct {
	entries []Entry
	head    int
	tail    int
	count   int
}

// New creates a ROB with the given number of entries.
func New(size int) *ROB {
	return &ROB{entries: make([]Entry, size)}
}

// Size returns the configured capacity.
func (r *ROB) Size() int { return len(r.entries) }

// IsEmpty reports whether the ROB holds no in-flight instructions.
func (r *ROB) IsEmpty() bool { return r.count == 0 }

// IsFull reports whether the ROB has no free slots.
func (r *ROB) IsFull() bool { return r.count == len(r.entries) }

// FreeSlots returns the number of unallocated entries.
func (r *ROB) FreeSlots() int { return len(r.entries) - r.count }

// Head returns the index of the oldest occupied entry. Only meaningful
// when the ROB is non-empty.
func (r *ROB) Head() int { return r.head }

// Push allocates a ROB entry for instr at the tail. Returns the assigned
// index, or -1 if the ROB is full (capacity back-pressure — recoverable,
// the caller retries next cycle).
func (r *ROB) Push(instr isa.Instruction) int {
	if r.IsFull() {
		return -1
	}
	idx := r.tail
	r.entries[idx] = Entry{
		Instruction: instr,
		PC:          instr.PC,
		RdIdx:       instr.Rd,
		Valid:       true,
	}
	r.tail = (r.tail + 1) % len(r.entries)
	r.count++
	return idx
}

// Update applies a CDB result to the entry at robIdx. The packet's rd_idx
// must match the stored rd_idx, or this is an invariant violation — it
// indicates a dataflow bug upstream, not a recoverable condition. For
// entries with no architectural destination (RdIdx == -1), res_ready is
// still set but valid is cleared so commit skips the RF write. taken
// records a branch/jump's resolved outcome for observation only; non-branch
// sources pass false.
func (r *ROB) Update(robIdx int, rdIdx int, resValue int64, taken bool) error {
	e := &r.entries[robIdx]
	switch {
	case e.RdIdx == -1:
		e.ResReady = true
		e.ResValue = 0
		e.Valid = false
		e.Taken = taken
	case e.RdIdx == rdIdx:
		e.ResReady = true
		e.ResValue = resValue
		e.Valid = true
		e.Taken = taken
	default:
		return fmt.Errorf("%w: ROB entry %d has rd_idx=%d, CDB packet carries rd_idx=%d", ErrInvariant, robIdx, e.RdIdx, rdIdx)
	}
	return nil
}

// CanCommit reports whether the head entry is ready to retire.
func (r *ROB) CanCommit() bool {
	if r.IsEmpty() {
		return false
	}
	return r.entries[r.head].ResReady
}

// Pop removes and returns a copy of the head entry. Callers must check
// IsEmpty first; Pop on an empty ROB panics, matching the invariant that
// commit only pops after CanCommit.
func (r *ROB) Pop() Entry {
	if r.IsEmpty() {
		panic("rob: Pop on empty ROB")
	}
	e := r.entries[r.head]
	r.entries[r.head] = Entry{}
	r.head = (r.head + 1) % len(r.entries)
	r.count--
	return e
}

// Peek returns the head entry without removing it. ok is false when empty.
func (r *ROB) Peek() (Entry, bool) {
	if r.IsEmpty() {
		return Entry{}, false
	}
	return r.entries[r.head], true
}

// SearchOperand scans the ROB newest-first (from tail-1 back to head) for
// a valid entry producing register rsIdx, excluding the requester's own
// PC (so an instruction never forwards from itself). Returns the entry and
// its ROB index, or ok == false if no producer is in flight.
func (r *ROB) SearchOperand(rsIdx int, requesterPC uint64) (Entry, int, bool) {
	i := (r.tail - 1 + len(r.entries)) % len(r.entries)
	for cnt := 0; cnt < r.count; cnt++ {
		e := r.entries[i]
		if e.RdIdx == rsIdx && e.Valid && e.PC != requesterPC {
			return e, i, true
		}
		i = (i - 1 + len(r.entries)) % len(r.entries)
	}
	return Entry{}, 0, false
}

// String dumps every occupied entry, walking head to tail in program order.
func (r *ROB) String() string {
	s := ""
	i := r.head
	for cnt := 0; cnt < r.count; cnt++ {
		s += fmt.Sprintf("ROB[%d] = %s\n", i, r.entries[i])
		i = (i + 1) % len(r.entries)
	}
	return s
}
