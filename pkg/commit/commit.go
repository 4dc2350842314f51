// Package commit implements the Commit Unit: owns the ROB and a 3-deep
// commit queue, applies CDB results to the ROB, and retires instructions
// in order by writing the register file. Grounded on
// original_source/src/commit_unit.py.
package commit

import (
	"fmt"

	"github.com/len5sim/rvsim/pkg/cdb"
	"github.com/len5sim/rvsim/pkg/rf"
	"github.com/len5sim/rvsim/pkg/rob"
)

// QueueDepth is the fixed depth of the commit FIFO sitting between ROB pop
// and register-file write (commit_unit.py's Queue(3)).
const QueueDepth = 3

// HistoryEntry records one retired instruction for the commit-history dump.
// Taken records a branch/jump's resolved outcome for observation only; it
// is false for every non-branch instruction.
type HistoryEntry struct {
	Cycle int    `json:"cycle"`
	PC    uint64 `json:"pc"`
	Mnemo string `json:"mnemo"`
	RdIdx int    `json:"rd_idx"`
	Value int64  `json:"value"`
	Valid bool   `json:"valid"`
	Taken bool   `json:"taken"`
}

// Unit is the commit unit.
type Unit struct {
	ROB   *rob.ROB
	CDB   *cdb.CDB
	RF    *rf.RF
	queue []rob.Entry

	history []HistoryEntry
}

// New creates a commit unit with the given ROB capacity.
func New(robSize int, bus *cdb.CDB, regFile *rf.RF) *Unit {
	return &Unit{ROB: rob.New(robSize), CDB: bus, RF: regFile}
}

// Step runs one commit cycle: drain whatever the CDB arbitrated last cycle
// into the ROB, drain the commit queue into the RF, and (space permitting)
// pop a newly committable ROB entry into the queue. Mirrors
// commit_unit.py's step(): if the queue was full before draining, no ROB
// entry is popped this cycle; a full ROB does not change the step. CDB
// arbitration itself runs as the scheduler's own last phase, not here.
func (u *Unit) Step(cycle int) error {
	if result, ok := u.CDB.Drain(); ok {
		if err := u.ROB.Update(result.RobIdx, result.RdIdx, result.Value, result.Taken); err != nil {
			return fmt.Errorf("commit: applying CDB result: %w", err)
		}
	}

	queueFull := len(u.queue) == QueueDepth
	if len(u.queue) > 0 {
		entry := u.queue[0]
		u.queue = u.queue[1:]
		if entry.Valid && entry.RdIdx >= 0 {
			u.RF.Write(entry.RdIdx, entry.ResValue)
		}
		u.history = append(u.history, HistoryEntry{Cycle: cycle, PC: entry.PC, Mnemo: entry.Instruction.Mnemo, RdIdx: entry.RdIdx, Value: entry.ResValue, Valid: entry.Valid, Taken: entry.Taken})
	}
	if queueFull {
		return nil
	}

	robFull := u.ROB.IsFull()
	if u.ROB.CanCommit() {
		u.queue = append(u.queue, u.ROB.Pop())
	}
	if robFull {
		return nil
	}
	return nil
}

// SearchOperand looks for an in-flight producer of rsIdx, checking the ROB
// first (newest-first) and then the commit queue, matching
// commit_unit.py's searchOperand.
func (u *Unit) SearchOperand(rsIdx int, requesterPC uint64) (rob.Entry, int, bool) {
	if entry, idx, ok := u.ROB.SearchOperand(rsIdx, requesterPC); ok {
		return entry, idx, true
	}
	for _, e := range u.queue {
		if e.RdIdx == rsIdx && e.Valid {
			return e, -1, true
		}
	}
	return rob.Entry{}, 0, false
}

// Empty reports whether both the ROB and the commit queue are drained —
// one of the scheduler's drain-predicate conditions.
func (u *Unit) Empty() bool {
	return u.ROB.IsEmpty() && len(u.queue) == 0
}

// History returns every instruction retired so far, for the
// --commit_history_dump sink.
func (u *Unit) History() []HistoryEntry { return u.history }
