// Package cdb implements the Common Data Bus: a single-slot result
// broadcast shared by every execution unit. Grounded on
// original_source/src/cdb.py: units register in priority order, and each
// cycle the bus arbitrates by taking the first registered unit that has a
// result ready, stalling the rest until the slot drains.
package cdb

// Result is a broadcast packet: the producing instruction's ROB index and
// its computed value. Taken is only meaningful for a branch/jump outcome;
// every other source leaves it false.
type Result struct {
	RobIdx int
	RdIdx  int
	Value  int64
	Taken  bool
}

// Source is implemented by every execution unit that can drive the bus.
type Source interface {
	HasResult() bool
	TakeResult() Result
}

// CDB is the single-slot common data bus.
type CDB struct {
	sources []Source
	slot    *Result
}

// New creates an empty bus.
func New() *CDB { return &CDB{} }

// Register adds a source; registration order is arbitration priority.
func (c *CDB) Register(s Source) {
	c.sources = append(c.sources, s)
}

// Step arbitrates: if the slot is already occupied this cycle, nothing
// changes (the ROB has not drained it yet). Otherwise the first registered
// source with a result ready wins the slot.
func (c *CDB) Step() {
	if c.slot != nil {
		return
	}
	for _, s := range c.sources {
		if s.HasResult() {
			r := s.TakeResult()
			c.slot = &r
			return
		}
	}
}

// Peek returns the value currently on the bus, if any, without consuming
// it — used by the dispatcher's "last broadcast" operand forwarding while
// the slot has not yet been drained.
func (c *CDB) Peek() (Result, bool) {
	if c.slot == nil {
		return Result{}, false
	}
	return *c.slot, true
}

// Drain consumes and clears the slot. Called once per cycle by the commit
// unit, which then applies the result to the ROB.
func (c *CDB) Drain() (Result, bool) {
	if c.slot == nil {
		return Result{}, false
	}
	r := *c.slot
	c.slot = nil
	return r, true
}
