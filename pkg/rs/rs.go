// Package rs implements a generic, fixed-size reservation station shared by
// every execution unit. Grounded on original_source/src/rs.py and
// rs_pick_policy.py: the Python original hand-writes one ReservationStation
// per unit with a list of {"entry", "status"} dicts; here a single generic
// Station[T] parameterizes over the per-unit entry type, replacing the
// dict-of-dicts bookkeeping with a typed slice and an enum status.
package rs

import "math/rand/v2"

// Status is the lifecycle state of one reservation station slot.
type Status uint8

const (
	Clear Status = iota
	WaitingOperands
	Ready
	Executing
	// AddressReady is specific to the memory units: an address-generation
	// result landed on the entry but the access has not yet been issued to
	// DMEM (original_source/src/mem_unit.py "executing" -> "address_ready").
	AddressReady
	Done
)

// Entry is implemented by every execution unit's reservation-station entry
// type (arithmetic, branch, load, store). ROBIdx identifies which ROB slot
// this instruction will retire into; IsReady reports whether every operand
// the entry needs has arrived; UpdateFromCDB lets a broadcast result fill in
// a still-pending operand.
type Entry interface {
	ROBIdx() int
	IsReady() bool
	UpdateFromCDB(robIdx int, value int64)
}

type slot[T Entry] struct {
	entry  T
	status Status
}

// Station is a fixed-size reservation station holding entries of type T.
type Station[T Entry] struct {
	slots      []slot[T]
	oldestPtr  int
	newestPtr  int
}

// New creates a Station with the given number of slots.
func New[T Entry](nEntries int) *Station[T] {
	return &Station[T]{slots: make([]slot[T], nEntries)}
}

// Len returns the configured capacity.
func (s *Station[T]) Len() int { return len(s.slots) }

// Issue places entry into the next clear slot starting from newestPtr
// (wrapping) and advances newestPtr past the slot it filled, so newestPtr
// always tracks the true issue-order frontier for PickNewestReady. Returns
// false (capacity back-pressure, not an error) if every slot is occupied.
func (s *Station[T]) Issue(entry T) bool {
	n := len(s.slots)
	i := s.newestPtr
	for cnt := 0; cnt < n; cnt++ {
		if s.slots[i].status == Clear {
			s.slots[i].entry = entry
			if entry.IsReady() {
				s.slots[i].status = Ready
			} else {
				s.slots[i].status = WaitingOperands
			}
			s.newestPtr = (i + 1) % n
			return true
		}
		i = (i + 1) % n
	}
	return false
}

// HasFreeSlot reports whether Issue would succeed right now.
func (s *Station[T]) HasFreeSlot() bool {
	for i := range s.slots {
		if s.slots[i].status == Clear {
			return true
		}
	}
	return false
}

// Entries exposes the underlying entries for operand-forwarding sweeps
// (dispatch needs to walk every waiting entry, not just ready ones).
func (s *Station[T]) Entries(fn func(idx int, entry T, status Status)) {
	for i := range s.slots {
		fn(i, s.slots[i].entry, s.slots[i].status)
	}
}

// Entry returns the entry stored at idx.
func (s *Station[T]) Entry(idx int) T { return s.slots[idx].entry }

// SetEntry overwrites the entry at idx, e.g. after an operand-forwarding
// pass updates its fields in place.
func (s *Station[T]) SetEntry(idx int, entry T) { s.slots[idx].entry = entry }

// UpdateFromCDB broadcasts a committed-or-forwarded result to every
// waiting entry; any entry that becomes ready transitions out of
// WaitingOperands.
func (s *Station[T]) UpdateFromCDB(robIdx int, value int64) {
	for i := range s.slots {
		if s.slots[i].status != WaitingOperands && s.slots[i].status != Clear {
			s.slots[i].entry.UpdateFromCDB(robIdx, value)
			continue
		}
		if s.slots[i].status == WaitingOperands {
			s.slots[i].entry.UpdateFromCDB(robIdx, value)
			if s.slots[i].entry.IsReady() {
				s.slots[i].status = Ready
			}
		}
	}
}

// MarkExecuting transitions idx from Ready to Executing.
func (s *Station[T]) MarkExecuting(idx int) { s.slots[idx].status = Executing }

// MarkDone transitions idx to Done and stores the entry representing the
// completed computation (so callers can read back e.g. a computed address).
func (s *Station[T]) MarkDone(idx int, entry T) {
	s.slots[idx].entry = entry
	s.slots[idx].status = Done
}

// SetStatus forces a slot's status, used by memory units to move an entry
// between "executing" (computing the address) and a custom address-ready
// state without going through Done.
func (s *Station[T]) SetStatus(idx int, status Status) { s.slots[idx].status = status }

// StatusOf returns the status of a slot.
func (s *Station[T]) StatusOf(idx int) Status { return s.slots[idx].status }

// FindDone returns the first slot in Done status.
func (s *Station[T]) FindDone() (int, T, bool) {
	for i := range s.slots {
		if s.slots[i].status == Done {
			return i, s.slots[i].entry, true
		}
	}
	var zero T
	return 0, zero, false
}

// FindByStatusAndROB returns the (first) slot whose status matches want and
// whose ROB index equals robIdx, used by the LSU to restrict memory issue
// to the architecturally-committing instruction.
func (s *Station[T]) FindByStatusAndROB(want Status, robIdx int) (int, T, bool) {
	for i := range s.slots {
		if s.slots[i].status == want && s.slots[i].entry.ROBIdx() == robIdx {
			return i, s.slots[i].entry, true
		}
	}
	var zero T
	return 0, zero, false
}

// AnyInFlight reports whether any slot not in Clear or Done status matches
// pred — used by the speculative-load hazard check, which must see every
// store still in the pipeline regardless of exact state.
func (s *Station[T]) AnyInFlight(pred func(entry T) bool) bool {
	for i := range s.slots {
		if s.slots[i].status == Clear || s.slots[i].status == Done {
			continue
		}
		if pred(s.slots[i].entry) {
			return true
		}
	}
	return false
}

// Clear resets idx back to the empty state.
func (s *Station[T]) Clear(idx int) {
	var zero T
	s.slots[idx].entry = zero
	s.slots[idx].status = Clear
}

// PickOldestReady scans starting at oldestPtr (wrapping) for the first slot
// in Ready status, advances oldestPtr past it, transitions it to Executing
// and returns its index. ok is false if nothing is ready.
func (s *Station[T]) PickOldestReady() (int, bool) {
	return s.pickFrom(s.oldestPtr, 1, Ready, Executing, &s.oldestPtr)
}

// PickNewestReady mirrors PickOldestReady but scans backwards from the slot
// Issue most recently filled (newestPtr points one past it, the next
// allocation site), matching rs_pick_policy.py's pickNewestReady. Picking
// leaves newestPtr unchanged; only Issue moves it.
func (s *Station[T]) PickNewestReady() (int, bool) {
	n := len(s.slots)
	start := (s.newestPtr - 1 + n) % n
	ptr := s.newestPtr
	return s.pickFrom(start, -1, Ready, Executing, &ptr)
}

// PickFirstReady scans from index 0 upward, matching pickFirstReady.
func (s *Station[T]) PickFirstReady() (int, bool) {
	for i := range s.slots {
		if s.slots[i].status == Ready {
			s.slots[i].status = Executing
			return i, true
		}
	}
	return 0, false
}

// PickLastReady scans from the highest index downward, matching
// pickLastReady.
func (s *Station[T]) PickLastReady() (int, bool) {
	for i := len(s.slots) - 1; i >= 0; i-- {
		if s.slots[i].status == Ready {
			s.slots[i].status = Executing
			return i, true
		}
	}
	return 0, false
}

// PickRandomReady shuffles a scratch index list with rng and returns the
// first Ready slot found, matching pickRandom.
func (s *Station[T]) PickRandomReady(rng *rand.Rand) (int, bool) {
	order := rng.Perm(len(s.slots))
	for _, i := range order {
		if s.slots[i].status == Ready {
			s.slots[i].status = Executing
			return i, true
		}
	}
	return 0, false
}

func (s *Station[T]) pickFrom(start, step int, want, next Status, ptr *int) (int, bool) {
	n := len(s.slots)
	i := start
	for cnt := 0; cnt < n; cnt++ {
		if s.slots[i].status == want {
			s.slots[i].status = next
			*ptr = (i + step + n) % n
			return i, true
		}
		i = (i + step + n) % n
	}
	return 0, false
}
