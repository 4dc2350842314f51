package exec

import (
	"github.com/len5sim/rvsim/pkg/cdb"
	"github.com/len5sim/rvsim/pkg/dmem"
	"github.com/len5sim/rvsim/pkg/isa"
	"github.com/len5sim/rvsim/pkg/pipeline"
	"github.com/len5sim/rvsim/pkg/rs"
)

// LoadEntry is the reservation-station entry for a load instruction.
// Grounded on load_unit.py's loadReservationStationEntry: Address starts
// unresolved, is filled in by address generation, and AddrValid tracks
// that explicitly instead of relying on a sentinel "address is None".
type LoadEntry struct {
	PC        uint64
	RobIdx    int
	RdIdx     int
	Rs1       rs.Operand
	Offset    int64
	Width     dmem.Width
	AddrValid bool
	Address   uint64
	ResValue  int64
}

// NewLoadEntry builds a LoadEntry from a decoded I-load instruction.
func NewLoadEntry(instr isa.Instruction, robIdx int, width dmem.Width) LoadEntry {
	return LoadEntry{PC: instr.PC, RobIdx: robIdx, RdIdx: instr.Rd, Rs1: rs.FromReg(uint8(instr.Rs1)), Offset: instr.Imm, Width: width}
}

func (e LoadEntry) ROBIdx() int    { return e.RobIdx }
func (e LoadEntry) IsReady() bool  { return e.Rs1.Ready() }
func (e *LoadEntry) UpdateFromCDB(robIdx int, value int64) {
	if op, ok := e.Rs1.UpdateFromCDB(robIdx, value); ok {
		e.Rs1 = op
	}
}

// StoreEntry is the reservation-station entry for a store instruction.
// Grounded on store_unit.py's storeReservationStationEntry. It has no
// destination field: stores never write the register file, and their CDB
// packet carries isa.NoReg, the rd_idx = -1 convention used for
// destination-less entries.
type StoreEntry struct {
	PC        uint64
	RobIdx    int
	Rs1       rs.Operand // base register
	Rs2       rs.Operand // data to store
	Offset    int64
	Width     dmem.Width
	AddrValid bool
	Address   uint64
}

// NewStoreEntry builds a StoreEntry from a decoded S-type instruction.
func NewStoreEntry(instr isa.Instruction, robIdx int, width dmem.Width) StoreEntry {
	return StoreEntry{
		PC: instr.PC, RobIdx: robIdx, Offset: instr.Imm, Width: width,
		Rs1: rs.FromReg(uint8(instr.Rs1)), Rs2: rs.FromReg(uint8(instr.Rs2)),
	}
}

func (e StoreEntry) ROBIdx() int { return e.RobIdx }
func (e StoreEntry) IsReady() bool {
	return e.Rs1.Ready() && e.Rs2.Ready()
}
func (e *StoreEntry) UpdateFromCDB(robIdx int, value int64) {
	if op, ok := e.Rs1.UpdateFromCDB(robIdx, value); ok {
		e.Rs1 = op
	}
	if op, ok := e.Rs2.UpdateFromCDB(robIdx, value); ok {
		e.Rs2 = op
	}
}

// addrGenPayload is the address-generation pipeline's in-flight payload.
type addrGenPayload struct {
	slot int
	addr uint64
}

// MemBase is the shared address-generation machinery for Load and Store
// units: base_register + signed_offset, produced through a one-cycle
// pipeline exactly like every other execution unit, but landing in
// rs.AddressReady instead of rs.Done (mem_unit.py's execute()).
type MemBase[T rs.Entry] struct {
	Station  *rs.Station[T]
	pipeline *pipeline.Pipeline
	addrOf   func(T) (base int64, offset int64)
	setAddr  func(T, uint64) T
}

func newMemBase[T rs.Entry](nEntries int, addrOf func(T) (int64, int64), setAddr func(T, uint64) T) *MemBase[T] {
	return &MemBase[T]{
		Station:  rs.New[T](nEntries),
		pipeline: pipeline.New(1, true),
		addrOf:   addrOf,
		setAddr:  setAddr,
	}
}

// Step runs one cycle of address generation: drain a completed address
// into its RS slot (marking it AddressReady), then admit a newly-ready
// entry if the (iterative, depth-1) pipeline is free.
func (m *MemBase[T]) Step() {
	if last, ok := m.pipeline.LastInstruction().(addrGenPayload); ok {
		m.pipeline.PopLastInstruction()
		entry := m.Station.Entry(last.slot)
		entry = m.setAddr(entry, last.addr)
		m.Station.SetEntry(last.slot, entry)
		m.Station.SetStatus(last.slot, rs.AddressReady)
	}

	if m.pipeline.CanAdmit() {
		idx, ok := m.Station.PickOldestReady()
		if !ok {
			m.pipeline.Advance()
			return
		}
		entry := m.Station.Entry(idx)
		base, offset := m.addrOf(entry)
		m.pipeline.AddInstruction(addrGenPayload{slot: idx, addr: uint64(base + offset)})
	}
}

// LoadUnit generates load addresses and, once DMEM returns data, broadcasts
// the result on the CDB.
type LoadUnit struct {
	base *MemBase[*LoadEntry]
}

// NewLoadUnit creates a load unit with nEntries RS slots.
func NewLoadUnit(nEntries int) *LoadUnit {
	return &LoadUnit{base: newMemBase[*LoadEntry](nEntries,
		func(e *LoadEntry) (int64, int64) { return e.Rs1.Value, e.Offset },
		func(e *LoadEntry, addr uint64) *LoadEntry { e.Address = addr; e.AddrValid = true; return e },
	)}
}

func (u *LoadUnit) Station() *rs.Station[*LoadEntry] { return u.base.Station }
func (u *LoadUnit) Step()                            { u.base.Step() }

// CompleteFromMemory records a DMEM read result against its RS slot and
// marks it Done, making it eligible for CDB broadcast.
func (u *LoadUnit) CompleteFromMemory(robIdx int, value int64) {
	u.base.Station.Entries(func(i int, e *LoadEntry, status rs.Status) {
		if status != rs.Clear && e.RobIdx == robIdx {
			e.ResValue = value
			u.base.Station.SetEntry(i, e)
			u.base.Station.SetStatus(i, rs.Done)
		}
	})
}

// HasResult implements cdb.Source.
func (u *LoadUnit) HasResult() bool {
	_, _, ok := u.base.Station.FindDone()
	return ok
}

// TakeResult implements cdb.Source and frees the slot.
func (u *LoadUnit) TakeResult() cdb.Result {
	idx, entry, ok := u.base.Station.FindDone()
	if !ok {
		return cdb.Result{}
	}
	u.base.Station.Clear(idx)
	return cdb.Result{RobIdx: entry.RobIdx, RdIdx: entry.RdIdx, Value: entry.ResValue}
}

// StoreUnit generates store addresses and, once the write lands in memory,
// participates in CDB broadcast with a synthetic zero-value packet so the
// ROB entries with no destination register are marked ready this way.
type StoreUnit struct {
	base *MemBase[*StoreEntry]
}

// NewStoreUnit creates a store unit with nEntries RS slots.
func NewStoreUnit(nEntries int) *StoreUnit {
	return &StoreUnit{base: newMemBase[*StoreEntry](nEntries,
		func(e *StoreEntry) (int64, int64) { return e.Rs1.Value, e.Offset },
		func(e *StoreEntry, addr uint64) *StoreEntry { e.Address = addr; e.AddrValid = true; return e },
	)}
}

func (u *StoreUnit) Station() *rs.Station[*StoreEntry] { return u.base.Station }
func (u *StoreUnit) Step()                             { u.base.Step() }

// CompleteToMemory marks the issued store Done immediately (a store never
// waits on data returning — it only waits for the write to land).
func (u *StoreUnit) CompleteToMemory(robIdx int) {
	u.base.Station.Entries(func(i int, e *StoreEntry, status rs.Status) {
		if status == rs.Executing && e.RobIdx == robIdx {
			u.base.Station.SetStatus(i, rs.Done)
		}
	})
}

func (u *StoreUnit) HasResult() bool {
	_, _, ok := u.base.Station.FindDone()
	return ok
}

func (u *StoreUnit) TakeResult() cdb.Result {
	idx, entry, ok := u.base.Station.FindDone()
	if !ok {
		return cdb.Result{}
	}
	u.base.Station.Clear(idx)
	return cdb.Result{RobIdx: entry.RobIdx, RdIdx: isa.NoReg, Value: 0}
}
