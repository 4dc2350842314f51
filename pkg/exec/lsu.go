package exec

import "github.com/len5sim/rvsim/pkg/dmem"
import "github.com/len5sim/rvsim/pkg/rs"

// LSU orchestrates the Load and Store units against a single DMEM port,
// restricting memory issue to the ROB-head instruction and running the
// speculative-load hazard check before admitting a load. Grounded on
// original_source/src/lsu.py.
type LSU struct {
	Load  *LoadUnit
	Store *StoreUnit
	Mem   *dmem.DMEM

	// ForwardStoreToLoad enables the optional store-to-load forwarding
	// pass; disabled by default. When enabled, forwarding only applies
	// to loads and stores at the exact same address.
	ForwardStoreToLoad bool
}

// NewLSU wires a Load unit, a Store unit and a DMEM instance together.
func NewLSU(nEntries int, mem *dmem.DMEM) *LSU {
	return &LSU{Load: NewLoadUnit(nEntries), Store: NewStoreUnit(nEntries), Mem: mem}
}

// Step runs one LSU cycle: drain a completed DMEM transaction, try to
// start a new one gated by the ROB head, tick both units and the memory,
// then optionally run store-to-load forwarding.
func (l *LSU) Step(robHead int) {
	if txn, ok := l.Mem.TakeReadyTransaction(); ok {
		switch txn.Kind {
		case dmem.TxnLoad:
			l.Load.CompleteFromMemory(txn.RobIdx, txn.Value)
		case dmem.TxnStore:
			l.Store.CompleteToMemory(txn.RobIdx)
		}
	} else if l.Mem.CanStartTransaction() {
		l.tryStartTransaction(robHead)
	}

	l.Load.Step()
	l.Store.Step()
	l.Mem.Step()

	if l.ForwardStoreToLoad {
		l.forwardStoreToLoad()
	}
}

// tryStartTransaction picks the RS slot in either unit whose status is
// address_ready and whose ROB index equals the head, giving Load priority,
// with a speculative-load hazard check before admitting a load.
func (l *LSU) tryStartTransaction(robHead int) {
	if idx, entry, ok := l.Load.base.Station.FindByStatusAndROB(rs.AddressReady, robHead); ok {
		if l.speculativeLoadHazard(entry.Address) {
			return
		}
		l.Load.base.Station.SetStatus(idx, rs.Executing)
		l.Mem.StartTransaction(dmem.Txn{Kind: dmem.TxnLoad, RobIdx: entry.RobIdx, RdIdx: entry.RdIdx, Addr: entry.Address, Width: entry.Width})
		return
	}
	if idx, entry, ok := l.Store.base.Station.FindByStatusAndROB(rs.AddressReady, robHead); ok {
		l.Store.base.Station.SetStatus(idx, rs.Executing)
		l.Mem.StartTransaction(dmem.Txn{Kind: dmem.TxnStore, RobIdx: entry.RobIdx, Addr: entry.Address, Width: entry.Width, Value: entry.Rs2.Value})
	}
}

// speculativeLoadHazard reports whether any in-flight store (not clear,
// not done) has an unresolved address or one matching addr — a younger
// load must not read past it.
func (l *LSU) speculativeLoadHazard(addr uint64) bool {
	return l.Store.base.Station.AnyInFlight(func(e *StoreEntry) bool {
		return !e.AddrValid || e.Address == addr
	})
}

// forwardStoreToLoad copies a completed store's data into any load waiting
// on operands at the exact same address: exact-address comparison only,
// no sub-word overlap.
func (l *LSU) forwardStoreToLoad() {
	var stores []*StoreEntry
	l.Store.base.Station.Entries(func(i int, e *StoreEntry, status rs.Status) {
		if status == rs.Done {
			stores = append(stores, e)
		}
	})
	if len(stores) == 0 {
		return
	}
	l.Load.base.Station.Entries(func(i int, e *LoadEntry, status rs.Status) {
		if status != rs.WaitingOperands || !e.AddrValid {
			return
		}
		for _, s := range stores {
			if s.AddrValid && s.Address == e.Address {
				e.ResValue = s.Rs2.Value
				l.Load.base.Station.SetEntry(i, e)
				l.Load.base.Station.SetStatus(i, rs.Ready)
				return
			}
		}
	})
}
