// Package exec implements the arithmetic, branch and memory execution
// units: each owns a reservation station, a latency pipeline, and a
// single-slot output buffer feeding the CDB. Grounded on
// original_source/src/exec_unit.py, arith_unit.py, branch_unit.py,
// mem_unit.py, load_unit.py and store_unit.py.
package exec

import (
	"github.com/len5sim/rvsim/pkg/cdb"
	"github.com/len5sim/rvsim/pkg/pipeline"
	"github.com/len5sim/rvsim/pkg/rs"
)

// inflight is the payload carried through a unit's latency pipeline:
// a computed value tagged with the reservation-station slot, ROB slot and
// destination register it belongs to. taken is only meaningful for branch
// outcomes; arithmetic units leave it false.
type inflight struct {
	slot   int
	robIdx int
	rdIdx  int
	value  int64
	taken  bool
}

// Unit is a generic execution unit parameterized over its reservation
// station entry type. It drives one rs.Station[T] through a pipeline of
// the configured latency and exposes a cdb.Source for arbitration.
type Unit[T rs.Entry] struct {
	Station  *rs.Station[T]
	pipeline *pipeline.Pipeline
	execute  func(T) (value int64, rdIdx int, taken bool)
	outReady bool
	out      inflight
}

// NewUnit creates a Unit with nEntries reservation-station slots and the
// given latency. iterative mirrors the Python original's "iterative" flag:
// true means only one instruction may be in flight in the pipeline at a
// time; every unit here runs iteratively, executing one entry per cycle.
func NewUnit[T rs.Entry](nEntries, latency int, iterative bool, execute func(T) (int64, int, bool)) *Unit[T] {
	return &Unit[T]{
		Station:  rs.New[T](nEntries),
		pipeline: pipeline.New(latency, iterative),
		execute:  execute,
	}
}

// Step advances the unit by one cycle: it drains a completed pipeline
// result into the output slot, then if the pipeline can admit new work it
// picks a ready reservation-station entry (via pick) and starts executing
// it, or just advances the pipeline if nothing is ready.
func (u *Unit[T]) Step(pick func(*rs.Station[T]) (int, bool)) {
	if !u.outReady {
		if last, ok := u.pipeline.LastInstruction().(inflight); ok {
			u.pipeline.PopLastInstruction()
			u.out = last
			u.outReady = true
			u.Station.MarkDone(last.slot, u.Station.Entry(last.slot))
		}
	}

	if u.pipeline.CanAdmit() {
		idx, ok := pick(u.Station)
		if !ok {
			u.pipeline.Advance()
			return
		}
		entry := u.Station.Entry(idx)
		value, rdIdx, taken := u.execute(entry)
		u.pipeline.AddInstruction(inflight{slot: idx, robIdx: entry.ROBIdx(), rdIdx: rdIdx, value: value, taken: taken})
	}
}

// HasResult implements cdb.Source.
func (u *Unit[T]) HasResult() bool { return u.outReady }

// TakeResult implements cdb.Source. Frees the reservation-station slot the
// result came from, mirroring LoadUnit/StoreUnit's TakeResult.
func (u *Unit[T]) TakeResult() cdb.Result {
	r := cdb.Result{RobIdx: u.out.robIdx, RdIdx: u.out.rdIdx, Value: u.out.value, Taken: u.out.taken}
	u.Station.Clear(u.out.slot)
	u.outReady = false
	return r
}

// PickOldestReady adapts rs.Station.PickOldestReady to the pick signature
// Step expects. The scheduler passes its own configured policy to Step
// instead; the load/store address generators always pick oldest-ready.
func PickOldestReady[T rs.Entry](s *rs.Station[T]) (int, bool) { return s.PickOldestReady() }
