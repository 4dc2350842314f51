// Package dmem implements the byte-addressable data memory: a single
// outstanding transaction with a stochastic hit/miss latency draw.
// Grounded on original_source/src/dmem.py. The hit/miss coin flip uses
// math/rand/v2 seeded via rand.NewPCG, the same seeded-RNG construction the
// teacher uses for its mutation search (pkg/stoke/mcmc.go).
package dmem

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
)

// Width selects the access width of a transaction.
type Width uint8

const (
	Byte Width = iota
	Half
	Word
)

// TxnKind distinguishes a load from a store transaction.
type TxnKind uint8

const (
	TxnLoad TxnKind = iota
	TxnStore
)

// Txn is one in-flight memory access.
type Txn struct {
	Kind   TxnKind
	RobIdx int
	RdIdx  int // destination register, loads only
	Addr   uint64
	Width  Width
	Value  int64 // store data in, load result out
}

// DMEM is the data memory model: an on-demand byte map plus a single
// outstanding transaction with a downcounter latency.
type DMEM struct {
	mem map[uint64]byte

	cacheLatency int
	memLatency   int
	hitRate      float64
	rng          *rand.Rand

	txn       *Txn
	txnCycles int
}

// Config bundles the DMEM's timing parameters.
type Config struct {
	CacheLatency int
	MemLatency   int
	HitRate      float64
	Seed         uint64
}

// New creates a DMEM with the given timing model, seeded deterministically.
func New(cfg Config) *DMEM {
	return &DMEM{
		mem:          make(map[uint64]byte),
		cacheLatency: cfg.CacheLatency,
		memLatency:   cfg.MemLatency,
		hitRate:      cfg.HitRate,
		rng:          rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0xDEADBEEF)),
	}
}

// CanStartTransaction reports whether the single transaction slot is free.
func (d *DMEM) CanStartTransaction() bool {
	return d.txn == nil
}

// StartTransaction admits txn and draws its hit/miss latency. Callers must
// check CanStartTransaction first.
func (d *DMEM) StartTransaction(txn Txn) {
	d.txn = &txn
	if d.rng.Float64() < d.hitRate {
		d.txnCycles = d.cacheLatency
	} else {
		d.txnCycles = d.memLatency
	}
}

// Step advances the outstanding transaction's downcounter by one cycle and
// performs the access once it reaches zero.
func (d *DMEM) Step() {
	if d.txn == nil || d.txnCycles == 0 {
		return
	}
	d.txnCycles--
	if d.txnCycles == 0 {
		switch d.txn.Kind {
		case TxnLoad:
			d.txn.Value = d.read(d.txn.Addr, d.txn.Width)
		case TxnStore:
			d.write(d.txn.Addr, d.txn.Value, d.txn.Width)
		}
	}
}

// HasReadyTransaction reports whether the outstanding transaction has
// completed.
func (d *DMEM) HasReadyTransaction() bool {
	return d.txn != nil && d.txnCycles == 0
}

// TakeReadyTransaction returns and clears the completed transaction. ok is
// false if none is ready.
func (d *DMEM) TakeReadyTransaction() (Txn, bool) {
	if !d.HasReadyTransaction() {
		return Txn{}, false
	}
	t := *d.txn
	d.txn = nil
	return t, true
}

func (d *DMEM) read(addr uint64, width Width) int64 {
	switch width {
	case Byte:
		return int64(d.mem[addr])
	case Half:
		return int64(d.mem[addr]) | int64(d.mem[addr+1])<<8
	default:
		return int64(d.mem[addr]) | int64(d.mem[addr+1])<<8 |
			int64(d.mem[addr+2])<<16 | int64(d.mem[addr+3])<<24
	}
}

func (d *DMEM) write(addr uint64, value int64, width Width) {
	d.mem[addr] = byte(value)
	if width == Byte {
		return
	}
	d.mem[addr+1] = byte(value >> 8)
	if width == Half {
		return
	}
	d.mem[addr+2] = byte(value >> 16)
	d.mem[addr+3] = byte(value >> 24)
}

// ReadByte exposes a raw byte read, used by dumps and tests.
func (d *DMEM) ReadByte(addr uint64) byte { return d.mem[addr] }

// String dumps every populated address in ascending order, one per line,
// matching dmem.py's __str__.
func (d *DMEM) String() string {
	addrs := make([]uint64, 0, len(d.mem))
	for a := range d.mem {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	s := ""
	for _, a := range addrs {
		s += fmt.Sprintf("0x%08x: %d\n", a, d.mem[a])
	}
	return s
}

// LoadImage populates memory from a Verilog $readmemh-style image: lines
// starting with '@' set the current address, other lines hold
// space-separated big-endian hex byte groups of 4 that are byte-reversed
// (objcopy -O verilog output stores each 32-bit word byte-reversed
// relative to memory order).
func LoadImage(r io.Reader, d *DMEM) error {
	sc := bufio.NewScanner(r)
	var addr uint64
	haveAddr := false
	for sc.Scan() {
		line := sc.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '@' {
			var a uint64
			if _, err := fmt.Sscanf(line[1:], "%x", &a); err != nil {
				return fmt.Errorf("dmem: bad address marker %q: %w", line, err)
			}
			addr = a
			haveAddr = true
			continue
		}
		if !haveAddr {
			return fmt.Errorf("dmem: byte group before any '@' address marker: %q", line)
		}
		var bytes []byte
		var tok string
		for _, f := range splitFields(line) {
			tok = f
			var b uint64
			if _, err := fmt.Sscanf(tok, "%x", &b); err != nil {
				return fmt.Errorf("dmem: bad byte literal %q: %w", tok, err)
			}
			bytes = append(bytes, byte(b))
		}
		for i := 0; i+4 <= len(bytes); i += 4 {
			word := []byte{bytes[i+3], bytes[i+2], bytes[i+1], bytes[i]}
			for j, b := range word {
				d.mem[addr+uint64(j)] = b
			}
			addr += 4
		}
	}
	return sc.Err()
}

func splitFields(s string) []string {
	var fields []string
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\t' {
			if start >= 0 {
				fields = append(fields, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, s[start:])
	}
	return fields
}
