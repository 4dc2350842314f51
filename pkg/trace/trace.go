// Package trace parses a pre-decoded instruction trace: one disassembly
// line per instruction, address, raw hex encoding and mnemonic, grounded
// on original_source/src/iq.py's _parseDisassemblyLine regex. The backend
// has no front-end of its own — it consumes an already-disassembled
// program.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/len5sim/rvsim/pkg/isa"
)

var lineRE = regexp.MustCompile(`^\s*([0-9a-fA-F]+):\s+([0-9a-fA-F]+)\s+(.+)$`)

// Line is one parsed disassembly record before ISA decoding.
type Line struct {
	LineNo  int
	Addr    uint64
	HexCode uint32
	Mnemo   string
}

// ParseDisassembly reads a Spike-style disassembly file: lines not
// matching the "<addr>: <hex> <mnemonic>" shape are skipped (headers,
// blank lines, section labels), matching the original's "skip if not an
// instruction" behavior.
func ParseDisassembly(r io.Reader) ([]Line, error) {
	var lines []Line
	sc := bufio.NewScanner(r)
	for i := 0; sc.Scan(); i++ {
		m := lineRE.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		addr, err := strconv.ParseUint(m[1], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("trace: bad address %q on line %d: %w", m[1], i, err)
		}
		hex, err := strconv.ParseUint(m[2], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("trace: bad hex code %q on line %d: %w", m[2], i, err)
		}
		lines = append(lines, Line{LineNo: i, Addr: addr, HexCode: uint32(hex), Mnemo: m[3]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("trace: scanning disassembly: %w", err)
	}
	return lines, nil
}

// DecodeAll parses a disassembly file and decodes every line into an ISA
// instruction, failing fast on the first decode error: an I/O-time fatal,
// not a per-cycle recoverable condition.
func DecodeAll(r io.Reader) ([]isa.Instruction, error) {
	lines, err := ParseDisassembly(r)
	if err != nil {
		return nil, err
	}
	instrs := make([]isa.Instruction, 0, len(lines))
	for _, l := range lines {
		instr, err := isa.Decode(l.Addr, l.HexCode, l.Mnemo, l.LineNo)
		if err != nil {
			return nil, fmt.Errorf("trace: decoding line %d: %w", l.LineNo, err)
		}
		instrs = append(instrs, instr)
	}
	return instrs, nil
}
