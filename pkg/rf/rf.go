// Package rf models the integer register file: 32 registers, x0 hardwired
// to zero. Grounded on original_source/src/rf.py.
package rf

import "fmt"

// NumRegs is the number of architectural integer registers.
const NumRegs = 32

// RF is the register file. The zero value is ready to use (all regs zero).
type RF struct {
	regs [NumRegs]int64
}

// Read returns the value of register idx. Register 0 always reads zero.
func (r *RF) Read(idx int) int64 {
	if idx == 0 {
		return 0
	}
	return r.regs[idx]
}

// Write stores value into register idx. Writes to register 0 are ignored.
func (r *RF) Write(idx int, value int64) {
	if idx == 0 {
		return
	}
	r.regs[idx] = value
}

// String dumps every register, one per line.
func (r *RF) String() string {
	s := ""
	for i := 0; i < NumRegs; i++ {
		s += fmt.Sprintf("RF[%d]=%d\n", i, r.Read(i))
	}
	return s
}
