package isa

import "errors"

// ErrUnknownOpcode is returned by Decode when the raw encoding's opcode
// field does not match any format this backend models. Decode errors are
// fatal: the scheduler unwinds and the process exits non-zero.
var ErrUnknownOpcode = errors.New("isa: unknown opcode")
