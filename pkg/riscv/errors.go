package riscv

import "errors"

var (
	// ErrUnknownArithOp is returned when an (opcode, funct3, funct7) triple
	// does not match a supported arithmetic operation.
	ErrUnknownArithOp = errors.New("riscv: unknown arithmetic funct3/funct7 combination")
	// ErrUnknownBranchOp is returned when a B-type funct3 does not match a
	// supported branch comparison.
	ErrUnknownBranchOp = errors.New("riscv: unknown branch funct3")
)
