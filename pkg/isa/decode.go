package isa

import "fmt"

// Base-ISA opcode field values (bits [6:0] of the raw encoding).
const (
	opR     uint32 = 0x33 // OP (R-type arithmetic)
	opI     uint32 = 0x13 // OP-IMM (I-type arithmetic)
	opLoad  uint32 = 0x03 // LOAD (I-type)
	opStore uint32 = 0x23 // STORE (S-type)
	opBranc uint32 = 0x63 // BRANCH (B-type)
	opJal   uint32 = 0x6F // JAL (J-type)
	opJalr  uint32 = 0x67 // JALR (I-type)
	opLui   uint32 = 0x37 // LUI (U-type)
	opAuipc uint32 = 0x17 // AUIPC (U-type)
)

// Decode extracts the instruction fields from a raw 32-bit RISC-V encoding
// and tags the resulting Instruction with its format. Returns an error for
// an opcode this backend does not model.
func Decode(pc uint64, raw uint32, mnemo string, line int) (Instruction, error) {
	instr := Instruction{
		PC:    pc,
		Raw:   raw,
		Mnemo: mnemo,
		Line:  line,
		Rd:    NoReg,
		Rs1:   NoReg,
		Rs2:   NoReg,
	}

	opcode := raw & 0x7F
	instr.Opcode = opcode
	funct3 := (raw >> 12) & 0x7
	funct7 := (raw >> 25) & 0x7F
	rd := int((raw >> 7) & 0x1F)
	rs1 := int((raw >> 15) & 0x1F)
	rs2 := int((raw >> 20) & 0x1F)

	switch opcode {
	case opR:
		instr.Type = TypeR
		instr.Funct3 = funct3
		instr.Funct7 = funct7
		instr.Rd = rd
		instr.Rs1 = rs1
		instr.Rs2 = rs2
	case opI:
		instr.Type = TypeIArith
		instr.Funct3 = funct3
		instr.Rd = rd
		instr.Rs1 = rs1
		instr.Imm = signExtend(raw>>20, 12)
		// SLLI/SRLI/SRAI encode the shift amount in imm[4:0] and the
		// variant in imm[11:5] (same bit position as funct7 in R-type).
		if funct3 == 0b001 || funct3 == 0b101 {
			instr.Funct7 = (raw >> 25) & 0x7F
			instr.Imm = int64((raw >> 20) & 0x1F)
		}
	case opJalr:
		instr.Type = TypeIJalr
		instr.Funct3 = funct3
		instr.Rd = rd
		instr.Rs1 = rs1
		instr.Imm = signExtend(raw>>20, 12)
	case opLoad:
		instr.Type = TypeILoad
		instr.Funct3 = funct3
		instr.Rd = rd
		instr.Rs1 = rs1
		instr.Imm = signExtend(raw>>20, 12)
	case opStore:
		instr.Type = TypeS
		instr.Funct3 = funct3
		instr.Rs1 = rs1
		instr.Rs2 = rs2
		imm := ((raw >> 25) & 0x7F << 5) | ((raw >> 7) & 0x1F)
		instr.Imm = signExtend(imm, 12)
	case opBranc:
		instr.Type = TypeB
		instr.Funct3 = funct3
		instr.Rs1 = rs1
		instr.Rs2 = rs2
		imm := (((raw >> 31) & 0x1) << 12) |
			(((raw >> 7) & 0x1) << 11) |
			(((raw >> 25) & 0x3F) << 5) |
			(((raw >> 8) & 0xF) << 1)
		instr.Imm = signExtend(imm, 13)
	case opJal:
		instr.Type = TypeJ
		instr.Rd = rd
		imm := (((raw >> 31) & 0x1) << 20) |
			(((raw >> 12) & 0xFF) << 12) |
			(((raw >> 20) & 0x1) << 11) |
			(((raw >> 21) & 0x3FF) << 1)
		instr.Imm = signExtend(imm, 21)
	case opLui, opAuipc:
		instr.Type = TypeU
		instr.Rd = rd
		instr.Imm = int64(int32(raw & 0xFFFFF000))
	default:
		return Instruction{}, fmt.Errorf("%w: opcode 0x%02x (raw 0x%08x) at pc 0x%x", ErrUnknownOpcode, opcode, raw, pc)
	}

	return instr, nil
}

// signExtend sign-extends the low `bits` bits of v.
func signExtend(v uint32, bits uint) int64 {
	shift := 32 - bits
	return int64(int32(v<<shift) >> shift)
}
