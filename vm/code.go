package vm

import (
	"encoding/binary"

	"github.com/chazu/regvm/runtime"
)

// Instruction byte layouts. Each begins with a one-byte
// opcode; the decoder picks the variant from variantOf(op).
//
//	RegOp:     opcode(1) arg(2 LE) reg1(1) reg2(1) reg3(1) reg4(1)   = 7 bytes
//	VarRegOp:  opcode(1) arg(2 LE) numRegs(1) regs[numRegs](1 each)  = 4+numRegs bytes
//	BranchOp:  opcode(1) reg1(1) reg2(1) label(4 LE)                 = 7 bytes
const (
	regOpSize    = 7
	branchOpSize = 7
)

// preludeSize is the fixed-size header at the start of instructions
// declaring num_registers. It holds
// a little-endian uint32.
const preludeSize = 4

// size returns the encoded length of the instruction whose opcode byte is
// at instructions[offset]: constant for RegOp and BranchOp; for VarRegOp
// it is a function of num_registers.
func size(instructions []byte, offset int) int {
	op := Opcode(instructions[offset])
	switch variantOf(op) {
	case VariantVarRegOp:
		numRegs := int(instructions[offset+3])
		return 4 + numRegs
	case VariantBranchOp:
		return branchOpSize
	default:
		return regOpSize
	}
}

// RegOp is the decoded form of a fixed-operand instruction.
type RegOp struct {
	Op   Opcode
	Arg  uint16
	Reg1 uint8
	Reg2 uint8
	Reg3 uint8
	Reg4 uint8
}

func decodeRegOp(instructions []byte, offset int) RegOp {
	return RegOp{
		Op:   Opcode(instructions[offset]),
		Arg:  binary.LittleEndian.Uint16(instructions[offset+1 : offset+3]),
		Reg1: instructions[offset+3],
		Reg2: instructions[offset+4],
		Reg3: instructions[offset+5],
		Reg4: instructions[offset+6],
	}
}

func encodeRegOp(buf []byte, r RegOp) {
	buf[0] = byte(r.Op)
	binary.LittleEndian.PutUint16(buf[1:3], r.Arg)
	buf[3] = r.Reg1
	buf[4] = r.Reg2
	buf[5] = r.Reg3
	buf[6] = r.Reg4
}

// VarRegOp is the decoded form of a variable-arity instruction (calls,
// tuple/list construction).
type VarRegOp struct {
	Op   Opcode
	Arg  uint16
	Regs []uint8
}

func decodeVarRegOp(instructions []byte, offset int) VarRegOp {
	numRegs := int(instructions[offset+3])
	regs := make([]uint8, numRegs)
	copy(regs, instructions[offset+4:offset+4+numRegs])
	return VarRegOp{
		Op:   Opcode(instructions[offset]),
		Arg:  binary.LittleEndian.Uint16(instructions[offset+1 : offset+3]),
		Regs: regs,
	}
}

func encodeVarRegOp(buf []byte, v VarRegOp) {
	buf[0] = byte(v.Op)
	binary.LittleEndian.PutUint16(buf[1:3], v.Arg)
	buf[3] = uint8(len(v.Regs))
	copy(buf[4:4+len(v.Regs)], v.Regs)
}

// BranchOp is the decoded form of a conditional/unconditional jump.
type BranchOp struct {
	Op    Opcode
	Reg1  uint8
	Reg2  uint8
	Label uint32 // absolute byte offset into instructions
}

func decodeBranchOp(instructions []byte, offset int) BranchOp {
	return BranchOp{
		Op:    Opcode(instructions[offset]),
		Reg1:  instructions[offset+1],
		Reg2:  instructions[offset+2],
		Label: binary.LittleEndian.Uint32(instructions[offset+3 : offset+7]),
	}
}

func encodeBranchOp(buf []byte, b BranchOp) {
	buf[0] = byte(b.Op)
	buf[1] = b.Reg1
	buf[2] = b.Reg2
	binary.LittleEndian.PutUint32(buf[3:7], b.Label)
}

// RegisterCode is the compiled, read-only artifact the Call Protocol builds
// frames from. It is produced by package compiler; the
// evaluator never mutates it.
type RegisterCode struct {
	Instructions []byte
	NumRegisters int
	Consts       []runtime.Value
	Names        []string
	Function     *runtime.FunctionValue

	// NumCells mirrors the originating function's declared cellvar count;
	// non-zero triggers UnsupportedFeature at frame construction. Closures
	// with free variables are not supported.
	NumCells int
}

// EntryOffset returns the byte offset of the first opcode, immediately
// after the prelude.
func (rc *RegisterCode) EntryOffset() int {
	return preludeSize
}

// encodePrelude writes num_registers as the fixed-size header.
func encodePrelude(buf []byte, numRegisters int) {
	binary.LittleEndian.PutUint32(buf[:preludeSize], uint32(numRegisters))
}

func decodePrelude(buf []byte) int {
	return int(binary.LittleEndian.Uint32(buf[:preludeSize]))
}
