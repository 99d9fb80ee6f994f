package compiler

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// unsupportedSourceOp reports a StackOp the translator has no register-form
// equivalent for. None of the opcodes this package currently defines should
// ever reach it; it exists so a future StackOp addition fails loudly at
// compile time rather than silently miscompiling.
func unsupportedSourceOp(op StackOp) error {
	return fmt.Errorf("compiler: unsupported stack op %d", op)
}

// wireProgram is the CBOR-serializable form of a StackProgram, the
// FunctionValue.StackBytecode payload this package both writes (Encode, used
// by whatever assembles FunctionValues ahead of time) and reads (Decode,
// used by Compile).
type wireProgram struct {
	Instrs []wireInstr   `cbor:"i"`
	Consts []ConstLiteral `cbor:"c"`
	Names  []string      `cbor:"n"`
}

type wireInstr struct {
	Op      byte `cbor:"o"`
	Operand int  `cbor:"a"`
}

// Encode serializes prog into the blob a FunctionValue's StackBytecode
// field carries. The format is a small CBOR envelope rather than the raw
// binary stack-bytecode layout a real source language would emit, since
// this package both defines the dialect and is its only consumer.
func Encode(prog *StackProgram) ([]byte, error) {
	wp := wireProgram{
		Consts: prog.Consts,
		Names:  prog.Names,
	}
	wp.Instrs = make([]wireInstr, len(prog.Instrs))
	for i, in := range prog.Instrs {
		wp.Instrs[i] = wireInstr{Op: byte(in.Op), Operand: in.Operand}
	}
	buf, err := cbor.Marshal(wp)
	if err != nil {
		return nil, fmt.Errorf("compiler: encode: %w", err)
	}
	// A four-byte magic/version prefix keeps Decode from trying to parse an
	// unrelated blob as a stack program.
	out := make([]byte, 4+len(buf))
	binary.LittleEndian.PutUint32(out[:4], wireMagic)
	copy(out[4:], buf)
	return out, nil
}

const wireMagic uint32 = 0x53564d31 // "SVM1"

// Decode parses a StackBytecode blob produced by Encode.
func Decode(blob []byte) (*StackProgram, error) {
	if len(blob) < 4 || binary.LittleEndian.Uint32(blob[:4]) != wireMagic {
		return nil, fmt.Errorf("compiler: decode: bad magic")
	}
	var wp wireProgram
	if err := cbor.Unmarshal(blob[4:], &wp); err != nil {
		return nil, fmt.Errorf("compiler: decode: %w", err)
	}
	prog := &StackProgram{
		Consts: wp.Consts,
		Names:  wp.Names,
	}
	prog.Instrs = make([]sourceInstr, len(wp.Instrs))
	for i, in := range wp.Instrs {
		prog.Instrs[i] = sourceInstr{Op: StackOp(in.Op), Operand: in.Operand}
	}
	return prog, nil
}
