package vm

import "github.com/chazu/regvm/runtime"

// RegisterCodeBuilder assembles a RegisterCode instruction-by-instruction.
// It exists for tests and for the compiler package, which drives it from a
// stack-bytecode translation: a small append-only builder type sitting
// next to the bytecode format it targets.
type RegisterCodeBuilder struct {
	numRegisters int
	consts       []runtime.Value
	names        []string
	buf          []byte
}

func NewRegisterCodeBuilder(numRegisters int) *RegisterCodeBuilder {
	b := &RegisterCodeBuilder{numRegisters: numRegisters}
	b.buf = make([]byte, preludeSize)
	encodePrelude(b.buf, numRegisters)
	return b
}

func (b *RegisterCodeBuilder) AddConst(v runtime.Value) uint16 {
	b.consts = append(b.consts, v)
	return uint16(len(b.consts) - 1)
}

func (b *RegisterCodeBuilder) AddName(name string) uint16 {
	b.names = append(b.names, name)
	return uint16(len(b.names) - 1)
}

// Offset returns the byte offset the next-emitted instruction will land at,
// useful for computing branch labels before the jump target is known.
func (b *RegisterCodeBuilder) Offset() uint32 {
	return uint32(len(b.buf))
}

func (b *RegisterCodeBuilder) EmitReg(op Opcode, arg uint16, reg1, reg2, reg3, reg4 uint8) {
	rec := make([]byte, regOpSize)
	encodeRegOp(rec, RegOp{Op: op, Arg: arg, Reg1: reg1, Reg2: reg2, Reg3: reg3, Reg4: reg4})
	b.buf = append(b.buf, rec...)
}

func (b *RegisterCodeBuilder) EmitVar(op Opcode, arg uint16, regs []uint8) {
	rec := make([]byte, 4+len(regs))
	encodeVarRegOp(rec, VarRegOp{Op: op, Arg: arg, Regs: regs})
	b.buf = append(b.buf, rec...)
}

func (b *RegisterCodeBuilder) EmitBranch(op Opcode, reg1, reg2 uint8, label uint32) {
	rec := make([]byte, branchOpSize)
	encodeBranchOp(rec, BranchOp{Op: op, Reg1: reg1, Reg2: reg2, Label: label})
	b.buf = append(b.buf, rec...)
}

// Build finalises the instruction buffer into a RegisterCode bound to fn.
func (b *RegisterCodeBuilder) Build(fn *runtime.FunctionValue) *RegisterCode {
	return &RegisterCode{
		Instructions: b.buf,
		NumRegisters: b.numRegisters,
		Consts:       b.consts,
		Names:        b.names,
		Function:     fn,
	}
}
