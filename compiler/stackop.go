// Package compiler translates the host runtime's stack-based bytecode
// dialect into the register form package vm executes. It is the
// evaluator's one declared external collaborator that this repository
// also implements, wired in as vm.Compiler via SetCompiler so
// CALL_FUNCTION's lazy-compile path has something real to invoke.
package compiler

// StackOp is one opcode of the source stack-bytecode dialect; each
// instruction pairs it with one integer operand (0 when unused), and
// encode.go defines the CBOR wire form.
// Unlike the register form, everything here operates on an implicit
// operand stack rather than named registers.
type StackOp byte

const (
	SPushConst StackOp = iota
	SLoadName
	SStoreName
	SLoadFast
	SStoreFast
	SBinaryAdd
	SBinarySubtract
	SBinaryMultiply
	SBinaryDivide
	SBinaryModulo
	SBinaryPower
	SCompareLT
	SCompareLE
	SCompareEQ
	SCompareNE
	SCompareGT
	SCompareGE
	SUnaryNegative
	SUnaryNot
	SGetIter
	SForIter // operand: absolute instruction index to jump to on exhaustion
	SJumpAbsolute
	SPopJumpIfFalse
	SPopJumpIfTrue
	SBuildTuple // operand: element count
	SBuildList  // operand: element count
	SListAppend
	SBinarySubscr
	SStoreSubscr
	SLoadAttr
	SStoreAttr
	SPrintItem
	SPrintNewline
	SCallFunction // operand: positional argument count (no kwargs in this dialect)
	SReturnValue
	SPop
)

// sourceInstr is one decoded instruction of the stack dialect: an opcode
// plus its operand (0 when not applicable). For SPushConst/SLoadName/
// SStoreName/SLoadAttr/SStoreAttr the Operand is the index into the
// const/name pool.
type sourceInstr struct {
	Op      StackOp
	Operand int
}

// StackProgram is the parsed form of a function's StackBytecode blob, ready
// for translation. The evaluator never sees this type; only the Compiler
// does.
type StackProgram struct {
	Instrs []sourceInstr
	Consts []ConstLiteral
	Names  []string
}

// ConstLiteral is a compile-time literal the stack program's SPushConst
// instructions reference by index.
type ConstLiteral struct {
	Kind ConstKind
	Int  int64
	Flt  float64
	Str  string
}

type ConstKind byte

const (
	ConstNone ConstKind = iota
	ConstTrue
	ConstFalse
	ConstInt
	ConstFloat
	ConstString
)
