package compiler

import (
	"fmt"

	"github.com/chazu/regvm/runtime"
	"github.com/chazu/regvm/vm"
)

// registerSizeOf returns the number of bytes the register-form translation
// of one source instruction occupies, without needing to know its actual
// register operands — used for the offset-resolution pre-pass so forward
// jump targets can be computed before the second, emitting pass.
func registerSizeOf(instr sourceInstr) int {
	switch instr.Op {
	case SForIter, SJumpAbsolute, SPopJumpIfFalse, SPopJumpIfTrue:
		return 7 // BranchOp
	case SBuildTuple, SBuildList:
		return 4 + instr.Operand + 1 // elements + destination register
	case SCallFunction:
		return 4 + instr.Operand + 2 // positional args + callee + destination
	default:
		return 7 // RegOp
	}
}

// translator holds the state threaded through the single simulated pass:
// an operand-stack-as-registers allocator plus the const/name pools being
// built for the target RegisterCode.
type translator struct {
	prog      *StackProgram
	builder   *vm.RegisterCodeBuilder
	stackBase uint8 // first register available for the simulated operand stack
	argBase   uint8 // first register holding a declared argument
	argCount  int
	offsets   []uint32 // byte offset each source instruction starts at
}

// Compile is the package's entry point, wired into package vm as the
// vm.Compiler implementation.
type Compiler struct{}

func NewCompiler() *Compiler { return &Compiler{} }

// Compile translates fv.StackBytecode into a *vm.RegisterCode. It expects
// fv.StackBytecode to already be a StackProgram serialized by Encode (see
// encode.go); callers that construct RegisterCode directly (most tests)
// never invoke this path.
func (c *Compiler) Compile(fv *runtime.FunctionValue) (*vm.RegisterCode, error) {
	prog, err := Decode(fv.StackBytecode)
	if err != nil {
		return nil, fmt.Errorf("compiler: decode: %w", err)
	}
	return translate(prog, fv)
}

func translate(prog *StackProgram, fv *runtime.FunctionValue) (*vm.RegisterCode, error) {
	numConsts := len(prog.Consts)
	argCount := fv.ArgCount
	stackBase := numConsts + argCount

	t := &translator{
		prog:      prog,
		stackBase: uint8(stackBase),
		argBase:   uint8(numConsts),
		argCount:  argCount,
	}

	// Pre-pass: resolve each source instruction's byte offset so branch
	// targets can be encoded absolutely on the emitting pass, since a
	// branch's label is always an absolute byte offset.
	offsets := make([]uint32, len(prog.Instrs)+1)
	cursor := uint32(preludeSizeConst)
	for i, instr := range prog.Instrs {
		offsets[i] = cursor
		cursor += uint32(registerSizeOf(instr))
	}
	offsets[len(prog.Instrs)] = cursor
	t.offsets = offsets

	maxDepth := simulateMaxDepth(prog.Instrs)
	numRegisters := stackBase + int(maxDepth)
	t.builder = vm.NewRegisterCodeBuilder(numRegisters)

	for i, c := range prog.Consts {
		_ = i
		t.builder.AddConst(literalToValue(c))
	}
	for _, n := range prog.Names {
		t.builder.AddName(n)
	}

	depth := 0
	branchDepth := map[int]int{}
	for i, instr := range prog.Instrs {
		if got := t.builder.Offset(); got != offsets[i] {
			return nil, fmt.Errorf("compiler: internal offset mismatch at instr %d: got %d want %d", i, got, offsets[i])
		}
		if d, ok := branchDepth[i]; ok && i > 0 && prog.Instrs[i-1].Op == SJumpAbsolute {
			depth = d
		}
		nd, err := t.emit(instr, depth, i)
		if err != nil {
			return nil, err
		}
		switch instr.Op {
		case SJumpAbsolute, SPopJumpIfFalse, SPopJumpIfTrue:
			if _, ok := branchDepth[instr.Operand]; !ok {
				branchDepth[instr.Operand] = nd
			}
		case SForIter:
			branchDepth[instr.Operand] = depth
		}
		depth = nd
	}

	return t.builder.Build(fv), nil
}

const preludeSizeConst = 4

func literalToValue(c ConstLiteral) runtime.Value {
	switch c.Kind {
	case ConstTrue:
		return runtime.True
	case ConstFalse:
		return runtime.False
	case ConstInt:
		return runtime.FromSmallInt(c.Int)
	case ConstFloat:
		return runtime.FromFloat64(c.Flt)
	case ConstString:
		return runtime.NewString(c.Str)
	default:
		return runtime.Nil
	}
}

// simulateMaxDepth walks the instruction stream tracking the stack-depth
// delta of each opcode to find the largest simultaneous register
// footprint the simulated operand stack needs. Control flow is assumed
// depth-neutral at merge points (true of code a well-formed stack compiler
// emits), so a single linear scan suffices.
func simulateMaxDepth(instrs []sourceInstr) uint8 {
	depth, max := 0, 0
	for _, instr := range instrs {
		depth += stackDelta(instr)
		if depth > max {
			max = depth
		}
		if depth < 0 {
			depth = 0
		}
	}
	if max > 250 {
		max = 250
	}
	return uint8(max)
}

func stackDelta(instr sourceInstr) int {
	switch instr.Op {
	case SPushConst, SLoadName, SLoadFast:
		return 1
	case SGetIter, SUnaryNegative, SUnaryNot, SLoadAttr:
		return 0 // one operand popped, one result pushed in its place
	case SStoreName, SStoreFast, SPop, SPrintItem,
		SPopJumpIfFalse, SPopJumpIfTrue, SReturnValue:
		return -1
	case SBinaryAdd, SBinarySubtract, SBinaryMultiply, SBinaryDivide, SBinaryModulo,
		SBinaryPower, SCompareLT, SCompareLE, SCompareEQ, SCompareNE, SCompareGT, SCompareGE,
		SBinarySubscr:
		return -1 // two operands popped, one result pushed => net -1
	case SStoreSubscr:
		return -3 // obj, key, value consumed, nothing pushed
	case SStoreAttr:
		return -2 // obj, value consumed, nothing pushed
	case SListAppend:
		return -1
	case SBuildTuple, SBuildList:
		return -instr.Operand + 1
	case SCallFunction:
		return -instr.Operand // callee + args popped, one result pushed
	case SForIter:
		return 1 // pushes the yielded value; exhaustion path jumps past the loop body instead of falling through
	case SJumpAbsolute, SPrintNewline:
		return 0
	default:
		return 0
	}
}
