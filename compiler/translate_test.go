package compiler

import (
	"testing"

	"github.com/chazu/regvm/runtime"
	"github.com/chazu/regvm/vm"
)

func evalStackProgram(t *testing.T, prog *StackProgram, argCount int, args []runtime.Value) (runtime.Value, error) {
	t.Helper()
	blob, err := Encode(prog)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	fv := &runtime.FunctionValue{
		Name:          "test",
		ArgCount:      argCount,
		StackBytecode: blob,
	}
	vm.SetCompiler(NewCompiler())
	rt := runtime.New()
	return vm.Eval(rt, runtime.NewFunction(fv), args)
}

// TestTranslateArithmetic compiles `push 3; push 4; add; return` and checks
// the register form evaluates to 7.
func TestTranslateArithmetic(t *testing.T) {
	prog := &StackProgram{
		Consts: []ConstLiteral{
			{Kind: ConstInt, Int: 3},
			{Kind: ConstInt, Int: 4},
		},
		Instrs: []sourceInstr{
			{Op: SPushConst, Operand: 0},
			{Op: SPushConst, Operand: 1},
			{Op: SBinaryAdd},
			{Op: SReturnValue},
		},
	}
	result, err := evalStackProgram(t, prog, 0, nil)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if result.SmallInt() != 7 {
		t.Errorf("got %d, want 7", result.SmallInt())
	}
}

// TestTranslateLoadFastArgument checks that a declared argument's register
// survives translation's reserved argument-register range intact.
func TestTranslateLoadFastArgument(t *testing.T) {
	prog := &StackProgram{
		Instrs: []sourceInstr{
			{Op: SLoadFast, Operand: 0},
			{Op: SPushConst, Operand: 0},
			{Op: SBinaryAdd},
			{Op: SReturnValue},
		},
		Consts: []ConstLiteral{{Kind: ConstInt, Int: 1}},
	}
	result, err := evalStackProgram(t, prog, 1, []runtime.Value{runtime.FromSmallInt(41)})
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if result.SmallInt() != 42 {
		t.Errorf("got %d, want 42", result.SmallInt())
	}
}

// TestTranslateComparisonAndBranch exercises POP_JUMP_IF_FALSE/
// JUMP_ABSOLUTE wiring: returns
// one constant if an argument is less than 10, another otherwise.
func TestTranslateComparisonAndBranch(t *testing.T) {
	prog := &StackProgram{
		Consts: []ConstLiteral{
			{Kind: ConstInt, Int: 10},
			{Kind: ConstInt, Int: 100}, // "small" result
			{Kind: ConstInt, Int: 200}, // "big" result
		},
		Instrs: []sourceInstr{
			{Op: SLoadFast, Operand: 0},   // 0: push arg
			{Op: SPushConst, Operand: 0},  // 1: push 10
			{Op: SCompareLT},              // 2: arg < 10
			{Op: SPopJumpIfFalse, Operand: 6}, // 3: if false, jump to 6 (big branch)
			{Op: SPushConst, Operand: 1},  // 4: push 100
			{Op: SJumpAbsolute, Operand: 7}, // 5: jump to return
			{Op: SPushConst, Operand: 2},  // 6: push 200
			{Op: SReturnValue},            // 7
		},
	}

	small, err := evalStackProgram(t, prog, 1, []runtime.Value{runtime.FromSmallInt(3)})
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if small.SmallInt() != 100 {
		t.Errorf("got %d, want 100 for arg=3", small.SmallInt())
	}

	big, err := evalStackProgram(t, prog, 1, []runtime.Value{runtime.FromSmallInt(30)})
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if big.SmallInt() != 200 {
		t.Errorf("got %d, want 200 for arg=30", big.SmallInt())
	}
}

// TestTranslateForEachSum exercises a loop scenario: sum the
// elements of a tuple built at runtime, using LOAD_NAME/STORE_NAME for the
// accumulator and loop variable (the only local-variable storage a frame
// with no declared parameters has, since LOAD_FAST/STORE_FAST address
// parameter registers specifically).
func TestTranslateForEachSum(t *testing.T) {
	prog := &StackProgram{
		Names: []string{"total", "it", "cur"},
		Consts: []ConstLiteral{
			{Kind: ConstInt, Int: 0},
			{Kind: ConstInt, Int: 10},
			{Kind: ConstInt, Int: 20},
			{Kind: ConstInt, Int: 12},
		},
		Instrs: []sourceInstr{
			{Op: SPushConst, Operand: 0},  // 0: push 0
			{Op: SStoreName, Operand: 0},  // 1: total = 0
			{Op: SPushConst, Operand: 1},  // 2
			{Op: SPushConst, Operand: 2},  // 3
			{Op: SPushConst, Operand: 3},  // 4
			{Op: SBuildTuple, Operand: 3}, // 5: (10, 20, 12)
			{Op: SGetIter},                // 6: iterator over the tuple
			{Op: SStoreName, Operand: 1},  // 7: it = iterator
			// loop head at index 8:
			{Op: SLoadName, Operand: 1},   // 8: push it
			{Op: SForIter, Operand: 16},   // 9: on exhaustion -> 16
			{Op: SStoreName, Operand: 2},  // 10: cur = value
			{Op: SLoadName, Operand: 0},   // 11: push total
			{Op: SLoadName, Operand: 2},   // 12: push cur
			{Op: SBinaryAdd},              // 13: total + cur
			{Op: SStoreName, Operand: 0},  // 14: total = ...
			{Op: SJumpAbsolute, Operand: 8}, // 15: loop back
			{Op: SLoadName, Operand: 0},   // 16 (target): push total
			{Op: SReturnValue},            // 17
		},
	}
	result, err := evalStackProgram(t, prog, 0, nil)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if result.SmallInt() != 42 {
		t.Errorf("got %d, want 42 (10+20+12)", result.SmallInt())
	}
}
