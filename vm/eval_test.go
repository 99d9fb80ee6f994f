package vm

import (
	"testing"

	"github.com/chazu/regvm/runtime"
)

// buildCode is a small test helper mirroring RegisterCodeBuilder but letting
// tests hand-assemble a RegisterCode without going through package compiler.
func buildCode(numRegisters int, consts []runtime.Value, fn func(b *RegisterCodeBuilder)) *RegisterCode {
	b := NewRegisterCodeBuilder(numRegisters)
	for _, c := range consts {
		b.AddConst(c)
	}
	fn(b)
	return b.Build(&runtime.FunctionValue{Name: "test", ArgCount: 0})
}

// TestArithmeticOverflowFallsBackToGeneric exercises the "overflow
// to a wide result" scenario: adding two smallints near FitsSmallInt's
// boundary must not silently wrap, and must still produce a correct
// (boxed-float) result via the generic path.
func TestArithmeticOverflowFallsBackToGeneric(t *testing.T) {
	const big = (int64(1) << 47) - 1 // just inside the 48-bit smallint range
	consts := []runtime.Value{runtime.FromSmallInt(big), runtime.FromSmallInt(big)}
	code := buildCode(3, consts, func(b *RegisterCodeBuilder) {
		b.EmitReg(OpBinaryAdd, 0, 0, 1, 2, 0)
		b.EmitReg(OpReturnValue, 0, 2, 0, 0, 0)
	})
	fv := code.Function
	fv.Code = code

	rt := runtime.New()
	result, err := Eval(rt, runtime.NewFunction(fv), nil)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if result.IsSmallInt() {
		t.Fatalf("expected overflow to escape smallint range, got smallint %d", result.SmallInt())
	}
	want := float64(big) + float64(big)
	if got := result.Float64(); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestIntFastPathMatchesGenericWhenNoOverflow checks the fast path and the
// generic runtime path agree whenever no overflow occurs.
func TestIntFastPathMatchesGenericWhenNoOverflow(t *testing.T) {
	a, b := int64(17), int64(25)
	fast, ok := execIntFastPath(arithAdd, runtime.FromSmallInt(a), runtime.FromSmallInt(b))
	if !ok {
		t.Fatalf("expected fast path to apply for small operands")
	}
	rt := runtime.New()
	generic, err := genericBinary(rt, arithAdd, runtime.FromSmallInt(a), runtime.FromSmallInt(b))
	if err != nil {
		t.Fatalf("generic add failed: %v", err)
	}
	if fast.SmallInt() != generic.SmallInt() {
		t.Errorf("fast path %d != generic path %d", fast.SmallInt(), generic.SmallInt())
	}
}

// TestBranchAbsoluteLandsOnInstructionBoundary verifies JUMP_ABSOLUTE moves
// the cursor to exactly the label offset and dispatch resumes there
// correctly.
func TestBranchAbsoluteLandsOnInstructionBoundary(t *testing.T) {
	consts := []runtime.Value{runtime.FromSmallInt(7)}
	code := buildCode(2, consts, func(b *RegisterCodeBuilder) {
		skipTarget := uint32(preludeSize + branchOpSize + regOpSize)
		b.EmitBranch(OpJumpAbsolute, 0, 0, skipTarget)
		b.EmitReg(OpBinaryAdd, 0, 0, 0, 1, 0) // skipped; would double-add if reached
		b.EmitReg(OpReturnValue, 0, 0, 0, 0, 0)
	})
	fv := code.Function
	fv.Code = code

	rt := runtime.New()
	result, err := Eval(rt, runtime.NewFunction(fv), nil)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if result.SmallInt() != 7 {
		t.Errorf("got %d, want 7 (the skipped instruction must not have run)", result.SmallInt())
	}
}

// TestForeignCallableLen exercises the "call a foreign callable
// (len)" scenario: CALL_FUNCTION on a native callable dispatches directly
// to the host without compiling anything.
func TestForeignCallableLen(t *testing.T) {
	rt := runtime.New()
	list := runtime.NewList([]runtime.Value{runtime.FromSmallInt(1), runtime.FromSmallInt(2), runtime.FromSmallInt(3)})

	code := buildCode(3, nil, func(b *RegisterCodeBuilder) {
		b.EmitVar(OpCallFunction, 1, []uint8{0, 1, 2}) // na=1: arg reg0, callee reg1, dest reg2
		b.EmitReg(OpReturnValue, 0, 2, 0, 0, 0)
	})
	fv := code.Function
	fv.Code = code

	lenFn, _ := rt.LoadGlobal("len")

	frame := newFrame(code, rt)
	runtime.Incref(list)
	frame.setRegister(0, list)
	runtime.Incref(lenFn)
	frame.setRegister(1, lenFn)

	result, err := runFrame(rt, frame)
	frame.Release()
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if result.SmallInt() != 3 {
		t.Errorf("len(list) = %d, want 3", result.SmallInt())
	}
}

// TestNameResolutionSuccessAndFailure exercises name resolution for both
// the hit and NameError paths.
func TestNameResolutionSuccessAndFailure(t *testing.T) {
	rt := runtime.New()
	rt.StoreGlobal("answer", runtime.FromSmallInt(42))

	hit := buildCode(1, nil, func(b *RegisterCodeBuilder) {
		b.AddName("answer")
		b.EmitReg(OpLoadGlobal, 0, 0, 0, 0, 0)
		b.EmitReg(OpReturnValue, 0, 0, 0, 0, 0)
	})
	hitFn := hit.Function
	hitFn.Code = hit

	result, err := Eval(rt, runtime.NewFunction(hitFn), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SmallInt() != 42 {
		t.Errorf("got %d, want 42", result.SmallInt())
	}

	miss := buildCode(1, nil, func(b *RegisterCodeBuilder) {
		b.AddName("does_not_exist")
		b.EmitReg(OpLoadGlobal, 0, 0, 0, 0, 0)
		b.EmitReg(OpReturnValue, 0, 0, 0, 0, 0)
	})
	missFn := miss.Function
	missFn.Code = miss

	_, err = Eval(rt, runtime.NewFunction(missFn), nil)
	if err == nil {
		t.Fatal("expected NameError, got nil")
	}
	evalErr := asEvalError(err)
	if evalErr.Kind != KindNameError {
		t.Errorf("got error kind %v, want NameError", evalErr.Kind)
	}
}

// TestArityErrorOnInsufficientArguments checks frameFromCallable's arity
// guard.
func TestArityErrorOnInsufficientArguments(t *testing.T) {
	code := buildCode(2, nil, func(b *RegisterCodeBuilder) {
		b.EmitReg(OpReturnValue, 0, 0, 0, 0, 0)
	})
	fv := code.Function
	fv.Code = code
	fv.ArgCount = 2

	rt := runtime.New()
	_, err := Eval(rt, runtime.NewFunction(fv), []runtime.Value{runtime.FromSmallInt(1)})
	if err == nil {
		t.Fatal("expected arity error, got nil")
	}
}

// TestSubtractOverflowFallsBackToGeneric mirrors the ADD overflow scenario
// for BINARY_SUBTRACT: subtracting a very negative smallint from a very
// positive one must escape the smallint range rather than wrap.
func TestSubtractOverflowFallsBackToGeneric(t *testing.T) {
	const big = (int64(1) << 47) - 1
	consts := []runtime.Value{runtime.FromSmallInt(big), runtime.FromSmallInt(-big)}
	code := buildCode(3, consts, func(b *RegisterCodeBuilder) {
		b.EmitReg(OpBinarySubtract, 0, 0, 1, 2, 0)
		b.EmitReg(OpReturnValue, 0, 2, 0, 0, 0)
	})
	fv := code.Function
	fv.Code = code

	rt := runtime.New()
	result, err := Eval(rt, runtime.NewFunction(fv), nil)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if result.IsSmallInt() {
		t.Fatalf("expected overflow to escape smallint range, got smallint %d", result.SmallInt())
	}
	want := float64(big) - float64(-big)
	if got := result.Float64(); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestMultiplyOverflowFallsBackToGeneric mirrors the ADD overflow scenario
// for BINARY_MULTIPLY.
func TestMultiplyOverflowFallsBackToGeneric(t *testing.T) {
	const big = int64(1) << 30
	consts := []runtime.Value{runtime.FromSmallInt(big), runtime.FromSmallInt(big)}
	code := buildCode(3, consts, func(b *RegisterCodeBuilder) {
		b.EmitReg(OpBinaryMultiply, 0, 0, 1, 2, 0)
		b.EmitReg(OpReturnValue, 0, 2, 0, 0, 0)
	})
	fv := code.Function
	fv.Code = code

	rt := runtime.New()
	result, err := Eval(rt, runtime.NewFunction(fv), nil)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if result.IsSmallInt() {
		t.Fatalf("expected overflow to escape smallint range, got smallint %d", result.SmallInt())
	}
	want := float64(big) * float64(big)
	if got := result.Float64(); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestBinarySubscrIndexBoundary exercises the BINARY_SUBSCR fast path's
// negative-index wrap and its out-of-bounds fallback to a host IndexError.
func TestBinarySubscrIndexBoundary(t *testing.T) {
	rt := runtime.New()
	list := runtime.NewList([]runtime.Value{runtime.FromSmallInt(10), runtime.FromSmallInt(20), runtime.FromSmallInt(30)})

	lastElem := buildCode(3, nil, func(b *RegisterCodeBuilder) {
		b.EmitReg(OpBinarySubscr, 0, 0, 1, 2, 0)
		b.EmitReg(OpReturnValue, 0, 2, 0, 0, 0)
	})
	fv := lastElem.Function
	fv.Code = lastElem

	frame := newFrame(lastElem, rt)
	runtime.Incref(list)
	frame.setRegister(0, list)
	frame.setRegister(1, runtime.FromSmallInt(-1))
	result, err := runFrame(rt, frame)
	frame.Release()
	if err != nil {
		t.Fatalf("a[-1] should succeed via the negative-index fast path: %v", err)
	}
	if result.SmallInt() != 30 {
		t.Errorf("a[-1] = %d, want 30", result.SmallInt())
	}

	frame = newFrame(lastElem, rt)
	runtime.Incref(list)
	frame.setRegister(0, list)
	frame.setRegister(1, runtime.FromSmallInt(3))
	_, err = runFrame(rt, frame)
	frame.Release()
	if err == nil {
		t.Fatal("a[len(a)] should raise an IndexError, got nil")
	}
	evalErr := asEvalError(err)
	if evalErr.Kind != KindRuntimeError {
		t.Errorf("got error kind %v, want RuntimeError (surfacing IndexError)", evalErr.Kind)
	}
}

// TestNestedInLanguageCallReenters exercises CALL_FUNCTION's in-language
// re-entry path: a caller function that invokes an already-compiled callee
// and adds 1 to its result must re-enter the evaluator rather than fall
// back to a host call.
func TestNestedInLanguageCallReenters(t *testing.T) {
	doubleBuilder := NewRegisterCodeBuilder(2)
	doubleBuilder.EmitReg(OpBinaryAdd, 0, 0, 0, 1, 0)
	doubleBuilder.EmitReg(OpReturnValue, 0, 1, 0, 0, 0)
	doubleFv := &runtime.FunctionValue{Name: "double", ArgCount: 1}
	doubleFv.Code = doubleBuilder.Build(doubleFv)

	callerBuilder := NewRegisterCodeBuilder(5)
	callerBuilder.AddConst(runtime.NewFunction(doubleFv))
	callerBuilder.AddConst(runtime.FromSmallInt(5))
	callerBuilder.AddConst(runtime.FromSmallInt(1))
	callerBuilder.EmitVar(OpCallFunction, 1, []uint8{1, 0, 3}) // na=1: arg reg1, callee reg0, dest reg3
	callerBuilder.EmitReg(OpBinaryAdd, 0, 3, 2, 4, 0)
	callerBuilder.EmitReg(OpReturnValue, 0, 4, 0, 0, 0)
	callerFv := &runtime.FunctionValue{Name: "caller", ArgCount: 0}
	callerFv.Code = callerBuilder.Build(callerFv)

	rt := runtime.New()
	result, err := Eval(rt, runtime.NewFunction(callerFv), nil)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if result.SmallInt() != 11 {
		t.Errorf("double(5)+1 = %d, want 11", result.SmallInt())
	}
}

// TestRegisterRefcountBalanceOnReturn is a coarse refcount-discipline check:
// a function that just returns its preloaded const must, once its frame is
// released, leave the value with the const pool's reference plus exactly
// the one reference the caller now owns.
func TestRegisterRefcountBalanceOnReturn(t *testing.T) {
	s := runtime.NewString("hello")
	code := buildCode(1, []runtime.Value{s}, func(b *RegisterCodeBuilder) {
		b.EmitReg(OpReturnValue, 0, 0, 0, 0, 0)
	})
	fv := code.Function
	fv.Code = code

	rt := runtime.New()
	result, err := Eval(rt, runtime.NewFunction(fv), nil)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if !runtime.IsStringValue(result) || runtime.GetStringContent(result) != "hello" {
		t.Errorf("got %v, want string %q", result, "hello")
	}
	if got := runtime.RefCount(result); got != 2 {
		t.Errorf("returned value refcount = %d, want 2 (const pool + caller)", got)
	}
	runtime.Decref(result)
}
