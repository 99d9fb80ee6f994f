package vm

import (
	"fmt"

	"github.com/chazu/regvm/runtime"
	"golang.org/x/sync/singleflight"
)

// Compiler translates a function's stack bytecode into register code on
// first use, invoked lazily on functions observed during calls and the
// result memoised. Package compiler supplies the concrete implementation;
// vm depends only on this interface to avoid an import cycle.
type Compiler interface {
	Compile(fv *runtime.FunctionValue) (*RegisterCode, error)
}

var (
	activeCompiler Compiler
	compileGroup   singleflight.Group
)

// SetCompiler installs the process-wide lazy compiler. Called once at
// startup by cmd/regeval; tests that construct RegisterCode directly never
// need one.
func SetCompiler(c Compiler) {
	activeCompiler = c
}

// compileFailure distinguishes "could not obtain compiled code for this
// callee" from an ordinary evaluator error produced while running an
// already-compiled frame. Only the former triggers the call protocol's
// host-invocation fallback: a compilation failure causes the call to fall
// back to host invocation.
type compileFailure struct{ err error }

func (c *compileFailure) Error() string { return c.err.Error() }

// compileIfNeeded resolves fv's RegisterCode, compiling (and caching) it on
// first use. Concurrent callers asking for the same function are deduped
// via singleflight.
func compileIfNeeded(fv *runtime.FunctionValue) (*RegisterCode, error) {
	if code, ok := fv.Code.(*RegisterCode); ok && code != nil {
		return code, nil
	}
	if activeCompiler == nil {
		return nil, &compileFailure{fmt.Errorf("no compiler configured")}
	}
	key := fmt.Sprintf("%s@%p", fv.Name, fv)
	v, err, _ := compileGroup.Do(key, func() (interface{}, error) {
		return activeCompiler.Compile(fv)
	})
	if err != nil {
		return nil, &compileFailure{err}
	}
	code := v.(*RegisterCode)
	fv.Code = code
	return code, nil
}

// decodeCallOperands splits a CALL_FUNCTION VarRegOp's register list into
// positional actuals, keyword (name, value) pairs, the callee register and
// the destination register: na positional operand regs, then nk (name,
// value) operand-reg pairs, then the callee, then the destination, with
// na in arg's low byte and nk in its high byte.
func decodeCallOperands(f *Frame, v VarRegOp) (positional []runtime.Value, kwargs map[string]runtime.Value, callee runtime.Value, destReg uint8) {
	na := int(v.Arg & 0xFF)
	nk := int((v.Arg >> 8) & 0xFF)

	idx := 0
	positional = make([]runtime.Value, na)
	for i := 0; i < na; i++ {
		positional[i] = f.getRegister(v.Regs[idx])
		idx++
	}
	if nk > 0 {
		kwargs = make(map[string]runtime.Value, nk)
		for i := 0; i < nk; i++ {
			nameReg := v.Regs[idx]
			idx++
			valueReg := v.Regs[idx]
			idx++
			name := runtime.GetStringContent(f.getRegister(nameReg))
			kwargs[name] = f.getRegister(valueReg)
		}
	}
	callee = f.getRegister(v.Regs[idx])
	idx++
	destReg = v.Regs[idx]
	return positional, kwargs, callee, destReg
}

// execCallFunction implements the CALL_FUNCTION family.
func execCallFunction(rt *runtime.Runtime, f *Frame, v VarRegOp) error {
	positional, kwargs, callee, destReg := decodeCallOperands(f, v)

	// The registers keep their own references; the tuple takes new ones.
	for _, p := range positional {
		runtime.Incref(p)
	}
	argsTuple := f.takeCallArgs(positional)
	argsElems := runtime.TupleElems(argsTuple)

	result, err := dispatchCall(rt, callee, argsElems, kwargs)
	if err != nil {
		return asEvalError(err)
	}
	f.setRegister(destReg, result)
	return nil
}

// dispatchCall chooses how to invoke callee: foreign callables go
// straight to the host; in-language callables with no keyword arguments
// re-enter the evaluator; anything else (or a failed re-entry due to a
// compile failure) falls back to a host call.
func dispatchCall(rt *runtime.Runtime, callee runtime.Value, args []runtime.Value, kwargs map[string]runtime.Value) (runtime.Value, error) {
	if runtime.IsNativeCallable(callee) {
		fn, _ := runtime.NativeFromValue(callee)
		return fn(rt, args, kwargs)
	}

	if len(kwargs) == 0 && (runtime.IsFunction(callee) || runtime.IsMethod(callee)) {
		result, err := reenter(rt, callee, args)
		if err == nil {
			return result, nil
		}
		if _, isCompileFailure := err.(*compileFailure); !isCompileFailure {
			return runtime.Nil, err
		}
		// Compilation failed: fall through to host invocation.
	}

	return hostCall(rt, callee, args, kwargs)
}

// reenter re-enters the evaluator with a fresh Frame for an in-language
// callee.
func reenter(rt *runtime.Runtime, callee runtime.Value, args []runtime.Value) (runtime.Value, error) {
	fnValue := callee
	if runtime.IsMethod(callee) {
		fnValue = runtime.MethodFunction(callee)
	}
	fv := runtime.FunctionFromValue(fnValue)
	if fv == nil {
		return runtime.Nil, newEvalError(KindRuntimeError, "callee is not an in-language function")
	}
	if _, err := compileIfNeeded(fv); err != nil {
		return runtime.Nil, err
	}
	frame, err := frameFromCallable(rt, callee, args)
	if err != nil {
		return runtime.Nil, asEvalError(err)
	}
	defer frame.Release()
	return runFrame(rt, frame)
}

// hostCall implements the "foreign callable" / fallback branch: the host
// runtime exposes no distinct path from a plain native invocation once the
// callee has been established as not (successfully) re-enterable.
func hostCall(rt *runtime.Runtime, callee runtime.Value, args []runtime.Value, kwargs map[string]runtime.Value) (runtime.Value, error) {
	if fn, ok := runtime.NativeFromValue(callee); ok {
		return fn(rt, args, kwargs)
	}
	return runtime.Nil, newEvalError(KindRuntimeError, "callee is not callable")
}
