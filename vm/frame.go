package vm

import (
	"fmt"

	"github.com/chazu/regvm/runtime"
)

// Frame is per-invocation evaluator state. It exclusively owns
// its register array and call_args tuple until the frame completes, at
// which point Release drops every reference it still holds.
type Frame struct {
	code         *RegisterCode
	cursor       int // byte offset into code.Instructions
	registers    []runtime.Value
	registerSet  []bool // tracks which registers currently hold a live value
	callArgs      runtime.Value
	callArgsArity int

	rt     *runtime.Runtime
	locals map[string]runtime.Value // may be nil for callee frames
	names  []string
	consts []runtime.Value
}

// newFrame allocates a Frame with num_registers null slots. It does not yet
// populate consts/args; callers use frameFromCallable for that.
func newFrame(code *RegisterCode, rt *runtime.Runtime) *Frame {
	return &Frame{
		code:        code,
		cursor:      code.EntryOffset(),
		registers:   make([]runtime.Value, code.NumRegisters),
		registerSet: make([]bool, code.NumRegisters),
		rt:          rt,
		names:       code.Names,
		consts:      code.Consts,
		callArgs:    runtime.Nil,
	}
}

// setRegister installs v into register i, decref-ing whatever was there
// first: writing to a register always releases the previous occupant
// before assigning.
func (f *Frame) setRegister(i uint8, v runtime.Value) {
	idx := int(i)
	if f.registerSet[idx] {
		runtime.Decref(f.registers[idx])
	}
	f.registers[idx] = v
	f.registerSet[idx] = true
}

// clearRegister nulls out register i, decref-ing its occupant. Used by
// DECREF and by frame release.
func (f *Frame) clearRegister(i uint8) {
	idx := int(i)
	if f.registerSet[idx] {
		runtime.Decref(f.registers[idx])
		f.registerSet[idx] = false
	}
	f.registers[idx] = runtime.Nil
}

// getRegister borrows register i's value without transferring ownership.
func (f *Frame) getRegister(i uint8) runtime.Value {
	return f.registers[i]
}

// Release drops every reference the frame still owns: all live registers
// and the call_args tuple.
func (f *Frame) Release() {
	for i := range f.registers {
		if f.registerSet[i] {
			runtime.Decref(f.registers[i])
			f.registerSet[i] = false
		}
	}
	if f.callArgs != runtime.Nil {
		runtime.Decref(f.callArgs)
		f.callArgs = runtime.Nil
	}
}

// takeCallArgs reuses frame.call_args if its
// arity matches na, otherwise allocates a fresh tuple. positional elements'
// references are moved into the tuple. Returns a borrowed reference to the
// tuple (owned by the frame, valid until the next takeCallArgs call or frame
// release); callers read its elements with runtime.TupleElems.
func (f *Frame) takeCallArgs(positional []runtime.Value) runtime.Value {
	na := len(positional)
	if f.callArgs != runtime.Nil && f.callArgsArity == na {
		elems := runtime.TupleElems(f.callArgs)
		for i, v := range positional {
			runtime.Decref(elems[i])
			elems[i] = v
		}
		return f.callArgs
	}
	if f.callArgs != runtime.Nil {
		runtime.Decref(f.callArgs)
	}
	fresh := make([]runtime.Value, na)
	copy(fresh, positional)
	f.callArgs = runtime.NewTuple(fresh)
	f.callArgsArity = na
	return f.callArgs
}

// arityError models an ArityError trigger: actuals + defaults < required.
type arityError struct {
	required int
	got      int
}

func (e *arityError) Error() string {
	return fmt.Sprintf("arity error: required %d arguments, got %d", e.required, e.got)
}

// frameFromCallable constructs a Frame: resolve the
// callable's RegisterCode (the caller has already ensured it is compiled),
// bind self for bound methods, verify arity, preload consts and arguments.
func frameFromCallable(rt *runtime.Runtime, callee runtime.Value, args []runtime.Value) (*Frame, error) {
	fnValue := callee
	var selfArg runtime.Value
	haveSelf := false

	if runtime.IsMethod(callee) {
		selfArg = runtime.MethodSelf(callee)
		fnValue = runtime.MethodFunction(callee)
		haveSelf = true
	}

	fv := runtime.FunctionFromValue(fnValue)
	if fv == nil {
		return nil, newEvalError(KindRuntimeError, "callee is not an in-language function")
	}
	code, ok := fv.Code.(*RegisterCode)
	if !ok || code == nil {
		return nil, newEvalError(KindRuntimeError, "function has no compiled code")
	}
	if code.NumCells != 0 || fv.NumCells != 0 {
		return nil, newEvalError(KindUnsupportedFeature, "cellvars/closures")
	}

	actuals := append([]runtime.Value(nil), args...)
	if haveSelf {
		actuals = append([]runtime.Value{selfArg}, actuals...)
	}

	if len(actuals)+len(fv.Defaults) < fv.ArgCount {
		return nil, &arityError{required: fv.ArgCount, got: len(actuals)}
	}

	f := newFrame(code, rt)
	numConsts := len(code.Consts)
	for i, c := range code.Consts {
		if i >= len(f.registers) {
			break
		}
		runtime.Incref(c)
		f.setRegister(uint8(i), c)
	}

	argBase := numConsts
	for i := 0; i < fv.ArgCount; i++ {
		var v runtime.Value
		if i < len(actuals) {
			v = actuals[i]
			runtime.Incref(v)
		} else {
			defaultIdx := i - (fv.ArgCount - len(fv.Defaults))
			v = fv.Defaults[defaultIdx]
			runtime.Incref(v)
		}
		f.setRegister(uint8(argBase+i), v)
	}

	f.locals = nil
	return f, nil
}
