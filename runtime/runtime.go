// Package runtime implements the Host Object Runtime: the concrete set of
// capabilities the evaluator assumes exists (construction, arithmetic,
// comparison, attribute/item access, iteration, I/O) behind an interface the
// evaluator core (package vm) calls into without depending on any of this
// package's representation choices beyond the shared Value type.
package runtime

import (
	"os"

	"github.com/sasha-s/go-deadlock"
)

// Runtime is the host object runtime: global/builtin namespaces, the
// process's standard-output file, and the single big lock that serializes
// evaluator entry. It uses a deadlock-
// detecting RWMutex rather than a plain sync.RWMutex specifically so that an
// evaluator reentrancy bug (a native callable re-entering Do without
// releasing first) fails loudly in tests instead of deadlocking silently.
type Runtime struct {
	gil deadlock.RWMutex

	globals  map[string]Value
	builtins map[string]Value
	symbols  *SymbolTable

	stdout Value

	instructionLimit int64
}

// New constructs a Runtime with an empty global namespace, the default
// builtins registered, and stdout wired to os.Stdout.
func New() *Runtime {
	rt := &Runtime{
		globals:          make(map[string]Value),
		builtins:         make(map[string]Value),
		symbols:          NewSymbolTable(),
		instructionLimit: 1_000_000_000,
	}
	rt.stdout = NewFile(os.Stdout)
	rt.registerBuiltins()
	return rt
}

// Symbols returns the runtime's shared symbol table.
func (rt *Runtime) Symbols() *SymbolTable { return rt.symbols }

// InstructionLimit returns the configured RuntimeLimitExceeded threshold
//, overridable via config.Config.
func (rt *Runtime) InstructionLimit() int64 { return rt.instructionLimit }

func (rt *Runtime) SetInstructionLimit(n int64) {
	if n > 0 {
		rt.instructionLimit = n
	}
}

// Do acquires the host GIL for the duration of fn: the evaluator holds the
// GIL for its entire execution, so only one
// goroutine may be inside a call to Eval (or a native callable re-entering
// it) at a time.
func (rt *Runtime) Do(fn func() (Value, error)) (Value, error) {
	rt.gil.Lock()
	defer rt.gil.Unlock()
	return fn()
}

// LoadGlobal implements LOAD_GLOBAL: globals, falling back to builtins, else
// NameError.
func (rt *Runtime) LoadGlobal(name string) (Value, error) {
	if v, ok := rt.globals[name]; ok {
		Incref(v)
		return v, nil
	}
	if v, ok := rt.builtins[name]; ok {
		Incref(v)
		return v, nil
	}
	return Nil, nameErrorFor(name)
}

// LoadName implements LOAD_NAME: locals (supplied by the caller, the
// evaluator's frame), then globals, then builtins — this method covers only
// the latter two tiers, the frame-local lookup happens in package vm before
// falling back here.
func (rt *Runtime) LoadName(name string) (Value, error) {
	return rt.LoadGlobal(name)
}

// StoreGlobal implements STORE_NAME/STORE_GLOBAL's globals-dict mutation.
// The stored value's reference is moved into the globals map.
func (rt *Runtime) StoreGlobal(name string, v Value) {
	if old, ok := rt.globals[name]; ok {
		Decref(old)
	}
	rt.globals[name] = v
}

// Global reads a global without the NameError-on-miss behavior LoadGlobal
// has, returning ok=false instead.
func (rt *Runtime) Global(name string) (Value, bool) {
	v, ok := rt.globals[name]
	return v, ok
}

// RegisterBuiltin installs a builtin under name, replacing any existing
// entry. Builtins are not subject to the per-program globals lifecycle;
// this is typically called once at Runtime construction.
func (rt *Runtime) RegisterBuiltin(name string, v Value) {
	rt.builtins[name] = v
}

func (rt *Runtime) registerBuiltins() {
	rt.RegisterBuiltin("len", NewNative("len", builtinLen))
	rt.RegisterBuiltin("range", NewNative("range", builtinRange))
	rt.RegisterBuiltin("str", NewNative("str", builtinStr))
	rt.RegisterBuiltin("print", NewNative("print", builtinPrint))
}

func builtinLen(rt *Runtime, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 1 {
		return Nil, typeError("len() takes exactly one argument")
	}
	n := SequenceLen(args[0])
	if n < 0 {
		if obj := ObjectFromValue(args[0]); obj != nil && obj.kind == KindDict {
			if obj.dict != nil {
				n = len(obj.dict.entries)
			} else {
				n = 0
			}
		} else {
			return Nil, typeError("object has no len()")
		}
	}
	return FromSmallInt(int64(n)), nil
}

func builtinRange(rt *Runtime, args []Value, kwargs map[string]Value) (Value, error) {
	var start, stop, step int64 = 0, 0, 1
	switch len(args) {
	case 1:
		if !args[0].IsSmallInt() {
			return Nil, typeError("range() argument must be an integer")
		}
		stop = args[0].SmallInt()
	case 2, 3:
		if !args[0].IsSmallInt() || !args[1].IsSmallInt() {
			return Nil, typeError("range() arguments must be integers")
		}
		start = args[0].SmallInt()
		stop = args[1].SmallInt()
		if len(args) == 3 {
			if !args[2].IsSmallInt() {
				return Nil, typeError("range() arguments must be integers")
			}
			step = args[2].SmallInt()
		}
	default:
		return Nil, typeError("range() takes 1 to 3 arguments")
	}
	return rt.NewRange(start, stop, step), nil
}

func builtinStr(rt *Runtime, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 1 {
		return Nil, typeError("str() takes exactly one argument")
	}
	return NewString(rt.Str(args[0])), nil
}

func builtinPrint(rt *Runtime, args []Value, kwargs map[string]Value) (Value, error) {
	out := rt.Stdout()
	defer Decref(out)
	for i, a := range args {
		if i > 0 {
			rt.WriteString(out, " ")
		}
		rt.WriteString(out, rt.Str(a))
	}
	rt.WriteString(out, "\n")
	rt.Flush(out)
	return Nil, nil
}

// Str renders v for PRINT_ITEM, print() and str(); every caller, small
// ints included, goes through here.
func (rt *Runtime) Str(v Value) string {
	switch {
	case v == Nil:
		return "None"
	case v == True:
		return "True"
	case v == False:
		return "False"
	case v.IsSmallInt():
		return formatInt(v.SmallInt())
	case v.IsFloat():
		return formatFloat(v.Float64())
	}
	obj := ObjectFromValue(v)
	if obj == nil {
		return "?"
	}
	switch obj.kind {
	case KindString:
		return obj.str
	case KindTuple:
		return joinValues(rt, obj.elems, "(", ")")
	case KindList:
		return joinValues(rt, obj.elems, "[", "]")
	case KindFunction:
		return "<function " + obj.fn.Name + ">"
	case KindNative:
		return "<builtin " + obj.nativeID + ">"
	case KindBoundMethod:
		return "<bound method>"
	case KindException:
		return obj.exc.Error()
	default:
		return "<object>"
	}
}
