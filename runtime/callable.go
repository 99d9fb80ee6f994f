package runtime

// NativeFunc is a foreign (Go-implemented) callable, the "foreign callable"
// path of the Call Protocol. It receives already-materialized
// positional args and an optional keyword map and returns a fresh Value (one
// reference) or an error.
type NativeFunc func(rt *Runtime, args []Value, kwargs map[string]Value) (Value, error)

// FunctionValue is an in-language callable: a function value whose body is
// (or can be lazily compiled into) register code. It is the runtime-side
// half of vm.RegisterCode's `function` back-reference.
type FunctionValue struct {
	Name     string
	Globals  map[string]Value // shared, mutated via Runtime.SetGlobal
	Defaults []Value          // trailing default values, left-to-right
	ArgCount int              // declared positional parameter count
	NumCells int              // cellvars declared (non-zero => UnsupportedFeature)

	// Code is the compiled register code backing this function. It starts
	// nil and is filled in (and cached) the first time the Call Protocol
	// resolves this function. The concrete type is
	// *vm.RegisterCode; it is stored as `any` here to avoid an import cycle
	// between runtime and vm (the evaluator depends on runtime, not the
	// reverse).
	Code any

	// StackBytecode is the as-yet-uncompiled source the compiler package
	// translates into Code on first use. Nil for functions constructed
	// directly with pre-compiled Code (as most of this repo's tests do).
	StackBytecode []byte
}

// NewFunction creates a function Value wrapping fv. Reference count is 1.
func NewFunction(fv *FunctionValue) Value {
	obj := newObject(KindFunction)
	obj.fn = fv
	return obj.ToValue()
}

func FunctionFromValue(v Value) *FunctionValue {
	obj := ObjectFromValue(v)
	if obj == nil || obj.kind != KindFunction {
		return nil
	}
	return obj.fn
}

// IsFunction reports whether v is an in-language function value.
func IsFunction(v Value) bool {
	obj := ObjectFromValue(v)
	return obj != nil && obj.kind == KindFunction
}

// NewNative wraps a Go function as a foreign callable Value.
func NewNative(name string, fn NativeFunc) Value {
	obj := newObject(KindNative)
	obj.native = fn
	obj.nativeID = name
	return obj.ToValue()
}

func NativeFromValue(v Value) (NativeFunc, bool) {
	obj := ObjectFromValue(v)
	if obj == nil || obj.kind != KindNative {
		return nil, false
	}
	return obj.native, true
}

// IsNativeCallable reports whether v is a foreign/native callable.
func IsNativeCallable(v Value) bool {
	obj := ObjectFromValue(v)
	return obj != nil && obj.kind == KindNative
}

// NewBoundMethod binds self to fn, producing a callable Value whose first
// argument slot is supplied by self.
func NewBoundMethod(self, fn Value) Value {
	Incref(self)
	Incref(fn)
	obj := newObject(KindBoundMethod)
	obj.boundSelf = self
	obj.boundFn = fn
	return obj.ToValue()
}

// IsMethod reports whether v is a bound method.
func IsMethod(v Value) bool {
	obj := ObjectFromValue(v)
	return obj != nil && obj.kind == KindBoundMethod
}

// MethodSelf and MethodFunction expose a bound method's receiver and
// underlying function for host introspection.
func MethodSelf(v Value) Value {
	obj := ObjectFromValue(v)
	if obj == nil || obj.kind != KindBoundMethod {
		return Nil
	}
	return obj.boundSelf
}

func MethodFunction(v Value) Value {
	obj := ObjectFromValue(v)
	if obj == nil || obj.kind != KindBoundMethod {
		return Nil
	}
	return obj.boundFn
}

// IsCallable reports whether v can appear as the callee of CALL_FUNCTION.
func IsCallable(v Value) bool {
	return IsFunction(v) || IsNativeCallable(v) || IsMethod(v)
}
