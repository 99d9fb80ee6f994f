package vm

import "github.com/chazu/regvm/runtime"

// execLoadGlobal implements LOAD_GLOBAL: globals -> builtins, NameError on
// miss. names[arg] supplies the identifier.
func execLoadGlobal(rt *runtime.Runtime, f *Frame, r RegOp) error {
	name := f.names[r.Arg]
	v, err := rt.LoadGlobal(name)
	if err != nil {
		return newEvalError(KindNameError, err.Error())
	}
	f.setRegister(r.Reg3, v)
	return nil
}

// execLoadName implements LOAD_NAME: locals -> globals -> builtins
//.
func execLoadName(rt *runtime.Runtime, f *Frame, r RegOp) error {
	name := f.names[r.Arg]
	if f.locals != nil {
		if v, ok := f.locals[name]; ok {
			runtime.Incref(v)
			f.setRegister(r.Reg3, v)
			return nil
		}
	}
	v, err := rt.LoadName(name)
	if err != nil {
		return newEvalError(KindNameError, err.Error())
	}
	f.setRegister(r.Reg3, v)
	return nil
}

// execLoadFast implements LOAD_FAST: a register copy with refcount
// balancing.
func execLoadFast(f *Frame, r RegOp) error {
	v := f.getRegister(r.Reg1)
	runtime.Incref(v)
	f.setRegister(r.Reg3, v)
	return nil
}

// execLoadLocals implements LOAD_LOCALS: binds the frame's locals mapping
// into a register. The evaluator exposes locals as a host
// dict so in-language code can introspect its own frame, e.g. `locals()`.
func execLoadLocals(f *Frame, r RegOp) error {
	d := runtime.NewDict()
	for k, v := range f.locals {
		runtime.Incref(v)
		key := runtime.NewString(k)
		// locals() snapshots are always dicts with string keys, so DictSet
		// cannot fail here.
		_ = runtime.DictSet(d, key, v)
		runtime.Decref(key)
	}
	f.setRegister(r.Reg3, d)
	return nil
}

// execStoreName implements STORE_NAME: writes into locals.
func execStoreName(f *Frame, r RegOp) error {
	name := f.names[r.Arg]
	v := f.getRegister(r.Reg1)
	runtime.Incref(v)
	if f.locals == nil {
		f.locals = make(map[string]runtime.Value)
	}
	if old, ok := f.locals[name]; ok {
		runtime.Decref(old)
	}
	f.locals[name] = v
	return nil
}

// execStoreFast implements STORE_FAST: a register move with decref of the
// destination.
func execStoreFast(f *Frame, r RegOp) error {
	v := f.getRegister(r.Reg1)
	runtime.Incref(v)
	f.setRegister(r.Reg3, v)
	return nil
}

// execStoreAttr implements STORE_ATTR as `SetAttr(obj_reg, names[arg],
// value_reg)`.
func execStoreAttr(rt *runtime.Runtime, f *Frame, r RegOp) error {
	name := f.names[r.Arg]
	obj := f.getRegister(r.Reg1)
	value := f.getRegister(r.Reg2)
	runtime.Incref(value)
	if err := rt.SetAttr(obj, name, value); err != nil {
		runtime.Decref(value)
		return asEvalError(err)
	}
	return nil
}

// execStoreSubscr implements STORE_SUBSCR: runtime set_item. reg1 is the
// object, reg2 the key, reg3 the value, matching execBinarySubscr's
// (obj, key) convention.
func execStoreSubscr(rt *runtime.Runtime, f *Frame, r RegOp) error {
	obj := f.getRegister(r.Reg1)
	key := f.getRegister(r.Reg2)
	value := f.getRegister(r.Reg3)
	runtime.Incref(value)
	if err := rt.SetItem(obj, key, value); err != nil {
		runtime.Decref(value)
		return asEvalError(err)
	}
	return nil
}

// execLoadAttr implements LOAD_ATTR: runtime get_attr(obj, names[arg])
//.
func execLoadAttr(rt *runtime.Runtime, f *Frame, r RegOp) error {
	name := f.names[r.Arg]
	obj := f.getRegister(r.Reg1)
	v, err := rt.GetAttr(obj, name)
	if err != nil {
		return asEvalError(err)
	}
	f.setRegister(r.Reg3, v)
	return nil
}

// execConstIndex implements CONST_INDEX: specialised obj[small_int] where
// the index is encoded in the low byte of the instruction's Arg. Reg2 is
// not read.
func execConstIndex(rt *runtime.Runtime, f *Frame, r RegOp) error {
	obj := f.getRegister(r.Reg1)
	idx := int64(r.Arg & 0xFF)
	v, err := rt.GetItem(obj, runtime.FromSmallInt(idx))
	if err != nil {
		return asEvalError(err)
	}
	f.setRegister(r.Reg3, v)
	return nil
}

// execBuildTuple/execBuildList implement BUILD_TUPLE/BUILD_LIST: consume
// arg registers (here, the VarRegOp's Regs list minus the trailing
// destination slot), construct a tuple/list, write to the trailing register
//. Each element is increfed into the container; the source registers keep
// their own references.
func execBuildTuple(f *Frame, v VarRegOp) error {
	elems := gatherElems(f, v)
	dest := v.Regs[len(v.Regs)-1]
	f.setRegister(dest, runtime.NewTuple(elems))
	return nil
}

func execBuildList(f *Frame, v VarRegOp) error {
	elems := gatherElems(f, v)
	dest := v.Regs[len(v.Regs)-1]
	f.setRegister(dest, runtime.NewList(elems))
	return nil
}

func gatherElems(f *Frame, v VarRegOp) []runtime.Value {
	src := v.Regs[:len(v.Regs)-1]
	elems := make([]runtime.Value, len(src))
	for i, reg := range src {
		val := f.getRegister(reg)
		runtime.Incref(val)
		elems[i] = val
	}
	return elems
}

// execListAppend implements LIST_APPEND: runtime list append. reg1 is the
// list, reg2 the element; the element's reference is moved into the list.
func execListAppend(rt *runtime.Runtime, f *Frame, r RegOp) error {
	list := f.getRegister(r.Reg1)
	elem := f.getRegister(r.Reg2)
	runtime.Incref(elem)
	if err := rt.ListAppend(list, elem); err != nil {
		return asEvalError(err)
	}
	return nil
}

// execPrint implements PRINT_ITEM/PRINT_NEWLINE/PRINT_ITEM_TO/
// PRINT_NEWLINE_TO with the soft-space convention: before printing, a
// pending soft-space emits a leading
// space; after printing a string, soft-space is set unless the string ends
// in non-space whitespace; newline clears soft-space unconditionally.
func execPrint(rt *runtime.Runtime, f *Frame, r RegOp, op Opcode) error {
	var file runtime.Value
	hasExplicitFile := op == OpPrintItemTo || op == OpPrintNewlineTo
	if hasExplicitFile {
		file = f.getRegister(r.Reg2)
	} else {
		file = rt.Stdout()
		defer runtime.Decref(file)
	}

	switch op {
	case OpPrintItem, OpPrintItemTo:
		item := f.getRegister(r.Reg1)
		if rt.SoftSpace(file) {
			rt.WriteString(file, " ")
		}
		text := rt.Str(item)
		rt.WriteString(file, text)
		if len(text) > 0 && isNonSpaceWhitespace(text[len(text)-1]) {
			rt.SetSoftSpace(file, false)
		} else {
			rt.SetSoftSpace(file, true)
		}
	case OpPrintNewline, OpPrintNewlineTo:
		rt.WriteString(file, "\n")
		rt.SetSoftSpace(file, false)
		rt.Flush(file)
	}
	return nil
}

func isNonSpaceWhitespace(b byte) bool {
	return b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

// execSlice implements SLICE: obj[left:right] with possibly-absent
// endpoints denoted by kBadRegister: reg1=obj, reg2=low
// (or kBadRegister), reg3=high (or kBadRegister), reg4=dest. Missing low
// normalises to 0, missing high to the sequence length. This evaluator always has a
// sequence-slice-capable object (list/tuple/string) at hand, so the
// "defer to a slice object" branch collapses into a direct sequence slice.
func execSlice(rt *runtime.Runtime, f *Frame, r RegOp) error {
	obj := f.getRegister(r.Reg1)
	n := runtime.SequenceLen(obj)
	if n < 0 {
		return asEvalError(typeErrorNotSliceable())
	}
	low := int64(0)
	high := int64(n)
	if r.Reg2 != kBadRegister {
		lv := f.getRegister(r.Reg2)
		if lv.IsSmallInt() {
			low = normalizeSliceIndex(lv.SmallInt(), n)
		}
	}
	if r.Reg3 != kBadRegister {
		hv := f.getRegister(r.Reg3)
		if hv.IsSmallInt() {
			high = normalizeSliceIndex(hv.SmallInt(), n)
		}
	}
	if low > high {
		low = high
	}
	result, err := sliceSequence(rt, obj, int(low), int(high))
	if err != nil {
		return asEvalError(err)
	}
	f.setRegister(r.Reg4, result)
	return nil
}

func typeErrorNotSliceable() error {
	return newEvalError(KindRuntimeError, "object is not sliceable")
}

// sliceSequence implements the direct sequence-slice path: used when the
// object exposes sequence-slice (list, tuple, string all do here),
// bypassing a generic slice-object + get_item fallback for exotic
// sequence types.
func sliceSequence(rt *runtime.Runtime, obj runtime.Value, low, high int) (runtime.Value, error) {
	switch {
	case runtime.IsStringValue(obj):
		s := runtime.GetStringContent(obj)
		if low > len(s) {
			low = len(s)
		}
		if high > len(s) {
			high = len(s)
		}
		return runtime.NewString(s[low:high]), nil
	case runtime.IsListValue(obj):
		elems := runtime.ListElems(obj)
		low, high = clampRange(low, high, len(elems))
		out := make([]runtime.Value, high-low)
		copy(out, elems[low:high])
		for _, v := range out {
			runtime.Incref(v)
		}
		return runtime.NewList(out), nil
	case runtime.IsTupleValue(obj):
		elems := runtime.TupleElems(obj)
		low, high = clampRange(low, high, len(elems))
		out := make([]runtime.Value, high-low)
		copy(out, elems[low:high])
		for _, v := range out {
			runtime.Incref(v)
		}
		return runtime.NewTuple(out), nil
	default:
		return runtime.Nil, typeErrorNotSliceable()
	}
}

func clampRange(low, high, n int) (int, int) {
	if low < 0 {
		low = 0
	}
	if high > n {
		high = n
	}
	if low > high {
		low = high
	}
	return low, high
}

// normalizeSliceIndex implements _SliceIndex normalisation:
// negative indices wrap, then clamp into [0, n].
func normalizeSliceIndex(idx int64, n int) int64 {
	if idx < 0 {
		idx += int64(n)
	}
	if idx < 0 {
		idx = 0
	}
	if idx > int64(n) {
		idx = int64(n)
	}
	return idx
}
