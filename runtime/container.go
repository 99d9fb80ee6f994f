package runtime

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Strings
// ---------------------------------------------------------------------------

// NewString constructs a string Value. Strings are immutable once built, so
// at:put:-style mutation (the evaluator's STORE_SUBSCR on a string) is
// rejected rather than silently ignored.
func NewString(s string) Value {
	obj := newObject(KindString)
	obj.str = s
	return obj.ToValue()
}

func IsStringValue(v Value) bool {
	obj := ObjectFromValue(v)
	return obj != nil && obj.kind == KindString
}

func GetStringContent(v Value) string {
	obj := ObjectFromValue(v)
	if obj == nil || obj.kind != KindString {
		return ""
	}
	return obj.str
}

// ---------------------------------------------------------------------------
// Tuple / List
// ---------------------------------------------------------------------------

// NewTuple and NewList take ownership of elems: each element's reference is
// moved into the container, not additionally increfed.
func NewTuple(elems []Value) Value {
	obj := newObject(KindTuple)
	obj.elems = elems
	return obj.ToValue()
}

func NewList(elems []Value) Value {
	obj := newObject(KindList)
	obj.elems = elems
	return obj.ToValue()
}

func IsListValue(v Value) bool {
	obj := ObjectFromValue(v)
	return obj != nil && obj.kind == KindList
}

func IsTupleValue(v Value) bool {
	obj := ObjectFromValue(v)
	return obj != nil && obj.kind == KindTuple
}

// ListElems exposes a list's backing element slice read-only, for the
// evaluator's slice/iteration fast paths.
func ListElems(v Value) []Value {
	obj := ObjectFromValue(v)
	if obj == nil {
		return nil
	}
	return obj.elems
}

// TupleElems exposes a tuple's backing element slice for in-place mutation.
// It exists solely to support the evaluator's call_args tuple-reuse
// optimization: the evaluator overwrites elements directly
// rather than allocating a fresh tuple on every call when arity matches.
func TupleElems(v Value) []Value {
	obj := ObjectFromValue(v)
	if obj == nil {
		return nil
	}
	return obj.elems
}

func IsSequence(v Value) bool {
	obj := ObjectFromValue(v)
	return obj != nil && (obj.kind == KindList || obj.kind == KindTuple || obj.kind == KindString)
}

// SequenceLen returns the length of a list/tuple/string, or -1 if v is none
// of those.
func SequenceLen(v Value) int {
	obj := ObjectFromValue(v)
	if obj == nil {
		return -1
	}
	switch obj.kind {
	case KindList, KindTuple:
		return len(obj.elems)
	case KindString:
		return len(obj.str)
	}
	return -1
}

// ListAppend implements the LIST_APPEND opcode's runtime call. The new
// element's reference is moved into the list.
func (rt *Runtime) ListAppend(list, elem Value) error {
	obj := ObjectFromValue(list)
	if obj == nil || obj.kind != KindList {
		return typeError("append target is not a list")
	}
	obj.elems = append(obj.elems, elem)
	return nil
}

// GetItem implements the generic get_item(obj, key) capability used by the
// BINARY_SUBSCR / CONST_INDEX slow paths and by SLICE when the fast path
// does not apply.
func (rt *Runtime) GetItem(obj, key Value) (Value, error) {
	o := ObjectFromValue(obj)
	if o == nil {
		return Nil, typeError("object is not subscriptable")
	}
	switch o.kind {
	case KindList, KindTuple:
		if !key.IsSmallInt() {
			return Nil, typeError("list indices must be integers")
		}
		idx, err := normalizeIndex(key.SmallInt(), len(o.elems))
		if err != nil {
			return Nil, err
		}
		v := o.elems[idx]
		Incref(v)
		return v, nil
	case KindString:
		if !key.IsSmallInt() {
			return Nil, typeError("string indices must be integers")
		}
		idx, err := normalizeIndex(key.SmallInt(), len(o.str))
		if err != nil {
			return Nil, err
		}
		return FromSmallInt(int64(o.str[idx])), nil
	case KindDict:
		hk, ok := hashKey(key)
		if !ok {
			return Nil, typeError("unhashable dict key")
		}
		if o.dict == nil {
			return Nil, keyError(key)
		}
		e, found := o.dict.entries[hk]
		if !found {
			return Nil, keyError(key)
		}
		Incref(e.value)
		return e.value, nil
	default:
		return Nil, typeError("object is not subscriptable")
	}
}

// SetItem implements set_item(obj, key, value). The value's reference is
// moved into the container on success.
func (rt *Runtime) SetItem(obj, key, value Value) error {
	o := ObjectFromValue(obj)
	if o == nil {
		return typeError("object does not support item assignment")
	}
	switch o.kind {
	case KindList:
		if !key.IsSmallInt() {
			return typeError("list indices must be integers")
		}
		idx, err := normalizeIndex(key.SmallInt(), len(o.elems))
		if err != nil {
			return err
		}
		Decref(o.elems[idx])
		o.elems[idx] = value
		return nil
	case KindDict:
		return DictSet(obj, key, value)
	default:
		return typeError("object does not support item assignment")
	}
}

// DictSet installs key -> value into a dict Value directly, without going
// through a Runtime receiver. It exists so evaluator code that builds
// locals()-style snapshot dicts (which has no natural Runtime handle at
// that call site) can populate them.
func DictSet(dict, key, value Value) error {
	o := ObjectFromValue(dict)
	if o == nil || o.kind != KindDict {
		return typeError("object does not support item assignment")
	}
	hk, ok := hashKey(key)
	if !ok {
		return typeError("unhashable dict key")
	}
	if o.dict == nil {
		o.dict = &dictData{entries: make(map[string]dictEntry)}
	}
	if old, found := o.dict.entries[hk]; found {
		Decref(old.key)
		Decref(old.value)
	} else {
		Incref(key)
	}
	o.dict.entries[hk] = dictEntry{key: key, value: value}
	return nil
}

// GetAttr implements get_attr(obj, name). The reference runtime supports
// attribute access only on dict-like namespace objects and strings'
// zero-argument methods are intentionally not modeled (out of the
// evaluator's scope); anything else is an AttributeError.
func (rt *Runtime) GetAttr(obj Value, name string) (Value, error) {
	o := ObjectFromValue(obj)
	if o != nil && o.kind == KindDict {
		v, err := rt.GetItem(obj, NewTransientString(name))
		if err != nil {
			return Nil, attributeError(name)
		}
		return v, nil
	}
	return Nil, attributeError(name)
}

// SetAttr implements set_attr(obj, name, value) as `SetAttr(obj_reg,
// names[arg], value_reg)`.
func (rt *Runtime) SetAttr(obj Value, name string, value Value) error {
	o := ObjectFromValue(obj)
	if o != nil && o.kind == KindDict {
		key := NewString(name)
		err := rt.SetItem(obj, key, value)
		Decref(key)
		return err
	}
	return attributeError(name)
}

// NewTransientString builds a string Value for use as a throwaway dict key
// lookup; callers that need to retain it must Incref explicitly.
func NewTransientString(s string) Value {
	return NewString(s)
}

// NewDict constructs an empty dictionary Value.
func NewDict() Value {
	obj := newObject(KindDict)
	obj.dict = &dictData{entries: make(map[string]dictEntry)}
	return obj.ToValue()
}

func IsDictionaryValue(v Value) bool {
	obj := ObjectFromValue(v)
	return obj != nil && obj.kind == KindDict
}

// hashKey derives a content hash for use as a Go map key. Lists/dicts are
// unhashable, matching Python semantics.
func hashKey(v Value) (string, bool) {
	switch {
	case v.IsSmallInt():
		return "i" + strconv.FormatInt(v.SmallInt(), 10), true
	case v.IsFloat():
		return "f" + strconv.FormatFloat(v.Float64(), 'g', -1, 64), true
	case v.IsSymbol():
		return "y" + strconv.FormatUint(uint64(v.SymbolID()), 10), true
	case v == Nil:
		return "n", true
	case v == True:
		return "bT", true
	case v == False:
		return "bF", true
	case IsStringValue(v):
		return "s" + GetStringContent(v), true
	case IsTupleValue(v):
		var b strings.Builder
		b.WriteByte('t')
		obj := ObjectFromValue(v)
		for _, e := range obj.elems {
			k, ok := hashKey(e)
			if !ok {
				return "", false
			}
			b.WriteString(k)
			b.WriteByte(0)
		}
		return b.String(), true
	default:
		return "", false
	}
}

func normalizeIndex(idx int64, length int) (int, error) {
	if idx < 0 {
		idx += int64(length)
	}
	if idx < 0 || idx >= int64(length) {
		return 0, indexError(fmt.Sprintf("index %d out of range", idx))
	}
	return int(idx), nil
}
