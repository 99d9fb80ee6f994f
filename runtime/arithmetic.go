package runtime

import "math"

// CompareOp enumerates the COMPARE_OP opcode's sub-operation.
type CompareOp byte

const (
	CmpLT CompareOp = iota
	CmpLE
	CmpEQ
	CmpNE
	CmpGT
	CmpGE
)

// Truthy implements Python-style truthiness for the values this runtime
// knows about, backing UNARY_NOT and every branch opcode's condition test.
func (rt *Runtime) Truthy(v Value) bool {
	switch {
	case v == Nil:
		return false
	case v == False:
		return false
	case v == True:
		return true
	case v.IsSmallInt():
		return v.SmallInt() != 0
	case v.IsFloat():
		return v.Float64() != 0
	}
	obj := ObjectFromValue(v)
	if obj == nil {
		return true
	}
	switch obj.kind {
	case KindString:
		return len(obj.str) != 0
	case KindTuple, KindList:
		return len(obj.elems) != 0
	case KindDict:
		return obj.dict != nil && len(obj.dict.entries) != 0
	default:
		return true
	}
}

func asFloat(v Value) (float64, bool) {
	switch {
	case v.IsSmallInt():
		return float64(v.SmallInt()), true
	case v.IsFloat():
		return v.Float64(), true
	}
	return 0, false
}

// BinaryAdd is the slow-path fallback for BINARY_ADD: the evaluator's
// integer fast path handles the small-int/small-int case
// with inline overflow detection before ever reaching here. This path
// additionally covers float arithmetic and string/list/tuple concatenation.
func (rt *Runtime) BinaryAdd(a, b Value) (Value, error) {
	if a.IsSmallInt() && b.IsSmallInt() {
		if s := a.SmallInt() + b.SmallInt(); FitsSmallInt(s) {
			return FromSmallInt(s), nil
		}
	}
	if IsStringValue(a) && IsStringValue(b) {
		return NewString(GetStringContent(a) + GetStringContent(b)), nil
	}
	if oa, ob := ObjectFromValue(a), ObjectFromValue(b); oa != nil && ob != nil {
		if oa.kind == KindList && ob.kind == KindList {
			out := make([]Value, 0, len(oa.elems)+len(ob.elems))
			out = append(out, oa.elems...)
			out = append(out, ob.elems...)
			for _, v := range out {
				Incref(v)
			}
			return NewList(out), nil
		}
		if oa.kind == KindTuple && ob.kind == KindTuple {
			out := make([]Value, 0, len(oa.elems)+len(ob.elems))
			out = append(out, oa.elems...)
			out = append(out, ob.elems...)
			for _, v := range out {
				Incref(v)
			}
			return NewTuple(out), nil
		}
	}
	fa, ok1 := asFloat(a)
	fb, ok2 := asFloat(b)
	if ok1 && ok2 {
		return FromFloat64(fa + fb), nil
	}
	return Nil, typeError("unsupported operand type(s) for +")
}

func (rt *Runtime) BinarySub(a, b Value) (Value, error) {
	if a.IsSmallInt() && b.IsSmallInt() {
		if d := a.SmallInt() - b.SmallInt(); FitsSmallInt(d) {
			return FromSmallInt(d), nil
		}
	}
	fa, ok1 := asFloat(a)
	fb, ok2 := asFloat(b)
	if ok1 && ok2 {
		return FromFloat64(fa - fb), nil
	}
	return Nil, typeError("unsupported operand type(s) for -")
}

func (rt *Runtime) BinaryMul(a, b Value) (Value, error) {
	if IsStringValue(a) && b.IsSmallInt() {
		return repeatString(GetStringContent(a), b.SmallInt()), nil
	}
	if IsStringValue(b) && a.IsSmallInt() {
		return repeatString(GetStringContent(b), a.SmallInt()), nil
	}
	if a.IsSmallInt() && b.IsSmallInt() {
		x, y := a.SmallInt(), b.SmallInt()
		if p := x * y; (x == 0 || p/x == y) && FitsSmallInt(p) {
			return FromSmallInt(p), nil
		}
	}
	fa, ok1 := asFloat(a)
	fb, ok2 := asFloat(b)
	if ok1 && ok2 {
		return FromFloat64(fa * fb), nil
	}
	return Nil, typeError("unsupported operand type(s) for *")
}

func repeatString(s string, n int64) Value {
	if n <= 0 {
		return NewString("")
	}
	out := make([]byte, 0, int64(len(s))*n)
	for i := int64(0); i < n; i++ {
		out = append(out, s...)
	}
	return NewString(string(out))
}

// BinaryDiv implements BINARY_DIVIDE/INPLACE_DIVIDE. Like Add/Sub/Mul/Mod,
// two small ints stay integral rather than promoting to float; only a
// mixed or non-integer operand pair falls through to float division.
func (rt *Runtime) BinaryDiv(a, b Value) (Value, error) {
	if a.IsSmallInt() && b.IsSmallInt() {
		divisor := b.SmallInt()
		if divisor == 0 {
			return Nil, zeroDivisionError("integer division")
		}
		q := a.SmallInt() / divisor
		if (a.SmallInt()%divisor != 0) && ((a.SmallInt() < 0) != (divisor < 0)) {
			q--
		}
		if FitsSmallInt(q) {
			return FromSmallInt(q), nil
		}
		return FromFloat64(float64(a.SmallInt()) / float64(divisor)), nil
	}
	fa, ok1 := asFloat(a)
	fb, ok2 := asFloat(b)
	if !ok1 || !ok2 {
		return Nil, typeError("unsupported operand type(s) for /")
	}
	if fb == 0 {
		return Nil, zeroDivisionError("float division")
	}
	return FromFloat64(fa / fb), nil
}

// BinaryOr/Xor/And/Lshift/Rshift back the unspecialised bitwise opcode
// family: these only ever apply to integers, so unlike
// Add/Sub/Mul there is no float fallback.
func (rt *Runtime) BinaryOr(a, b Value) (Value, error) {
	if !a.IsSmallInt() || !b.IsSmallInt() {
		return Nil, typeError("unsupported operand type(s) for |")
	}
	return FromSmallInt(a.SmallInt() | b.SmallInt()), nil
}

func (rt *Runtime) BinaryXor(a, b Value) (Value, error) {
	if !a.IsSmallInt() || !b.IsSmallInt() {
		return Nil, typeError("unsupported operand type(s) for ^")
	}
	return FromSmallInt(a.SmallInt() ^ b.SmallInt()), nil
}

func (rt *Runtime) BinaryAnd(a, b Value) (Value, error) {
	if !a.IsSmallInt() || !b.IsSmallInt() {
		return Nil, typeError("unsupported operand type(s) for &")
	}
	return FromSmallInt(a.SmallInt() & b.SmallInt()), nil
}

func (rt *Runtime) BinaryLshift(a, b Value) (Value, error) {
	if !a.IsSmallInt() || !b.IsSmallInt() {
		return Nil, typeError("unsupported operand type(s) for <<")
	}
	if b.SmallInt() < 0 {
		return Nil, valueError("negative shift count")
	}
	return FromSmallInt(a.SmallInt() << uint(b.SmallInt())), nil
}

func (rt *Runtime) BinaryRshift(a, b Value) (Value, error) {
	if !a.IsSmallInt() || !b.IsSmallInt() {
		return Nil, typeError("unsupported operand type(s) for >>")
	}
	if b.SmallInt() < 0 {
		return Nil, valueError("negative shift count")
	}
	return FromSmallInt(a.SmallInt() >> uint(b.SmallInt())), nil
}

// BinaryFloorDiv implements BINARY_FLOOR_DIVIDE/INPLACE_FLOOR_DIVIDE:
// integer division truncates toward negative infinity (Python semantics),
// float division floors the quotient.
func (rt *Runtime) BinaryFloorDiv(a, b Value) (Value, error) {
	if a.IsSmallInt() && b.IsSmallInt() {
		divisor := b.SmallInt()
		if divisor == 0 {
			return Nil, zeroDivisionError("integer division")
		}
		q := a.SmallInt() / divisor
		if (a.SmallInt()%divisor != 0) && ((a.SmallInt() < 0) != (divisor < 0)) {
			q--
		}
		if FitsSmallInt(q) {
			return FromSmallInt(q), nil
		}
		return FromFloat64(math.Floor(float64(a.SmallInt()) / float64(divisor))), nil
	}
	fa, ok1 := asFloat(a)
	fb, ok2 := asFloat(b)
	if !ok1 || !ok2 {
		return Nil, typeError("unsupported operand type(s) for //")
	}
	if fb == 0 {
		return Nil, zeroDivisionError("float floor division")
	}
	return FromFloat64(math.Floor(fa / fb)), nil
}

func (rt *Runtime) BinaryMod(a, b Value) (Value, error) {
	if a.IsSmallInt() && b.IsSmallInt() {
		divisor := b.SmallInt()
		if divisor == 0 {
			return Nil, zeroDivisionError("integer modulo")
		}
		m := a.SmallInt() % divisor
		if m != 0 && (m < 0) != (divisor < 0) {
			m += divisor
		}
		return FromSmallInt(m), nil
	}
	fa, ok1 := asFloat(a)
	fb, ok2 := asFloat(b)
	if !ok1 || !ok2 {
		return Nil, typeError("unsupported operand type(s) for %")
	}
	if fb == 0 {
		return Nil, zeroDivisionError("float modulo")
	}
	return FromFloat64(math.Mod(fa, fb)), nil
}

// BinaryPower is the slow path behind BINARY_POWER/INPLACE_POWER. The
// evaluator's own handler decrefs reg_3 (the destination), not reg_2, after
// the call.
func (rt *Runtime) BinaryPower(base, exp Value) (Value, error) {
	fa, ok1 := asFloat(base)
	fb, ok2 := asFloat(exp)
	if !ok1 || !ok2 {
		return Nil, typeError("unsupported operand type(s) for **")
	}
	if base.IsSmallInt() && exp.IsSmallInt() && exp.SmallInt() >= 0 {
		result := math.Pow(fa, fb)
		if iv := int64(result); float64(iv) == result && FitsSmallInt(iv) {
			return FromSmallInt(iv), nil
		}
	}
	return FromFloat64(math.Pow(fa, fb)), nil
}

func (rt *Runtime) UnaryNeg(v Value) (Value, error) {
	if v.IsSmallInt() {
		n := v.SmallInt()
		if FitsSmallInt(-n) {
			return FromSmallInt(-n), nil
		}
		return FromFloat64(-float64(n)), nil
	}
	if v.IsFloat() {
		return FromFloat64(-v.Float64()), nil
	}
	return Nil, typeError("bad operand type for unary -")
}

func (rt *Runtime) UnaryNot(v Value) Value {
	if rt.Truthy(v) {
		return False
	}
	return True
}

// Compare implements COMPARE_OP for the value kinds the runtime models.
func (rt *Runtime) Compare(op CompareOp, a, b Value) (Value, error) {
	if eq, ok := rt.tryEquality(a, b); ok && (op == CmpEQ || op == CmpNE) {
		if op == CmpEQ {
			return boolValue(eq), nil
		}
		return boolValue(!eq), nil
	}
	fa, ok1 := asFloat(a)
	fb, ok2 := asFloat(b)
	if ok1 && ok2 {
		return boolValue(compareFloats(op, fa, fb)), nil
	}
	if IsStringValue(a) && IsStringValue(b) {
		return boolValue(compareStrings(op, GetStringContent(a), GetStringContent(b))), nil
	}
	return Nil, typeError("unorderable types in comparison")
}

func (rt *Runtime) tryEquality(a, b Value) (eq bool, ok bool) {
	if a == b {
		return true, true
	}
	fa, ok1 := asFloat(a)
	fb, ok2 := asFloat(b)
	if ok1 && ok2 {
		return fa == fb, true
	}
	if IsStringValue(a) && IsStringValue(b) {
		return GetStringContent(a) == GetStringContent(b), true
	}
	return false, false
}

func compareFloats(op CompareOp, a, b float64) bool {
	switch op {
	case CmpLT:
		return a < b
	case CmpLE:
		return a <= b
	case CmpEQ:
		return a == b
	case CmpNE:
		return a != b
	case CmpGT:
		return a > b
	case CmpGE:
		return a >= b
	}
	return false
}

func compareStrings(op CompareOp, a, b string) bool {
	switch op {
	case CmpLT:
		return a < b
	case CmpLE:
		return a <= b
	case CmpEQ:
		return a == b
	case CmpNE:
		return a != b
	case CmpGT:
		return a > b
	case CmpGE:
		return a >= b
	}
	return false
}

func boolValue(b bool) Value {
	if b {
		return True
	}
	return False
}
