package vm

import "github.com/chazu/regvm/runtime"

// intFastAdd/Sub/Mul implement a sign-pattern overflow test:
// "(result^a) < 0 ∧ (result^b) < 0" signals overflow for
// addition/subtraction; multiplication instead widens and range-checks.

func intFastAdd(a, b int64) (int64, bool) {
	r := a + b
	if (r^a) < 0 && (r^b) < 0 {
		return 0, false
	}
	if !runtime.FitsSmallInt(r) {
		return 0, false
	}
	return r, true
}

func intFastSub(a, b int64) (int64, bool) {
	r := a - b
	if (r^a) < 0 && (r^(-b)) < 0 {
		return 0, false
	}
	if !runtime.FitsSmallInt(r) {
		return 0, false
	}
	return r, true
}

func intFastMul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	r := a * b
	if r/b != a {
		return 0, false
	}
	if !runtime.FitsSmallInt(r) {
		return 0, false
	}
	return r, true
}

// arithOp selects one of five operations, so a single handler can serve
// BINARY_ADD/SUBTRACT/MULTIPLY/DIVIDE/MODULO and their INPLACE_
// counterparts; only add/sub/mul have an integer fast path.
type arithOp byte

const (
	arithAdd arithOp = iota
	arithSub
	arithMul
	arithDiv
	arithMod
)

// execIntFastPath attempts the integer specialisation for add/sub/mul: if
// both operands are host small-integers, perform the operation in
// machine-word arithmetic, detect overflow, and on overflow fall through
// to the generic runtime call. Division/modulo have no fast
// path (divisor-zero and INT_MIN/-1 guards live entirely in the runtime).
func execIntFastPath(op arithOp, a, b runtime.Value) (runtime.Value, bool) {
	if !a.IsSmallInt() || !b.IsSmallInt() {
		return runtime.Nil, false
	}
	ai, bi := a.SmallInt(), b.SmallInt()
	var r int64
	var ok bool
	switch op {
	case arithAdd:
		r, ok = intFastAdd(ai, bi)
	case arithSub:
		r, ok = intFastSub(ai, bi)
	case arithMul:
		r, ok = intFastMul(ai, bi)
	default:
		return runtime.Nil, false
	}
	if !ok {
		return runtime.Nil, false
	}
	return runtime.FromSmallInt(r), true
}

func genericBinary(rt *runtime.Runtime, op arithOp, a, b runtime.Value) (runtime.Value, error) {
	switch op {
	case arithAdd:
		return rt.BinaryAdd(a, b)
	case arithSub:
		return rt.BinarySub(a, b)
	case arithMul:
		return rt.BinaryMul(a, b)
	case arithDiv, arithMod:
		if op == arithDiv {
			return rt.BinaryDiv(a, b)
		}
		return rt.BinaryMod(a, b)
	}
	return runtime.Nil, invariantError("unreachable arithOp")
}

// execBinaryArith implements the BINARY_ADD/SUBTRACT/MULTIPLY/DIVIDE/MODULO
// family and their INPLACE_ counterparts: reg1, reg2 are operands, reg3 is
// the destination.
func execBinaryArith(rt *runtime.Runtime, f *Frame, r RegOp, op arithOp) error {
	a := f.getRegister(r.Reg1)
	b := f.getRegister(r.Reg2)

	if op == arithAdd || op == arithSub || op == arithMul {
		if result, ok := execIntFastPath(op, a, b); ok {
			f.setRegister(r.Reg3, result)
			return nil
		}
	}
	result, err := genericBinary(rt, op, a, b)
	if err != nil {
		return asEvalError(err)
	}
	f.setRegister(r.Reg3, result)
	return nil
}

// execBinaryUnspecialised covers BINARY_OR/XOR/AND/RSHIFT/LSHIFT/
// TRUE_DIVIDE/FLOOR_DIVIDE (and inplace): no integer fast path, direct
// runtime call.
func execBinaryUnspecialised(rt *runtime.Runtime, f *Frame, r RegOp, op Opcode) error {
	a := f.getRegister(r.Reg1)
	b := f.getRegister(r.Reg2)
	var result runtime.Value
	var err error
	switch op {
	case OpBinaryOr, OpInplaceOr:
		result, err = rt.BinaryOr(a, b)
	case OpBinaryXor, OpInplaceXor:
		result, err = rt.BinaryXor(a, b)
	case OpBinaryAnd, OpInplaceAnd:
		result, err = rt.BinaryAnd(a, b)
	case OpBinaryRshift, OpInplaceRshift:
		result, err = rt.BinaryRshift(a, b)
	case OpBinaryLshift, OpInplaceLshift:
		result, err = rt.BinaryLshift(a, b)
	case OpBinaryTrueDivide, OpInplaceTrueDivide:
		result, err = rt.BinaryDiv(a, b)
	case OpBinaryFloorDivide, OpInplaceFloorDivide:
		result, err = rt.BinaryFloorDiv(a, b)
	default:
		return unsupportedOpError(op)
	}
	if err != nil {
		return asEvalError(err)
	}
	f.setRegister(r.Reg3, result)
	return nil
}

// execBinaryPower implements BINARY_POWER/INPLACE_POWER: runtime ternary
// power with None modulus. reg1 is the base, reg2 the
// exponent, reg3 the destination; the handler decrefs reg3's prior
// occupant, not reg2's.
func execBinaryPower(rt *runtime.Runtime, f *Frame, r RegOp) error {
	base := f.getRegister(r.Reg1)
	exp := f.getRegister(r.Reg2)
	result, err := rt.BinaryPower(base, exp)
	if err != nil {
		return asEvalError(err)
	}
	f.setRegister(r.Reg3, result) // decrefs reg3's previous occupant, not reg2's
	return nil
}

// execBinarySubscr implements BINARY_SUBSCR: a fast path for (list, int)
// with negative-index wrap and bounds-check; otherwise runtime get_item
//.
func execBinarySubscr(rt *runtime.Runtime, f *Frame, r RegOp) error {
	obj := f.getRegister(r.Reg1)
	key := f.getRegister(r.Reg2)
	if runtime.IsListValue(obj) && key.IsSmallInt() {
		n := runtime.SequenceLen(obj)
		idx := key.SmallInt()
		if idx < 0 {
			idx += int64(n)
		}
		if idx >= 0 && idx < int64(n) {
			v, err := rt.GetItem(obj, runtime.FromSmallInt(idx))
			if err != nil {
				return asEvalError(err)
			}
			f.setRegister(r.Reg3, v)
			return nil
		}
	}
	v, err := rt.GetItem(obj, key)
	if err != nil {
		return asEvalError(err)
	}
	f.setRegister(r.Reg3, v)
	return nil
}

// execCompareOp implements COMPARE_OP: arg selects LT/LE/EQ/NE/GT/GE/IS/
// IS_NOT. IS/IS_NOT are identity tests handled here, never delegated to
// the runtime. Every other operator goes to rt.Compare; this handler has
// no separate (int,int) or (float,float) fast path.
func execCompareOp(rt *runtime.Runtime, f *Frame, r RegOp) error {
	a := f.getRegister(r.Reg1)
	b := f.getRegister(r.Reg2)
	switch r.Arg {
	case uint16(cmpIs):
		f.setRegister(r.Reg3, boolOf(a == b))
		return nil
	case uint16(cmpIsNot):
		f.setRegister(r.Reg3, boolOf(a != b))
		return nil
	}
	result, err := rt.Compare(runtime.CompareOp(r.Arg), a, b)
	if err != nil {
		return asEvalError(err)
	}
	f.setRegister(r.Reg3, result)
	return nil
}

// compareExtra extends runtime.CompareOp's LT..GE range with the two
// identity operators COMPARE_OP also encodes: {LT, LE, EQ, NE, GT, GE,
// IS, IS_NOT}.
type compareExtra byte

const (
	cmpIs compareExtra = iota + 6
	cmpIsNot
)

func boolOf(b bool) runtime.Value {
	if b {
		return runtime.True
	}
	return runtime.False
}

// execUnary implements UNARY_NEGATIVE (runtime call), UNARY_POSITIVE (copies
// the operand) and UNARY_NOT (truthiness test). UNARY_INVERT and
// UNARY_CONVERT raise UnsupportedFeature.
func execUnary(rt *runtime.Runtime, f *Frame, r RegOp, op Opcode) error {
	v := f.getRegister(r.Reg1)
	switch op {
	case OpUnaryNegative:
		result, err := rt.UnaryNeg(v)
		if err != nil {
			return asEvalError(err)
		}
		f.setRegister(r.Reg3, result)
	case OpUnaryPositive:
		runtime.Incref(v)
		f.setRegister(r.Reg3, v)
	case OpUnaryNot:
		f.setRegister(r.Reg3, rt.UnaryNot(v))
	case OpUnaryInvert, OpUnaryConvert:
		return unsupportedOpError(op)
	default:
		return invariantError("unreachable unary op")
	}
	return nil
}

// execIncref/execDecref implement the INCREF/DECREF instructions the
// compiler emits where liveness analysis cannot be expressed in the
// register-write discipline.
func execIncref(f *Frame, r RegOp) error {
	runtime.Incref(f.getRegister(r.Reg1))
	return nil
}

func execDecref(f *Frame, r RegOp) error {
	f.clearRegister(r.Reg1)
	return nil
}
