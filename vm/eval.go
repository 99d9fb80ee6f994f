// Package vm implements the register-machine evaluator: instruction
// decode, the register file and frame, per-opcode operation handlers, the
// dispatch loop, and the call protocol that re-enters the evaluator for
// in-language callees while delegating to the host runtime for everything
// else.
package vm

import (
	"time"

	"github.com/chazu/regvm/runtime"
)

// activeProfiler, when non-nil and enabled, records per-opcode execution
// counts and cumulative dispatch time. SetProfiler is called
// once by cmd/regeval when instrumentation is requested.
var activeProfiler *Profiler

func SetProfiler(p *Profiler) { activeProfiler = p }

// Eval is the evaluator's public entry point: eval(callable, args_tuple)
// -> Value | error. It acquires the host GIL for its entire
// execution and releases it on every exit path.
func Eval(rt *runtime.Runtime, callable runtime.Value, args []runtime.Value) (runtime.Value, error) {
	return rt.Do(func() (runtime.Value, error) {
		fnValue := callable
		if runtime.IsMethod(callable) {
			fnValue = runtime.MethodFunction(callable)
		}
		if fv := runtime.FunctionFromValue(fnValue); fv != nil {
			if _, err := compileIfNeeded(fv); err != nil {
				return runtime.Nil, asEvalError(err)
			}
		}
		frame, err := frameFromCallable(rt, callable, args)
		if err != nil {
			return runtime.Nil, asEvalError(err)
		}
		defer frame.Release()
		return runFrame(rt, frame)
	})
}

// runFrame is the threaded dispatch loop. This implementation uses a
// portable central loop switching on the opcode byte, slower but portable
// compared to computed-goto threading: each
// iteration decodes one instruction and dispatches to its handler, which
// either mutates the frame and falls through to the next iteration, or
// (RETURN_VALUE, an error) unwinds the loop.
func runFrame(rt *runtime.Runtime, f *Frame) (runtime.Value, error) {
	instr := f.code.Instructions
	limit := rt.InstructionLimit()
	var executed int64

	for {
		executed++
		if executed > limit {
			return runtime.Nil, newEvalError(KindRuntimeLimitExceeded, "infinite loop")
		}

		op := Opcode(instr[f.cursor])
		if isUnsupported(op) {
			return runtime.Nil, unsupportedOpError(op)
		}

		var start time.Time
		if activeProfiler.Enabled() {
			start = time.Now()
		}

		switch variantOf(op) {
		case VariantBranchOp:
			b := decodeBranchOp(instr, f.cursor)
			taken, err := execBranch(rt, f, b)
			if err != nil {
				return runtime.Nil, err
			}
			if !taken {
				f.cursor += branchOpSize
			}

		case VariantVarRegOp:
			v := decodeVarRegOp(instr, f.cursor)
			next := f.cursor + size(instr, f.cursor)
			var err error
			switch v.Op {
			case OpCallFunction:
				err = execCallFunction(rt, f, v)
			case OpBuildTuple:
				err = execBuildTuple(f, v)
			case OpBuildList:
				err = execBuildList(f, v)
			default:
				err = unsupportedOpError(v.Op)
			}
			if err != nil {
				return runtime.Nil, err
			}
			f.cursor = next

		default:
			r := decodeRegOp(instr, f.cursor)
			if r.Op == OpReturnValue {
				val := f.getRegister(r.Reg1)
				runtime.Incref(val)
				return val, nil
			}
			if err := execRegOp(rt, f, r); err != nil {
				return runtime.Nil, err
			}
			f.cursor += regOpSize
		}

		if activeProfiler.Enabled() {
			activeProfiler.record(op, time.Since(start))
		}
	}
}

// execRegOp dispatches a fixed-operand instruction to its handler
//.
func execRegOp(rt *runtime.Runtime, f *Frame, r RegOp) error {
	switch r.Op {
	case OpBinaryAdd, OpInplaceAdd:
		return execBinaryArith(rt, f, r, arithAdd)
	case OpBinarySubtract, OpInplaceSubtract:
		return execBinaryArith(rt, f, r, arithSub)
	case OpBinaryMultiply, OpInplaceMultiply:
		return execBinaryArith(rt, f, r, arithMul)
	case OpBinaryDivide, OpInplaceDivide:
		return execBinaryArith(rt, f, r, arithDiv)
	case OpBinaryModulo, OpInplaceModulo:
		return execBinaryArith(rt, f, r, arithMod)

	case OpBinaryOr, OpBinaryXor, OpBinaryAnd, OpBinaryRshift, OpBinaryLshift,
		OpBinaryTrueDivide, OpBinaryFloorDivide,
		OpInplaceOr, OpInplaceXor, OpInplaceAnd, OpInplaceRshift, OpInplaceLshift,
		OpInplaceTrueDivide, OpInplaceFloorDivide:
		return execBinaryUnspecialised(rt, f, r, r.Op)

	case OpBinaryPower, OpInplacePower:
		return execBinaryPower(rt, f, r)

	case OpBinarySubscr:
		return execBinarySubscr(rt, f, r)

	case OpCompareOp:
		return execCompareOp(rt, f, r)

	case OpUnaryNegative, OpUnaryPositive, OpUnaryInvert, OpUnaryConvert, OpUnaryNot:
		return execUnary(rt, f, r, r.Op)

	case OpIncref:
		return execIncref(f, r)
	case OpDecref:
		return execDecref(f, r)

	case OpLoadGlobal:
		return execLoadGlobal(rt, f, r)
	case OpLoadName:
		return execLoadName(rt, f, r)
	case OpLoadFast:
		return execLoadFast(f, r)
	case OpLoadLocals:
		return execLoadLocals(f, r)
	case OpStoreName:
		return execStoreName(f, r)
	case OpStoreFast:
		return execStoreFast(f, r)
	case OpStoreAttr:
		return execStoreAttr(rt, f, r)
	case OpStoreSubscr:
		return execStoreSubscr(rt, f, r)
	case OpLoadAttr:
		return execLoadAttr(rt, f, r)
	case OpConstIndex:
		return execConstIndex(rt, f, r)

	case OpGetIter:
		return execGetIter(rt, f, r)

	case OpPrintItem, OpPrintNewline, OpPrintItemTo, OpPrintNewlineTo:
		return execPrint(rt, f, r, r.Op)

	case OpListAppend:
		return execListAppend(rt, f, r)

	case OpSlice:
		return execSlice(rt, f, r)

	default:
		return invariantError("BADCODE: unmapped opcode " + r.Op.String())
	}
}
