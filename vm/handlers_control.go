package vm

import "github.com/chazu/regvm/runtime"

// execBranch decodes and executes a BranchOp instruction. It returns taken
// (whether the cursor was set directly to b.Label) so the caller knows
// whether to additionally advance by branchOpSize itself.
func execBranch(rt *runtime.Runtime, f *Frame, b BranchOp) (taken bool, err error) {
	switch b.Op {
	case OpJumpAbsolute:
		f.cursor = int(b.Label)
		return true, nil

	case OpJumpIfFalseOrPop:
		v := f.getRegister(b.Reg1)
		if !rt.Truthy(v) {
			runtime.Incref(v)
			f.setRegister(b.Reg2, v)
			f.cursor = int(b.Label)
			return true, nil
		}
		return false, nil

	case OpPopJumpIfFalse:
		v := f.getRegister(b.Reg1)
		if !rt.Truthy(v) {
			f.cursor = int(b.Label)
			return true, nil
		}
		return false, nil

	case OpJumpIfTrueOrPop:
		v := f.getRegister(b.Reg1)
		if rt.Truthy(v) {
			runtime.Incref(v)
			f.setRegister(b.Reg2, v)
			f.cursor = int(b.Label)
			return true, nil
		}
		return false, nil

	case OpPopJumpIfTrue:
		v := f.getRegister(b.Reg1)
		if rt.Truthy(v) {
			f.cursor = int(b.Label)
			return true, nil
		}
		return false, nil

	case OpForIter:
		return execForIter(rt, f, b)

	default:
		return false, unsupportedOpError(b.Op)
	}
}

// execForIter implements FOR_ITER: advance the iterator in reg1; on a
// value, store it into reg2 and fall through; on exhaustion, jump to
// b.Label. Using Frame.setRegister for the store applies the
// evaluator's normal "decref previous occupant, then install" discipline.
func execForIter(rt *runtime.Runtime, f *Frame, b BranchOp) (bool, error) {
	iter := f.getRegister(b.Reg1)
	v, ok, err := rt.Next(iter)
	if err != nil {
		return false, asEvalError(err)
	}
	if !ok {
		f.cursor = int(b.Label)
		return true, nil
	}
	f.setRegister(b.Reg2, v)
	return false, nil
}

// execGetIter implements GET_ITER: runtime iter(obj).
func execGetIter(rt *runtime.Runtime, f *Frame, r RegOp) error {
	obj := f.getRegister(r.Reg1)
	it, err := rt.Iter(obj)
	if err != nil {
		return asEvalError(err)
	}
	f.setRegister(r.Reg3, it)
	return nil
}
