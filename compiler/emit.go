package compiler

import "github.com/chazu/regvm/vm"

// binaryOpcode maps the arithmetic/comparison/subscript StackOps onto their
// register-form opcode, for the uniform two-operand "a, b -> dest" shape
// emit shares across that whole family.
var binaryOpcode = map[StackOp]vm.Opcode{
	SBinaryAdd:      vm.OpBinaryAdd,
	SBinarySubtract: vm.OpBinarySubtract,
	SBinaryMultiply: vm.OpBinaryMultiply,
	SBinaryDivide:   vm.OpBinaryDivide,
	SBinaryModulo:   vm.OpBinaryModulo,
	SBinaryPower:    vm.OpBinaryPower,
	SBinarySubscr:   vm.OpBinarySubscr,
}

// compareArg maps the SCompare* family onto the COMPARE_OP instruction's
// 16-bit arg, matching runtime.CompareOp's LT..GE ordering.
var compareArg = map[StackOp]uint16{
	SCompareLT: 0,
	SCompareLE: 1,
	SCompareEQ: 2,
	SCompareNE: 3,
	SCompareGT: 4,
	SCompareGE: 5,
}

// regAt returns the register backing the simulated operand stack at depth.
func (t *translator) regAt(depth int) uint8 {
	return t.stackBase + uint8(depth)
}

func (t *translator) argReg(localIdx int) uint8 {
	return t.argBase + uint8(localIdx)
}

// emit translates one source instruction at the given pre-instruction stack
// depth, returning the depth after. index is this instruction's position in
// prog.Instrs, used only for the internal offset sanity check in translate.
func (t *translator) emit(instr sourceInstr, depth int, index int) (int, error) {
	switch instr.Op {
	case SPushConst:
		dst := t.regAt(depth)
		t.builder.EmitReg(vm.OpLoadFast, 0, uint8(instr.Operand), 0, dst, 0)
		return depth + 1, nil

	case SLoadName:
		dst := t.regAt(depth)
		t.builder.EmitReg(vm.OpLoadName, uint16(instr.Operand), 0, 0, dst, 0)
		return depth + 1, nil

	case SStoreName:
		src := t.regAt(depth - 1)
		t.builder.EmitReg(vm.OpStoreName, uint16(instr.Operand), src, 0, 0, 0)
		return depth - 1, nil

	case SLoadFast:
		dst := t.regAt(depth)
		t.builder.EmitReg(vm.OpLoadFast, 0, t.argReg(instr.Operand), 0, dst, 0)
		return depth + 1, nil

	case SStoreFast:
		src := t.regAt(depth - 1)
		t.builder.EmitReg(vm.OpStoreFast, 0, src, 0, t.argReg(instr.Operand), 0)
		return depth - 1, nil

	case SBinaryAdd, SBinarySubtract, SBinaryMultiply, SBinaryDivide, SBinaryModulo,
		SBinaryPower, SBinarySubscr:
		a, b, dst := t.regAt(depth-2), t.regAt(depth-1), t.regAt(depth-2)
		t.builder.EmitReg(binaryOpcode[instr.Op], 0, a, b, dst, 0)
		return depth - 1, nil

	case SCompareLT, SCompareLE, SCompareEQ, SCompareNE, SCompareGT, SCompareGE:
		a, b, dst := t.regAt(depth-2), t.regAt(depth-1), t.regAt(depth-2)
		t.builder.EmitReg(vm.OpCompareOp, compareArg[instr.Op], a, b, dst, 0)
		return depth - 1, nil

	case SUnaryNegative:
		src := t.regAt(depth - 1)
		t.builder.EmitReg(vm.OpUnaryNegative, 0, src, 0, src, 0)
		return depth, nil

	case SUnaryNot:
		src := t.regAt(depth - 1)
		t.builder.EmitReg(vm.OpUnaryNot, 0, src, 0, src, 0)
		return depth, nil

	case SGetIter:
		src := t.regAt(depth - 1)
		t.builder.EmitReg(vm.OpGetIter, 0, src, 0, src, 0)
		return depth, nil

	case SForIter:
		iterReg := t.regAt(depth - 1)
		valReg := t.regAt(depth)
		t.builder.EmitBranch(vm.OpForIter, iterReg, valReg, t.offsets[instr.Operand])
		return depth + 1, nil

	case SJumpAbsolute:
		t.builder.EmitBranch(vm.OpJumpAbsolute, 0, 0, t.offsets[instr.Operand])
		return depth, nil

	case SPopJumpIfFalse:
		cond := t.regAt(depth - 1)
		t.builder.EmitBranch(vm.OpPopJumpIfFalse, cond, 0, t.offsets[instr.Operand])
		return depth - 1, nil

	case SPopJumpIfTrue:
		cond := t.regAt(depth - 1)
		t.builder.EmitBranch(vm.OpPopJumpIfTrue, cond, 0, t.offsets[instr.Operand])
		return depth - 1, nil

	case SBuildTuple, SBuildList:
		n := instr.Operand
		regs := make([]uint8, n+1)
		for i := 0; i < n; i++ {
			regs[i] = t.regAt(depth - n + i)
		}
		dest := t.regAt(depth - n)
		regs[n] = dest
		op := vm.OpBuildTuple
		if instr.Op == SBuildList {
			op = vm.OpBuildList
		}
		t.builder.EmitVar(op, 0, regs)
		return depth - n + 1, nil

	case SListAppend:
		list, elem := t.regAt(depth-2), t.regAt(depth-1)
		t.builder.EmitReg(vm.OpListAppend, 0, list, elem, 0, 0)
		return depth - 1, nil

	case SStoreSubscr:
		obj, key, value := t.regAt(depth-3), t.regAt(depth-2), t.regAt(depth-1)
		t.builder.EmitReg(vm.OpStoreSubscr, 0, obj, key, value, 0)
		return depth - 3, nil

	case SLoadAttr:
		obj := t.regAt(depth - 1)
		t.builder.EmitReg(vm.OpLoadAttr, uint16(instr.Operand), obj, 0, obj, 0)
		return depth, nil

	case SStoreAttr:
		obj, value := t.regAt(depth-2), t.regAt(depth-1)
		t.builder.EmitReg(vm.OpStoreAttr, uint16(instr.Operand), obj, value, 0, 0)
		return depth - 2, nil

	case SPrintItem:
		item := t.regAt(depth - 1)
		t.builder.EmitReg(vm.OpPrintItem, 0, item, 0, 0, 0)
		return depth - 1, nil

	case SPrintNewline:
		t.builder.EmitReg(vm.OpPrintNewline, 0, 0, 0, 0, 0)
		return depth, nil

	case SCallFunction:
		na := instr.Operand
		calleeReg := t.regAt(depth - na - 1)
		destReg := calleeReg
		regs := make([]uint8, na+2)
		for i := 0; i < na; i++ {
			regs[i] = t.regAt(depth - na + i)
		}
		regs[na] = calleeReg
		regs[na+1] = destReg
		t.builder.EmitVar(vm.OpCallFunction, uint16(na), regs)
		return depth - na, nil

	case SReturnValue:
		val := t.regAt(depth - 1)
		t.builder.EmitReg(vm.OpReturnValue, 0, val, 0, 0, 0)
		return depth - 1, nil

	case SPop:
		t.builder.EmitReg(vm.OpDecref, 0, t.regAt(depth-1), 0, 0, 0)
		return depth - 1, nil

	default:
		return depth, unsupportedSourceOp(instr.Op)
	}
}
