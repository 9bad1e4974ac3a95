package vm

import "fmt"

// stackEffect returns how many words in pops and pushes from the operand
// stack.
func (in *Instruction) stackEffect() (pop, push int, err error) {
	switch in.Op {
	case OpNop, OpIinc, OpGoto, OpReturn:
		return 0, 0, nil
	case OpIneg, OpI2c, OpNewarray, OpAnewarray, OpArraylength, OpCheckcast, OpInstanceof:
		return 1, 1, nil
	case OpSwap, OpDneg:
		return 2, 2, nil
	case OpAconstNull, OpIconstM1, OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5,
		OpBipush, OpSipush, OpLdc, OpIload, OpAload, OpNew:
		return 0, 1, nil
	case OpDconst0, OpDconst1, OpLdc2W, OpDload:
		return 0, 2, nil
	case OpIstore, OpAstore, OpPop, OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle,
		OpIfnull, OpIfnonnull, OpIreturn, OpAreturn, OpAthrow:
		return 1, 0, nil
	case OpDstore, OpPop2, OpDreturn, OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge,
		OpIfIcmpgt, OpIfIcmple, OpIfAcmpeq, OpIfAcmpne:
		return 2, 0, nil
	case OpIaload, OpAaload, OpBaload, OpCaload:
		return 2, 1, nil
	case OpDaload:
		return 2, 2, nil
	case OpIastore, OpAastore, OpBastore, OpCastore:
		return 3, 0, nil
	case OpDastore:
		return 4, 0, nil
	case OpDup:
		return 1, 2, nil
	case OpDupX1:
		return 2, 3, nil
	case OpDupX2:
		return 3, 4, nil
	case OpDup2:
		return 2, 4, nil
	case OpDup2X1:
		return 3, 5, nil
	case OpDup2X2:
		return 4, 6, nil
	case OpIadd, OpIsub, OpImul, OpIdiv, OpIrem, OpIshl, OpIshr, OpIushr, OpIand, OpIor, OpIxor:
		return 2, 1, nil
	case OpDadd, OpDsub, OpDmul, OpDdiv, OpDrem:
		return 4, 2, nil
	case OpI2d:
		return 1, 2, nil
	case OpD2i:
		return 2, 1, nil
	case OpDcmpl, OpDcmpg:
		return 4, 1, nil
	case OpGetstatic:
		return 0, typeWords(in.Desc), nil
	case OpPutstatic:
		return typeWords(in.Desc), 0, nil
	case OpGetfield:
		return 1, typeWords(in.Desc), nil
	case OpPutfield:
		return 1 + typeWords(in.Desc), 0, nil
	case OpInvokevirtual, OpInvokespecial, OpInvokestatic, OpInvokeinterface:
		args, ret, err := methodWords(in.Desc)
		if err != nil {
			return 0, 0, err
		}
		if in.Op != OpInvokestatic {
			args++
		}
		return args, ret, nil
	case OpMultianewarray:
		return in.Arg, 1, nil
	}
	return 0, 0, fmt.Errorf("unknown opcode %s", in.Op)
}

// verify checks that every reachable instruction is entered with one
// operand stack depth, that no instruction underflows the stack, and that
// control never runs past the last instruction. It sets MaxStack.
func (m *Method) verify() error {
	n := len(m.Code)
	depth := make([]int, n)
	for i := range depth {
		depth[i] = -1
	}
	var work []int
	enter := func(pc, d int, from int) error {
		if pc < 0 || pc >= n {
			return fmt.Errorf("control flows from %d to %d, outside the code", from, pc)
		}
		switch depth[pc] {
		case -1:
			depth[pc] = d
			work = append(work, pc)
		case d:
		default:
			return fmt.Errorf("stack depth %d at %d disagrees with %d from %d", depth[pc], pc, d, from)
		}
		return nil
	}

	if err := enter(0, 0, -1); err != nil {
		return err
	}
	for _, h := range m.Handlers {
		if h.Start < 0 || h.End > n || h.Start >= h.End {
			return fmt.Errorf("bad protected region [%d, %d)", h.Start, h.End)
		}
		if err := enter(h.Handler, 1, -1); err != nil {
			return err
		}
	}

	for len(work) > 0 {
		pc := work[len(work)-1]
		work = work[:len(work)-1]
		in := &m.Code[pc]
		pop, push, err := in.stackEffect()
		if err != nil {
			return fmt.Errorf("at %d: %w", pc, err)
		}
		d := depth[pc]
		if d < pop {
			return fmt.Errorf("stack underflow at %d (%s): depth %d, needs %d", pc, in, d, pop)
		}
		d += push - pop
		if d > m.MaxStack {
			m.MaxStack = d
		}
		if in.Op.operands() == branchOperand {
			if err := enter(in.Arg, d, pc); err != nil {
				return err
			}
		}
		if in.Op.IsTerminal() {
			continue
		}
		if pc+1 == n {
			return fmt.Errorf("control falls off the end of the code")
		}
		if err := enter(pc+1, d, pc); err != nil {
			return err
		}
	}
	return nil
}
