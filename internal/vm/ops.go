package vm

import (
	"ratsnake/internal/bytecode"
	"ratsnake/internal/diag"
	"ratsnake/internal/loader"
	"ratsnake/internal/value"
)

// popOperands pops the right operand then the left, matching the
// documented pop order for every binary opcode.
func (vm *VM) popOperands() (left, right value.Value, err error) {
	right, rerr := vm.stack.PopValue()
	if rerr != nil {
		diag.Warn(diag.StackUnderflowError, "%v", rerr)
		err = rerr
	}
	left, lerr := vm.stack.PopValue()
	if lerr != nil {
		diag.Warn(diag.StackUnderflowError, "%v", lerr)
		err = lerr
	}
	return left, right, err
}

func (vm *VM) binaryArith(op bytecode.OpCode) error {
	left, right, _ := vm.popOperands()
	var result value.Value
	switch op {
	case bytecode.OP_ADD:
		result = value.Add(left, right)
	case bytecode.OP_SUB:
		result = value.Sub(left, right)
	case bytecode.OP_MUL:
		result = value.Mul(left, right)
	case bytecode.OP_DIV:
		result = value.Div(left, right)
	case bytecode.OP_MOD:
		result = value.Mod(left, right)
	case bytecode.OP_BAND:
		result = value.BAnd(left, right)
	case bytecode.OP_BOR:
		result = value.BOr(left, right)
	case bytecode.OP_BXOR:
		result = value.BXor(left, right)
	case bytecode.OP_BLSHIFT:
		result = value.BLShift(left, right)
	case bytecode.OP_BRSHIFT:
		result = value.BRShift(left, right)
	}
	return vm.stack.Push(primitiveEntry(result))
}

func (vm *VM) binaryCompare(op bytecode.OpCode) error {
	left, right, _ := vm.popOperands()
	var result bool
	switch op {
	case bytecode.OP_EQ:
		result = value.Eq(left, right)
	case bytecode.OP_NEQ:
		result = value.Neq(left, right)
	case bytecode.OP_LT:
		result = value.Lt(left, right)
	case bytecode.OP_LEQ:
		result = value.Leq(left, right)
	case bytecode.OP_GT:
		result = value.Gt(left, right)
	case bytecode.OP_GEQ:
		result = value.Geq(left, right)
	}
	return vm.stack.Push(primitiveEntry(value.NewBool(result)))
}

func (vm *VM) binaryLogical(op bytecode.OpCode) error {
	left, right, _ := vm.popOperands()
	var result bool
	switch op {
	case bytecode.OP_LOGICAL_AND:
		result = left.Truthy() && right.Truthy()
	case bytecode.OP_LOGICAL_OR:
		result = left.Truthy() || right.Truthy()
	}
	return vm.stack.Push(primitiveEntry(value.NewBool(result)))
}

func (vm *VM) unaryLogicalNot() error {
	v, err := vm.stack.PopValue()
	if err != nil {
		diag.Warn(diag.StackUnderflowError, "%v", err)
	}
	return vm.stack.Push(primitiveEntry(value.NewBool(!v.Truthy())))
}

// popIdentName pops an Identifier entry expected to carry a name.
func (vm *VM) popIdentName() (string, error) {
	e, err := vm.stack.Pop()
	if err != nil {
		return "", err
	}
	if e.Kind != KindIdentifier || e.IKind != IdentName {
		return "", diag.Fatalf(diag.ImageFormatError, "expected identifier entry, found entry kind %d", e.Kind)
	}
	return e.Ident, nil
}

// popIdentIndex pops an Identifier entry expected to carry a local index.
func (vm *VM) popIdentIndex() (int, error) {
	e, err := vm.stack.Pop()
	if err != nil {
		return 0, err
	}
	if e.Kind != KindIdentifier || e.IKind != IdentLocalIndex {
		return 0, diag.Fatalf(diag.ImageFormatError, "expected local-index entry, found entry kind %d", e.Kind)
	}
	return e.Index, nil
}

func (vm *VM) getGlobal() error {
	name, err := vm.popIdentName()
	if err != nil {
		return err
	}
	v, ok := vm.globals.Get(name)
	if !ok {
		diag.Warn(diag.NameError, "undefined global %q", name)
		return nil
	}
	return vm.stack.Push(primitiveEntry(v.(value.Value)))
}

func (vm *VM) setGlobal() error {
	name, err := vm.popIdentName()
	if err != nil {
		return err
	}
	v, verr := vm.stack.PopValue()
	if verr != nil {
		diag.Warn(diag.StackUnderflowError, "%v", verr)
	}
	vm.globals.Set(name, v)
	return nil
}

func (vm *VM) currentFrame() (*Frame, error) {
	if vm.stack.BasePointer < 0 {
		return nil, diag.Fatalf(diag.ImageFormatError, "no active call frame")
	}
	e := vm.stack.At(vm.stack.BasePointer)
	if e.Kind != KindFrame {
		return nil, diag.Fatalf(diag.ImageFormatError, "base_pointer does not point at a frame entry")
	}
	return e.Frame, nil
}

func (vm *VM) getLocal() error {
	idx, err := vm.popIdentIndex()
	if err != nil {
		return err
	}
	frame, err := vm.currentFrame()
	if err != nil {
		return err
	}
	v, lerr := frame.GetLocal(idx)
	if lerr != nil {
		diag.Warn(diag.NameError, "%v", lerr)
	}
	return vm.stack.Push(primitiveEntry(v))
}

func (vm *VM) setLocal() error {
	idx, err := vm.popIdentIndex()
	if err != nil {
		return err
	}
	v, verr := vm.stack.PopValue()
	if verr != nil {
		diag.Warn(diag.StackUnderflowError, "%v", verr)
	}
	frame, err := vm.currentFrame()
	if err != nil {
		return err
	}
	return frame.SetLocal(idx, v)
}

func (vm *VM) call() error {
	name, err := vm.popIdentName()
	if err != nil {
		return err
	}
	rec, ok := vm.functions.Get(name)
	if !ok {
		diag.Warn(diag.NameError, "undefined function %q", name)
		return nil
	}
	fn := rec.(loader.FunctionRecord)
	vm.Hook.OnCall(name, vm.ip)

	args := make([]value.Value, fn.NumArgs)
	for i := fn.NumArgs - 1; i >= 0; i-- {
		v, verr := vm.stack.PopValue()
		if verr != nil {
			diag.Warn(diag.StackUnderflowError, "%v", verr)
		}
		args[i] = v
	}

	frame := newFrame(vm.ip, vm.stack.BasePointer, fn.LocalCount)
	for i := 0; i < fn.NumArgs && i < fn.LocalCount; i++ {
		frame.SetLocal(i, args[i])
	}

	newBase := vm.stack.Top
	if err := vm.stack.Push(frameEntry(frame)); err != nil {
		return err
	}
	vm.stack.BasePointer = newBase
	vm.ip = fn.BodyIP
	return nil
}

func (vm *VM) ret() error {
	retVal, verr := vm.stack.PopValue()
	if verr != nil {
		diag.Warn(diag.StackUnderflowError, "%v", verr)
	}
	frame, err := vm.currentFrame()
	if err != nil {
		return err
	}
	vm.Hook.OnReturn(frame.ReturnIP)

	vm.stack.Top = vm.stack.BasePointer
	if err := vm.stack.Push(primitiveEntry(retVal)); err != nil {
		return err
	}
	vm.ip = frame.ReturnIP
	vm.stack.BasePointer = frame.ParentBP
	return nil
}
