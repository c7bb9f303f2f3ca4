// Package vm implements the stack-based interpreter: the operand stack,
// call frames, and the fetch/decode/dispatch loop over an assembled image.
package vm

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/google/uuid"

	"ratsnake/internal/bytecode"
	"ratsnake/internal/diag"
	"ratsnake/internal/pool"
	"ratsnake/internal/table"
	"ratsnake/internal/value"
)

// VM holds all process-wide interpreter state for one run of an image.
type VM struct {
	image     []byte
	ip        int
	stack     Stack
	globals   *table.Table
	functions *table.Table

	RunID string
	Hook  Hook

	Stdout io.Writer
	Stdin  *bufio.Reader

	opcodeCounts map[bytecode.OpCode]int
}

// New constructs a VM ready to execute image, with funcs as its
// pre-scanned function directory. Execution begins after the function
// section: header.ExecutionSectionStart marks the start of the whole body
// (function section plus executable code), so when a function section is
// present the fetch loop must skip past it rather than re-enter it as
// executable code.
func New(image []byte, funcs *table.Table, hdr bytecode.Header) *VM {
	start := int(hdr.ExecutionSectionStart)
	if hdr.FuncSectionStart != hdr.FuncSectionEnd {
		start = int(hdr.FuncSectionEnd)
	}
	return &VM{
		image:        image,
		ip:           start,
		globals:      table.New(16),
		functions:    funcs,
		RunID:        uuid.NewString(),
		Hook:         NoopHook,
		Stdout:       os.Stdout,
		Stdin:        bufio.NewReader(os.Stdin),
		opcodeCounts: make(map[bytecode.OpCode]int),
	}
}

// OpcodeCounts returns the number of times each opcode has been dispatched
// so far, for the optional profiling store.
func (vm *VM) OpcodeCounts() map[bytecode.OpCode]int {
	return vm.opcodeCounts
}

// GetGlobal exposes a global's current value, for tests and tooling.
func (vm *VM) GetGlobal(name string) (value.Value, bool) {
	v, ok := vm.globals.Get(name)
	if !ok {
		return value.Missing, false
	}
	return v.(value.Value), true
}

// Run executes the interpreter loop until OP_HALT or a fatal diagnostic.
func (vm *VM) Run() error {
	for {
		if vm.ip >= len(vm.image) {
			return diag.Fatalf(diag.ImageFormatError, "instruction pointer ran past end of image at %d", vm.ip)
		}
		op := bytecode.OpCode(vm.image[vm.ip])
		vm.opcodeCounts[op]++
		vm.Hook.OnInstruction(vm.ip, op, vm.stack.Top, vm.stack.BasePointer)
		vm.ip++

		halt, err := vm.dispatch(op)
		if err != nil {
			return err
		}
		if halt {
			vm.Hook.OnHalt()
			return nil
		}
	}
}

func (vm *VM) dispatch(op bytecode.OpCode) (halt bool, err error) {
	switch op {
	case bytecode.OP_INT:
		v := vm.readInt64()
		return false, vm.stack.Push(primitiveEntry(pool.Int(v)))

	case bytecode.OP_FLOAT:
		v := vm.readFloat64()
		return false, vm.stack.Push(primitiveEntry(value.NewFloat(v)))

	case bytecode.OP_BOOL:
		v := vm.image[vm.ip]
		vm.ip++
		return false, vm.stack.Push(primitiveEntry(pool.Bool(v != 0)))

	case bytecode.OP_STR:
		s := vm.readStr()
		return false, vm.stack.Push(primitiveEntry(value.NewStr(s)))

	case bytecode.OP_NULL:
		return false, vm.stack.Push(primitiveEntry(pool.Null()))

	case bytecode.OP_ID:
		name := vm.readIdent()
		return false, vm.stack.Push(nameEntry(name))

	case bytecode.OP_LOCAL:
		idx := int(binary.LittleEndian.Uint16(vm.image[vm.ip : vm.ip+2]))
		vm.ip += 2
		return false, vm.stack.Push(localIndexEntry(idx))

	case bytecode.OP_ADD, bytecode.OP_SUB, bytecode.OP_MUL, bytecode.OP_DIV, bytecode.OP_MOD,
		bytecode.OP_BAND, bytecode.OP_BOR, bytecode.OP_BXOR, bytecode.OP_BLSHIFT, bytecode.OP_BRSHIFT:
		return false, vm.binaryArith(op)

	case bytecode.OP_EQ, bytecode.OP_NEQ, bytecode.OP_LT, bytecode.OP_LEQ, bytecode.OP_GT, bytecode.OP_GEQ:
		return false, vm.binaryCompare(op)

	case bytecode.OP_LOGICAL_AND, bytecode.OP_LOGICAL_OR:
		return false, vm.binaryLogical(op)

	case bytecode.OP_LOGICAL_NOT:
		return false, vm.unaryLogicalNot()

	case bytecode.OP_GET_GLOBAL:
		return false, vm.getGlobal()

	case bytecode.OP_SET_GLOBAL:
		return false, vm.setGlobal()

	case bytecode.OP_GET_LOCAL:
		return false, vm.getLocal()

	case bytecode.OP_SET_LOCAL:
		return false, vm.setLocal()

	case bytecode.OP_CALL:
		return false, vm.call()

	case bytecode.OP_RETURN:
		return false, vm.ret()

	case bytecode.OP_JMP:
		delta := vm.readI32()
		vm.ip += int(delta)
		return false, nil

	case bytecode.OP_JMPIF:
		delta := vm.readI32()
		cond, err := vm.stack.PopValue()
		if err != nil {
			diag.Warn(diag.StackUnderflowError, "%v", err)
		}
		if !cond.Truthy() {
			vm.ip += int(delta)
		}
		return false, nil

	case bytecode.OP_POP:
		_, err := vm.stack.Pop()
		if err != nil {
			diag.Warn(diag.StackUnderflowError, "%v", err)
		}
		return false, nil

	case bytecode.OP_PRINT:
		v, err := vm.stack.PopValue()
		if err != nil {
			diag.Warn(diag.StackUnderflowError, "%v", err)
		}
		fmt.Fprintln(vm.Stdout, v.ToString())
		return false, nil

	case bytecode.OP_INPUT:
		line, _ := vm.Stdin.ReadString('\n')
		return false, vm.stack.Push(primitiveEntry(value.NewStr(trimNewline(line))))

	case bytecode.OP_HALT:
		return true, nil

	case bytecode.OP_CLASSDEF, bytecode.OP_ENDCLASS:
		return true, diag.Fatalf(diag.UnknownOpcodeError, "unimplemented opcode %s reached at %d", op, vm.ip-1)

	case bytecode.OP_FUNCDEF, bytecode.OP_ENDFUNC:
		return true, diag.Fatalf(diag.ImageFormatError, "opcode %s encountered in executable section at %d", op, vm.ip-1)

	default:
		return true, diag.Fatalf(diag.UnknownOpcodeError, "unknown opcode %d at %d", op, vm.ip-1)
	}
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func (vm *VM) readInt64() int64 {
	v := int64(binary.LittleEndian.Uint64(vm.image[vm.ip : vm.ip+8]))
	vm.ip += 8
	return v
}

func (vm *VM) readFloat64() float64 {
	bits := binary.LittleEndian.Uint64(vm.image[vm.ip : vm.ip+8])
	vm.ip += 8
	return math.Float64frombits(bits)
}

func (vm *VM) readI32() int32 {
	v := int32(binary.LittleEndian.Uint32(vm.image[vm.ip : vm.ip+4]))
	vm.ip += 4
	return v
}

func (vm *VM) readStr() string {
	n := int(binary.LittleEndian.Uint32(vm.image[vm.ip : vm.ip+4]))
	vm.ip += 4
	s := string(vm.image[vm.ip : vm.ip+n])
	vm.ip += n
	return s
}

func (vm *VM) readIdent() string {
	n := int(binary.LittleEndian.Uint16(vm.image[vm.ip : vm.ip+2]))
	vm.ip += 2
	s := string(vm.image[vm.ip : vm.ip+n])
	vm.ip += n
	return s
}
