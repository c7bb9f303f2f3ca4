package vm

import (
	"fmt"

	"ratsnake/internal/value"
)

// Frame is a call-activation record. It lives inside the StackEntry pushed
// at base_pointer when a function is entered.
type Frame struct {
	ReturnIP   int
	ParentBP   int
	Locals     []value.Value
	localIsSet []bool
}

func newFrame(returnIP, parentBP, localCount int) *Frame {
	return &Frame{
		ReturnIP:   returnIP,
		ParentBP:   parentBP,
		Locals:     make([]value.Value, localCount),
		localIsSet: make([]bool, localCount),
	}
}

// GetLocal returns the local at i, or an error if it was never set.
func (f *Frame) GetLocal(i int) (value.Value, error) {
	if i < 0 || i >= len(f.Locals) {
		return value.Missing, fmt.Errorf("local index %d out of range [0,%d)", i, len(f.Locals))
	}
	if !f.localIsSet[i] {
		return value.Missing, fmt.Errorf("uninitialized local %d", i)
	}
	return f.Locals[i], nil
}

// SetLocal replaces the slot at i.
func (f *Frame) SetLocal(i int, v value.Value) error {
	if i < 0 || i >= len(f.Locals) {
		return fmt.Errorf("local index %d out of range [0,%d)", i, len(f.Locals))
	}
	f.Locals[i] = v
	f.localIsSet[i] = true
	return nil
}
