package vm

import "ratsnake/internal/bytecode"

// Hook observes interpreter execution without influencing it. It is called
// unconditionally from the dispatch loop; when no observer is attached,
// NoopHook absorbs every call.
type Hook interface {
	OnInstruction(ip int, op bytecode.OpCode, stackDepth, basePointer int)
	OnCall(name string, ip int)
	OnReturn(ip int)
	OnHalt()
}

type noopHook struct{}

func (noopHook) OnInstruction(int, bytecode.OpCode, int, int) {}
func (noopHook) OnCall(string, int)                           {}
func (noopHook) OnReturn(int)                                 {}
func (noopHook) OnHalt()                                      {}

// NoopHook is the default no-op observer.
var NoopHook Hook = noopHook{}
