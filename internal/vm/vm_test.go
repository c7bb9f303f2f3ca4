package vm

import (
	"bytes"
	"testing"

	"ratsnake/internal/assembler"
	"ratsnake/internal/bytecode"
	"ratsnake/internal/loader"
	"ratsnake/internal/value"
)

type seekBuf struct {
	data []byte
	pos  int64
}

func (s *seekBuf) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.data)) {
		grown := make([]byte, end)
		copy(grown, s.data)
		s.data = grown
	}
	copy(s.data[s.pos:end], p)
	s.pos = end
	return len(p), nil
}

func (s *seekBuf) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		s.pos = offset
	case 1:
		s.pos += offset
	case 2:
		s.pos = int64(len(s.data)) + offset
	}
	return s.pos, nil
}

func runIR(t *testing.T, ir string) *VM {
	t.Helper()
	var out seekBuf
	if err := assembler.Assemble(bytes.NewBufferString(ir), &out); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	img := out.data
	hdr, err := bytecode.ReadHeader(img)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	funcs, err := loader.Load(img, hdr)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m := New(img, funcs, hdr)
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return m
}

func TestScenarioA_ArithmeticAndGlobal(t *testing.T) {
	m := runIR(t, "INT 3\nINT 4\nOP_ADD\nID 1 x\nOP_SET_GLOBAL\nOP_HALT\n")
	x, ok := m.GetGlobal("x")
	if !ok || x.Kind != 0 /* KindInt */ || x.I != 7 {
		t.Errorf("x = %v, ok=%v; want Int(7)", x, ok)
	}
}

func TestScenarioB_IntFloatPromotion(t *testing.T) {
	m := runIR(t, "INT 5\nFLOAT 2.0\nOP_DIV\nID 1 r\nOP_SET_GLOBAL\nOP_HALT\n")
	r, ok := m.GetGlobal("r")
	if !ok || r.F != 2.5 {
		t.Errorf("r = %v, ok=%v; want Float(2.5)", r, ok)
	}
}

func TestScenarioC_StringRepetition(t *testing.T) {
	m := runIR(t, "INT 3\nSTR 2 ab\nOP_MUL\nID 1 s\nOP_SET_GLOBAL\nOP_HALT\n")
	s, ok := m.GetGlobal("s")
	if !ok || string(s.S) != "ababab" {
		t.Errorf("s = %v, ok=%v; want Str(\"ababab\")", s, ok)
	}
}

func TestScenarioD_BranchSkipsOnFalsy(t *testing.T) {
	m := runIR(t, "INT 0\nOP_JMPIF 14\nINT 1\nID 1 f\nOP_SET_GLOBAL\nOP_HALT\n")
	if _, ok := m.GetGlobal("f"); ok {
		t.Errorf("f should never be set when JMPIF jumps past the SET_GLOBAL")
	}
}

func TestScenarioE_FunctionCallWithLocals(t *testing.T) {
	ir := `OP_FUNCDEF
NUMARGS 2
NUMVARS 2
ID 3 add
LOCAL 0
OP_GET_LOCAL
LOCAL 1
OP_GET_LOCAL
OP_ADD
OP_RETURN
OP_ENDFUNC
INT 10
INT 32
ID 3 add
OP_CALL
ID 1 y
OP_SET_GLOBAL
OP_HALT
`
	m := runIR(t, ir)
	y, ok := m.GetGlobal("y")
	if !ok || y.I != 42 {
		t.Errorf("y = %v, ok=%v; want Int(42)", y, ok)
	}
}

func TestScenarioF_SmallIntAndBoolInterning(t *testing.T) {
	m := runIR(t, "INT 7\nID 1 a\nOP_SET_GLOBAL\nINT 7\nID 1 b\nOP_SET_GLOBAL\nBOOL 1\nID 1 c\nOP_SET_GLOBAL\nBOOL 1\nID 1 d\nOP_SET_GLOBAL\nOP_HALT\n")
	a, _ := m.GetGlobal("a")
	b, _ := m.GetGlobal("b")
	c, _ := m.GetGlobal("c")
	d, _ := m.GetGlobal("d")
	if !value.SameInstance(a, b) {
		t.Errorf("two INT 7 pushes should produce the same pooled value: %v vs %v", a, b)
	}
	if !value.SameInstance(c, d) {
		t.Errorf("two BOOL 1 pushes should produce the same pooled value: %v vs %v", c, d)
	}
}

func TestCallReturnPreservesStackDiscipline(t *testing.T) {
	ir := `OP_FUNCDEF
NUMARGS 1
NUMVARS 1
ID 3 inc
LOCAL 0
OP_GET_LOCAL
INT 1
OP_ADD
OP_RETURN
OP_ENDFUNC
INT 41
ID 3 inc
OP_CALL
ID 1 z
OP_SET_GLOBAL
OP_HALT
`
	m := runIR(t, ir)
	z, ok := m.GetGlobal("z")
	if !ok || z.I != 42 {
		t.Errorf("z = %v, ok=%v; want Int(42)", z, ok)
	}
	if m.stack.BasePointer != 0 {
		t.Errorf("base_pointer should be restored to top level, got %d", m.stack.BasePointer)
	}
}
