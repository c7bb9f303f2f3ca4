package loader

import (
	"bytes"
	"testing"

	"ratsnake/internal/assembler"
	"ratsnake/internal/bytecode"
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

func buildImage(t *testing.T, ir string) []byte {
	t.Helper()
	var out seekBuf
	if err := assembler.Assemble(bytes.NewBufferString(ir), &out); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return out.data
}

func TestLoadSingleFunction(t *testing.T) {
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
OP_HALT
`
	img := buildImage(t, ir)
	hdr, err := bytecode.ReadHeader(img)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	funcs, err := Load(img, hdr)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	v, ok := funcs.Get("add")
	if !ok {
		t.Fatalf("function %q not found in directory", "add")
	}
	rec := v.(FunctionRecord)
	if rec.NumArgs != 2 || rec.LocalCount != 2 {
		t.Errorf("add record = %+v, want NumArgs=2 LocalCount=2", rec)
	}
	if img[rec.BodyIP] != byte(bytecode.OP_LOCAL) {
		t.Errorf("body_ip does not point at first body opcode: got tag %d", img[rec.BodyIP])
	}
}

func TestLoadEmptyFunctionSection(t *testing.T) {
	img := buildImage(t, "INT 1\nOP_HALT\n")
	hdr, err := bytecode.ReadHeader(img)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	funcs, err := Load(img, hdr)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if funcs.Len() != 0 {
		t.Errorf("expected no functions, got %d", funcs.Len())
	}
}

func TestLoadMultipleFunctionsDoesNotMisdecodeOperands(t *testing.T) {
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
OP_FUNCDEF
NUMARGS 1
NUMVARS 1
ID 3 dec
LOCAL 0
OP_GET_LOCAL
INT 1
OP_SUB
OP_RETURN
OP_ENDFUNC
OP_HALT
`
	img := buildImage(t, ir)
	hdr, err := bytecode.ReadHeader(img)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	funcs, err := Load(img, hdr)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if funcs.Len() != 2 {
		t.Fatalf("expected 2 functions, got %d: %v", funcs.Len(), funcs.Keys())
	}
	if _, ok := funcs.Get("inc"); !ok {
		t.Errorf("missing inc")
	}
	if _, ok := funcs.Get("dec"); !ok {
		t.Errorf("missing dec")
	}
}
