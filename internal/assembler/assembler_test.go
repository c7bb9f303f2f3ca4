package assembler

import (
	"bytes"
	"testing"

	"ratsnake/internal/bytecode"
)

// seekBuf adapts a bytes.Buffer into an io.WriteSeeker backed by a growable
// byte slice, since bytes.Buffer itself has no Seek.
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

func assemble(t *testing.T, ir string) []byte {
	t.Helper()
	var out seekBuf
	if err := Assemble(bytes.NewBufferString(ir), &out); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return out.data
}

func TestHeaderBounds(t *testing.T) {
	img := assemble(t, "INT 3\nINT 4\nOP_ADD\nOP_HALT\n")
	hdr, err := bytecode.ReadHeader(img)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if hdr.ExecutionSectionStart != bytecode.HeaderSize {
		t.Errorf("execution_section_start = %d, want %d", hdr.ExecutionSectionStart, bytecode.HeaderSize)
	}
	if hdr.FuncSectionStart != 0 || hdr.FuncSectionEnd != 0 {
		t.Errorf("expected empty function section, got [%d, %d)", hdr.FuncSectionStart, hdr.FuncSectionEnd)
	}
	if err := hdr.Validate(len(img)); err != nil {
		t.Errorf("header should validate: %v", err)
	}
}

func TestFunctionSectionBounds(t *testing.T) {
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
	img := assemble(t, ir)
	hdr, err := bytecode.ReadHeader(img)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if hdr.FuncSectionStart != bytecode.HeaderSize {
		t.Errorf("func_section_start = %d, want %d", hdr.FuncSectionStart, bytecode.HeaderSize)
	}
	if img[hdr.FuncSectionStart] != byte(bytecode.OP_FUNCDEF) {
		t.Errorf("byte at func_section_start is not OP_FUNCDEF")
	}
	if img[hdr.FuncSectionEnd-1] != byte(bytecode.OP_ENDFUNC) {
		t.Errorf("byte just before func_section_end is not OP_ENDFUNC")
	}
}

func TestUnknownMnemonicErrors(t *testing.T) {
	var out seekBuf
	err := Assemble(bytes.NewBufferString("OP_NOPE\n"), &out)
	if err == nil {
		t.Fatalf("expected error for unknown mnemonic")
	}
}

func TestStrOperandEncodesDeclaredLength(t *testing.T) {
	img := assemble(t, "STR 2 ab\nOP_HALT\n")
	if img[bytecode.HeaderSize] != byte(bytecode.OP_STR) {
		t.Fatalf("expected STR tag at body start")
	}
	n := uint32(img[bytecode.HeaderSize+1]) | uint32(img[bytecode.HeaderSize+2])<<8
	if n != 2 {
		t.Errorf("STR length = %d, want 2", n)
	}
	text := img[bytecode.HeaderSize+5 : bytecode.HeaderSize+7]
	if string(text) != "ab" {
		t.Errorf("STR payload = %q, want %q", text, "ab")
	}
}

func TestCommentsAndBlankLinesSkipped(t *testing.T) {
	img := assemble(t, "# a comment\n\nOP_HALT\n")
	if len(img) != bytecode.HeaderSize+1 {
		t.Errorf("expected exactly one opcode byte after header, got %d extra bytes", len(img)-bytecode.HeaderSize)
	}
	if img[bytecode.HeaderSize] != byte(bytecode.OP_HALT) {
		t.Errorf("expected OP_HALT at body start")
	}
}
