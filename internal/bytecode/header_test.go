package bytecode

import (
	"bytes"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		FuncSectionStart:      64,
		FuncSectionEnd:        120,
		ExecutionSectionStart: 64,
	}
	var buf bytes.Buffer
	n, err := h.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != HeaderSize {
		t.Fatalf("wrote %d bytes, want %d", n, HeaderSize)
	}
	got, err := ReadHeader(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got != h {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestHeaderValidate(t *testing.T) {
	h := Header{FuncSectionStart: 64, FuncSectionEnd: 100, ExecutionSectionStart: 64}
	if err := h.Validate(200); err != nil {
		t.Errorf("expected valid header, got %v", err)
	}
	if err := h.Validate(80); err == nil {
		t.Errorf("expected error when func_section_end exceeds image size")
	}
	bad := Header{FuncSectionStart: 64, FuncSectionEnd: 100, ExecutionSectionStart: 10}
	if err := bad.Validate(200); err == nil {
		t.Errorf("expected error for wrong execution_section_start")
	}
}

func TestOpCodeLookupRoundTrip(t *testing.T) {
	for op, name := range names {
		got, ok := Lookup(name)
		if !ok || got != op {
			t.Errorf("Lookup(%q) = %v, %v; want %v, true", name, got, ok, op)
		}
	}
}
