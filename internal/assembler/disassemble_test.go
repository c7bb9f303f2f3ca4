package assembler

import (
	"bytes"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"ratsnake/internal/bytecode"
)

func TestDisassembleFunctionAndMain(t *testing.T) {
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
	img := assemble(t, ir)
	hdr, err := bytecode.ReadHeader(img)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}

	var out bytes.Buffer
	if err := Disassemble(img, hdr, &out); err != nil {
		t.Fatalf("Disassemble: %v", err)
	}

	snaps.MatchSnapshot(t, out.String())
}
