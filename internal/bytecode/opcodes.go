// Package bytecode defines the binary image format: opcode byte values,
// the fixed 64-byte header layout, and the per-opcode operand-width table
// that the function loader uses to skip operand bytes.
package bytecode

// OpCode is a single instruction tag byte.
type OpCode byte

const (
	OP_ADD OpCode = iota
	OP_SUB
	OP_MUL
	OP_DIV
	OP_GET_GLOBAL
	OP_SET_GLOBAL
	OP_CALL
	OP_RETURN
	OP_HALT
	OP_JMP
	OP_JMPIF

	OP_INT
	OP_FLOAT
	OP_BOOL
	OP_STR
	OP_NULL
	OP_ID

	OP_FUNCDEF
	OP_ENDFUNC
	OP_CLASSDEF
	OP_ENDCLASS

	OP_BLSHIFT
	OP_BRSHIFT
	OP_BXOR
	OP_BOR
	OP_BAND

	OP_GET_LOCAL
	OP_SET_LOCAL
	OP_PRINT
	OP_INPUT
	OP_POP
	OP_MOD

	OP_EQ
	OP_NEQ
	OP_GT
	OP_GEQ
	OP_LT
	OP_LEQ

	OP_LOGICAL_AND
	OP_LOGICAL_OR
	OP_LOGICAL_NOT

	OP_LOCAL
)

var names = map[OpCode]string{
	OP_ADD:         "OP_ADD",
	OP_SUB:         "OP_SUB",
	OP_MUL:         "OP_MUL",
	OP_DIV:         "OP_DIV",
	OP_GET_GLOBAL:  "OP_GET_GLOBAL",
	OP_SET_GLOBAL:  "OP_SET_GLOBAL",
	OP_CALL:        "OP_CALL",
	OP_RETURN:      "OP_RETURN",
	OP_HALT:        "OP_HALT",
	OP_JMP:         "OP_JMP",
	OP_JMPIF:       "OP_JMPIF",
	OP_INT:         "INT",
	OP_FLOAT:       "FLOAT",
	OP_BOOL:        "BOOL",
	OP_STR:         "STR",
	OP_NULL:        "__NULL__",
	OP_ID:          "ID",
	OP_FUNCDEF:     "OP_FUNCDEF",
	OP_ENDFUNC:     "OP_ENDFUNC",
	OP_CLASSDEF:    "OP_CLASSDEF",
	OP_ENDCLASS:    "OP_ENDCLASS",
	OP_BLSHIFT:     "OP_BLSHIFT",
	OP_BRSHIFT:     "OP_BRSHIFT",
	OP_BXOR:        "OP_BXOR",
	OP_BOR:         "OP_BOR",
	OP_BAND:        "OP_BAND",
	OP_GET_LOCAL:   "OP_GET_LOCAL",
	OP_SET_LOCAL:   "OP_SET_LOCAL",
	OP_PRINT:       "OP_PRINT",
	OP_INPUT:       "OP_INPUT",
	OP_POP:         "OP_POP",
	OP_MOD:         "OP_MOD",
	OP_EQ:          "OP_EQ",
	OP_NEQ:         "OP_NEQ",
	OP_GT:          "OP_GT",
	OP_GEQ:         "OP_GEQ",
	OP_LT:          "OP_LT",
	OP_LEQ:         "OP_LEQ",
	OP_LOGICAL_AND: "OP_LOGICAL_AND",
	OP_LOGICAL_OR:  "OP_LOGICAL_OR",
	OP_LOGICAL_NOT: "OP_LOGICAL_NOT",
	OP_LOCAL:       "LOCAL",
}

var mnemonics = func() map[string]OpCode {
	m := make(map[string]OpCode, len(names))
	for op, name := range names {
		m[name] = op
	}
	return m
}()

func (op OpCode) String() string {
	if n, ok := names[op]; ok {
		return n
	}
	return "OP_UNKNOWN"
}

// Lookup maps an IR mnemonic to its OpCode.
func Lookup(mnemonic string) (OpCode, bool) {
	op, ok := mnemonics[mnemonic]
	return op, ok
}

// OperandKind identifies how an opcode's trailing bytes are shaped, so the
// assembler and the loader agree on how many bytes to skip.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandInt64
	OperandFloat64
	OperandByte
	OperandStr   // u32 length + bytes
	OperandIdent // u16 length + bytes
	OperandU16   // LOCAL's bare index
	OperandI32   // OP_JMP/OP_JMPIF signed delta
	OperandFuncHeader
)

// Operands maps every opcode to the shape of the bytes that follow its tag.
// OP_FUNCDEF is a special case: its fixed-size u16/u16 NUMARGS/NUMVARS pair
// is immediately followed by a variable-length ID, handled explicitly by
// the assembler and loader rather than through this table.
var Operands = map[OpCode]OperandKind{
	OP_ADD:         OperandNone,
	OP_SUB:         OperandNone,
	OP_MUL:         OperandNone,
	OP_DIV:         OperandNone,
	OP_MOD:         OperandNone,
	OP_BLSHIFT:     OperandNone,
	OP_BRSHIFT:     OperandNone,
	OP_BXOR:        OperandNone,
	OP_BOR:         OperandNone,
	OP_BAND:        OperandNone,
	OP_EQ:          OperandNone,
	OP_NEQ:         OperandNone,
	OP_LT:          OperandNone,
	OP_LEQ:         OperandNone,
	OP_GT:          OperandNone,
	OP_GEQ:         OperandNone,
	OP_LOGICAL_AND: OperandNone,
	OP_LOGICAL_OR:  OperandNone,
	OP_LOGICAL_NOT: OperandNone,
	OP_GET_GLOBAL:  OperandNone,
	OP_SET_GLOBAL:  OperandNone,
	OP_GET_LOCAL:   OperandNone,
	OP_SET_LOCAL:   OperandNone,
	OP_CALL:        OperandNone,
	OP_RETURN:      OperandNone,
	OP_HALT:        OperandNone,
	OP_POP:         OperandNone,
	OP_PRINT:       OperandNone,
	OP_INPUT:       OperandNone,
	OP_NULL:        OperandNone,
	OP_ENDFUNC:     OperandNone,
	OP_CLASSDEF:    OperandNone,
	OP_ENDCLASS:    OperandNone,
	OP_JMP:         OperandI32,
	OP_JMPIF:       OperandI32,
	OP_INT:         OperandInt64,
	OP_FLOAT:       OperandFloat64,
	OP_BOOL:        OperandByte,
	OP_STR:         OperandStr,
	OP_ID:          OperandIdent,
	OP_LOCAL:       OperandU16,
	OP_FUNCDEF:     OperandFuncHeader,
}
