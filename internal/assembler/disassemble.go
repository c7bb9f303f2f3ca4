package assembler

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"ratsnake/internal/bytecode"
)

// Disassemble renders image as one mnemonic-plus-operand line per
// instruction, covering the function section followed by the executable
// section, in source order.
func Disassemble(image []byte, hdr bytecode.Header, w io.Writer) error {
	if hdr.FuncSectionStart != hdr.FuncSectionEnd {
		fmt.Fprintln(w, "; function section")
		if err := disassembleRange(image, int(hdr.FuncSectionStart), int(hdr.FuncSectionEnd), w); err != nil {
			return err
		}
	}
	execStart := int(hdr.ExecutionSectionStart)
	if hdr.FuncSectionStart != hdr.FuncSectionEnd {
		execStart = int(hdr.FuncSectionEnd)
	}
	fmt.Fprintln(w, "; executable section")
	return disassembleRange(image, execStart, len(image), w)
}

func disassembleRange(image []byte, start, end int, w io.Writer) error {
	ip := start
	for ip < end {
		op := bytecode.OpCode(image[ip])
		offset := ip
		ip++

		switch op {
		case bytecode.OP_INT:
			v := int64(binary.LittleEndian.Uint64(image[ip : ip+8]))
			ip += 8
			fmt.Fprintf(w, "%06d  INT %d\n", offset, v)
		case bytecode.OP_FLOAT:
			bits := binary.LittleEndian.Uint64(image[ip : ip+8])
			ip += 8
			fmt.Fprintf(w, "%06d  FLOAT %g\n", offset, math.Float64frombits(bits))
		case bytecode.OP_BOOL:
			v := image[ip]
			ip++
			fmt.Fprintf(w, "%06d  BOOL %d\n", offset, v)
		case bytecode.OP_STR:
			n := int(binary.LittleEndian.Uint32(image[ip : ip+4]))
			ip += 4
			text := string(image[ip : ip+n])
			ip += n
			fmt.Fprintf(w, "%06d  STR %d %s\n", offset, n, text)
		case bytecode.OP_ID:
			n := int(binary.LittleEndian.Uint16(image[ip : ip+2]))
			ip += 2
			text := string(image[ip : ip+n])
			ip += n
			fmt.Fprintf(w, "%06d  ID %d %s\n", offset, n, text)
		case bytecode.OP_LOCAL:
			idx := int(binary.LittleEndian.Uint16(image[ip : ip+2]))
			ip += 2
			fmt.Fprintf(w, "%06d  LOCAL %d\n", offset, idx)
		case bytecode.OP_JMP, bytecode.OP_JMPIF:
			delta := int32(binary.LittleEndian.Uint32(image[ip : ip+4]))
			ip += 4
			fmt.Fprintf(w, "%06d  %s %d\n", offset, op, delta)
		case bytecode.OP_FUNCDEF:
			numArgs := int(binary.LittleEndian.Uint16(image[ip : ip+2]))
			ip += 2
			localCount := int(binary.LittleEndian.Uint16(image[ip : ip+2]))
			ip += 2
			ip++ // OP_ID tag
			n := int(binary.LittleEndian.Uint16(image[ip : ip+2]))
			ip += 2
			name := string(image[ip : ip+n])
			ip += n
			fmt.Fprintf(w, "%06d  OP_FUNCDEF NUMARGS=%d NUMVARS=%d %s\n", offset, numArgs, localCount, name)
		default:
			fmt.Fprintf(w, "%06d  %s\n", offset, op)
		}
	}
	return nil
}
