// Package loader performs the pre-execution scan of an image's function
// section into a directory of callable functions, skipping operand bytes
// via the shared opcode width table so literal data is never misread as an
// instruction tag.
package loader

import (
	"encoding/binary"
	"fmt"

	"ratsnake/internal/bytecode"
	"ratsnake/internal/table"
)

// FunctionRecord describes one function discovered in the function
// section.
type FunctionRecord struct {
	Name       string
	BodyIP     int
	NumArgs    int
	LocalCount int
}

// Load scans image[header.FuncSectionStart:header.FuncSectionEnd) and
// returns a directory keyed by function name, using the same open-chaining
// hash map that backs the VM's globals.
func Load(image []byte, hdr bytecode.Header) (*table.Table, error) {
	funcs := table.New(8)
	ip := int(hdr.FuncSectionStart)
	end := int(hdr.FuncSectionEnd)

	for ip < end {
		if image[ip] != byte(bytecode.OP_FUNCDEF) {
			return nil, fmt.Errorf("loader: expected OP_FUNCDEF at offset %d, found opcode %d", ip, image[ip])
		}
		ip++

		if ip+2 > end {
			return nil, fmt.Errorf("loader: truncated NUMARGS at offset %d", ip)
		}
		numArgs := int(binary.LittleEndian.Uint16(image[ip : ip+2]))
		ip += 2

		if ip+2 > end {
			return nil, fmt.Errorf("loader: truncated NUMVARS at offset %d", ip)
		}
		localCount := int(binary.LittleEndian.Uint16(image[ip : ip+2]))
		ip += 2

		if ip >= end || image[ip] != byte(bytecode.OP_ID) {
			return nil, fmt.Errorf("loader: expected ID at offset %d, found opcode %d", ip, image[ip])
		}
		ip++
		if ip+2 > end {
			return nil, fmt.Errorf("loader: truncated function name length at offset %d", ip)
		}
		nameLen := int(binary.LittleEndian.Uint16(image[ip : ip+2]))
		ip += 2
		if ip+nameLen > end {
			return nil, fmt.Errorf("loader: truncated function name at offset %d", ip)
		}
		name := string(image[ip : ip+nameLen])
		ip += nameLen

		bodyIP := ip

		for {
			if ip >= end {
				return nil, fmt.Errorf("loader: function %q missing OP_ENDFUNC before end of function section", name)
			}
			op := bytecode.OpCode(image[ip])
			if op == bytecode.OP_ENDFUNC {
				ip++
				break
			}
			skip, err := operandWidth(image, ip, end)
			if err != nil {
				return nil, err
			}
			ip += 1 + skip
		}

		funcs.Set(name, FunctionRecord{
			Name:       name,
			BodyIP:     bodyIP,
			NumArgs:    numArgs,
			LocalCount: localCount,
		})
	}

	return funcs, nil
}

// operandWidth reports how many bytes follow the opcode tag at image[ip],
// per the shared operand-shape table. ip points at the tag itself.
func operandWidth(image []byte, ip, end int) (int, error) {
	op := bytecode.OpCode(image[ip])
	kind, ok := bytecode.Operands[op]
	if !ok {
		return 0, fmt.Errorf("loader: unknown opcode %d at offset %d", op, ip)
	}
	switch kind {
	case bytecode.OperandNone:
		return 0, nil
	case bytecode.OperandByte:
		return 1, nil
	case bytecode.OperandU16, bytecode.OperandIdent:
		if kind == bytecode.OperandU16 {
			return 2, nil
		}
		if ip+3 > end {
			return 0, fmt.Errorf("loader: truncated ID length at offset %d", ip+1)
		}
		n := int(binary.LittleEndian.Uint16(image[ip+1 : ip+3]))
		return 2 + n, nil
	case bytecode.OperandI32:
		return 4, nil
	case bytecode.OperandInt64, bytecode.OperandFloat64:
		return 8, nil
	case bytecode.OperandStr:
		if ip+5 > end {
			return 0, fmt.Errorf("loader: truncated STR length at offset %d", ip+1)
		}
		n := int(binary.LittleEndian.Uint32(image[ip+1 : ip+5]))
		return 4 + n, nil
	default:
		return 0, fmt.Errorf("loader: unsupported operand kind for opcode %d", op)
	}
}
