// Package assembler turns the line-oriented textual IR into a binary
// bytecode image: a placeholder header, the assembled body, then a
// seek-back patch of the header once the function section bounds are known.
package assembler

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"ratsnake/internal/bytecode"
)

// Error reports a single malformed IR line; the assembler stops at the
// first one it finds.
type Error struct {
	Line    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Assemble reads textual IR from src and writes a binary image to dst.
// dst must support Seek so the header can be patched after the body is
// written.
func Assemble(src io.Reader, dst io.WriteSeeker) error {
	var hdr bytecode.Header
	if _, err := hdr.WriteTo(dst); err != nil {
		return fmt.Errorf("assembler: writing placeholder header: %w", err)
	}

	offset := int64(bytecode.HeaderSize)
	var funcStart, funcEnd int64

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineno := 0

	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		tok := fields[0]
		rest := strings.TrimLeft(strings.TrimPrefix(strings.TrimSpace(line), tok), " \t")

		n, err := assembleLine(dst, tok, rest, offset, lineno)
		if err != nil {
			return err
		}
		if tok == "OP_FUNCDEF" && funcStart == 0 {
			funcStart = offset
		}
		if tok == "OP_ENDFUNC" {
			funcEnd = offset + n
		}
		offset += n
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("assembler: reading IR: %w", err)
	}

	hdr = bytecode.Header{
		FuncSectionStart:      uint32(funcStart),
		FuncSectionEnd:        uint32(funcEnd),
		ExecutionSectionStart: bytecode.HeaderSize,
	}
	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("assembler: seeking back to patch header: %w", err)
	}
	if _, err := hdr.WriteTo(dst); err != nil {
		return fmt.Errorf("assembler: patching header: %w", err)
	}
	return nil
}

// assembleLine emits the bytes for one IR instruction and returns how many
// bytes were written.
func assembleLine(dst io.Writer, tok, rest string, offset int64, lineno int) (int64, error) {
	fields := strings.Fields(rest)

	switch tok {
	case "INT":
		if len(fields) < 1 {
			return 0, &Error{lineno, "INT missing operand"}
		}
		v, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return 0, &Error{lineno, "INT operand not an integer: " + fields[0]}
		}
		return writeTagged(dst, bytecode.OP_INT, int64ToBytes(v))

	case "FLOAT":
		if len(fields) < 1 {
			return 0, &Error{lineno, "FLOAT missing operand"}
		}
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0, &Error{lineno, "FLOAT operand not a number: " + fields[0]}
		}
		return writeTagged(dst, bytecode.OP_FLOAT, float64ToBytes(v))

	case "BOOL":
		if len(fields) < 1 {
			return 0, &Error{lineno, "BOOL missing operand"}
		}
		v, err := strconv.Atoi(fields[0])
		if err != nil {
			return 0, &Error{lineno, "BOOL operand not 0/1: " + fields[0]}
		}
		b := byte(0)
		if v != 0 {
			b = 1
		}
		return writeTagged(dst, bytecode.OP_BOOL, []byte{b})

	case "STR":
		return writeLenPrefixed(dst, bytecode.OP_STR, rest, lineno, 4)

	case "ID":
		return writeLenPrefixed(dst, bytecode.OP_ID, rest, lineno, 2)

	case "LOCAL":
		if len(fields) < 1 {
			return 0, &Error{lineno, "LOCAL missing operand"}
		}
		idx, err := strconv.Atoi(fields[0])
		if err != nil {
			return 0, &Error{lineno, "LOCAL operand not an integer: " + fields[0]}
		}
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(idx))
		return writeTagged(dst, bytecode.OP_LOCAL, buf)

	case "OP_JMP", "OP_JMPIF":
		if len(fields) < 1 {
			return 0, &Error{lineno, tok + " missing operand"}
		}
		delta, err := strconv.Atoi(fields[0])
		if err != nil {
			return 0, &Error{lineno, tok + " operand not an integer: " + fields[0]}
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(int32(delta)))
		op := bytecode.OP_JMP
		if tok == "OP_JMPIF" {
			op = bytecode.OP_JMPIF
		}
		return writeTagged(dst, op, buf)

	case "NUMARGS", "NUMVARS":
		if len(fields) < 1 {
			return 0, &Error{lineno, tok + " missing operand"}
		}
		count, err := strconv.Atoi(fields[0])
		if err != nil {
			return 0, &Error{lineno, tok + " operand not an integer: " + fields[0]}
		}
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(count))
		n, err := dst.Write(buf)
		return int64(n), err

	default:
		op, ok := bytecode.Lookup(tok)
		if !ok {
			return 0, &Error{lineno, "unknown mnemonic: " + tok}
		}
		n, err := dst.Write([]byte{byte(op)})
		return int64(n), err
	}
}

// writeLenPrefixed handles STR/ID, whose operand is `n text...`: the value
// is everything on the line after the length field verbatim (interior
// whitespace preserved), truncated to the declared length, matching the
// source assembler's behavior of taking the remainder of the line as one
// token.
func writeLenPrefixed(dst io.Writer, op bytecode.OpCode, rest string, lineno int, lenWidth int) (int64, error) {
	rest = strings.TrimLeft(rest, " \t")
	sep := strings.IndexAny(rest, " \t")
	var lenField, text string
	if sep == -1 {
		lenField = rest
	} else {
		lenField = rest[:sep]
		text = strings.TrimLeft(rest[sep:], " \t")
	}
	if lenField == "" {
		return 0, &Error{lineno, "missing length operand"}
	}
	n, err := strconv.Atoi(lenField)
	if err != nil {
		return 0, &Error{lineno, "length operand not an integer: " + lenField}
	}
	if len(text) < n {
		return 0, &Error{lineno, "declared length exceeds available text"}
	}
	payload := []byte(text)[:n]

	lenBuf := make([]byte, lenWidth)
	if lenWidth == 4 {
		binary.LittleEndian.PutUint32(lenBuf, uint32(n))
	} else {
		binary.LittleEndian.PutUint16(lenBuf, uint16(n))
	}

	total := int64(0)
	w, err := dst.Write([]byte{byte(op)})
	total += int64(w)
	if err != nil {
		return total, err
	}
	w, err = dst.Write(lenBuf)
	total += int64(w)
	if err != nil {
		return total, err
	}
	w, err = dst.Write(payload)
	total += int64(w)
	return total, err
}

func writeTagged(dst io.Writer, op bytecode.OpCode, operand []byte) (int64, error) {
	total := int64(0)
	n, err := dst.Write([]byte{byte(op)})
	total += int64(n)
	if err != nil {
		return total, err
	}
	n, err = dst.Write(operand)
	total += int64(n)
	return total, err
}

func int64ToBytes(v int64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))
	return buf
}

func float64ToBytes(v float64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	return buf
}
