package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize is the fixed byte length of the leading image header.
const HeaderSize = 64

// Header is the 64-byte little-endian preamble of every image.
type Header struct {
	FuncSectionStart      uint32
	FuncSectionEnd        uint32
	ClassSectionStart     uint32 // reserved, always 0
	ClassSectionEnd       uint32 // reserved, always 0
	ExecutionSectionStart uint32
}

// WriteTo serializes h as the fixed-width header, zero-padded to HeaderSize.
func (h Header) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.FuncSectionStart)
	binary.LittleEndian.PutUint32(buf[4:8], h.FuncSectionEnd)
	binary.LittleEndian.PutUint32(buf[8:12], h.ClassSectionStart)
	binary.LittleEndian.PutUint32(buf[12:16], h.ClassSectionEnd)
	binary.LittleEndian.PutUint32(buf[16:20], h.ExecutionSectionStart)
	n, err := w.Write(buf)
	return int64(n), err
}

// ReadHeader parses the first HeaderSize bytes of buf.
func ReadHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("bytecode: image too short for header: %d bytes", len(buf))
	}
	return Header{
		FuncSectionStart:      binary.LittleEndian.Uint32(buf[0:4]),
		FuncSectionEnd:        binary.LittleEndian.Uint32(buf[4:8]),
		ClassSectionStart:     binary.LittleEndian.Uint32(buf[8:12]),
		ClassSectionEnd:       binary.LittleEndian.Uint32(buf[12:16]),
		ExecutionSectionStart: binary.LittleEndian.Uint32(buf[16:20]),
	}, nil
}

// Validate checks the structural invariants a well-formed image must
// satisfy relative to the total image size.
func (h Header) Validate(imageSize int) error {
	if h.ExecutionSectionStart != HeaderSize {
		return fmt.Errorf("bytecode: execution_section_start = %d, want %d", h.ExecutionSectionStart, HeaderSize)
	}
	if h.FuncSectionStart > h.FuncSectionEnd {
		return fmt.Errorf("bytecode: func_section_start %d > func_section_end %d", h.FuncSectionStart, h.FuncSectionEnd)
	}
	if int(h.FuncSectionEnd) > imageSize {
		return fmt.Errorf("bytecode: func_section_end %d exceeds image size %d", h.FuncSectionEnd, imageSize)
	}
	return nil
}
