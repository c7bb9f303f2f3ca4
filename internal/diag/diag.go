// Package diag centralizes the diagnostic vocabulary used across the
// assembler, loader, and interpreter: the error kinds of §7, their
// recoverable/fatal split, and terminal-aware formatting.
package diag

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
)

// Kind identifies one of the documented diagnostic categories.
type Kind string

const (
	StaticIRError         Kind = "static-ir"
	ImageFormatError      Kind = "image-format"
	TypeError             Kind = "type"
	ArithmeticDomainError Kind = "arithmetic-domain"
	StackOverflowError    Kind = "stack-overflow"
	StackUnderflowError   Kind = "stack-underflow"
	NameError             Kind = "name"
	UnknownOpcodeError    Kind = "unknown-opcode"
	IOError               Kind = "io"
)

// Fatal reports whether diagnostics of this kind terminate the process
// rather than print-and-continue.
func (k Kind) Fatal() bool {
	switch k {
	case StaticIRError, ImageFormatError, StackOverflowError, UnknownOpcodeError, IOError:
		return true
	default:
		return false
	}
}

var colorEnabled = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

const (
	ansiRed    = "\033[0;31m"
	ansiYellow = "\033[0;33m"
	ansiReset  = "\033[0m"
)

func colorFor(k Kind) string {
	if k.Fatal() {
		return ansiRed
	}
	return ansiYellow
}

// Warn prints a recoverable diagnostic to stderr; execution is expected to
// continue.
func Warn(k Kind, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if colorEnabled {
		fmt.Fprintf(os.Stderr, "%sError [%s]: %s%s\n", colorFor(k), k, msg, ansiReset)
		return
	}
	fmt.Fprintf(os.Stderr, "Error [%s]: %s\n", k, msg)
}

// Fatal wraps err with its diagnostic kind, suitable for returning up to
// the CLI layer, which prints it and exits non-zero.
func Fatal(k Kind, err error) error {
	return errors.Wrapf(err, "fatal [%s]", k)
}

// Fatalf formats a fatal diagnostic directly.
func Fatalf(k Kind, format string, args ...any) error {
	return Fatal(k, fmt.Errorf(format, args...))
}
