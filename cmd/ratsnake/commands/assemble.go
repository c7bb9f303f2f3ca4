package commands

import (
	"fmt"
	"os"

	"ratsnake/internal/assembler"
	"ratsnake/internal/diag"
)

// assembleFile assembles the textual IR at irPath into a binary image at
// binPath, shared by the `run` and `asm` subcommands.
func assembleFile(irPath, binPath string) error {
	in, err := os.Open(irPath)
	if err != nil {
		return diag.Fatal(diag.IOError, err)
	}
	defer in.Close()

	out, err := os.Create(binPath)
	if err != nil {
		return diag.Fatal(diag.IOError, err)
	}
	defer out.Close()

	if err := assembler.Assemble(in, out); err != nil {
		return diag.Fatal(diag.StaticIRError, fmt.Errorf("assembling %s: %w", irPath, err))
	}
	return nil
}
