// Package commands implements the ratsnake CLI: run the external parser,
// assembler, and VM pipeline, or invoke the assembler and disassembler
// directly.
package commands

import (
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ratsnake",
	Short: "Assembler and VM for the ratsnake bytecode toolchain",
	Long: `ratsnake assembles textual IR into a binary bytecode image and
executes it on a stack-based virtual machine.

Given a .rtsk source file, the default pipeline invokes the external
source-language parser, assembles the resulting IR, and runs the image:

  ratsnake run program.rtsk

The assembler and disassembler are also available standalone:

  ratsnake asm program.bytecode program.rtskbin
  ratsnake dis program.rtskbin`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose diagnostic output")
}
