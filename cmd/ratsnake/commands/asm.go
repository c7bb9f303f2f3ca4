package commands

import (
	"github.com/spf13/cobra"
)

var asmCmd = &cobra.Command{
	Use:   "asm <ir-file> <out.rtskbin>",
	Short: "Assemble a textual IR file into a binary bytecode image",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		return assembleFile(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(asmCmd)
}
