package commands

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ratsnake/internal/assembler"
	"ratsnake/internal/bytecode"
	"ratsnake/internal/diag"
	"ratsnake/internal/profile"
)

var disProfileDB string

var disCmd = &cobra.Command{
	Use:   "dis <image.rtskbin>",
	Short: "Disassemble a binary bytecode image",
	Args:  cobra.ExactArgs(1),
	RunE:  runDis,
}

func init() {
	rootCmd.AddCommand(disCmd)
	disCmd.Flags().StringVar(&disProfileDB, "profile-db", "", "overlay recorded opcode counts from a profiling database")
}

func runDis(_ *cobra.Command, args []string) error {
	path := args[0]
	image, err := os.ReadFile(path)
	if err != nil {
		return diag.Fatal(diag.IOError, err)
	}
	hdr, err := bytecode.ReadHeader(image)
	if err != nil {
		return diag.Fatal(diag.ImageFormatError, err)
	}
	if err := hdr.Validate(len(image)); err != nil {
		return diag.Fatal(diag.ImageFormatError, err)
	}

	fmt.Printf("; %s (%s)\n", path, humanize.Bytes(uint64(len(image))))
	fmt.Printf("; func_section   = [%d, %d)\n", hdr.FuncSectionStart, hdr.FuncSectionEnd)
	fmt.Printf("; execution_start = %d\n", hdr.ExecutionSectionStart)

	if disProfileDB != "" {
		if err := printProfileOverlay(disProfileDB); err != nil {
			return err
		}
	}

	return assembler.Disassemble(image, hdr, os.Stdout)
}

func printProfileOverlay(path string) error {
	store, err := profile.Open(path)
	if err != nil {
		return diag.Fatal(diag.IOError, err)
	}
	defer store.Close()

	hist, err := store.Aggregate()
	if err != nil {
		return diag.Fatal(diag.IOError, err)
	}
	fmt.Println("; opcode execution counts (all runs)")
	for _, h := range hist {
		fmt.Printf(";   %-16s %s\n", h.Opcode, humanize.Comma(int64(h.Count)))
	}
	return nil
}
