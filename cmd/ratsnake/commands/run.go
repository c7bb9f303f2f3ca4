package commands

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ratsnake/internal/bytecode"
	"ratsnake/internal/diag"
	"ratsnake/internal/loader"
	"ratsnake/internal/profile"
	"ratsnake/internal/trace"
	"ratsnake/internal/vm"
)

var (
	keepIR     bool
	keepBin    bool
	watchAddr  string
	profileDB  string
	parserPath string
)

var runCmd = &cobra.Command{
	Use:   "run <source.rtsk>",
	Short: "Run a source file through the parser, assembler, and VM",
	Args:  cobra.ExactArgs(1),
	RunE:  runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&keepIR, "keep-ir", false, "keep the intermediate .bytecode IR file")
	runCmd.Flags().BoolVar(&keepBin, "keep-bin", false, "keep the assembled .rtskbin image")
	runCmd.Flags().StringVar(&watchAddr, "watch", "", "serve a live instruction trace over websocket at ADDR")
	runCmd.Flags().StringVar(&profileDB, "profile-db", "", "record an opcode execution histogram to a SQLite database at PATH")
	runCmd.Flags().StringVar(&parserPath, "parser", "ratsnake-parse", "path to the external source-language parser executable")
}

func runPipeline(_ *cobra.Command, args []string) error {
	source := args[0]
	if ext := filepath.Ext(source); ext != ".rtsk" {
		return fmt.Errorf("source file %q must end in .rtsk", source)
	}

	base := strings.TrimSuffix(source, ".rtsk")
	irPath := base + ".bytecode"
	binPath := base + ".rtskbin"

	if err := invokeParser(source); err != nil {
		return diag.Fatal(diag.IOError, err)
	}
	if !keepIR {
		defer os.Remove(irPath)
	}

	if err := assembleFile(irPath, binPath); err != nil {
		return err
	}
	if !keepBin {
		defer os.Remove(binPath)
	}

	return runImage(binPath)
}

func invokeParser(source string) error {
	cmd := exec.Command(parserPath, "-i", source)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running external parser %q: %w", parserPath, err)
	}
	return nil
}

func runImage(binPath string) error {
	image, err := os.ReadFile(binPath)
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
	funcs, err := loader.Load(image, hdr)
	if err != nil {
		return diag.Fatal(diag.ImageFormatError, err)
	}

	m := vm.New(image, funcs, hdr)

	var profileStore *profile.Store
	if profileDB != "" {
		profileStore, err = profile.Open(profileDB)
		if err != nil {
			return diag.Fatal(diag.IOError, err)
		}
		defer profileStore.Close()
	}

	if watchAddr != "" {
		broadcaster := trace.NewBroadcaster(m.RunID)
		m.Hook = broadcaster
		go func() {
			if err := broadcaster.ListenAndServe(watchAddr); err != nil && verbose {
				fmt.Fprintf(os.Stderr, "trace server stopped: %v\n", err)
			}
		}()
	}

	runErr := m.Run()

	if profileStore != nil {
		if err := profileStore.Record(m.RunID, m.OpcodeCounts()); err != nil && verbose {
			fmt.Fprintf(os.Stderr, "profile: %v\n", err)
		}
	}

	return runErr
}
