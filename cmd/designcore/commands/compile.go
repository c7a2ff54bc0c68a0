package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/qutlas/designcore/pkg/compiler"
	"github.com/qutlas/designcore/pkg/workspace"
)

func newCompileCommand() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "compile <workspace>",
		Short: "Compile a workspace into canonical geometry IR",
		Long: `Compile a workspace file (.cue, .yaml, or .yml) into the canonical
geometry IR and print its content hash.

The IR is deterministic: compiling an unchanged workspace always yields
the same hash, independent of object iteration order.`,
		Example: `  # Compile and print the IR hash
  designcore compile bracket.yaml

  # Print the full IR as JSON
  designcore compile bracket.cue --json

  # Write the IR to a file
  designcore compile bracket.yaml --out bracket.ir.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := workspace.NewLoader().Load(args[0])
			if err != nil {
				return err
			}

			ir := compiler.CompileWorkspace(ws.Part, ws.Objects)
			log.Info().
				Str("part", ir.Part).
				Int("operations", len(ir.Operations)).
				Int("constraints", len(ir.Constraints)).
				Str("hash", ir.Hash).
				Msg("Workspace compiled")

			if outFile != "" {
				data, err := json.MarshalIndent(ir, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode ir: %w", err)
				}
				if err := os.WriteFile(outFile, data, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", outFile, err)
				}
				return nil
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(ir)
			}

			fmt.Println(ir.Hash)
			return nil
		},
	}

	cmd.Flags().StringVar(&outFile, "out", "", "write the IR to a file")
	return cmd
}
