package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/qutlas/designcore/pkg/sequencer"
)

func newSequenceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sequence <intent.json>",
		Short: "Build an ordered operation sequence from a design intent",
		Long: `Read a design intent file (base geometry plus features) and emit the
ordered operation list the execution engine would run.

Dependency problems (missing references, self references, cycles) are
reported as issues alongside the best-effort ordering; they never abort
sequencing.`,
		Example: `  # Print the operation sequence
  designcore sequence intent.json

  # Print as JSON for tooling
  designcore sequence intent.json --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, issues, err := buildSequence(args[0])
			if err != nil {
				return err
			}

			for _, issue := range issues {
				log.Warn().
					Str("kind", string(issue.Kind)).
					Str("operation", issue.OperationID).
					Msg(issue.Message)
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Operations []sequencer.Operation `json:"operations"`
					Issues     []sequencer.Issue     `json:"issues,omitempty"`
				}{ops, issues})
			}

			for i, op := range ops {
				deps := ""
				if len(op.DependsOn) > 0 {
					deps = fmt.Sprintf("  (after %v)", op.DependsOn)
				}
				fmt.Printf("%2d. [%s] %s %s%s\n", i+1, op.Category, op.ID, op.Operation, deps)
			}
			return nil
		},
	}

	return cmd
}

func buildSequence(path string) ([]sequencer.Operation, []sequencer.Issue, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read intent: %w", err)
	}

	var di sequencer.DesignIntent
	if err := json.Unmarshal(content, &di); err != nil {
		return nil, nil, fmt.Errorf("failed to parse intent %s: %w", path, err)
	}

	ops, err := sequencer.NewBuilder().BuildSequence(&di)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid design intent: %w", err)
	}

	ordered, issues := sequencer.Resolve(ops)
	return ordered, issues, nil
}
