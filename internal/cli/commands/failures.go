package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pcrbatch/internal/cli/output"
	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

// NewFailuresCommand creates the failures command.
func NewFailuresCommand() *cobra.Command {
	var batchID string

	cmd := &cobra.Command{
		Use:   "failures",
		Short: "List requests that failed and need resubmitting",
		Long: `List every request recorded as failed, with the reason. Failed requests
were not run and can be submitted again in a later batch.`,
		Example: `  # Failures across all batches
  pcrbatch failures

  # Failures of one batch as JSON
  pcrbatch failures --batch 3f0c... -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFailures(cmd, batchID)
		},
	}

	cmd.Flags().StringVar(&batchID, "batch", "", "Only list failures of this batch")

	return cmd
}

func runFailures(cmd *cobra.Command, batchID string) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	store, err := cc.OpenStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	failures, err := store.ListFailures(batchID)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		if failures == nil {
			failures = []core.Failure{}
		}
		return r.JSON(failures)
	}

	if len(failures) == 0 {
		r.Success("no failed requests")
		return nil
	}
	r.Header(1, fmt.Sprintf("Failed requests (%d)", len(failures)))
	renderFailures(r, failures)
	return nil
}
