package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pcrbatch/internal/cli/output"
	"github.com/leapstack-labs/pcrbatch/internal/state"
	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

// NewBatchesCommand creates the batches command.
func NewBatchesCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List recent batches",
		Long:  `List recently processed batches with their status and number of runs.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatches(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of batches to list")
	cmd.AddCommand(newBatchShowCommand())

	return cmd
}

type batchRow struct {
	*core.Batch
	Plans int `json:"plans"`
}

func runBatches(cmd *cobra.Command, limit int) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	store, err := cc.OpenStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	batches, err := store.ListBatches(limit)
	if err != nil {
		return err
	}

	rows := make([]batchRow, 0, len(batches))
	for _, b := range batches {
		n, err := store.CountPlans(b.ID)
		if err != nil {
			return err
		}
		rows = append(rows, batchRow{Batch: b, Plans: n})
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(rows)
	}

	if len(rows) == 0 {
		r.Println("No batches recorded yet. Run 'pcrbatch plan <batch-file>' first.")
		return nil
	}
	r.Header(1, fmt.Sprintf("Batches (%d)", len(rows)))
	table := make([][]string, 0, len(rows))
	for _, b := range rows {
		status := string(b.Status)
		if b.Error != "" {
			status += ": " + b.Error
		}
		table = append(table, []string{
			b.ID,
			status,
			strconv.Itoa(b.Requests),
			strconv.Itoa(b.Plans),
			b.StartedAt.Local().Format(time.DateTime),
		})
	}
	r.Table([]string{"Batch", "Status", "Requests", "Runs", "Started"}, table)
	return nil
}

func newBatchShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show the runs and failures of one batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatchShow(cmd, args[0])
		},
	}
}

type batchDetail struct {
	*core.Batch
	Plans    []state.PlanSummary `json:"plans"`
	Failures []core.Failure      `json:"failures"`
}

func runBatchShow(cmd *cobra.Command, id string) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	store, err := cc.OpenStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	batch, err := store.GetBatch(id)
	if err != nil {
		return err
	}
	plans, err := store.ListPlans(id)
	if err != nil {
		return err
	}
	failures, err := store.ListFailures(id)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(batchDetail{Batch: batch, Plans: plans, Failures: failures})
	}

	r.Header(1, "Batch "+batch.ID)
	r.KeyValue("Status", string(batch.Status))
	r.KeyValue("Requests", strconv.Itoa(batch.Requests))
	r.Println("")

	rows := make([][]string, 0, len(plans))
	for _, p := range plans {
		temps := make([]string, len(p.Bins))
		for i, t := range p.Bins {
			temps[i] = strconv.FormatFloat(t, 'f', 1, 64)
		}
		where := p.Thermocycler
		if p.Cancelled {
			where = "cancelled"
		}
		rows = append(rows, []string{
			strconv.Itoa(p.Position + 1),
			p.Extension,
			strings.Join(temps, ", "),
			strconv.Itoa(p.Stripwells),
			where,
		})
	}
	r.Table([]string{"PCR", "Extension", "Bins (C)", "Stripwells", "Thermocycler"}, rows)

	if len(failures) > 0 {
		r.Println("")
		r.Header(2, fmt.Sprintf("Failed requests (%d)", len(failures)))
		renderFailures(r, failures)
	}
	return nil
}
