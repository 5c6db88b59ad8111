package commands

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pcrbatch/internal/cli/output"
	"github.com/leapstack-labs/pcrbatch/internal/engine"
	"github.com/leapstack-labs/pcrbatch/internal/fulfillment"
	"github.com/leapstack-labs/pcrbatch/internal/grouper"
	"github.com/leapstack-labs/pcrbatch/internal/loader"
	"github.com/leapstack-labs/pcrbatch/internal/metrics"
	"github.com/leapstack-labs/pcrbatch/internal/narrator"
	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

type planOptions struct {
	yes     bool
	noState bool
	cancel  []int
}

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	var opts planOptions

	cmd := &cobra.Command{
		Use:   "plan <batch-file>",
		Short: "Batch PCR requests onto thermocycler runs",
		Long: `Group the reactions in a batch file into thermocycler runs, assign each
run its annealing temperature bins and extension time, lay out stripwells and
walk the operator through starting every run.

Requests that cannot be scheduled are recorded as failed ("failed: no_primer",
"failed: batching_issue") so they can be resubmitted in a later batch.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # Plan a batch, answering prompts with defaults
  pcrbatch plan batch.yaml --yes

  # Prompt the operator for every run
  pcrbatch plan batch.yaml --interactive

  # Cancel the second run without prompting
  pcrbatch plan batch.yaml --yes --cancel 2

  # Emit the result as JSON and keep Prometheus metrics
  pcrbatch plan batch.yaml -o json --metrics-out metrics.prom`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Answer operator prompts without asking")
	cmd.Flags().IntSliceVar(&opts.cancel, "cancel", nil, "Run numbers (1-based) the operator cancels")
	cmd.Flags().BoolVar(&opts.noState, "no-state", false, "Do not record the batch in the state database")
	cmd.Flags().String("metrics-out", "", "Write Prometheus metrics for the batch to this file")
	cmd.Flags().Int("max-bins", 0, "Maximum temperature bins per run (1-8)")
	cmd.Flags().String("thermocycler", "", "Thermocycler name reported for every run")
	cmd.Flags().Bool("interactive", false, "Prompt the operator for every run")

	return cmd
}

func runPlan(cmd *cobra.Command, path string, opts planOptions) error {
	cc := NewCommandContext(cmd)
	cfg := cc.Cfg
	r := cc.Renderer

	batch, err := loader.LoadFile(path)
	if err != nil {
		return err
	}

	engCfg := engine.Config{
		Grouper: grouper.NewGreedy(grouper.Config{
			ExtensionWindow: cfg.Grouper.ExtensionWindow,
			MaxGradientSpan: cfg.Grouper.MaxGradientSpan,
			RowTolerance:    cfg.Grouper.RowTolerance,
			MaxRows:         cfg.Batching.MaxBins,
			Logger:          cc.Logger,
		}),
		MaxBins:  cfg.Batching.MaxBins,
		Producer: &fulfillment.StripwellProducer{Wells: cfg.Fulfillment.StripwellWells},
		Narrator: newNarrator(cmd, cc, opts),
		Metrics:  metrics.New(),
		Logger:   cc.Logger,
	}

	if !opts.noState {
		store, err := cc.OpenStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		engCfg.Store = store
	}

	start := time.Now()
	result, err := engine.New(engCfg).Process(cmd.Context(), batch)
	if err != nil {
		return fmt.Errorf("failed to process batch: %w", err)
	}
	cc.Logger.Debug("batch processed", "duration", time.Since(start).String())

	for _, planErr := range result.PlanErrors {
		r.Warning(planErr.Error())
	}

	if cfg.MetricsOut != "" {
		if err := writeMetrics(engCfg.Metrics, cfg.MetricsOut); err != nil {
			return err
		}
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(newBatchOutput(result))
	default:
		renderResult(r, result)
		return nil
	}
}

// newNarrator picks the operator interaction for the run. Instructions go to
// stderr in JSON mode so stdout stays machine readable.
func newNarrator(cmd *cobra.Command, cc *CommandContext, opts planOptions) core.Narrator {
	if cc.Cfg.Narrator.Interactive && !opts.yes {
		return &narrator.Interactive{
			Default:    cc.Cfg.Narrator.Thermocycler,
			In:         cmd.InOrStdin(),
			Out:        cmd.ErrOrStderr(),
			Accessible: !cc.Renderer.IsTTY(),
		}
	}

	var out io.Writer = cmd.OutOrStdout()
	if cc.Renderer.EffectiveMode() == output.ModeJSON {
		out = cmd.ErrOrStderr()
	}
	cancel := make(map[int]bool, len(opts.cancel))
	for _, n := range opts.cancel {
		cancel[n-1] = true
	}
	return &narrator.Scripted{
		Thermocycler: cc.Cfg.Narrator.Thermocycler,
		Cancel:       cancel,
		Out:          out,
	}
}

func writeMetrics(c *metrics.Collector, path string) error {
	f, err := os.Create(path) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	if err := c.WriteText(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// batchOutput is the JSON shape of a processed batch.
type batchOutput struct {
	BatchID  string         `json:"batch_id"`
	Plans    []planOutput   `json:"plans"`
	Failures []core.Failure `json:"failures"`
}

type planOutput struct {
	ID           string      `json:"id"`
	Extension    string      `json:"extension"`
	Gradient     bool        `json:"gradient"`
	Bins         []binOutput `json:"bins"`
	Thermocycler string      `json:"thermocycler,omitempty"`
	Cancelled    bool        `json:"cancelled"`
	Stripwells   []string    `json:"stripwells"`
}

type binOutput struct {
	Temperature float64  `json:"temperature"`
	Requests    []string `json:"requests"`
}

func newBatchOutput(result *engine.Result) batchOutput {
	out := batchOutput{
		BatchID:  result.BatchID,
		Plans:    make([]planOutput, 0, len(result.Plans)),
		Failures: result.Failures,
	}
	if out.Failures == nil {
		out.Failures = []core.Failure{}
	}
	for _, p := range result.Plans {
		po := planOutput{
			ID:           p.ID,
			Extension:    p.ExtensionClock(),
			Gradient:     fulfillment.IsGradient(p),
			Thermocycler: p.Thermocycler,
			Cancelled:    p.Cancelled,
			Stripwells:   make([]string, 0, len(p.Stripwells)),
		}
		for _, b := range p.Bins {
			po.Bins = append(po.Bins, binOutput{Temperature: b.Temperature, Requests: core.RequestIDs(b.Requests)})
		}
		for _, sw := range p.Stripwells {
			po.Stripwells = append(po.Stripwells, sw.ID)
		}
		out.Plans = append(out.Plans, po)
	}
	return out
}

func renderResult(r *output.Renderer, result *engine.Result) {
	r.Println("")
	r.Header(1, fmt.Sprintf("Batch %s (%d runs)", result.BatchID, len(result.Plans)))
	r.Println("")

	for i, p := range result.Plans {
		r.Header(2, fmt.Sprintf("PCR #%d", i+1))
		r.KeyValue("Extension", p.ExtensionClock())
		r.KeyValue("Bins", formatBins(p))
		if p.Cancelled {
			r.KeyValue("Status", "cancelled")
		} else {
			r.KeyValue("Thermocycler", p.Thermocycler)
		}
		r.KeyValue("Stripwells", strconv.Itoa(len(p.Stripwells)))
		r.Println("")
	}

	if len(result.Failures) == 0 {
		r.Success("every request was scheduled")
		return
	}
	r.Header(2, fmt.Sprintf("Failed requests (%d)", len(result.Failures)))
	for _, kind := range slices.Sorted(maps.Keys(result.FailureCounts)) {
		r.KeyValue(string(kind), strconv.Itoa(result.FailureCounts[kind]))
	}
	r.Println("")
	renderFailures(r, result.Failures)
}

func formatBins(p *core.ReactionPlan) string {
	parts := make([]string, len(p.Bins))
	for i, b := range p.Bins {
		parts[i] = fmt.Sprintf("%.1f (%d)", b.Temperature, len(b.Requests))
	}
	return strings.Join(parts, ", ")
}

func renderFailures(r *output.Renderer, failures []core.Failure) {
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{f.RequestID, f.String(), f.Message})
	}
	r.Table([]string{"Request", "Status", "Message"}, rows)
}
