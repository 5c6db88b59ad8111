// Package narrator presents reaction plans to the bench operator and collects
// the thermocycler they used and whether they cancelled the run.
package narrator

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/pcrbatch/internal/fulfillment"
	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

// DefaultThermocycler is suggested when the operator does not name one.
const DefaultThermocycler = "TC1"

// Title returns the heading for plan at zero-based index.
func Title(index int, plan *core.ReactionPlan) string {
	if !fulfillment.IsGradient(plan) {
		return fmt.Sprintf("Start PCR #%d at %s C", index+1, formatTemp(plan.LowestTemperature()))
	}
	return fmt.Sprintf("Start PCR #%d (gradient) over range %s C", index+1, TemperatureRange(plan))
}

// TemperatureRange renders the gradient range as "first-last".
func TemperatureRange(plan *core.ReactionPlan) string {
	return formatTemp(plan.LowestTemperature()) + "-" + formatTemp(plan.HighestTemperature())
}

// Steps returns the operator checklist for plan.
func Steps(plan *core.ReactionPlan) []string {
	var steps []string
	if !fulfillment.IsGradient(plan) {
		steps = append(steps,
			fmt.Sprintf("Place the stripwell(s) %s into an available thermal cycler and close the lid.", stripwellList(plan)),
			"Click 'Home' then click 'Saved Protocol'. Choose 'YY' and then 'CLONEPCR'.",
			fmt.Sprintf("Set the anneal temperature to %s C. This is the 3rd temperature.", formatTemp(plan.LowestTemperature())),
		)
	} else {
		steps = append(steps,
			"Click 'Home' then click 'Saved Protocol'. Choose 'YY' and then 'CLONEPCR'.",
			"Click on annealing temperature -> options, and check the gradient checkbox.",
			fmt.Sprintf("Set the annealing temperature range to be %s C.", TemperatureRange(plan)),
		)
		for _, sw := range plan.Stripwells {
			steps = append(steps, fmt.Sprintf("Place the stripwell %s into a row of the thermocycler with the temperature as close as possible to %s C.", sw.ID, formatTemp(sw.Temperature)))
		}
	}
	steps = append(steps,
		fmt.Sprintf("Set the 4th time (extension time) to be %s.", plan.ExtensionClock()),
		"Press 'Run' and select 50 uL.",
	)
	return steps
}

// RenderInstructions writes the full operator instructions for plan to w:
// the title, the stripwell and loading tables and the checklist.
func RenderInstructions(w io.Writer, index int, plan *core.ReactionPlan) {
	_, _ = fmt.Fprintln(w, Title(index, plan))
	_, _ = fmt.Fprintln(w)

	RenderStripwellTable(w, plan.Stripwells)
	RenderBinTable(w, plan)

	if fulfillment.IsGradient(plan) {
		_, _ = fmt.Fprintln(w, "Cancel this PCR batch if something doesn't look right, for example if the thermocycler does not allow this temperature range.")
		_, _ = fmt.Fprintln(w, "The following stripwells are ordered front to back.")
	}
	for _, step := range Steps(plan) {
		_, _ = fmt.Fprintf(w, "  [ ] %s\n", step)
	}
	_, _ = fmt.Fprintln(w)
}

// RenderStripwellTable writes the stripwell preparation table.
func RenderStripwellTable(w io.Writer, strips []*core.Stripwell) {
	if len(strips) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Stripwell", "Bin (C)", "Wells to pipette"})
	for _, sw := range strips {
		t.AppendRow(table.Row{
			fmt.Sprintf("%s (%d wells)", sw.ID, sw.Capacity()),
			formatTemp(sw.Temperature),
			sw.NonEmptyWells(),
		})
	}
	t.Render()
}

// RenderBinTable writes the loading table: one row per request with its bin,
// stripwell and well.
func RenderBinTable(w io.Writer, plan *core.ReactionPlan) {
	if len(plan.Bins) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Bin (C)", "Request", "Anneal (C)", "Stripwell", "Well"})
	for _, bin := range plan.Bins {
		for _, req := range bin.Requests {
			strip, well := locate(plan, req.ID)
			t.AppendRow(table.Row{formatTemp(bin.Temperature), req.ID, formatTemp(req.AnnealTemperature), strip, well})
		}
	}
	t.Render()
}

func locate(plan *core.ReactionPlan, requestID string) (string, string) {
	for _, sw := range plan.Stripwells {
		if _, col, ok := sw.PositionOf(requestID); ok {
			return sw.ID, strconv.Itoa(col + 1)
		}
	}
	return "-", "-"
}

func stripwellList(plan *core.ReactionPlan) string {
	ids := make([]string, len(plan.Stripwells))
	for i, sw := range plan.Stripwells {
		ids[i] = sw.ID
	}
	return strings.Join(ids, ", ")
}

func formatTemp(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
