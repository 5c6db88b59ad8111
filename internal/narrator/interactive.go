package narrator

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/leapstack-labs/pcrbatch/internal/fulfillment"
	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

// Interactive prompts the operator on a terminal.
type Interactive struct {
	// Default is the suggested thermocycler name. Empty means DefaultThermocycler.
	Default string
	In      io.Reader
	Out     io.Writer
	// Accessible switches huh to plain line-based prompts.
	Accessible bool
}

var _ core.Narrator = (*Interactive)(nil)

// Narrate implements core.Narrator.
func (n *Interactive) Narrate(ctx context.Context, index int, plan *core.ReactionPlan) (core.NarrationResponse, error) {
	name := n.Default
	if name == "" {
		name = DefaultThermocycler
	}
	var cancel bool

	var body bytes.Buffer
	RenderStripwellTable(&body, plan.Stripwells)
	RenderBinTable(&body, plan)
	for _, step := range Steps(plan) {
		body.WriteString("• " + step + "\n")
	}

	fields := []huh.Field{
		huh.NewNote().Title(Title(index, plan)).Description(body.String()),
		huh.NewInput().
			Title("Enter the name of the thermocycler used").
			Value(&name).
			Validate(func(s string) error {
				// An empty accessible answer keeps the suggested name.
				if strings.TrimSpace(s) == "" && !n.Accessible {
					return errors.New("thermocycler name is required")
				}
				return nil
			}),
	}
	if fulfillment.IsGradient(plan) {
		fields = append(fields, huh.NewConfirm().
			Title("Cancel this batch?").
			Description("Cancel if something doesn't look right, for example if the thermocycler does not allow "+TemperatureRange(plan)+" C.").
			Affirmative("Yes").
			Negative("No").
			Value(&cancel))
	}

	form := huh.NewForm(huh.NewGroup(fields...)).WithAccessible(n.Accessible)
	if n.In != nil {
		in := n.In
		if n.Accessible {
			// huh scans each accessible field with a fresh bufio.Scanner.
			in = newLineReader(in)
		}
		form = form.WithInput(in)
	}
	if n.Out != nil {
		form = form.WithOutput(n.Out)
	}
	if err := form.RunWithContext(ctx); err != nil {
		return core.NarrationResponse{}, fmt.Errorf("operator prompt for PCR #%d failed: %w", index+1, err)
	}

	return core.NarrationResponse{Thermocycler: strings.TrimSpace(name), Cancel: cancel}, nil
}

// lineReader returns at most one line per Read so that a scanner created for
// one prompt cannot consume the answers meant for the next.
type lineReader struct {
	r       *bufio.Reader
	pending []byte
}

func newLineReader(r io.Reader) *lineReader {
	if lr, ok := r.(*lineReader); ok {
		return lr
	}
	return &lineReader{r: bufio.NewReader(r)}
}

func (l *lineReader) Read(p []byte) (int, error) {
	if len(l.pending) == 0 {
		line, err := l.r.ReadBytes('\n')
		if len(line) == 0 {
			return 0, err
		}
		l.pending = line
	}
	n := copy(p, l.pending)
	l.pending = l.pending[n:]
	return n, nil
}
