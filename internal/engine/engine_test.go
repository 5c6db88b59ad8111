package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pcrbatch/internal/batching"
	"github.com/leapstack-labs/pcrbatch/internal/loader"
	"github.com/leapstack-labs/pcrbatch/internal/metrics"
	"github.com/leapstack-labs/pcrbatch/internal/narrator"
	"github.com/leapstack-labs/pcrbatch/internal/state"
	"github.com/leapstack-labs/pcrbatch/internal/testutil"
	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

func req(id string, ext, anneal float64) core.Request {
	return core.Request{ID: id, ExtensionTime: ext, AnnealTemperature: anneal}
}

// fixedGrouper returns groups regardless of input, standing in for an
// external clustering library.
func fixedGrouper(groups []core.RunGroup) core.Grouper {
	return core.GrouperFunc(func(context.Context, []core.Request) ([]core.RunGroup, error) {
		return groups, nil
	})
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func scenarioA() ([]core.Request, []core.RunGroup) {
	r1, r2, r3 := req("req1", 60, 60), req("req2", 60, 60.2), req("req3", 120, 65)
	return []core.Request{r1, r2, r3}, []core.RunGroup{{
		Descriptor: core.RunDescriptor{MaxExtension: 120},
		Rows: []core.RowGroup{
			{MinAnneal: 60, Members: []core.Request{r1, r2}},
			{MinAnneal: 65, Members: []core.Request{r3}},
		},
	}}
}

func TestProcess_ScenarioA(t *testing.T) {
	reqs, groups := scenarioA()
	e := New(Config{
		Grouper:  fixedGrouper(groups),
		Narrator: &narrator.Scripted{Thermocycler: "TC2"},
		Logger:   testutil.NewTestLogger(t),
		NewID:    sequentialIDs(),
	})

	result, err := e.Process(context.Background(), &loader.Batch{Requests: reqs})
	require.NoError(t, err)
	require.Len(t, result.Plans, 1)

	plan := result.Plans[0]
	assert.Equal(t, []float64{60.0, 65.0}, plan.Temperatures())
	assert.Equal(t, "03", plan.CycleMinutes)
	assert.Equal(t, "00", plan.CycleSeconds)
	assert.Equal(t, "TC2", plan.Thermocycler)
	assert.Len(t, plan.Stripwells, 2)
	for _, sw := range plan.Stripwells {
		assert.Equal(t, "TC2", sw.Location)
	}
	assert.Empty(t, result.Failures)
	assert.NoError(t, VerifyCoverage(reqs, result))
}

func TestProcess_ScenarioB_TrimsHottestBin(t *testing.T) {
	var reqs []core.Request
	var rows []core.RowGroup
	for i := 0; i < 9; i++ {
		r := req(fmt.Sprintf("r%d", i), 60, 55+float64(i))
		reqs = append(reqs, r)
		rows = append(rows, core.RowGroup{MinAnneal: r.AnnealTemperature, Members: []core.Request{r}})
	}
	groups := []core.RunGroup{{Descriptor: core.RunDescriptor{MaxExtension: 60}, Rows: rows}}

	collector := metrics.New()
	e := New(Config{
		Grouper: fixedGrouper(groups),
		Metrics: collector,
		Logger:  testutil.NewTestLogger(t),
	})

	result, err := e.Process(context.Background(), &loader.Batch{Requests: reqs})
	require.NoError(t, err)
	require.Len(t, result.Plans, 1)
	assert.Len(t, result.Plans[0].Bins, batching.MaxBins)
	assert.Equal(t, 62.0, result.Plans[0].HighestTemperature())

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "r8", result.Failures[0].RequestID)
	assert.Equal(t, core.FailureBatchingIssue, result.Failures[0].Kind)
	assert.Equal(t, batching.TrimMessage, result.Failures[0].Message)
	assert.Equal(t, map[core.FailureKind]int{core.FailureBatchingIssue: 1}, result.FailureCounts)
	assert.NoError(t, VerifyCoverage(reqs, result))

	var buf bytes.Buffer
	require.NoError(t, collector.WriteText(&buf))
	assert.Contains(t, buf.String(), "pcrbatch_bins_trimmed_total 1")
	assert.Contains(t, buf.String(), "pcrbatch_requests_total 9")
}

func TestProcess_ScenarioC_OperatorCancel(t *testing.T) {
	reqs, groups := scenarioA()
	e := New(Config{
		Grouper:  fixedGrouper(groups),
		Narrator: &narrator.Scripted{Cancel: map[int]bool{0: true}},
		Logger:   testutil.NewTestLogger(t),
	})

	result, err := e.Process(context.Background(), &loader.Batch{Requests: reqs})
	require.NoError(t, err)

	plan := result.Plans[0]
	assert.True(t, plan.Cancelled)
	assert.Equal(t, []float64{60.0, 65.0}, plan.Temperatures(), "bins are not re-trimmed")
	assert.Empty(t, plan.Thermocycler)
	for _, sw := range plan.Stripwells {
		assert.True(t, sw.Voided)
	}

	require.Len(t, result.Failures, 3)
	for _, f := range result.Failures {
		assert.Equal(t, core.FailureBatchingIssue, f.Kind)
	}
	assert.NoError(t, VerifyCoverage(reqs, result))
}

func TestProcess_Exclusions(t *testing.T) {
	excluded := req("noprimer", 60, 58)
	batch := &loader.Batch{
		Requests: []core.Request{req("a", 60, 60), req("b", 60, 60.4)},
		Exclusions: []core.Exclusion{
			{Request: excluded, Kind: core.FailureNoPrimer, Message: loader.NoPrimerMessage},
		},
	}

	e := New(Config{Logger: testutil.NewTestLogger(t)})
	result, err := e.Process(context.Background(), batch)
	require.NoError(t, err)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "noprimer", result.Failures[0].RequestID)
	assert.Equal(t, core.FailureNoPrimer, result.Failures[0].Kind)
	for _, plan := range result.Plans {
		for _, r := range plan.Requests() {
			assert.NotEqual(t, "noprimer", r.ID)
		}
	}
	assert.NoError(t, VerifyCoverage(AllRequests(batch), result))
}

func TestProcess_DefaultGrouperAvoidsTrimming(t *testing.T) {
	tests := []struct {
		name      string
		maxBins   int
		wantPlans int
	}{
		{"hardware limit", 0, 2},
		{"configured limit", 4, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := &loader.Batch{}
			for i := 0; i < 10; i++ {
				batch.Requests = append(batch.Requests, req(fmt.Sprintf("r%d", i), 60, 50+1.1*float64(i)))
			}

			result, err := New(Config{MaxBins: tt.maxBins, Logger: testutil.NewTestLogger(t)}).Process(context.Background(), batch)
			require.NoError(t, err)

			assert.Empty(t, result.Failures)
			require.Len(t, result.Plans, tt.wantPlans)
			for _, plan := range result.Plans {
				assert.Empty(t, plan.TrimmedBins)
			}
			assert.NoError(t, VerifyCoverage(AllRequests(batch), result))
		})
	}
}

type failingProducer struct {
	failAt float64
}

func (p failingProducer) Produce(_ context.Context, _ string, bin core.Bin) ([]*core.Stripwell, error) {
	if bin.Temperature == p.failAt {
		return nil, errors.New("out of stripwells")
	}
	return []*core.Stripwell{{ID: "sw", Temperature: bin.Temperature}}, nil
}

func TestProcess_ProducerFailureIsPlanLocal(t *testing.T) {
	a, b := req("a", 60, 60), req("b", 300, 70)
	groups := []core.RunGroup{
		{Descriptor: core.RunDescriptor{MaxExtension: 60}, Rows: []core.RowGroup{{MinAnneal: 60, Members: []core.Request{a}}}},
		{Descriptor: core.RunDescriptor{MaxExtension: 300}, Rows: []core.RowGroup{{MinAnneal: 70, Members: []core.Request{b}}}},
	}

	e := New(Config{
		Grouper:  fixedGrouper(groups),
		Producer: failingProducer{failAt: 70},
		Logger:   testutil.NewTestLogger(t),
	})
	result, err := e.Process(context.Background(), &loader.Batch{Requests: []core.Request{a, b}})
	require.NoError(t, err)

	require.Len(t, result.PlanErrors, 1)
	assert.Contains(t, result.PlanErrors[0].Error(), "out of stripwells")
	assert.False(t, result.Plans[0].Cancelled)
	assert.Equal(t, narrator.DefaultThermocycler, result.Plans[0].Thermocycler)
	assert.True(t, result.Plans[1].Cancelled)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "b", result.Failures[0].RequestID)
}

func TestProcess_GrouperError(t *testing.T) {
	e := New(Config{Logger: testutil.NewTestLogger(t)})

	_, err := e.Process(context.Background(), &loader.Batch{
		Requests: []core.Request{req("dup", 60, 60), req("dup", 60, 61)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidRequest)
}

type erroringNarrator struct{}

func (erroringNarrator) Narrate(context.Context, int, *core.ReactionPlan) (core.NarrationResponse, error) {
	return core.NarrationResponse{}, errors.New("operator walked away")
}

func TestProcess_PersistsToStore(t *testing.T) {
	store := state.NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	defer store.Close()

	reqs, groups := scenarioA()
	e := New(Config{
		Grouper:  fixedGrouper(groups),
		Narrator: &narrator.Scripted{Cancel: map[int]bool{0: true}},
		Store:    store,
		Logger:   testutil.NewTestLogger(t),
	})
	result, err := e.Process(context.Background(), &loader.Batch{Requests: reqs})
	require.NoError(t, err)
	require.NotEmpty(t, result.BatchID)

	batch, err := store.GetBatch(result.BatchID)
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusCompleted, batch.Status)
	assert.Equal(t, 3, batch.Requests)

	n, err := store.CountPlans(result.BatchID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	failures, err := store.ListFailures(result.BatchID)
	require.NoError(t, err)
	assert.Len(t, failures, 3)
}

func TestProcess_NarratorErrorFailsBatch(t *testing.T) {
	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	defer store.Close()

	reqs, groups := scenarioA()
	e := New(Config{
		Grouper:  fixedGrouper(groups),
		Narrator: erroringNarrator{},
		Store:    store,
		Logger:   testutil.NewTestLogger(t),
	})
	result, err := e.Process(context.Background(), &loader.Batch{Requests: reqs})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operator walked away")

	batch, err := store.GetBatch(result.BatchID)
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusFailed, batch.Status)
	assert.Contains(t, batch.Error, "operator walked away")
}

func TestProcess_NilBatch(t *testing.T) {
	_, err := New(Config{}).Process(context.Background(), nil)
	assert.ErrorIs(t, err, loader.ErrEmptyBatch)
}

func TestProcess_CoverageViolation(t *testing.T) {
	a, b := req("a", 60, 60), req("b", 60, 61)
	// The grouper drops b entirely.
	groups := []core.RunGroup{{
		Descriptor: core.RunDescriptor{MaxExtension: 60},
		Rows:       []core.RowGroup{{MinAnneal: 60, Members: []core.Request{a}}},
	}}

	e := New(Config{Grouper: fixedGrouper(groups), Logger: testutil.NewTestLogger(t)})
	_, err := e.Process(context.Background(), &loader.Batch{Requests: []core.Request{a, b}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCoverage)
}
