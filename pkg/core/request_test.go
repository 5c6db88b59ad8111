package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr string
	}{
		{name: "valid", req: Request{ID: "r1", ExtensionTime: 60, AnnealTemperature: 61.5}},
		{name: "zero extension is allowed", req: Request{ID: "r1", ExtensionTime: 0, AnnealTemperature: 55}},
		{name: "missing id", req: Request{ExtensionTime: 60, AnnealTemperature: 60}, wantErr: "id is required"},
		{name: "negative extension", req: Request{ID: "r1", ExtensionTime: -1, AnnealTemperature: 60}, wantErr: "extension time"},
		{name: "NaN extension", req: Request{ID: "r1", ExtensionTime: math.NaN(), AnnealTemperature: 60}, wantErr: "extension time"},
		{name: "NaN anneal", req: Request{ID: "r1", ExtensionTime: 60, AnnealTemperature: math.NaN()}, wantErr: "anneal temperature"},
		{name: "infinite anneal", req: Request{ID: "r1", ExtensionTime: 60, AnnealTemperature: math.Inf(1)}, wantErr: "anneal temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSortRequests(t *testing.T) {
	reqs := []Request{
		{ID: "c", AnnealTemperature: 65},
		{ID: "b", AnnealTemperature: 60},
		{ID: "a", AnnealTemperature: 60},
		{ID: "d", AnnealTemperature: 58.5},
	}

	SortRequests(reqs)

	assert.Equal(t, []string{"d", "a", "b", "c"}, RequestIDs(reqs))
}

func TestFailure_String(t *testing.T) {
	f := Failure{RequestID: "r1", Kind: FailureBatchingIssue}
	assert.Equal(t, "failed: batching_issue", f.String())
}
