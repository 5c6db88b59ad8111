package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

func TestVerifyCoverage(t *testing.T) {
	a, b := req("a", 60, 60), req("b", 60, 65)
	live := &core.ReactionPlan{Bins: []core.Bin{{Temperature: 60, Requests: []core.Request{a}}}}
	cancelled := &core.ReactionPlan{Cancelled: true, Bins: []core.Bin{{Temperature: 65, Requests: []core.Request{b}}}}

	tests := []struct {
		name    string
		result  *Result
		wantErr string
	}{
		{
			name: "placed or failed",
			result: &Result{
				Plans:    []*core.ReactionPlan{live, cancelled},
				Failures: []core.Failure{{RequestID: "b", Kind: core.FailureBatchingIssue}},
			},
		},
		{
			name:    "neither",
			result:  &Result{Plans: []*core.ReactionPlan{live}},
			wantErr: "b is neither placed nor failed",
		},
		{
			name: "both",
			result: &Result{
				Plans: []*core.ReactionPlan{live},
				Failures: []core.Failure{
					{RequestID: "a", Kind: core.FailureBatchingIssue},
					{RequestID: "b", Kind: core.FailureNoPrimer},
				},
			},
			wantErr: "a is both placed and failed",
		},
		{
			name: "placed twice",
			result: &Result{
				Plans:    []*core.ReactionPlan{live, live},
				Failures: []core.Failure{{RequestID: "b", Kind: core.FailureNoPrimer}},
			},
			wantErr: "a is placed 2 times",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyCoverage([]core.Request{a, b}, tt.result)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrCoverage)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
