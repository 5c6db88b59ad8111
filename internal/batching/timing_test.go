package batching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCycleTime(t *testing.T) {
	tests := []struct {
		name         string
		maxExtension float64
		wantMM       string
		wantSS       string
	}{
		{name: "pads both components", maxExtension: 125, wantMM: "03", wantSS: "05"},
		{name: "whole minutes", maxExtension: 300, wantMM: "06", wantSS: "00"},
		{name: "minutes above nine are not padded", maxExtension: 3660, wantMM: "62", wantSS: "00"},
		{name: "zero extension is the buffer alone", maxExtension: 0, wantMM: "01", wantSS: "00"},
		{name: "seconds above nine are not padded", maxExtension: 15, wantMM: "01", wantSS: "15"},
		{name: "fractional seconds truncate", maxExtension: 59.9, wantMM: "01", wantSS: "59"},
		{name: "two digit minutes", maxExtension: 540, wantMM: "10", wantSS: "00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mm, ss := CycleTime(tt.maxExtension)
			assert.Equal(t, tt.wantMM, mm)
			assert.Equal(t, tt.wantSS, ss)
		})
	}
}

func TestRoundBin(t *testing.T) {
	assert.Equal(t, 60.0, RoundBin(60))
	assert.Equal(t, 60.2, RoundBin(60.2))
	assert.Equal(t, 60.3, RoundBin(60.25))
	assert.Equal(t, 61.0, RoundBin(60.96))
	assert.Equal(t, 59.9, RoundBin(59.94))
}
