package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

func TestExtensionForLength(t *testing.T) {
	tests := []struct {
		length int
		want   float64
	}{
		{length: 0, want: 0},
		{length: 1000, want: 30},
		{length: 2000, want: 60},
		{length: 1500, want: 45},
		{length: 1033, want: 30},
		{length: 4000, want: 120},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtensionForLength(tt.length), "length %d", tt.length)
	}
}

func TestParse(t *testing.T) {
	doc := `
requests:
  - id: op-1
    length: 2000
    forward_anneal: 62.4
    reverse_anneal: 60.0
  - id: op-2
    extension_time: 120
    anneal_temperature: 65
  - id: op-3
    length: 1000
    forward_anneal: 58
    reverse_anneal: 59
    missing_primer: true
`
	batch, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []core.Request{
		{ID: "op-1", ExtensionTime: 60, AnnealTemperature: 60.0},
		{ID: "op-2", ExtensionTime: 120, AnnealTemperature: 65},
	}, batch.Requests)

	require.Len(t, batch.Exclusions, 1)
	assert.Equal(t, "op-3", batch.Exclusions[0].Request.ID)
	assert.Equal(t, core.FailureNoPrimer, batch.Exclusions[0].Kind)
	assert.Equal(t, NoPrimerMessage, batch.Exclusions[0].Message)
}

func TestParse_JSON(t *testing.T) {
	doc := `{"requests": [{"id": "j1", "length": 3000, "anneal_temperature": 61.5}]}`

	batch, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []core.Request{{ID: "j1", ExtensionTime: 90, AnnealTemperature: 61.5}}, batch.Requests)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "empty document", doc: "", wantErr: "no requests"},
		{name: "empty list", doc: "requests: []", wantErr: "no requests"},
		{name: "unknown field", doc: "requests:\n  - id: a\n    lenght: 10\n", wantErr: "lenght"},
		{name: "no extension", doc: "requests:\n  - id: a\n    anneal_temperature: 60\n", wantErr: "length or extension_time"},
		{name: "one primer only", doc: "requests:\n  - id: a\n    length: 100\n    forward_anneal: 60\n", wantErr: "reverse_anneal"},
		{name: "missing id", doc: "requests:\n  - length: 100\n    anneal_temperature: 60\n", wantErr: "id is required"},
		{name: "negative length", doc: "requests:\n  - id: a\n    length: -5\n    anneal_temperature: 60\n", wantErr: "non-negative"},
		{name: "duplicate id", doc: "requests:\n  - {id: a, length: 1, anneal_temperature: 60}\n  - {id: a, length: 1, anneal_temperature: 61}\n", wantErr: "duplicate id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_ErrorCarriesEntry(t *testing.T) {
	_, err := Parse(strings.NewReader("requests:\n  - {id: ok, length: 1, anneal_temperature: 60}\n  - {id: bad, length: 1}\n"))
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Index)
	assert.Equal(t, "bad", pe.ID)
	assert.Contains(t, pe.Error(), "request 2 (bad)")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("requests:\n  - {id: a, length: 2000, anneal_temperature: 60}\n"), 0o600))

	batch, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, batch.Requests, 1)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read batch file")
}
