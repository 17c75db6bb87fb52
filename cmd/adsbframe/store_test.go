package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedStore decodes a few frames into a new store and returns its path.
func seedStore(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "frames.db")
	_, _, err := execute(t, "", "--log-level", "error", "--store", path,
		"8D4840D6202CC371C32CE0576098",
		"8D485020994409940838175B284F",
		"5D484FDEA248F5",
	)
	require.NoError(t, err)
	return path
}

func TestQuery_Text(t *testing.T) {
	path := seedStore(t)

	stdout, _, err := execute(t, "", "query", "--store", path, "--address", "0x4840D6")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "8d4840d6202cc371c32ce0576098 df=17 addr=4840d6 crc=true extended_squitter tc=4 identification")
	assert.NotContains(t, lines[0], "sig=")
}

func TestQuery_JSONFilters(t *testing.T) {
	path := seedStore(t)

	stdout, _, err := execute(t, "", "query", "--store", path, "--df", "11", "--format", "json")
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(stdout)), &doc))
	assert.Equal(t, "484fde", doc["address"])

	stdout, _, err = execute(t, "", "query", "--store", path, "--kind", "airborne_velocity", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"address":"485020"`)

	stdout, _, err = execute(t, "", "query", "--store", path, "--limit", "1", "--desc")
	require.NoError(t, err)
	assert.Contains(t, stdout, "5d484fdea248f5")
	assert.Equal(t, 1, strings.Count(stdout, "\n"))
}

func TestQuery_Invalid(t *testing.T) {
	path := seedStore(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"Missing store", []string{"query"}, "--store is required"},
		{"DF out of range", []string{"query", "--store", path, "--df", "32"}, "invalid df"},
		{"Bad address", []string{"query", "--store", path, "--address", "zz"}, "not a hex string"},
		{"Bad format", []string{"query", "--store", path, "--format", "xml"}, "invalid format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStats_Text(t *testing.T) {
	path := seedStore(t)

	stdout, _, err := execute(t, "", "stats", "--store", path)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Total frames:   3\n")
	// The DF 11 parity carries the interrogator id.
	assert.Contains(t, stdout, "CRC mismatches: 1\n")
	assert.Contains(t, stdout, "  df11 1\n")
	assert.Contains(t, stdout, "  df17 2\n")
	assert.Contains(t, stdout, "identification")
}

func TestStats_JSON(t *testing.T) {
	path := seedStore(t)

	stdout, _, err := execute(t, "", "stats", "--store", path, "--format", "json")
	require.NoError(t, err)

	var doc struct {
		TotalFrames   int            `json:"total_frames"`
		ByDF          map[string]int `json:"by_df"`
		ByMessageKind map[string]int `json:"by_message_kind"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, 3, doc.TotalFrames)
	assert.Equal(t, map[string]int{"11": 1, "17": 2}, doc.ByDF)
	assert.Equal(t, map[string]int{"identification": 1, "airborne_velocity": 1}, doc.ByMessageKind)
}

func TestStats_MissingStore(t *testing.T) {
	_, _, err := execute(t, "", "stats")
	assert.ErrorContains(t, err, "--store is required")
}
