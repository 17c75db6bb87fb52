package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsbframe/internal/app"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(strings.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRoot_DecodeArgs(t *testing.T) {
	stdout, _, err := execute(t, "", "--log-level", "error", "8D4840D6202CC371C32CE0576098")
	require.NoError(t, err)

	var doc struct {
		Address string `json:"address"`
		Payload struct {
			Message struct {
				Ident string `json:"ident"`
			} `json:"message"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, "4840d6", doc.Address)
	assert.Equal(t, "KLM1023 ", doc.Payload.Message.Ident)
}

func TestRoot_Stdin(t *testing.T) {
	stdout, _, err := execute(t, "*5D484FDEA248F5;\n", "--output", "text", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, stdout, "addr=484fde")
}

func TestRoot_SBS(t *testing.T) {
	stdout, _, err := execute(t, "", "-o", "sbs", "--log-level", "error", "8D485020994409940838175B284F")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "MSG,4,1,1,485020,"), stdout)
}

func TestRoot_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adsbframe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  format: text\nlog:\n  level: error\n"), 0644))

	stdout, _, err := execute(t, "", "--config", path, "5D484FDEA248F5")
	require.NoError(t, err)
	assert.Contains(t, stdout, "df=11")

	// Flags win over the file.
	stdout, _, err = execute(t, "", "--config", path, "--output", "json", "5D484FDEA248F5")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "{"), stdout)
}

func TestRoot_InvalidConfig(t *testing.T) {
	_, _, err := execute(t, "", "--output", "xml", "5D484FDEA248F5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestRoot_Version(t *testing.T) {
	stdout, _, err := execute(t, "", "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Version: "+app.Version)
}

func TestFlagKeys(t *testing.T) {
	cmd := newRootCommand(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	for name := range flagKeys {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}
