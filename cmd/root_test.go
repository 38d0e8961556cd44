package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rvkernel/internal/config"
	"rvkernel/internal/dependency"
	"rvkernel/internal/services"
)

const vehicleTopology = `
logging:
  level: warn
services:
  - name: can-bus
    safety: critical
  - name: brakes
    safety: critical
    requires: [can-bus]
  - name: drive
    safety: operational
    requires: [can-bus, brakes]
  - name: nav
    requires: [map-db]
    optional: [gps]
    runtime: [telemetry]
    fallbacks:
      map-db: offline-maps
  - name: offline-maps
  - name: gps
`

func writeTopology(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// executeCommand runs the root command with args and returns its standard
// output. Logs go to standard error and are discarded. Package-level flag
// values persist between executions, so they are reset first.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	checkStrict = false
	simulateFail = nil
	simulateDuration = 0

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	_, err := rootCmd.ExecuteC()
	return buf.String(), err
}

func TestSetVersion(t *testing.T) {
	original := GetVersion()
	defer SetVersion(original)

	SetVersion("1.2.3-test")
	assert.Equal(t, "1.2.3-test", rootCmd.Version)
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "rvkernel", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}
	for _, name := range []string{"version", "plan", "graph", "check", "impact", "simulate"} {
		assert.True(t, found[name], "missing subcommand %s", name)
	}
}

func TestVersionCommand(t *testing.T) {
	original := GetVersion()
	defer SetVersion(original)
	SetVersion("0.4.0")

	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "rvkernel version 0.4.0\n", out)
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: ExitCodeSuccess},
		{name: "general", err: errors.New("boom"), want: ExitCodeError},
		{name: "config load", err: &config.LoadError{ErrorType: "parse"}, want: ExitCodeConfig},
		{
			name: "missing dependency",
			err:  fmt.Errorf("resolve: %w", &dependency.ConfigurationError{Missing: map[string][]string{"a": {"b"}}}),
			want: ExitCodeConfig,
		},
		{name: "cycle", err: &dependency.CycleError{Cycles: [][]string{{"a", "b"}}}, want: ExitCodeCycle},
		{name: "startup", err: &services.StartupError{Stage: 1}, want: ExitCodeStartup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getExitCode(tt.err))
		})
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	path := writeTopology(t, vehicleTopology)
	_, err := executeCommand(t, "plan", "-c", path, "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestNoTopology(t *testing.T) {
	path := writeTopology(t, "logging:\n  level: info\n")
	_, err := executeCommand(t, "plan", "-c", path, "-o", "table")
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoTopology)
	assert.Equal(t, ExitCodeError, getExitCode(err))
}
