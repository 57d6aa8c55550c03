package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogtb/go-spreadsheet/packages/workbook"
)

const editScript = `
steps:
  - op: add_sheet
    sheet: Data
  - op: set
    sheet: Data
    cell: A2
    value: "1"
  - op: set
    sheet: Data
    cell: A5
    value: "5"
  - op: formula
    sheet: Data
    cell: A10
    formula: "=SUM(A2:A4)"
  - op: merge
    sheet: Data
    range: D6:E7
  - op: name
    name: Block
    refs: ["Data!$A$2:$C$4"]
  - op: name
    scope: sheet
    sheet: Data
    name: Local
    refs: ["A5"]
  - op: conditional_format
    sheet: Data
    type: cellIs
    operator: greaterThan
    formulas: ["5"]
    ranges: ["A5:C10"]
  - op: validation
    sheet: Data
    type: whole
    ranges: ["B3:B4"]
  - op: page_break
    sheet: Data
    at: 5
  - op: group_rows
    sheet: Data
    at: 2
    last: 3
  - op: insert_rows
    sheet: Data
    at: 3
    count: 2
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	configPath = ""
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestApplyPrintsStructure(t *testing.T) {
	script := writeFile(t, "script.yaml", editScript)

	stdout, stderr, err := runCLI(t, "apply", script)
	require.NoError(t, err)

	assert.Equal(t, `sheet Data (position 1)
  used A2:A12
  A2 1
  A7 5
  A12 =SUM(A2:A6)
  merge D8:E9
  name Local = A7
  conditional cellIs A7:C12
  validation whole B5:B6
  row breaks 7
  column breaks -
  row outline depth 1
name Block = Data!$A$2:$C$6
`, stdout)
	assert.Contains(t, stderr, "shift applied")
	assert.Contains(t, stderr, "cells_moved=2")
}

func TestApplyWithConfig(t *testing.T) {
	script := writeFile(t, "script.yaml", editScript)
	config := writeFile(t, "config.yaml", "log_level: error\nculture: de-DE\n")

	_, stderr, err := runCLI(t, "apply", "--config", config, script)
	require.NoError(t, err)
	assert.Empty(t, stderr)

	config = writeFile(t, "bad.yaml", "log_level: loud\n")
	_, _, err = runCLI(t, "apply", "--config", config, script)
	assert.True(t, workbook.IsAppError(err, workbook.InvalidArgument))
}

func TestApplyReportsFailingStep(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		expected string
	}{
		{"unknown op", "steps:\n  - op: explode\n", "invalid script"},
		{"no worksheet", "steps:\n  - op: set\n    cell: A1\n    value: x\n", "step 1 (set)"},
		{"single cell merge", "steps:\n  - op: add_sheet\n  - op: merge\n    range: A1\n", "step 2 (merge)"},
		{"bad axis", "steps:\n  - op: page_break\n    axis: diagonal\n", "invalid script"},
		{"malformed yaml", "steps: [", "parse script"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := writeFile(t, "script.yaml", tt.script)
			_, _, err := runCLI(t, "apply", script)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expected)
		})
	}

	_, _, err := runCLI(t, "apply", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read script")
}

func TestScriptStructuralSteps(t *testing.T) {
	script, err := ParseScript([]byte(`
steps:
  - op: add_sheet
  - op: set
    cell: C3
    value: "TRUE"
  - op: insert_columns
    at: 2
  - op: delete_rows
    at: 1
  - op: page_break
    axis: columns
    at: 4
  - op: delete_columns
    at: 1
    count: 1
`))
	require.NoError(t, err)

	wb, err := workbook.NewWorkbook(workbook.WithLimits(workbook.Limits{MaxRow: 50, MaxColumn: 10}))
	require.NoError(t, err)
	require.NoError(t, script.Apply(wb, slog.New(slog.NewTextHandler(io.Discard, nil))))

	ws, ok := wb.Worksheet("Sheet1")
	require.True(t, ok)
	v, err := ws.Get("C2")
	require.NoError(t, err)
	assert.Equal(t, "TRUE", v.String())

	var out bytes.Buffer
	PrintStructure(&out, wb)
	assert.Contains(t, out.String(), "column breaks 3")
}

func TestVersion(t *testing.T) {
	stdout, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "gridedit dev\n", stdout)
}
