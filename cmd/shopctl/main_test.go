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
)

func runCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestNormalizeStdin(t *testing.T) {
	out, stderr, err := runCommand(t, "```json\n{\"machining_steps\":[{\"operation\":\"Face\",\"estimated_cost\":\"7.5\"}]}\n```", "normalize")
	require.NoError(t, err)

	var doc struct {
		Steps     []map[string]any `json:"steps"`
		TotalCost float64          `json:"total_cost"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Steps, 1)
	assert.Equal(t, "Face", doc.Steps[0]["description"])
	assert.Equal(t, 7.5, doc.TotalCost)
	assert.Contains(t, stderr, "fenced stage, machining_steps layout")
}

func TestNormalizeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answer.txt")
	require.NoError(t, os.WriteFile(path, []byte(`[{"description":"Drill","cost":2},{"description":"Tap","cost":3}]`), 0o644))

	out, _, err := runCommand(t, "", "normalize", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"total_cost": 5`)
}

func TestNormalizeUnparseable(t *testing.T) {
	_, _, err := runCommand(t, "I cannot help with that.", "normalize")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not parse")
}
