package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleInstance = `6 2 7
1 2 3 6 5 4
5 2 2
0 1 2 3 4
4 3 1
0 2 3 5
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "bookscan.yaml")
	data := "log:\n  level: error\n" +
		"grasp:\n  time_limit_seconds: 0.01\n  local_search_seconds: 0.002\n" +
		"genetic:\n  population_size: 4\n  generations: 2\n" +
		"runs:\n  path: " + filepath.Join(dir, "runs.jsonl") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestScoreCommand(t *testing.T) {
	dir := t.TempDir()
	inst := filepath.Join(dir, "a_example.txt")
	sub := filepath.Join(dir, "a_example.out")
	require.NoError(t, os.WriteFile(inst, []byte(exampleInstance), 0o644))
	require.NoError(t, os.WriteFile(sub, []byte("2\n1 3\n5 2 3\n0 2\n4 1\n"), 0o644))

	out, err := execute(t, "score", "-c", writeConfig(t, dir), inst, sub)
	require.NoError(t, err)
	assert.Equal(t, "20\n", out)
}

func TestScoreCommand_RejectsOverCapacity(t *testing.T) {
	dir := t.TempDir()
	inst := filepath.Join(dir, "a_example.txt")
	sub := filepath.Join(dir, "bad.out")
	require.NoError(t, os.WriteFile(inst, []byte(exampleInstance), 0o644))
	// library 0 only has two scanning days left, four books at most
	require.NoError(t, os.WriteFile(sub, []byte("2\n1 3\n5 2 3\n0 5\n0 1 2 3 4\n"), 0o644))

	_, err := execute(t, "score", "-c", writeConfig(t, dir), inst, sub)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capacity")
}

func TestSolveThenRunsLs(t *testing.T) {
	dir := t.TempDir()
	cfgFile := writeConfig(t, dir)
	inst := filepath.Join(dir, "a_example.txt")
	require.NoError(t, os.WriteFile(inst, []byte(exampleInstance), 0o644))
	sub := filepath.Join(dir, "a_example.out")

	out, err := execute(t, "solve", "-c", cfgFile, "--seed", "3", "--check", "-o", sub, inst)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "a_example: score "), out)
	_, err = os.Stat(sub)
	require.NoError(t, err)

	scored, err := execute(t, "score", "-c", cfgFile, inst, sub)
	require.NoError(t, err)
	assert.Contains(t, out, "score "+strings.TrimSpace(scored)+" ")

	out, err = execute(t, "runs", "ls", "-c", cfgFile, "--instance", "a_example")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "solve")
	assert.Contains(t, lines[1], "a_example")
}

func TestBatchCommand_NoMatch(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "batch", "-c", writeConfig(t, dir), filepath.Join(dir, "*.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no instance matches")
}
