package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/tagkit/internal/fixture"
)

// writeCorpus 把测试语料写成 TSV 文件（带表头）。
func writeCorpus(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("user\titem\ttag\tdate\n")
	for _, a := range fixture.Annotations() {
		fmt.Fprintf(&b, "%d\t%d\t%d\t%s\n", a.User, a.Item, a.Tag, a.Date.Format("2006-01-02 15:04:05"))
	}
	path := filepath.Join(t.TempDir(), "corpus.tsv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	root := NewRootCommand(&logs)
	root.SetOut(&out)
	root.SetErr(&logs)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), logs.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

func TestSetVersion(t *testing.T) {
	SetVersion("1.0.0", "abc123", "2024-01-01")
	defer SetVersion("", "", "")
	assert.Equal(t, "1.0.0", version)
	assert.Equal(t, "abc123", commit)
	assert.Equal(t, "2024-01-01", date)
}

func TestGlobalCmd(t *testing.T) {
	input := writeCorpus(t)
	out, logs, err := run(t, "global", "--input", input, "--header")
	require.NoError(t, err)

	rows := lines(out)
	require.Len(t, rows, 6)
	for i, row := range rows {
		fields := strings.Split(row, "\t")
		require.Len(t, fields, 3)
		assert.Equal(t, fmt.Sprint(i+1), fields[0])
	}
	assert.Contains(t, logs, "Indexed 10 annotations")
}

func TestPersonalizedCmd(t *testing.T) {
	input := writeCorpus(t)
	out, _, err := run(t, "personalized", "-i", input, "--header", "--user", "0", "--top", "2")
	require.NoError(t, err)
	assert.Len(t, lines(out), 2)

	_, _, err = run(t, "personalized", "-i", input, "--header")
	assert.Error(t, err, "--user is required")
}

func TestGContextCmd(t *testing.T) {
	out, _, err := run(t, "gcontext", "-i", writeCorpus(t), "--header", "-u", "1")
	require.NoError(t, err)
	assert.Len(t, lines(out), 6)
}

func TestItemsCmd(t *testing.T) {
	out, _, err := run(t, "items", "-i", writeCorpus(t), "--header", "-u", "0", "-n", "3")
	require.NoError(t, err)
	rows := lines(out)
	require.Len(t, rows, 3)
	assert.True(t, strings.HasPrefix(rows[0], "1\t"))
}

func TestExperimentCmd(t *testing.T) {
	input := writeCorpus(t)
	out, _, err := run(t, "experiment", "-i", input, "--header", "--users", "0,2")
	require.NoError(t, err)
	rows := lines(out)
	require.Len(t, rows, 3)
	assert.True(t, strings.HasPrefix(rows[0], "0\t"))
	assert.True(t, strings.HasPrefix(rows[1], "2\t"))
	assert.True(t, strings.HasPrefix(rows[2], "mean\t"))
}

func TestExperimentCmd_ConfigAndPersist(t *testing.T) {
	input := writeCorpus(t)
	cfgPath := filepath.Join(t.TempDir(), "tagvalue.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
estimator:
  smoothing: bayes
  lambda: 0.2
ranking:
  top_k: 3
experiment:
  parallelism: 3
`), 0o644))

	out, logs, err := run(t, "experiment", "-i", input, "--header", "-c", cfgPath, "--persist", "-v")
	require.NoError(t, err)
	assert.Len(t, lines(out), 4)
	assert.Contains(t, logs, "disabling estimator cache")
}

func TestRootErrors(t *testing.T) {
	_, _, err := run(t, "global")
	assert.Error(t, err, "--input is required")

	_, _, err = run(t, "global", "-i", filepath.Join(t.TempDir(), "missing.tsv"))
	assert.ErrorContains(t, err, "open input")

	_, _, err = run(t, "global", "-i", writeCorpus(t))
	assert.Error(t, err, "header parsed as a record")
}
