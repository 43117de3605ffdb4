package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/resque-go/internal/failure"
)

func writeConfig(t *testing.T, addr string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resquectl.yaml")
	content := fmt.Sprintf(`
redis:
  addr: %s
  namespace: resque
logging:
  level: error
  format: json
  output: stderr
worker:
  queues: ["*"]
`, addr)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := BuildCLI()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBuildCLI(t *testing.T) {
	cmd := BuildCLI()

	assert.Equal(t, "resquectl", cmd.Use)

	names := make(map[string]bool)
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"enqueue", "queues", "status", "stats", "failures", "work"} {
		assert.True(t, names[want], "missing %s command", want)
	}

	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestParseArgs(t *testing.T) {
	got := ParseArgs([]string{"42", `"42"`, "abc", `{"a":1}`, "[1,2]", "true", "1 2"})

	require.Len(t, got, 7)
	assert.Equal(t, json.Number("42"), got[0])
	assert.Equal(t, "42", got[1])
	assert.Equal(t, "abc", got[2])
	assert.Equal(t, map[string]any{"a": json.Number("1")}, got[3])
	assert.Equal(t, []any{json.Number("1"), json.Number("2")}, got[4])
	assert.Equal(t, true, got[5])
	assert.Equal(t, "1 2", got[6])
}

func TestEnqueueQueuesAndWork(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := writeConfig(t, mr.Addr())

	out, err := execute(t, cfg, "enqueue", "default", "Echo", "hello", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "enqueued Echo on default")

	out, err = execute(t, cfg, "enqueue", "default", "Missing")
	require.NoError(t, err)

	out, err = execute(t, cfg, "enqueue", "--monitor", "critical", "Sleep", "0")
	require.NoError(t, err)
	require.Contains(t, out, "(id ")
	id := strings.TrimSuffix(strings.SplitN(out, "(id ", 2)[1], ")\n")
	assert.Len(t, id, 32)

	out, err = execute(t, cfg, "queues")
	require.NoError(t, err)
	assert.Contains(t, out, "QUEUE")
	assert.Regexp(t, `critical\s+1`, out)
	assert.Regexp(t, `default\s+2`, out)

	out, err = execute(t, cfg, "status", id)
	require.NoError(t, err)
	assert.Equal(t, id+" waiting\n", out)

	out, err = execute(t, cfg, "work", "--queues", "critical,default", "--concurrency", "1")
	require.NoError(t, err)
	assert.Equal(t, "processed: 2 failed: 1\n", out)

	out, err = execute(t, cfg, "status", id)
	require.NoError(t, err)
	assert.Equal(t, id+" complete\n", out)

	out, err = execute(t, cfg, "stats")
	require.NoError(t, err)
	assert.Equal(t, "processed: 2\nfailed: 1\n", out)

	out, err = execute(t, cfg, "failures")
	require.NoError(t, err)
	var f failure.Failure
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &f))
	assert.Equal(t, "default", f.Queue)
	assert.Equal(t, "job.ResolutionError", f.Exception)

	out, err = execute(t, cfg, "failures", "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "failures cleared")

	out, err = execute(t, cfg, "queues", "--remove", "default")
	require.NoError(t, err)
	assert.Contains(t, out, "removed default")
}

func TestStatus_UntrackedJob(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := writeConfig(t, mr.Addr())

	_, err := execute(t, cfg, "status", "0123456789abcdef0123456789abcdef")
	assert.ErrorContains(t, err, "is not tracked")
}

func TestEnqueue_RequiresQueueAndClass(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := writeConfig(t, mr.Addr())

	_, err := execute(t, cfg, "enqueue", "default")
	assert.Error(t, err)
}

func TestMissingConfig(t *testing.T) {
	_, err := execute(t, filepath.Join(t.TempDir(), "missing.yaml"), "stats")
	assert.ErrorContains(t, err, "failed to load config")
}
