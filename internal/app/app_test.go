// internal/app/app_test.go
package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func specEnv(t *testing.T, body string) func(string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return func(key string) string {
		if key == EnvSpec {
			return path
		}
		return ""
	}
}

func TestExitOK(t *testing.T) {
	getenv := specEnv(t, `
runs:
  - name: ok
    upsilon: 2/1
    beta: 3/1
    steps: 3
`)
	require.Equal(t, ExitOK, RunContext(context.Background(), getenv, nil))
}

func TestExitConfigMissingSpec(t *testing.T) {
	getenv := func(string) string { return filepath.Join(t.TempDir(), "absent.yaml") }
	require.Equal(t, ExitConfig, RunContext(context.Background(), getenv, nil))
}

func TestExitConfigBadSpec(t *testing.T) {
	getenv := specEnv(t, `
runs:
  - name: bad
    upsilon: 2/1
    beta: 3/1
    propagation: sideways
`)
	require.Equal(t, ExitConfig, RunContext(context.Background(), getenv, nil))
}

func TestExitRuntimeOnFailedRun(t *testing.T) {
	// A zero upsilon register arms the transform into a division by zero at
	// the first step boundary.
	getenv := specEnv(t, `
runs:
  - name: degenerate
    upsilon: 0/1
    beta: 3/1
    koppa: 1/1
    steps: 3
`)
	require.Equal(t, ExitRuntime, RunContext(context.Background(), getenv, nil))
}

func TestExitRuntimeOnBadStreamPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sweep.yaml")
	body := `
snapshots: ` + filepath.Join(dir, "missing", "deep", "out.jsonl") + `
runs:
  - name: ok
    upsilon: 2/1
    beta: 3/1
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	getenv := func(string) string { return path }
	require.Equal(t, ExitRuntime, RunContext(context.Background(), getenv, nil))
}

func TestExitInterrupted(t *testing.T) {
	getenv := specEnv(t, `
runs:
  - name: ok
    upsilon: 2/1
    beta: 3/1
    steps: 50
`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, ExitInterrupted, RunContext(ctx, getenv, nil))
}

func TestDefaultSpecPath(t *testing.T) {
	t.Chdir(t.TempDir())
	body := `
runs:
  - name: ok
    upsilon: 2/1
    beta: 3/1
    steps: 2
`
	require.NoError(t, os.WriteFile(DefaultSpecPath, []byte(body), 0o644))
	require.Equal(t, ExitOK, RunContext(context.Background(), func(string) string { return "" }, nil))
}
