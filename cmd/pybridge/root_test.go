package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/pybridge/internal/pyfake"
)

type result struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	a.runtime = pyfake.New()

	cmd := newRootCommand(a)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	return exitErr.Code
}

func TestEval(t *testing.T) {
	res := execute(t, "eval", "1 + 2")
	require.NoError(t, res.err)
	assert.Equal(t, "3\n", res.stdout)
}

func TestEval_JSON(t *testing.T) {
	res := execute(t, "eval", "--json", "[1, 'a']")
	require.NoError(t, res.err)

	var env map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &env))
	assert.Equal(t, []any{float64(1), "a"}, env["value"])
	assert.Equal(t, "list", env["type"])

	res = execute(t, "eval", "--json", "1 / 0")
	assert.Equal(t, 1, exitCode(t, res.err))
	assert.Contains(t, res.stdout, `"code":"ZeroDivisionError"`)
}

func TestExec(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		wantCode   int
		wantStderr string
	}{
		{name: "success", code: "x = 1"},
		{name: "exit zero", code: "raise SystemExit(0)"},
		{name: "exit three", code: "raise SystemExit(3)", wantCode: 3},
		{name: "exit one", code: "raise SystemExit(1)", wantCode: 1},
		{name: "exit message", code: "raise SystemExit('stopped')", wantCode: 1, wantStderr: "stopped"},
		{name: "exception", code: "raise ValueError('bad value')", wantCode: 1, wantStderr: "ValueError: bad value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, "exec", "-c", tt.code)
			if tt.wantCode == 0 {
				require.NoError(t, res.err)
				return
			}
			assert.Equal(t, tt.wantCode, exitCode(t, res.err))
			if tt.wantStderr == "" {
				assert.Empty(t, res.stderr)
				return
			}
			assert.Contains(t, res.stderr, tt.wantStderr)
		})
	}

	assert.ErrorContains(t, execute(t, "exec").err, "requires -c")
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "job.py")
	require.NoError(t, os.WriteFile(script, []byte("import sys\nraise SystemExit(len(sys.argv))\n"), 0o600))

	res := execute(t, "run", script, "--one", "two")
	assert.Equal(t, 3, exitCode(t, res.err))

	assert.Error(t, execute(t, "run", filepath.Join(dir, "missing.py")).err)
	assert.Error(t, execute(t, "run").err)
}

func TestModule(t *testing.T) {
	res := execute(t, "module", "no_such_module")
	assert.Equal(t, 1, exitCode(t, res.err))
	assert.Contains(t, res.stderr, "ImportError")
}

func TestConfigSchema(t *testing.T) {
	res := execute(t, "config", "schema")
	require.NoError(t, res.err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &schema))
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "log_level")
	assert.Contains(t, props, "sandbox")
}

func TestConfigCheck(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(good, []byte("log_level: warn\n"), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte("log_level: loud\n"), 0o600))

	res := execute(t, "config", "check", good)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "good.yaml: ok")

	res = execute(t, "config", "check", bad)
	assert.Equal(t, 1, exitCode(t, res.err))
	assert.Contains(t, res.stderr, "log_level")
}

func TestConfigShow_Overrides(t *testing.T) {
	res := execute(t, "--set", "home=/opt/py", "--set", "argv=[tool, -v]", "config", "show")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "home: /opt/py")
	assert.Contains(t, res.stdout, "- tool")

	res = execute(t, "--set", "nonsense", "config", "show")
	assert.ErrorContains(t, res.err, "KEY=VALUE")

	res = execute(t, "--set", "log_level=loud", "config", "show")
	assert.Error(t, res.err)
}

func TestSandbox_RequiresModule(t *testing.T) {
	res := execute(t, "sandbox", "-c", "print(1)")
	assert.ErrorContains(t, res.err, "no interpreter module")

	res = execute(t, "sandbox")
	assert.ErrorContains(t, res.err, "requires a file or -c")

	res = execute(t, "sandbox", "--module", filepath.Join(t.TempDir(), "python.wasm"), "-c", "x = 1")
	assert.ErrorContains(t, res.err, "failed to read")
}

func TestReportExit(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 0, reportExit(&stderr, nil))
	assert.Equal(t, 3, reportExit(&stderr, &ExitError{Code: 3}))
	assert.Empty(t, stderr.String())

	assert.Equal(t, 1, reportExit(&stderr, assert.AnError))
	assert.Contains(t, stderr.String(), "pybridge: "+assert.AnError.Error())
}
