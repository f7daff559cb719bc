package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/joeycumines/go-winloop/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRun_recordVerifyReplay(t *testing.T) {
	dir := t.TempDir()
	recording := filepath.Join(dir, "events.jsonl")

	_, logs, err := execute(t, "run", "--record", recording, "--log-level", "debug")
	require.NoError(t, err, logs)
	assert.Contains(t, logs, "winloop: window created")
	assert.Contains(t, logs, "script finished")
	assert.Contains(t, logs, "all windows closed")
	assert.Contains(t, logs, `"kind":"KeyboardInput"`)
	assert.Contains(t, logs, `"kind":"ReceivedCharacter"`)

	out, _, err := execute(t, "verify", recording)
	require.NoError(t, err)
	assert.Contains(t, out, "events.jsonl: ok")

	replayed := filepath.Join(dir, "replay.jsonl")
	out, logs, err = execute(t, "replay", recording, "--out", replayed, "--log-level", "warning")
	require.NoError(t, err, logs)
	assert.Contains(t, out, "replayed ")

	out, _, err = execute(t, "verify", recording, replayed)
	require.NoError(t, err)
	assert.Contains(t, out, "replay.jsonl: ok")
}

func TestRun_maxIterations(t *testing.T) {
	_, logs, err := execute(t, "run", "--max-iterations", "1", "--control-flow", "poll")
	require.NoError(t, err, logs)
	assert.Contains(t, logs, "iteration limit reached")
	assert.Contains(t, logs, `"iterations":"1"`)
}

func TestRun_configFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "winloop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
loop:
  control_flow: wait_until
  tick: 5ms
log:
  level: info
windows:
  - title: one
  - title: two
    visible: false
`), 0o600))

	_, logs, err := execute(t, "run", "--config", path)
	require.NoError(t, err, logs)
	assert.Contains(t, logs, `"title":"one"`)
	assert.Contains(t, logs, `"title":"two"`)
	assert.Contains(t, logs, "all windows closed")
}

func TestRun_environment(t *testing.T) {
	t.Setenv("WINLOOP_BACKEND", "vulkan")
	_, _, err := execute(t, "run")
	assert.ErrorContains(t, err, `unknown backend "vulkan"`)
}

func TestRun_backendNotBuiltIn(t *testing.T) {
	if _, ok := backends[config.BackendGLFW]; ok {
		t.Skip("built with glfw")
	}
	_, _, err := execute(t, "run", "--backend", "glfw")
	assert.ErrorContains(t, err, `backend "glfw" is not built in`)
}

func TestConfig_print(t *testing.T) {
	out, _, err := execute(t, "config", "--format", "yaml", "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, "backend: synthetic")
	assert.Contains(t, out, "level: debug")

	dir := t.TempDir()
	path := filepath.Join(dir, "winloop.toml")
	require.NoError(t, os.WriteFile(path, []byte("[loop]\ncontrol_flow = \"poll\"\n"), 0o600))
	out, _, err = execute(t, "config", "-c", path, "-f", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"control_flow": "poll"`)

	// the printed configuration loads back
	saved := filepath.Join(dir, "saved.json")
	require.NoError(t, os.WriteFile(saved, []byte(out), 0o600))
	cfg, err := config.Load(saved)
	require.NoError(t, err)
	assert.Equal(t, config.FlowPoll, cfg.Loop.ControlFlow)
}

func TestVerify_invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"iter":1,"seq":1,"type":"NewEvents","kind":"Poll"}`+"\n"), 0o600))

	out, _, err := execute(t, "verify", path)
	assert.Error(t, err)
	assert.Contains(t, out, "FAIL")

	_, _, err = execute(t, "verify", filepath.Join(dir, "missing.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	empty := filepath.Join(dir, "empty.jsonl")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, _, err = execute(t, "replay", empty)
	assert.Error(t, err)
}

func TestExitError(t *testing.T) {
	assert.EqualError(t, &exitError{code: 70}, "loop exited with code 70")
}
