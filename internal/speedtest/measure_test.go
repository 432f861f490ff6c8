package speedtest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/speedlog/pkg/errs"
)

type fakeRunner struct {
	out  []byte
	err  error
	name string
	args []string
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = args
	return f.out, f.err
}

func TestMeasure(t *testing.T) {
	runner := &fakeRunner{out: []byte(sampleJSON)}
	m := NewMeasurer(runner, "/opt/speedlog/bin/speedtest-cli", nil)

	result, err := m.Measure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/opt/speedlog/bin/speedtest-cli", runner.name)
	assert.Equal(t, []string{"--json"}, runner.args)
	assert.Equal(t, 50000000.0, result.Download)
}

func TestMeasureRunnerFailure(t *testing.T) {
	runner := &fakeRunner{err: errs.New(errs.KindSubprocess, "run speedtest", "exit status 1")}
	m := NewMeasurer(runner, "speedtest-cli", []string{"--json", "--secure"})

	result, err := m.Measure(context.Background())
	assert.Nil(t, result)
	assert.True(t, errs.Is(err, errs.KindSubprocess))
	assert.Equal(t, []string{"--json", "--secure"}, runner.args)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "speedtest-cli")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestOSRunnerOutput(t *testing.T) {
	script := writeScript(t, "echo \"$1\"\n")

	out, err := NewOSRunner(0).Output(context.Background(), script, "--json")
	require.NoError(t, err)
	assert.Equal(t, "--json\n", string(out))
}

func TestOSRunnerFailureCarriesStderr(t *testing.T) {
	script := writeScript(t, "echo 'Cannot retrieve speedtest configuration' >&2\nexit 1\n")

	_, err := NewOSRunner(0).Output(context.Background(), script)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindSubprocess))
	assert.Contains(t, err.Error(), "Cannot retrieve speedtest configuration")
}

func TestOSRunnerMissingBinary(t *testing.T) {
	_, err := NewOSRunner(0).Output(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindSubprocess))
}

func TestOSRunnerTimeout(t *testing.T) {
	script := writeScript(t, "exec sleep 5\n")

	start := time.Now()
	_, err := NewOSRunner(100*time.Millisecond).Output(context.Background(), script)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindSubprocess))
	assert.Less(t, time.Since(start), 4*time.Second)
}
