package docker_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/kernelmatrix/internal/docker"
	"github.com/signalnine/kernelmatrix/internal/runner"
)

func requireDocker(t *testing.T) {
	t.Helper()
	if os.Getenv("KERNELMATRIX_DOCKER_TESTS") == "" {
		t.Skip("set KERNELMATRIX_DOCKER_TESTS=1 to run Docker tests")
	}
}

func TestRunContainer(t *testing.T) {
	requireDocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	workDir := t.TempDir()
	var out bytes.Buffer
	res, err := docker.RunContainer(ctx, &docker.RunOpts{
		Image:   "alpine:latest",
		Command: []string{"sh", "-c", "echo hello > output.txt; echo logged"},
		WorkDir: workDir,
		Timeout: 30 * time.Second,
		Output:  &out,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.TimedOut)
	assert.Contains(t, out.String(), "logged")

	content, err := os.ReadFile(filepath.Join(workDir, "output.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(content))
}

func TestRunContainerTimeout(t *testing.T) {
	requireDocker(t)
	res, err := docker.RunContainer(context.Background(), &docker.RunOpts{
		Image:   "alpine:latest",
		Command: []string{"sleep", "300"},
		WorkDir: t.TempDir(),
		Timeout: 2 * time.Second,
	})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, runner.StatusTimeout, res.ExitCode)
}

func TestExecutorExitCode(t *testing.T) {
	requireDocker(t)
	workDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "kernel"), []byte("#!/bin/sh\necho \"n=$1\"\nexit 3\n"), 0o755))

	// alpine has no MPI launcher
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "launch"), []byte("#!/bin/sh\nshift 2\nexec \"$@\"\n"), 0o755))
	e := docker.NewExecutor("alpine:latest", workDir)
	var logBuf bytes.Buffer
	out := e.Execute(context.Background(), &runner.Command{
		Launcher:    "./launch",
		ProcessFlag: "-n",
		Processes:   2,
		Executable:  "./kernel",
		Args:        []string{"-x4"},
	}, &logBuf, 30*time.Second)

	assert.Equal(t, 3, out.Status)
	assert.Equal(t, runner.ReasonFailed, out.Reason)
	assert.Equal(t, []string{"./launch", "-n", "2", "./kernel", "-x4"}, out.Command)
	assert.Contains(t, logBuf.String(), "n=-x4")
}

func TestExecutorMissingImage(t *testing.T) {
	requireDocker(t)
	e := docker.NewExecutor("kernelmatrix-no-such-image:never", t.TempDir())
	out := e.Execute(context.Background(), &runner.Command{
		Launcher: "mpiexec", ProcessFlag: "-n", Processes: 1, Executable: "./fft2",
	}, &bytes.Buffer{}, 10*time.Second)
	assert.Equal(t, runner.StatusLaunchFailed, out.Status)
	assert.Equal(t, runner.ReasonLaunchFailed, out.Reason)
	assert.Error(t, out.Err)
}

func TestNewExecutorUser(t *testing.T) {
	e := docker.NewExecutor("img", "/tmp/work")
	assert.Equal(t, "img", e.Image)
	assert.NotEmpty(t, e.UserID)
}
