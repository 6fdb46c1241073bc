package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/moby/moby/api/pkg/stdcopy"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
	log "github.com/sirupsen/logrus"

	"github.com/signalnine/kernelmatrix/internal/runner"
)

// WorkspaceDir is where the host working directory is mounted.
const WorkspaceDir = "/workspace"

type RunOpts struct {
	Image       string
	Command     []string
	WorkDir     string
	Timeout     time.Duration
	CPULimit    float64
	MemoryLimit int64
	UserID      string
	Output      io.Writer
}

type RunResult struct {
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// RunContainer runs opts.Command in a fresh container with opts.WorkDir
// mounted at WorkspaceDir, copies its output to opts.Output and removes it.
func RunContainer(ctx context.Context, opts *RunOpts) (*RunResult, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: opts.WorkDir,
			Target: WorkspaceDir,
		}},
		Init: &initTrue,
		// MPI ranks exchange data through shared memory.
		IpcMode: "host",
	}
	if opts.CPULimit > 0 {
		hostCfg.NanoCPUs = int64(opts.CPULimit * 1e9)
	}
	if opts.MemoryLimit > 0 {
		hostCfg.Memory = opts.MemoryLimit
	}

	containerCfg := &container.Config{
		Image:      opts.Image,
		Cmd:        opts.Command,
		WorkingDir: WorkspaceDir,
		Labels:     map[string]string{"kernelmatrix": "true"},
	}
	if opts.UserID != "" {
		containerCfg.User = opts.UserID
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}
	containerID := createResp.ID
	defer func() {
		cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	start := time.Now()
	if _, err := cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	res := &RunResult{}
	waitResult := cli.ContainerWait(timeoutCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
wait:
	for {
		select {
		case err := <-waitResult.Error:
			if err == nil {
				// nil error means no error on this channel; wait for result
				continue
			}
			cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
			if !waitTimedOut(timeoutCtx, ctx) {
				return nil, fmt.Errorf("waiting for container: %w", err)
			}
			res.ExitCode = runner.StatusTimeout
			res.TimedOut = true
			break wait
		case status := <-waitResult.Result:
			res.ExitCode = int(status.StatusCode)
			break wait
		}
	}
	res.Duration = time.Since(start)

	if opts.Output != nil {
		copyLogs(cli, containerID, opts.Output)
	}
	return res, nil
}

// waitTimedOut reports whether a failed wait is the trial timeout expiring,
// as opposed to a daemon error or cancellation of the parent context.
func waitTimedOut(timeoutCtx, parent context.Context) bool {
	return parent.Err() == nil && errors.Is(timeoutCtx.Err(), context.DeadlineExceeded)
}

func copyLogs(cli *client.Client, containerID string, w io.Writer) {
	logReader, err := cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		log.WithError(err).Warn("reading container logs")
		return
	}
	defer logReader.Close()
	if _, err := stdcopy.StdCopy(w, w, logReader); err != nil {
		log.WithError(err).Warn("copying container logs")
	}
}

// Executor runs each trial's launcher command inside a container image
// that provides the MPI launcher, with the harness working directory
// mounted as the container's working directory.
type Executor struct {
	Image       string
	WorkDir     string
	CPULimit    float64
	MemoryLimit int64
	UserID      string
}

func NewExecutor(image, workDir string) *Executor {
	return &Executor{
		Image:   image,
		WorkDir: workDir,
		UserID:  fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
	}
}

func (e *Executor) Execute(ctx context.Context, c *runner.Command, logw io.Writer, timeout time.Duration) *runner.Outcome {
	out := &runner.Outcome{Command: c.Argv()}
	res, err := RunContainer(ctx, &RunOpts{
		Image:       e.Image,
		Command:     out.Command,
		WorkDir:     e.WorkDir,
		Timeout:     timeout,
		CPULimit:    e.CPULimit,
		MemoryLimit: e.MemoryLimit,
		UserID:      e.UserID,
		Output:      logw,
	})
	switch {
	case err != nil && ctx.Err() != nil:
		out.Status = runner.StatusCanceled
		out.Reason = runner.ReasonCanceled
		out.Err = ctx.Err()
	case err != nil:
		log.WithError(err).WithField("image", e.Image).Warn("container trial failed")
		out.Status = runner.StatusLaunchFailed
		out.Reason = runner.ReasonLaunchFailed
		out.Err = err
	default:
		out.Status = res.ExitCode
		out.Reason = runner.ExitReasonFromCode(res.ExitCode, res.TimedOut)
		out.Duration = res.Duration
	}
	return out
}
