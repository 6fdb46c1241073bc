package runner

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"time"

	log "github.com/sirupsen/logrus"
)

// waitDelay bounds how long Wait blocks on inherited output pipes after
// the process group has been killed.
const waitDelay = 5 * time.Second

// Local runs trials as child processes of the harness.
type Local struct {
	// Dir is the working directory of every trial. Empty means the
	// harness's own working directory.
	Dir string
}

func NewLocal(dir string) *Local {
	return &Local{Dir: dir}
}

func (l *Local) Execute(ctx context.Context, c *Command, logw io.Writer, timeout time.Duration) *Outcome {
	argv := c.Argv()
	out := &Outcome{Command: argv}

	trialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(trialCtx, argv[0], argv[1:]...)
	cmd.Dir = l.Dir
	cmd.Stdout = logw
	cmd.Stderr = logw
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			out.Status = StatusCanceled
			out.Reason = ReasonCanceled
			out.Err = ctx.Err()
			return out
		}
		log.WithError(err).WithField("launcher", argv[0]).Warn("launcher failed to start")
		out.Status = StatusLaunchFailed
		out.Reason = ReasonLaunchFailed
		out.Err = err
		return out
	}
	log.WithField("pid", cmd.Process.Pid).Debugf("started %s", c)

	err := cmd.Wait()
	// Ranks the launcher left behind must not outlive the trial.
	killGroup(cmd)
	out.Duration = time.Since(start)

	switch {
	case err != nil && ctx.Err() == nil && errors.Is(trialCtx.Err(), context.DeadlineExceeded):
		out.Status = StatusTimeout
		out.Reason = ReasonTimeout
		out.Err = trialCtx.Err()
	case err != nil && ctx.Err() != nil:
		out.Status = StatusCanceled
		out.Reason = ReasonCanceled
		out.Err = ctx.Err()
	default:
		out.Status = exitStatus(cmd, err)
		out.Reason = ExitReasonFromCode(out.Status, false)
		if out.Status != 0 {
			out.Err = err
		}
	}

	log.WithFields(log.Fields{
		"status":   out.Status,
		"reason":   out.Reason,
		"duration": out.Duration,
	}).Debugf("ended %s", c)
	return out
}
