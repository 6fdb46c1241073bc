//go:build unix

package runner

import (
	"errors"
	"os/exec"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// groupExitTimeout bounds how long killGroup waits for a killed process
// group to disappear.
const groupExitTimeout = time.Second

// setProcessGroup puts the launcher in its own process group so that a
// timeout kills every rank it spawned, not just the launcher.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// A negative pid addresses the whole process group.
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
}

// killGroup kills whatever is left in the trial's process group once the
// launcher has exited, and waits for the group to empty.
func killGroup(cmd *exec.Cmd) {
	pgid := cmd.Process.Pid
	if err := unix.Kill(-pgid, unix.SIGKILL); err != nil {
		if !errors.Is(err, unix.ESRCH) {
			log.WithError(err).WithField("pgid", pgid).Warn("killing process group")
		}
		return
	}
	deadline := time.Now().Add(groupExitTimeout)
	for time.Now().Before(deadline) {
		if err := unix.Kill(-pgid, 0); err != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	log.WithField("pgid", pgid).Warn("process group still present after SIGKILL")
}

// exitStatus returns the exit code of a finished command, or the negated
// signal number when it was terminated by a signal.
func exitStatus(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState == nil {
		if err != nil {
			return StatusLaunchFailed
		}
		return 0
	}
	if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal())
	}
	return cmd.ProcessState.ExitCode()
}
