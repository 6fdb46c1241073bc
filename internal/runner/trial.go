package runner

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"
)

// Sentinel statuses for trials that did not produce a kernel exit code.
const (
	StatusTimeout      = 124
	StatusLaunchFailed = 127
	StatusCanceled     = 130
)

type Reason string

const (
	ReasonPassed       Reason = "passed"
	ReasonFailed       Reason = "failed"
	ReasonSignaled     Reason = "signaled"
	ReasonTimeout      Reason = "timeout"
	ReasonLaunchFailed Reason = "launch_failed"
	ReasonCanceled     Reason = "canceled"
)

// Command is one fully resolved trial invocation.
type Command struct {
	Launcher    string
	ProcessFlag string
	Processes   int
	Executable  string
	Args        []string
}

// Argv returns the exact vector handed to the process spawner.
func (c *Command) Argv() []string {
	argv := make([]string, 0, 4+len(c.Args))
	argv = append(argv, c.Launcher, c.ProcessFlag, strconv.Itoa(c.Processes), c.Executable)
	return append(argv, c.Args...)
}

func (c *Command) String() string {
	return strings.Join(c.Argv(), " ")
}

type Outcome struct {
	Command  []string
	Status   int
	Reason   Reason
	Duration time.Duration
	Err      error
}

func (o *Outcome) Passed() bool {
	return o.Status == 0
}

// Executor runs a single trial. Implementations never return a nil Outcome
// and never propagate start failures; they are folded into the status.
type Executor interface {
	Execute(ctx context.Context, cmd *Command, log io.Writer, timeout time.Duration) *Outcome
}

func ExitReasonFromCode(code int, timedOut bool) Reason {
	if timedOut {
		return ReasonTimeout
	}
	switch {
	case code == 0:
		return ReasonPassed
	case code < 0:
		return ReasonSignaled
	default:
		return ReasonFailed
	}
}
