package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/signalnine/kernelmatrix/internal/matrix"
	"github.com/signalnine/kernelmatrix/internal/report"
	"github.com/signalnine/kernelmatrix/internal/result"
	"github.com/signalnine/kernelmatrix/internal/runner"
)

var ErrMissingExecutable = errors.New("executable not present")

// Driver enumerates a kernel's parameter space through an Executor. One
// Run owns its tally; a Driver may be reused for later runs.
type Driver struct {
	Executor runner.Executor
	// Dir is where the executable and the log file live.
	Dir string
	Out io.Writer
	// Rand resolves random axis bounds. A time-seeded source is used when nil.
	Rand *rand.Rand
}

func New(exec runner.Executor, dir string, out io.Writer) *Driver {
	return &Driver{Executor: exec, Dir: dir, Out: out}
}

func (d *Driver) rng() *rand.Rand {
	if d.Rand != nil {
		return d.Rand
	}
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

func (d *Driver) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(d.Dir, name)
}

// Trials resolves the kernel's axes once for mode and returns every trial
// command in enumeration order.
func (d *Driver) Trials(k *KernelConfig, mode matrix.Mode) []*runner.Command {
	axes := matrix.Resolve(k.Axes, mode, d.rng())
	points := matrix.Enumerate(axes)
	cmds := make([]*runner.Command, len(points))
	for i, p := range points {
		cmds[i] = BuildCommand(k, p)
	}
	return cmds
}

// BuildCommand maps a parameter point to its trial command.
func BuildCommand(k *KernelConfig, p matrix.Point) *runner.Command {
	procs, _ := p.Value(k.ProcessAxis)
	return &runner.Command{
		Launcher:    k.Launcher,
		ProcessFlag: k.ProcessFlag,
		Processes:   procs,
		Executable:  k.Executable,
		Args:        k.Args(p),
	}
}

// Run executes the whole matrix for k and returns the finalized tally.
// A missing executable yields ErrMissingExecutable and an empty tally; the
// tally is nil only if k is invalid or the log file cannot be created.
// Trial failures never stop the run, only cancellation of ctx does.
func (d *Driver) Run(ctx context.Context, k *KernelConfig, mode matrix.Mode) (*result.Tally, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	tally := result.NewTally()
	start := time.Now()
	logger := log.WithFields(log.Fields{"kernel": k.Name, "mode": mode})

	fmt.Fprintf(d.Out, "MPI %s unit test\n", k.Name)
	logPath := d.path(k.LogFile)
	fmt.Fprintf(d.Out, "Log in %s\n\n", k.LogFile)
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	if info, err := os.Stat(d.path(k.Executable)); err != nil || !info.Mode().IsRegular() {
		logger.WithField("executable", k.Executable).Info("executable not present, no trials run")
		tally.Finalize(time.Since(start))
		return tally, fmt.Errorf("%s: %w", k.Executable, ErrMissingExecutable)
	}

	if mode == matrix.Short {
		fmt.Fprintln(d.Out, "Short run.")
	}
	cmds := d.Trials(k, mode)
	timeout := k.TimeoutFor(mode)
	fmt.Fprintf(d.Out, "Running %d tests.\n", len(cmds))
	logger.WithField("trials", len(cmds)).Debug("starting matrix")

	for i, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			tally.Finalize(time.Since(start))
			return tally, err
		}
		fmt.Fprintf(logFile, "### %s\n", cmd)
		o := d.Executor.Execute(ctx, cmd, logFile, timeout)
		if o.Reason == runner.ReasonCanceled {
			tally.Finalize(time.Since(start))
			return tally, ctx.Err()
		}
		tally.Record(o)
		if !o.Passed() {
			logger.WithFields(log.Fields{
				"trial":  i + 1,
				"status": o.Status,
				"reason": o.Reason,
			}).Debugf("trial failed: %s", cmd)
		}
	}
	tally.Finalize(time.Since(start))
	return tally, nil
}

// RunReport runs k, writes the text report to Out and returns the run
// summary. The summary is nil only when Run returned no tally.
func (d *Driver) RunReport(ctx context.Context, k *KernelConfig, mode matrix.Mode) (*result.Summary, error) {
	started := time.Now()
	tally, err := d.Run(ctx, k, mode)
	if tally == nil {
		return nil, err
	}
	s := report.Summarize(tally, result.NewRunID(), k.Name, mode.String(), started)
	s.MissingTarget = errors.Is(err, ErrMissingExecutable)
	s.ExitStatus = ExitStatus(tally, err)
	if !s.MissingTarget {
		fmt.Fprintln(d.Out)
	}
	if werr := report.WriteText(d.Out, s); werr != nil && err == nil {
		err = werr
	}
	return s, err
}

// ExitStatus maps a run's result to the process exit status: 0 iff the
// executable was present and every trial passed.
func ExitStatus(t *result.Tally, err error) int {
	if err != nil || t == nil {
		return 1
	}
	return t.ExitStatus()
}
