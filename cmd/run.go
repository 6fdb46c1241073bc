package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalnine/kernelmatrix/internal/config"
	"github.com/signalnine/kernelmatrix/internal/docker"
	"github.com/signalnine/kernelmatrix/internal/driver"
	"github.com/signalnine/kernelmatrix/internal/matrix"
	"github.com/signalnine/kernelmatrix/internal/report"
	"github.com/signalnine/kernelmatrix/internal/result"
	"github.com/signalnine/kernelmatrix/internal/runner"
)

var (
	flagConfig     string
	flagKernels    []string
	flagShort      bool
	flagParallel   int
	flagResultsDir string
	flagFormat     string
	flagDir        string
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the test matrix of every configured kernel",
		Args:  noArgs,
		RunE:  runMatrix,
	}
	cmd.Flags().StringVar(&flagConfig, "config", "", "kernel config file (default: built-in kernels)")
	cmd.Flags().StringSliceVar(&flagKernels, "kernel", nil, "run only these kernels")
	cmd.Flags().BoolVarP(&flagShort, "short", "s", false, "use the short axis sequences")
	cmd.Flags().IntVar(&flagParallel, "parallel", 1, "max kernels run concurrently")
	cmd.Flags().StringVar(&flagResultsDir, "results-dir", "", "store run summaries under this directory")
	cmd.Flags().StringVar(&flagFormat, "format", "table", "summary format (table, markdown, json)")
	cmd.Flags().StringVar(&flagDir, "dir", ".", "directory holding the kernel executables and logs")
	return cmd
}

func runMatrix(c *cobra.Command, args []string) error {
	cfg, err := config.LoadOrDefault(flagConfig)
	if err != nil {
		return usageError(c, err)
	}
	kernels, err := selectKernels(cfg, flagKernels)
	if err != nil {
		return usageError(c, err)
	}
	dir, err := filepath.Abs(flagDir)
	if err != nil {
		return fmt.Errorf("resolving dir: %w", err)
	}
	exec := newExecutor(cfg, dir)
	mode := matrix.Full
	if flagShort {
		mode = matrix.Short
	}

	out := c.OutOrStdout()
	summaries := make([]*result.Summary, len(kernels))
	buffers := make([]*bytes.Buffer, len(kernels))
	jobs := make([]runner.Job, len(kernels))
	for i, k := range kernels {
		i, kc := i, k.Build(cfg)
		var w io.Writer = out
		if flagParallel > 1 {
			buffers[i] = &bytes.Buffer{}
			w = buffers[i]
		}
		jobs[i] = func() error {
			if i > 0 && buffers[i] == nil {
				fmt.Fprintln(w)
			}
			s, err := driver.New(exec, dir, w).RunReport(c.Context(), kc, mode)
			summaries[i] = s
			return err
		}
	}
	errs := runner.RunPool(flagParallel, jobs)
	for i, buf := range buffers {
		if buf == nil {
			continue
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		out.Write(buf.Bytes())
	}

	var stored []*result.Summary
	failed := 0
	for i, s := range summaries {
		if s == nil {
			fmt.Fprintf(c.ErrOrStderr(), "%s: %v\n", kernels[i].Name, errs[i])
			failed++
			continue
		}
		stored = append(stored, s)
		if s.ExitStatus != 0 {
			failed++
		}
	}

	if flagResultsDir != "" {
		runDir, err := result.CreateRunDir(flagResultsDir)
		if err != nil {
			return err
		}
		for _, s := range stored {
			if err := result.WriteSummary(runDir, s); err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "\nResults in %s\n", runDir)
	}

	fmt.Fprintln(out, "\n--- Results ---")
	if err := report.Write(stored, flagFormat, out); err != nil {
		return err
	}
	if failed > 0 {
		// Missing executables are already in the report.
		for i, err := range errs {
			if errors.Is(err, driver.ErrMissingExecutable) {
				errs[i] = nil
			}
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("%d of %d kernels failed", failed, len(kernels)), runner.FirstError(errs))
	}
	return nil
}

func selectKernels(cfg *config.Config, names []string) ([]*config.Kernel, error) {
	if len(names) == 0 {
		kernels := make([]*config.Kernel, len(cfg.Kernels))
		for i := range cfg.Kernels {
			kernels[i] = &cfg.Kernels[i]
		}
		return kernels, nil
	}
	kernels := make([]*config.Kernel, 0, len(names))
	for _, name := range names {
		k, err := cfg.Kernel(name)
		if err != nil {
			return nil, err
		}
		kernels = append(kernels, k)
	}
	return kernels, nil
}

func newExecutor(cfg *config.Config, dir string) runner.Executor {
	if cfg.Executor.Kind == config.ExecutorDocker {
		e := docker.NewExecutor(cfg.Executor.Image, dir)
		e.CPULimit = cfg.Executor.CPULimit
		e.MemoryLimit = cfg.Executor.MemoryMB << 20
		return e
	}
	return runner.NewLocal(dir)
}
