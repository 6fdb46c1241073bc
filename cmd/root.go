package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/signalnine/kernelmatrix/internal/config"
)

const logLevelEnv = "KERNELMATRIX_LOG_LEVEL"

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kernelmatrix",
		Short:         "Test-matrix harness for distributed convolution and FFT kernels",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(c *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError(c, fmt.Errorf("unknown command %q", args[0]))
			}
			return nil
		},
		RunE: func(c *cobra.Command, args []string) error {
			return usageError(c, errors.New("a command is required"))
		},
		PersistentPreRun: func(c *cobra.Command, args []string) {
			configureLogging(os.Getenv(logLevelEnv), c.ErrOrStderr())
		},
	}
	root.SetFlagErrorFunc(usageError)

	for _, k := range config.Default().Kernels {
		root.AddCommand(newKernelCmd(k.Name))
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newReportCmd())
	return root
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if args == nil {
		args = []string{}
	}
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintf(stderr, "Error: %s\n", msg)
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Usage != "" {
		fmt.Fprint(stderr, exitErr.Usage)
	}
	return GetExitCode(err)
}

func configureLogging(level string, w io.Writer) {
	log.SetOutput(w)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	if level == "" {
		log.SetLevel(log.WarnLevel)
		return
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.SetLevel(log.WarnLevel)
		log.Warnf("ignoring %s=%q: %v", logLevelEnv, level, err)
		return
	}
	log.SetLevel(lvl)
}
