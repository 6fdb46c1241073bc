package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/kernelmatrix/internal/config"
	"github.com/signalnine/kernelmatrix/internal/driver"
	"github.com/signalnine/kernelmatrix/internal/matrix"
	"github.com/signalnine/kernelmatrix/internal/runner"
)

// newKernelCmd returns the fixed-surface driver for one built-in kernel:
// only -s and -h are accepted.
func newKernelCmd(name string) *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Run the MPI %s unit test matrix", name),
		Long: fmt.Sprintf("Run the MPI %s unit test matrix against ./%s in the current directory.\n"+
			"Exits 0 only if every trial passed.", name, name),
		Args: noArgs,
		RunE: func(c *cobra.Command, args []string) error {
			cfg := config.Default()
			k, err := cfg.Kernel(name)
			if err != nil {
				return err
			}
			mode := matrix.Full
			if short {
				mode = matrix.Short
			}
			d := driver.New(runner.NewLocal(""), "", c.OutOrStdout())
			s, err := d.RunReport(c.Context(), k.Build(cfg), mode)
			if errors.Is(err, driver.ErrMissingExecutable) {
				// Already reported on stdout.
				return &ExitError{Code: ExitFailure}
			}
			if err != nil {
				return WrapExitError(ExitFailure, name, err)
			}
			if s.ExitStatus != 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%s: %d of %d tests failed", name, s.FailureCount, s.Trials))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Specify a short run")
	return cmd
}
