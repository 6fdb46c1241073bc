package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalnine/kernelmatrix/internal/config"
	"github.com/signalnine/kernelmatrix/internal/matrix"
)

func newListCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured kernels and their axes",
		Args:  noArgs,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(cfgPath)
			if err != nil {
				return usageError(c, err)
			}
			out := c.OutOrStdout()
			fmt.Fprintf(out, "Launcher: %s %s <N>\n", cfg.Launcher, cfg.ProcessFlag)
			fmt.Fprintf(out, "Executor: %s\n", cfg.Executor.Kind)
			for _, k := range cfg.Kernels {
				specs := k.AxisSpecs()
				fmt.Fprintf(out, "\n%s (%s, log %s): %d full / %d short trials\n",
					k.Name, k.Executable, k.Log, matrix.SpecSize(specs, matrix.Full), matrix.SpecSize(specs, matrix.Short))
				for _, a := range specs {
					fmt.Fprintf(out, "  %-8s full=[%s] short=[%s]\n", a.Name, joinValues(a.Values(matrix.Full)), joinValues(a.Values(matrix.Short)))
				}
				fmt.Fprintf(out, "  args: %s\n", strings.Join(k.Args, " "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "kernel config file (default: built-in kernels)")
	return cmd
}

func joinValues(vs []matrix.Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ",")
}
