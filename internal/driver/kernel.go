package driver

import (
	"fmt"
	"time"

	"github.com/signalnine/kernelmatrix/internal/matrix"
)

const DefaultTimeout = 60 * time.Second

// KernelConfig describes the parameter space of one kernel and how a point
// in it becomes a command line.
type KernelConfig struct {
	Name        string
	Executable  string
	LogFile     string
	Launcher    string
	ProcessFlag string
	// ProcessAxis names the axis whose value is the launcher process count.
	ProcessAxis  string
	Axes         []matrix.AxisSpec
	Args         func(p matrix.Point) []string
	Timeout      time.Duration
	ShortTimeout time.Duration
}

func (k *KernelConfig) TimeoutFor(mode matrix.Mode) time.Duration {
	if mode == matrix.Short && k.ShortTimeout > 0 {
		return k.ShortTimeout
	}
	if k.Timeout > 0 {
		return k.Timeout
	}
	return DefaultTimeout
}

func (k *KernelConfig) Validate() error {
	if k.Name == "" {
		return fmt.Errorf("kernel name is required")
	}
	if k.Executable == "" {
		return fmt.Errorf("kernel %q: executable is required", k.Name)
	}
	if k.Launcher == "" {
		return fmt.Errorf("kernel %q: launcher is required", k.Name)
	}
	if k.Args == nil {
		return fmt.Errorf("kernel %q: argument mapping is required", k.Name)
	}
	seen := make(map[string]bool, len(k.Axes))
	for _, a := range k.Axes {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("kernel %q: %w", k.Name, err)
		}
		if seen[a.Name] {
			return fmt.Errorf("kernel %q: duplicate axis %q", k.Name, a.Name)
		}
		seen[a.Name] = true
	}
	if !seen[k.ProcessAxis] {
		return fmt.Errorf("kernel %q: process axis %q is not declared", k.Name, k.ProcessAxis)
	}
	return nil
}
