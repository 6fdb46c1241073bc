package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/signalnine/kernelmatrix/internal/driver"
	"github.com/signalnine/kernelmatrix/internal/matrix"
)

var placeholderRE = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Value is an axis entry in YAML: a plain integer or {min: a, max: b} for a
// bound drawn once per run.
type Value struct {
	matrix.Value
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var n int
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("line %d: axis value: %w", node.Line, err)
		}
		v.Value = matrix.Fixed(n)
		return nil
	case yaml.MappingNode:
		var r struct {
			Min *int `yaml:"min"`
			Max *int `yaml:"max"`
		}
		if err := node.Decode(&r); err != nil {
			return fmt.Errorf("line %d: random axis value: %w", node.Line, err)
		}
		if r.Min == nil || r.Max == nil {
			return fmt.Errorf("line %d: random axis value needs min and max", node.Line)
		}
		v.Value = matrix.Between(*r.Min, *r.Max)
		return nil
	default:
		return fmt.Errorf("line %d: axis value must be an integer or {min, max}", node.Line)
	}
}

func (v Value) MarshalYAML() (any, error) {
	if v.Random {
		return map[string]int{"min": v.Min, "max": v.Max}, nil
	}
	return v.Fixed, nil
}

func toMatrix(vs []Value) []matrix.Value {
	if len(vs) == 0 {
		return nil
	}
	out := make([]matrix.Value, len(vs))
	for i, v := range vs {
		out[i] = v.Value
	}
	return out
}

// AxisSpecs converts the YAML axes into matrix axis specs.
func (k *Kernel) AxisSpecs() []matrix.AxisSpec {
	specs := make([]matrix.AxisSpec, len(k.Axes))
	for i, a := range k.Axes {
		specs[i] = matrix.AxisSpec{Name: a.Name, Full: toMatrix(a.Full), Short: toMatrix(a.Short)}
	}
	return specs
}

func (k *Kernel) validate() error {
	declared := make(map[string]bool, len(k.Axes))
	for _, a := range k.AxisSpecs() {
		if err := a.Validate(); err != nil {
			return err
		}
		if declared[a.Name] {
			return fmt.Errorf("duplicate axis %q", a.Name)
		}
		declared[a.Name] = true
		if a.Name == k.Processes {
			for _, seq := range [][]matrix.Value{a.Full, a.Short} {
				for _, v := range seq {
					if (v.Random && v.Min < 1) || (!v.Random && v.Fixed < 1) {
						return fmt.Errorf("axis %q: process counts must be positive, got %s", a.Name, v)
					}
				}
			}
		}
	}
	if !declared[k.Processes] {
		return fmt.Errorf("process axis %q is not declared", k.Processes)
	}

	refs := make(map[string]int)
	for _, tmpl := range k.Args {
		for _, m := range placeholderRE.FindAllStringSubmatch(tmpl, -1) {
			if !declared[m[1]] {
				return fmt.Errorf("args: unknown axis %q in %q", m[1], tmpl)
			}
			refs[m[1]]++
		}
	}
	for _, a := range k.Axes {
		n := refs[a.Name]
		switch {
		case a.Name == k.Processes && n > 1:
			return fmt.Errorf("args: process axis %q referenced %d times", a.Name, n)
		case a.Name != k.Processes && n != 1:
			return fmt.Errorf("args: axis %q must be referenced exactly once, found %d", a.Name, n)
		}
	}
	return nil
}

// ArgsFunc returns the mapping from a parameter point to the kernel's
// argument vector. Templates are expanded in order; tokens without
// placeholders are passed through verbatim.
func (k *Kernel) ArgsFunc() func(matrix.Point) []string {
	templates := append([]string(nil), k.Args...)
	return func(p matrix.Point) []string {
		pairs := make([]string, 0, 2*len(p))
		for _, c := range p {
			pairs = append(pairs, "{"+c.Axis+"}", strconv.Itoa(c.Value))
		}
		r := strings.NewReplacer(pairs...)
		args := make([]string, len(templates))
		for i, t := range templates {
			args[i] = r.Replace(t)
		}
		return args
	}
}

// Build compiles the kernel into a driver configuration using the launcher
// settings of cfg.
func (k *Kernel) Build(cfg *Config) *driver.KernelConfig {
	return &driver.KernelConfig{
		Name:         k.Name,
		Executable:   k.Executable,
		LogFile:      k.Log,
		Launcher:     cfg.Launcher,
		ProcessFlag:  cfg.ProcessFlag,
		ProcessAxis:  k.Processes,
		Axes:         k.AxisSpecs(),
		Args:         k.ArgsFunc(),
		Timeout:      cfg.Timeout,
		ShortTimeout: cfg.ShortTimeout,
	}
}
