package matrix

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

// Mode selects which value sequence of each axis is active for a run.
type Mode int

const (
	Full Mode = iota
	Short
)

func (m Mode) String() string {
	if m == Short {
		return "short"
	}
	return "full"
}

// Value is a single axis entry: either a fixed integer or an inclusive
// random bound drawn once when the axis is resolved.
type Value struct {
	Fixed  int
	Min    int
	Max    int
	Random bool
}

func Fixed(v int) Value { return Value{Fixed: v} }

func Between(min, max int) Value { return Value{Min: min, Max: max, Random: true} }

func (v Value) String() string {
	if v.Random {
		return fmt.Sprintf("rand(%d,%d)", v.Min, v.Max)
	}
	return strconv.Itoa(v.Fixed)
}

func (v Value) resolve(rng *rand.Rand) int {
	if !v.Random {
		return v.Fixed
	}
	return v.Min + rng.IntN(v.Max-v.Min+1)
}

// Ints is shorthand for a sequence of fixed values.
func Ints(vs ...int) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = Fixed(v)
	}
	return out
}

// AxisSpec declares one dimension of the test space before resolution.
// An empty Short sequence falls back to Full.
type AxisSpec struct {
	Name  string
	Full  []Value
	Short []Value
}

func (s AxisSpec) Values(mode Mode) []Value {
	if mode == Short && len(s.Short) > 0 {
		return s.Short
	}
	return s.Full
}

func (s AxisSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("axis name is required")
	}
	if len(s.Full) == 0 {
		return fmt.Errorf("axis %q: full sequence is empty", s.Name)
	}
	for _, seq := range [][]Value{s.Full, s.Short} {
		for _, v := range seq {
			if v.Random && v.Min > v.Max {
				return fmt.Errorf("axis %q: random bound %d > %d", s.Name, v.Min, v.Max)
			}
		}
	}
	return nil
}

// Axis is a resolved, immutable dimension of the test space.
type Axis struct {
	Name   string
	Values []int
}

// Resolve draws every random bound exactly once and returns the axes that
// stay fixed for the rest of the run.
func Resolve(specs []AxisSpec, mode Mode, rng *rand.Rand) []Axis {
	axes := make([]Axis, len(specs))
	for i, s := range specs {
		vals := s.Values(mode)
		resolved := make([]int, len(vals))
		for j, v := range vals {
			resolved[j] = v.resolve(rng)
		}
		axes[i] = Axis{Name: s.Name, Values: resolved}
	}
	return axes
}
