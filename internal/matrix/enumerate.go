package matrix

import (
	"strconv"
	"strings"
)

type Coord struct {
	Axis  string
	Value int
}

// Point assigns one value to every axis, in axis declaration order.
type Point []Coord

func (p Point) Value(axis string) (int, bool) {
	for _, c := range p {
		if c.Axis == axis {
			return c.Value, true
		}
	}
	return 0, false
}

func (p Point) String() string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = c.Axis + "=" + strconv.Itoa(c.Value)
	}
	return strings.Join(parts, " ")
}

// Size returns the number of points in the Cartesian product of axes.
func Size(axes []Axis) int {
	n := 1
	for _, a := range axes {
		n *= len(a.Values)
	}
	return n
}

// SpecSize returns the number of points mode will enumerate for specs.
// Random bounds count once, so it equals Size of the resolved axes.
func SpecSize(specs []AxisSpec, mode Mode) int {
	n := 1
	for _, s := range specs {
		n *= len(s.Values(mode))
	}
	return n
}

// Enumerate returns the full Cartesian product of axes. The first axis
// iterates slowest and the last axis fastest.
func Enumerate(axes []Axis) []Point {
	total := Size(axes)
	points := make([]Point, 0, total)
	if total == 0 {
		return points
	}
	idx := make([]int, len(axes))
	for {
		p := make(Point, len(axes))
		for i, a := range axes {
			p[i] = Coord{Axis: a.Name, Value: a.Values[idx[i]]}
		}
		points = append(points, p)

		// odometer increment, rightmost digit first
		i := len(axes) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(axes[i].Values) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return points
		}
	}
}
