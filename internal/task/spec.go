package task

import (
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/san-kum/ctrlenv/internal/dynamo"
)

type DType int

const (
	Float32 DType = iota
	Float64
)

func (d DType) String() string {
	if d == Float64 {
		return "float64"
	}
	return "float32"
}

// Spec declares the shape and numeric type of an array a driver exchanges
// with a task.
type Spec struct {
	Name  string
	Shape []int
	DType DType
}

// Size is the number of elements described by the shape.
func (s Spec) Size() int {
	n := 1
	for _, d := range s.Shape {
		n *= d
	}
	return n
}

// BoundedSpec adds inclusive per-dimension bounds. Tasks never enforce them;
// Clip and Contains are for drivers.
type BoundedSpec struct {
	Spec
	Bounds []r1.Interval
}

func bounded(name string, n int, lo, hi float64) BoundedSpec {
	b := BoundedSpec{
		Spec:   Spec{Name: name, Shape: []int{n}, DType: Float32},
		Bounds: make([]r1.Interval, n),
	}
	for i := range b.Bounds {
		b.Bounds[i] = r1.Interval{Min: lo, Max: hi}
	}
	return b
}

func (b BoundedSpec) Contains(u dynamo.Control) bool {
	if len(u) != len(b.Bounds) {
		return false
	}
	for i, v := range u {
		if v < b.Bounds[i].Min || v > b.Bounds[i].Max {
			return false
		}
	}
	return true
}

// Clip returns u limited to the bounds. Extra components are dropped and
// missing ones are not added.
func (b BoundedSpec) Clip(u dynamo.Control) dynamo.Control {
	out := u.Clone()
	for i := range out {
		if i >= len(b.Bounds) {
			return out[:len(b.Bounds)]
		}
		iv := b.Bounds[i]
		switch {
		case out[i] < iv.Min:
			out[i] = iv.Min
		case out[i] > iv.Max:
			out[i] = iv.Max
		}
	}
	return out
}
