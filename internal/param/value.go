package param

import (
	"fmt"
	"math"

	"github.com/san-kum/ctrlenv/internal/dynamo"
)

func kindOf(v any) (Kind, bool) {
	switch v.(type) {
	case float64, float32, int, int64, int32:
		return Float, true
	case []float64, []float32, []int, dynamo.State, dynamo.Control:
		return Vector, true
	case bool:
		return Bool, true
	case string:
		return String, true
	}
	return 0, false
}

// normalize converts v to the canonical Go type of kind: float64, []float64,
// bool or string. Integers are widened, since config files often drop the
// decimal point.
func normalize(kind Kind, v any) (any, error) {
	switch kind {
	case Float:
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("expected float, got %T", v)
		}
		return f, nil
	case Vector:
		return toVector(v)
	case Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		return b, nil
	case String:
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return str, nil
	}
	return nil, fmt.Errorf("unsupported kind %v", kind)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	}
	return 0, false
}

func toVector(v any) ([]float64, error) {
	switch x := v.(type) {
	case []float64:
		out := make([]float64, len(x))
		copy(out, x)
		return out, nil
	case dynamo.State:
		return toVector([]float64(x))
	case dynamo.Control:
		return toVector([]float64(x))
	case []float32:
		out := make([]float64, len(x))
		for i, f := range x {
			out[i] = float64(f)
		}
		return out, nil
	case []int:
		out := make([]float64, len(x))
		for i, n := range x {
			out[i] = float64(n)
		}
		return out, nil
	case []any:
		out := make([]float64, len(x))
		for i, e := range x {
			f, ok := toFloat(e)
			if !ok {
				return nil, fmt.Errorf("element %d: expected float, got %T", i, e)
			}
			out[i] = f
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected list of floats, got %T", v)
}

func copyValue(v any) any {
	if vec, ok := v.([]float64); ok {
		out := make([]float64, len(vec))
		copy(out, vec)
		return out
	}
	return v
}

func valueEqual(a, b any) bool {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		return ok && floatEqual(x, y)
	case []float64:
		y, ok := b.([]float64)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !floatEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

// NaN compares equal to NaN so that a written and re-read set is Equal.
func floatEqual(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}
