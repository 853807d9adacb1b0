package codec

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/ironsheep/image-features-mcp/internal/feature"
)

func lookup(m map[string]any, key string) (any, error) {
	v, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("missing %q", key)
	}
	if v == nil {
		return nil, fmt.Errorf("%q is null", key)
	}
	return v, nil
}

func requireString(m map[string]any, key string) (string, error) {
	v, err := lookup(m, key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%q: expected string, got %T", key, v)
	}
	return s, nil
}

func requireFloat(m map[string]any, key string) (float64, error) {
	v, err := lookup(m, key)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("%q: expected number, got %T", key, v)
	}
	return f, nil
}

func requireInt(m map[string]any, key string) (int, error) {
	f, err := requireFloat(m, key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%q: expected integer, got %v", key, f)
	}
	return int(f), nil
}

func requirePoint(m map[string]any, key string) (feature.Point2, error) {
	v, err := lookup(m, key)
	if err != nil {
		return feature.Point2{}, err
	}
	switch p := v.(type) {
	case feature.Point2:
		return p, nil
	case map[string]any:
		x, err := requireFloat(p, "x")
		if err != nil {
			return feature.Point2{}, fmt.Errorf("%q: %v", key, err)
		}
		y, err := requireFloat(p, "y")
		if err != nil {
			return feature.Point2{}, fmt.Errorf("%q: %v", key, err)
		}
		return feature.Point2{X: x, Y: y}, nil
	case map[string]float64:
		x, okX := p["x"]
		y, okY := p["y"]
		if !okX || !okY {
			return feature.Point2{}, fmt.Errorf("%q: expected x and y", key)
		}
		return feature.Point2{X: x, Y: y}, nil
	}
	return feature.Point2{}, fmt.Errorf("%q: expected {x, y}, got %T", key, v)
}

func requireFloats(m map[string]any, key string) ([]float64, error) {
	v, err := lookup(m, key)
	if err != nil {
		return nil, err
	}
	var out []float64
	switch s := v.(type) {
	case []float64:
		out = append(out, s...)
	case []float32:
		out = make([]float64, len(s))
		for i, f := range s {
			out[i] = float64(f)
		}
	case []int:
		out = make([]float64, len(s))
		for i, n := range s {
			out[i] = float64(n)
		}
	case []uint8:
		out = make([]float64, len(s))
		for i, b := range s {
			out[i] = float64(b)
		}
	case []any:
		out = make([]float64, len(s))
		for i, e := range s {
			f, ok := toFloat(e)
			if !ok {
				return nil, fmt.Errorf("%q[%d]: expected number, got %T", key, i, e)
			}
			out[i] = f
		}
	default:
		return nil, fmt.Errorf("%q: expected numeric sequence, got %T", key, v)
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
