package memory

import (
	"fmt"
	"math"
	"slices"

	"github.com/matzehuels/nodecalc/pkg/errors"
)

// coerceLeaf converts v to the storage form of a leaf attribute of type typ.
// def may be nil; when set, enum names and min/max limits apply.
func coerceLeaf(typ string, def *attrDef, v any) (any, error) {
	switch typ {
	case "double", "float":
		f, ok := toFloat(v)
		if !ok {
			return nil, typeError(typ, v)
		}
		if def != nil {
			if def.min != nil {
				f = math.Max(f, *def.min)
			}
			if def.max != nil {
				f = math.Min(f, *def.max)
			}
		}
		return f, nil

	case "long", "short", "enum":
		if s, ok := v.(string); ok && typ == "enum" && def != nil {
			if i := slices.Index(def.enum, s); i >= 0 {
				return i, nil
			}
			return nil, errors.New(errors.ErrCodeUnsupportedType, "enum has no field %q", s)
		}
		f, ok := toFloat(v)
		if !ok {
			return nil, typeError(typ, v)
		}
		return int(f), nil

	case "bool":
		f, ok := toFloat(v)
		if !ok {
			return nil, typeError(typ, v)
		}
		return f != 0, nil

	case "matrix":
		m, ok := toFloats(v)
		if !ok || len(m) != 16 {
			return nil, typeError(typ, v)
		}
		return m, nil

	case "string":
		s, ok := v.(string)
		if !ok {
			return nil, typeError(typ, v)
		}
		return s, nil

	case "message":
		return nil, errors.New(errors.ErrCodeUnsupportedType, "message attributes hold no value")

	default:
		return v, nil
	}
}

func typeError(typ string, v any) error {
	return errors.New(errors.ErrCodeUnsupportedType, "cannot store %T (%v) in a %s attribute", v, v, typ)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func toFloats(v any) ([]float64, bool) {
	switch x := v.(type) {
	case []float64:
		return slices.Clone(x), true
	case []int:
		out := make([]float64, len(x))
		for i, e := range x {
			out[i] = float64(e)
		}
		return out, true
	case []any:
		out := make([]float64, len(x))
		for i, e := range x {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	default:
		return nil, false
	}
}

// toItems splits a compound value into per-child values.
func toItems(v any, n int) ([]any, error) {
	var items []any
	switch x := v.(type) {
	case []any:
		items = x
	case []float64:
		for _, f := range x {
			items = append(items, f)
		}
	case []int:
		for _, i := range x {
			items = append(items, i)
		}
	default:
		return nil, errors.New(errors.ErrCodeUnsupportedType, "compound attribute expects a list, got %T", v)
	}
	if len(items) != n {
		return nil, errors.New(errors.ErrCodeDimensionMismatch,
			"compound attribute has %d children, got %d values", n, len(items))
	}
	return items, nil
}

// compactValue turns child values into []float64 when they are all numeric.
func compactValue(items []any) any {
	out := make([]float64, 0, len(items))
	for _, it := range items {
		if _, isBool := it.(bool); isBool {
			return items
		}
		f, ok := toFloat(it)
		if !ok {
			return items
		}
		out = append(out, f)
	}
	return out
}

// FormatValue renders a stored value for logs and listings.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "<none>"
	case float64:
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
