package calc

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/matzehuels/nodecalc/pkg/errors"
)

// Basetype is the primitive type a Value stands in for.
type Basetype string

const (
	BasetypeBool  Basetype = "bool"
	BasetypeInt   Basetype = "int"
	BasetypeFloat Basetype = "float"
	BasetypeList  Basetype = "list"
)

// ValueKind is shared by every Value of one basetype.
type ValueKind struct {
	basetype Basetype
}

// Basetype returns the primitive type of the kind.
func (k *ValueKind) Basetype() Basetype { return k.basetype }

func (k *ValueKind) String() string { return string(k.basetype) + " value" }

var kinds = struct {
	sync.Mutex
	m map[Basetype]*ValueKind
}{m: make(map[Basetype]*ValueKind)}

// KindOf returns the kind for a basetype, creating it on first use. All
// values of one basetype share the returned pointer.
func KindOf(b Basetype) *ValueKind {
	kinds.Lock()
	defer kinds.Unlock()
	k, ok := kinds.m[b]
	if !ok {
		k = &ValueKind{basetype: b}
		kinds.m[b] = k
	}
	return k
}

// Value is a literal that carries the expression it was derived from.
//
// Arithmetic between values yields a new Value whose Metadata joins both
// operands, so a queried value "val1" plus 2 reads "val1 + 2".
type Value struct {
	kind *ValueKind
	raw  any // bool, int, float64 or []float64

	// Metadata is the provenance expression.
	Metadata string

	// CreatedByUser is false for values derived by the calculator.
	CreatedByUser bool
}

// NewValue wraps a literal. Its metadata is the formatted literal.
func NewValue[T bool | int | float64 | []float64](v T) *Value {
	var raw any = v
	if l, ok := raw.([]float64); ok {
		raw = append([]float64(nil), l...)
	}
	return newValue(raw, true)
}

func newValue(raw any, byUser bool) *Value {
	val := &Value{kind: KindOf(basetypeOf(raw)), raw: raw, CreatedByUser: byUser}
	val.Metadata = formatLiteral(raw)
	return val
}

// ValueOf wraps any supported literal. Wrapping a *Value returns a copy with
// the same basetype and metadata.
func ValueOf(v any) (*Value, error) {
	if val, ok := v.(*Value); ok {
		if val == nil {
			return nil, errors.New(errors.ErrCodeUnsupportedType, "nil value")
		}
		cp := *val
		if l, ok := cp.raw.([]float64); ok {
			cp.raw = append([]float64(nil), l...)
		}
		return &cp, nil
	}
	raw, ok := normalizeLiteral(v)
	if !ok {
		return nil, errors.New(errors.ErrCodeUnsupportedType, "unsupported literal %v (%T)", v, v)
	}
	return newValue(raw, true), nil
}

func normalizeLiteral(v any) (any, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case int:
		return x, true
	case int8:
		return int(x), true
	case int16:
		return int(x), true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case uint8:
		return int(x), true
	case uint16:
		return int(x), true
	case uint32:
		return int(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case []float64:
		return append([]float64(nil), x...), true
	case []int:
		out := make([]float64, len(x))
		for i, n := range x {
			out[i] = float64(n)
		}
		return out, true
	case []any:
		out := make([]float64, len(x))
		for i, el := range x {
			n, ok := normalizeLiteral(el)
			if !ok {
				return nil, false
			}
			f, ok := toFloat(n)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

func basetypeOf(raw any) Basetype {
	switch raw.(type) {
	case bool:
		return BasetypeBool
	case int:
		return BasetypeInt
	case []float64:
		return BasetypeList
	default:
		return BasetypeFloat
	}
}

// Kind returns the shared kind of the value's basetype.
func (v *Value) Kind() *ValueKind { return v.kind }

// Basetype returns the primitive type.
func (v *Value) Basetype() Basetype { return v.kind.basetype }

// Raw returns the wrapped literal: bool, int, float64 or []float64.
func (v *Value) Raw() any {
	if l, ok := v.raw.([]float64); ok {
		return append([]float64(nil), l...)
	}
	return v.raw
}

// Float returns the value as a float. Lists report false.
func (v *Value) Float() (float64, bool) { return toFloat(v.raw) }

// Floats returns list elements, or the scalar as a one-element slice.
func (v *Value) Floats() []float64 {
	if l, ok := v.raw.([]float64); ok {
		return append([]float64(nil), l...)
	}
	f, _ := toFloat(v.raw)
	return []float64{f}
}

// Len is the number of list elements, 1 for scalars.
func (v *Value) Len() int {
	if l, ok := v.raw.([]float64); ok {
		return len(l)
	}
	return 1
}

// Literal formats the raw value.
func (v *Value) Literal() string { return formatLiteral(v.raw) }

// String returns the metadata.
func (v *Value) String() string { return v.Metadata }

// WithMetadata returns a copy with different metadata.
func (v *Value) WithMetadata(m string) *Value {
	cp, _ := ValueOf(v)
	cp.Metadata = m
	return cp
}

// Elements splits a list value into scalar values. Derived lists name their
// elements "meta[i]"; user literals keep formatted elements.
func (v *Value) Elements() []*Value {
	l, ok := v.raw.([]float64)
	if !ok {
		return []*Value{v}
	}
	out := make([]*Value, len(l))
	for i, f := range l {
		el := newValue(f, v.CreatedByUser)
		if !v.CreatedByUser {
			el.Metadata = v.Metadata + "[" + strconv.Itoa(i) + "]"
		}
		out[i] = el
	}
	return out
}

func (v *Value) Add(other any) (*Value, error) { return v.binary("add", other) }
func (v *Value) Sub(other any) (*Value, error) { return v.binary("sub", other) }
func (v *Value) Mul(other any) (*Value, error) { return v.binary("mul", other) }
func (v *Value) Div(other any) (*Value, error) { return v.binary("div", other) }
func (v *Value) Pow(other any) (*Value, error) { return v.binary("pow", other) }
func (v *Value) Eq(other any) (*Value, error)  { return v.binary("eq", other) }
func (v *Value) Ne(other any) (*Value, error)  { return v.binary("ne", other) }
func (v *Value) Gt(other any) (*Value, error)  { return v.binary("gt", other) }
func (v *Value) Ge(other any) (*Value, error)  { return v.binary("ge", other) }
func (v *Value) Lt(other any) (*Value, error)  { return v.binary("lt", other) }
func (v *Value) Le(other any) (*Value, error)  { return v.binary("le", other) }

// Neg negates the value.
func (v *Value) Neg() *Value {
	var raw any
	switch x := v.raw.(type) {
	case bool:
		raw = -boolInt(x)
	case int:
		raw = -x
	case float64:
		raw = -x
	case []float64:
		l := make([]float64, len(x))
		for i, f := range x {
			l[i] = -f
		}
		raw = l
	}
	out := newValue(raw, false)
	out.Metadata = "-" + parenthesize(v.Metadata)
	return out
}

// =============================================================================
// Arithmetic
// =============================================================================

var symbols = map[string]string{
	"add": "+",
	"sub": "-",
	"mul": "*",
	"div": "/",
	"pow": "**",
	"eq":  "==",
	"ne":  "!=",
	"gt":  ">",
	"ge":  ">=",
	"lt":  "<",
	"le":  "<=",
}

var associative = map[string]bool{"add": true}

var plainMetadata = regexp.MustCompile(`^[a-zA-Z0-9\s.]*$`)

func parenthesize(s string) string {
	if plainMetadata.MatchString(s) {
		return s
	}
	return "(" + s + ")"
}

func joinMetadata(op, a, b string) string {
	if !associative[op] {
		a, b = parenthesize(a), parenthesize(b)
	}
	return a + " " + symbols[op] + " " + b
}

func (v *Value) binary(op string, other any) (*Value, error) {
	o, err := ValueOf(other)
	if err != nil {
		return nil, err
	}
	raw, err := applyOp(op, v.raw, o.raw)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "%s %s %s", v.Metadata, symbols[op], o.Metadata)
	}
	out := newValue(raw, false)
	out.Metadata = joinMetadata(op, v.Metadata, o.Metadata)
	return out, nil
}

func applyOp(op string, a, b any) (any, error) {
	la, aList := a.([]float64)
	lb, bList := b.([]float64)
	if !aList && !bList {
		return applyScalar(op, a, b)
	}
	switch op {
	case "eq", "ne":
		if !aList || !bList {
			return op == "ne", nil
		}
		equal := len(la) == len(lb)
		for i := 0; equal && i < len(la); i++ {
			equal = la[i] == lb[i]
		}
		return equal == (op == "eq"), nil
	case "gt", "ge", "lt", "le":
		return nil, errors.New(errors.ErrCodeUnsupportedType, "cannot order lists")
	}

	n := len(la)
	if !aList {
		n = len(lb)
	} else if bList && len(lb) != len(la) {
		return nil, errors.New(errors.ErrCodeDimensionMismatch, "list lengths differ: %d and %d", len(la), len(lb))
	}
	at := func(l []float64, isList bool, scalar any, i int) float64 {
		if isList {
			return l[i]
		}
		f, _ := toFloat(scalar)
		return f
	}
	out := make([]float64, n)
	for i := range out {
		r, err := applyScalar(op, at(la, aList, a, i), at(lb, bList, b, i))
		if err != nil {
			return nil, err
		}
		out[i], _ = toFloat(r)
	}
	return out, nil
}

func applyScalar(op string, a, b any) (any, error) {
	ai, aInt := toInt(a)
	bi, bInt := toInt(b)
	if aInt && bInt {
		switch op {
		case "add":
			return ai + bi, nil
		case "sub":
			return ai - bi, nil
		case "mul":
			return ai * bi, nil
		case "pow":
			if bi >= 0 {
				return intPow(ai, bi), nil
			}
		}
	}
	af, _ := toFloat(a)
	bf, _ := toFloat(b)
	switch op {
	case "add":
		return af + bf, nil
	case "sub":
		return af - bf, nil
	case "mul":
		return af * bf, nil
	case "div":
		if bf == 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "division by zero")
		}
		return af / bf, nil
	case "pow":
		return math.Pow(af, bf), nil
	case "eq":
		return af == bf, nil
	case "ne":
		return af != bf, nil
	case "gt":
		return af > bf, nil
	case "ge":
		return af >= bf, nil
	case "lt":
		return af < bf, nil
	case "le":
		return af <= bf, nil
	}
	return nil, errors.New(errors.ErrCodeUnknownOperation, "unknown operation %q", op)
}

func intPow(base, exp int) int {
	out := 1
	for ; exp > 0; exp-- {
		out *= base
	}
	return out
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case bool:
		return boolInt(x), true
	case int:
		return x, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case bool:
		return float64(boolInt(x)), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// =============================================================================
// Formatting
// =============================================================================

// formatLiteral renders literals the way the traced script language does:
// integral floats keep a ".0", bools are True/False.
func formatLiteral(v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(x)
	case float64:
		return formatFloat(x)
	case []float64:
		parts := make([]string, len(x))
		for i, f := range x {
			parts[i] = formatFloat(f)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return ""
}

func formatFloat(f float64) string {
	abs := math.Abs(f)
	switch {
	case math.IsInf(f, 0) || math.IsNaN(f):
		return strconv.FormatFloat(f, 'g', -1, 64)
	case f == math.Trunc(f) && abs < 1e16:
		return strconv.FormatFloat(f, 'f', 1, 64)
	case abs >= 1e-4 && abs < 1e16:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
