package calc

import (
	"math"

	"github.com/matzehuels/nodecalc/pkg/errors"
)

// Op compiles any operation of the table, including extension operators.
func (c *Calculator) Op(name string, args ...any) (Operand, error) {
	return c.Compile(name, args...)
}

// isLiteral reports whether v is a value or a Go literal.
func isLiteral(v any) bool {
	if _, ok := v.(*Value); ok {
		return true
	}
	_, ok := normalizeLiteral(v)
	return ok
}

// Binary applies an arithmetic or comparison operation. Two literals are
// combined directly into a Value; anything involving a plug compiles a node.
func (c *Calculator) Binary(op string, a, b any) (any, error) {
	if _, ok := symbols[op]; !ok {
		return nil, errors.New(errors.ErrCodeUnknownOperation, "unknown operation %q", op)
	}
	if isLiteral(a) && isLiteral(b) {
		va, err := ValueOf(a)
		if err != nil {
			return nil, err
		}
		return va.binary(op, b)
	}
	if op == "add" || op == "sub" {
		return c.compilePlug(op, []any{a, b})
	}
	return c.compilePlug(op, a, b)
}

// Negate multiplies a plug by -1 or negates a literal.
func (c *Calculator) Negate(v any) (any, error) {
	if isLiteral(v) {
		val, err := ValueOf(v)
		if err != nil {
			return nil, err
		}
		return val.Neg(), nil
	}
	return c.compilePlug("mul", v, -1)
}

// Condition drives a condition node's colorIfTrue and colorIfFalse from
// ifPart and elsePart and returns its outColor, truncated to the wider part.
func (c *Calculator) Condition(cond *Plug, ifPart, elsePart any) (*Plug, error) {
	if typ, err := c.host.NodeType(cond.node); err != nil || typ != "condition" {
		c.logger.Warn("condition expects a comparison result", "plug", cond.String(), "type", typ)
	}
	dims := 0
	for _, part := range []any{ifPart, elsePart} {
		items, err := c.Unravel(part)
		if err != nil {
			return nil, err
		}
		dims = max(dims, len(flatten(items)))
	}
	if dims > maxNativeDim {
		return nil, errors.New(errors.ErrCodeDimensionMismatch, "condition takes at most 3 dimensions, got %d", dims)
	}
	dims = max(dims, 1)

	channels := func(prefix string) []string {
		return []string{prefix + "R", prefix + "G", prefix + "B"}[:dims]
	}
	if err := c.Connect(c.plug(cond.node, channels("colorIfTrue")...), ifPart); err != nil {
		return nil, err
	}
	if err := c.Connect(c.plug(cond.node, channels("colorIfFalse")...), elsePart); err != nil {
		return nil, err
	}
	return c.plug(cond.node, channels("outColor")...), nil
}

// Exp raises e to x.
func (c *Calculator) Exp(x any) (*Plug, error) { return c.compilePlug("pow", math.E, x) }

// Sqrt raises x to 0.5.
func (c *Calculator) Sqrt(x any) (*Plug, error) { return c.compilePlug("pow", x, 0.5) }

// Average averages its arguments.
func (c *Calculator) Average(items ...any) (*Plug, error) { return c.compilePlug("average", items) }

// Sum adds all its arguments on one node.
func (c *Calculator) Sum(items ...any) (*Plug, error) { return c.compilePlug("sum", items) }

// Blend returns a when weight is 0 and b when weight is 1.
func (c *Calculator) Blend(a, b, weight any) (*Plug, error) {
	return c.compilePlug("blend", b, a, weight)
}

// Choice selects one of inputs by selector.
func (c *Calculator) Choice(inputs []any, selector any) (*Plug, error) {
	return c.compilePlug("choice", inputs, selector)
}

// Clamp limits v to [lo, hi].
func (c *Calculator) Clamp(v, lo, hi any) (*Plug, error) { return c.compilePlug("clamp", v, lo, hi) }

// Cross returns the cross product of a and b.
func (c *Calculator) Cross(a, b any, normalize bool) (*Plug, error) {
	return c.compilePlug("cross", a, b, normalize)
}

// Dot returns the dot product of a and b.
func (c *Calculator) Dot(a, b any, normalize bool) (*Plug, error) {
	return c.compilePlug("dot", a, b, normalize)
}

// Length returns the distance between two points.
func (c *Calculator) Length(a, b any) (*Plug, error) { return c.compilePlug("length", a, b) }

// AngleBetween returns the angle between two vectors.
func (c *Calculator) AngleBetween(a, b any) (*Plug, error) {
	return c.compilePlug("angle_between", a, b)
}

// NormalizeVector scales v to unit length.
func (c *Calculator) NormalizeVector(v any) (*Plug, error) {
	return c.compilePlug("normalize_vector", v, true)
}

// Reverse returns one minus v.
func (c *Calculator) Reverse(v any) (*Plug, error) { return c.compilePlug("reverse", v) }

// RemapValue maps v from [inMin, inMax] into [outMin, outMax] through a
// remap curve.
func (c *Calculator) RemapValue(v, outMin, outMax, inMin, inMax any) (*Plug, error) {
	return c.compilePlug("remap_value", v, outMin, outMax, inMin, inMax)
}

// SetRange linearly maps v from [oldMin, oldMax] into [lo, hi].
func (c *Calculator) SetRange(v, lo, hi, oldMin, oldMax any) (*Plug, error) {
	return c.compilePlug("set_range", v, lo, hi, oldMin, oldMax)
}

// ComposeMatrix builds a matrix. rotateOrder is an index into xyz, yzx, zxy,
// xzy, yxz, zyx.
func (c *Calculator) ComposeMatrix(translate, rotate, scale, shear, rotateOrder any, eulerRotation bool) (*Plug, error) {
	return c.compilePlug("compose_matrix", translate, rotate, scale, shear, rotateOrder, eulerRotation)
}

// DecomposeMatrix returns translate, rotate, scale and shear plugs.
func (c *Calculator) DecomposeMatrix(m any) (*List, error) {
	out, err := c.Compile("decompose_matrix", m)
	if err != nil {
		return nil, err
	}
	l, ok := out.(*List)
	if !ok {
		return nil, errors.New(errors.ErrCodeInternal, "decompose_matrix returned a single output group")
	}
	return l, nil
}

// InverseMatrix inverts m.
func (c *Calculator) InverseMatrix(m any) (*Plug, error) { return c.compilePlug("inverse_matrix", m) }

// TransposeMatrix transposes m.
func (c *Calculator) TransposeMatrix(m any) (*Plug, error) {
	return c.compilePlug("transpose_matrix", m)
}

// MultMatrix multiplies matrices in order.
func (c *Calculator) MultMatrix(ms ...any) (*Plug, error) { return c.compilePlug("mult_matrix", ms) }

// PointMatrixMult transforms a point, or a vector when vectorMultiply is set.
func (c *Calculator) PointMatrixMult(point, m any, vectorMultiply bool) (*Plug, error) {
	return c.compilePlug("point_matrix_mult", point, m, vectorMultiply)
}

// PairBlend blends two translate/rotate pairs by weight. quatInterpolation
// selects quaternion slerp over euler blending.
func (c *Calculator) PairBlend(translate1, rotate1, translate2, rotate2, weight any, quatInterpolation bool) (*List, error) {
	interp := 0
	if quatInterpolation {
		interp = 1
	}
	out, err := c.Compile("pair_blend", translate1, rotate1, translate2, rotate2, weight, interp)
	if err != nil {
		return nil, err
	}
	if l, ok := out.(*List); ok {
		return l, nil
	}
	return &List{calc: c, items: []any{out}}, nil
}

// EulerToQuat converts euler rotation to a quaternion.
func (c *Calculator) EulerToQuat(rotate, rotateOrder any) (*Plug, error) {
	return c.compilePlug("euler_to_quat", rotate, rotateOrder)
}

// QuatToEuler converts a quaternion to euler rotation.
func (c *Calculator) QuatToEuler(quat, rotateOrder any) (*Plug, error) {
	return c.compilePlug("quat_to_euler", quat, rotateOrder)
}

func (c *Calculator) QuatAdd(a, b any) (*Plug, error)    { return c.compilePlug("quat_add", a, b) }
func (c *Calculator) QuatSub(a, b any) (*Plug, error)    { return c.compilePlug("quat_sub", a, b) }
func (c *Calculator) QuatMul(a, b any) (*Plug, error)    { return c.compilePlug("quat_mul", a, b) }
func (c *Calculator) QuatConjugate(q any) (*Plug, error) { return c.compilePlug("quat_conjugate", q) }
func (c *Calculator) QuatInvert(q any) (*Plug, error)    { return c.compilePlug("quat_invert", q) }
func (c *Calculator) QuatNegate(q any) (*Plug, error)    { return c.compilePlug("quat_negate", q) }
func (c *Calculator) QuatNormalize(q any) (*Plug, error) { return c.compilePlug("quat_normalize", q) }

// SoftApproach eases in towards target: below target-fade the input passes
// through, above it the output approaches target exponentially and never
// reaches it. A literal fade of zero or less returns in unchanged; a plug
// fade is guarded by a fade > 0 condition that passes in through otherwise.
func (c *Calculator) SoftApproach(in *Plug, fade, target any) (*Plug, error) {
	if isLiteral(fade) {
		f, err := ValueOf(fade)
		if err != nil {
			return nil, err
		}
		if x, ok := f.Float(); ok && x <= 0 {
			return in, nil
		}
	}
	start, err := c.Binary("sub", target, fade)
	if err != nil {
		return nil, err
	}
	diff, err := c.compilePlug("sub", []any{in, start})
	if err != nil {
		return nil, err
	}
	scaled, err := c.compilePlug("div", diff, fade)
	if err != nil {
		return nil, err
	}
	exponent, err := scaled.Neg()
	if err != nil {
		return nil, err
	}
	e, err := c.Exp(exponent)
	if err != nil {
		return nil, err
	}
	falloff, err := c.compilePlug("sub", []any{1, e})
	if err != nil {
		return nil, err
	}
	eased, err := c.compilePlug("mul", falloff, fade)
	if err != nil {
		return nil, err
	}
	soft, err := c.compilePlug("add", []any{eased, start})
	if err != nil {
		return nil, err
	}
	above, err := in.Gt(start)
	if err != nil {
		return nil, err
	}
	approached, err := c.Condition(above, soft, in)
	if err != nil || isLiteral(fade) {
		return approached, err
	}
	positive, err := c.compilePlug("gt", fade, 0)
	if err != nil {
		return nil, err
	}
	return c.Condition(positive, approached, in)
}
