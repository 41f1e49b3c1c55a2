package script

import (
	"math/big"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/matzehuels/nodecalc/pkg/calc"
	"github.com/matzehuels/nodecalc/pkg/errors"
)

var binaryOps = map[*hclsyntax.Operation]string{
	hclsyntax.OpAdd:                "add",
	hclsyntax.OpSubtract:           "sub",
	hclsyntax.OpMultiply:           "mul",
	hclsyntax.OpDivide:             "div",
	hclsyntax.OpEqual:              "eq",
	hclsyntax.OpNotEqual:           "ne",
	hclsyntax.OpGreaterThan:        "gt",
	hclsyntax.OpGreaterThanOrEqual: "ge",
	hclsyntax.OpLessThan:           "lt",
	hclsyntax.OpLessThanOrEqual:    "le",
}

func (in *Interpreter) eval(expr hclsyntax.Expression) (any, error) {
	switch e := expr.(type) {
	case *hclsyntax.LiteralValueExpr:
		return fromCty(e.Val)

	case *hclsyntax.TemplateExpr:
		if !e.IsStringLiteral() {
			return nil, unsupported(e, "string templates")
		}
		v, diags := e.Value(nil)
		if diags.HasErrors() {
			return nil, syntaxError(diags)
		}
		return v.AsString(), nil

	case *hclsyntax.ParenthesesExpr:
		return in.eval(e.Expression)

	case *hclsyntax.TupleConsExpr:
		items := make([]any, 0, len(e.Exprs))
		for _, x := range e.Exprs {
			v, err := in.eval(x)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil

	case *hclsyntax.ScopeTraversalExpr:
		return in.traverse(e.Traversal)

	case *hclsyntax.RelativeTraversalExpr:
		src, err := in.eval(e.Source)
		if err != nil {
			return nil, err
		}
		return in.step(src, e.Traversal)

	case *hclsyntax.IndexExpr:
		coll, err := in.eval(e.Collection)
		if err != nil {
			return nil, err
		}
		key, err := in.eval(e.Key)
		if err != nil {
			return nil, err
		}
		i, err := indexOf(key)
		if err != nil {
			return nil, err
		}
		return in.index(coll, i)

	case *hclsyntax.BinaryOpExpr:
		op, ok := binaryOps[e.Op]
		if !ok {
			return nil, unsupported(e, "this operator")
		}
		a, err := in.eval(e.LHS)
		if err != nil {
			return nil, err
		}
		b, err := in.eval(e.RHS)
		if err != nil {
			return nil, err
		}
		return in.calc.Binary(op, a, b)

	case *hclsyntax.UnaryOpExpr:
		if e.Op != hclsyntax.OpNegate {
			return nil, unsupported(e, "logical not")
		}
		v, err := in.eval(e.Val)
		if err != nil {
			return nil, err
		}
		return in.calc.Negate(v)

	case *hclsyntax.ConditionalExpr:
		return in.conditional(e)

	case *hclsyntax.FunctionCallExpr:
		if e.ExpandFinal {
			return nil, unsupported(e, "argument expansion")
		}
		args := make([]any, 0, len(e.Args))
		for _, x := range e.Args {
			v, err := in.eval(x)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		return in.call(e.Name, args)
	}
	return nil, unsupported(expr, "this expression")
}

// conditional compiles a condition node when the test is a plug and picks
// a branch when it is a literal.
func (in *Interpreter) conditional(e *hclsyntax.ConditionalExpr) (any, error) {
	test, err := in.eval(e.Condition)
	if err != nil {
		return nil, err
	}
	if p, ok := test.(*calc.Plug); ok {
		a, err := in.eval(e.TrueResult)
		if err != nil {
			return nil, err
		}
		b, err := in.eval(e.FalseResult)
		if err != nil {
			return nil, err
		}
		return in.calc.Condition(p, a, b)
	}
	v, err := calc.ValueOf(test)
	if err != nil {
		return nil, err
	}
	f, ok := v.Float()
	if !ok {
		return nil, errors.New(errors.ErrCodeUnsupportedType, "condition must be a plug or a scalar, got %s", v.Kind())
	}
	if f != 0 {
		return in.eval(e.TrueResult)
	}
	return in.eval(e.FalseResult)
}

// traverse resolves an absolute traversal. The root names a local if one is
// bound and a node otherwise.
func (in *Interpreter) traverse(t hcl.Traversal) (any, error) {
	root := t.RootName()
	if v, ok := in.locals[root]; ok {
		return in.step(v, t[1:])
	}
	p, err := in.calc.Node(root)
	if err != nil {
		return nil, err
	}
	return in.step(p, t[1:])
}

func (in *Interpreter) step(v any, t hcl.Traversal) (any, error) {
	for _, tr := range t {
		var err error
		switch s := tr.(type) {
		case hcl.TraverseAttr:
			v, err = attrOf(v, s.Name)
		case hcl.TraverseIndex:
			var i int
			if i, err = ctyIndex(s.Key); err == nil {
				v, err = in.index(v, i)
			}
		default:
			return nil, errors.New(errors.ErrCodeScriptSyntax, "splat traversals are not supported")
		}
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func attrOf(v any, name string) (any, error) {
	switch x := v.(type) {
	case *calc.Plug:
		return x.Attr(name), nil
	case *calc.List:
		return x.Attr(name), nil
	}
	return nil, errors.New(errors.ErrCodeUnsupportedType, "cannot take attribute %q of %s", name, Format(v))
}

// index indexes a plug, list, tuple or list value. A plug on a single array
// attribute addresses the array element; any other plug indexes its
// unravelled children.
func (in *Interpreter) index(v any, i int) (any, error) {
	switch x := v.(type) {
	case *calc.Plug:
		if attrs := x.Attrs(); len(attrs) == 1 {
			elem := attrs[0] + "[" + strconv.Itoa(i) + "]"
			if in.calc.Host().AttributeExists(x.Node(), elem) {
				return in.calc.Node(x, calc.WithAttrs(elem))
			}
		}
		return x.Index(i)
	case *calc.List:
		return x.Index(i)
	case []any:
		if i < 0 || i >= len(x) {
			return nil, errors.New(errors.ErrCodeIndexOutOfRange, "index %d out of range for %d items", i, len(x))
		}
		return x[i], nil
	case *calc.Value:
		elems := x.Elements()
		if i < 0 || i >= len(elems) {
			return nil, errors.New(errors.ErrCodeIndexOutOfRange, "index %d out of range for %s", i, x.Kind())
		}
		return elems[i], nil
	}
	return nil, errors.New(errors.ErrCodeUnsupportedType, "cannot index %s", Format(v))
}

// fromCty converts a literal into the calculator's Go literals: whole
// numbers become int, everything else float64.
func fromCty(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, errors.New(errors.ErrCodeUnsupportedType, "null is not a value")
	}
	switch v.Type() {
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return int(i), nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, errors.Wrap(errors.ErrCodeUnsupportedType, err, "convert number")
		}
		return f, nil
	case cty.Bool:
		return v.True(), nil
	case cty.String:
		return v.AsString(), nil
	}
	return nil, errors.New(errors.ErrCodeUnsupportedType, "unsupported literal of type %s", v.Type().FriendlyName())
}

func ctyIndex(key cty.Value) (int, error) {
	if key.Type() != cty.Number {
		return 0, errors.New(errors.ErrCodeUnsupportedType, "index must be a number, got %s", key.Type().FriendlyName())
	}
	var i int
	if err := gocty.FromCtyValue(key, &i); err != nil {
		return 0, errors.Wrap(errors.ErrCodeUnsupportedType, err, "index")
	}
	return i, nil
}

func indexOf(key any) (int, error) {
	switch k := key.(type) {
	case int:
		return k, nil
	case *calc.Value:
		if i, ok := k.Raw().(int); ok {
			return i, nil
		}
	}
	return 0, errors.New(errors.ErrCodeUnsupportedType, "index must be a whole number, got %s", Format(key))
}

func unsupported(e hclsyntax.Expression, what string) error {
	r := e.Range()
	return errors.New(errors.ErrCodeScriptSyntax, "%s: %s is not supported", r.String(), what)
}
