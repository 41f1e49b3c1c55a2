package script

import (
	"math"
	"slices"
	"strconv"

	"github.com/matzehuels/nodecalc/pkg/calc"
	"github.com/matzehuels/nodecalc/pkg/errors"
	"github.com/matzehuels/nodecalc/pkg/host"
)

// builtin is a script function. max < 0 means variadic.
type builtin struct {
	min, max int
	call     func(in *Interpreter, args []any) (any, error)
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"op": {1, -1, func(in *Interpreter, args []any) (any, error) {
			name, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			return in.calc.Op(name, args[1:]...)
		}},
		"node": {1, 1, func(in *Interpreter, args []any) (any, error) {
			return in.calc.Node(args[0])
		}},
		"list": {0, -1, func(in *Interpreter, args []any) (any, error) {
			return in.calc.List(args...)
		}},
		"get": {1, 1, func(in *Interpreter, args []any) (any, error) {
			switch x := args[0].(type) {
			case *calc.Plug:
				return x.Get()
			case *calc.List:
				vals, err := x.Get()
				if err != nil {
					return nil, err
				}
				out := make([]any, len(vals))
				for i, v := range vals {
					out[i] = v
				}
				return out, nil
			}
			return nil, errors.New(errors.ErrCodeUnsupportedType, "get expects a plug, got %s", Format(args[0]))
		}},

		// Nodes and attributes
		"create_node": {2, 2, func(in *Interpreter, args []any) (any, error) {
			typ, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			name, err := stringArg(args, 1)
			if err != nil {
				return nil, err
			}
			return in.calc.CreateNode(typ, name)
		}},
		"transform": {1, 1, func(in *Interpreter, args []any) (any, error) {
			name, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			return in.calc.Transform(name)
		}},
		"locator": {1, 1, func(in *Interpreter, args []any) (any, error) {
			name, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			return in.calc.Locator(name)
		}},
		"add_float":  addAttr((*calc.Plug).AddFloat),
		"add_int":    addAttr((*calc.Plug).AddInt),
		"add_bool":   addAttr((*calc.Plug).AddBool),
		"add_vector": addAttr((*calc.Plug).AddVector),
		"add_enum": {3, -1, func(in *Interpreter, args []any) (any, error) {
			p, err := plugArg(args, 0)
			if err != nil {
				return nil, err
			}
			name, err := stringArg(args, 1)
			if err != nil {
				return nil, err
			}
			cases := make([]string, 0, len(args)-2)
			for i := 2; i < len(args); i++ {
				s, err := stringArg(args, i)
				if err != nil {
					return nil, err
				}
				cases = append(cases, s)
			}
			return p.AddEnum(name, cases)
		}},
		"add_separator": {1, 1, func(in *Interpreter, args []any) (any, error) {
			p, err := plugArg(args, 0)
			if err != nil {
				return nil, err
			}
			return p.AddSeparator()
		}},

		// Arithmetic
		"pow": {2, 2, func(in *Interpreter, args []any) (any, error) {
			return in.calc.Binary("pow", args[0], args[1])
		}},
		"exp": {1, 1, func(in *Interpreter, args []any) (any, error) {
			return in.calc.Binary("pow", math.E, args[0])
		}},
		"sqrt": {1, 1, func(in *Interpreter, args []any) (any, error) {
			return in.calc.Binary("pow", args[0], 0.5)
		}},
		"average": {1, -1, func(in *Interpreter, args []any) (any, error) {
			return in.calc.Average(args...)
		}},
		"sum": {1, -1, func(in *Interpreter, args []any) (any, error) {
			return in.calc.Sum(args...)
		}},
		"clamp": {3, 3, func(in *Interpreter, args []any) (any, error) {
			return in.calc.Clamp(args[0], args[1], args[2])
		}},
		"blend": {3, 3, func(in *Interpreter, args []any) (any, error) {
			return in.calc.Blend(args[0], args[1], args[2])
		}},
		"remap_value": {5, 5, func(in *Interpreter, args []any) (any, error) {
			return in.calc.RemapValue(args[0], args[1], args[2], args[3], args[4])
		}},
		"set_range": {5, 5, func(in *Interpreter, args []any) (any, error) {
			return in.calc.SetRange(args[0], args[1], args[2], args[3], args[4])
		}},
		"soft_approach": {3, 3, func(in *Interpreter, args []any) (any, error) {
			p, err := plugArg(args, 0)
			if err != nil {
				return nil, err
			}
			return in.calc.SoftApproach(p, args[1], args[2])
		}},

		// Logic
		"condition": {3, 3, func(in *Interpreter, args []any) (any, error) {
			p, err := plugArg(args, 0)
			if err != nil {
				return nil, err
			}
			return in.calc.Condition(p, args[1], args[2])
		}},
		"choice": {2, 2, func(in *Interpreter, args []any) (any, error) {
			var inputs []any
			switch x := args[0].(type) {
			case []any:
				inputs = x
			case *calc.List:
				inputs = x.Items()
			default:
				return nil, errors.New(errors.ErrCodeUnsupportedType, "choice expects a list of inputs, got %s", Format(args[0]))
			}
			return in.calc.Choice(inputs, args[1])
		}},

		// Vectors
		"length": {2, 2, func(in *Interpreter, args []any) (any, error) {
			return in.calc.Length(args[0], args[1])
		}},
		"angle_between": {2, 2, func(in *Interpreter, args []any) (any, error) {
			return in.calc.AngleBetween(args[0], args[1])
		}},
		"cross": {2, 3, func(in *Interpreter, args []any) (any, error) {
			norm, err := optBool(args, 2)
			if err != nil {
				return nil, err
			}
			return in.calc.Cross(args[0], args[1], norm)
		}},
		"dot": {2, 3, func(in *Interpreter, args []any) (any, error) {
			norm, err := optBool(args, 2)
			if err != nil {
				return nil, err
			}
			return in.calc.Dot(args[0], args[1], norm)
		}},
		"normalize": {1, 1, func(in *Interpreter, args []any) (any, error) {
			return in.calc.NormalizeVector(args[0])
		}},
		"reverse": {1, 1, func(in *Interpreter, args []any) (any, error) {
			return in.calc.Reverse(args[0])
		}},

		// Matrices
		"compose_matrix": {4, 6, func(in *Interpreter, args []any) (any, error) {
			var order any = 0
			if len(args) > 4 {
				order = args[4]
			}
			euler, err := optBool(args, 5)
			if err != nil {
				return nil, err
			}
			if len(args) < 6 {
				euler = true
			}
			return in.calc.ComposeMatrix(args[0], args[1], args[2], args[3], order, euler)
		}},
		"decompose_matrix": {1, 1, func(in *Interpreter, args []any) (any, error) {
			return in.calc.DecomposeMatrix(args[0])
		}},
		"inverse_matrix": {1, 1, func(in *Interpreter, args []any) (any, error) {
			return in.calc.InverseMatrix(args[0])
		}},
		"transpose_matrix": {1, 1, func(in *Interpreter, args []any) (any, error) {
			return in.calc.TransposeMatrix(args[0])
		}},
		"mult_matrix": {1, -1, func(in *Interpreter, args []any) (any, error) {
			return in.calc.MultMatrix(args...)
		}},
		"point_matrix_mult": {2, 3, func(in *Interpreter, args []any) (any, error) {
			vec, err := optBool(args, 2)
			if err != nil {
				return nil, err
			}
			return in.calc.PointMatrixMult(args[0], args[1], vec)
		}},

		// Rotations
		"pair_blend": {5, 6, func(in *Interpreter, args []any) (any, error) {
			quat, err := optBool(args, 5)
			if err != nil {
				return nil, err
			}
			return in.calc.PairBlend(args[0], args[1], args[2], args[3], args[4], quat)
		}},
		"euler_to_quat": {1, 2, func(in *Interpreter, args []any) (any, error) {
			return in.calc.EulerToQuat(args[0], optArg(args, 1, 0))
		}},
		"quat_to_euler": {1, 2, func(in *Interpreter, args []any) (any, error) {
			return in.calc.QuatToEuler(args[0], optArg(args, 1, 0))
		}},
	}
}

func addAttr(add func(*calc.Plug, string, ...host.Flag) (*calc.Plug, error)) builtin {
	return builtin{2, 2, func(in *Interpreter, args []any) (any, error) {
		p, err := plugArg(args, 0)
		if err != nil {
			return nil, err
		}
		name, err := stringArg(args, 1)
		if err != nil {
			return nil, err
		}
		return add(p, name)
	}}
}

// call dispatches a function call. Names without a builtin fall through to
// the operator table, so every operation is callable by name.
func (in *Interpreter) call(name string, args []any) (any, error) {
	b, ok := builtins[name]
	if !ok {
		if !slices.Contains(in.calc.Operators(), name) {
			return nil, errors.New(errors.ErrCodeUnknownOperation, "unknown function %q", name)
		}
		return in.calc.Op(name, args...)
	}
	if len(args) < b.min || (b.max >= 0 && len(args) > b.max) {
		return nil, errors.New(errors.ErrCodeArity, "%s takes %s, got %d", name, arity(b), len(args))
	}
	return b.call(in, args)
}

// Functions lists the script builtins.
func Functions() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func arity(b builtin) string {
	switch {
	case b.max < 0:
		return "at least " + plural(b.min)
	case b.min == b.max:
		return plural(b.min)
	}
	return "between " + strconv.Itoa(b.min) + " and " + plural(b.max)
}

func plural(n int) string {
	if n == 1 {
		return "1 argument"
	}
	return strconv.Itoa(n) + " arguments"
}

func plugArg(args []any, i int) (*calc.Plug, error) {
	if p, ok := args[i].(*calc.Plug); ok {
		return p, nil
	}
	return nil, errors.New(errors.ErrCodeUnsupportedType, "argument %d must be a plug, got %s", i+1, Format(args[i]))
}

func stringArg(args []any, i int) (string, error) {
	if s, ok := args[i].(string); ok {
		return s, nil
	}
	return "", errors.New(errors.ErrCodeUnsupportedType, "argument %d must be a string, got %s", i+1, Format(args[i]))
}

func optArg(args []any, i int, def any) any {
	if i < len(args) {
		return args[i]
	}
	return def
}

func optBool(args []any, i int) (bool, error) {
	if i >= len(args) {
		return false, nil
	}
	switch x := args[i].(type) {
	case bool:
		return x, nil
	case *calc.Value:
		if b, ok := x.Raw().(bool); ok {
			return b, nil
		}
	}
	return false, errors.New(errors.ErrCodeUnsupportedType, "argument %d must be true or false, got %s", i+1, Format(args[i]))
}
