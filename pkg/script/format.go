package script

import (
	"fmt"
	"strings"

	"github.com/matzehuels/nodecalc/pkg/calc"
)

// Format renders a statement result for display: plugs by path, values as
// "metadata = literal" when the metadata is an expression.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case calc.Operand:
		return x.String()
	case *calc.Value:
		if lit := x.Literal(); x.Metadata != lit && x.Metadata != "" {
			return x.Metadata + " = " + lit
		}
		return x.Literal()
	case []any:
		parts := make([]string, len(x))
		for i, el := range x {
			parts[i] = Format(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return fmt.Sprintf("%q", x)
	}
	if val, err := calc.ValueOf(v); err == nil {
		return val.Literal()
	}
	return fmt.Sprint(v)
}
