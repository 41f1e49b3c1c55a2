package calc

import (
	"strings"

	"github.com/matzehuels/nodecalc/pkg/errors"
	"github.com/matzehuels/nodecalc/pkg/host"
)

// Operand is a compiled result: a single plug or a list of plugs.
type Operand interface {
	Plugs() []string
	String() string
	isOperand()
}

// Plug references a node and zero or more of its attributes. Plugs are
// immutable; chaining and arithmetic return new plugs.
type Plug struct {
	calc  *Calculator
	node  host.Identity
	attrs []string

	autoUnravel     bool
	autoConsolidate bool
}

func (*Plug) isOperand() {}

// PlugOption configures a plug returned by Calculator.Node.
type PlugOption func(*Plug)

// WithAttrs replaces the plug's attributes.
func WithAttrs(attrs ...string) PlugOption {
	return func(p *Plug) { p.attrs = append([]string(nil), attrs...) }
}

// WithAutoUnravel controls compound splitting for this plug. It only takes
// effect while the global flag is on too.
func WithAutoUnravel(on bool) PlugOption {
	return func(p *Plug) { p.autoUnravel = on }
}

// WithAutoConsolidate controls parent consolidation for this plug.
func WithAutoConsolidate(on bool) PlugOption {
	return func(p *Plug) { p.autoConsolidate = on }
}

// keywordAttrs returns the receiver's own attribute view instead of chaining.
const keywordAttrs = "attrs"

func (p *Plug) derive(attrs []string) *Plug {
	cp := *p
	cp.attrs = attrs
	return &cp
}

// Node returns the node identity.
func (p *Plug) Node() host.Identity { return p.node }

// Name returns the node's current name.
func (p *Plug) Name() string { return p.calc.nodeName(p.node) }

// Attrs returns a copy of the attribute names.
func (p *Plug) Attrs() []string { return append([]string(nil), p.attrs...) }

// Plugs returns "node.attr" strings, or the node name for a bare node.
func (p *Plug) Plugs() []string {
	name := p.Name()
	if len(p.attrs) == 0 {
		return []string{name}
	}
	out := make([]string, len(p.attrs))
	for i, a := range p.attrs {
		out[i] = host.JoinPlug(name, a)
	}
	return out
}

func (p *Plug) String() string {
	plugs := p.Plugs()
	if len(plugs) == 1 {
		return plugs[0]
	}
	return "[" + strings.Join(plugs, ", ") + "]"
}

// Attr chains name onto the attribute path: "translate" becomes
// "translate.x", a bare node gets "x" and every attribute of a multi
// attribute plug gets the suffix. Attr("attrs") returns a copy of p.
func (p *Plug) Attr(name string) *Plug {
	if name == keywordAttrs {
		return p.derive(p.Attrs())
	}
	if len(p.attrs) == 0 {
		return p.derive([]string{name})
	}
	out := make([]string, len(p.attrs))
	for i, a := range p.attrs {
		out[i] = a + "." + name
	}
	return p.derive(out)
}

// SetAttr drives the chained attribute name from v.
func (p *Plug) SetAttr(name string, v any) error {
	if name == keywordAttrs {
		return p.Set(v)
	}
	return p.calc.Connect(p.Attr(name), v)
}

// Set drives the plug from v: literals are set, plugs are connected.
func (p *Plug) Set(v any) error {
	return p.calc.Connect(p, v)
}

// Index returns a plug on the i-th attribute. A single compound attribute is
// indexed by its children when the plug unravels.
func (p *Plug) Index(i int) (*Plug, error) {
	attrs := p.attrs
	if len(attrs) == 1 && p.unravels() {
		if children, err := p.calc.host.ChildAttributes(p.node, attrs[0]); err == nil && len(children) > 0 {
			attrs = children
		}
	}
	if i < 0 || i >= len(attrs) {
		return nil, errors.New(errors.ErrCodeIndexOutOfRange, "index %d out of range for %s (%d attributes)", i, p, len(attrs))
	}
	return p.derive([]string{attrs[i]}), nil
}

// SetIndex drives the i-th attribute from v.
func (p *Plug) SetIndex(i int, v any) error {
	el, err := p.Index(i)
	if err != nil {
		return err
	}
	return el.Set(v)
}

// Get reads the value of a single attribute. Inside a trace the value is
// named val1, val2, ... so arithmetic on it stays symbolic.
func (p *Plug) Get() (*Value, error) {
	if len(p.attrs) != 1 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "get needs exactly one attribute, %s has %d", p, len(p.attrs))
	}
	return p.calc.getAttr(p.node, p.attrs[0])
}

func (p *Plug) unravels() bool { return p.autoUnravel && p.calc.autoUnravel }

func (p *Plug) Add(other any) (*Plug, error) { return p.calc.compilePlug("add", []any{p, other}) }
func (p *Plug) Sub(other any) (*Plug, error) { return p.calc.compilePlug("sub", []any{p, other}) }
func (p *Plug) Mul(other any) (*Plug, error) { return p.calc.compilePlug("mul", p, other) }
func (p *Plug) Div(other any) (*Plug, error) { return p.calc.compilePlug("div", p, other) }
func (p *Plug) Pow(other any) (*Plug, error) { return p.calc.compilePlug("pow", p, other) }
func (p *Plug) Eq(other any) (*Plug, error)  { return p.calc.compilePlug("eq", p, other) }
func (p *Plug) Ne(other any) (*Plug, error)  { return p.calc.compilePlug("ne", p, other) }
func (p *Plug) Gt(other any) (*Plug, error)  { return p.calc.compilePlug("gt", p, other) }
func (p *Plug) Ge(other any) (*Plug, error)  { return p.calc.compilePlug("ge", p, other) }
func (p *Plug) Lt(other any) (*Plug, error)  { return p.calc.compilePlug("lt", p, other) }
func (p *Plug) Le(other any) (*Plug, error)  { return p.calc.compilePlug("le", p, other) }

// Neg multiplies by -1.
func (p *Plug) Neg() (*Plug, error) { return p.Mul(-1) }
