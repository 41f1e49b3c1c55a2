package calc

import (
	"strings"

	"github.com/matzehuels/nodecalc/pkg/errors"
	"github.com/matzehuels/nodecalc/pkg/host"
)

// List is an ordered collection of plugs and values. Operators apply to the
// list as one argument, element order preserved.
type List struct {
	calc  *Calculator
	items []any // *Plug or *Value
}

func (*List) isOperand() {}

// List builds a list. Strings name plugs, numbers and bools become values.
func (c *Calculator) List(items ...any) (*List, error) {
	l := &List{calc: c}
	if err := l.Extend(items...); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *List) normalize(v any) (any, error) {
	switch x := v.(type) {
	case *Plug:
		return x, nil
	case *Value:
		return x, nil
	case string, host.Identity:
		return l.calc.Node(x)
	}
	val, err := ValueOf(v)
	if err != nil {
		return nil, errors.New(errors.ErrCodeUnsupportedType, "list items must be plugs or literals, got %T", v)
	}
	return val, nil
}

// Len returns the number of items.
func (l *List) Len() int { return len(l.items) }

// Items returns a copy of the items.
func (l *List) Items() []any { return append([]any(nil), l.items...) }

// Index returns item i.
func (l *List) Index(i int) (any, error) {
	if i < 0 || i >= len(l.items) {
		return nil, errors.New(errors.ErrCodeIndexOutOfRange, "index %d out of range for list of %d", i, len(l.items))
	}
	return l.items[i], nil
}

// Append adds an item.
func (l *List) Append(v any) error {
	item, err := l.normalize(v)
	if err != nil {
		return err
	}
	l.items = append(l.items, item)
	return nil
}

// Insert adds an item before position i.
func (l *List) Insert(i int, v any) error {
	if i < 0 || i > len(l.items) {
		return errors.New(errors.ErrCodeIndexOutOfRange, "index %d out of range for list of %d", i, len(l.items))
	}
	item, err := l.normalize(v)
	if err != nil {
		return err
	}
	l.items = append(l.items, nil)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = item
	return nil
}

// Extend appends every item.
func (l *List) Extend(items ...any) error {
	for _, v := range items {
		if err := l.Append(v); err != nil {
			return err
		}
	}
	return nil
}

// SetIndex drives item i from v. Only plug items can be driven.
func (l *List) SetIndex(i int, v any) error {
	item, err := l.Index(i)
	if err != nil {
		return err
	}
	return l.calc.Connect(item, v)
}

// Attr chains name onto every plug item. Values are kept.
func (l *List) Attr(name string) *List {
	out := &List{calc: l.calc, items: make([]any, len(l.items))}
	for i, item := range l.items {
		if p, ok := item.(*Plug); ok {
			item = p.Attr(name)
		}
		out.items[i] = item
	}
	return out
}

// SetAttr drives the chained attribute of every plug item from v.
func (l *List) SetAttr(name string, v any) error {
	for _, item := range l.items {
		if p, ok := item.(*Plug); ok {
			if err := p.SetAttr(name, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Set drives the whole list from v.
func (l *List) Set(v any) error { return l.calc.Connect(l, v) }

// Get reads every item. Value items are returned as they are.
func (l *List) Get() ([]*Value, error) {
	out := make([]*Value, 0, len(l.items))
	for _, item := range l.items {
		switch x := item.(type) {
		case *Value:
			out = append(out, x)
		case *Plug:
			v, err := x.Get()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// Nodes returns the node of every plug item.
func (l *List) Nodes() []host.Identity {
	var out []host.Identity
	for _, item := range l.items {
		if p, ok := item.(*Plug); ok {
			out = append(out, p.node)
		}
	}
	return out
}

// Plugs returns the plug strings of every plug item.
func (l *List) Plugs() []string {
	var out []string
	for _, item := range l.items {
		if p, ok := item.(*Plug); ok {
			out = append(out, p.Plugs()...)
		}
	}
	return out
}

func (l *List) String() string {
	parts := make([]string, len(l.items))
	for i, item := range l.items {
		switch x := item.(type) {
		case *Plug:
			parts[i] = x.String()
		case *Value:
			parts[i] = x.Metadata
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// unravels is false when any plug item disables unravelling.
func (l *List) unravels() bool {
	for _, item := range l.items {
		if p, ok := item.(*Plug); ok && !p.unravels() {
			return false
		}
	}
	return l.calc.autoUnravel
}

func (l *List) consolidates() bool {
	for _, item := range l.items {
		if p, ok := item.(*Plug); ok && !p.autoConsolidate {
			return false
		}
	}
	return true
}

func (l *List) Add(other any) (*Plug, error) { return l.calc.compilePlug("add", []any{l, other}) }
func (l *List) Sub(other any) (*Plug, error) { return l.calc.compilePlug("sub", []any{l, other}) }
func (l *List) Mul(other any) (*Plug, error) { return l.calc.compilePlug("mul", l, other) }
func (l *List) Div(other any) (*Plug, error) { return l.calc.compilePlug("div", l, other) }
func (l *List) Pow(other any) (*Plug, error) { return l.calc.compilePlug("pow", l, other) }
func (l *List) Eq(other any) (*Plug, error)  { return l.calc.compilePlug("eq", l, other) }
func (l *List) Ne(other any) (*Plug, error)  { return l.calc.compilePlug("ne", l, other) }
func (l *List) Gt(other any) (*Plug, error)  { return l.calc.compilePlug("gt", l, other) }
func (l *List) Ge(other any) (*Plug, error)  { return l.calc.compilePlug("ge", l, other) }
func (l *List) Lt(other any) (*Plug, error)  { return l.calc.compilePlug("lt", l, other) }
func (l *List) Le(other any) (*Plug, error)  { return l.calc.compilePlug("le", l, other) }
