package calc

import (
	"strings"

	"github.com/matzehuels/nodecalc/pkg/errors"
	"github.com/matzehuels/nodecalc/pkg/host"
)

// Primitive is a one-dimensional operand: an attribute, a bare node or a
// literal value.
type Primitive struct {
	Node  host.Identity
	Attr  string
	Value *Value
}

// IsValue reports whether the primitive is a literal.
func (p Primitive) IsValue() bool { return p.Value != nil }

// IsNode reports whether the primitive is a bare node reference.
func (p Primitive) IsNode() bool { return p.Value == nil && p.Attr == "" }

// Item is one top-level element of an unravelled argument. Nested lists
// keep one level of structure: an element that unravels to several
// primitives becomes a group.
type Item struct {
	Primitive
	Group []Primitive
}

// IsGroup reports whether the item holds several primitives.
func (it Item) IsGroup() bool { return it.Group != nil }

// Width is the number of primitives in the item.
func (it Item) Width() int {
	if it.IsGroup() {
		return len(it.Group)
	}
	return 1
}

// Flatten returns the item's primitives.
func (it Item) Flatten() []Primitive {
	if it.IsGroup() {
		return it.Group
	}
	return []Primitive{it.Primitive}
}

func itemOf(prims []Primitive) Item {
	if len(prims) == 1 {
		return Item{Primitive: prims[0]}
	}
	return Item{Group: prims}
}

func flatten(items []Item) []Primitive {
	var out []Primitive
	for _, it := range items {
		out = append(out, it.Flatten()...)
	}
	return out
}

// unravelled is an argument that has already been unravelled.
type unravelled []Item

func unravelledOf(prims []Primitive) unravelled {
	out := make(unravelled, len(prims))
	for i, p := range prims {
		out[i] = Item{Primitive: p}
	}
	return out
}

// Unravel normalizes v into primitives. Plugs on compound attributes are
// split into their children when unravelling is enabled on the plug and
// globally.
func (c *Calculator) Unravel(v any) ([]Item, error) {
	return c.unravel(v, true)
}

func (c *Calculator) unravel(v any, split bool) ([]Item, error) {
	switch x := v.(type) {
	case unravelled:
		return x, nil
	case *Plug:
		prims := c.unravelPlug(x, split)
		return unravelledOf(prims), nil
	case *List:
		return c.unravelElements(x.items, split)
	case []any:
		return c.unravelElements(x, split)
	case []*Plug:
		elems := make([]any, len(x))
		for i, p := range x {
			elems[i] = p
		}
		return c.unravelElements(elems, split)
	case []string:
		elems := make([]any, len(x))
		for i, s := range x {
			elems[i] = s
		}
		return c.unravelElements(elems, split)
	case *Value:
		return unravelledOf(valuePrimitives(x)), nil
	case string:
		p, err := c.Node(x)
		if err != nil {
			return nil, err
		}
		return c.unravel(p, split)
	case host.Identity:
		p, err := c.Node(x)
		if err != nil {
			return nil, err
		}
		return c.unravel(p, split)
	}
	val, err := ValueOf(v)
	if err != nil {
		return nil, errors.New(errors.ErrCodeUnsupportedType, "cannot unravel %v (%T)", v, v)
	}
	return unravelledOf(valuePrimitives(val)), nil
}

func (c *Calculator) unravelElements(elems []any, split bool) ([]Item, error) {
	out := make([]Item, 0, len(elems))
	for _, el := range elems {
		items, err := c.unravel(el, split)
		if err != nil {
			return nil, err
		}
		prims := flatten(items)
		if len(prims) == 0 {
			continue
		}
		out = append(out, itemOf(prims))
	}
	return out, nil
}

func valuePrimitives(v *Value) []Primitive {
	els := v.Elements()
	out := make([]Primitive, len(els))
	for i, el := range els {
		out[i] = Primitive{Value: el}
	}
	return out
}

func (c *Calculator) unravelPlug(p *Plug, split bool) []Primitive {
	if len(p.attrs) == 0 {
		return []Primitive{{Node: p.node}}
	}
	split = split && p.unravels()
	var out []Primitive
	for _, attr := range p.attrs {
		out = append(out, c.unravelAttr(p.node, attr, split)...)
	}
	return out
}

// unravelAttr canonicalizes one attribute and splits it into children.
// Attributes that do not resolve are kept verbatim so the resolver can name
// them in its error.
func (c *Calculator) unravelAttr(id host.Identity, attr string, split bool) []Primitive {
	canon, err := c.host.CanonicalAttribute(id, attr)
	if err != nil {
		return []Primitive{{Node: id, Attr: attr}}
	}
	if split {
		children, err := c.host.ChildAttributes(id, canon)
		if err == nil && len(children) > 0 {
			out := make([]Primitive, len(children))
			for i, ch := range children {
				out[i] = Primitive{Node: id, Attr: ch}
			}
			return out
		}
	}
	return []Primitive{{Node: id, Attr: canon}}
}

// describe renders a primitive for error messages and logs.
func (c *Calculator) describe(p Primitive) string {
	switch {
	case p.IsValue():
		return p.Value.Metadata
	case p.IsNode():
		return c.nodeName(p.Node)
	}
	return host.JoinPlug(c.nodeName(p.Node), p.Attr)
}

func (c *Calculator) describeAll(prims []Primitive) string {
	parts := make([]string, len(prims))
	for i, p := range prims {
		parts[i] = c.describe(p)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
