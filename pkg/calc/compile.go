package calc

import (
	"time"

	"github.com/matzehuels/nodecalc/pkg/errors"
	"github.com/matzehuels/nodecalc/pkg/host"
	"github.com/matzehuels/nodecalc/pkg/observability"
	"github.com/matzehuels/nodecalc/pkg/optable"
)

// Compile creates the node for one operation, wires every argument into it
// and returns its outputs: a *Plug for one output group, a *List of plugs
// for several.
//
// Arguments may be plugs, lists, values, literals, "node.attr" strings or
// slices of those. Operations with a single array input, such as "add",
// accept their arguments either spread or as one slice.
func (c *Calculator) Compile(op string, args ...any) (out Operand, err error) {
	start := time.Now()
	nodeType, maxDim := "", 0
	defer func() {
		observability.Compiler().OnCompile(c.ctx, op, nodeType, maxDim, time.Since(start), err)
	}()

	entry, err := c.table.Lookup(op)
	if err != nil {
		return nil, err
	}
	nodeType = entry.NodeType
	if entry.IsArrayInput() && entry.Arity() == 1 && len(args) > 1 {
		args = []any{args}
	}

	unravelledArgs := make([][]Item, len(args))
	for i, arg := range args {
		if unravelledArgs[i], err = c.Unravel(arg); err != nil {
			return nil, err
		}
	}
	if len(unravelledArgs) != entry.Arity() {
		return nil, errors.New(errors.ErrCodeArity, "%s takes %d arguments, got %d", op, entry.Arity(), len(unravelledArgs))
	}

	for g, items := range unravelledArgs {
		for _, axis := range inputAxes(items, entry.IsArrayGroup(g)) {
			maxDim = max(maxDim, len(axis))
		}
	}
	if maxDim > maxNativeDim {
		c.logger.Warn("operation wider than 3 dimensions", "op", op, "dims", maxDim)
	}

	name := c.operationNodeName(op, entry.NodeType, unravelledArgs)
	id, err := c.createNode(entry.NodeType, name)
	if err != nil {
		return nil, err
	}
	if entry.Mode != nil {
		if err := c.Connect(c.plug(id, "operation"), *entry.Mode); err != nil {
			return nil, err
		}
	}

	maxAxis, arrayLen := 0, 0
	for g, group := range entry.Inputs {
		axes := inputAxes(unravelledArgs[g], entry.IsArrayGroup(g))
		if entry.IsArrayGroup(g) {
			arrayLen = max(arrayLen, len(axes))
		}
		for idx, axis := range axes {
			width, err := c.wireAxis(id, op, group, idx, axis, maxDim)
			if err != nil {
				return nil, err
			}
			maxAxis = max(maxAxis, width)
		}
	}

	outputs := outputGroups(entry, maxAxis, arrayLen)
	c.logger.Debug("compiled", "op", op, "node", c.nodeName(id), "dims", maxDim)
	if len(outputs) == 1 {
		return c.plug(id, outputs[0]...), nil
	}
	l := &List{calc: c}
	for _, attrs := range outputs {
		l.items = append(l.items, c.plug(id, attrs...))
	}
	return l, nil
}

// compilePlug compiles an operation whose result is a single output group.
func (c *Calculator) compilePlug(op string, args ...any) (*Plug, error) {
	out, err := c.Compile(op, args...)
	if err != nil {
		return nil, err
	}
	p, ok := out.(*Plug)
	if !ok {
		return nil, errors.New(errors.ErrCodeInternal, "%s returned %d output groups", op, len(out.Plugs()))
	}
	return p, nil
}

// inputAxes splits an argument into the operands of one input group. An
// array group takes one operand per item; a plain group takes the whole
// argument as one operand.
func inputAxes(items []Item, array bool) [][]Primitive {
	if !array {
		if prims := flatten(items); len(prims) > 0 {
			return [][]Primitive{prims}
		}
		return nil
	}
	axes := make([][]Primitive, len(items))
	for i, it := range items {
		axes[i] = it.Flatten()
	}
	return axes
}

// wireAxis connects one operand into the input templates of group at array
// index idx and returns the number of dimensions it wired.
func (c *Calculator) wireAxis(id host.Identity, op string, group []string, idx int, axis []Primitive, maxDim int) (int, error) {
	templates := make([]string, len(group))
	for i, t := range group {
		templates[i] = optable.FormatTemplate(t, idx)
	}
	n, width := len(axis), len(templates)
	switch {
	case n > 1 && width == 1:
		return 0, errors.New(errors.ErrCodeDimensionMismatch,
			"%s input %s is 1-D, got %d-D %s", op, templates[0], n, c.describeAll(axis))
	case n > width:
		return 0, errors.New(errors.ErrCodeDimensionMismatch,
			"%s input %v is %d-D, got %d-D %s", op, templates, width, n, c.describeAll(axis))
	case n == 1 && width > 1:
		n = max(1, min(maxDim, width))
		for len(axis) < n {
			axis = append(axis, axis[0])
		}
	}
	dst := c.plug(id, templates[:n]...)
	if err := c.Connect(dst, unravelledOf(axis)); err != nil {
		return 0, err
	}
	return n, nil
}

// outputGroups expands array outputs per used index and truncates each
// multi-entry group to the widest wired operand unless the operation's
// outputs are predetermined.
func outputGroups(entry optable.Entry, maxAxis, arrayLen int) [][]string {
	out := make([][]string, 0, len(entry.Outputs))
	for _, group := range entry.Outputs {
		var attrs []string
		isArray := false
		for _, t := range group {
			if optable.FormatTemplate(t, 0) != t {
				isArray = true
			}
		}
		if isArray {
			for i := 0; i < max(1, arrayLen); i++ {
				for _, t := range group {
					attrs = append(attrs, optable.FormatTemplate(t, i))
				}
			}
		} else {
			attrs = append([]string(nil), group...)
			if len(attrs) > 1 && !entry.OutputIsPredetermined {
				attrs = attrs[:max(1, min(maxAxis, len(attrs)))]
			}
		}
		out = append(out, attrs)
	}
	return out
}
