package calc

import (
	"slices"

	"github.com/matzehuels/nodecalc/pkg/errors"
	"github.com/matzehuels/nodecalc/pkg/host"
	"github.com/matzehuels/nodecalc/pkg/observability"
)

// maxNativeDim is the widest operand native nodes are built for.
const maxNativeDim = 3

type reference interface {
	unravels() bool
	consolidates() bool
}

func (p *Plug) consolidates() bool { return p.autoConsolidate }

// Connect drives dst from src. Both sides are unravelled and matched by
// dimension: a one-dimensional source is broadcast onto a wider
// destination. For every pair a literal source is set and an attribute
// source is connected, replacing any existing input.
//
// When both sides are the complete, ordered children of one parent the
// parents are connected instead.
func (c *Calculator) Connect(dst, src any) error {
	split := true
	dstRef, dstIsRef := dst.(reference)
	srcRef, srcIsRef := src.(reference)
	if dstIsRef && srcIsRef && !(dstRef.unravels() && srcRef.unravels()) {
		split = false
	}

	dstItems, err := c.unravel(dst, split)
	if err != nil {
		return err
	}
	srcItems, err := c.unravel(src, split)
	if err != nil {
		return err
	}
	dp, sp := flatten(dstItems), flatten(srcItems)

	switch {
	case len(dp) == 0:
		return errors.New(errors.ErrCodeInvalidDestination, "nothing to connect into")
	case len(sp) == 0:
		return errors.New(errors.ErrCodeUnsupportedSourceType, "nothing to connect into %s", c.describeAll(dp))
	case len(dp) == 1 && len(sp) != 1:
		return errors.New(errors.ErrCodeAmbiguousConnection,
			"cannot connect %d-D %s into 1-D %s", len(sp), c.describeAll(sp), c.describeAll(dp))
	case len(dp) > 1 && len(sp) > 1 && len(dp) != len(sp):
		return errors.New(errors.ErrCodeDimensionMismatch,
			"cannot connect %d-D %s into %d-D %s", len(sp), c.describeAll(sp), len(dp), c.describeAll(dp))
	case len(sp) == 1 && len(dp) > 1:
		sp = slices.Repeat(sp, len(dp))
	}
	if len(dp) > maxNativeDim {
		c.logger.Warn("connecting more than 3 dimensions", "dst", c.describeAll(dp), "dims", len(dp))
	}

	if c.autoConsolidate && (!dstIsRef || dstRef.consolidates()) && (!srcIsRef || srcRef.consolidates()) {
		dp, sp = c.consolidatePair(dp, sp)
	}

	for i := range dp {
		if err := c.resolvePair(dp[i], sp[i]); err != nil {
			return err
		}
	}
	return nil
}

// consolidatePair replaces both sides with their parents when both reduce.
func (c *Calculator) consolidatePair(dp, sp []Primitive) ([]Primitive, []Primitive) {
	if len(dp) < 2 {
		return dp, sp
	}
	dParent, ok := c.consolidate(dp)
	if !ok {
		return dp, sp
	}
	sParent, ok := c.consolidate(sp)
	if !ok {
		return dp, sp
	}
	observability.Resolver().OnConsolidate(c.ctx,
		host.JoinPlug(c.nodeName(sp[0].Node), sParent),
		host.JoinPlug(c.nodeName(dp[0].Node), dParent), len(dp))
	c.logger.Debug("consolidated", "src", c.describe(Primitive{Node: sp[0].Node, Attr: sParent}),
		"dst", c.describe(Primitive{Node: dp[0].Node, Attr: dParent}), "children", len(dp))
	return []Primitive{{Node: dp[0].Node, Attr: dParent}}, []Primitive{{Node: sp[0].Node, Attr: sParent}}
}

// consolidate reports the parent whose children are exactly prims, in
// order. Literals, bare nodes, mixed nodes, duplicates, gaps and
// reorderings never consolidate.
func (c *Calculator) consolidate(prims []Primitive) (string, bool) {
	first := prims[0]
	if first.IsValue() || first.IsNode() {
		return "", false
	}
	parent, ok := c.host.ParentAttribute(first.Node, first.Attr)
	if !ok {
		return "", false
	}
	children, err := c.host.ChildAttributes(first.Node, parent)
	if err != nil || len(children) != len(prims) {
		return "", false
	}
	for i, p := range prims {
		if p.IsValue() || p.Node != first.Node {
			return "", false
		}
		canon, err := c.host.CanonicalAttribute(p.Node, p.Attr)
		if err != nil || canon != children[i] {
			return "", false
		}
	}
	return parent, true
}

func (c *Calculator) resolvePair(dst, src Primitive) error {
	if dst.IsValue() || dst.IsNode() || !c.host.AttributeExists(dst.Node, dst.Attr) {
		return errors.New(errors.ErrCodeInvalidDestination, "%s is not an attribute", c.describe(dst))
	}
	switch {
	case src.IsValue():
		return c.setAttr(dst.Node, dst.Attr, src.Value)
	case !src.IsNode() && c.host.AttributeExists(src.Node, src.Attr):
		return c.connectAttr(src.Node, src.Attr, dst.Node, dst.Attr)
	}
	return errors.New(errors.ErrCodeUnsupportedSourceType, "cannot connect %s into %s", c.describe(src), c.describe(dst))
}
