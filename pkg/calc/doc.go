// Package calc compiles arithmetic on node attributes into host node graphs.
//
// A [Calculator] wraps a [host.Graph]. Expressions are written with [Plug]
// references and plain literals; every operation creates one host node from
// the operator table, wires its inputs and returns a plug on its outputs:
//
//	c := calc.New(g)
//	a, _ := c.Node("A")
//	b, _ := c.Node("B.ty")
//	sum, _ := b.Add(2)             // plusMinusAverage node
//	_ = a.SetAttr("tx", sum)       // connects its output into A.translateX
//
// # Unravelling
//
// Compound attributes are split into their children before wiring
// ("translate" becomes translateX, translateY and translateZ), so operations
// work per dimension. A single-dimension side is broadcast onto a wider one.
// When both sides of a connection turn out to be the complete, ordered child
// set of one parent, the children are consolidated and a single parent
// connection is made instead.
//
// # Tracing
//
// [Calculator.Trace] records every host call made inside it as a replayable
// script line. Nodes created during the trace are referenced through
// variables (var1, var2, ...) and queried values through value names (val1,
// val2, ...) so derived literals keep their provenance:
//
//	session, err := c.Trace(func(*calc.TracerSession) error {
//	    x, _ := a.Attr("tx").Get()
//	    y, _ := x.Add(2)
//	    return b.Set(y)
//	})
//	fmt.Print(session)
//	// val1 = cmds.getAttr('A.translateX')
//	// cmds.setAttr('B.translateY', val1 + 2)
//
// A Calculator is not safe for concurrent use. Failed operations leave the
// nodes they already created in the host graph.
package calc
