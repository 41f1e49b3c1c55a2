// Package render draws host scenes.
//
// The [nodelink] subpackage turns the node-level connection graph of a
// scene into Graphviz DOT and renders it to SVG in process:
//
//	dot := nodelink.ToDOT(g.DAG(), nodelink.Options{Generated: "nc_"})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [nodelink]: github.com/matzehuels/nodecalc/pkg/render/nodelink
package render
