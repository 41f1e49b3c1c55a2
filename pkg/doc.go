// Package pkg holds the nodecalc libraries.
//
// nodecalc compiles arithmetic written against node attributes into the
// utility nodes and connections that compute it inside a node-graph host,
// recording the host commands it issues along the way.
//
// # Layout
//
//   - [optable]: the operator table, built from TOML bundles
//   - [host]: the interface the calculator drives, plus the in-memory
//     [memory] host that backs the CLI, the API and tests
//   - [calc]: plugs, lists, operator compilation, consolidation and tracing
//   - [script]: the statement language on top of calc
//   - [dag]: the node-level connection graph of a scene
//   - [render/nodelink]: DOT and SVG diagrams of that graph
//   - [pipeline]: load a scene, run a script, render the result
//   - [cache]: file, Redis and null result caches
//   - [config], [errors], [observability], [httputil], [buildinfo]
//
// # Data flow
//
//	scene TOML ──▶ memory.Graph ──▶ calc.Calculator ◀── script
//	                                     │
//	                          host commands (trace)
//	                                     ▼
//	                      dag.DAG ──▶ DOT / SVG / scene TOML
//
// [optable]: github.com/matzehuels/nodecalc/pkg/optable
// [host]: github.com/matzehuels/nodecalc/pkg/host
// [memory]: github.com/matzehuels/nodecalc/pkg/host/memory
// [calc]: github.com/matzehuels/nodecalc/pkg/calc
// [script]: github.com/matzehuels/nodecalc/pkg/script
// [dag]: github.com/matzehuels/nodecalc/pkg/dag
// [render/nodelink]: github.com/matzehuels/nodecalc/pkg/render/nodelink
// [pipeline]: github.com/matzehuels/nodecalc/pkg/pipeline
// [cache]: github.com/matzehuels/nodecalc/pkg/cache
// [config]: github.com/matzehuels/nodecalc/pkg/config
// [errors]: github.com/matzehuels/nodecalc/pkg/errors
// [observability]: github.com/matzehuels/nodecalc/pkg/observability
// [httputil]: github.com/matzehuels/nodecalc/pkg/httputil
// [buildinfo]: github.com/matzehuels/nodecalc/pkg/buildinfo
package pkg
