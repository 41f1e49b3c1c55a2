// Package dag provides the node-level connection graph of a host scene.
//
// # Overview
//
// A host scene connects individual attributes ("pCube1.tx" into
// "nc_ADD_tx_2f_plusMinusAverage.input1D[0]"). Rendering and cycle
// reporting only care which node feeds which, so this package keeps one
// vertex per host node and one [Edge] per attribute connection, and derives
// distinct parent/child adjacency from the edges.
//
// Every destination attribute has at most one incoming connection: adding a
// second edge into the same (To, ToAttr) replaces the first, mirroring the
// host's last-writer-wins connection semantics.
//
// # Basic Usage
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: id1, Name: "pCube1", Type: "transform"})
//	g.AddNode(dag.Node{ID: id2, Name: "nc_MUL_tx_2f_multiplyDivide", Type: "multiplyDivide"})
//	g.AddEdge(dag.Edge{From: id1, FromAttr: "translateX", To: id2, ToAttr: "input1X"})
//
// [DAG.AssignLayers] assigns rows by longest path for layered drawing,
// [DAG.FindCycle] reports a directed cycle if the connections form one.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use. The memory host guards
// its graph with its own lock.
package dag
