// Package memory is an in-process implementation of [host.Graph].
//
// It models just enough of a node-based host for the calculator to build
// against: typed nodes from a TOML catalog, compound and array attributes,
// dynamic attributes, stored values and last-writer-wins connections. It
// does not evaluate the graph; reading a connected attribute returns the
// value stored on it.
//
// Node identities are UUIDs and survive renames. Every connection is
// mirrored into a [dag.DAG] so scenes can be rendered and checked for
// cycles.
//
// # Usage
//
//	g := memory.New()
//	a, _ := g.CreateNode("transform", "A")
//	b, _ := g.CreateNode("transform", "B")
//	_ = g.ConnectAttribute(b, "translate", a, "translate")
//	g.DAG().FindCycle() // nil
package memory

import (
	stderrors "errors"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/matzehuels/nodecalc/pkg/dag"
	"github.com/matzehuels/nodecalc/pkg/errors"
	"github.com/matzehuels/nodecalc/pkg/host"
)

var (
	// ErrNodeNotFound is the cause of NOT_FOUND errors for unknown nodes.
	ErrNodeNotFound = stderrors.New("node not found")

	// ErrAttributeNotFound is the cause of INVALID_ATTRIBUTE errors for
	// paths that do not resolve.
	ErrAttributeNotFound = stderrors.New("attribute not found")

	// ErrUnknownNodeType is the cause of INVALID_NODE_TYPE errors.
	ErrUnknownNodeType = stderrors.New("unknown node type")

	// ErrAttributeExists is returned by AddAttribute for a taken name.
	ErrAttributeExists = stderrors.New("attribute already exists")

	// ErrLocked is the cause of errors writing to a locked attribute.
	ErrLocked = stderrors.New("attribute is locked")
)

var _ host.Graph = (*Graph)(nil)

type source struct {
	node host.Identity
	attr string
}

type node struct {
	id      host.Identity
	name    string
	typ     string
	attrs   []*attrDef
	values  map[string]any
	inputs  map[string]source
	locked  map[string]bool
	dynamic []AttrSpec
}

// Graph is the in-memory host. It is safe for concurrent use.
type Graph struct {
	mu      sync.RWMutex
	catalog *Catalog
	nodes   map[host.Identity]*node
	byName  map[string]host.Identity
	order   []host.Identity
	dag     *dag.DAG
	custom  []string // node types registered through RegisterType
}

// Option configures a Graph.
type Option func(*Graph)

// WithCatalog replaces the node-type catalog.
func WithCatalog(c *Catalog) Option {
	return func(g *Graph) { g.catalog = c }
}

// New creates an empty scene.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:  make(map[host.Identity]*node),
		byName: make(map[string]host.Identity),
		dag:    dag.New(nil),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.catalog == nil {
		g.catalog = DefaultCatalog()
	}
	return g
}

// Catalog returns the scene's node-type catalog.
func (g *Graph) Catalog() *Catalog { return g.catalog }

// DAG returns the node-level connection graph. Callers must not modify it.
func (g *Graph) DAG() *dag.DAG {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dag
}

// =============================================================================
// Nodes
// =============================================================================

// CreateNode implements host.Graph.
func (g *Graph) CreateNode(nodeType, name string) (host.Identity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	defs, err := g.catalog.resolveType(nodeType)
	if err != nil {
		return "", err
	}
	if name == "" {
		name = nodeType + "1"
	}
	if err := errors.ValidateNodeName(name); err != nil {
		return "", err
	}
	name = g.uniqueName(name)

	n := &node{
		id:     host.Identity(uuid.NewString()),
		name:   name,
		typ:    nodeType,
		attrs:  defs,
		values: make(map[string]any),
		inputs: make(map[string]source),
		locked: make(map[string]bool),
	}
	g.nodes[n.id] = n
	g.byName[name] = n.id
	g.order = append(g.order, n.id)
	if err := g.dag.AddNode(dag.Node{ID: string(n.id), Name: name, Type: nodeType}); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "index node %q", name)
	}
	return n.id, nil
}

var trailingDigits = regexp.MustCompile(`\d+$`)

// uniqueName increments a trailing number until name is free.
func (g *Graph) uniqueName(name string) string {
	if _, taken := g.byName[name]; !taken {
		return name
	}
	base := name
	next := 1
	if m := trailingDigits.FindString(name); m != "" {
		base = strings.TrimSuffix(name, m)
		n, _ := strconv.Atoi(m)
		next = n + 1
	}
	for {
		candidate := base + strconv.Itoa(next)
		if _, taken := g.byName[candidate]; !taken {
			return candidate
		}
		next++
	}
}

// Rename changes a node's name and returns the name it received.
func (g *Graph) Rename(id host.Identity, name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, err := g.node(string(id))
	if err != nil {
		return "", err
	}
	if err := errors.ValidateNodeName(name); err != nil {
		return "", err
	}
	if name == n.name {
		return name, nil
	}
	delete(g.byName, n.name)
	n.name = g.uniqueName(name)
	g.byName[n.name] = n.id
	_ = g.dag.SetName(string(n.id), n.name)
	return n.name, nil
}

// node resolves a name or identity. Callers hold the lock.
func (g *Graph) node(nameOrID string) (*node, error) {
	if n, ok := g.nodes[host.Identity(nameOrID)]; ok {
		return n, nil
	}
	if id, ok := g.byName[nameOrID]; ok {
		return g.nodes[id], nil
	}
	return nil, errors.Wrap(errors.ErrCodeNotFound, ErrNodeNotFound, "%q", nameOrID)
}

// NodeExists implements host.Graph.
func (g *Graph) NodeExists(nameOrIdentity string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, err := g.node(nameOrIdentity)
	return err == nil
}

// LookupNode implements host.Graph.
func (g *Graph) LookupNode(name string) (host.Identity, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, err := g.node(name)
	if err != nil {
		return "", false
	}
	return n.id, true
}

// NodeName implements host.Graph.
func (g *Graph) NodeName(id host.Identity) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, err := g.node(string(id))
	if err != nil {
		return "", err
	}
	return n.name, nil
}

// NodeType implements host.Graph.
func (g *Graph) NodeType(id host.Identity) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, err := g.node(string(id))
	if err != nil {
		return "", err
	}
	return n.typ, nil
}

// NodeInfo describes one node of the scene.
type NodeInfo struct {
	ID   host.Identity
	Name string
	Type string
}

// Nodes lists every node in creation order.
func (g *Graph) Nodes() []NodeInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]NodeInfo, 0, len(g.order))
	for _, id := range g.order {
		n := g.nodes[id]
		out = append(out, NodeInfo{ID: n.id, Name: n.name, Type: n.typ})
	}
	return out
}

// NodesOfType lists the names of every node of nodeType in creation order.
func (g *Graph) NodesOfType(nodeType string) []string {
	var names []string
	for _, n := range g.Nodes() {
		if n.Type == nodeType {
			names = append(names, n.Name)
		}
	}
	return names
}

// =============================================================================
// Attributes
// =============================================================================

func (g *Graph) ref(id host.Identity, attr string) (*node, plugRef, error) {
	n, err := g.node(string(id))
	if err != nil {
		return nil, plugRef{}, err
	}
	r, err := n.resolve(attr)
	if err != nil {
		return nil, plugRef{}, err
	}
	return n, r, nil
}

// AttributeExists implements host.Graph.
func (g *Graph) AttributeExists(id host.Identity, attr string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, _, err := g.ref(id, attr)
	return err == nil
}

// CanonicalAttribute implements host.Graph.
func (g *Graph) CanonicalAttribute(id host.Identity, attr string) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, r, err := g.ref(id, attr)
	if err != nil {
		return "", err
	}
	return r.path, nil
}

// ChildAttributes implements host.Graph. Whole array attributes report no
// children.
func (g *Graph) ChildAttributes(id host.Identity, attr string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, r, err := g.ref(id, attr)
	if err != nil {
		return nil, err
	}
	return r.children(), nil
}

// ParentAttribute implements host.Graph. Array elements and whole arrays
// have no parent.
func (g *Graph) ParentAttribute(id host.Identity, attr string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, r, err := g.ref(id, attr)
	if err != nil || r.parent == "" {
		return "", false
	}
	return r.parent, true
}

// IsArray reports whether attr is a whole array attribute.
func (g *Graph) IsArray(id host.Identity, attr string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, r, err := g.ref(id, attr)
	return err == nil && r.whole()
}

// AddAttribute implements host.Graph. Recognised flags are longName,
// shortName, attributeType, dataType, enumName, defaultValue, minValue and
// maxValue; all others are accepted and ignored.
func (g *Graph) AddAttribute(id host.Identity, name string, flags host.Flags) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, err := g.node(string(id))
	if err != nil {
		return err
	}
	spec, err := specFromFlags(name, flags)
	if err != nil {
		return err
	}
	if n.lookup(spec.Name) != nil || (spec.Short != "" && n.lookup(spec.Short) != nil) {
		return errors.Wrap(errors.ErrCodeInvalidAttribute, ErrAttributeExists, "%s.%s", n.name, spec.Name)
	}
	n.addDynamic(spec)
	return nil
}

func (n *node) addDynamic(spec AttrSpec) {
	n.attrs = append(n.attrs, buildDef(spec, nil))
	n.dynamic = append(n.dynamic, spec)
}

// DynamicAttributes lists the attributes added to a node after creation.
func (g *Graph) DynamicAttributes(id host.Identity) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, err := g.node(string(id))
	if err != nil {
		return nil
	}
	names := make([]string, len(n.dynamic))
	for i, a := range n.dynamic {
		names[i] = a.Name
	}
	return names
}

// SetAttribute implements host.Graph. The "lock" flag locks the attribute
// after the value is written. A nil value only applies the flags.
func (g *Graph) SetAttribute(id host.Identity, attr string, value any, flags ...host.Flag) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, r, err := g.ref(id, attr)
	if err != nil {
		return err
	}
	if err := n.writable(r); err != nil {
		return err
	}
	if value != nil {
		if err := n.store(r, value); err != nil {
			return errors.Wrap(errors.GetCode(err), err, "set %s.%s", n.name, r.path)
		}
	}
	if lock, ok := host.Flags(flags).Get("lock"); ok {
		if b, _ := lock.(bool); b {
			n.locked[r.path] = true
		} else {
			delete(n.locked, r.path)
		}
	}
	return nil
}

func (n *node) writable(r plugRef) error {
	if r.whole() {
		return errors.New(errors.ErrCodeInvalidAttribute, "%s.%s is an array; address an element", n.name, r.path)
	}
	if n.locked[r.path] || (r.parent != "" && n.locked[r.parent]) {
		return errors.Wrap(errors.ErrCodeInvalidAttribute, ErrLocked, "%s.%s", n.name, r.path)
	}
	return nil
}

func (n *node) store(r plugRef, value any) error {
	if !r.def.isCompound() {
		v, err := coerceLeaf(r.def.typ, r.def, value)
		if err != nil {
			return err
		}
		n.values[r.path] = v
		return nil
	}
	items, err := toItems(value, len(r.def.children))
	if err != nil {
		return err
	}
	for i := range r.def.children {
		if err := n.store(r.child(i), items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (n *node) load(r plugRef) any {
	if r.whole() {
		return nil
	}
	if !r.def.isCompound() {
		if v, ok := n.values[r.path]; ok {
			return v
		}
		if m, ok := r.def.def.([]float64); ok {
			return append([]float64(nil), m...)
		}
		return r.def.def
	}
	items := make([]any, len(r.def.children))
	for i := range r.def.children {
		items[i] = n.load(r.child(i))
	}
	return compactValue(items)
}

// AttributeValue implements host.Graph. Compounds read as []float64 when
// every child is numeric.
func (g *Graph) AttributeValue(id host.Identity, attr string) (any, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, r, err := g.ref(id, attr)
	if err != nil {
		return nil, err
	}
	if r.whole() {
		return nil, errors.New(errors.ErrCodeInvalidAttribute, "%s.%s is an array; address an element", n.name, r.path)
	}
	return n.load(r), nil
}

// =============================================================================
// Connections
// =============================================================================

// ConnectAttribute implements host.Graph. The destination's existing input
// and any inputs on its children are replaced.
func (g *Graph) ConnectAttribute(srcID host.Identity, srcAttr string, dstID host.Identity, dstAttr string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	src, sr, err := g.ref(srcID, srcAttr)
	if err != nil {
		return err
	}
	dst, dr, err := g.ref(dstID, dstAttr)
	if err != nil {
		return err
	}
	if err := dst.writable(dr); err != nil {
		return err
	}
	if sr.whole() {
		return errors.New(errors.ErrCodeInvalidAttribute, "%s.%s is an array; address an element", src.name, sr.path)
	}
	if !compatible(sr.def, dr.def) {
		return errors.New(errors.ErrCodeDimensionMismatch, "cannot connect %s.%s to %s.%s: incompatible attributes",
			src.name, sr.path, dst.name, dr.path)
	}

	for _, ch := range dr.children() {
		if _, ok := dst.inputs[ch]; ok {
			delete(dst.inputs, ch)
			g.dag.RemoveInput(string(dst.id), ch)
		}
	}
	if dr.parent != "" {
		if _, ok := dst.inputs[dr.parent]; ok {
			delete(dst.inputs, dr.parent)
			g.dag.RemoveInput(string(dst.id), dr.parent)
		}
	}

	dst.inputs[dr.path] = source{node: src.id, attr: sr.path}
	return g.dag.AddEdge(dag.Edge{From: string(src.id), FromAttr: sr.path, To: string(dst.id), ToAttr: dr.path})
}

// compatible reports whether src may drive dst: compounds need the same
// child count, matrices only connect to matrices, generics take anything.
func compatible(src, dst *attrDef) bool {
	if src.isCompound() || dst.isCompound() {
		return len(src.children) == len(dst.children)
	}
	if src.typ == "generic" || dst.typ == "generic" {
		return true
	}
	return (src.typ == "matrix") == (dst.typ == "matrix")
}

// Input returns the plug connected into attr as "node.attr".
func (g *Graph) Input(id host.Identity, attr string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, r, err := g.ref(id, attr)
	if err != nil {
		return "", false
	}
	s, ok := n.inputs[r.path]
	if !ok {
		return "", false
	}
	return host.JoinPlug(g.nodes[s.node].name, s.attr), true
}

// Connection is one attribute connection by node name.
type Connection struct {
	Source      string
	Destination string
}

// Connections lists all connections as "node.attr" pairs, in the order they
// were made.
func (g *Graph) Connections() []Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	edges := g.dag.Edges()
	out := make([]Connection, 0, len(edges))
	for _, e := range edges {
		from := g.nodes[host.Identity(e.From)]
		to := g.nodes[host.Identity(e.To)]
		out = append(out, Connection{
			Source:      host.JoinPlug(from.name, e.FromAttr),
			Destination: host.JoinPlug(to.name, e.ToAttr),
		})
	}
	return out
}
