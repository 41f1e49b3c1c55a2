// Package host defines the node-graph API the calculator builds against.
//
// The calculator never evaluates anything itself: it creates nodes, adds and
// sets attributes and connects them. [Graph] is the narrow surface it needs
// from a host application. [memory] is a complete in-process implementation
// used by the CLI, the HTTP API and the tests.
//
// Nodes are addressed by an [Identity] that survives renames. Attributes are
// addressed by path strings relative to the node: long or short names,
// compound children ("translateX") and array elements
// ("input3D[0].input3Dx").
//
// [memory]: github.com/matzehuels/nodecalc/pkg/host/memory
package host

import (
	"fmt"
	"strings"
)

// Identity is a stable handle for a host node.
type Identity string

// Flag is one key/value pair passed to AddAttribute or SetAttribute.
type Flag struct {
	Key   string
	Value any
}

// Flags is an ordered flag list. Order is kept so traced commands are
// reproducible.
type Flags []Flag

// Get returns the value of the first flag named key.
func (f Flags) Get(key string) (any, bool) {
	for _, fl := range f {
		if fl.Key == key {
			return fl.Value, true
		}
	}
	return nil, false
}

// String returns the flag value for key, or def.
func (f Flags) String(key, def string) string {
	if v, ok := f.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the flag value for key, or def.
func (f Flags) Bool(key string, def bool) bool {
	if v, ok := f.Get(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// With returns a copy of f where key is set to value. An existing key keeps
// its position.
func (f Flags) With(key string, value any) Flags {
	out := make(Flags, len(f), len(f)+1)
	copy(out, f)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, Flag{Key: key, Value: value})
}

// Merge returns a copy of f overlaid with every flag of other.
func (f Flags) Merge(other Flags) Flags {
	out := f
	for _, fl := range other {
		out = out.With(fl.Key, fl.Value)
	}
	if out == nil {
		return Flags{}
	}
	return out
}

// Graph is the host node-graph API.
type Graph interface {
	// CreateNode creates a node of type nodeType. The host may rename it on
	// a name collision; the returned identity stays valid either way.
	CreateNode(nodeType, name string) (Identity, error)

	// NodeExists reports whether a node with that name or identity exists.
	NodeExists(nameOrIdentity string) bool

	// LookupNode resolves a node name to its identity.
	LookupNode(name string) (Identity, bool)

	// NodeName returns the current name of a node.
	NodeName(node Identity) (string, error)

	// NodeType returns the type a node was created with.
	NodeType(node Identity) (string, error)

	// AttributeExists reports whether attr resolves on node.
	AttributeExists(node Identity, attr string) bool

	// CanonicalAttribute returns the long-name form of attr.
	CanonicalAttribute(node Identity, attr string) (string, error)

	// ChildAttributes returns the canonical children of a compound
	// attribute in declaration order, or nil for a leaf.
	ChildAttributes(node Identity, attr string) ([]string, error)

	// ParentAttribute returns the canonical compound attr is a child of.
	ParentAttribute(node Identity, attr string) (string, bool)

	// AddAttribute declares a dynamic attribute.
	AddAttribute(node Identity, name string, flags Flags) error

	// SetAttribute writes a value. Compound attributes take []float64.
	SetAttribute(node Identity, attr string, value any, flags ...Flag) error

	// ConnectAttribute connects src into dst, replacing any existing input.
	ConnectAttribute(srcNode Identity, srcAttr string, dstNode Identity, dstAttr string) error

	// AttributeValue reads the stored value of an attribute.
	AttributeValue(node Identity, attr string) (any, error)
}

// SplitPlug splits "node.attr.child" into the node name and the attribute
// path. A string without a dot yields an empty attribute.
func SplitPlug(plug string) (node, attr string) {
	node, attr, _ = strings.Cut(plug, ".")
	return node, attr
}

// JoinPlug is the inverse of SplitPlug.
func JoinPlug(node, attr string) string {
	if attr == "" {
		return node
	}
	return fmt.Sprintf("%s.%s", node, attr)
}
