package memory

import (
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/nodecalc/pkg/errors"
	"github.com/matzehuels/nodecalc/pkg/host"
)

// Scene is the TOML form of a Graph.
//
//	[node_types.myRig]
//	inherits = "transform"
//	attributes = [{ name = "blend", type = "double" }]
//
//	[[node]]
//	name = "A"
//	type = "transform"
//	values = { translateX = 1.0 }
//
//	[[connection]]
//	source = "B.translate"
//	destination = "A.translate"
type Scene struct {
	NodeTypes   map[string]NodeTypeSpec `toml:"node_types,omitempty"`
	Nodes       []SceneNode             `toml:"node"`
	Connections []SceneConnection       `toml:"connection,omitempty"`
}

// SceneNode is one node of a scene.
type SceneNode struct {
	Name       string         `toml:"name"`
	Type       string         `toml:"type"`
	Attributes []AttrSpec     `toml:"attribute,omitempty"`
	Values     map[string]any `toml:"values,omitempty"`
}

// SceneConnection is one connection between "node.attr" plugs.
type SceneConnection struct {
	Source      string `toml:"source"`
	Destination string `toml:"destination"`
}

// DecodeScene parses a TOML scene.
func DecodeScene(r io.Reader) (*Scene, error) {
	var s Scene
	if _, err := toml.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode scene")
	}
	return &s, nil
}

// LoadSceneFile reads a TOML scene file into a new Graph.
func LoadSceneFile(path string, opts ...Option) (*Graph, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "scene not found: %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open scene %s", path)
	}
	defer f.Close()

	s, err := DecodeScene(f)
	if err != nil {
		return nil, err
	}
	g := New(opts...)
	if err := g.Apply(s); err != nil {
		return nil, err
	}
	return g, nil
}

// Apply adds a scene's node types, nodes, values and connections to g.
// Node names are kept unless they collide with existing nodes.
func (g *Graph) Apply(s *Scene) error {
	for _, name := range sortedKeys(s.NodeTypes) {
		if err := g.RegisterType(name, s.NodeTypes[name]); err != nil {
			return err
		}
	}

	ids := make(map[string]host.Identity, len(s.Nodes))
	for _, sn := range s.Nodes {
		id, err := g.CreateNode(sn.Type, sn.Name)
		if err != nil {
			return err
		}
		ids[sn.Name] = id
		for _, a := range sn.Attributes {
			if err := g.addSpec(id, a); err != nil {
				return err
			}
		}
		for _, attr := range sortedKeys(sn.Values) {
			if err := g.SetAttribute(id, attr, sn.Values[attr]); err != nil {
				return err
			}
		}
	}

	resolve := func(plug string) (host.Identity, string, error) {
		name, attr := host.SplitPlug(plug)
		if id, ok := ids[name]; ok {
			return id, attr, nil
		}
		if id, ok := g.LookupNode(name); ok {
			return id, attr, nil
		}
		return "", "", errors.Wrap(errors.ErrCodeNotFound, ErrNodeNotFound, "connection plug %q", plug)
	}
	for _, c := range s.Connections {
		srcID, srcAttr, err := resolve(c.Source)
		if err != nil {
			return err
		}
		dstID, dstAttr, err := resolve(c.Destination)
		if err != nil {
			return err
		}
		if err := g.ConnectAttribute(srcID, srcAttr, dstID, dstAttr); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) addSpec(id host.Identity, a AttrSpec) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, err := g.node(string(id))
	if err != nil {
		return err
	}
	if err := validateSpec(a); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidAttribute, err, "%s", n.name)
	}
	if n.lookup(a.Name) != nil {
		return errors.Wrap(errors.ErrCodeInvalidAttribute, ErrAttributeExists, "%s.%s", n.name, a.Name)
	}
	n.addDynamic(a)
	return nil
}

// RegisterType adds a node type to this scene's catalog.
func (g *Graph) RegisterType(name string, spec NodeTypeSpec) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.catalog.Register(name, spec); err != nil {
		return err
	}
	g.custom = append(g.custom, name)
	return nil
}

// Scene captures the graph: custom node types, every node with its dynamic
// attributes and explicitly stored values, and all connections.
func (g *Graph) Scene() *Scene {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := &Scene{}
	if len(g.custom) > 0 {
		s.NodeTypes = make(map[string]NodeTypeSpec, len(g.custom))
		for _, name := range g.custom {
			s.NodeTypes[name], _ = g.catalog.Spec(name)
		}
	}
	for _, id := range g.order {
		n := g.nodes[id]
		sn := SceneNode{Name: n.name, Type: n.typ, Attributes: append([]AttrSpec(nil), n.dynamic...)}
		if len(n.values) > 0 {
			sn.Values = make(map[string]any, len(n.values))
			for k, v := range n.values {
				sn.Values[k] = v
			}
		}
		s.Nodes = append(s.Nodes, sn)
	}
	for _, e := range g.dag.Edges() {
		s.Connections = append(s.Connections, SceneConnection{
			Source:      host.JoinPlug(g.nodes[host.Identity(e.From)].name, e.FromAttr),
			Destination: host.JoinPlug(g.nodes[host.Identity(e.To)].name, e.ToAttr),
		})
	}
	return s
}

// EncodeScene writes the graph as TOML.
func (g *Graph) EncodeScene(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(g.Scene()); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode scene")
	}
	return nil
}

// SaveSceneFile writes the graph to a TOML file.
func (g *Graph) SaveSceneFile(path string) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "create scene %s", path)
	}
	if err := g.EncodeScene(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
