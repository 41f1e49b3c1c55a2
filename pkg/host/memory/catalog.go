package memory

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/nodecalc/pkg/errors"
)

//go:embed nodetypes.toml
var builtinTypes []byte

// AttrSpec declares one attribute of a node type.
type AttrSpec struct {
	Name       string     `toml:"name"`
	Short      string     `toml:"short,omitempty"`
	Type       string     `toml:"type"`
	Array      bool       `toml:"array,omitempty"`
	Suffixes   []string   `toml:"suffixes,omitempty"`
	ChildNames []string   `toml:"child_names,omitempty"`
	Children   []AttrSpec `toml:"children,omitempty"`
	Default    any        `toml:"default,omitempty"`
	Enum       []string   `toml:"enum,omitempty"`
	Min        *float64   `toml:"min,omitempty"`
	Max        *float64   `toml:"max,omitempty"`
}

// NodeTypeSpec declares a node type. Attributes of the inherited type come
// first.
type NodeTypeSpec struct {
	Inherits   string     `toml:"inherits,omitempty"`
	Attributes []AttrSpec `toml:"attributes,omitempty"`
}

type catalogFile struct {
	NodeTypes map[string]NodeTypeSpec `toml:"node_types"`
}

// Catalog maps node type names to their attribute declarations.
type Catalog struct {
	types map[string]NodeTypeSpec
}

var (
	builtinOnce    sync.Once
	builtinCatalog *Catalog
	builtinErr     error
)

// DefaultCatalog returns a copy of the embedded node-type catalog.
func DefaultCatalog() *Catalog {
	builtinOnce.Do(func() {
		builtinCatalog, builtinErr = ParseCatalog(builtinTypes)
	})
	if builtinErr != nil {
		panic(fmt.Sprintf("memory: embedded node types: %v", builtinErr))
	}
	return builtinCatalog.Clone()
}

// ParseCatalog decodes a TOML document with a [node_types] table.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidNodeType, err, "decode node types")
	}
	c := &Catalog{types: make(map[string]NodeTypeSpec, len(f.NodeTypes))}
	for _, name := range sortedKeys(f.NodeTypes) {
		if err := c.Register(name, f.NodeTypes[name]); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Clone returns an independent copy of the catalog.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{types: make(map[string]NodeTypeSpec, len(c.types))}
	for k, v := range c.types {
		out.types[k] = v
	}
	return out
}

// Register adds or replaces a node type. Inherited types are resolved
// lazily, so types may be registered in any order.
func (c *Catalog) Register(name string, spec NodeTypeSpec) error {
	if err := errors.ValidateNodeName(name); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidNodeType, err, "node type %q", name)
	}
	for _, a := range spec.Attributes {
		if err := validateSpec(a); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidNodeType, err, "node type %q", name)
		}
	}
	c.types[name] = spec
	return nil
}

// Has reports whether the type is known.
func (c *Catalog) Has(name string) bool {
	_, ok := c.types[name]
	return ok
}

// Spec returns the declaration of a node type.
func (c *Catalog) Spec(name string) (NodeTypeSpec, bool) {
	s, ok := c.types[name]
	return s, ok
}

// Types returns all type names in sorted order.
func (c *Catalog) Types() []string {
	return sortedKeys(c.types)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// Attribute definitions
// =============================================================================

// attrDef is a resolved attribute declaration. Catalog attributes are built
// per node; dynamic attributes are appended to the node that added them.
type attrDef struct {
	long     string
	short    string
	typ      string
	array    bool
	parent   *attrDef
	children []*attrDef
	def      any
	enum     []string
	min, max *float64
}

func (d *attrDef) isCompound() bool { return len(d.children) > 0 }

// leafZero returns the zero value stored for a leaf of type typ.
func leafZero(typ string) any {
	switch typ {
	case "double", "float":
		return 0.0
	case "long", "short", "enum":
		return 0
	case "bool":
		return false
	case "matrix":
		return identityMatrix()
	case "string":
		return ""
	default:
		return nil
	}
}

func identityMatrix() []float64 {
	return []float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
}

var compoundTypes = map[string][]string{
	"double3": {"X", "Y", "Z"},
	"double4": {"X", "Y", "Z", "W"},
}

func validateSpec(a AttrSpec) error {
	if a.Name == "" {
		return fmt.Errorf("attribute without a name")
	}
	if err := errors.ValidateAttributeName(a.Name); err != nil || strings.ContainsAny(a.Name, ".[") {
		return fmt.Errorf("invalid attribute name %q", a.Name)
	}
	switch a.Type {
	case "double", "float", "long", "short", "bool", "enum", "matrix", "message", "string", "generic":
		if len(a.Children) > 0 || len(a.ChildNames) > 0 {
			return fmt.Errorf("attribute %q of type %s cannot have children", a.Name, a.Type)
		}
	case "double3", "double4":
	case "compound":
		if len(a.Children) == 0 {
			return fmt.Errorf("compound attribute %q has no children", a.Name)
		}
	default:
		return fmt.Errorf("attribute %q has unknown type %q", a.Name, a.Type)
	}
	for _, ch := range a.Children {
		if err := validateSpec(ch); err != nil {
			return err
		}
	}
	return nil
}

// buildDef turns a spec into attribute definitions. Compound defaults are
// pushed down to the children.
func buildDef(a AttrSpec, parent *attrDef) *attrDef {
	d := &attrDef{
		long:   a.Name,
		short:  a.Short,
		typ:    a.Type,
		array:  a.Array,
		parent: parent,
		enum:   a.Enum,
		min:    a.Min,
		max:    a.Max,
	}

	var children []AttrSpec
	switch {
	case len(a.Children) > 0:
		children = a.Children
	case len(a.ChildNames) > 0:
		for _, n := range a.ChildNames {
			children = append(children, AttrSpec{Name: n, Type: "double"})
		}
	case compoundTypes[a.Type] != nil:
		suffixes := a.Suffixes
		if len(suffixes) == 0 {
			suffixes = compoundTypes[a.Type]
		}
		for _, s := range suffixes {
			ch := AttrSpec{Name: a.Name + s, Type: "double"}
			if a.Short != "" {
				ch.Short = a.Short + strings.ToLower(s)
			}
			children = append(children, ch)
		}
	}

	defaults, _ := toItems(a.Default, len(children))
	for i, cs := range children {
		if cs.Default == nil && i < len(defaults) {
			cs.Default = defaults[i]
		}
		d.children = append(d.children, buildDef(cs, d))
	}
	if len(d.children) == 0 {
		d.def = coerceDefault(a.Type, a.Default)
	}
	return d
}

func coerceDefault(typ string, v any) any {
	if v == nil {
		return leafZero(typ)
	}
	out, err := coerceLeaf(typ, nil, v)
	if err != nil {
		return leafZero(typ)
	}
	return out
}

// resolveType flattens the inheritance chain of a type into definitions.
func (c *Catalog) resolveType(name string) ([]*attrDef, error) {
	var specs []NodeTypeSpec
	seen := map[string]bool{}
	for cur := name; cur != ""; {
		if seen[cur] {
			return nil, errors.New(errors.ErrCodeInvalidNodeType, "node type %q inherits itself", name)
		}
		seen[cur] = true
		spec, ok := c.types[cur]
		if !ok {
			return nil, errors.Wrap(errors.ErrCodeInvalidNodeType, ErrUnknownNodeType, "%q", cur)
		}
		specs = append(specs, spec)
		cur = spec.Inherits
	}

	var defs []*attrDef
	for i := len(specs) - 1; i >= 0; i-- {
		for _, a := range specs[i].Attributes {
			defs = append(defs, buildDef(a, nil))
		}
	}
	return defs, nil
}

// specFromFlags builds the spec of a dynamic attribute from addAttr-style
// flags (longName, shortName, attributeType, dataType, enumName,
// defaultValue).
func specFromFlags(name string, flags flagReader) (AttrSpec, error) {
	a := AttrSpec{
		Name:  flags.String("longName", name),
		Short: flags.String("shortName", ""),
		Type:  flags.String("attributeType", ""),
	}
	if a.Type == "" {
		a.Type = flags.String("dataType", "double")
	}
	if a.Type == "float3" {
		a.Type = "double3"
	}
	if en := flags.String("enumName", ""); en != "" {
		a.Enum = strings.Split(en, ":")
	}
	if v, ok := flags.Get("defaultValue"); ok {
		a.Default = v
	}
	if v, ok := flags.Get("minValue"); ok {
		if f, ok := toFloat(v); ok {
			a.Min = &f
		}
	}
	if v, ok := flags.Get("maxValue"); ok {
		if f, ok := toFloat(v); ok {
			a.Max = &f
		}
	}
	if err := validateSpec(a); err != nil {
		return AttrSpec{}, errors.Wrap(errors.ErrCodeInvalidAttribute, err, "add attribute %q", name)
	}
	return a, nil
}

type flagReader interface {
	Get(key string) (any, bool)
	String(key, def string) string
}
