// Package optable holds the operator table consumed by the graph compiler.
//
// An operator maps an operation name ("add", "clamp", "decompose_matrix") to
// the host node type it instantiates, the attribute templates every argument
// connects into and the attributes its result is read from. The table is pure
// data: it is decoded once from an embedded TOML bundle and can be extended by
// merging further bundles before first use.
//
// # Templates
//
// Input and output templates are attribute paths relative to the created node.
// A template may contain exactly one "{array}" placeholder, which marks an
// indexed input such as "input3D[{array}].input3Dx". Such inputs are repeated
// once per argument item with the placeholder replaced by the item position.
//
// # Usage
//
//	table := optable.Base()
//	entry, err := table.Lookup("add")
//
//	bundle, err := optable.LoadBundle("my_ops.toml")
//	merged, err := table.Merge(bundle)
package optable

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/nodecalc/pkg/errors"
)

// ArrayPlaceholder marks an indexed slot in an attribute template.
const ArrayPlaceholder = "{array}"

// legacyPlaceholder is accepted in bundles and normalized to ArrayPlaceholder.
const legacyPlaceholder = "{multi_index}"

// BaseBundleName is the name under which the embedded operators are merged.
const BaseBundleName = "base"

//go:embed operators.toml
var baseOperators []byte

// Entry describes one operation.
type Entry struct {
	// Doc is a one-line description shown in operator listings.
	Doc string `toml:"doc" json:"doc,omitempty"`

	// NodeType is the host node type to instantiate.
	NodeType string `toml:"node" json:"node"`

	// Inputs holds one attribute-template group per logical argument.
	Inputs [][]string `toml:"inputs" json:"inputs"`

	// Outputs holds the attribute-template groups the result is read from.
	Outputs [][]string `toml:"outputs" json:"outputs"`

	// Mode is written to the node's "operation" attribute after creation.
	Mode *int `toml:"operation" json:"operation,omitempty"`

	// OutputIsPredetermined keeps outputs at full width regardless of how
	// many input dimensions were wired.
	OutputIsPredetermined bool `toml:"output_is_predetermined" json:"output_is_predetermined,omitempty"`
}

// IsArrayInput reports whether any input group is an indexed array slot.
func (e Entry) IsArrayInput() bool {
	for i := range e.Inputs {
		if e.IsArrayGroup(i) {
			return true
		}
	}
	return false
}

// IsArrayGroup reports whether input group i contains an array placeholder.
func (e Entry) IsArrayGroup(i int) bool {
	if i < 0 || i >= len(e.Inputs) {
		return false
	}
	return groupHasPlaceholder(e.Inputs[i])
}

// IsArrayOutput reports whether any output template is indexed.
func (e Entry) IsArrayOutput() bool {
	for _, group := range e.Outputs {
		if groupHasPlaceholder(group) {
			return true
		}
	}
	return false
}

// Arity returns the number of input groups.
func (e Entry) Arity() int {
	return len(e.Inputs)
}

func groupHasPlaceholder(group []string) bool {
	for _, t := range group {
		if strings.Contains(t, ArrayPlaceholder) {
			return true
		}
	}
	return false
}

// FormatTemplate substitutes index into an attribute template.
func FormatTemplate(template string, index int) string {
	return strings.ReplaceAll(template, ArrayPlaceholder, fmt.Sprintf("%d", index))
}

// Validate checks that the entry is well-formed.
func (e Entry) Validate(name string) error {
	if err := errors.ValidateOperationName(name); err != nil {
		return err
	}
	if e.NodeType == "" {
		return errors.New(errors.ErrCodeInvalidOperator, "operator %q has no node type", name)
	}
	if len(e.Outputs) == 0 {
		return errors.New(errors.ErrCodeInvalidOperator, "operator %q declares no outputs", name)
	}
	check := func(kind string, groups [][]string) error {
		for i, group := range groups {
			if len(group) == 0 {
				return errors.New(errors.ErrCodeInvalidOperator, "operator %q has an empty %s group %d", name, kind, i)
			}
			for _, t := range group {
				if n := strings.Count(t, ArrayPlaceholder); n > 1 {
					return errors.New(errors.ErrCodeInvalidOperator,
						"operator %q %s template %q has %d array placeholders, want at most 1", name, kind, t, n)
				}
				plain := strings.ReplaceAll(t, ArrayPlaceholder, "0")
				if err := errors.ValidateAttributeName(plain); err != nil {
					return errors.Wrap(errors.ErrCodeInvalidOperator, err, "operator %q %s template %q", name, kind, t)
				}
			}
		}
		return nil
	}
	if err := check("input", e.Inputs); err != nil {
		return err
	}
	return check("output", e.Outputs)
}

// normalize rewrites legacy placeholders.
func (e Entry) normalize() Entry {
	fix := func(groups [][]string) [][]string {
		out := make([][]string, len(groups))
		for i, group := range groups {
			out[i] = make([]string, len(group))
			for j, t := range group {
				out[i][j] = strings.ReplaceAll(t, legacyPlaceholder, ArrayPlaceholder)
			}
		}
		return out
	}
	e.Inputs = fix(e.Inputs)
	e.Outputs = fix(e.Outputs)
	return e
}

// =============================================================================
// Bundles
// =============================================================================

// Bundle is a named set of operators plus the host plugins they require.
type Bundle struct {
	Name            string
	RequiredPlugins []string
	Operators       map[string]Entry
}

type bundleFile struct {
	RequiredPlugins []string         `toml:"required_plugins"`
	Operators       map[string]Entry `toml:"operators"`
}

// ParseBundle decodes a TOML operator bundle.
func ParseBundle(name string, data []byte) (Bundle, error) {
	var f bundleFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return Bundle{}, errors.Wrap(errors.ErrCodeInvalidOperator, err, "decode operator bundle %q", name)
	}
	b := Bundle{
		Name:            name,
		RequiredPlugins: f.RequiredPlugins,
		Operators:       make(map[string]Entry, len(f.Operators)),
	}
	for opName, entry := range f.Operators {
		entry = entry.normalize()
		if err := entry.Validate(opName); err != nil {
			return Bundle{}, err
		}
		b.Operators[opName] = entry
	}
	return b, nil
}

// =============================================================================
// Table
// =============================================================================

// Table is an immutable operator registry.
type Table struct {
	entries map[string]Entry
	origin  map[string]string
	plugins []string
}

var (
	baseOnce  sync.Once
	baseTable *Table
	baseErr   error
)

// Base returns the registry built from the embedded operator bundle.
// The bundle is decoded exactly once; a malformed embedded bundle panics
// because it can only be a build defect.
func Base() *Table {
	baseOnce.Do(func() {
		var b Bundle
		b, baseErr = ParseBundle(BaseBundleName, baseOperators)
		if baseErr != nil {
			return
		}
		baseTable, baseErr = (&Table{}).Merge(b)
	})
	if baseErr != nil {
		panic(fmt.Sprintf("optable: embedded operators: %v", baseErr))
	}
	return baseTable
}

// Lookup returns the entry for an operation.
func (t *Table) Lookup(name string) (Entry, error) {
	e, ok := t.entries[name]
	if !ok {
		return Entry{}, errors.New(errors.ErrCodeUnknownOperation, "unknown operation %q", name)
	}
	return e, nil
}

// Has reports whether the operation exists.
func (t *Table) Has(name string) bool {
	_, ok := t.entries[name]
	return ok
}

// Origin returns the bundle an operation was registered by.
func (t *Table) Origin(name string) string {
	return t.origin[name]
}

// Names returns all operation names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for n := range t.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of operations.
func (t *Table) Len() int {
	return len(t.entries)
}

// RequiredPlugins lists the host plugins of every merged bundle in merge order.
func (t *Table) RequiredPlugins() []string {
	out := make([]string, len(t.plugins))
	copy(out, t.plugins)
	return out
}

// Merge returns a new table holding t plus every bundle. Operation names must
// be unique across the receiver and all bundles.
func (t *Table) Merge(bundles ...Bundle) (*Table, error) {
	merged := &Table{
		entries: make(map[string]Entry, len(t.entries)),
		origin:  make(map[string]string, len(t.origin)),
		plugins: append([]string(nil), t.plugins...),
	}
	for name, e := range t.entries {
		merged.entries[name] = e
		merged.origin[name] = t.origin[name]
	}
	seenPlugin := make(map[string]bool, len(merged.plugins))
	for _, p := range merged.plugins {
		seenPlugin[p] = true
	}

	for _, b := range bundles {
		names := make([]string, 0, len(b.Operators))
		for name := range b.Operators {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if prev, ok := merged.origin[name]; ok {
				return nil, errors.New(errors.ErrCodeOperatorCollision,
					"operator %q from bundle %q already registered by bundle %q", name, b.Name, prev)
			}
			e := b.Operators[name].normalize()
			if err := e.Validate(name); err != nil {
				return nil, err
			}
			merged.entries[name] = e
			merged.origin[name] = b.Name
		}
		for _, p := range b.RequiredPlugins {
			if !seenPlugin[p] {
				seenPlugin[p] = true
				merged.plugins = append(merged.plugins, p)
			}
		}
	}
	return merged, nil
}
