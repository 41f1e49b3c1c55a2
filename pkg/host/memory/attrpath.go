package memory

import (
	"strconv"
	"strings"

	"github.com/matzehuels/nodecalc/pkg/errors"
)

// plugRef is an attribute path resolved against a node.
type plugRef struct {
	def     *attrDef
	path    string // canonical path
	indexed bool   // def is an array and path addresses one element
	parent  string // canonical parent compound, "" when none
}

// whole reports whether the reference addresses an entire array attribute.
func (r plugRef) whole() bool { return r.def.array && !r.indexed }

// children returns the canonical child paths, or nil for leaves and whole
// arrays.
func (r plugRef) children() []string {
	if !r.def.isCompound() || r.whole() {
		return nil
	}
	out := make([]string, len(r.def.children))
	for i, ch := range r.def.children {
		out[i] = childPath(r.path, ch)
	}
	return out
}

func (r plugRef) child(i int) plugRef {
	ch := r.def.children[i]
	return plugRef{def: ch, path: childPath(r.path, ch), parent: r.path}
}

// childPath names a child below a canonical parent path. Children of plain
// compounds are addressed by their own name; below an array element the
// element prefix is kept.
func childPath(parent string, ch *attrDef) string {
	if strings.Contains(parent, "[") {
		return parent + "." + ch.long
	}
	return ch.long
}

type segment struct {
	name  string
	index int
	has   bool
}

func parseSegment(s string) (segment, bool) {
	open := strings.IndexByte(s, '[')
	if open < 0 {
		return segment{name: s}, s != ""
	}
	if !strings.HasSuffix(s, "]") || open == 0 {
		return segment{}, false
	}
	idx, err := strconv.Atoi(s[open+1 : len(s)-1])
	if err != nil || idx < 0 {
		return segment{}, false
	}
	return segment{name: s[:open], index: idx, has: true}, true
}

// resolve walks an attribute path. The first segment may name a top-level
// attribute or any child reachable without crossing an array; following
// segments name children by long name, short name or suffix ("translate.x").
func (n *node) resolve(path string) (plugRef, error) {
	invalid := func(format string, args ...any) (plugRef, error) {
		return plugRef{}, errors.Wrap(errors.ErrCodeInvalidAttribute, ErrAttributeNotFound,
			"%s.%s: "+format, append([]any{n.name, path}, args...)...)
	}
	if path == "" {
		return invalid("empty attribute path")
	}

	segs := strings.Split(path, ".")
	first, ok := parseSegment(segs[0])
	if !ok {
		return invalid("malformed segment %q", segs[0])
	}
	def := n.lookup(first.name)
	if def == nil {
		return invalid("no attribute %q", first.name)
	}
	ref := plugRef{def: def, path: def.long}
	if def.parent != nil {
		ref.parent = def.parent.long
	}
	if ref, ok = applyIndex(ref, first); !ok {
		return invalid("index on non-array attribute %q", first.name)
	}

	for _, raw := range segs[1:] {
		seg, ok := parseSegment(raw)
		if !ok {
			return invalid("malformed segment %q", raw)
		}
		if ref.whole() {
			return invalid("array attribute %q needs an index", ref.path)
		}
		i := findChild(ref.def, seg.name)
		if i < 0 {
			return invalid("%q has no child %q", ref.path, seg.name)
		}
		ref = ref.child(i)
		if ref, ok = applyIndex(ref, seg); !ok {
			return invalid("index on non-array attribute %q", seg.name)
		}
	}
	return ref, nil
}

func applyIndex(ref plugRef, seg segment) (plugRef, bool) {
	if !seg.has {
		return ref, true
	}
	if !ref.def.array {
		return ref, false
	}
	ref.path += "[" + strconv.Itoa(seg.index) + "]"
	ref.indexed = true
	// Elements never consolidate into the array.
	ref.parent = ""
	return ref, true
}

func findChild(d *attrDef, name string) int {
	for i, ch := range d.children {
		if ch.long == name || (ch.short != "" && ch.short == name) {
			return i
		}
	}
	for i, ch := range d.children {
		if strings.EqualFold(strings.TrimPrefix(ch.long, d.long), name) {
			return i
		}
	}
	return -1
}

// lookup finds an attribute by long or short name among top-level
// attributes, then among children of non-array compounds.
func (n *node) lookup(name string) *attrDef {
	for _, d := range n.attrs {
		if d.long == name || (d.short != "" && d.short == name) {
			return d
		}
	}
	var found *attrDef
	var walk func(defs []*attrDef)
	walk = func(defs []*attrDef) {
		for _, d := range defs {
			if found != nil {
				return
			}
			if d.array {
				continue
			}
			for _, ch := range d.children {
				if ch.long == name || (ch.short != "" && ch.short == name) {
					found = ch
					return
				}
			}
			walk(d.children)
		}
	}
	walk(n.attrs)
	return found
}
