package calc

import (
	"regexp"
	"strconv"
	"strings"
)

var invalidNameChars = regexp.MustCompile(`[^\w_]`)

// operationNodeName builds "prefix_OP_token..._nodeType". Each argument
// contributes one token: its attribute, node name or literal when it is a
// single element, "list" otherwise.
func (c *Calculator) operationNodeName(op, nodeType string, args [][]Item) string {
	parts := []string{c.cfg.NodePrefix, strings.ToUpper(op)}
	for _, items := range args {
		parts = append(parts, c.argToken(items))
	}
	parts = append(parts, nodeType)

	kept := parts[:0]
	for _, p := range parts {
		if p = invalidNameChars.ReplaceAllString(p, ""); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "_")
}

func (c *Calculator) argToken(items []Item) string {
	if len(items) != 1 || items[0].IsGroup() {
		return "list"
	}
	p := items[0].Primitive
	switch {
	case p.IsValue():
		return valueToken(p.Value)
	case p.IsNode():
		return c.nodeName(p.Node)
	}
	segs := strings.Split(p.Attr, ".")
	return segs[len(segs)-1]
}

func valueToken(v *Value) string {
	switch x := v.raw.(type) {
	case bool:
		return formatLiteral(x)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.Itoa(int(x)) + "f"
	}
	return "list"
}
