package calc

import (
	"sort"
	"strconv"
	"strings"

	"github.com/matzehuels/nodecalc/pkg/errors"
	"github.com/matzehuels/nodecalc/pkg/host"
)

// Flags applied with setAttr after the attribute exists rather than passed
// to addAttr.
var setOnlyFlags = map[string]bool{"channelBox": true, "lock": true}

// AddAttr adds a dynamic attribute to the plug's node and returns a plug on
// it. Configured default flags come first, then longName, then flags. A
// "value" flag drives the new attribute; "channelBox" and "lock" are set
// afterwards.
//
// Adding an attribute that already exists logs a warning and returns a plug
// on the existing one.
func (p *Plug) AddAttr(name string, flags ...host.Flag) (*Plug, error) {
	c := p.calc
	name = strings.ReplaceAll(name, " ", "_")
	if err := errors.ValidateAttributeName(name); err != nil {
		return nil, err
	}
	if c.host.AttributeExists(p.node, name) {
		c.logger.Warn("attribute already exists", "plug", host.JoinPlug(p.Name(), name))
		return p.derive([]string{name}), nil
	}

	all := c.defaultAttrFlags().With("longName", name).Merge(flags)
	var addFlags, setFlags host.Flags
	var value any
	for _, f := range all {
		switch {
		case f.Key == "value":
			value = f.Value
		case setOnlyFlags[f.Key]:
			setFlags = append(setFlags, f)
		default:
			addFlags = append(addFlags, f)
		}
	}

	if err := c.addAttribute(p.node, name, addFlags); err != nil {
		return nil, err
	}
	attr := p.derive([]string{name})
	if value != nil {
		if err := attr.Set(value); err != nil {
			return nil, err
		}
	}
	if len(setFlags) > 0 {
		if err := c.setAttr(p.node, name, nil, setFlags...); err != nil {
			return nil, err
		}
	}
	return attr, nil
}

func (c *Calculator) defaultAttrFlags() host.Flags {
	keys := make([]string, 0, len(c.cfg.DefaultAttrFlags))
	for k := range c.cfg.DefaultAttrFlags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	flags := make(host.Flags, 0, len(keys)+1)
	for _, k := range keys {
		flags = append(flags, host.Flag{Key: k, Value: c.cfg.DefaultAttrFlags[k]})
	}
	return flags
}

func typed(attributeType string, flags []host.Flag) []host.Flag {
	return append([]host.Flag{{Key: "attributeType", Value: attributeType}}, flags...)
}

// AddFloat adds a float attribute.
func (p *Plug) AddFloat(name string, flags ...host.Flag) (*Plug, error) {
	return p.AddAttr(name, typed("float", flags)...)
}

// AddInt adds an integer attribute.
func (p *Plug) AddInt(name string, flags ...host.Flag) (*Plug, error) {
	return p.AddAttr(name, typed("long", flags)...)
}

// AddBool adds a boolean attribute.
func (p *Plug) AddBool(name string, flags ...host.Flag) (*Plug, error) {
	return p.AddAttr(name, typed("bool", flags)...)
}

// AddEnum adds an enum attribute with the given fields.
func (p *Plug) AddEnum(name string, cases []string, flags ...host.Flag) (*Plug, error) {
	flags = append([]host.Flag{{Key: "enumName", Value: strings.Join(cases, ":")}}, flags...)
	return p.AddAttr(name, typed("enum", flags)...)
}

// AddVector adds a double3 attribute with X, Y and Z children.
func (p *Plug) AddVector(name string, flags ...host.Flag) (*Plug, error) {
	return p.AddAttr(name, typed("double3", flags)...)
}

// AddSeparator adds a locked enum shown as a divider in the channel box.
func (p *Plug) AddSeparator(flags ...host.Flag) (*Plug, error) {
	c := p.calc
	n := 1
	for c.host.AttributeExists(p.node, "channelBoxSeparator"+strconv.Itoa(n)) {
		n++
	}
	flags = append([]host.Flag{
		{Key: "niceName", Value: c.cfg.SeparatorName},
		{Key: "enumName", Value: c.cfg.SeparatorValue},
		{Key: "keyable", Value: false},
		{Key: "channelBox", Value: true},
		{Key: "lock", Value: true},
	}, flags...)
	return p.AddAttr("channelBoxSeparator"+strconv.Itoa(n), typed("enum", flags)...)
}
