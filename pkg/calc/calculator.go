package calc

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/nodecalc/pkg/config"
	"github.com/matzehuels/nodecalc/pkg/errors"
	"github.com/matzehuels/nodecalc/pkg/host"
	"github.com/matzehuels/nodecalc/pkg/optable"
)

// Calculator builds node networks on a host graph.
type Calculator struct {
	host   host.Graph
	table  *optable.Table
	cfg    config.Config
	logger *log.Logger
	ctx    context.Context

	autoUnravel     bool
	autoConsolidate bool

	session *TracerSession
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithTable replaces the base operator table, usually with one that has
// extension bundles merged in.
func WithTable(t *optable.Table) Option {
	return func(c *Calculator) { c.table = t }
}

// WithConfig sets naming prefixes, attribute defaults and the global
// unravel and consolidation flags.
func WithConfig(cfg config.Config) Option {
	return func(c *Calculator) { c.cfg = cfg }
}

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(c *Calculator) { c.logger = l }
}

// WithContext sets the context handed to observability hooks.
func WithContext(ctx context.Context) Option {
	return func(c *Calculator) { c.ctx = ctx }
}

// New creates a calculator on g.
func New(g host.Graph, opts ...Option) *Calculator {
	c := &Calculator{
		host: g,
		cfg:  config.Default(),
		ctx:  context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.table == nil {
		c.table = optable.Base()
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	c.autoUnravel = c.cfg.AutoUnravel
	c.autoConsolidate = c.cfg.AutoConsolidate
	return c
}

// Host returns the host graph.
func (c *Calculator) Host() host.Graph { return c.host }

// Table returns the operator table.
func (c *Calculator) Table() *optable.Table { return c.table }

// Config returns the active settings.
func (c *Calculator) Config() config.Config { return c.cfg }

// Operators lists every available operation name.
func (c *Calculator) Operators() []string { return c.table.Names() }

// SetGlobalAutoUnravel toggles compound splitting for every plug.
func (c *Calculator) SetGlobalAutoUnravel(on bool) { c.autoUnravel = on }

// SetGlobalAutoConsolidate toggles parent consolidation for every connection.
func (c *Calculator) SetGlobalAutoConsolidate(on bool) { c.autoConsolidate = on }

// Node returns a plug for "node", "node.attr", an identity or an existing
// plug. Options override the plug's attributes and flags.
func (c *Calculator) Node(v any, opts ...PlugOption) (*Plug, error) {
	var p *Plug
	switch x := v.(type) {
	case *Plug:
		cp := *x
		cp.attrs = append([]string(nil), x.attrs...)
		p = &cp
	case host.Identity:
		if !c.host.NodeExists(string(x)) {
			return nil, errors.New(errors.ErrCodeUnsupportedSourceType, "node %q does not exist", string(x))
		}
		p = c.plug(x)
	case string:
		name, attr := host.SplitPlug(x)
		id, ok := c.host.LookupNode(name)
		if !ok {
			return nil, errors.New(errors.ErrCodeUnsupportedSourceType, "node %q does not exist", name)
		}
		if attr == "" {
			p = c.plug(id)
		} else {
			p = c.plug(id, attr)
		}
	default:
		return nil, errors.New(errors.ErrCodeUnsupportedSourceType, "cannot make a plug from %T", v)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// CreateNode creates a host node and returns a plug on it.
func (c *Calculator) CreateNode(nodeType, name string) (*Plug, error) {
	id, err := c.createNode(nodeType, name)
	if err != nil {
		return nil, err
	}
	return c.plug(id), nil
}

// Transform creates a transform node.
func (c *Calculator) Transform(name string) (*Plug, error) {
	return c.CreateNode("transform", name)
}

// Locator creates a locator and returns its transform.
func (c *Calculator) Locator(name string) (*Plug, error) {
	return c.CreateNode("locator", name)
}

func (c *Calculator) plug(id host.Identity, attrs ...string) *Plug {
	return &Plug{
		calc:            c,
		node:            id,
		attrs:           attrs,
		autoUnravel:     true,
		autoConsolidate: true,
	}
}

// nodeName returns the current name, or the identity when the node is gone.
func (c *Calculator) nodeName(id host.Identity) string {
	name, err := c.host.NodeName(id)
	if err != nil {
		return string(id)
	}
	return name
}
