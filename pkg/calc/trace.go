package calc

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/nodecalc/pkg/errors"
	"github.com/matzehuels/nodecalc/pkg/host"
	"github.com/matzehuels/nodecalc/pkg/observability"
)

// TracerSession records host calls as script lines while it is recording.
type TracerSession struct {
	calc      *Calculator
	opts      traceOptions
	recording bool

	commands []string
	nodes    []host.Identity
	vars     map[host.Identity]string
	values   int
}

type traceOptions struct {
	print    bool
	pretty   bool
	out      io.Writer
	disabled bool
}

// TraceOption configures a trace session.
type TraceOption func(*traceOptions)

// WithPrint prints the commands as one flat list when the session stops.
func WithPrint() TraceOption {
	return func(o *traceOptions) { o.print = true }
}

// WithPrettyPrint prints one command per line when the session stops.
func WithPrettyPrint() TraceOption {
	return func(o *traceOptions) { o.pretty = true }
}

// WithOutput sets where printed commands go. The default is the logger.
func WithOutput(w io.Writer) TraceOption {
	return func(o *traceOptions) { o.out = w }
}

// WithoutRecording starts a session that executes host calls without
// recording them.
func WithoutRecording() TraceOption {
	return func(o *traceOptions) { o.disabled = true }
}

// StartTrace starts recording. Sessions do not nest.
func (c *Calculator) StartTrace(opts ...TraceOption) (*TracerSession, error) {
	if c.session != nil {
		return nil, errors.New(errors.ErrCodeNestedTrace, "a trace session is already active")
	}
	s := &TracerSession{
		calc: c,
		vars: make(map[host.Identity]string),
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	s.recording = !s.opts.disabled
	c.session = s
	return s, nil
}

// Trace runs fn inside a session. The session stops when fn returns or
// panics.
func (c *Calculator) Trace(fn func(*TracerSession) error, opts ...TraceOption) (*TracerSession, error) {
	s, err := c.StartTrace(opts...)
	if err != nil {
		return nil, err
	}
	defer s.Stop()
	return s, fn(s)
}

// Stop ends recording and prints the commands if requested. Stopping twice
// is a no-op.
func (s *TracerSession) Stop() {
	if s.calc == nil || s.calc.session != s {
		return
	}
	s.calc.session = nil
	s.recording = false
	switch {
	case s.opts.pretty:
		s.emit(s.String())
	case s.opts.print:
		s.emit("[" + strings.Join(s.commands, ", ") + "]\n")
	}
}

func (s *TracerSession) emit(text string) {
	if s.opts.disabled {
		s.logger().Warn("trace printing requested but recording is disabled")
		return
	}
	if s.opts.out != nil {
		_, _ = io.WriteString(s.opts.out, text)
		return
	}
	s.logger().Info("trace\n" + strings.TrimRight(text, "\n"))
}

func (s *TracerSession) logger() *log.Logger {
	if s.calc == nil {
		return log.Default()
	}
	return s.calc.logger
}

// Recording reports whether host calls are being recorded.
func (s *TracerSession) Recording() bool { return s.recording }

// Commands returns the recorded lines.
func (s *TracerSession) Commands() []string { return append([]string(nil), s.commands...) }

// Nodes returns the nodes created during the session in creation order.
func (s *TracerSession) Nodes() []host.Identity { return append([]host.Identity(nil), s.nodes...) }

// Print writes one command per line. A session without recording writes
// nothing and logs a warning.
func (s *TracerSession) Print(w io.Writer) error {
	if s.calc == nil || s.opts.disabled {
		s.logger().Warn("nothing to print: recording is disabled")
		return nil
	}
	_, err := io.WriteString(w, s.String())
	return err
}

func (s *TracerSession) String() string {
	if len(s.commands) == 0 {
		return ""
	}
	return strings.Join(s.commands, "\n") + "\n"
}

func (s *TracerSession) record(format string, args ...any) {
	s.commands = append(s.commands, fmt.Sprintf(format, args...))
}

// recorder returns the active session when it records.
func (c *Calculator) recorder() *TracerSession {
	if c.session != nil && c.session.recording {
		return c.session
	}
	return nil
}

// =============================================================================
// Traced host calls
// =============================================================================

func (c *Calculator) createNode(nodeType, name string) (host.Identity, error) {
	id, err := c.host.CreateNode(nodeType, name)
	if err != nil {
		return "", err
	}
	c.logger.Debug("create node", "type", nodeType, "name", c.nodeName(id))
	if s := c.recorder(); s != nil {
		v := c.cfg.VariablePrefix + strconv.Itoa(len(s.nodes)+1)
		s.vars[id] = v
		s.nodes = append(s.nodes, id)
		s.record("%s = cmds.createNode(%s, name=%s)", v, pyString(nodeType), pyString(name))
	}
	return id, nil
}

func (c *Calculator) addAttribute(id host.Identity, name string, flags host.Flags) error {
	if err := c.host.AddAttribute(id, name, flags); err != nil {
		return err
	}
	if s := c.recorder(); s != nil {
		s.record("cmds.addAttr(%s%s)", s.nodeRef(id), pyFlags(flags))
	}
	return nil
}

// setAttr writes v; a nil v only applies flags.
func (c *Calculator) setAttr(id host.Identity, attr string, v *Value, flags ...host.Flag) error {
	var raw any
	if v != nil {
		raw = v.Raw()
	}
	if err := c.host.SetAttribute(id, attr, raw, flags...); err != nil {
		return err
	}
	plug := host.JoinPlug(c.nodeName(id), attr)
	observability.Resolver().OnSet(c.ctx, plug)
	c.logger.Debug("set", "plug", plug, "value", v)
	if s := c.recorder(); s != nil {
		switch {
		case v == nil:
			s.record("cmds.setAttr(%s, edit=True%s)", s.plugRef(id, attr), pyFlags(flags))
		case v.Basetype() == BasetypeList:
			s.record("cmds.setAttr(%s, *%s%s)", s.plugRef(id, attr), v.Metadata, pyFlags(flags))
		default:
			s.record("cmds.setAttr(%s, %s%s)", s.plugRef(id, attr), v.Metadata, pyFlags(flags))
		}
	}
	return nil
}

func (c *Calculator) connectAttr(srcID host.Identity, srcAttr string, dstID host.Identity, dstAttr string) error {
	if err := c.host.ConnectAttribute(srcID, srcAttr, dstID, dstAttr); err != nil {
		return err
	}
	src := host.JoinPlug(c.nodeName(srcID), srcAttr)
	dst := host.JoinPlug(c.nodeName(dstID), dstAttr)
	observability.Resolver().OnConnect(c.ctx, src, dst)
	c.logger.Debug("connect", "src", src, "dst", dst)
	if s := c.recorder(); s != nil {
		s.record("cmds.connectAttr(%s, %s, force=True)", s.plugRef(srcID, srcAttr), s.plugRef(dstID, dstAttr))
	}
	return nil
}

func (c *Calculator) getAttr(id host.Identity, attr string) (*Value, error) {
	if canon, err := c.host.CanonicalAttribute(id, attr); err == nil {
		attr = canon
	}
	raw, err := c.host.AttributeValue(id, attr)
	if err != nil {
		return nil, err
	}
	if items, ok := raw.([]any); ok {
		if raw, ok = normalizeLiteral(items); !ok {
			return nil, errors.New(errors.ErrCodeUnsupportedType, "cannot read %s", host.JoinPlug(c.nodeName(id), attr))
		}
	}
	v, err := ValueOf(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnsupportedType, err, "read %s", host.JoinPlug(c.nodeName(id), attr))
	}
	v.CreatedByUser = false
	if s := c.recorder(); s != nil {
		s.values++
		v.Metadata = c.cfg.ValuePrefix + strconv.Itoa(s.values)
		if v.Basetype() == BasetypeList {
			s.record("%s = list(cmds.getAttr(%s)[0])", v.Metadata, s.plugRef(id, attr))
		} else {
			s.record("%s = cmds.getAttr(%s)", v.Metadata, s.plugRef(id, attr))
		}
	}
	return v, nil
}

// =============================================================================
// Script formatting
// =============================================================================

func (s *TracerSession) nodeRef(id host.Identity) string {
	if v, ok := s.vars[id]; ok {
		return v
	}
	return pyString(s.calc.nodeName(id))
}

func (s *TracerSession) plugRef(id host.Identity, attr string) string {
	if v, ok := s.vars[id]; ok {
		return v + " + " + pyString("."+attr)
	}
	return pyString(host.JoinPlug(s.calc.nodeName(id), attr))
}

func pyString(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}

func pyLiteral(v any) string {
	switch x := v.(type) {
	case string:
		return pyString(x)
	case *Value:
		return x.Metadata
	}
	if raw, ok := normalizeLiteral(v); ok {
		return formatLiteral(raw)
	}
	return pyString(fmt.Sprint(v))
}

// pyFlags renders flags as ", key=value" keyword arguments.
func pyFlags(flags host.Flags) string {
	var b strings.Builder
	for _, f := range flags {
		fmt.Fprintf(&b, ", %s=%s", f.Key, pyLiteral(f.Value))
	}
	return b.String()
}
