// Package script runs line-oriented node calculator scripts.
//
// A script is a sequence of statements, one per line:
//
//	# connect a sum into A
//	offset = B.ty + 2
//	A.tx = offset * 3
//	A.r = clamp(B.r, 0, [90, 45, 180])
//
// A statement whose target is a plug path ("node.attr", "node.attr[0]")
// connects or sets it through [calc.Calculator.Connect]. A bare name binds
// a local, and locals shadow nodes of the same name. Statements without a
// target are evaluated for their side effects and their result.
//
// Expressions use HCL syntax: the arithmetic and comparison operators,
// unary minus, parentheses, tuples, traversals, conditionals and function
// calls. Identifiers may contain dashes, so write subtraction with spaces.
// Brackets that are still open at the end of a line continue the
// statement on the next one.
package script

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/matzehuels/nodecalc/pkg/calc"
	"github.com/matzehuels/nodecalc/pkg/errors"
)

// Statement is one parsed line of a script.
type Statement struct {
	Line   int
	Text   string
	Local  string        // set for "name = expr"
	Target hcl.Traversal // set for "node.attr = expr"
	Expr   hclsyntax.Expression
}

// Interpreter evaluates statements against a calculator. It is not safe for
// concurrent use.
type Interpreter struct {
	calc   *calc.Calculator
	logger *log.Logger
	locals map[string]any
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the interpreter's logger.
func WithLogger(l *log.Logger) Option {
	return func(in *Interpreter) { in.logger = l }
}

// New creates an interpreter with no locals.
func New(c *calc.Calculator, opts ...Option) *Interpreter {
	in := &Interpreter{calc: c, locals: make(map[string]any)}
	for _, opt := range opts {
		opt(in)
	}
	if in.logger == nil {
		in.logger = log.Default()
	}
	return in
}

// Calculator returns the calculator statements run against.
func (in *Interpreter) Calculator() *calc.Calculator { return in.calc }

// Local returns the value bound to name.
func (in *Interpreter) Local(name string) (any, bool) {
	v, ok := in.locals[name]
	return v, ok
}

// Parse splits src into statements. Every syntax error is reported before
// anything runs.
func Parse(filename string, src []byte) ([]Statement, error) {
	var (
		stmts []Statement
		diags hcl.Diagnostics
	)
	for _, chunk := range splitStatements(string(src)) {
		stmt, d := parseStatement(filename, chunk)
		diags = append(diags, d...)
		if !d.HasErrors() {
			stmts = append(stmts, stmt)
		}
	}
	if diags.HasErrors() {
		return nil, syntaxError(diags)
	}
	return stmts, nil
}

// Run parses and executes a whole script. Execution stops at the first
// failing statement; connections made by earlier statements stay.
func (in *Interpreter) Run(ctx context.Context, filename string, src []byte) error {
	stmts, err := Parse(filename, src)
	if err != nil {
		return err
	}
	in.logger.Debug("script parsed", "file", filename, "statements", len(stmts))
	for _, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := in.execute(stmt); err != nil {
			return lineError(filename, stmt.Line, err)
		}
	}
	return nil
}

// Exec runs a single statement and returns the value of its expression.
func (in *Interpreter) Exec(line string) (any, error) {
	chunks := splitStatements(line)
	if len(chunks) == 0 {
		return nil, nil
	}
	if len(chunks) > 1 {
		return nil, errors.New(errors.ErrCodeScriptSyntax, "expected one statement, got %d", len(chunks))
	}
	stmt, diags := parseStatement("<input>", chunks[0])
	if diags.HasErrors() {
		return nil, syntaxError(diags)
	}
	return in.execute(stmt)
}

// Eval evaluates a single expression without assigning it.
func (in *Interpreter) Eval(expr string) (any, error) {
	e, diags := hclsyntax.ParseExpression([]byte(stripComment(expr)), "<expr>", hcl.Pos{Line: 1, Column: 1, Byte: 0})
	if diags.HasErrors() {
		return nil, syntaxError(diags)
	}
	return in.eval(e)
}

func (in *Interpreter) execute(stmt Statement) (any, error) {
	v, err := in.eval(stmt.Expr)
	if err != nil {
		return nil, err
	}
	switch {
	case stmt.Local != "":
		in.locals[stmt.Local] = v
		in.logger.Debug("bind", "name", stmt.Local, "value", Format(v))
	case stmt.Target != nil:
		dst, err := in.traverse(stmt.Target)
		if err != nil {
			return nil, err
		}
		if err := in.calc.Connect(dst, v); err != nil {
			return nil, err
		}
		in.logger.Debug("assign", "target", Format(dst), "value", Format(v))
	}
	return v, nil
}

type chunk struct {
	line int
	text string
}

// splitStatements drops comments and blank lines and joins lines inside
// open brackets.
func splitStatements(src string) []chunk {
	var (
		out     []chunk
		pending strings.Builder
		start   int
		depth   int
	)
	for i, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(stripComment(raw))
		if line == "" && depth == 0 {
			continue
		}
		if pending.Len() == 0 {
			start = i + 1
		} else {
			pending.WriteByte('\n')
		}
		pending.WriteString(line)
		depth += bracketDepth(line)
		if depth <= 0 {
			out = append(out, chunk{line: start, text: pending.String()})
			pending.Reset()
			depth = 0
		}
	}
	if pending.Len() > 0 {
		out = append(out, chunk{line: start, text: pending.String()})
	}
	return out
}

// stripComment cuts a trailing "#" or "//" comment outside string literals.
func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '"' && (i == 0 || line[i-1] != '\\'):
			inString = !inString
		case inString:
		case c == '#':
			return line[:i]
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return line[:i]
		}
	}
	return line
}

func bracketDepth(line string) int {
	depth, inString := 0, false
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '"' && (i == 0 || line[i-1] != '\\'):
			inString = !inString
		case inString:
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		}
	}
	return depth
}

// assignIndex returns the byte offset of a top-level "=" that is not part
// of a comparison operator, or -1.
func assignIndex(s string) int {
	depth, inString := 0, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' && (i == 0 || s[i-1] != '\\'):
			inString = !inString
		case inString:
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == '=' && depth == 0:
			if i+1 < len(s) && s[i+1] == '=' {
				i++
				continue
			}
			if i > 0 && strings.ContainsRune("=!<>", rune(s[i-1])) {
				continue
			}
			return i
		}
	}
	return -1
}

func parseStatement(filename string, c chunk) (Statement, hcl.Diagnostics) {
	stmt := Statement{Line: c.line, Text: c.text}
	rhs, rhsCol := c.text, 1
	if i := assignIndex(c.text); i >= 0 {
		lhs := strings.TrimSpace(c.text[:i])
		rhs, rhsCol = c.text[i+1:], i+2
		target, diags := hclsyntax.ParseTraversalAbs([]byte(lhs), filename, hcl.Pos{Line: c.line, Column: 1})
		if diags.HasErrors() {
			return stmt, diags
		}
		if len(target) == 1 {
			stmt.Local = target.RootName()
		} else {
			stmt.Target = target
		}
	}
	if strings.TrimSpace(rhs) == "" {
		return stmt, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Missing expression",
			Detail:   "An assignment needs a value on the right of \"=\".",
			Subject:  &hcl.Range{Filename: filename, Start: hcl.Pos{Line: c.line, Column: rhsCol}, End: hcl.Pos{Line: c.line, Column: rhsCol}},
		}}
	}
	expr, diags := hclsyntax.ParseExpression([]byte(rhs), filename, hcl.Pos{Line: c.line, Column: rhsCol})
	stmt.Expr = expr
	return stmt, diags
}

func syntaxError(diags hcl.Diagnostics) error {
	return errors.Wrap(errors.ErrCodeScriptSyntax, diags, "parse script")
}

func lineError(filename string, line int, err error) error {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	return errors.Wrap(code, err, "%s:%d", filename, line)
}
