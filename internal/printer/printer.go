// Package printer renders a fully rewritten tree as JavaScript-shaped
// output. It understands the tags the core filters produce plus the residual
// tags of the source parser; it makes no attempt to be a general-purpose
// code generator.
package printer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/rejig/internal/node"
)

// Options controls output formatting.
type Options struct {
	// Indent is the indentation unit. Defaults to two spaces.
	Indent string
}

// Print renders the tree and returns the output text.
func Print(n *node.Node, opts Options) (string, error) {
	if opts.Indent == "" {
		opts.Indent = "  "
	}
	p := &printer{opts: opts}
	p.pushScope()
	if err := p.statement(n); err != nil {
		return "", err
	}
	return p.sb.String(), nil
}

type printer struct {
	opts  Options
	sb    strings.Builder
	depth int
	// class is the name of the enclosing declaration, for class-variable
	// references. Empty at top level.
	class string
	// scopes tracks which local names have been declared, so the first
	// assignment prints `let` and later ones do not.
	scopes []map[string]bool
}

func (p *printer) pushScope() { p.scopes = append(p.scopes, map[string]bool{}) }
func (p *printer) popScope()  { p.scopes = p.scopes[:len(p.scopes)-1] }

func (p *printer) declared(name string) bool {
	for _, scope := range p.scopes {
		if scope[name] {
			return true
		}
	}
	return false
}

func (p *printer) writeIndent() {
	for i := 0; i < p.depth; i++ {
		p.sb.WriteString(p.opts.Indent)
	}
}

func (p *printer) line(format string, args ...any) {
	p.writeIndent()
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

// statement renders one statement-position node.
func (p *printer) statement(n *node.Node) error {
	if n == nil {
		return nil
	}
	switch n.Tag {
	case "begin":
		for _, c := range n.Children {
			stmt, ok := c.(*node.Node)
			if !ok {
				return fmt.Errorf("non-node statement %v in sequence", c)
			}
			if err := p.statement(stmt); err != nil {
				return err
			}
		}
		return nil

	case "module", "class":
		return p.declaration(n, "")

	case "def":
		name, _ := n.Child(0).(string)
		params, err := p.paramList(n.Child(1))
		if err != nil {
			return err
		}
		p.line("function %s(%s) {", name, params)
		if err := p.body(n.NodeChild(2)); err != nil {
			return err
		}
		p.line("}")
		return nil

	case "import":
		path, _ := n.Child(0).(string)
		names, _ := n.Child(1).([]any)
		if len(names) == 0 {
			p.line("import %s;", strconv.Quote(path))
			return nil
		}
		parts := make([]string, len(names))
		for i, v := range names {
			parts[i], _ = v.(string)
		}
		p.line("import { %s } from %s;", strings.Join(parts, ", "), strconv.Quote(path))
		return nil

	case "require":
		// A require that survived the chain is a side-effect import.
		path, _ := n.Child(0).(string)
		p.line("import %s;", strconv.Quote(path))
		return nil

	case "lvasgn":
		name, _ := n.Child(0).(string)
		value, err := p.expr(n.NodeChild(1))
		if err != nil {
			return err
		}
		if p.declared(name) {
			p.line("%s = %s;", name, value)
		} else {
			p.scopes[len(p.scopes)-1][name] = true
			p.line("let %s = %s;", name, value)
		}
		return nil

	case "cvasgn":
		name, _ := n.Child(0).(string)
		value, err := p.expr(n.NodeChild(1))
		if err != nil {
			return err
		}
		p.line("%s = %s;", p.classVar(name), value)
		return nil

	default:
		text, err := p.expr(n)
		if err != nil {
			return err
		}
		p.line("%s;", text)
		return nil
	}
}

// declaration renders a module or class declaration. prefix is "static " for
// nested declarations printed as class-expression members.
func (p *printer) declaration(n *node.Node, prefix string) error {
	name := constName(n.NodeChild(0))

	extends := ""
	if n.Tag == "class" {
		if super := n.NodeChild(1); super != nil {
			extends = " extends " + constName(super)
		}
	}

	closer := "}"
	if prefix != "" {
		p.line("%s%s = class%s {", prefix, name, extends)
		closer = "};"
	} else {
		p.line("class %s%s {", name, extends)
	}

	prevClass := p.class
	p.class = name
	p.depth++
	if err := p.members(declBody(n)); err != nil {
		return err
	}
	p.depth--
	p.class = prevClass
	p.line("%s", closer)
	return nil
}

// members renders the body of a declaration. Methods and static fields
// print as class members; any other statement is wrapped in a static
// initialization block to preserve top-to-bottom evaluation order.
func (p *printer) members(stmts []*node.Node) error {
	for _, stmt := range stmts {
		switch stmt.Tag {
		case "def":
			name, _ := stmt.Child(0).(string)
			params, err := p.paramList(stmt.Child(1))
			if err != nil {
				return err
			}
			p.line("static %s(%s) {", name, params)
			if err := p.body(stmt.NodeChild(2)); err != nil {
				return err
			}
			p.line("}")

		case "cvasgn":
			name, _ := stmt.Child(0).(string)
			value, err := p.expr(stmt.NodeChild(1))
			if err != nil {
				return err
			}
			p.line("static %s = %s;", name, value)

		case "module", "class":
			if err := p.declaration(stmt, "static "); err != nil {
				return err
			}

		default:
			p.line("static {")
			p.depth++
			p.pushScope()
			if err := p.statement(stmt); err != nil {
				return err
			}
			p.popScope()
			p.depth--
			p.line("}")
		}
	}
	return nil
}

// body renders a function body: nil, a single statement, or a sequence.
func (p *printer) body(b *node.Node) error {
	p.depth++
	p.pushScope()
	defer func() {
		p.popScope()
		p.depth--
	}()
	return p.statement(b)
}

func (p *printer) paramList(v any) (string, error) {
	list, ok := v.([]any)
	if v != nil && !ok {
		return "", fmt.Errorf("malformed parameter list %v", v)
	}
	parts := make([]string, len(list))
	for i, el := range list {
		parts[i], _ = el.(string)
	}
	return strings.Join(parts, ", "), nil
}

func (p *printer) classVar(name string) string {
	if p.class == "" {
		return name
	}
	return p.class + "." + name
}

// expr renders an expression-position node.
func (p *printer) expr(n *node.Node) (string, error) {
	if n == nil {
		return "null", nil
	}
	switch n.Tag {
	case "str":
		s, _ := n.Child(0).(string)
		return strconv.Quote(s), nil
	case "int":
		return fmt.Sprintf("%d", n.Child(0)), nil
	case "float":
		return strconv.FormatFloat(n.Child(0).(float64), 'g', -1, 64), nil
	case "ident":
		s, _ := n.Child(0).(string)
		return s, nil
	case "cvar":
		s, _ := n.Child(0).(string)
		return p.classVar(s), nil
	case "const":
		return constName(n), nil
	case "binop":
		op, _ := n.Child(0).(string)
		left, err := p.expr(n.NodeChild(1))
		if err != nil {
			return "", err
		}
		right, err := p.expr(n.NodeChild(2))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", left, op, right), nil
	case "shift":
		// Untagged shift falls through to the target's shift operator.
		left, err := p.expr(n.NodeChild(0))
		if err != nil {
			return "", err
		}
		right, err := p.expr(n.NodeChild(1))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s << %s", left, right), nil
	case "opasgn":
		target, err := p.expr(n.NodeChild(0))
		if err != nil {
			return "", err
		}
		op, _ := n.Child(1).(string)
		value, err := p.expr(n.NodeChild(2))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s= %s", target, op, value), nil
	case "send":
		return p.send(n)
	default:
		return "", fmt.Errorf("printer: unsupported node tag %q", n.Tag)
	}
}

func (p *printer) send(n *node.Node) (string, error) {
	method, _ := n.Child(1).(string)

	var sb strings.Builder
	if recv := n.NodeChild(0); recv != nil {
		text, err := p.expr(recv)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		sb.WriteByte('.')
	}
	sb.WriteString(method)
	sb.WriteByte('(')
	for i, arg := range n.Children[2:] {
		if i > 0 {
			sb.WriteString(", ")
		}
		argNode, ok := arg.(*node.Node)
		if !ok {
			return "", fmt.Errorf("non-node argument %v in call to %s", arg, method)
		}
		text, err := p.expr(argNode)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
	}
	sb.WriteByte(')')
	return sb.String(), nil
}

// constName flattens a const chain into a dotted name.
func constName(n *node.Node) string {
	if n == nil {
		return ""
	}
	name, _ := n.Child(1).(string)
	if scope := n.NodeChild(0); scope != nil {
		return constName(scope) + "." + name
	}
	return name
}

// declBody returns a declaration's body statements as a flat slice.
func declBody(n *node.Node) []*node.Node {
	var b *node.Node
	switch n.Tag {
	case "module":
		b = n.NodeChild(1)
	case "class":
		b = n.NodeChild(2)
	}
	if b == nil {
		return nil
	}
	if b.Tag != "begin" {
		return []*node.Node{b}
	}
	out := make([]*node.Node, 0, b.Len())
	for _, c := range b.Children {
		if stmt, ok := c.(*node.Node); ok {
			out = append(out, stmt)
		}
	}
	return out
}
