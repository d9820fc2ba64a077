// Package parser implements the source-parser collaborator for the pipeline:
// a line-oriented recursive-descent parser for the small dynamic language the
// tool rewrites. It produces the tagged tree consumed by the filter chain,
// attaches a source location to every node, and reports comments through an
// annotations.Contribution so the pragma engine can key directives by line.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vk/rejig/internal/annotations"
	"github.com/vk/rejig/internal/node"
)

// Parser parses source text into the pipeline's tree representation. The
// zero value is not usable; construct with New.
type Parser struct{}

// New creates a Parser.
func New() *Parser {
	return &Parser{}
}

var (
	requireRe = regexp.MustCompile(`^require\s+"([^"]+)"$`)
	importRe  = regexp.MustCompile(`^import\s+(?:([\w\s,]+?)\s+from\s+)?"([^"]+)"$`)
	moduleRe  = regexp.MustCompile(`^module\s+([A-Z][\w.:]*)$`)
	classRe   = regexp.MustCompile(`^class\s+([A-Z][\w.:]*)(?:\s*<\s*([A-Z][\w.:]*))?$`)
	defRe     = regexp.MustCompile(`^def\s+([a-z_]\w*[?!]?)(?:\(([\w\s,]*)\))?$`)
	cvasgnRe  = regexp.MustCompile(`^@@([a-z_]\w*)\s*=\s*(.+)$`)
	lvasgnRe  = regexp.MustCompile(`^([a-z_]\w*)\s*=\s*([^=].*|$)`)
	nameRe    = regexp.MustCompile(`^[A-Za-z_]\w*[?!]?`)
	numberRe  = regexp.MustCompile(`^\d+(\.\d+)?`)
)

// line is one physical source line with its comment stripped off.
type line struct {
	num     int
	indent  int
	code    string
	comment string
}

type parseState struct {
	file    string
	lines   []line
	pos     int
	contrib *annotations.Contribution
	// pending holds the comment block immediately preceding a declaration,
	// to be attached to it.
	pending []string
}

// Parse parses src, recording file as the origin of every node location.
func (p *Parser) Parse(src []byte, file string) (*node.Node, *annotations.Contribution, error) {
	st := &parseState{
		file:    file,
		contrib: annotations.NewContribution(),
	}
	if err := st.scan(string(src)); err != nil {
		return nil, nil, err
	}

	stmts, err := st.parseBody(0)
	if err != nil {
		return nil, nil, err
	}
	if st.pos < len(st.lines) {
		l := st.lines[st.pos]
		return nil, nil, st.errAt(l, "unexpected %q outside any block", l.code)
	}

	root := node.New("begin", stmts...).At(&node.Loc{File: file, Line: 1, Col: 1})
	return root, st.contrib, nil
}

// scan splits the source into lines, strips comments (respecting string
// literals) and records every comment against its line.
func (st *parseState) scan(src string) error {
	for i, raw := range strings.Split(src, "\n") {
		num := i + 1
		code, comment, err := splitComment(raw)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", st.file, num, err)
		}
		if comment != "" {
			st.contrib.Append(st.file, num, comment)
		}
		trimmed := strings.TrimSpace(code)
		st.lines = append(st.lines, line{
			num:     num,
			indent:  len(code) - len(strings.TrimLeft(code, " \t")),
			code:    trimmed,
			comment: comment,
		})
	}
	return nil
}

// splitComment separates code from a trailing # comment, honoring double-
// and single-quoted strings.
func splitComment(raw string) (code, comment string, err error) {
	var quote byte
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '#':
			return raw[:i], strings.TrimSpace(raw[i:]), nil
		}
	}
	if quote != 0 {
		return "", "", fmt.Errorf("unterminated string literal")
	}
	return raw, "", nil
}

// parseBody consumes statements until an "end" at the current nesting depth
// (or end of input at depth zero) and returns them.
func (st *parseState) parseBody(depth int) ([]any, error) {
	var stmts []any
	for st.pos < len(st.lines) {
		l := st.lines[st.pos]
		if l.code == "" {
			if l.comment == "" {
				st.pending = nil
			} else {
				st.pending = append(st.pending, l.comment)
			}
			st.pos++
			continue
		}
		if l.code == "end" {
			if depth == 0 {
				return nil, st.errAt(l, "unexpected 'end'")
			}
			st.pos++
			return stmts, nil
		}

		stmt, err := st.parseStatement(l)
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	if depth > 0 {
		return nil, fmt.Errorf("%s: missing 'end' at end of file", st.file)
	}
	return stmts, nil
}

func (st *parseState) parseStatement(l line) (*node.Node, error) {
	loc := &node.Loc{File: st.file, Line: l.num, Col: l.indent + 1}

	if m := requireRe.FindStringSubmatch(l.code); m != nil {
		st.pending = nil
		st.pos++
		return node.New("require", m[1]).At(loc), nil
	}
	if m := importRe.FindStringSubmatch(l.code); m != nil {
		st.pending = nil
		st.pos++
		names := []any{}
		for _, name := range strings.Split(m[1], ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		return node.New("import", m[2], names).At(loc), nil
	}
	if m := moduleRe.FindStringSubmatch(l.code); m != nil {
		st.pos++
		body, err := st.parseBlockBody()
		if err != nil {
			return nil, err
		}
		decl := node.New("module", constChain(m[1], loc), body).At(loc)
		st.attachPending(decl)
		return decl, nil
	}
	if m := classRe.FindStringSubmatch(l.code); m != nil {
		st.pos++
		var super any
		if m[2] != "" {
			super = constChain(m[2], loc)
		}
		body, err := st.parseBlockBody()
		if err != nil {
			return nil, err
		}
		decl := node.New("class", constChain(m[1], loc), super, body).At(loc)
		st.attachPending(decl)
		return decl, nil
	}
	if m := defRe.FindStringSubmatch(l.code); m != nil {
		st.pos++
		params := []any{}
		for _, param := range strings.Split(m[2], ",") {
			if param = strings.TrimSpace(param); param != "" {
				params = append(params, param)
			}
		}
		body, err := st.parseBlockBody()
		if err != nil {
			return nil, err
		}
		decl := node.New("def", m[1], params, body).At(loc)
		st.attachPending(decl)
		return decl, nil
	}

	st.pending = nil
	st.pos++

	if m := cvasgnRe.FindStringSubmatch(l.code); m != nil {
		value, err := st.parseExpr(m[2], l, loc)
		if err != nil {
			return nil, err
		}
		return node.New("cvasgn", m[1], value).At(loc), nil
	}
	if m := lvasgnRe.FindStringSubmatch(l.code); m != nil && !strings.HasPrefix(m[2], "=") {
		value, err := st.parseExpr(strings.TrimSpace(m[2]), l, loc)
		if err != nil {
			return nil, err
		}
		return node.New("lvasgn", m[1], value).At(loc), nil
	}

	expr, err := st.parseExpr(l.code, l, loc)
	if err != nil {
		return nil, err
	}
	return expr, nil
}

// parseBlockBody parses the statements of a module/class/def body and wraps
// them: nil for an empty body, the statement itself for a single one, and a
// "begin" sequence otherwise.
func (st *parseState) parseBlockBody() (any, error) {
	start := st.lineOrEOF()
	stmts, err := st.parseBody(1)
	if err != nil {
		return nil, err
	}
	switch len(stmts) {
	case 0:
		return nil, nil
	case 1:
		return stmts[0], nil
	default:
		return node.New("begin", stmts...).At(&node.Loc{File: st.file, Line: start, Col: 1}), nil
	}
}

func (st *parseState) lineOrEOF() int {
	if st.pos < len(st.lines) {
		return st.lines[st.pos].num
	}
	return len(st.lines)
}

func (st *parseState) attachPending(decl *node.Node) {
	for _, comment := range st.pending {
		st.contrib.Attach(decl, comment)
	}
	st.pending = nil
}

// constChain builds the nested const-node chain for a dotted (or ::-joined)
// declaration name: "A::B" becomes (const (const nil "A") "B").
func constChain(name string, loc *node.Loc) *node.Node {
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '.' || r == ':' })
	var scope any
	var out *node.Node
	for _, part := range parts {
		out = node.New("const", scope, part).At(loc)
		scope = out
	}
	return out
}

// --- expression parsing ---

type exprScanner struct {
	st  *parseState
	l   line
	loc *node.Loc
	src string
	pos int
}

func (st *parseState) parseExpr(src string, l line, loc *node.Loc) (*node.Node, error) {
	sc := &exprScanner{st: st, l: l, loc: loc, src: src}
	expr, err := sc.parseShift()
	if err != nil {
		return nil, err
	}
	sc.skipSpace()
	if sc.pos < len(sc.src) {
		return nil, st.errAt(l, "unexpected %q", sc.src[sc.pos:])
	}
	return expr, nil
}

func (sc *exprScanner) skipSpace() {
	for sc.pos < len(sc.src) && (sc.src[sc.pos] == ' ' || sc.src[sc.pos] == '\t') {
		sc.pos++
	}
}

func (sc *exprScanner) takeToken(tok string) bool {
	sc.skipSpace()
	if strings.HasPrefix(sc.src[sc.pos:], tok) {
		sc.pos += len(tok)
		return true
	}
	return false
}

// parseShift handles the lowest-precedence shift-like operator. Its meaning
// (array push versus string append) is decided later by the shift filter
// from same-line pragmas.
func (sc *exprScanner) parseShift() (*node.Node, error) {
	left, err := sc.parseAdditive()
	if err != nil {
		return nil, err
	}
	for sc.takeToken("<<") {
		right, err := sc.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = node.New("shift", left, right).At(sc.loc)
	}
	return left, nil
}

func (sc *exprScanner) parseAdditive() (*node.Node, error) {
	left, err := sc.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case sc.takeToken("+"):
			op = "+"
		case sc.takeToken("-"):
			op = "-"
		default:
			return left, nil
		}
		right, err := sc.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = node.New("binop", op, left, right).At(sc.loc)
	}
}

func (sc *exprScanner) parseMultiplicative() (*node.Node, error) {
	left, err := sc.parsePostfix()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case sc.takeToken("*"):
			op = "*"
		case sc.takeToken("/"):
			op = "/"
		default:
			return left, nil
		}
		right, err := sc.parsePostfix()
		if err != nil {
			return nil, err
		}
		left = node.New("binop", op, left, right).At(sc.loc)
	}
}

// parsePostfix parses an atom followed by any chain of .method calls or
// attribute accesses.
func (sc *exprScanner) parsePostfix() (*node.Node, error) {
	out, err := sc.parseAtom()
	if err != nil {
		return nil, err
	}
	for sc.takeToken(".") {
		sc.skipSpace()
		m := nameRe.FindString(sc.src[sc.pos:])
		if m == "" {
			return nil, sc.st.errAt(sc.l, "expected method name after '.'")
		}
		sc.pos += len(m)
		// A bare attribute access is a zero-argument send.
		args, _, err := sc.parseArgs()
		if err != nil {
			return nil, err
		}
		out = node.New("send", append([]any{out, m}, args...)...).At(sc.loc)
	}
	return out, nil
}

func (sc *exprScanner) parseAtom() (*node.Node, error) {
	sc.skipSpace()
	if sc.pos >= len(sc.src) {
		return nil, sc.st.errAt(sc.l, "unexpected end of expression")
	}

	if sc.src[sc.pos] == '(' {
		sc.pos++
		inner, err := sc.parseShift()
		if err != nil {
			return nil, err
		}
		if !sc.takeToken(")") {
			return nil, sc.st.errAt(sc.l, "missing ')'")
		}
		return inner, nil
	}

	if sc.src[sc.pos] == '"' || sc.src[sc.pos] == '\'' {
		return sc.parseString()
	}

	if strings.HasPrefix(sc.src[sc.pos:], "@@") {
		sc.pos += 2
		m := nameRe.FindString(sc.src[sc.pos:])
		if m == "" {
			return nil, sc.st.errAt(sc.l, "expected name after '@@'")
		}
		sc.pos += len(m)
		return node.New("cvar", m).At(sc.loc), nil
	}

	if m := numberRe.FindString(sc.src[sc.pos:]); m != "" {
		sc.pos += len(m)
		if strings.Contains(m, ".") {
			f, err := strconv.ParseFloat(m, 64)
			if err != nil {
				return nil, sc.st.errAt(sc.l, "bad number %q", m)
			}
			return node.New("float", f).At(sc.loc), nil
		}
		i, err := strconv.Atoi(m)
		if err != nil {
			return nil, sc.st.errAt(sc.l, "bad number %q", m)
		}
		return node.New("int", i).At(sc.loc), nil
	}

	if m := nameRe.FindString(sc.src[sc.pos:]); m != "" {
		sc.pos += len(m)
		args, called, err := sc.parseArgs()
		if err != nil {
			return nil, err
		}
		if called {
			return node.New("send", append([]any{nil, m}, args...)...).At(sc.loc), nil
		}
		return node.New("ident", m).At(sc.loc), nil
	}

	return nil, sc.st.errAt(sc.l, "unexpected %q", sc.src[sc.pos:])
}

func (sc *exprScanner) parseString() (*node.Node, error) {
	quote := sc.src[sc.pos]
	sc.pos++
	var sb strings.Builder
	for sc.pos < len(sc.src) {
		ch := sc.src[sc.pos]
		if ch == '\\' && sc.pos+1 < len(sc.src) {
			sc.pos++
			switch sc.src[sc.pos] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(sc.src[sc.pos])
			}
			sc.pos++
			continue
		}
		if ch == quote {
			sc.pos++
			return node.New("str", sb.String()).At(sc.loc), nil
		}
		sb.WriteByte(ch)
		sc.pos++
	}
	return nil, sc.st.errAt(sc.l, "unterminated string literal")
}

// parseArgs parses a parenthesized argument list if one follows directly.
func (sc *exprScanner) parseArgs() (args []any, called bool, err error) {
	if sc.pos >= len(sc.src) || sc.src[sc.pos] != '(' {
		return nil, false, nil
	}
	sc.pos++
	sc.skipSpace()
	if sc.takeToken(")") {
		return nil, true, nil
	}
	for {
		arg, err := sc.parseShift()
		if err != nil {
			return nil, false, err
		}
		args = append(args, arg)
		if sc.takeToken(",") {
			continue
		}
		if sc.takeToken(")") {
			return args, true, nil
		}
		return nil, false, sc.st.errAt(sc.l, "missing ')' in argument list")
	}
}

func (st *parseState) errAt(l line, format string, args ...any) error {
	return fmt.Errorf("%s:%d: %s", st.file, l.num, fmt.Sprintf(format, args...))
}
