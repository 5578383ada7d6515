package pyfake

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/reglet-dev/pybridge/domain/entities"
)

// program is compiled source: one statement per non-blank line.
type program struct {
	filename string
	stmts    []stmt
	mode     entities.StartMode
}

type stmtKind uint8

const (
	stmtExpr stmtKind = iota
	stmtAssign
	stmtImport
	stmtRaise
	stmtPass
)

type stmt struct {
	target node
	value  node
	module string
	alias  string
	line   int
	kind   stmtKind
}

type syntaxError struct {
	msg  string
	line int
}

func (e *syntaxError) Error() string { return fmt.Sprintf("%s (line %d)", e.msg, e.line) }

// compile parses source into a program.
func compile(source, filename string, mode entities.StartMode) (*program, *syntaxError) {
	prog := &program{filename: filename, mode: mode}
	if mode == entities.StartEval {
		source = strings.TrimSpace(source)
	}
	for i, raw := range strings.Split(source, "\n") {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			return nil, &syntaxError{msg: "unexpected indent", line: i + 1}
		}
		toks, err := lex(line)
		if err != nil {
			return nil, &syntaxError{msg: err.Error(), line: i + 1}
		}
		p := &parser{toks: toks}
		s, err := p.statement(mode == entities.StartEval)
		if err != nil {
			return nil, &syntaxError{msg: err.Error(), line: i + 1}
		}
		s.line = i + 1
		prog.stmts = append(prog.stmts, s)
	}
	if mode == entities.StartEval && len(prog.stmts) != 1 {
		return nil, &syntaxError{msg: "invalid syntax", line: 1}
	}
	return prog, nil
}

// run executes prog against the borrowed globals dict. In eval mode it
// returns the expression's value; otherwise None.
func (r *Runtime) run(prog *program, globals Ptr) Ptr {
	env := &scope{r: r, globals: r.obj(globals).dict}
	var last Ptr
	for _, s := range prog.stmts {
		res := env.exec(s)
		if res == 0 {
			r.decref(last)
			r.attachTraceback(prog.filename, s.line)
			return 0
		}
		r.decref(last)
		last = res
	}
	if prog.mode == entities.StartEval {
		return last
	}
	r.decref(last)
	return r.newNone()
}

// Lexer.

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokName
	tokInt
	tokFloat
	tokStr
	tokBytes
	tokOp
)

type token struct {
	text string
	kind tokKind
}

var operators = []string{
	"**", "//", "==", "!=", "<=", ">=", "...",
	"+", "-", "*", "/", "%", "<", ">", "(", ")", "[", "]", "{", "}", ",", "=", ".", ":",
}

func lex(line string) ([]token, error) {
	var toks []token
	for i := 0; i < len(line); {
		c := line[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '#':
			i = len(line)
		case (c == 'b' || c == 'B') && i+1 < len(line) && (line[i+1] == '\'' || line[i+1] == '"'):
			s, n, err := lexString(line[i+1:], true)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokBytes, text: s})
			i += n + 1
		case c == '\'' || c == '"':
			s, n, err := lexString(line[i:], false)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokStr, text: s})
			i += n
		case isDigit(c) || (c == '.' && i+1 < len(line) && isDigit(line[i+1])):
			j := i
			float := false
			for j < len(line) && (isAlnum(line[j]) || line[j] == '.' || line[j] == '_' ||
				((line[j] == '+' || line[j] == '-') && (line[j-1] == 'e' || line[j-1] == 'E') && !strings.HasPrefix(line[i:], "0x"))) {
				if line[j] == '.' || line[j] == 'e' || line[j] == 'E' {
					float = float || !strings.HasPrefix(line[i:], "0x")
				}
				j++
			}
			kind := tokInt
			if float {
				kind = tokFloat
			}
			toks = append(toks, token{kind: kind, text: line[i:j]})
			i = j
		case isAlpha(c):
			j := i
			for j < len(line) && isAlnum(line[j]) {
				j++
			}
			toks = append(toks, token{kind: tokName, text: line[i:j]})
			i = j
		default:
			matched := false
			for _, op := range operators {
				if strings.HasPrefix(line[i:], op) {
					toks = append(toks, token{kind: tokOp, text: op})
					i += len(op)
					matched = true
					break
				}
			}
			if !matched {
				return nil, fmt.Errorf("invalid character %q", c)
			}
		}
	}
	return append(toks, token{kind: tokEOF}), nil
}

// lexString reads a quoted literal at the start of s and returns its value and
// the number of bytes consumed. In byte literals \x escapes denote raw bytes.
func lexString(s string, raw bool) (string, int, error) {
	q := s[0]
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == q:
			return b.String(), i + 1, nil
		case c == '\\' && i+1 < len(s):
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '0':
				b.WriteByte(0)
			case 'x':
				v, err := strconv.ParseUint(s[i+1:min(i+3, len(s))], 16, 8)
				if err != nil {
					return "", 0, fmt.Errorf("truncated \\xXX escape")
				}
				if raw {
					b.WriteByte(byte(v))
				} else {
					b.WriteRune(rune(v))
				}
				i += 2
			default:
				b.WriteByte(s[i])
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated string literal")
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool { return c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z') || c >= 0x80 }
func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

// Parser.

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(text string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == text
}

func (p *parser) isName(text string) bool {
	t := p.peek()
	return t.kind == tokName && t.text == text
}

func (p *parser) accept(text string) bool {
	if p.isOp(text) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(text string) error {
	if !p.accept(text) {
		return p.unexpected()
	}
	return nil
}

func (p *parser) unexpected() error {
	t := p.peek()
	if t.kind == tokEOF {
		return fmt.Errorf("unexpected EOF while parsing")
	}
	return fmt.Errorf("invalid syntax near %q", t.text)
}

var keywords = map[string]bool{
	"import": true, "as": true, "raise": true, "pass": true, "and": true, "or": true, "not": true,
	"def": true, "class": true, "if": true, "else": true, "for": true, "while": true, "return": true,
	"lambda": true, "from": true, "del": true, "in": true, "is": true,
}

func (p *parser) statement(evalOnly bool) (stmt, error) {
	if !evalOnly {
		switch {
		case p.isName("pass"):
			p.next()
			return stmt{kind: stmtPass}, p.end()
		case p.isName("import"):
			p.next()
			mod, err := p.dottedName()
			if err != nil {
				return stmt{}, err
			}
			alias := strings.SplitN(mod, ".", 2)[0]
			if p.isName("as") {
				p.next()
				t := p.next()
				if t.kind != tokName || keywords[t.text] {
					return stmt{}, fmt.Errorf("invalid syntax near %q", t.text)
				}
				alias = t.text
			}
			return stmt{kind: stmtImport, module: mod, alias: alias}, p.end()
		case p.isName("raise"):
			p.next()
			v, err := p.expr()
			if err != nil {
				return stmt{}, err
			}
			return stmt{kind: stmtRaise, value: v}, p.end()
		}
	}

	v, err := p.exprList()
	if err != nil {
		return stmt{}, err
	}
	if !evalOnly && p.accept("=") {
		switch v.(type) {
		case *nameNode, *attrNode, *indexNode:
		default:
			return stmt{}, fmt.Errorf("cannot assign to expression")
		}
		value, err := p.exprList()
		if err != nil {
			return stmt{}, err
		}
		return stmt{kind: stmtAssign, target: v, value: value}, p.end()
	}
	return stmt{kind: stmtExpr, value: v}, p.end()
}

func (p *parser) end() error {
	if p.peek().kind != tokEOF {
		return p.unexpected()
	}
	return nil
}

func (p *parser) dottedName() (string, error) {
	var parts []string
	for {
		t := p.next()
		if t.kind != tokName || keywords[t.text] {
			return "", fmt.Errorf("invalid syntax near %q", t.text)
		}
		parts = append(parts, t.text)
		if !p.accept(".") {
			return strings.Join(parts, "."), nil
		}
	}
}

// exprList parses "a, b, c" into a tuple, or a single expression.
func (p *parser) exprList() (node, error) {
	first, err := p.expr()
	if err != nil {
		return nil, err
	}
	if !p.isOp(",") {
		return first, nil
	}
	items := []node{first}
	for p.accept(",") {
		if p.atExprEnd() {
			break
		}
		n, err := p.expr()
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return &tupleNode{items: items}, nil
}

func (p *parser) atExprEnd() bool {
	t := p.peek()
	return t.kind == tokEOF || (t.kind == tokOp && (t.text == ")" || t.text == "]" || t.text == "}" || t.text == "="))
}

func (p *parser) expr() (node, error) {
	left, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.isName("or") {
		p.next()
		right, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		left = &boolNode{left: left, right: right, or: true}
	}
	return left, nil
}

func (p *parser) andExpr() (node, error) {
	left, err := p.notExpr()
	if err != nil {
		return nil, err
	}
	for p.isName("and") {
		p.next()
		right, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		left = &boolNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) notExpr() (node, error) {
	if p.isName("not") {
		p.next()
		operand, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: "not", operand: operand}, nil
	}
	return p.comparison()
}

var compareOps = map[string]entities.CompareOp{
	"<": entities.CompareLT, "<=": entities.CompareLE, "==": entities.CompareEQ,
	"!=": entities.CompareNE, ">": entities.CompareGT, ">=": entities.CompareGE,
}

func (p *parser) comparison() (node, error) {
	left, err := p.arith()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if op, ok := compareOps[t.text]; ok && t.kind == tokOp {
		p.next()
		right, err := p.arith()
		if err != nil {
			return nil, err
		}
		return &compareNode{left: left, right: right, op: op}, nil
	}
	return left, nil
}

func (p *parser) arith() (node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") {
		op := p.next().text
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) term() (node, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.isOp("*") || p.isOp("/") || p.isOp("//") || p.isOp("%") {
		op := p.next().text
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) factor() (node, error) {
	if p.isOp("-") || p.isOp("+") {
		op := p.next().text
		operand, err := p.factor()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: op, operand: operand}, nil
	}
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.accept("**") {
		exp, err := p.factor()
		if err != nil {
			return nil, err
		}
		return &binaryNode{op: "**", left: base, right: exp}, nil
	}
	return base, nil
}

func (p *parser) primary() (node, error) {
	n, err := p.atom()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.accept("."):
			t := p.next()
			if t.kind != tokName {
				return nil, fmt.Errorf("invalid syntax near %q", t.text)
			}
			n = &attrNode{obj: n, name: t.text}
		case p.accept("("):
			call := &callNode{fn: n}
			for !p.accept(")") {
				if t := p.peek(); t.kind == tokName && p.toks[p.pos+1].kind == tokOp && p.toks[p.pos+1].text == "=" {
					p.pos += 2
					v, err := p.expr()
					if err != nil {
						return nil, err
					}
					call.kwargs = append(call.kwargs, kwNode{name: t.text, value: v})
				} else {
					if len(call.kwargs) > 0 {
						return nil, fmt.Errorf("positional argument follows keyword argument")
					}
					v, err := p.expr()
					if err != nil {
						return nil, err
					}
					call.args = append(call.args, v)
				}
				if !p.accept(",") {
					if err := p.expect(")"); err != nil {
						return nil, err
					}
					break
				}
			}
			n = call
		case p.accept("["):
			key, err := p.subscript()
			if err != nil {
				return nil, err
			}
			n = &indexNode{obj: n, key: key}
		default:
			return n, nil
		}
	}
}

// subscript parses the contents of [...] up to and including "]".
func (p *parser) subscript() (node, error) {
	var items []node
	trailing := false
	for {
		item, err := p.sliceItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if !p.accept(",") {
			break
		}
		if p.isOp("]") {
			trailing = true
			break
		}
	}
	if err := p.expect("]"); err != nil {
		return nil, err
	}
	if len(items) == 1 && !trailing {
		return items[0], nil
	}
	return &tupleNode{items: items}, nil
}

func (p *parser) sliceItem() (node, error) {
	var parts [3]node
	bound := func() (node, error) {
		if p.isOp(":") || p.isOp(",") || p.isOp("]") {
			return nil, nil
		}
		return p.expr()
	}
	first, err := bound()
	if err != nil {
		return nil, err
	}
	if !p.isOp(":") {
		if first == nil {
			return nil, p.unexpected()
		}
		return first, nil
	}
	parts[0] = first
	for i := 1; i < 3 && p.accept(":"); i++ {
		if parts[i], err = bound(); err != nil {
			return nil, err
		}
	}
	return &sliceNode{start: parts[0], stop: parts[1], step: parts[2]}, nil
}

func (p *parser) atom() (node, error) {
	t := p.next()
	switch t.kind {
	case tokInt:
		text := strings.ReplaceAll(t.text, "_", "")
		base := 10
		if len(text) > 1 && text[0] == '0' && strings.ContainsRune("xXoObB", rune(text[1])) {
			base = 0
		}
		v, ok := new(big.Int).SetString(text, base)
		if !ok {
			return nil, fmt.Errorf("invalid decimal literal")
		}
		return &intNode{v: v}, nil
	case tokFloat:
		f, err := strconv.ParseFloat(strings.ReplaceAll(t.text, "_", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid decimal literal")
		}
		return &floatNode{v: f}, nil
	case tokStr:
		s := t.text
		for p.peek().kind == tokStr {
			s += p.next().text
		}
		return &strNode{v: s}, nil
	case tokBytes:
		return &bytesNode{v: []byte(t.text)}, nil
	case tokName:
		switch t.text {
		case "None", "True", "False", "Ellipsis":
			return &constNode{name: t.text}, nil
		}
		if keywords[t.text] {
			return nil, fmt.Errorf("invalid syntax near %q", t.text)
		}
		return &nameNode{name: t.text}, nil
	case tokOp:
		switch t.text {
		case "...":
			return &constNode{name: "Ellipsis"}, nil
		case "(":
			if p.accept(")") {
				return &tupleNode{}, nil
			}
			inner, err := p.exprList()
			if err != nil {
				return nil, err
			}
			if tup, ok := inner.(*tupleNode); ok {
				tup.paren = true
			}
			return inner, p.expect(")")
		case "[":
			var items []node
			for !p.accept("]") {
				v, err := p.expr()
				if err != nil {
					return nil, err
				}
				items = append(items, v)
				if !p.accept(",") {
					if err := p.expect("]"); err != nil {
						return nil, err
					}
					break
				}
			}
			return &listNode{items: items}, nil
		case "{":
			return p.braces()
		}
	}
	if t.kind != tokEOF {
		p.pos--
	}
	return nil, p.unexpected()
}

func (p *parser) braces() (node, error) {
	d := &dictNode{}
	if p.accept("}") {
		return d, nil
	}
	var set []node
	for {
		k, err := p.expr()
		if err != nil {
			return nil, err
		}
		if p.accept(":") {
			if set != nil {
				return nil, p.unexpected()
			}
			v, err := p.expr()
			if err != nil {
				return nil, err
			}
			d.keys = append(d.keys, k)
			d.values = append(d.values, v)
		} else {
			if len(d.keys) > 0 {
				return nil, p.unexpected()
			}
			set = append(set, k)
		}
		if !p.accept(",") || p.isOp("}") {
			if err := p.expect("}"); err != nil {
				return nil, err
			}
			break
		}
	}
	if set != nil {
		return &setNode{items: set}, nil
	}
	return d, nil
}

// Evaluation.

type scope struct {
	r       *Runtime
	globals *dict
}

// node is an expression. eval returns a new reference or 0 with the error
// indicator set.
type node interface {
	eval(s *scope) Ptr
}

type (
	intNode   struct{ v *big.Int }
	floatNode struct{ v float64 }
	strNode   struct{ v string }
	bytesNode struct{ v []byte }
	constNode struct{ name string }
	nameNode  struct{ name string }
	attrNode  struct {
		obj  node
		name string
	}
	indexNode struct{ obj, key node }
	sliceNode struct{ start, stop, step node }
	callNode  struct {
		fn     node
		args   []node
		kwargs []kwNode
	}
	kwNode struct {
		value node
		name  string
	}
	binaryNode struct {
		left, right node
		op          string
	}
	unaryNode struct {
		operand node
		op      string
	}
	compareNode struct {
		left, right node
		op          entities.CompareOp
	}
	boolNode struct {
		left, right node
		or          bool
	}
	tupleNode struct {
		items []node
		paren bool
	}
	listNode struct{ items []node }
	setNode  struct{ items []node }
	dictNode struct{ keys, values []node }
)

func (n *intNode) eval(s *scope) Ptr   { return s.r.newInt(n.v) }
func (n *floatNode) eval(s *scope) Ptr { return s.r.newFloat(n.v) }
func (n *strNode) eval(s *scope) Ptr   { return s.r.UnicodeFromString(n.v) }
func (n *bytesNode) eval(s *scope) Ptr { return s.r.newBytes(n.v) }

func (n *constNode) eval(s *scope) Ptr {
	switch n.name {
	case "None":
		return s.r.newNone()
	case "True":
		return s.r.newBool(true)
	case "False":
		return s.r.newBool(false)
	}
	return s.r.incref(s.r.ellipsis)
}

func (n *nameNode) eval(s *scope) Ptr {
	if v := s.globals.getString(n.name); v != 0 {
		return s.r.incref(v)
	}
	if v := s.r.obj(s.r.builtinsDict).dict.getString(n.name); v != 0 {
		return s.r.incref(v)
	}
	s.r.raise("NameError", "name '%s' is not defined", n.name)
	return 0
}

func (n *attrNode) eval(s *scope) Ptr {
	o := n.obj.eval(s)
	if o == 0 {
		return 0
	}
	defer s.r.decref(o)
	return s.r.GetAttrString(o, n.name)
}

func (n *indexNode) eval(s *scope) Ptr {
	o, key, ok := s.evalPair(n.obj, n.key)
	if !ok {
		return 0
	}
	defer s.r.decrefAll(o, key)
	return s.r.GetItem(o, key)
}

func (n *sliceNode) eval(s *scope) Ptr {
	parts := make([]Ptr, 3)
	for i, b := range []node{n.start, n.stop, n.step} {
		if b == nil {
			continue
		}
		if parts[i] = b.eval(s); parts[i] == 0 {
			s.r.decrefAll(parts...)
			return 0
		}
	}
	defer s.r.decrefAll(parts...)
	return s.r.SliceNew(parts[0], parts[1], parts[2])
}

func (n *callNode) eval(s *scope) Ptr {
	fn := n.fn.eval(s)
	if fn == 0 {
		return 0
	}
	defer s.r.decref(fn)
	args := s.evalAll(n.args)
	if args == 0 {
		return 0
	}
	defer s.r.decref(args)
	var kwargs Ptr
	if len(n.kwargs) > 0 {
		kwargs = s.r.newDict()
		defer s.r.decref(kwargs)
		for _, kw := range n.kwargs {
			v := kw.value.eval(s)
			if v == 0 {
				return 0
			}
			s.r.dictSetString(s.r.obj(kwargs).dict, kw.name, v)
			s.r.decref(v)
		}
	}
	return s.r.Call(fn, args, kwargs)
}

func (n *binaryNode) eval(s *scope) Ptr {
	a, b, ok := s.evalPair(n.left, n.right)
	if !ok {
		return 0
	}
	defer s.r.decrefAll(a, b)
	return s.r.binary(n.op, a, b)
}

func (n *unaryNode) eval(s *scope) Ptr {
	v := n.operand.eval(s)
	if v == 0 {
		return 0
	}
	defer s.r.decref(v)
	switch n.op {
	case "-":
		return s.r.negate(v)
	case "not":
		t := s.r.IsTrue(v)
		if t < 0 {
			return 0
		}
		return s.r.newBool(t == 0)
	}
	if !s.r.isNumber(v) {
		s.r.raise("TypeError", "bad operand type for unary +: '%s'", s.r.typeName(v))
		return 0
	}
	return s.r.incref(v)
}

func (n *compareNode) eval(s *scope) Ptr {
	a, b, ok := s.evalPair(n.left, n.right)
	if !ok {
		return 0
	}
	defer s.r.decrefAll(a, b)
	return s.r.RichCompare(a, b, n.op)
}

func (n *boolNode) eval(s *scope) Ptr {
	left := n.left.eval(s)
	if left == 0 {
		return 0
	}
	t := s.r.IsTrue(left)
	if t < 0 {
		s.r.decref(left)
		return 0
	}
	if (t == 1) == n.or {
		return left
	}
	s.r.decref(left)
	return n.right.eval(s)
}

func (n *tupleNode) eval(s *scope) Ptr { return s.evalAll(n.items) }

func (n *listNode) eval(s *scope) Ptr {
	t := s.evalAll(n.items)
	if t == 0 {
		return 0
	}
	items := s.r.obj(t).items
	s.r.obj(t).items = nil
	s.r.decref(t)
	return s.r.newList(items)
}

func (n *setNode) eval(s *scope) Ptr {
	t := s.evalAll(n.items)
	if t == 0 {
		return 0
	}
	defer s.r.decref(t)
	return s.r.SetNew(t)
}

func (n *dictNode) eval(s *scope) Ptr {
	d := s.r.newDict()
	for i := range n.keys {
		k, v, ok := s.evalPair(n.keys[i], n.values[i])
		if !ok {
			s.r.decref(d)
			return 0
		}
		ok = s.r.dictSet(s.r.obj(d).dict, k, v)
		s.r.decrefAll(k, v)
		if !ok {
			s.r.decref(d)
			return 0
		}
	}
	return d
}

func (s *scope) evalPair(a, b node) (Ptr, Ptr, bool) {
	x := a.eval(s)
	if x == 0 {
		return 0, 0, false
	}
	y := b.eval(s)
	if y == 0 {
		s.r.decref(x)
		return 0, 0, false
	}
	return x, y, true
}

// evalAll evaluates nodes into a new tuple.
func (s *scope) evalAll(nodes []node) Ptr {
	items := make([]Ptr, 0, len(nodes))
	for _, n := range nodes {
		v := n.eval(s)
		if v == 0 {
			s.r.decrefAll(items...)
			return 0
		}
		items = append(items, v)
	}
	return s.r.newTuple(items)
}

// exec runs one statement and returns a new reference (its value for
// expression statements, None otherwise) or 0 on failure.
func (s *scope) exec(st stmt) Ptr {
	r := s.r
	switch st.kind {
	case stmtPass:
		return r.newNone()
	case stmtExpr:
		return st.value.eval(s)
	case stmtImport:
		m := r.ImportModule(st.module)
		if m == 0 {
			return 0
		}
		r.dictSetString(s.globals, st.alias, m)
		r.decref(m)
		return r.newNone()
	case stmtRaise:
		return s.raise(st.value)
	case stmtAssign:
		v := st.value.eval(s)
		if v == 0 {
			return 0
		}
		defer r.decref(v)
		if !s.assign(st.target, v) {
			return 0
		}
		return r.newNone()
	}
	r.raise("SystemError", "unknown statement")
	return 0
}

func (s *scope) assign(target node, v Ptr) bool {
	r := s.r
	switch t := target.(type) {
	case *nameNode:
		r.dictSetString(s.globals, t.name, v)
		return true
	case *attrNode:
		o := t.obj.eval(s)
		if o == 0 {
			return false
		}
		defer r.decref(o)
		return r.SetAttrString(o, t.name, v) == 0
	case *indexNode:
		o, key, ok := s.evalPair(t.obj, t.key)
		if !ok {
			return false
		}
		defer r.decrefAll(o, key)
		return r.SetItem(o, key, v) == 0
	}
	r.raise("SyntaxError", "cannot assign to expression")
	return false
}

func (s *scope) raise(n node) Ptr {
	r := s.r
	v := n.eval(s)
	if v == 0 {
		return 0
	}
	if r.isKind(v, kindType) && r.isSubclass(v, r.types["BaseException"]) {
		inst := r.invoke(v, nil, nil)
		r.decref(v)
		if inst == 0 {
			return 0
		}
		v = inst
	}
	if !r.isException(v) {
		r.decref(v)
		r.raise("TypeError", "exceptions must derive from BaseException")
		return 0
	}
	r.setError(r.incref(r.obj(v).typ), v)
	return 0
}
