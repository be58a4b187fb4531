package feature

import (
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tEOF tokenKind = iota
	tIdent
	tString
	tInt
	tDouble
	tOp
	tLParen
	tRParen
	tLBracket
	tRBracket
	tComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// binary operators: function name and precedence, higher binds tighter
var binaryOps = map[string]struct {
	fn   string
	prec int
}{
	"&&": {"And", 1}, "||": {"Or", 1}, "&": {"And", 1}, "|": {"Or", 1},
	"==": {"Equals", 2}, "!=": {"NotEquals", 2},
	"<": {"Less", 2}, ">": {"Greater", 2}, "<=": {"LessOrEqual", 2}, ">=": {"GreaterOrEqual", 2},
	"+": {"Plus", 3}, "-": {"Minus", 3},
	"*": {"Multiply", 4}, "/": {"Divide", 4}, "%": {"Modulo", 4},
}

type nodeKind int

const (
	callNode nodeKind = iota
	identNode
	stringNode
	intNode
	doubleNode
	boolNode
	listNode
)

// Node is a parsed descriptor expression. Operators are already resolved to calls.
type Node struct {
	Kind   nodeKind
	Name   string
	Str    string
	Int    int
	Double float64
	Bool   bool
	Args   []*Node
	Pos    int
}

func (n *Node) clone() *Node {
	c := *n
	if n.Args != nil {
		c.Args = make([]*Node, len(n.Args))
		for i, a := range n.Args {
			c.Args[i] = a.clone()
		}
	}
	return &c
}

// substitute replaces identifiers bound in params with copies of their nodes
func (n *Node) substitute(params map[string]*Node) *Node {
	if n.Kind == identNode {
		if p, ok := params[n.Name]; ok {
			return p.clone()
		}
	}
	c := *n
	if n.Args != nil {
		c.Args = make([]*Node, len(n.Args))
		for i, a := range n.Args {
			c.Args[i] = a.substitute(params)
		}
	}
	return &c
}

// String renders the canonical form used for feature names
func (n *Node) String() string {
	switch n.Kind {
	case callNode:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = a.String()
		}
		return n.Name + "(" + strings.Join(args, ",") + ")"
	case identNode:
		return n.Name
	case stringNode:
		return strconv.Quote(n.Str)
	case intNode:
		return strconv.Itoa(n.Int)
	case doubleNode:
		return strconv.FormatFloat(n.Double, 'g', -1, 64)
	case boolNode:
		return strconv.FormatBool(n.Bool)
	case listNode:
		items := make([]string, len(n.Args))
		for i, a := range n.Args {
			items[i] = a.String()
		}
		return "[" + strings.Join(items, ",") + "]"
	}
	return "?"
}

type lexer struct {
	src    string
	runes  []rune
	pos    int
	tokens []token
}

func syntaxError(src string, pos int, msg string) *DescriptorSyntaxError {
	return &DescriptorSyntaxError{Descriptor: src, Pos: pos, Msg: msg}
}

// checkBalance verifies quotes, parentheses and brackets before tokenising
func checkBalance(src string) error {
	type opener struct {
		r   rune
		pos int
	}
	var stack []opener
	inQuote, quotePos := false, 0
	runes := []rune(src)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if inQuote {
			if r == '\\' {
				i++
			} else if r == '"' {
				inQuote = false
			}
			continue
		}
		switch r {
		case '"':
			inQuote, quotePos = true, i
		case '(', '[':
			stack = append(stack, opener{r, i})
		case ')', ']':
			want := '('
			if r == ']' {
				want = '['
			}
			if len(stack) == 0 || stack[len(stack)-1].r != want {
				return syntaxError(src, i, "unbalanced parenthesis")
			}
			stack = stack[:len(stack)-1]
		}
	}
	if inQuote {
		return syntaxError(src, quotePos, "unterminated quote")
	}
	if len(stack) > 0 {
		return syntaxError(src, stack[len(stack)-1].pos, "unbalanced parenthesis")
	}
	return nil
}

func tokenize(src string) ([]token, error) {
	if err := checkBalance(src); err != nil {
		return nil, err
	}
	l := &lexer{src: src, runes: []rune(src)}
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
		if tok.kind == tEOF {
			return l.tokens, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.runes) && unicode.IsSpace(l.runes[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.runes) {
		return token{tEOF, "", l.pos}, nil
	}
	start := l.pos
	r := l.runes[l.pos]
	switch {
	case r == '"':
		var sb strings.Builder
		l.pos++
		for l.pos < len(l.runes) {
			c := l.runes[l.pos]
			if c == '\\' && l.pos+1 < len(l.runes) {
				sb.WriteRune(l.runes[l.pos+1])
				l.pos += 2
				continue
			}
			if c == '"' {
				l.pos++
				return token{tString, sb.String(), start}, nil
			}
			sb.WriteRune(c)
			l.pos++
		}
		return token{}, syntaxError(l.src, start, "unterminated quote")
	case unicode.IsDigit(r):
		kind := tInt
		for l.pos < len(l.runes) && (unicode.IsDigit(l.runes[l.pos]) || l.runes[l.pos] == '.') {
			if l.runes[l.pos] == '.' {
				if kind == tDouble {
					return token{}, syntaxError(l.src, l.pos, "malformed number")
				}
				kind = tDouble
			}
			l.pos++
		}
		return token{kind, string(l.runes[start:l.pos]), start}, nil
	case unicode.IsLetter(r) || r == '_':
		for l.pos < len(l.runes) && (unicode.IsLetter(l.runes[l.pos]) || unicode.IsDigit(l.runes[l.pos]) || l.runes[l.pos] == '_') {
			l.pos++
		}
		return token{tIdent, string(l.runes[start:l.pos]), start}, nil
	}
	l.pos++
	switch r {
	case '(':
		return token{tLParen, "(", start}, nil
	case ')':
		return token{tRParen, ")", start}, nil
	case '[':
		return token{tLBracket, "[", start}, nil
	case ']':
		return token{tRBracket, "]", start}, nil
	case ',':
		return token{tComma, ",", start}, nil
	case '=', '!', '<', '>', '&', '|':
		if l.pos < len(l.runes) {
			two := string([]rune{r, l.runes[l.pos]})
			if _, ok := binaryOps[two]; ok {
				l.pos++
				return token{tOp, two, start}, nil
			}
		}
		if r == '=' {
			return token{tOp, "==", start}, nil
		}
		return token{tOp, string(r), start}, nil
	case '+', '-', '*', '/', '%':
		return token{tOp, string(r), start}, nil
	}
	return token{}, syntaxError(l.src, start, "unexpected character "+strconv.QuoteRune(r))
}

type parser struct {
	src    string
	tokens []token
	i      int
}

// Parse parses a descriptor expression
func Parse(src string) (*Node, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, tokens: tokens}
	if p.peek().kind == tEOF {
		return nil, syntaxError(src, 0, "empty descriptor")
	}
	n, err := p.expr(1)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tEOF {
		return nil, p.unexpected(tok)
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.tokens[p.i]
}

func (p *parser) prev() token {
	if p.i == 0 {
		return token{kind: tEOF}
	}
	return p.tokens[p.i-1]
}

func (p *parser) advance() token {
	tok := p.tokens[p.i]
	if tok.kind != tEOF {
		p.i++
	}
	return tok
}

func (p *parser) unexpected(tok token) error {
	switch tok.kind {
	case tComma:
		return syntaxError(p.src, tok.pos, "misplaced comma")
	case tString:
		return syntaxError(p.src, tok.pos, "misplaced quote")
	case tEOF:
		return syntaxError(p.src, tok.pos, "unexpected end of descriptor")
	case tRParen, tRBracket:
		if p.prev().kind == tComma {
			return syntaxError(p.src, p.prev().pos, "misplaced comma")
		}
	}
	return syntaxError(p.src, tok.pos, "unexpected "+strconv.Quote(tok.text))
}

func (p *parser) expr(minPrec int) (*Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tOp {
			return left, nil
		}
		op, ok := binaryOps[tok.text]
		if !ok {
			return nil, p.unexpected(tok)
		}
		if op.prec < minPrec {
			return left, nil
		}
		p.advance()
		right, err := p.expr(op.prec + 1)
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: callNode, Name: op.fn, Args: []*Node{left, right}, Pos: tok.pos}
	}
}

func (p *parser) unary() (*Node, error) {
	tok := p.peek()
	if tok.kind == tOp && (tok.text == "-" || tok.text == "!") {
		p.advance()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		if tok.text == "!" {
			return &Node{Kind: callNode, Name: "Not", Args: []*Node{operand}, Pos: tok.pos}, nil
		}
		switch operand.Kind {
		case intNode:
			operand.Int = -operand.Int
			return operand, nil
		case doubleNode:
			operand.Double = -operand.Double
			return operand, nil
		}
		return &Node{Kind: callNode, Name: "Negate", Args: []*Node{operand}, Pos: tok.pos}, nil
	}
	return p.primary()
}

func (p *parser) primary() (*Node, error) {
	tok := p.advance()
	switch tok.kind {
	case tString:
		return &Node{Kind: stringNode, Str: tok.text, Pos: tok.pos}, nil
	case tInt:
		v, err := strconv.Atoi(tok.text)
		if err != nil {
			return nil, syntaxError(p.src, tok.pos, "malformed integer")
		}
		return &Node{Kind: intNode, Int: v, Pos: tok.pos}, nil
	case tDouble:
		v, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, syntaxError(p.src, tok.pos, "malformed number")
		}
		return &Node{Kind: doubleNode, Double: v, Pos: tok.pos}, nil
	case tIdent:
		switch tok.text {
		case "true", "false":
			return &Node{Kind: boolNode, Bool: tok.text == "true", Pos: tok.pos}, nil
		}
		if p.peek().kind == tLParen {
			p.advance()
			args, err := p.args(tRParen)
			if err != nil {
				return nil, err
			}
			return &Node{Kind: callNode, Name: tok.text, Args: args, Pos: tok.pos}, nil
		}
		if next := p.peek(); next.kind == tString {
			return nil, p.unexpected(next)
		}
		return &Node{Kind: identNode, Name: tok.text, Pos: tok.pos}, nil
	case tLParen:
		n, err := p.expr(1)
		if err != nil {
			return nil, err
		}
		if closing := p.advance(); closing.kind != tRParen {
			return nil, p.unexpected(closing)
		}
		return n, nil
	case tLBracket:
		return p.list(tok)
	}
	p.i--
	if tok.kind == tEOF {
		p.i = len(p.tokens) - 1
	}
	return nil, p.unexpected(tok)
}

// args parses a comma separated argument list up to the closing token
func (p *parser) args(closing tokenKind) ([]*Node, error) {
	var args []*Node
	if p.peek().kind == closing {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.expr(1)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		tok := p.advance()
		switch tok.kind {
		case tComma:
			continue
		case closing:
			return args, nil
		}
		p.i--
		return nil, p.unexpected(tok)
	}
}

// list parses [a, b, "c", 1]; bare words are string items
func (p *parser) list(open token) (*Node, error) {
	items, err := p.args(tRBracket)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		switch item.Kind {
		case identNode:
			item.Kind, item.Str = stringNode, item.Name
		case stringNode, intNode, doubleNode, boolNode:
		default:
			return nil, syntaxError(p.src, item.Pos, "list items must be literals")
		}
	}
	return &Node{Kind: listNode, Args: items, Pos: open.pos}, nil
}
