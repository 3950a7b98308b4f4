package parser

import (
	"strconv"
	"strings"

	"github.com/killallgit/llt/pkg/expr"
	"github.com/killallgit/llt/pkg/value"
)

// parse carries the scanner through one source file.
type parse struct {
	s *scanner
}

// acceptOp consumes op when it is the next token, skipping whitespace and
// comments first. notFollowedBy guards against consuming a prefix of a
// longer operator ("=" out of "=="). On no match the scanner rewinds.
func (p *parse) acceptOp(op string, notFollowedBy string) bool {
	m := p.s.mark()
	if err := p.s.skipSpace(); err != nil {
		p.s.reset(m)
		return false
	}
	if !p.s.hasPrefix(op) {
		p.s.reset(m)
		return false
	}
	if notFollowedBy != "" {
		next := p.s.peekAt(len(op))
		if next != 0 && strings.IndexByte(notFollowedBy, next) >= 0 {
			p.s.reset(m)
			return false
		}
	}
	p.s.advanceBy(len(op))
	return true
}

// parseExpr parses a full expression: the complete precedence tower from
// the ternary down.
func (p *parse) parseExpr() (expr.Node, error) {
	return p.parseTernary()
}

func (p *parse) parseTernary() (expr.Node, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.acceptOp("?", "") {
		return cond, nil
	}
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if !p.acceptOp(":", "") {
		return nil, p.s.errorf(ErrUnexpectedToken, "expected ':' in ternary expression")
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &expr.Ternary{Cond: cond, Then: then, Else: els}, nil
}

func (p *parse) parseOr() (expr.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptOp("||", "") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &expr.Binary{Op: value.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parse) parseAnd() (expr.Node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.acceptOp("&&", "") {
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &expr.Binary{Op: value.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parse) parseEquality() (expr.Node, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for {
		var op value.BinaryOp
		switch {
		case p.acceptOp("==", ""):
			op = value.OpEq
		case p.acceptOp("!=", ""):
			op = value.OpNotEq
		default:
			return left, nil
		}
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &expr.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parse) parseRelational() (expr.Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		var op value.BinaryOp
		switch {
		case p.acceptOp("<=", ""):
			op = value.OpLessEq
		case p.acceptOp(">=", ""):
			op = value.OpGreaterEq
		case p.acceptOp("<", "="):
			op = value.OpLess
		case p.acceptOp(">", "="):
			op = value.OpGreater
		default:
			return left, nil
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &expr.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parse) parseAdditive() (expr.Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op value.BinaryOp
		switch {
		case p.acceptOp("+", ""):
			op = value.OpAdd
		case p.acceptOp("-", ""):
			op = value.OpSub
		default:
			return left, nil
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &expr.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parse) parseMultiplicative() (expr.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op value.BinaryOp
		switch {
		case p.acceptOp("*", ""):
			op = value.OpMul
		case p.acceptOp("/", ""):
			op = value.OpDiv
		case p.acceptOp("%", ""):
			op = value.OpMod
		default:
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &expr.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parse) parseUnary() (expr.Node, error) {
	var op value.UnaryOp
	switch {
	case p.acceptOp("!", "="):
		op = value.OpNot
	case p.acceptOp("-", ""):
		op = value.OpNegate
	case p.acceptOp("+", ""):
		op = value.OpPlus
	default:
		return p.parsePostfix()
	}
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &expr.Unary{Op: op, Operand: operand}, nil
}

func (p *parse) parsePostfix() (expr.Node, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.acceptOp(".", ""):
			if err := p.s.skipSpace(); err != nil {
				return nil, err
			}
			name := p.s.ident()
			if name == "" {
				return nil, p.s.errorf(ErrUnexpectedToken, "expected identifier after '.'")
			}
			if p.s.peek() == '(' {
				p.s.advance()
				args, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				node = &expr.MethodCall{Target: node, Name: name, Args: args}
			} else {
				node = &expr.Property{Target: node, Name: name}
			}
		case p.acceptOp("[", ""):
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if !p.acceptOp("]", "") {
				return nil, p.s.errorf(ErrUnexpectedToken, "expected ']' to close index expression")
			}
			node = &expr.Index{Target: node, Idx: idx}
		default:
			return node, nil
		}
	}
}

func (p *parse) parsePrimary() (expr.Node, error) {
	if err := p.s.skipSpace(); err != nil {
		return nil, err
	}
	if p.s.eof() {
		return nil, p.s.errorf(ErrUnexpectedEOF, "expected an expression")
	}
	c := p.s.peek()
	switch {
	case c == '\'':
		str, err := p.s.stringLiteral()
		if err != nil {
			return nil, err
		}
		return &expr.Constant{Value: value.StringValue(str)}, nil
	case isDigit(c):
		n, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		return &expr.Constant{Value: value.NumberValue(n)}, nil
	case c == '(':
		p.s.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.acceptOp(")", "") {
			return nil, p.s.errorf(ErrUnexpectedToken, "expected ')' to close expression")
		}
		return e, nil
	case c == '[':
		v, err := p.parseConstArray()
		if err != nil {
			return nil, err
		}
		return &expr.Constant{Value: v}, nil
	case c == '{':
		v, err := p.parseConstObject()
		if err != nil {
			return nil, err
		}
		return &expr.Constant{Value: v}, nil
	case strings.IndexByte("&|=<>", c) >= 0:
		return nil, p.s.errorf(ErrUnknownOperator, "operator %q is not valid here", string(c))
	}
	switch {
	case p.s.word("true"):
		return &expr.Constant{Value: value.BoolValue(true)}, nil
	case p.s.word("false"):
		return &expr.Constant{Value: value.BoolValue(false)}, nil
	case p.s.word("null"):
		return &expr.Constant{Value: value.Null}, nil
	case p.s.word("ctx"):
		return &expr.ContextRef{}, nil
	}
	if name := p.s.ident(); name != "" {
		// A bare identifier is sugar for ctx.identifier; a bare call is
		// sugar for a function-set call on ctx.
		if p.s.peek() == '(' {
			p.s.advance()
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &expr.MethodCall{Target: &expr.ContextRef{}, Name: name, Args: args}, nil
		}
		return &expr.Property{Target: &expr.ContextRef{}, Name: name}, nil
	}
	return nil, p.s.errorf(ErrUnexpectedToken, "expected an expression, found %q", string(c))
}

// parseArgs parses a comma-separated argument list; the opening parenthesis
// is already consumed.
func (p *parse) parseArgs() ([]expr.Node, error) {
	if p.acceptOp(")", "") {
		return nil, nil
	}
	var args []expr.Node
	for {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.acceptOp(",", "") {
			continue
		}
		if p.acceptOp(")", "") {
			return args, nil
		}
		return nil, p.s.errorf(ErrUnexpectedToken, "expected ',' or ')' in argument list")
	}
}

// parseNumber consumes a decimal float literal.
func (p *parse) parseNumber() (float64, error) {
	start := p.s.pos
	for !p.s.eof() && isDigit(p.s.peek()) {
		p.s.advance()
	}
	if p.s.peek() == '.' && isDigit(p.s.peekAt(1)) {
		p.s.advance()
		for !p.s.eof() && isDigit(p.s.peek()) {
			p.s.advance()
		}
	}
	text := p.s.src[start:p.s.pos]
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, p.s.errorf(ErrUnexpectedToken, "malformed number literal %q", text)
	}
	return n, nil
}

// parseConst parses a constant: literal, constant array, or constant
// object. Used for metadata values and bracketed literals.
func (p *parse) parseConst() (value.Value, error) {
	if err := p.s.skipSpace(); err != nil {
		return nil, err
	}
	if p.s.eof() {
		return nil, p.s.errorf(ErrUnexpectedEOF, "expected a constant")
	}
	c := p.s.peek()
	switch {
	case c == '\'':
		str, err := p.s.stringLiteral()
		if err != nil {
			return nil, err
		}
		return value.StringValue(str), nil
	case isDigit(c):
		n, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		return value.NumberValue(n), nil
	case c == '-' && isDigit(p.s.peekAt(1)):
		p.s.advance()
		n, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		return value.NumberValue(-n), nil
	case c == '[':
		return p.parseConstArray()
	case c == '{':
		return p.parseConstObject()
	}
	switch {
	case p.s.word("true"):
		return value.BoolValue(true), nil
	case p.s.word("false"):
		return value.BoolValue(false), nil
	case p.s.word("null"):
		return value.Null, nil
	}
	return nil, p.s.errorf(ErrUnexpectedToken, "expected a constant, found %q", string(c))
}

// parseConstArray parses `[ c, c, ... ]` with an optional trailing comma.
func (p *parse) parseConstArray() (value.Value, error) {
	p.s.advance()
	arr := value.NewArray()
	for {
		if err := p.s.skipSpace(); err != nil {
			return nil, err
		}
		if p.s.eof() {
			return nil, p.s.errorf(ErrUnexpectedEOF, "expected ']' to close array literal")
		}
		if p.s.peek() == ']' {
			p.s.advance()
			return arr, nil
		}
		v, err := p.parseConst()
		if err != nil {
			return nil, err
		}
		arr.Elems = append(arr.Elems, v)
		if !p.acceptOp(",", "") {
			if !p.acceptOp("]", "") {
				return nil, p.s.errorf(ErrUnexpectedToken, "expected ',' or ']' in array literal")
			}
			return arr, nil
		}
	}
}

// parseConstObject parses `{ ident: c, ... }` with bare identifier keys and
// an optional trailing comma.
func (p *parse) parseConstObject() (value.Value, error) {
	p.s.advance()
	dict := value.NewDict()
	for {
		if err := p.s.skipSpace(); err != nil {
			return nil, err
		}
		if p.s.eof() {
			return nil, p.s.errorf(ErrUnexpectedEOF, "expected '}' to close object literal")
		}
		if p.s.peek() == '}' {
			p.s.advance()
			return dict, nil
		}
		key := p.s.ident()
		if key == "" {
			return nil, p.s.errorf(ErrUnexpectedToken, "expected identifier key in object literal")
		}
		if !p.acceptOp(":", "") {
			return nil, p.s.errorf(ErrUnexpectedToken, "expected ':' after object key %q", key)
		}
		v, err := p.parseConst()
		if err != nil {
			return nil, err
		}
		dict.Set(key, v)
		if !p.acceptOp(",", "") {
			if !p.acceptOp("}", "") {
				return nil, p.s.errorf(ErrUnexpectedToken, "expected ',' or '}' in object literal")
			}
			return dict, nil
		}
	}
}
