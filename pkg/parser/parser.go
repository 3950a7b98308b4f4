// Package parser turns .llt source text into compiled templates. The
// grammar is parsed by recursive descent with unlimited rewind, so every
// directive can be attempted and abandoned without separate lexing state.
// Each source file parses into a per-parse library; the templates it
// declares resolve each other through it when rendered.
package parser

import (
	"github.com/killallgit/llt/pkg/expr"
	"github.com/killallgit/llt/pkg/library"
	"github.com/killallgit/llt/pkg/metadata"
	"github.com/killallgit/llt/pkg/template"
	"github.com/killallgit/llt/pkg/value"
)

// Parser parses .llt template source.
type Parser struct{}

// New returns a parser for the default template language.
func New() *Parser { return &Parser{} }

// LanguageCode is the source-language code this parser registers under.
func (*Parser) LanguageCode() string { return library.DefaultLanguageCode }

func init() {
	library.RegisterParser(library.DefaultLanguageCode, New())
}

// Parse compiles every top-level template in source. Each template
// registers itself in a fresh per-parse library so @render can resolve
// siblings declared in the same source.
func (*Parser) Parse(source string) ([]template.Template, error) {
	p := &fileParse{parse: parse{s: newScanner(source)}, lib: library.New()}
	var out []template.Template
	for {
		if err := p.s.skipSpace(); err != nil {
			return nil, err
		}
		if p.s.eof() {
			break
		}
		t, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}
		if err := p.lib.Add(t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

type fileParse struct {
	parse
	lib *library.Library
}

func (p *fileParse) parseTopLevel() (template.Template, error) {
	if p.s.peek() != '@' {
		return nil, p.s.errorf(ErrUnexpectedToken, "expected a @template or @messages template declaration")
	}
	p.s.advance()
	switch {
	case p.s.word("messages"):
		if err := p.s.skipSpace(); err != nil {
			return nil, err
		}
		if !p.s.word("template") {
			return nil, p.s.errorf(ErrUnexpectedToken, "expected 'template' after '@messages'")
		}
		return p.parseMessagesTemplate()
	case p.s.word("template"):
		return p.parseTextTemplate()
	default:
		return nil, p.s.errorf(ErrUnexpectedToken, "expected a @template or @messages template declaration")
	}
}

func (p *fileParse) parseTextTemplate() (template.Template, error) {
	coll, err := p.parseTemplateHeader()
	if err != nil {
		return nil, err
	}
	body, _, err := p.parseBracedText(false)
	if err != nil {
		return nil, err
	}
	t := template.NewPromptTemplate(template.RefineText(body), coll)
	t.SetLibrary(p.lib)
	return t, nil
}

func (p *fileParse) parseMessagesTemplate() (template.Template, error) {
	coll, err := p.parseTemplateHeader()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBracedMessages()
	if err != nil {
		return nil, err
	}
	t := template.NewMessagesTemplate(template.RefineMessages(body), coll)
	t.SetLibrary(p.lib)
	return t, nil
}

// parseTemplateHeader consumes the optional name, the opening brace, and
// an optional @metadata block, returning the metadata collection.
func (p *fileParse) parseTemplateHeader() (*metadata.Collection, error) {
	if err := p.s.skipSpace(); err != nil {
		return nil, err
	}
	name := p.s.ident()
	if err := p.s.skipSpace(); err != nil {
		return nil, err
	}
	if p.s.eof() || p.s.peek() != '{' {
		return nil, p.s.errorf(ErrUnexpectedToken, "expected '{' to open the template body")
	}
	p.s.advance()

	coll := metadata.NewCollection()
	if name != "" {
		coll.Add(metadata.Identifier(name))
	}
	meta, err := p.maybeMetadataBlock()
	if err != nil {
		return nil, err
	}
	for _, m := range meta {
		coll.Add(m)
	}
	return coll, nil
}

// maybeMetadataBlock parses `@metadata { key: const, ... }` when it opens
// the body; otherwise the scanner rewinds and the body parses untouched.
func (p *fileParse) maybeMetadataBlock() ([]metadata.Metadata, error) {
	m := p.s.mark()
	if err := p.s.skipSpace(); err != nil {
		p.s.reset(m)
		return nil, nil
	}
	if p.s.peek() != '@' {
		p.s.reset(m)
		return nil, nil
	}
	p.s.advance()
	if !p.s.word("metadata") {
		p.s.reset(m)
		return nil, nil
	}
	if !p.acceptOp("{", "") {
		return nil, p.s.errorf(ErrUnexpectedToken, "expected '{' after '@metadata'")
	}
	var out []metadata.Metadata
	for {
		if err := p.s.skipSpace(); err != nil {
			return nil, err
		}
		if p.s.eof() {
			return nil, p.s.errorf(ErrUnexpectedEOF, "expected '}' to close the metadata block")
		}
		if p.s.peek() == '}' {
			p.s.advance()
			return out, nil
		}
		key := p.s.ident()
		if key == "" {
			return nil, p.s.errorf(ErrUnexpectedToken, "expected a metadata key")
		}
		if !p.acceptOp(":", "") {
			return nil, p.s.errorf(ErrUnexpectedToken, "expected ':' after metadata key %q", key)
		}
		v, err := p.parseConst()
		if err != nil {
			return nil, err
		}
		if m := metadataFor(key, v); m != nil {
			out = append(out, m)
		}
		p.acceptOp(",", "")
	}
}

// metadataFor maps the recognised metadata keys onto their typed values.
// Unknown keys are ignored.
func metadataFor(key string, v value.Value) metadata.Metadata {
	s, err := value.Format(v, "")
	if err != nil {
		return nil
	}
	switch key {
	case "lang":
		return metadata.NewLanguage(s)
	case "model":
		return metadata.TargetModel(s)
	case "model_family":
		return metadata.TargetModelFamily(s)
	default:
		return nil
	}
}

// parseBracedText parses text statements up to and including the closing
// brace. With captureRole set (inside @message blocks) an `@role expr`
// directive is accepted once and returned separately.
func (p *fileParse) parseBracedText(captureRole bool) (*template.SequentialNode, expr.Node, error) {
	var children []template.TextNode
	var plain []byte
	var roleExpr expr.Node

	flush := func() {
		if len(plain) > 0 {
			children = append(children, &template.PlainNode{Text: string(plain)})
			plain = plain[:0]
		}
	}

	for {
		if p.s.eof() {
			return nil, nil, p.s.errorf(ErrUnexpectedEOF, "expected '}' to close the block")
		}
		switch c := p.s.peek(); c {
		case '}':
			p.s.advance()
			flush()
			return &template.SequentialNode{Children: children}, roleExpr, nil
		case '{':
			return nil, nil, p.s.errorf(ErrUnexpectedToken, "'{' must be escaped inside template text")
		case '@':
			switch {
			case p.s.peekAt(1) == '@':
				p.s.advanceBy(2)
				plain = append(plain, '@')
			case p.s.peekAt(1) == '/' && p.s.peekAt(2) == '/':
				flush()
				for !p.s.eof() && p.s.peek() != '\n' {
					p.s.advance()
				}
			case p.s.peekAt(1) == '*':
				flush()
				if err := p.s.skipBlockComment(); err != nil {
					return nil, nil, err
				}
			default:
				flush()
				node, role, err := p.parseTextDirective(captureRole && roleExpr == nil)
				if err != nil {
					return nil, nil, err
				}
				if role != nil {
					roleExpr = role
					continue
				}
				children = append(children, node)
			}
		default:
			plain = append(plain, c)
			p.s.advance()
		}
	}
}

// parseTextDirective parses one @-directive in text position. The cursor
// sits on the '@'. When allowRole is set a `@role expr` directive returns
// through the second result instead of producing a node.
func (p *fileParse) parseTextDirective(allowRole bool) (template.TextNode, expr.Node, error) {
	p.s.advance()
	switch {
	case p.s.word("if"):
		node, err := p.parseTextIf()
		return node, nil, err
	case p.s.word("foreach"):
		node, err := p.parseTextForeach()
		return node, nil, err
	case p.s.word("let"):
		node, err := p.parseLet()
		return node, nil, err
	case p.s.word("render"):
		name, with, err := p.parseRenderClause()
		if err != nil {
			return nil, nil, err
		}
		return &template.RenderTextNode{Name: name, With: with}, nil, nil
	case p.s.word("while"):
		return nil, nil, p.s.errorf(ErrUnexpectedToken, "'while' is reserved and not implemented")
	}
	if allowRole {
		m := p.s.mark()
		if p.s.word("role") {
			role, err := p.parseExpr()
			if err != nil {
				return nil, nil, err
			}
			return nil, role, nil
		}
		p.s.reset(m)
	}
	if node, ok, err := p.maybeAssignment(); err != nil {
		return nil, nil, err
	} else if ok {
		return node, nil, nil
	}
	node, err := p.parseInlineExpr()
	return node, nil, err
}

// maybeAssignment recognises `@name = expr` (rebinding an existing
// variable); `==` stays an expression.
func (p *fileParse) maybeAssignment() (*template.VarAssignNode, bool, error) {
	m := p.s.mark()
	name := p.s.ident()
	if name == "" {
		p.s.reset(m)
		return nil, false, nil
	}
	p.s.skipHSpace()
	if p.s.peek() != '=' || p.s.peekAt(1) == '=' {
		p.s.reset(m)
		return nil, false, nil
	}
	p.s.advance()
	e, err := p.parseExpr()
	if err != nil {
		return nil, false, err
	}
	return &template.VarAssignNode{Name: name, Expr: e, Create: false}, true, nil
}

func (p *fileParse) parseLet() (*template.VarAssignNode, error) {
	if err := p.s.skipSpace(); err != nil {
		return nil, err
	}
	name := p.s.ident()
	if name == "" {
		return nil, p.s.errorf(ErrUnexpectedToken, "expected a variable name after '@let'")
	}
	if !p.acceptOp("=", "=") {
		return nil, p.s.errorf(ErrUnexpectedToken, "expected '=' in let binding for %q", name)
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &template.VarAssignNode{Name: name, Expr: e, Create: true}, nil
}

func (p *fileParse) parseTextIf() (*template.IfNode, error) {
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.acceptOp("{", "") {
		return nil, p.s.errorf(ErrUnexpectedToken, "expected '{' after the if condition")
	}
	then, _, err := p.parseBracedText(false)
	if err != nil {
		return nil, err
	}
	node := &template.IfNode{Cond: cond, Then: then}
	m := p.s.mark()
	if err := p.s.skipSpace(); err == nil && p.s.word("else") {
		if err := p.s.skipSpace(); err != nil {
			return nil, err
		}
		if p.s.peek() == '@' && p.s.peekAt(1) == 'i' {
			// tolerate `else @if` as well as `else if`
			p.s.advance()
		}
		if p.s.word("if") {
			chained, err := p.parseTextIf()
			if err != nil {
				return nil, err
			}
			node.Else = chained
			return node, nil
		}
		if p.s.peek() != '{' {
			return nil, p.s.errorf(ErrUnexpectedToken, "expected '{' or 'if' after 'else'")
		}
		p.s.advance()
		els, _, err := p.parseBracedText(false)
		if err != nil {
			return nil, err
		}
		node.Else = els
		return node, nil
	}
	p.s.reset(m)
	return node, nil
}

func (p *fileParse) parseTextForeach() (*template.ForeachNode, error) {
	varName, src, err := p.parseForeachClause()
	if err != nil {
		return nil, err
	}
	body, _, err := p.parseBracedText(false)
	if err != nil {
		return nil, err
	}
	return &template.ForeachNode{Var: varName, Source: src, Body: body}, nil
}

// parseForeachClause parses `name in expr {` up to and including the brace.
func (p *fileParse) parseForeachClause() (string, expr.Node, error) {
	if err := p.s.skipSpace(); err != nil {
		return "", nil, err
	}
	varName := p.s.ident()
	if varName == "" {
		return "", nil, p.s.errorf(ErrUnexpectedToken, "expected a loop variable after '@foreach'")
	}
	if err := p.s.skipSpace(); err != nil {
		return "", nil, err
	}
	if !p.s.word("in") {
		return "", nil, p.s.errorf(ErrUnexpectedToken, "expected 'in' after the loop variable")
	}
	src, err := p.parseExpr()
	if err != nil {
		return "", nil, err
	}
	if !p.acceptOp("{", "") {
		return "", nil, p.s.errorf(ErrUnexpectedToken, "expected '{' after the foreach source")
	}
	return varName, src, nil
}

// parseRenderClause parses `name-expr [with ctx-expr]`. The with clause
// must start on the same line so prose beginning with "with" on the next
// line stays text.
func (p *fileParse) parseRenderClause() (expr.Node, expr.Node, error) {
	name, err := p.parseExpr()
	if err != nil {
		return nil, nil, err
	}
	m := p.s.mark()
	p.s.skipHSpace()
	if !p.s.word("with") {
		p.s.reset(m)
		return name, nil, nil
	}
	with, err := p.parseExpr()
	if err != nil {
		return nil, nil, err
	}
	return name, with, nil
}

// parseInlineExpr parses the implicit expression form that follows '@' in
// plain text: a primary with a tight postfix chain, so `@ctx.name!` keeps
// the '!' as text. Parenthesised `@(...)` admits any expression. An
// optional `:format` suffix follows the chain.
func (p *fileParse) parseInlineExpr() (template.TextNode, error) {
	var node expr.Node
	if p.s.peek() == '(' {
		p.s.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.acceptOp(")", "") {
			return nil, p.s.errorf(ErrUnexpectedToken, "expected ')' to close the expression")
		}
		node = e
	} else if p.s.word("ctx") {
		node = &expr.ContextRef{}
	} else {
		name := p.s.ident()
		if name == "" {
			return nil, p.s.errorf(ErrUnexpectedToken, "expected an expression after '@'")
		}
		if p.s.peek() == '(' {
			p.s.advance()
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			node = &expr.MethodCall{Target: &expr.ContextRef{}, Name: name, Args: args}
		} else {
			node = &expr.Property{Target: &expr.ContextRef{}, Name: name}
		}
	}
	node, err := p.parseTightChain(node)
	if err != nil {
		return nil, err
	}
	format, err := p.parseFormatSuffix()
	if err != nil {
		return nil, err
	}
	return &template.ExprNode{Expr: node, Format: format}, nil
}

// parseTightChain extends an inline expression with `.name`, `.name(...)`
// and `[...]` links written without whitespace.
func (p *fileParse) parseTightChain(node expr.Node) (expr.Node, error) {
	for {
		switch {
		case p.s.peek() == '.' && isIdentStart(p.s.peekAt(1)):
			p.s.advance()
			name := p.s.ident()
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
		case p.s.peek() == '[':
			p.s.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if !p.acceptOp("]", "") {
				return nil, p.s.errorf(ErrUnexpectedToken, "expected ']' to close the index")
			}
			node = &expr.Index{Target: node, Idx: idx}
		default:
			return node, nil
		}
	}
}

// parseFormatSuffix reads `:format` after an inline expression: either a
// quoted string or a bare run of format characters. A trailing '.' or ','
// is treated as prose punctuation, not format.
func (p *fileParse) parseFormatSuffix() (string, error) {
	if p.s.peek() != ':' {
		return "", nil
	}
	m := p.s.mark()
	p.s.advance()
	if p.s.peek() == '\'' {
		f, err := p.s.stringLiteral()
		if err != nil {
			return "", err
		}
		return f, nil
	}
	start := p.s.pos
	for !p.s.eof() && isFormatChar(p.s.peek()) {
		p.s.advance()
	}
	raw := p.s.src[start:p.s.pos]
	trimmed := raw
	for len(trimmed) > 0 && (trimmed[len(trimmed)-1] == '.' || trimmed[len(trimmed)-1] == ',') {
		trimmed = trimmed[:len(trimmed)-1]
	}
	if trimmed == "" {
		p.s.reset(m)
		return "", nil
	}
	p.s.reset(m)
	p.s.advanceBy(1 + len(trimmed))
	return trimmed, nil
}

func isFormatChar(c byte) bool {
	return isIdentChar(c) || c == '#' || c == '.' || c == ',' || c == '/'
}

// parseBracedMessages parses message statements up to and including the
// closing brace. Only directives and whitespace may appear between
// entries.
func (p *fileParse) parseBracedMessages() (*template.MessagesSequentialNode, error) {
	var children []template.MessagesNode
	for {
		if err := p.s.skipSpace(); err != nil {
			return nil, err
		}
		if p.s.eof() {
			return nil, p.s.errorf(ErrUnexpectedEOF, "expected '}' to close the messages block")
		}
		if p.s.peek() == '}' {
			p.s.advance()
			return &template.MessagesSequentialNode{Children: children}, nil
		}
		if p.s.peek() != '@' {
			return nil, p.s.errorf(ErrUnexpectedToken, "plain text is not allowed between messages; expected a directive")
		}
		node, err := p.parseMessagesDirective()
		if err != nil {
			return nil, err
		}
		children = append(children, node)
	}
}

func (p *fileParse) parseMessagesDirective() (template.MessagesNode, error) {
	p.s.advance()
	switch {
	case p.s.word("system"):
		return p.parseRoleMessage("system")
	case p.s.word("user"):
		return p.parseRoleMessage("user")
	case p.s.word("assistant"):
		return p.parseRoleMessage("assistant")
	case p.s.word("tool"):
		return p.parseRoleMessage("tool")
	case p.s.word("message"):
		if !p.acceptOp("{", "") {
			return nil, p.s.errorf(ErrUnexpectedToken, "expected '{' after '@message'")
		}
		body, role, err := p.parseBracedText(true)
		if err != nil {
			return nil, err
		}
		if role == nil {
			return nil, p.s.errorf(ErrUnexpectedToken, "a @message block needs an '@role' directive")
		}
		return &template.EntryNode{Role: role, Body: body}, nil
	case p.s.word("if"):
		return p.parseMessagesIf()
	case p.s.word("foreach"):
		return p.parseMessagesForeach()
	case p.s.word("render"):
		name, with, err := p.parseRenderClause()
		if err != nil {
			return nil, err
		}
		return &template.RenderMessagesNode{Name: name, With: with}, nil
	case p.s.word("let"):
		return p.parseLet()
	case p.s.word("while"):
		return nil, p.s.errorf(ErrUnexpectedToken, "'while' is reserved and not implemented")
	}
	if node, ok, err := p.maybeAssignment(); err != nil {
		return nil, err
	} else if ok {
		return node, nil
	}
	return nil, p.s.errorf(ErrUnexpectedToken, "expected a message entry or directive")
}

// parseRoleMessage parses `@system message { ... }` and friends; the role
// keyword is already consumed.
func (p *fileParse) parseRoleMessage(role string) (template.MessagesNode, error) {
	if err := p.s.skipSpace(); err != nil {
		return nil, err
	}
	if !p.s.word("message") {
		return nil, p.s.errorf(ErrUnexpectedToken, "expected 'message' after the role keyword")
	}
	if !p.acceptOp("{", "") {
		return nil, p.s.errorf(ErrUnexpectedToken, "expected '{' to open the message body")
	}
	body, _, err := p.parseBracedText(false)
	if err != nil {
		return nil, err
	}
	return &template.EntryNode{
		Role: &expr.Constant{Value: value.StringValue(role)},
		Body: body,
	}, nil
}

func (p *fileParse) parseMessagesIf() (*template.MessagesIfNode, error) {
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.acceptOp("{", "") {
		return nil, p.s.errorf(ErrUnexpectedToken, "expected '{' after the if condition")
	}
	then, err := p.parseBracedMessages()
	if err != nil {
		return nil, err
	}
	node := &template.MessagesIfNode{Cond: cond, Then: then}
	m := p.s.mark()
	if err := p.s.skipSpace(); err == nil && p.s.word("else") {
		if err := p.s.skipSpace(); err != nil {
			return nil, err
		}
		if p.s.peek() == '@' && p.s.peekAt(1) == 'i' {
			p.s.advance()
		}
		if p.s.word("if") {
			chained, err := p.parseMessagesIf()
			if err != nil {
				return nil, err
			}
			node.Else = chained
			return node, nil
		}
		if p.s.peek() != '{' {
			return nil, p.s.errorf(ErrUnexpectedToken, "expected '{' or 'if' after 'else'")
		}
		p.s.advance()
		els, err := p.parseBracedMessages()
		if err != nil {
			return nil, err
		}
		node.Else = els
		return node, nil
	}
	p.s.reset(m)
	return node, nil
}

func (p *fileParse) parseMessagesForeach() (*template.MessagesForeachNode, error) {
	varName, src, err := p.parseForeachClause()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBracedMessages()
	if err != nil {
		return nil, err
	}
	return &template.MessagesForeachNode{Var: varName, Source: src, Body: body}, nil
}
