package template

import (
	"strings"

	"github.com/killallgit/llt/pkg/expr"
	"github.com/killallgit/llt/pkg/metadata"
	"github.com/killallgit/llt/pkg/value"
)

// TextNode is a node of a text template. RenderText produces the node's
// output against the given accessor. Renderable distinguishes output
// producers from pure bindings; the sequential renderer uses it only
// implicitly, through the empty output a binding returns.
type TextNode interface {
	RenderText(ctx *Context) (string, error)
	Renderable() bool
}

// PlainNode is literal text.
type PlainNode struct {
	Text string
}

func (n *PlainNode) RenderText(*Context) (string, error) { return n.Text, nil }
func (*PlainNode) Renderable() bool                      { return true }

// ExprNode emits the formatted value of an expression.
type ExprNode struct {
	Expr   expr.Node
	Format string
}

func (n *ExprNode) RenderText(ctx *Context) (string, error) {
	v, err := n.Expr.Eval(ctx)
	if err != nil {
		return "", err
	}
	return value.Format(v, n.Format)
}

func (*ExprNode) Renderable() bool { return true }

// IfNode renders one of two branches inside a fresh frame. Else may be nil,
// or another IfNode for an else-if chain.
type IfNode struct {
	Cond expr.Node
	Then TextNode
	Else TextNode
}

func (n *IfNode) RenderText(ctx *Context) (string, error) {
	cond, err := n.Cond.Eval(ctx)
	if err != nil {
		return "", err
	}
	branch := n.Then
	if !cond.Truthy() {
		branch = n.Else
	}
	if branch == nil {
		return "", nil
	}
	if err := ctx.PushFrame(); err != nil {
		return "", err
	}
	out, err := branch.RenderText(ctx)
	if perr := ctx.PopFrame(); err == nil {
		err = perr
	}
	if err != nil {
		return "", err
	}
	// An else-if chain renders through the nested IfNode, which applies
	// its own block normalisation.
	if _, chained := branch.(*IfNode); chained {
		return out, nil
	}
	return blockOutput(out), nil
}

func (*IfNode) Renderable() bool { return true }

// ForeachNode iterates the source expression, binding Var in a single frame
// that spans the whole loop.
type ForeachNode struct {
	Var    string
	Source expr.Node
	Body   TextNode
}

func (n *ForeachNode) RenderText(ctx *Context) (string, error) {
	src, err := n.Source.Eval(ctx)
	if err != nil {
		return "", err
	}
	items, err := value.Iterate(src)
	if err != nil {
		return "", err
	}
	if err := ctx.PushFrame(); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, item := range items {
		ctx.Declare(n.Var, item)
		out, err := n.Body.RenderText(ctx)
		if err != nil {
			ctx.PopFrame()
			return "", err
		}
		b.WriteString(blockOutput(out))
	}
	if err := ctx.PopFrame(); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (*ForeachNode) Renderable() bool { return true }

// RenderTextNode renders another template in place. The target must be a
// text or plaintext template.
type RenderTextNode struct {
	Name expr.Node
	With expr.Node
}

func (n *RenderTextNode) RenderText(ctx *Context) (string, error) {
	target, err := resolveRenderTarget(ctx, n.Name)
	if err != nil {
		return "", err
	}
	switch t := target.(type) {
	case *PlaintextTemplate:
		return t.Content(), nil
	case *PromptTemplate:
		child, err := renderContext(ctx, n.With, t.meta, t.lib)
		if err != nil {
			return "", err
		}
		return t.renderWith(child)
	default:
		return "", value.NewRuntimeError(value.ErrTemplateKindMismatch,
			"expected a text template, found %s", target.TemplateKind())
	}
}

func (*RenderTextNode) Renderable() bool { return true }

// VarAssignNode binds a variable. Create writes the top frame; rebinding
// writes the nearest owning frame and fails when none owns the name. The
// node renders nothing and participates in both node families.
type VarAssignNode struct {
	Name   string
	Expr   expr.Node
	Create bool
}

func (n *VarAssignNode) assign(ctx *Context) error {
	v, err := n.Expr.Eval(ctx)
	if err != nil {
		return err
	}
	if n.Create {
		ctx.Declare(n.Name, v)
		return nil
	}
	return ctx.Rebind(n.Name, v)
}

func (n *VarAssignNode) RenderText(ctx *Context) (string, error) {
	return "", n.assign(ctx)
}

func (*VarAssignNode) Renderable() bool { return false }

// SequentialNode concatenates child outputs with the newline stitching that
// makes vanished lines (bindings, comment-only lines) leave no blank line
// behind: when a child renders empty, either the newline the accumulator
// ends with or the next child's leading newline is dropped, never both.
type SequentialNode struct {
	Children []TextNode
}

func (n *SequentialNode) RenderText(ctx *Context) (string, error) {
	var acc strings.Builder
	suppress := false
	for _, child := range n.Children {
		out, err := child.RenderText(ctx)
		if err != nil {
			return "", err
		}
		if out == "" {
			if tail, ok := stripTrailingNewline(acc.String()); ok {
				acc.Reset()
				acc.WriteString(tail)
			} else {
				suppress = true
			}
			continue
		}
		if suppress {
			out = dropLeadingNewline(out)
			suppress = false
			if out == "" {
				continue
			}
		}
		acc.WriteString(out)
	}
	return acc.String(), nil
}

func (*SequentialNode) Renderable() bool { return true }

// blockOutput normalises a brace-delimited block's rendering: non-empty
// output loses trailing whitespace and gains a single terminating newline,
// so statement-per-line sources come out line-per-output and nesting stays
// idempotent.
func blockOutput(s string) string {
	trimmed := strings.TrimRight(s, " \t\r\n")
	if trimmed == "" {
		return ""
	}
	return trimmed + "\n"
}

func stripTrailingNewline(s string) (string, bool) {
	if strings.HasSuffix(s, "\n") {
		s = s[:len(s)-1]
		s = strings.TrimSuffix(s, "\r")
		return s, true
	}
	return s, false
}

func dropLeadingNewline(s string) string {
	if strings.HasPrefix(s, "\r\n") {
		return s[2:]
	}
	if strings.HasPrefix(s, "\n") {
		return s[1:]
	}
	return s
}

// resolveRenderTarget evaluates a @render name expression and looks the
// template up in the accessor's library, then the shared library.
func resolveRenderTarget(ctx *Context, nameExpr expr.Node) (Template, error) {
	nv, err := nameExpr.Eval(ctx)
	if err != nil {
		return nil, err
	}
	name, err := value.Format(nv, "")
	if err != nil {
		return nil, err
	}
	if lib := ctx.Library(); lib != nil {
		if t, ok := lib.ResolveTemplate(name); ok {
			return t, nil
		}
	}
	if t, ok := sharedLookup(name); ok {
		return t, nil
	}
	return nil, value.NewRuntimeError(value.ErrTemplateNotFound, "template %q not found", name)
}

// renderContext picks the accessor a rendered template runs under: the
// current one, or a fresh accessor rooted at the evaluated with-expression.
func renderContext(ctx *Context, with expr.Node, meta *metadata.Collection, lib Resolver) (*Context, error) {
	if with == nil {
		return ctx, nil
	}
	root, err := with.Eval(ctx)
	if err != nil {
		return nil, err
	}
	return ctx.forRoot(root, meta, lib), nil
}
