package template

import (
	"strings"

	"github.com/killallgit/llt/pkg/chat"
	"github.com/killallgit/llt/pkg/expr"
	"github.com/killallgit/llt/pkg/value"
)

// MessagesNode is a node of a messages template, producing a sequence of
// role-tagged entries.
type MessagesNode interface {
	RenderMessages(ctx *Context) ([]chat.Message, error)
	Renderable() bool
}

// EntryNode wraps a role expression around a text body and emits one
// message.
type EntryNode struct {
	Role expr.Node
	Body TextNode
}

func (n *EntryNode) RenderMessages(ctx *Context) ([]chat.Message, error) {
	rv, err := n.Role.Eval(ctx)
	if err != nil {
		return nil, err
	}
	role, err := value.Format(rv, "")
	if err != nil {
		return nil, err
	}
	switch role {
	case chat.RoleSystem, chat.RoleUser, chat.RoleAssistant:
	case chat.RoleTool:
		return nil, value.NewRuntimeError(value.ErrToolNotSupported, "role %q is reserved and cannot be rendered", role)
	default:
		return nil, value.NewRuntimeError(value.ErrInvalidRole, "role %q is not a valid message role", role)
	}
	text, err := n.Body.RenderText(ctx)
	if err != nil {
		return nil, err
	}
	return []chat.Message{{Role: role, Content: strings.TrimSpace(text)}}, nil
}

func (*EntryNode) Renderable() bool { return true }

// MessagesIfNode is the messages-family conditional.
type MessagesIfNode struct {
	Cond expr.Node
	Then MessagesNode
	Else MessagesNode
}

func (n *MessagesIfNode) RenderMessages(ctx *Context) ([]chat.Message, error) {
	cond, err := n.Cond.Eval(ctx)
	if err != nil {
		return nil, err
	}
	branch := n.Then
	if !cond.Truthy() {
		branch = n.Else
	}
	if branch == nil {
		return nil, nil
	}
	if err := ctx.PushFrame(); err != nil {
		return nil, err
	}
	msgs, err := branch.RenderMessages(ctx)
	if perr := ctx.PopFrame(); err == nil {
		err = perr
	}
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (*MessagesIfNode) Renderable() bool { return true }

// MessagesForeachNode iterates and concatenates the entries of each pass.
type MessagesForeachNode struct {
	Var    string
	Source expr.Node
	Body   MessagesNode
}

func (n *MessagesForeachNode) RenderMessages(ctx *Context) ([]chat.Message, error) {
	src, err := n.Source.Eval(ctx)
	if err != nil {
		return nil, err
	}
	items, err := value.Iterate(src)
	if err != nil {
		return nil, err
	}
	if err := ctx.PushFrame(); err != nil {
		return nil, err
	}
	var out []chat.Message
	for _, item := range items {
		ctx.Declare(n.Var, item)
		msgs, err := n.Body.RenderMessages(ctx)
		if err != nil {
			ctx.PopFrame()
			return nil, err
		}
		out = append(out, msgs...)
	}
	if err := ctx.PopFrame(); err != nil {
		return nil, err
	}
	return out, nil
}

func (*MessagesForeachNode) Renderable() bool { return true }

// RenderMessagesNode splices another messages template's entries in place.
type RenderMessagesNode struct {
	Name expr.Node
	With expr.Node
}

func (n *RenderMessagesNode) RenderMessages(ctx *Context) ([]chat.Message, error) {
	target, err := resolveRenderTarget(ctx, n.Name)
	if err != nil {
		return nil, err
	}
	mt, ok := target.(*MessagesTemplate)
	if !ok {
		return nil, value.NewRuntimeError(value.ErrTemplateKindMismatch,
			"expected a messages template, found %s", target.TemplateKind())
	}
	child, err := renderContext(ctx, n.With, mt.meta, mt.lib)
	if err != nil {
		return nil, err
	}
	return mt.renderWith(child)
}

func (*RenderMessagesNode) Renderable() bool { return true }

// RenderMessages lets a variable binding sit inside a messages sequence.
func (n *VarAssignNode) RenderMessages(ctx *Context) ([]chat.Message, error) {
	return nil, n.assign(ctx)
}

// MessagesSequentialNode concatenates child entry sequences in order.
type MessagesSequentialNode struct {
	Children []MessagesNode
}

func (n *MessagesSequentialNode) RenderMessages(ctx *Context) ([]chat.Message, error) {
	var out []chat.Message
	for _, child := range n.Children {
		msgs, err := child.RenderMessages(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, msgs...)
	}
	return out, nil
}

func (*MessagesSequentialNode) Renderable() bool { return true }
