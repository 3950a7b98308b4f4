// Package expr holds the expression sub-language: a small AST evaluated
// against a context accessor. Nodes are built by the parser, owned by the
// enclosing template, and immutable after construction.
package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/killallgit/llt/pkg/value"
)

// Node is a single expression-tree node. String returns the canonical
// source form; reparsing it yields an equivalent tree.
type Node interface {
	Eval(ctx value.Value) (value.Value, error)
	String() string
}

// Constant wraps a literal value.
type Constant struct {
	Value value.Value
}

func (c *Constant) Eval(value.Value) (value.Value, error) { return c.Value, nil }

func (c *Constant) String() string { return literal(c.Value) }

// ContextRef is the bare `ctx` reference.
type ContextRef struct{}

func (*ContextRef) Eval(ctx value.Value) (value.Value, error) { return ctx, nil }

func (*ContextRef) String() string { return "ctx" }

// Property is `target.name`.
type Property struct {
	Target Node
	Name   string
}

func (p *Property) Eval(ctx value.Value) (value.Value, error) {
	target, err := p.Target.Eval(ctx)
	if err != nil {
		return nil, err
	}
	return value.Property(target, p.Name)
}

func (p *Property) String() string {
	return fmt.Sprintf("%s.%s", p.Target, p.Name)
}

// Index is `target[index]`.
type Index struct {
	Target Node
	Idx    Node
}

func (ix *Index) Eval(ctx value.Value) (value.Value, error) {
	target, err := ix.Target.Eval(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := ix.Idx.Eval(ctx)
	if err != nil {
		return nil, err
	}
	return value.Index(target, idx)
}

func (ix *Index) String() string {
	return fmt.Sprintf("%s[%s]", ix.Target, ix.Idx)
}

// MethodCall is `target.name(args...)`. A bare `name(args...)` in source is
// sugar for a call on ctx and dispatches into the function set.
type MethodCall struct {
	Target Node
	Name   string
	Args   []Node
}

func (m *MethodCall) Eval(ctx value.Value) (value.Value, error) {
	target, err := m.Target.Eval(ctx)
	if err != nil {
		return nil, err
	}
	args := make([]value.Value, 0, len(m.Args))
	for _, a := range m.Args {
		v, err := a.Eval(ctx)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return value.Call(target, m.Name, args)
}

func (m *MethodCall) String() string {
	parts := make([]string, 0, len(m.Args))
	for _, a := range m.Args {
		parts = append(parts, a.String())
	}
	return fmt.Sprintf("%s.%s(%s)", m.Target, m.Name, strings.Join(parts, ", "))
}

// Unary is a prefix operator application.
type Unary struct {
	Op      value.UnaryOp
	Operand Node
}

func (u *Unary) Eval(ctx value.Value) (value.Value, error) {
	v, err := u.Operand.Eval(ctx)
	if err != nil {
		return nil, err
	}
	return value.Unary(u.Op, v)
}

func (u *Unary) String() string {
	return fmt.Sprintf("(%s%s)", u.Op, u.Operand)
}

// Binary is an infix operator application. Both operands are always
// evaluated, including for && and ||.
type Binary struct {
	Op    value.BinaryOp
	Left  Node
	Right Node
}

func (b *Binary) Eval(ctx value.Value) (value.Value, error) {
	left, err := b.Left.Eval(ctx)
	if err != nil {
		return nil, err
	}
	right, err := b.Right.Eval(ctx)
	if err != nil {
		return nil, err
	}
	return value.Binary(b.Op, left, right)
}

func (b *Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// Ternary is `cond ? then : else`. Only the selected branch evaluates.
type Ternary struct {
	Cond Node
	Then Node
	Else Node
}

func (t *Ternary) Eval(ctx value.Value) (value.Value, error) {
	cond, err := t.Cond.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if cond.Truthy() {
		return t.Then.Eval(ctx)
	}
	return t.Else.Eval(ctx)
}

func (t *Ternary) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", t.Cond, t.Then, t.Else)
}

// literal renders a constant in source-literal form.
func literal(v value.Value) string {
	switch x := v.(type) {
	case value.NullValue:
		return "null"
	case value.BoolValue:
		if bool(x) {
			return "true"
		}
		return "false"
	case value.NumberValue:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case value.StringValue:
		return "'" + strings.ReplaceAll(string(x), "'", "''") + "'"
	case *value.ArrayValue:
		parts := make([]string, 0, len(x.Elems))
		for _, e := range x.Elems {
			parts = append(parts, literal(e))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *value.DictValue:
		parts := make([]string, 0, x.Len())
		for _, k := range x.Keys() {
			e, _ := x.Get(k)
			parts = append(parts, fmt.Sprintf("%s: %s", k, literal(e)))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("<%s>", v.Kind())
	}
}
