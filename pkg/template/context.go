package template

import (
	"github.com/killallgit/llt/pkg/metadata"
	"github.com/killallgit/llt/pkg/value"
)

// MaxFrameDepth bounds the frame stack so runaway recursion fails with
// StackOverflow instead of exhausting memory.
const MaxFrameDepth = 1000

type frame map[string]value.Value

// Context is the evaluator's per-invocation scope object: a stack of
// variable frames over a read-only root value, plus references to the host
// template's metadata, the function set, and the library used by @render.
// A Context is not safe for concurrent use; concurrent renders of the same
// template each construct their own.
type Context struct {
	frames []frame
	root   value.Value
	meta   *metadata.Collection
	funcs  FunctionSet
	lib    Resolver
}

// NewContext builds an accessor over root with one base frame and the
// default function set.
func NewContext(root value.Value) *Context {
	return newContext(root, nil, nil, nil)
}

func newContext(root value.Value, meta *metadata.Collection, funcs FunctionSet, lib Resolver) *Context {
	if funcs == nil {
		funcs = DefaultFunctions()
	}
	if meta == nil {
		meta = metadata.NewCollection()
	}
	return &Context{
		frames: []frame{make(frame)},
		root:   root,
		meta:   meta,
		funcs:  funcs,
		lib:    lib,
	}
}

// forRoot derives a fresh accessor for @render with a new context value:
// new base frame, same function set, the target template's library.
func (c *Context) forRoot(root value.Value, meta *metadata.Collection, lib Resolver) *Context {
	if lib == nil {
		lib = c.lib
	}
	return newContext(root, meta, c.funcs, lib)
}

// PushFrame adds an empty frame on top of the stack.
func (c *Context) PushFrame() error {
	if len(c.frames) >= MaxFrameDepth {
		return value.NewRuntimeError(value.ErrStackOverflow, "frame depth limit %d exceeded", MaxFrameDepth)
	}
	c.frames = append(c.frames, make(frame))
	return nil
}

// PopFrame removes the top frame. The base frame cannot be popped.
func (c *Context) PopFrame() error {
	if len(c.frames) <= 1 {
		return value.NewRuntimeError(value.ErrStackUnderflow, "cannot pop the base frame")
	}
	c.frames = c.frames[:len(c.frames)-1]
	return nil
}

// Declare binds name in the top frame, shadowing any outer binding.
func (c *Context) Declare(name string, v value.Value) {
	c.frames[len(c.frames)-1][name] = v
}

// Rebind writes to the first frame, top-down, that already owns name.
func (c *Context) Rebind(name string, v value.Value) error {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if _, ok := c.frames[i][name]; ok {
			c.frames[i][name] = v
			return nil
		}
	}
	return value.VariableNotFoundError(name)
}

// Lookup searches the frames top-down.
func (c *Context) Lookup(name string) (value.Value, bool) {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if v, ok := c.frames[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Root returns the caller-supplied context value.
func (c *Context) Root() value.Value { return c.root }

// Metadata returns the host template's metadata collection.
func (c *Context) Metadata() *metadata.Collection { return c.meta }

// Library returns the resolver @render consults first.
func (c *Context) Library() Resolver { return c.lib }

// Kind marks the accessor as its own value kind.
func (*Context) Kind() value.Kind { return value.KindContext }

// Truthy is always true for an accessor.
func (*Context) Truthy() bool { return true }

// ResolveProperty searches frames top-down, then falls through to the root
// value's property lookup. A name bound nowhere fails as an unbound
// variable, not as a property miss.
func (c *Context) ResolveProperty(name string) (value.Value, bool, error) {
	if v, ok := c.Lookup(name); ok {
		return v, true, nil
	}
	if c.root != nil {
		v, err := value.Property(c.root, name)
		if err == nil {
			return v, true, nil
		}
		if !value.IsRuntimeError(err, value.ErrCannotAccessProperty) {
			return nil, false, err
		}
	}
	return nil, false, value.VariableNotFoundError(name)
}

// IndexBy delegates indexing to the root value.
func (c *Context) IndexBy(idx value.Value) (value.Value, error) {
	if c.root == nil {
		return nil, value.IndexingNotSupportedError(value.KindContext)
	}
	return value.Index(c.root, idx)
}

// CallMethod dispatches a bare-identifier call into the function set.
func (c *Context) CallMethod(name string, args []value.Value) (value.Value, error) {
	fn, ok := c.funcs[name]
	if !ok {
		return nil, value.UnknownFunctionError(name)
	}
	return fn(c, args)
}

// Items lets a foreach iterate an accessor whose root is iterable.
func (c *Context) Items() ([]value.Value, error) {
	if c.root == nil {
		return nil, value.NotIterableError(value.KindContext)
	}
	return value.Iterate(c.root)
}
