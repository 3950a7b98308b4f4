// Package template holds the compiled template types, their AST node
// families, and the evaluation machinery (context accessor, function set,
// refinement). Templates are immutable once built and may be rendered
// concurrently; every render constructs its own accessor.
package template

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/killallgit/llt/pkg/chat"
	"github.com/killallgit/llt/pkg/metadata"
	"github.com/killallgit/llt/pkg/value"
)

// Kind discriminates the three template forms.
type Kind int

const (
	KindPrompt Kind = iota
	KindMessages
	KindPlaintext
)

func (k Kind) String() string {
	switch k {
	case KindPrompt:
		return "prompt"
	case KindMessages:
		return "messages"
	case KindPlaintext:
		return "plaintext"
	default:
		return "unknown"
	}
}

// Template is a compiled template of any kind.
type Template interface {
	// ID is a unique handle assigned at construction, used in logs and
	// duplicate-registration diagnostics.
	ID() string
	TemplateKind() Kind
	Metadata() *metadata.Collection
}

// Resolver is the lookup-only view of a library that @render uses to find
// sibling templates. The full library type lives in pkg/library; templates
// hold this narrow non-owning reference to avoid a cycle.
type Resolver interface {
	ResolveTemplate(name string) (Template, bool)
}

var (
	sharedMu       sync.RWMutex
	sharedResolver Resolver
)

// SetSharedResolver installs the process-wide shared library as the
// fallback lookup target for @render. pkg/library wires this on init.
func SetSharedResolver(r Resolver) {
	sharedMu.Lock()
	sharedResolver = r
	sharedMu.Unlock()
}

func sharedLookup(name string) (Template, bool) {
	sharedMu.RLock()
	r := sharedResolver
	sharedMu.RUnlock()
	if r == nil {
		return nil, false
	}
	return r.ResolveTemplate(name)
}

// PromptTemplate renders a text template body to a plain string.
type PromptTemplate struct {
	id    string
	body  TextNode
	meta  *metadata.Collection
	lib   Resolver
	funcs FunctionSet
}

// NewPromptTemplate builds a text template over a refined body.
func NewPromptTemplate(body TextNode, meta *metadata.Collection) *PromptTemplate {
	if meta == nil {
		meta = metadata.NewCollection()
	}
	return &PromptTemplate{
		id:   uuid.NewString(),
		body: body,
		meta: meta,
	}
}

func (t *PromptTemplate) ID() string                     { return t.id }
func (t *PromptTemplate) TemplateKind() Kind             { return KindPrompt }
func (t *PromptTemplate) Metadata() *metadata.Collection { return t.meta }
func (t *PromptTemplate) Body() TextNode                 { return t.body }
func (t *PromptTemplate) SetLibrary(r Resolver)          { t.lib = r }
func (t *PromptTemplate) SetFunctions(funcs FunctionSet) { t.funcs = funcs }

// Render evaluates the template against a caller-supplied context value
// (any native Go value, or a value.Value) and returns the normalised text.
func (t *PromptTemplate) Render(root any) (string, error) {
	ctx := newContext(value.From(root), t.meta, t.funcs, t.lib)
	return t.renderWith(ctx)
}

func (t *PromptTemplate) renderWith(ctx *Context) (string, error) {
	out, err := t.body.RenderText(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, " \t\r\n"), nil
}

// MessagesTemplate renders to an ordered sequence of role-tagged messages.
type MessagesTemplate struct {
	id    string
	body  MessagesNode
	meta  *metadata.Collection
	lib   Resolver
	funcs FunctionSet
}

// NewMessagesTemplate builds a messages template over a refined body.
func NewMessagesTemplate(body MessagesNode, meta *metadata.Collection) *MessagesTemplate {
	if meta == nil {
		meta = metadata.NewCollection()
	}
	return &MessagesTemplate{
		id:   uuid.NewString(),
		body: body,
		meta: meta,
	}
}

func (t *MessagesTemplate) ID() string                     { return t.id }
func (t *MessagesTemplate) TemplateKind() Kind             { return KindMessages }
func (t *MessagesTemplate) Metadata() *metadata.Collection { return t.meta }
func (t *MessagesTemplate) Body() MessagesNode             { return t.body }
func (t *MessagesTemplate) SetLibrary(r Resolver)          { t.lib = r }
func (t *MessagesTemplate) SetFunctions(funcs FunctionSet) { t.funcs = funcs }

// Render evaluates the template against a caller-supplied context value.
func (t *MessagesTemplate) Render(root any) ([]chat.Message, error) {
	ctx := newContext(value.From(root), t.meta, t.funcs, t.lib)
	return t.renderWith(ctx)
}

func (t *MessagesTemplate) renderWith(ctx *Context) ([]chat.Message, error) {
	return t.body.RenderMessages(ctx)
}

// PlaintextTemplate carries verbatim content with metadata; @render in a
// text context emits the content unchanged.
type PlaintextTemplate struct {
	id      string
	content string
	meta    *metadata.Collection
}

// NewPlaintextTemplate wraps raw content as a template.
func NewPlaintextTemplate(content string, meta *metadata.Collection) *PlaintextTemplate {
	if meta == nil {
		meta = metadata.NewCollection()
	}
	return &PlaintextTemplate{
		id:      uuid.NewString(),
		content: content,
		meta:    meta,
	}
}

func (t *PlaintextTemplate) ID() string                     { return t.id }
func (t *PlaintextTemplate) TemplateKind() Kind             { return KindPlaintext }
func (t *PlaintextTemplate) Metadata() *metadata.Collection { return t.meta }
func (t *PlaintextTemplate) Content() string                { return t.content }

// Render returns the verbatim content; the context value is ignored.
func (t *PlaintextTemplate) Render(any) (string, error) { return t.content, nil }
