package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/llt/pkg/metadata"
	"github.com/killallgit/llt/pkg/template"
	"github.com/killallgit/llt/pkg/value"
)

func parseOne(t *testing.T, source string) template.Template {
	t.Helper()
	ts, err := New().Parse(source)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	return ts[0]
}

func parsePrompt(t *testing.T, source string) *template.PromptTemplate {
	t.Helper()
	pt, ok := parseOne(t, source).(*template.PromptTemplate)
	require.True(t, ok, "expected a text template")
	return pt
}

func renderText(t *testing.T, source string, ctx any) string {
	t.Helper()
	out, err := parsePrompt(t, source).Render(ctx)
	require.NoError(t, err)
	return out
}

func TestHelloName(t *testing.T) {
	out := renderText(t, "@template t { Hello, @ctx.name! }", map[string]any{"name": "Andrew"})
	assert.Equal(t, "Hello, Andrew!", out)
}

func TestBareIdentifierIsContextSugar(t *testing.T) {
	out := renderText(t, "@template t { Hello, @name! }", map[string]any{"name": "Alice"})
	assert.Equal(t, "Hello, Alice!", out)
}

func TestIfElseWithSurroundingText(t *testing.T) {
	source := "@template g { Greetings, @name!\n" +
		"@if age > 18 { You are an adult. } else { You are too young! }\n" +
		"Have a nice day. }"

	t.Run("adult branch", func(t *testing.T) {
		out := renderText(t, source, map[string]any{"name": "Andrew", "age": 20})
		assert.Equal(t, "Greetings, Andrew!\nYou are an adult.\n\nHave a nice day.", out)
	})

	t.Run("young branch", func(t *testing.T) {
		out := renderText(t, source, map[string]any{"name": "Alice", "age": 15})
		assert.Equal(t, "Greetings, Alice!\nYou are too young!\n\nHave a nice day.", out)
	})
}

func TestElseIfChain(t *testing.T) {
	source := "@template t { @if n > 10 { big } else if n > 5 { medium } else { small } }"
	assert.Equal(t, "big", renderText(t, source, map[string]any{"n": 11}))
	assert.Equal(t, "medium", renderText(t, source, map[string]any{"n": 7}))
	assert.Equal(t, "small", renderText(t, source, map[string]any{"n": 1}))
}

func TestForeachWithShadowing(t *testing.T) {
	source := "@template t { @foreach item in items { Outer: @item\n" +
		"@let item = 'shadowed'\n" +
		"Inner: @item } }"
	out := renderText(t, source, map[string]any{"items": []any{"A", "B"}})
	assert.Equal(t, "Outer: A\nInner: shadowed\nOuter: B\nInner: shadowed", out)
}

func TestLetShadowingAcrossBlocks(t *testing.T) {
	source := "@template t { @let x = 'a'\n" +
		"@if true { @let x = 'b'\n" +
		"inner=@x }\n" +
		"outer=@x }"
	out := renderText(t, source, nil)
	assert.Equal(t, "inner=b\n\nouter=a", out)
}

func TestAssignmentRebindsExisting(t *testing.T) {
	t.Run("rebind crosses block frames", func(t *testing.T) {
		source := "@template t { @let x = 'old'\n" +
			"@if true { @x = 'new' }\n" +
			"@x }"
		assert.Equal(t, "new", renderText(t, source, nil))
	})

	t.Run("rebind without a binding fails", func(t *testing.T) {
		pt := parsePrompt(t, "@template t { @ghost = 1 }")
		_, err := pt.Render(nil)
		assert.True(t, value.IsRuntimeError(err, value.ErrVariableNotFound))
	})
}

func TestCommentsProduceNoOutput(t *testing.T) {
	t.Run("comment-only line vanishes", func(t *testing.T) {
		source := "@template t { first\n@// note to authors\nsecond }"
		assert.Equal(t, "first\nsecond", renderText(t, source, nil))
	})

	t.Run("block comment inside a line", func(t *testing.T) {
		source := "@template t { one @* hidden *@two }"
		assert.Equal(t, "one two", renderText(t, source, nil))
	})
}

func TestEscapes(t *testing.T) {
	t.Run("double at renders a single at", func(t *testing.T) {
		assert.Equal(t, "mail@@example.org", renderText(t, "@template t { mail@@@@example.org }", nil))
	})

	t.Run("quote escape in string literals", func(t *testing.T) {
		assert.Equal(t, "it's", renderText(t, "@template t { @('it''s') }", nil))
	})
}

func TestFormatSuffix(t *testing.T) {
	t.Run("numeric format", func(t *testing.T) {
		out := renderText(t, "@template t { @price:F2 }", map[string]any{"price": 3.14159})
		assert.Equal(t, "3.14", out)
	})

	t.Run("bool alternative format", func(t *testing.T) {
		out := renderText(t, "@template t { @flag:yes/no }", map[string]any{"flag": true})
		assert.Equal(t, "yes", out)
	})

	t.Run("string format", func(t *testing.T) {
		out := renderText(t, "@template t { @word:upper }", map[string]any{"word": "shout"})
		assert.Equal(t, "SHOUT", out)
	})

	t.Run("trailing period is prose", func(t *testing.T) {
		out := renderText(t, "@template t { Total: @n:F1. }", map[string]any{"n": 2.0})
		assert.Equal(t, "Total: 2.0.", out)
	})
}

func TestIndexingAndFunctions(t *testing.T) {
	ctx := map[string]any{"items": []any{"apple", "banana"}}

	t.Run("inline index", func(t *testing.T) {
		assert.Equal(t, "banana", renderText(t, "@template t { @items[1] }", ctx))
	})

	t.Run("bare function call", func(t *testing.T) {
		assert.Equal(t, "2", renderText(t, "@template t { @length(items) }", ctx))
	})

	t.Run("strcat and substr", func(t *testing.T) {
		out := renderText(t, "@template t { @(strcat(substr(items[0], 0, 3), '!')) }", ctx)
		assert.Equal(t, "app!", out)
	})
}

func TestOperatorPrecedence(t *testing.T) {
	exprString := func(source string) string {
		pt := parsePrompt(t, source)
		body := pt.Body().(*template.SequentialNode)
		require.Len(t, body.Children, 1)
		return body.Children[0].(*template.ExprNode).Expr.String()
	}

	t.Run("multiplicative binds tighter", func(t *testing.T) {
		assert.Equal(t, "(ctx.a + (ctx.b * ctx.c))", exprString("@template t { @(a + b * c) }"))
	})

	t.Run("relational under equality under logical", func(t *testing.T) {
		assert.Equal(t,
			"((ctx.a < ctx.b) == (ctx.c > ctx.d))",
			exprString("@template t { @(a < b == c > d) }"))
	})

	t.Run("ternary is right associative", func(t *testing.T) {
		assert.Equal(t,
			"(ctx.a ? ctx.b : (ctx.c ? ctx.d : ctx.e))",
			exprString("@template t { @(a ? b : c ? d : e) }"))
	})

	t.Run("unary stacks", func(t *testing.T) {
		assert.Equal(t, "(!(!ctx.a))", exprString("@template t { @(!!a) }"))
	})

	t.Run("round trip through the canonical form", func(t *testing.T) {
		canonical := exprString("@template t { @(a + b * c - d) }")
		again := exprString("@template t { @(" + canonical + ") }")
		assert.Equal(t, canonical, again)
	})
}

func TestLogicalOperatorsAreNonLazy(t *testing.T) {
	// With short-circuiting the missing property would never evaluate.
	pt := parsePrompt(t, "@template t { @if enabled && missing { x } }")
	_, err := pt.Render(map[string]any{"enabled": false})
	require.Error(t, err)
	assert.True(t, value.IsRuntimeError(err, value.ErrVariableNotFound))
}

func TestTernaryRendering(t *testing.T) {
	source := "@template t { @(age > 17 ? 'adult' : 'minor') }"
	assert.Equal(t, "adult", renderText(t, source, map[string]any{"age": 20}))
	assert.Equal(t, "minor", renderText(t, source, map[string]any{"age": 10}))
}

func TestMetadataBlock(t *testing.T) {
	source := "@template greet {\n" +
		"    @metadata { lang: 'en', model: 'gpt-4', model_family: 'gpt', flavor: 'ignored' }\n" +
		"    Hi\n" +
		"}"
	pt := parsePrompt(t, source)

	id, ok := metadata.TryGet[metadata.Identifier](pt.Metadata())
	require.True(t, ok)
	assert.Equal(t, metadata.Identifier("greet"), id)

	lang, ok := metadata.TryGet[metadata.Language](pt.Metadata())
	require.True(t, ok)
	assert.Equal(t, metadata.LanguageCode("en"), lang.Code)

	model, ok := metadata.TryGet[metadata.TargetModel](pt.Metadata())
	require.True(t, ok)
	assert.Equal(t, metadata.TargetModel("gpt-4"), model)

	family, ok := metadata.TryGet[metadata.TargetModelFamily](pt.Metadata())
	require.True(t, ok)
	assert.Equal(t, metadata.TargetModelFamily("gpt"), family)

	// The unknown key is ignored, not stored.
	assert.Equal(t, 4, pt.Metadata().Len())

	out, err := pt.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi", out)
}

func TestIndentedSourceRendersFlat(t *testing.T) {
	source := "@template t {\n" +
		"    Greetings.\n" +
		"    @if deep {\n" +
		"        Nested line.\n" +
		"    }\n" +
		"}"
	out := renderText(t, source, map[string]any{"deep": true})
	assert.Equal(t, "Greetings.\nNested line.", out)
}

func TestNestedRender(t *testing.T) {
	source := "@template outer { Fruits:\n@render 'inner' }\n" +
		"@template inner { @foreach x in ctx { Item: @x } }"

	ts, err := New().Parse(source)
	require.NoError(t, err)
	require.Len(t, ts, 2)

	outer := ts[0].(*template.PromptTemplate)
	out, err := outer.Render([]any{"Apples", "Bananas"})
	require.NoError(t, err)
	assert.Contains(t, out, "Item: Apples\nItem: Bananas")
}

func TestRenderWithContextExpression(t *testing.T) {
	source := "@template outer { @render 'inner' with user }\n" +
		"@template inner { name=@name }"
	ts, err := New().Parse(source)
	require.NoError(t, err)
	outer := ts[0].(*template.PromptTemplate)
	out, err := outer.Render(map[string]any{"user": map[string]any{"name": "Rob"}})
	require.NoError(t, err)
	assert.Equal(t, "name=Rob", out)
}

func TestConstantLiterals(t *testing.T) {
	t.Run("array literal iterates", func(t *testing.T) {
		out := renderText(t, "@template t { @foreach n in [1, 2, 3] { n=@n } }", nil)
		assert.Equal(t, "n=1\nn=2\nn=3", out)
	})

	t.Run("object literal properties", func(t *testing.T) {
		out := renderText(t, "@template t { @({name: 'Ada', age: 36,}.name) }", nil)
		assert.Equal(t, "Ada", out)
	})
}

func TestMessagesTemplate(t *testing.T) {
	source := "@messages template conv {\n" +
		"    @system message {\n" +
		"        You are a helpful assistant.\n" +
		"    }\n" +
		"    @foreach name in names {\n" +
		"        @message {\n" +
		"            @role 'user'\n" +
		"            Hello, i am @name!\n" +
		"        }\n" +
		"    }\n" +
		"}"

	mt, ok := parseOne(t, source).(*template.MessagesTemplate)
	require.True(t, ok)

	msgs, err := mt.Render(map[string]any{"names": []any{"Alex", "Rob"}})
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "You are a helpful assistant.", msgs[0].Content)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "Hello, i am Alex!", msgs[1].Content)
	assert.Equal(t, "user", msgs[2].Role)
	assert.Equal(t, "Hello, i am Rob!", msgs[2].Content)
}

func TestMessagesRoleRules(t *testing.T) {
	t.Run("tool messages are reserved", func(t *testing.T) {
		mt := parseOne(t, "@messages template t { @tool message { data } }").(*template.MessagesTemplate)
		_, err := mt.Render(nil)
		assert.True(t, value.IsRuntimeError(err, value.ErrToolNotSupported))
	})

	t.Run("unknown role fails at render time", func(t *testing.T) {
		mt := parseOne(t, "@messages template t { @message { @role 'narrator' text } }").(*template.MessagesTemplate)
		_, err := mt.Render(nil)
		assert.True(t, value.IsRuntimeError(err, value.ErrInvalidRole))
	})

	t.Run("message without a role is a parse error", func(t *testing.T) {
		_, err := New().Parse("@messages template t { @message { text } }")
		assert.Error(t, err)
	})

	t.Run("plain text between messages is a parse error", func(t *testing.T) {
		_, err := New().Parse("@messages template t { stray prose }")
		assert.Error(t, err)
	})
}

func TestMessagesConditional(t *testing.T) {
	source := "@messages template t {\n" +
		"    @if verbose {\n" +
		"        @system message { Be thorough. }\n" +
		"    } else {\n" +
		"        @system message { Be brief. }\n" +
		"    }\n" +
		"}"
	mt := parseOne(t, source).(*template.MessagesTemplate)

	msgs, err := mt.Render(map[string]any{"verbose": false})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Be brief.", msgs[0].Content)
}

func TestParseErrors(t *testing.T) {
	requireParseError := func(t *testing.T, source string, kind ErrorKind) *ParseError {
		t.Helper()
		_, err := New().Parse(source)
		require.Error(t, err)
		perr, ok := err.(*ParseError)
		require.True(t, ok, "expected *ParseError, got %T: %v", err, err)
		assert.Equal(t, kind, perr.Kind)
		assert.Greater(t, perr.Line, 0)
		assert.Greater(t, perr.Column, 0)
		return perr
	}

	t.Run("unterminated string", func(t *testing.T) {
		requireParseError(t, "@template t { @let x = 'oops }", ErrUnterminatedString)
	})

	t.Run("unterminated block comment", func(t *testing.T) {
		requireParseError(t, "@template t { @* never closed }", ErrUnterminatedComment)
	})

	t.Run("stray open brace", func(t *testing.T) {
		requireParseError(t, "@template t { text { } }", ErrUnexpectedToken)
	})

	t.Run("end of input inside a block", func(t *testing.T) {
		requireParseError(t, "@template t { hello", ErrUnexpectedEOF)
	})

	t.Run("while is reserved", func(t *testing.T) {
		requireParseError(t, "@template t { @while x { } }", ErrUnexpectedToken)
	})

	t.Run("top level requires a declaration", func(t *testing.T) {
		requireParseError(t, "just text", ErrUnexpectedToken)
	})

	t.Run("error position points into the source", func(t *testing.T) {
		perr := requireParseError(t, "@template t {\nok\n{ }", ErrUnexpectedToken)
		assert.Equal(t, 3, perr.Line)
	})
}

func TestAnonymousTemplatesHaveNoIdentifier(t *testing.T) {
	pt := parsePrompt(t, "@template { anonymous }")
	assert.False(t, metadata.Has[metadata.Identifier](pt.Metadata()))
	out, err := pt.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "anonymous", out)
}
