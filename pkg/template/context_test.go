package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/llt/pkg/value"
)

func TestFrameDiscipline(t *testing.T) {
	t.Run("declare and lookup", func(t *testing.T) {
		ctx := NewContext(value.Null)
		ctx.Declare("x", value.NumberValue(1))
		got, ok := ctx.Lookup("x")
		require.True(t, ok)
		assert.Equal(t, value.NumberValue(1), got)
	})

	t.Run("inner frame shadows and unwinds", func(t *testing.T) {
		ctx := NewContext(value.Null)
		ctx.Declare("x", value.StringValue("outer"))
		require.NoError(t, ctx.PushFrame())
		ctx.Declare("x", value.StringValue("inner"))

		got, _ := ctx.Lookup("x")
		assert.Equal(t, value.StringValue("inner"), got)

		require.NoError(t, ctx.PopFrame())
		got, _ = ctx.Lookup("x")
		assert.Equal(t, value.StringValue("outer"), got)
	})

	t.Run("rebind writes the owning frame", func(t *testing.T) {
		ctx := NewContext(value.Null)
		ctx.Declare("x", value.NumberValue(1))
		require.NoError(t, ctx.PushFrame())
		require.NoError(t, ctx.Rebind("x", value.NumberValue(2)))
		require.NoError(t, ctx.PopFrame())

		got, _ := ctx.Lookup("x")
		assert.Equal(t, value.NumberValue(2), got)
	})

	t.Run("rebind of an unbound name fails", func(t *testing.T) {
		ctx := NewContext(value.Null)
		err := ctx.Rebind("ghost", value.Null)
		assert.True(t, value.IsRuntimeError(err, value.ErrVariableNotFound))
	})

	t.Run("base frame cannot pop", func(t *testing.T) {
		ctx := NewContext(value.Null)
		err := ctx.PopFrame()
		assert.True(t, value.IsRuntimeError(err, value.ErrStackUnderflow))
	})

	t.Run("frame depth is bounded", func(t *testing.T) {
		ctx := NewContext(value.Null)
		var err error
		for i := 0; i < MaxFrameDepth+1; i++ {
			if err = ctx.PushFrame(); err != nil {
				break
			}
		}
		require.Error(t, err)
		assert.True(t, value.IsRuntimeError(err, value.ErrStackOverflow))
	})
}

func TestContextAsValue(t *testing.T) {
	root := value.NewDict()
	root.Set("name", value.StringValue("Andrew"))

	t.Run("frames win over the root", func(t *testing.T) {
		ctx := NewContext(root)
		got, err := value.Property(ctx, "name")
		require.NoError(t, err)
		assert.Equal(t, value.StringValue("Andrew"), got)

		ctx.Declare("name", value.StringValue("shadow"))
		got, err = value.Property(ctx, "name")
		require.NoError(t, err)
		assert.Equal(t, value.StringValue("shadow"), got)
	})

	t.Run("missing everywhere is an unbound variable", func(t *testing.T) {
		ctx := NewContext(root)
		_, err := value.Property(ctx, "ghost")
		assert.True(t, value.IsRuntimeError(err, value.ErrVariableNotFound))
	})

	t.Run("iterates an iterable root", func(t *testing.T) {
		ctx := NewContext(value.NewArray(value.NumberValue(1), value.NumberValue(2)))
		items, err := value.Iterate(ctx)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("indexing delegates to the root", func(t *testing.T) {
		ctx := NewContext(value.NewArray(value.StringValue("a")))
		got, err := value.Index(ctx, value.NumberValue(0))
		require.NoError(t, err)
		assert.Equal(t, value.StringValue("a"), got)
	})
}

func TestFunctionSet(t *testing.T) {
	ctx := NewContext(value.Null)

	t.Run("length", func(t *testing.T) {
		got, err := ctx.CallMethod("length", []value.Value{value.StringValue("héllo")})
		require.NoError(t, err)
		assert.Equal(t, value.NumberValue(5), got)
	})

	t.Run("strcat", func(t *testing.T) {
		got, err := ctx.CallMethod("strcat", []value.Value{
			value.StringValue("a"), value.NumberValue(1), value.BoolValue(true),
		})
		require.NoError(t, err)
		assert.Equal(t, value.StringValue("a1True"), got)
	})

	t.Run("substr", func(t *testing.T) {
		got, err := ctx.CallMethod("substr", []value.Value{
			value.StringValue("template"), value.NumberValue(1), value.NumberValue(3),
		})
		require.NoError(t, err)
		assert.Equal(t, value.StringValue("emp"), got)
	})

	t.Run("substr clamps the length", func(t *testing.T) {
		got, err := ctx.CallMethod("substr", []value.Value{
			value.StringValue("ab"), value.NumberValue(1), value.NumberValue(10),
		})
		require.NoError(t, err)
		assert.Equal(t, value.StringValue("b"), got)
	})

	t.Run("unknown function", func(t *testing.T) {
		_, err := ctx.CallMethod("nope", nil)
		assert.True(t, value.IsRuntimeError(err, value.ErrUnknownFunction))
	})
}
