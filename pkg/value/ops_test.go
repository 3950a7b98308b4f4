package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryAdd(t *testing.T) {
	t.Run("numbers sum", func(t *testing.T) {
		got, err := Binary(OpAdd, NumberValue(2), NumberValue(3.5))
		require.NoError(t, err)
		assert.Equal(t, NumberValue(5.5), got)
	})

	t.Run("string concatenates anything", func(t *testing.T) {
		got, err := Binary(OpAdd, StringValue("n="), NumberValue(4))
		require.NoError(t, err)
		assert.Equal(t, StringValue("n=4"), got)

		got, err = Binary(OpAdd, BoolValue(true), StringValue("!"))
		require.NoError(t, err)
		assert.Equal(t, StringValue("True!"), got)
	})

	t.Run("arrays concatenate", func(t *testing.T) {
		got, err := Binary(OpAdd, NewArray(NumberValue(1)), NewArray(NumberValue(2)))
		require.NoError(t, err)
		arr := got.(*ArrayValue)
		assert.Len(t, arr.Elems, 2)
	})

	t.Run("dicts merge right wins", func(t *testing.T) {
		l := NewDict()
		l.Set("a", NumberValue(1))
		l.Set("b", NumberValue(2))
		r := NewDict()
		r.Set("b", NumberValue(9))
		r.Set("c", NumberValue(3))

		got, err := Binary(OpAdd, l, r)
		require.NoError(t, err)
		d := got.(*DictValue)
		assert.Equal(t, []string{"a", "b", "c"}, d.Keys())
		b, _ := d.Get("b")
		assert.Equal(t, NumberValue(9), b)
	})

	t.Run("bool plus number errors", func(t *testing.T) {
		_, err := Binary(OpAdd, BoolValue(true), NumberValue(1))
		require.Error(t, err)
		assert.True(t, IsRuntimeError(err, ErrBinaryNotApplicable))
	})
}

func TestBinaryArithmetic(t *testing.T) {
	t.Run("numeric only", func(t *testing.T) {
		got, err := Binary(OpSub, NumberValue(5), NumberValue(2))
		require.NoError(t, err)
		assert.Equal(t, NumberValue(3), got)

		got, err = Binary(OpMul, NumberValue(4), NumberValue(2.5))
		require.NoError(t, err)
		assert.Equal(t, NumberValue(10), got)

		got, err = Binary(OpDiv, NumberValue(7), NumberValue(2))
		require.NoError(t, err)
		assert.Equal(t, NumberValue(3.5), got)

		got, err = Binary(OpMod, NumberValue(7), NumberValue(3))
		require.NoError(t, err)
		assert.Equal(t, NumberValue(1), got)
	})

	t.Run("division by zero follows IEEE", func(t *testing.T) {
		got, err := Binary(OpDiv, NumberValue(1), NumberValue(0))
		require.NoError(t, err)
		assert.True(t, math.IsInf(float64(got.(NumberValue)), 1))
	})

	t.Run("strings do not subtract", func(t *testing.T) {
		_, err := Binary(OpSub, StringValue("a"), StringValue("b"))
		assert.True(t, IsRuntimeError(err, ErrBinaryNotApplicable))
	})
}

func TestBinaryCompare(t *testing.T) {
	t.Run("numbers", func(t *testing.T) {
		got, err := Binary(OpLess, NumberValue(1), NumberValue(2))
		require.NoError(t, err)
		assert.Equal(t, BoolValue(true), got)

		got, err = Binary(OpGreaterEq, NumberValue(2), NumberValue(2))
		require.NoError(t, err)
		assert.Equal(t, BoolValue(true), got)
	})

	t.Run("strings compare ordinally", func(t *testing.T) {
		got, err := Binary(OpLess, StringValue("apple"), StringValue("banana"))
		require.NoError(t, err)
		assert.Equal(t, BoolValue(true), got)

		// Ordinal, not case-folded: 'B' < 'a'.
		got, err = Binary(OpLess, StringValue("B"), StringValue("a"))
		require.NoError(t, err)
		assert.Equal(t, BoolValue(true), got)
	})

	t.Run("mixed kinds error", func(t *testing.T) {
		_, err := Binary(OpLess, NumberValue(1), StringValue("2"))
		assert.True(t, IsRuntimeError(err, ErrBinaryNotApplicable))
	})
}

func TestEqual(t *testing.T) {
	t.Run("nulls equal", func(t *testing.T) {
		assert.True(t, Equal(Null, NullValue{}))
	})

	t.Run("kind mismatch is false not error", func(t *testing.T) {
		got, err := Binary(OpEq, NumberValue(1), StringValue("1"))
		require.NoError(t, err)
		assert.Equal(t, BoolValue(false), got)
	})

	t.Run("arrays elementwise", func(t *testing.T) {
		a := NewArray(NumberValue(1), StringValue("x"))
		b := NewArray(NumberValue(1), StringValue("x"))
		c := NewArray(NumberValue(1))
		assert.True(t, Equal(a, b))
		assert.False(t, Equal(a, c))
	})

	t.Run("dicts entrywise regardless of order", func(t *testing.T) {
		l := NewDict()
		l.Set("a", NumberValue(1))
		l.Set("b", NumberValue(2))
		r := NewDict()
		r.Set("b", NumberValue(2))
		r.Set("a", NumberValue(1))
		assert.True(t, Equal(l, r))
	})

	t.Run("objects by identity", func(t *testing.T) {
		o1 := NewObject(nil)
		o2 := NewObject(nil)
		assert.True(t, Equal(o1, o1))
		assert.False(t, Equal(o1, o2))
	})
}

func TestLogicalOperatorsEvaluateBothSides(t *testing.T) {
	// The engine never short-circuits; Binary receives both operands
	// already evaluated and only projects truthiness.
	got, err := Binary(OpAnd, BoolValue(false), NumberValue(1))
	require.NoError(t, err)
	assert.Equal(t, BoolValue(false), got)

	got, err = Binary(OpOr, StringValue(""), StringValue("x"))
	require.NoError(t, err)
	assert.Equal(t, BoolValue(true), got)

	got, err = Binary(OpAnd, NewArray(Null), BoolValue(true))
	require.NoError(t, err)
	assert.Equal(t, BoolValue(true), got)
}

func TestUnary(t *testing.T) {
	t.Run("negate numbers only", func(t *testing.T) {
		got, err := Unary(OpNegate, NumberValue(3))
		require.NoError(t, err)
		assert.Equal(t, NumberValue(-3), got)

		_, err = Unary(OpNegate, StringValue("3"))
		assert.True(t, IsRuntimeError(err, ErrUnaryNotApplicable))
	})

	t.Run("not applies to any truthiness", func(t *testing.T) {
		got, err := Unary(OpNot, StringValue(""))
		require.NoError(t, err)
		assert.Equal(t, BoolValue(true), got)

		got, err = Unary(OpNot, NumberValue(2))
		require.NoError(t, err)
		assert.Equal(t, BoolValue(false), got)
	})
}

func TestIndex(t *testing.T) {
	t.Run("array by integer", func(t *testing.T) {
		arr := NewArray(StringValue("a"), StringValue("b"))
		got, err := Index(arr, NumberValue(1))
		require.NoError(t, err)
		assert.Equal(t, StringValue("b"), got)
	})

	t.Run("array out of range", func(t *testing.T) {
		arr := NewArray(StringValue("a"))
		_, err := Index(arr, NumberValue(3))
		assert.True(t, IsRuntimeError(err, ErrIndexOutOfRange))
		_, err = Index(arr, NumberValue(-1))
		assert.True(t, IsRuntimeError(err, ErrIndexOutOfRange))
	})

	t.Run("array non-integer index", func(t *testing.T) {
		arr := NewArray(StringValue("a"))
		_, err := Index(arr, NumberValue(0.5))
		assert.True(t, IsRuntimeError(err, ErrIndexNotInteger))
		_, err = Index(arr, StringValue("0"))
		assert.True(t, IsRuntimeError(err, ErrIndexNotInteger))
	})

	t.Run("string yields one-character string", func(t *testing.T) {
		got, err := Index(StringValue("héllo"), NumberValue(1))
		require.NoError(t, err)
		assert.Equal(t, StringValue("é"), got)
	})

	t.Run("dict by stringified key", func(t *testing.T) {
		d := NewDict()
		d.Set("1", StringValue("one"))
		got, err := Index(d, NumberValue(1))
		require.NoError(t, err)
		assert.Equal(t, StringValue("one"), got)
	})

	t.Run("unsupported receiver", func(t *testing.T) {
		_, err := Index(NumberValue(3), NumberValue(0))
		assert.True(t, IsRuntimeError(err, ErrIndexingNotSupported))
	})
}

func TestPropertyAndCall(t *testing.T) {
	t.Run("dict property", func(t *testing.T) {
		d := NewDict()
		d.Set("name", StringValue("Andrew"))
		got, err := Property(d, "name")
		require.NoError(t, err)
		assert.Equal(t, StringValue("Andrew"), got)

		_, err = Property(d, "missing")
		assert.True(t, IsRuntimeError(err, ErrCannotAccessProperty))
	})

	t.Run("property on scalar errors", func(t *testing.T) {
		_, err := Property(NumberValue(1), "x")
		assert.True(t, IsRuntimeError(err, ErrCannotAccessProperty))
	})

	t.Run("methods unsupported outside the accessor", func(t *testing.T) {
		_, err := Call(StringValue("x"), "upper", nil)
		assert.True(t, IsRuntimeError(err, ErrMethodNotSupported))
	})
}

func TestIterateAndLength(t *testing.T) {
	t.Run("dict iterates values in insertion order", func(t *testing.T) {
		d := NewDict()
		d.Set("b", NumberValue(2))
		d.Set("a", NumberValue(1))
		items, err := Iterate(d)
		require.NoError(t, err)
		assert.Equal(t, []Value{NumberValue(2), NumberValue(1)}, items)
	})

	t.Run("scalar is not iterable", func(t *testing.T) {
		_, err := Iterate(NumberValue(1))
		assert.True(t, IsRuntimeError(err, ErrNotIterable))
	})

	t.Run("length projections", func(t *testing.T) {
		n, err := Length(StringValue("héllo"))
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		n, err = Length(NewArray(Null, Null))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = Length(BoolValue(true))
		assert.Error(t, err)
	})
}
