package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruthiness(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null, false},
		{"false", BoolValue(false), false},
		{"true", BoolValue(true), true},
		{"zero", NumberValue(0), false},
		{"nonzero", NumberValue(0.5), true},
		{"empty string", StringValue(""), false},
		{"string", StringValue("x"), true},
		{"empty array", NewArray(), false},
		{"array", NewArray(Null), true},
		{"empty dict", NewDict(), false},
		{"object", NewObject(nil), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.v.Truthy())
		})
	}

	t.Run("dict with entry", func(t *testing.T) {
		d := NewDict()
		d.Set("k", Null)
		assert.True(t, d.Truthy())
	})
}

func TestFrom(t *testing.T) {
	t.Run("scalars", func(t *testing.T) {
		assert.Equal(t, Null, From(nil))
		assert.Equal(t, BoolValue(true), From(true))
		assert.Equal(t, NumberValue(3), From(3))
		assert.Equal(t, NumberValue(2.5), From(2.5))
		assert.Equal(t, NumberValue(7), From(int64(7)))
		assert.Equal(t, StringValue("hi"), From("hi"))
	})

	t.Run("value passthrough", func(t *testing.T) {
		arr := NewArray(NumberValue(1))
		assert.Same(t, arr, From(arr).(*ArrayValue))
	})

	t.Run("slice of any", func(t *testing.T) {
		v := From([]any{"a", 2})
		arr, ok := v.(*ArrayValue)
		require.True(t, ok)
		require.Len(t, arr.Elems, 2)
		assert.Equal(t, StringValue("a"), arr.Elems[0])
		assert.Equal(t, NumberValue(2), arr.Elems[1])
	})

	t.Run("string map becomes sorted dict", func(t *testing.T) {
		v := From(map[string]any{"b": 2, "a": 1})
		d, ok := v.(*DictValue)
		require.True(t, ok)
		assert.Equal(t, []string{"a", "b"}, d.Keys())
	})

	t.Run("struct becomes host object", func(t *testing.T) {
		type host struct {
			Name string
			Age  int
		}
		v := From(host{Name: "Andrew", Age: 20})
		require.Equal(t, KindObject, v.Kind())
		got, err := Property(v, "Name")
		require.NoError(t, err)
		assert.Equal(t, StringValue("Andrew"), got)
	})
}

func TestDictInsertionOrder(t *testing.T) {
	d := NewDict()
	d.Set("z", NumberValue(1))
	d.Set("a", NumberValue(2))
	d.Set("m", NumberValue(3))
	d.Set("z", NumberValue(9)) // overwrite keeps position

	assert.Equal(t, []string{"z", "a", "m"}, d.Keys())
	assert.Equal(t, []Value{NumberValue(9), NumberValue(2), NumberValue(3)}, d.Values())
	assert.Equal(t, 3, d.Len())
}

func TestHostObjectOptions(t *testing.T) {
	type host struct {
		UserName string
		Hidden   bool
	}

	t.Run("case sensitive by default", func(t *testing.T) {
		v := FromObject(host{UserName: "rob"})
		_, err := Property(v, "username")
		require.Error(t, err)
		assert.True(t, IsRuntimeError(err, ErrCannotAccessProperty))
	})

	t.Run("lower case lookup", func(t *testing.T) {
		v := FromObject(host{UserName: "rob"}, PropertiesToLowerCase())
		got, err := Property(v, "username")
		require.NoError(t, err)
		assert.Equal(t, StringValue("rob"), got)
	})

	t.Run("snapshot produces a dict", func(t *testing.T) {
		v := FromObject(host{UserName: "rob"}, Snapshot())
		require.Equal(t, KindDict, v.Kind())
		got, err := Property(v, "UserName")
		require.NoError(t, err)
		assert.Equal(t, StringValue("rob"), got)
	})

	t.Run("nil pointer is null", func(t *testing.T) {
		var h *host
		assert.Equal(t, Null, FromObject(h))
	})
}
