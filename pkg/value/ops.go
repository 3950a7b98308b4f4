package value

import (
	"math"
	"strings"
)

// UnaryOp identifies a prefix operator.
type UnaryOp int

const (
	OpNegate UnaryOp = iota
	OpPlus
	OpNot
)

func (op UnaryOp) String() string {
	switch op {
	case OpNegate:
		return "-"
	case OpPlus:
		return "+"
	case OpNot:
		return "!"
	default:
		return "?"
	}
}

// BinaryOp identifies an infix operator.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLess
	OpLessEq
	OpGreater
	OpGreaterEq
	OpEq
	OpNotEq
	OpAnd
	OpOr
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpLess:
		return "<"
	case OpLessEq:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterEq:
		return ">="
	case OpEq:
		return "=="
	case OpNotEq:
		return "!="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	default:
		return "?"
	}
}

// Property resolves name on v: dicts by key, host objects through their
// lookup closure, the context accessor through its frames and root.
func Property(v Value, name string) (Value, error) {
	if r, ok := v.(PropertyResolver); ok {
		out, found, err := r.ResolveProperty(name)
		if err != nil {
			return nil, err
		}
		if found {
			return out, nil
		}
		return nil, PropertyError(name, v.Kind())
	}
	return nil, PropertyError(name, v.Kind())
}

// Index applies the [] operator. Arrays and strings take integer indices,
// dicts take any value whose string form names a key.
func Index(v Value, idx Value) (Value, error) {
	if s, ok := v.(StringValue); ok {
		i, err := integerIndex(idx)
		if err != nil {
			return nil, err
		}
		runes := []rune(string(s))
		if i < 0 || i >= len(runes) {
			return nil, IndexOutOfRangeError(i, len(runes))
		}
		return StringValue(runes[i]), nil
	}
	if ix, ok := v.(Indexer); ok {
		return ix.IndexBy(idx)
	}
	return nil, IndexingNotSupportedError(v.Kind())
}

// Call dispatches a method call on the receiver. Only the context accessor
// carries callable methods (its function set).
func Call(v Value, name string, args []Value) (Value, error) {
	if c, ok := v.(Caller); ok {
		return c.CallMethod(name, args)
	}
	return nil, MethodNotSupportedError(name, v.Kind())
}

// Unary applies a prefix operator. Negation and unary plus require numbers;
// logical not applies to the truthiness of any value.
func Unary(op UnaryOp, v Value) (Value, error) {
	switch op {
	case OpNot:
		return BoolValue(!v.Truthy()), nil
	case OpNegate:
		if n, ok := v.(NumberValue); ok {
			return NumberValue(-float64(n)), nil
		}
	case OpPlus:
		if n, ok := v.(NumberValue); ok {
			return n, nil
		}
	}
	return nil, NewRuntimeError(ErrUnaryNotApplicable, "unary %s not applicable to %s", op, v.Kind())
}

// Binary applies an infix operator. The logical operators evaluate both
// operands by the time they get here; there is deliberately no
// short-circuiting anywhere in the engine.
func Binary(op BinaryOp, left, right Value) (Value, error) {
	switch op {
	case OpAnd:
		return BoolValue(left.Truthy() && right.Truthy()), nil
	case OpOr:
		return BoolValue(left.Truthy() || right.Truthy()), nil
	case OpEq:
		return BoolValue(Equal(left, right)), nil
	case OpNotEq:
		return BoolValue(!Equal(left, right)), nil
	case OpAdd:
		return add(left, right)
	case OpSub, OpMul, OpDiv, OpMod:
		ln, lok := left.(NumberValue)
		rn, rok := right.(NumberValue)
		if !lok || !rok {
			return nil, binaryError(op, left, right)
		}
		l, r := float64(ln), float64(rn)
		switch op {
		case OpSub:
			return NumberValue(l - r), nil
		case OpMul:
			return NumberValue(l * r), nil
		case OpDiv:
			return NumberValue(l / r), nil
		default:
			return NumberValue(math.Mod(l, r)), nil
		}
	case OpLess, OpLessEq, OpGreater, OpGreaterEq:
		return compare(op, left, right)
	}
	return nil, binaryError(op, left, right)
}

func add(left, right Value) (Value, error) {
	if ln, ok := left.(NumberValue); ok {
		if rn, ok := right.(NumberValue); ok {
			return NumberValue(float64(ln) + float64(rn)), nil
		}
	}
	if left.Kind() == KindString || right.Kind() == KindString {
		ls, err := Format(left, "")
		if err != nil {
			return nil, err
		}
		rs, err := Format(right, "")
		if err != nil {
			return nil, err
		}
		return StringValue(ls + rs), nil
	}
	if la, ok := left.(*ArrayValue); ok {
		if ra, ok := right.(*ArrayValue); ok {
			elems := make([]Value, 0, len(la.Elems)+len(ra.Elems))
			elems = append(elems, la.Elems...)
			elems = append(elems, ra.Elems...)
			return NewArray(elems...), nil
		}
	}
	if ld, ok := left.(*DictValue); ok {
		if rd, ok := right.(*DictValue); ok {
			merged := NewDict()
			for _, k := range ld.keys {
				merged.Set(k, ld.entries[k])
			}
			for _, k := range rd.keys {
				merged.Set(k, rd.entries[k])
			}
			return merged, nil
		}
	}
	return nil, binaryError(OpAdd, left, right)
}

// compare orders numbers numerically and strings by ordinal byte order.
func compare(op BinaryOp, left, right Value) (Value, error) {
	var c int
	switch l := left.(type) {
	case NumberValue:
		r, ok := right.(NumberValue)
		if !ok {
			return nil, binaryError(op, left, right)
		}
		switch {
		case float64(l) < float64(r):
			c = -1
		case float64(l) > float64(r):
			c = 1
		}
	case StringValue:
		r, ok := right.(StringValue)
		if !ok {
			return nil, binaryError(op, left, right)
		}
		c = strings.Compare(string(l), string(r))
	default:
		return nil, binaryError(op, left, right)
	}
	switch op {
	case OpLess:
		return BoolValue(c < 0), nil
	case OpLessEq:
		return BoolValue(c <= 0), nil
	case OpGreater:
		return BoolValue(c > 0), nil
	default:
		return BoolValue(c >= 0), nil
	}
}

// Equal is structural equality over the wrapped native values. Values of
// different kinds are never equal; arrays and dicts compare element- and
// entry-wise; host objects and accessors compare by identity.
func Equal(left, right Value) bool {
	if left.Kind() != right.Kind() {
		return false
	}
	switch l := left.(type) {
	case NullValue:
		return true
	case BoolValue:
		return l == right.(BoolValue)
	case NumberValue:
		return l == right.(NumberValue)
	case StringValue:
		return l == right.(StringValue)
	case *ArrayValue:
		r := right.(*ArrayValue)
		if len(l.Elems) != len(r.Elems) {
			return false
		}
		for i := range l.Elems {
			if !Equal(l.Elems[i], r.Elems[i]) {
				return false
			}
		}
		return true
	case *DictValue:
		r := right.(*DictValue)
		if len(l.keys) != len(r.keys) {
			return false
		}
		for k, lv := range l.entries {
			rv, ok := r.entries[k]
			if !ok || !Equal(lv, rv) {
				return false
			}
		}
		return true
	default:
		return left == right
	}
}

// Iterate returns the elements a foreach walks: array elements, dict values
// in insertion order, or whatever an Iterable (the context accessor over an
// iterable root) yields.
func Iterate(v Value) ([]Value, error) {
	if it, ok := v.(Iterable); ok {
		return it.Items()
	}
	return nil, NotIterableError(v.Kind())
}

// Length is the projection behind the length() template function: rune
// count for strings, element count for arrays, entry count for dicts.
func Length(v Value) (int, error) {
	switch x := v.(type) {
	case StringValue:
		return len([]rune(string(x))), nil
	case *ArrayValue:
		return len(x.Elems), nil
	case *DictValue:
		return x.Len(), nil
	default:
		return 0, MethodNotSupportedError("length", v.Kind())
	}
}

func integerIndex(idx Value) (int, error) {
	n, ok := idx.(NumberValue)
	if !ok {
		return 0, IndexNotIntegerError(idx)
	}
	f := float64(n)
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, IndexNotIntegerError(idx)
	}
	return int(f), nil
}

func binaryError(op BinaryOp, left, right Value) *RuntimeError {
	return NewRuntimeError(ErrBinaryNotApplicable, "operator %s not applicable to %s and %s", op, left.Kind(), right.Kind())
}
