package template

import (
	"strings"

	"github.com/killallgit/llt/pkg/value"
)

// Function is a callable exposed to templates through bare-identifier call
// syntax (`@length(items)`). Calls dispatch on the context accessor only.
type Function func(ctx *Context, args []value.Value) (value.Value, error)

// FunctionSet maps function names to callables.
type FunctionSet map[string]Function

// DefaultFunctions returns the built-in set: length, strcat, substr.
func DefaultFunctions() FunctionSet {
	return FunctionSet{
		"length": fnLength,
		"strcat": fnStrcat,
		"substr": fnSubstr,
	}
}

func fnLength(_ *Context, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, value.NewRuntimeError(value.ErrUnknownFunction, "length expects 1 argument, got %d", len(args))
	}
	n, err := value.Length(args[0])
	if err != nil {
		return nil, err
	}
	return value.NumberValue(n), nil
}

func fnStrcat(_ *Context, args []value.Value) (value.Value, error) {
	var b strings.Builder
	for _, a := range args {
		s, err := value.Format(a, "")
		if err != nil {
			return nil, err
		}
		b.WriteString(s)
	}
	return value.StringValue(b.String()), nil
}

func fnSubstr(_ *Context, args []value.Value) (value.Value, error) {
	if len(args) != 3 {
		return nil, value.NewRuntimeError(value.ErrUnknownFunction, "substr expects 3 arguments, got %d", len(args))
	}
	s, ok := args[0].(value.StringValue)
	if !ok {
		return nil, value.MethodNotSupportedError("substr", args[0].Kind())
	}
	start, err := intArg(args[1])
	if err != nil {
		return nil, err
	}
	length, err := intArg(args[2])
	if err != nil {
		return nil, err
	}
	runes := []rune(string(s))
	if start < 0 || start > len(runes) {
		return nil, value.IndexOutOfRangeError(start, len(runes))
	}
	if length < 0 {
		return nil, value.IndexOutOfRangeError(length, len(runes))
	}
	end := start + length
	if end > len(runes) {
		end = len(runes)
	}
	return value.StringValue(runes[start:end]), nil
}

func intArg(v value.Value) (int, error) {
	n, ok := v.(value.NumberValue)
	if !ok || float64(n) != float64(int(n)) {
		return 0, value.IndexNotIntegerError(v)
	}
	return int(n), nil
}
