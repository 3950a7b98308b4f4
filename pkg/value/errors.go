package value

import "fmt"

// ErrorKind classifies runtime failures raised during evaluation. The engine
// never catches these; they propagate to the caller of Render.
type ErrorKind int

const (
	ErrCannotAccessProperty ErrorKind = iota
	ErrIndexOutOfRange
	ErrIndexNotInteger
	ErrIndexingNotSupported
	ErrMethodNotSupported
	ErrUnknownFunction
	ErrUnaryNotApplicable
	ErrBinaryNotApplicable
	ErrNotIterable
	ErrVariableNotFound
	ErrStackOverflow
	ErrStackUnderflow
	ErrTemplateNotFound
	ErrTemplateKindMismatch
	ErrInvalidRole
	ErrToolNotSupported
	ErrFormatInvalid
)

// String returns the error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrCannotAccessProperty:
		return "CannotAccessProperty"
	case ErrIndexOutOfRange:
		return "IndexOutOfRange"
	case ErrIndexNotInteger:
		return "IndexNotInteger"
	case ErrIndexingNotSupported:
		return "IndexingNotSupported"
	case ErrMethodNotSupported:
		return "MethodNotSupported"
	case ErrUnknownFunction:
		return "UnknownFunction"
	case ErrUnaryNotApplicable:
		return "UnaryNotApplicable"
	case ErrBinaryNotApplicable:
		return "BinaryNotApplicable"
	case ErrNotIterable:
		return "NotIterable"
	case ErrVariableNotFound:
		return "VariableNotFound"
	case ErrStackOverflow:
		return "StackOverflow"
	case ErrStackUnderflow:
		return "StackUnderflow"
	case ErrTemplateNotFound:
		return "TemplateNotFound"
	case ErrTemplateKindMismatch:
		return "TemplateKindMismatch"
	case ErrInvalidRole:
		return "InvalidRole"
	case ErrToolNotSupported:
		return "ToolNotSupported"
	case ErrFormatInvalid:
		return "FormatInvalid"
	default:
		return "RuntimeError"
	}
}

// RuntimeError is the single error type raised by evaluation. Kind selects
// the failure class; Message carries the diagnostic detail.
type RuntimeError struct {
	Kind    ErrorKind
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RuntimeError) withMessage(msg string) *RuntimeError {
	e.Message = msg
	return e
}

// NewRuntimeError builds a RuntimeError with a formatted message.
func NewRuntimeError(kind ErrorKind, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsRuntimeError reports whether err is a RuntimeError of the given kind.
func IsRuntimeError(err error, kind ErrorKind) bool {
	re, ok := err.(*RuntimeError)
	return ok && re.Kind == kind
}

func PropertyError(name string, on Kind) *RuntimeError {
	return NewRuntimeError(ErrCannotAccessProperty, "cannot access property %q on %s", name, on)
}

func IndexOutOfRangeError(index, length int) *RuntimeError {
	return NewRuntimeError(ErrIndexOutOfRange, "index %d out of range for length %d", index, length)
}

func IndexNotIntegerError(v Value) *RuntimeError {
	return NewRuntimeError(ErrIndexNotInteger, "index of kind %s is not an integer", v.Kind())
}

func IndexingNotSupportedError(on Kind) *RuntimeError {
	return NewRuntimeError(ErrIndexingNotSupported, "indexing not supported on %s", on)
}

func MethodNotSupportedError(name string, on Kind) *RuntimeError {
	return NewRuntimeError(ErrMethodNotSupported, "method %q not supported on %s", name, on)
}

func UnknownFunctionError(name string) *RuntimeError {
	return NewRuntimeError(ErrUnknownFunction, "unknown function %q", name)
}

func NotIterableError(on Kind) *RuntimeError {
	return NewRuntimeError(ErrNotIterable, "value of kind %s is not iterable", on)
}

func VariableNotFoundError(name string) *RuntimeError {
	return NewRuntimeError(ErrVariableNotFound, "variable %q is not bound in any frame", name)
}

func FormatInvalidError(on Kind, format string) *RuntimeError {
	return NewRuntimeError(ErrFormatInvalid, "format %q is not valid for %s", format, on)
}
