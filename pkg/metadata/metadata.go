// Package metadata defines the typed attributes templates carry (identifier,
// language, target model) and the type-indexed collection the library
// resolves retrieval constraints against.
package metadata

import (
	"fmt"
	"reflect"
)

// Metadata is a typed attribute attached to a template. Values are compared
// by concrete type plus the identity payload returned by Key; Key must be
// stable so metadata can index maps.
type Metadata interface {
	Key() string
}

// identity is the hashable form of a metadata value.
type identity struct {
	typ reflect.Type
	key string
}

func identityOf(m Metadata) identity {
	return identity{typ: reflect.TypeOf(m), key: m.Key()}
}

// Identity returns an opaque comparable value usable as a map key; two
// metadata values share an identity exactly when Equal reports true.
func Identity(m Metadata) any { return identityOf(m) }

// Equal reports structural equality: same concrete type, same identity
// payload.
func Equal(a, b Metadata) bool {
	if a == nil || b == nil {
		return a == b
	}
	return identityOf(a) == identityOf(b)
}

// Identifier names a template. Template declarations with a name register
// one of these automatically.
type Identifier string

func (i Identifier) Key() string { return string(i) }

func (i Identifier) String() string { return fmt.Sprintf("id=%s", string(i)) }

// TargetModel pins a template to a concrete model name.
type TargetModel string

func (m TargetModel) Key() string { return string(m) }

func (m TargetModel) String() string { return fmt.Sprintf("model=%s", string(m)) }

// TargetModelFamily pins a template to a model family.
type TargetModelFamily string

func (m TargetModelFamily) Key() string { return string(m) }

func (m TargetModelFamily) String() string { return fmt.Sprintf("model_family=%s", string(m)) }
