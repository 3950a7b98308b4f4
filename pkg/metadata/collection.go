package metadata

import (
	"fmt"
	"reflect"
	"sync"
)

// Collection is a type-indexed multiset of metadata values. A stored value
// is retrievable by its concrete type and by any interface type it
// implements. Concrete-type buckets are maintained eagerly on insert;
// interface lookups are resolved by scan and cached.
type Collection struct {
	values  []Metadata
	present map[identity]struct{}
	buckets map[reflect.Type][]Metadata

	mu         sync.Mutex
	ifaceCache map[reflect.Type][]Metadata
}

// NewCollection builds a collection from the given values.
func NewCollection(values ...Metadata) *Collection {
	c := &Collection{
		present: make(map[identity]struct{}),
		buckets: make(map[reflect.Type][]Metadata),
	}
	for _, v := range values {
		c.Add(v)
	}
	return c
}

// Add inserts a value. Structural duplicates are kept once.
func (c *Collection) Add(m Metadata) {
	if m == nil {
		return
	}
	id := identityOf(m)
	if _, dup := c.present[id]; dup {
		return
	}
	c.present[id] = struct{}{}
	c.values = append(c.values, m)
	c.buckets[id.typ] = append(c.buckets[id.typ], m)

	c.mu.Lock()
	c.ifaceCache = nil
	c.mu.Unlock()
}

// All returns every stored value in insertion order.
func (c *Collection) All() []Metadata {
	out := make([]Metadata, len(c.values))
	copy(out, c.values)
	return out
}

// Len returns the number of stored values.
func (c *Collection) Len() int { return len(c.values) }

// Contains reports whether a structurally equal value is stored.
func (c *Collection) Contains(m Metadata) bool {
	_, ok := c.present[identityOf(m)]
	return ok
}

// ofType returns the stored values assignable to t, in insertion order.
func (c *Collection) ofType(t reflect.Type) []Metadata {
	if t.Kind() != reflect.Interface {
		return c.buckets[t]
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.ifaceCache[t]; ok {
		return cached
	}
	var out []Metadata
	for _, v := range c.values {
		if reflect.TypeOf(v).Implements(t) {
			out = append(out, v)
		}
	}
	if c.ifaceCache == nil {
		c.ifaceCache = make(map[reflect.Type][]Metadata)
	}
	c.ifaceCache[t] = out
	return out
}

func typeOf[T Metadata]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// TryGet returns the first stored value of type T.
func TryGet[T Metadata](c *Collection) (T, bool) {
	var zero T
	vs := c.ofType(typeOf[T]())
	if len(vs) == 0 {
		return zero, false
	}
	return vs[0].(T), true
}

// GetAll returns every stored value of type T in insertion order.
func GetAll[T Metadata](c *Collection) []T {
	vs := c.ofType(typeOf[T]())
	out := make([]T, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.(T))
	}
	return out
}

// Has reports whether any value of type T is stored.
func Has[T Metadata](c *Collection) bool {
	return len(c.ofType(typeOf[T]())) > 0
}

// Require returns the first value of type T or an error carrying msg.
func Require[T Metadata](c *Collection, msg string) (T, error) {
	v, ok := TryGet[T](c)
	if !ok {
		return v, fmt.Errorf("required metadata %s missing: %s", typeOf[T](), msg)
	}
	return v, nil
}

// Check returns the first value of type T satisfying pred, or fallback.
func Check[T Metadata](c *Collection, pred func(T) bool, fallback T) T {
	for _, v := range GetAll[T](c) {
		if pred(v) {
			return v
		}
	}
	return fallback
}
