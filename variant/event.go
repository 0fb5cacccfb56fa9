// Package variant implements a tagged-union event value over a declared
// set of event types, the bounded producer/consumer Buffer processor that
// queues such values between two goroutines, and a length-prefixed
// msgpack wire codec for moving them across process boundaries or into
// debug dumps.
package variant

import (
	"fmt"
	"reflect"

	"github.com/tcspc-go/tcspc/typelist"
)

// Event is a tagged union over the event types declared in a Registry.
// The zero value is the empty event.
type Event struct {
	value any
}

// NewEvent wraps v. The tag is v's dynamic type.
func NewEvent(v any) Event { return Event{value: v} }

// Value returns the active alternative, or nil for the empty event.
func (e Event) Value() any { return e.value }

// IsEmpty reports whether no alternative is active.
func (e Event) IsEmpty() bool { return e.value == nil }

// Equal reports whether both events hold the same alternative with equal
// contents. Contents are compared structurally, so alternatives carrying
// slices compare element-wise.
func (e Event) Equal(other Event) bool {
	if e.value == nil || other.value == nil {
		return e.value == nil && other.value == nil
	}
	if reflect.TypeOf(e.value) != reflect.TypeOf(other.value) {
		return false
	}
	return reflect.DeepEqual(e.value, other.value)
}

// String formats the active alternative with its type name.
func (e Event) String() string {
	if e.value == nil {
		return "variant.Event(empty)"
	}
	return fmt.Sprintf("%T%+v", e.value, e.value)
}

// Registry declares the set of event types a variant stream may carry and
// assigns each a stable wire tag. Registration happens once, up front;
// lookups afterwards are read-only and safe for concurrent use.
type Registry struct {
	byTag  map[string]reflect.Type
	byType map[reflect.Type]string
	list   typelist.List
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byTag:  make(map[string]reflect.Type),
		byType: make(map[reflect.Type]string),
	}
}

// Register adds E under tag. Panics if either the tag or the type is
// already registered.
func Register[E any](r *Registry, tag string) {
	t := typelist.TypeOf[E]()
	if _, dup := r.byTag[tag]; dup {
		panic(fmt.Sprintf("variant: tag %q already registered", tag))
	}
	if _, dup := r.byType[t]; dup {
		panic(fmt.Sprintf("variant: type %v already registered", t))
	}
	r.byTag[tag] = t
	r.byType[t] = tag
	r.list = r.list.Union(typelist.Of(t))
}

// Types returns the registered event types as a type list.
func (r *Registry) Types() typelist.List { return r.list }

// TagOf returns the wire tag for v's dynamic type.
func (r *Registry) TagOf(v any) (string, bool) {
	tag, ok := r.byType[reflect.TypeOf(v)]
	return tag, ok
}

// TypeOfTag returns the event type registered under tag.
func (r *Registry) TypeOfTag(tag string) (reflect.Type, bool) {
	t, ok := r.byTag[tag]
	return t, ok
}
