// Package typelist implements ordered sets of event types, used to
// declare which events a processor accepts or emits and to check, at
// graph-construction time, that a processor's inputs are covered by its
// upstream's outputs.
package typelist

import "reflect"

// TypeOf returns the reflect.Type of E without needing a value of it.
func TypeOf[E any]() reflect.Type {
	return reflect.TypeOf((*E)(nil)).Elem()
}

// List is an ordered, duplicate-free set of event types. The zero value
// is the empty list.
type List struct {
	types []reflect.Type
}

// Of constructs a List from the given types, dropping duplicates while
// preserving first-occurrence order.
func Of(types ...reflect.Type) List {
	var l List
	for _, t := range types {
		if !l.Contains(t) {
			l.types = append(l.types, t)
		}
	}
	return l
}

// Len returns the number of distinct types in the list.
func (l List) Len() int { return len(l.types) }

// Types returns the list's types in order. The returned slice must not be
// modified.
func (l List) Types() []reflect.Type { return l.types }

// Contains reports whether t is in the list.
func (l List) Contains(t reflect.Type) bool {
	for _, u := range l.types {
		if u == t {
			return true
		}
	}
	return false
}

// ContainsValue reports whether v's dynamic type is in the list.
func (l List) ContainsValue(v any) bool {
	return l.Contains(reflect.TypeOf(v))
}

// Union returns the set union of l and m, ordered by first occurrence.
func (l List) Union(m List) List {
	return Of(append(append([]reflect.Type{}, l.types...), m.types...)...)
}

// Intersect returns the types present in both l and m, in l's order.
func (l List) Intersect(m List) List {
	var out List
	for _, t := range l.types {
		if m.Contains(t) {
			out.types = append(out.types, t)
		}
	}
	return out
}

// Difference returns the types present in l but not in m, in l's order.
func (l List) Difference(m List) List {
	var out List
	for _, t := range l.types {
		if !m.Contains(t) {
			out.types = append(out.types, t)
		}
	}
	return out
}

// IsSubsetOf reports whether every type in l is also in m. Composers use
// this to verify that a downstream's accepted events are all producible
// by its upstream before wiring the two together.
func (l List) IsSubsetOf(m List) bool {
	for _, t := range l.types {
		if !m.Contains(t) {
			return false
		}
	}
	return true
}
