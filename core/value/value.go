// Package value holds the minimal script value model consumed by the call engine:
// scalar elements, ordered lists and opaque handles to native objects.
package value

import (
	"fmt"
	"reflect"
	"strings"
)

var (
	elementAffinity = reflect.TypeOf("")
	listAffinity    = reflect.TypeOf([]Value(nil))
	typeAffinity    = reflect.TypeOf((*reflect.Type)(nil)).Elem()
	nilAffinity     = reflect.TypeOf((*any)(nil)).Elem()
)

// Value is a script-level value.
type Value interface {
	// Affinity returns the native type the value declares itself as. Values with
	// different representations but equal affinity share resolution cache entries.
	Affinity() reflect.Type
	String() string
}

// Element is a scalar script value. Its text is parsed on demand into the
// native type a parameter asks for.
type Element struct {
	text string
}

// NewElement returns an element holding s verbatim.
func NewElement(s string) *Element {
	return &Element{text: s}
}

// Elementf formats according to a format specifier and returns the resulting element.
func Elementf(format string, a ...any) *Element {
	return &Element{text: fmt.Sprintf(format, a...)}
}

func (e *Element) Affinity() reflect.Type { return elementAffinity }

func (e *Element) String() string { return e.text }

// List is an ordered sequence of script values.
type List struct {
	items []Value
}

// NewList returns a list with the given items.
func NewList(items ...Value) *List {
	return &List{items: items}
}

// ListOf builds a list of elements from plain strings.
func ListOf(ss ...string) *List {
	items := make([]Value, 0, len(ss))
	for _, s := range ss {
		items = append(items, NewElement(s))
	}
	return &List{items: items}
}

func (l *List) Affinity() reflect.Type { return listAffinity }

// Len returns the number of items.
func (l *List) Len() int { return len(l.items) }

// At returns the i-th item.
func (l *List) At(i int) Value { return l.items[i] }

// Items returns a copy of the items.
func (l *List) Items() []Value {
	return append([]Value(nil), l.items...)
}

func (l *List) String() string {
	parts := make([]string, 0, len(l.items))
	for _, item := range l.items {
		parts = append(parts, item.String())
	}
	return strings.Join(parts, "|")
}

// Handle wraps an arbitrary native object, or a native type descriptor when
// the wrapped object is a reflect.Type.
type Handle struct {
	object any
}

// NewHandle wraps object.
func NewHandle(object any) *Handle {
	return &Handle{object: object}
}

// TypeHandle wraps the type descriptor of T.
func TypeHandle[T any]() *Handle {
	return &Handle{object: reflect.TypeOf((*T)(nil)).Elem()}
}

// Object returns the wrapped object.
func (h *Handle) Object() any { return h.object }

// Type returns the wrapped type descriptor and true when the handle wraps one.
func (h *Handle) Type() (reflect.Type, bool) {
	t, ok := h.object.(reflect.Type)
	return t, ok
}

// Affinity returns the dynamic type of the wrapped object.
func (h *Handle) Affinity() reflect.Type {
	if h.object == nil {
		return nilAffinity
	}
	if _, ok := h.object.(reflect.Type); ok {
		return typeAffinity
	}
	return reflect.TypeOf(h.object)
}

func (h *Handle) String() string {
	if t, ok := h.Type(); ok {
		return "type@" + t.String()
	}
	return fmt.Sprintf("native@%T", h.object)
}
