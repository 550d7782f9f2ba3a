// Package host describes the native object model the call engine dispatches into.
//
// The engine never touches reflect.Method or function values directly while
// resolving a call. It asks a Host to enumerate the members declared on a type,
// to look one up by exact signature and to make a chosen member invocable.
// Registry is the reflect-backed implementation used in production; tests wrap
// it to count scans or inject access failures.
package host

import (
	"errors"
	"reflect"
	"strings"
)

// ConstructorName is the member name shared by every constructor.
const ConstructorName = "<init>"

// ErrAccessDenied is returned when a member cannot be made invocable.
var ErrAccessDenied = errors.New("access denied")

// Kind separates methods from constructors.
type Kind int

const (
	KindMethod Kind = iota
	KindConstructor
)

func (k Kind) String() string {
	switch k {
	case KindConstructor:
		return "constructor"
	case KindMethod:
		fallthrough
	default:
		return "method"
	}
}

// Member is a method, static function or constructor declared on an owner type.
type Member struct {
	Owner reflect.Type
	Kind  Kind
	Name  string
	// Params lists the declared parameter types. The receiver of an instance
	// method is not part of it.
	Params []reflect.Type
	// Static is set for static functions and constructors.
	Static bool
	// Hidden members are not part of the owner's public surface; making them
	// invocable goes through the registry access policy.
	Hidden bool
	// Refused members are never reached by the call engine.
	Refused bool

	fn    reflect.Value
	order int
}

// Arity returns the number of declared parameters.
func (m Member) Arity() int { return len(m.Params) }

// Order returns the declaration position of the member on its owner.
func (m Member) Order() int { return m.order }

// Signature renders the member as name(T1, T2).
func (m Member) Signature() string {
	var sb strings.Builder
	sb.WriteString(m.Name)
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

func (m Member) String() string {
	if m.Owner == nil {
		return m.Signature()
	}
	return m.Owner.String() + "." + m.Signature()
}

// Host is the reflection capability the call engine depends on.
type Host interface {
	// Members returns the members of owner with the given kind in declaration
	// order. For KindMethod only members named name are returned, whatever their
	// visibility. Refused members are included; callers filter them.
	Members(owner reflect.Type, kind Kind, name string) []Member

	// Lookup returns the member with the given static-ness whose declared
	// parameter types equal params.
	Lookup(owner reflect.Type, kind Kind, name string, static bool, params []reflect.Type) (Member, bool)

	// MakeAccessible lifts visibility restrictions on m or fails with ErrAccessDenied.
	MakeAccessible(m Member) error

	// Invocable returns a function value for m. Instance methods take the
	// receiver as their first argument.
	Invocable(m Member) (reflect.Value, error)

	// TypeByName resolves a registered type name.
	TypeByName(name string) (reflect.Type, bool)
}

// Refuser is implemented by host types that keep some of their members away
// from the call engine. RefusedMembers must not dereference its receiver.
type Refuser interface {
	RefusedMembers() []string
}
