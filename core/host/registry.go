package host

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/anoideaopen/reflectcall/core/stringsx"
)

// Registration errors.
var (
	ErrNotAFunction     = errors.New("not a function")
	ErrInvalidReceiver  = errors.New("invalid receiver")
	ErrInvalidResult    = errors.New("invalid constructor result")
	ErrTypeAlreadyNamed = errors.New("type name already registered")
)

var refusedByDefault = []string{"RefusedMembers"}

// AccessPolicy decides whether a hidden member may be made invocable.
type AccessPolicy func(m Member) error

// DenyHidden refuses access to every hidden member.
func DenyHidden(m Member) error {
	return fmt.Errorf("%w: %s is hidden", ErrAccessDenied, m)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithAccessPolicy sets the policy applied to hidden members.
func WithAccessPolicy(p AccessPolicy) RegistryOption {
	return func(r *Registry) { r.policy = p }
}

// MemberOption adjusts a member while it is declared.
type MemberOption func(*Member)

// Refuse marks the member as unreachable from the call engine.
func Refuse() MemberOption {
	return func(m *Member) { m.Refused = true }
}

// Hidden marks the member as outside of the owner's public surface.
func Hidden() MemberOption {
	return func(m *Member) { m.Hidden = true }
}

type typeEntry struct {
	members []Member
	// refused collects the names refused on the type so far. Members
	// declared later under one of them are refused too.
	refused []string
}

// Registry is a Host backed by reflect. Types are registered explicitly or
// lazily on first use, in which case their exported method set is declared.
// Extra members (overloads, hidden methods, static functions and
// constructors) are declared through Method, Static and Constructor.
type Registry struct {
	mu     sync.RWMutex
	types  map[reflect.Type]*typeEntry
	names  map[string]reflect.Type
	policy AccessPolicy
}

var _ Host = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		types: make(map[reflect.Type]*typeEntry),
		names: make(map[string]reflect.Type),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register declares the type of sample together with its exported methods
// and returns it. sample may also be a reflect.Type. A sample implementing
// Refuser adds its names to the ones the zero value of the type refuses.
func (r *Registry) Register(sample any) reflect.Type {
	t, ok := sample.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(sample)
	}

	var refused []string
	if refuser, ok := sample.(Refuser); ok {
		refused = refuser.RefusedMembers()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entryLocked(t, refused)
	return t
}

// Alias makes t reachable by name in signatures.
func (r *Registry) Alias(name string, t reflect.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.names[name]; ok && prev != t {
		return fmt.Errorf("%w: '%s' is %s", ErrTypeAlreadyNamed, name, prev)
	}
	r.names[name] = t
	return nil
}

// Method declares an instance method named name on owner. fn takes the
// receiver as its first argument.
func (r *Registry) Method(owner reflect.Type, name string, fn any, opts ...MemberOption) error {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return fmt.Errorf("%w: method %s on %s", ErrNotAFunction, name, owner)
	}
	ft := fv.Type()
	if ft.NumIn() == 0 || !owner.AssignableTo(ft.In(0)) {
		return fmt.Errorf("%w: method %s on %s", ErrInvalidReceiver, name, owner)
	}

	params := make([]reflect.Type, 0, ft.NumIn()-1)
	for i := 1; i < ft.NumIn(); i++ {
		params = append(params, ft.In(i))
	}

	r.declare(owner, Member{
		Owner:  owner,
		Kind:   KindMethod,
		Name:   name,
		Params: params,
		fn:     fv,
	}, opts)
	return nil
}

// Static declares a static function named name on owner.
func (r *Registry) Static(owner reflect.Type, name string, fn any, opts ...MemberOption) error {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return fmt.Errorf("%w: static %s on %s", ErrNotAFunction, name, owner)
	}

	r.declare(owner, Member{
		Owner:  owner,
		Kind:   KindMethod,
		Name:   name,
		Params: inTypes(fv.Type()),
		Static: true,
		fn:     fv,
	}, opts)
	return nil
}

// Constructor declares a constructor of owner. The first result of fn must
// be assignable to owner.
func (r *Registry) Constructor(owner reflect.Type, fn any, opts ...MemberOption) error {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return fmt.Errorf("%w: constructor of %s", ErrNotAFunction, owner)
	}
	ft := fv.Type()
	if ft.NumOut() == 0 || !ft.Out(0).AssignableTo(owner) {
		return fmt.Errorf("%w: constructor of %s", ErrInvalidResult, owner)
	}

	r.declare(owner, Member{
		Owner:  owner,
		Kind:   KindConstructor,
		Name:   ConstructorName,
		Params: inTypes(ft),
		Static: true,
		fn:     fv,
	}, opts)
	return nil
}

// Members implements Host.
func (r *Registry) Members(owner reflect.Type, kind Kind, name string) []Member {
	e := r.entry(owner)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Member, 0, len(e.members))
	for _, m := range e.members {
		if m.Kind != kind {
			continue
		}
		if kind == KindMethod && m.Name != name {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Lookup implements Host.
func (r *Registry) Lookup(owner reflect.Type, kind Kind, name string, static bool, params []reflect.Type) (Member, bool) {
	for _, m := range r.Members(owner, kind, name) {
		if m.Static == static && sameTypes(m.Params, params) {
			return m, true
		}
	}
	return Member{}, false
}

// MakeAccessible implements Host.
func (r *Registry) MakeAccessible(m Member) error {
	if !m.Hidden || r.policy == nil {
		return nil
	}
	if err := r.policy(m); err != nil {
		if errors.Is(err, ErrAccessDenied) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", ErrAccessDenied, m, err)
	}
	return nil
}

// Invocable implements Host.
func (r *Registry) Invocable(m Member) (reflect.Value, error) {
	if !m.fn.IsValid() {
		return reflect.Value{}, fmt.Errorf("%w: %s has no function", ErrNotAFunction, m)
	}
	return m.fn, nil
}

// TypeByName implements Host.
func (r *Registry) TypeByName(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.names[name]
	return t, ok
}

func (r *Registry) entry(t reflect.Type) *typeEntry {
	r.mu.RLock()
	e, ok := r.types[t]
	r.mu.RUnlock()
	if ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.entryLocked(t, nil)
}

func (r *Registry) entryLocked(t reflect.Type, refused []string) *typeEntry {
	e, ok := r.types[t]
	if !ok {
		e = &typeEntry{refused: append(zeroRefused(t), refusedByDefault...)}
		if t.Kind() != reflect.Interface {
			for i := 0; i < t.NumMethod(); i++ {
				method := t.Method(i)
				e.members = append(e.members, Member{
					Owner:  t,
					Kind:   KindMethod,
					Name:   method.Name,
					Params: inTypes(method.Type)[1:],
					fn:     method.Func,
					order:  len(e.members),
				})
			}
		}
		r.types[t] = e

		for _, name := range typeNames(t) {
			if _, taken := r.names[name]; !taken {
				r.names[name] = t
			}
		}
	}

	for _, name := range refused {
		if !stringsx.OneOf(name, e.refused...) {
			e.refused = append(e.refused, name)
		}
	}
	for i := range e.members {
		e.applyRefused(&e.members[i])
	}

	return e
}

func (e *typeEntry) applyRefused(m *Member) {
	if m.Kind == KindMethod && stringsx.OneOf(m.Name, e.refused...) {
		m.Refused = true
	}
}

// zeroRefused asks the zero value of t for its refuse list. A RefusedMembers
// implementation that panics on the zero value contributes nothing.
func zeroRefused(t reflect.Type) (refused []string) {
	defer func() {
		if recover() != nil {
			refused = nil
		}
	}()

	if refuser, ok := reflect.Zero(t).Interface().(Refuser); ok {
		return append([]string(nil), refuser.RefusedMembers()...)
	}
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
		if refuser, ok := reflect.Zero(reflect.PointerTo(t)).Interface().(Refuser); ok {
			return append([]string(nil), refuser.RefusedMembers()...)
		}
	}
	return nil
}

func (r *Registry) declare(owner reflect.Type, m Member, opts []MemberOption) {
	for _, opt := range opts {
		opt(&m)
	}

	e := r.entry(owner)

	r.mu.Lock()
	defer r.mu.Unlock()

	m.order = len(e.members)
	e.applyRefused(&m)
	e.members = append(e.members, m)
}

func inTypes(ft reflect.Type) []reflect.Type {
	out := make([]reflect.Type, 0, ft.NumIn())
	for i := 0; i < ft.NumIn(); i++ {
		out = append(out, ft.In(i))
	}
	return out
}

func typeNames(t reflect.Type) []string {
	base := t
	prefix := ""
	if t.Kind() == reflect.Pointer {
		base = t.Elem()
		prefix = "*"
	}
	if base.Name() == "" {
		return nil
	}

	names := []string{prefix + base.String()}
	if base.PkgPath() != "" {
		names = append(names, prefix+base.PkgPath()+"."+base.Name())
	}
	return names
}

func sameTypes(a, b []reflect.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
