package resolve

import (
	"encoding/binary"
	"reflect"
	"strings"
	"sync"

	"github.com/anoideaopen/reflectcall/core/host"
	"github.com/anoideaopen/reflectcall/core/value"
)

// Target identifies what is resolved on an owner type: a named method or a constructor.
type Target struct {
	Kind host.Kind
	Name string
}

// Method returns the target for the method called name.
func Method(name string) Target {
	return Target{Kind: host.KindMethod, Name: name}
}

// Constructor returns the constructor target.
func Constructor() Target {
	return Target{Kind: host.KindConstructor, Name: host.ConstructorName}
}

func (t Target) String() string {
	if t.Kind == host.KindConstructor {
		return "constructor"
	}
	return "method '" + t.Name + "'"
}

// Key identifies one resolution on an owner type. It is comparable and is
// used directly as a cache key.
type Key struct {
	Target Target
	// Static is set for calls made on a type rather than on an instance.
	Static bool
	// Explicit is set when the types come from an explicit signature, so an
	// exact lookup never shares an entry with a scan over the same types.
	Explicit bool

	types string
}

// KeyOf builds the key of a scan for args. Each argument contributes its
// affinity, not its representation.
func KeyOf(target Target, static bool, args []value.Value) Key {
	types := make([]reflect.Type, len(args))
	for i, arg := range args {
		types[i] = arg.Affinity()
	}
	return Key{Target: target, Static: static, types: fingerprint(types)}
}

// SignatureKeyOf builds the key of an exact lookup for params.
func SignatureKeyOf(target Target, static bool, params []reflect.Type) Key {
	return Key{Target: target, Static: static, Explicit: true, types: fingerprint(params)}
}

// Types returns the types the key was built from.
func (k Key) Types() []reflect.Type {
	ids := []byte(k.types)
	out := make([]reflect.Type, 0, len(ids)/4)
	for len(ids) >= 4 {
		out = append(out, interned.typeOf(binary.BigEndian.Uint32(ids)))
		ids = ids[4:]
	}
	return out
}

func (k Key) String() string {
	parts := make([]string, 0, len(k.types)/4)
	for _, t := range k.Types() {
		parts = append(parts, t.String())
	}
	return k.Target.String() + " [" + strings.Join(parts, ", ") + "]"
}

// typeTable assigns every reflect.Type a stable identifier for the lifetime
// of the process, so a type list folds into a comparable string without the
// name collisions reflect.Type.String would allow.
type typeTable struct {
	mu    sync.RWMutex
	ids   map[reflect.Type]uint32
	types []reflect.Type
}

var interned = &typeTable{ids: make(map[reflect.Type]uint32)}

func (tt *typeTable) id(t reflect.Type) uint32 {
	tt.mu.RLock()
	id, ok := tt.ids[t]
	tt.mu.RUnlock()
	if ok {
		return id
	}

	tt.mu.Lock()
	defer tt.mu.Unlock()

	if id, ok = tt.ids[t]; ok {
		return id
	}
	id = uint32(len(tt.types))
	tt.ids[t] = id
	tt.types = append(tt.types, t)
	return id
}

func (tt *typeTable) typeOf(id uint32) reflect.Type {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	return tt.types[id]
}

func fingerprint(types []reflect.Type) string {
	buf := make([]byte, 4*len(types))
	for i, t := range types {
		binary.BigEndian.PutUint32(buf[4*i:], interned.id(t))
	}
	return string(buf)
}
