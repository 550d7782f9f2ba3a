// Package signature turns a script-supplied list of type names or type
// handles into the exact native parameter types of an overload.
package signature

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/anoideaopen/reflectcall/core/value"
)

// ErrInvalidSignature is returned when a signature entry does not name a type.
var ErrInvalidSignature = errors.New("invalid signature")

// TypeResolver resolves non-primitive type names.
type TypeResolver interface {
	TypeByName(name string) (reflect.Type, bool)
}

var primitives = map[string]reflect.Type{
	"bool":       reflect.TypeOf(false),
	"int":        reflect.TypeOf(int(0)),
	"int8":       reflect.TypeOf(int8(0)),
	"int16":      reflect.TypeOf(int16(0)),
	"int32":      reflect.TypeOf(int32(0)),
	"rune":       reflect.TypeOf(rune(0)),
	"int64":      reflect.TypeOf(int64(0)),
	"uint":       reflect.TypeOf(uint(0)),
	"uint8":      reflect.TypeOf(uint8(0)),
	"byte":       reflect.TypeOf(byte(0)),
	"uint16":     reflect.TypeOf(uint16(0)),
	"uint32":     reflect.TypeOf(uint32(0)),
	"uint64":     reflect.TypeOf(uint64(0)),
	"uintptr":    reflect.TypeOf(uintptr(0)),
	"float32":    reflect.TypeOf(float32(0)),
	"float64":    reflect.TypeOf(float64(0)),
	"complex64":  reflect.TypeOf(complex64(0)),
	"complex128": reflect.TypeOf(complex128(0)),
	"string":     reflect.TypeOf(""),
	"any":        reflect.TypeOf((*any)(nil)).Elem(),
	"error":      reflect.TypeOf((*error)(nil)).Elem(),
}

// Parse converts each entry of list into a native type. Element entries are
// type names, handle entries must wrap a reflect.Type.
func Parse(list []value.Value, names TypeResolver) ([]reflect.Type, error) {
	out := make([]reflect.Type, len(list))
	for i, entry := range list {
		switch v := entry.(type) {
		case *value.Element:
			t, ok := TypeOf(v.String(), names)
			if !ok {
				return nil, fmt.Errorf("%w: entry %d '%s': type couldn't be found", ErrInvalidSignature, i, v)
			}
			out[i] = t
		case *value.Handle:
			t, ok := v.Type()
			if !ok {
				return nil, fmt.Errorf("%w: entry %d '%s': must be a type", ErrInvalidSignature, i, v)
			}
			out[i] = t
		default:
			return nil, fmt.Errorf("%w: entry %d '%s': unsupported entry", ErrInvalidSignature, i, entry)
		}
	}
	return out, nil
}

// TypeOf resolves a single type name. Pointer and slice prefixes compose
// with primitive spellings and registered names, e.g. "*int" or "[]main.Point".
func TypeOf(name string, names TypeResolver) (reflect.Type, bool) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return nil, false
	case strings.HasPrefix(name, "[]"):
		elem, ok := TypeOf(name[2:], names)
		if !ok {
			return nil, false
		}
		return reflect.SliceOf(elem), true
	}

	if t, ok := primitives[name]; ok {
		return t, true
	}
	if names != nil {
		if t, ok := names.TypeByName(name); ok {
			return t, true
		}
	}
	if strings.HasPrefix(name, "*") {
		elem, ok := TypeOf(name[1:], names)
		if !ok {
			return nil, false
		}
		return reflect.PointerTo(elem), true
	}
	return nil, false
}
