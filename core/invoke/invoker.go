package invoke

import (
	"fmt"
	"reflect"

	"github.com/anoideaopen/reflectcall/core/resolve"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Invoke calls the resolved member with already converted arguments. The
// receiver of an instance method must be args[0].
//
// A panic raised by the native code, or a non-nil trailing error result, is
// returned as ErrNativeInvocationFault. The result is the first non-error
// output, or all non-error outputs as []any when there are several and at
// least one of them is not nil. A nil result means the call produced nothing.
func Invoke(found resolve.Found, args []reflect.Value) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: %s: panic: %v", ErrNativeInvocationFault, found.Member, r)
		}
	}()

	var out []reflect.Value
	if found.Fn.Type().IsVariadic() {
		out = found.Fn.CallSlice(args)
	} else {
		out = found.Fn.Call(args)
	}

	if MethodReturnsError(found.Fn.Type()) {
		if errorValue := out[len(out)-1]; !errorValue.IsNil() {
			return nil, fmt.Errorf("%w: %s: %w", ErrNativeInvocationFault, found.Member, errorValue.Interface().(error)) //nolint:forcetypeassert
		}

		out = out[:len(out)-1]
	}

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return interfaceOf(out[0]), nil
	default:
		results := make([]any, len(out))
		produced := false
		for i, res := range out {
			results[i] = interfaceOf(res)
			produced = produced || results[i] != nil
		}
		if !produced {
			return nil, nil
		}
		return results, nil
	}
}

// MethodReturnsError reports whether the last result of fn is an error.
func MethodReturnsError(fn reflect.Type) bool {
	return fn.NumOut() > 0 && fn.Out(fn.NumOut()-1) == errorType
}

// interfaceOf returns nil for nil outputs, including a nil pointer returned
// inside an interface.
func interfaceOf(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return interfaceOf(v.Elem())
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	return v.Interface()
}
