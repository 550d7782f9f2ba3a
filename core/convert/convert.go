// Package convert turns script values into native values of a requested type.
//
// Conversion runs in one of two modes. Probe is used while candidate overloads
// are being ranked: a failure only disqualifies the candidate and is never
// reported. Commit is used once a member has been chosen: a failure is a user
// facing error and is logged.
package convert

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/anoideaopen/reflectcall/core/signature"
	"github.com/anoideaopen/reflectcall/core/value"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// ErrConversionFailure is returned when a value cannot be converted to the requested type.
var ErrConversionFailure = errors.New("conversion failure")

// Mode selects whether conversion failures are reported.
type Mode int

const (
	Probe Mode = iota
	Commit
)

var (
	typeType     = reflect.TypeOf((*reflect.Type)(nil)).Elem()
	durationType = reflect.TypeOf(time.Duration(0))
	bytesType    = reflect.TypeOf([]byte(nil))
)

// Converter converts script values into native values.
type Converter struct {
	names signature.TypeResolver
	log   logrus.FieldLogger
}

// New creates a converter. names resolves type names for reflect.Type
// targets and may be nil.
func New(names signature.TypeResolver, log logrus.FieldLogger) *Converter {
	return &Converter{names: names, log: log}
}

// WithLogger returns a copy of c reporting Commit failures to log.
func (c *Converter) WithLogger(log logrus.FieldLogger) *Converter {
	return &Converter{names: c.names, log: log}
}

// Convert converts v into a value assignable to target.
func (c *Converter) Convert(target reflect.Type, v value.Value, mode Mode) (reflect.Value, error) {
	out, err := c.convert(target, v)
	if err != nil && mode == Commit && c.log != nil {
		c.log.WithField("target", target.String()).Error(err.Error())
	}
	return out, err
}

// ConvertAll converts args against params. It stops at the first failure,
// which in Commit mode is reported once.
func (c *Converter) ConvertAll(params []reflect.Type, args []value.Value, mode Mode) ([]reflect.Value, error) {
	out, err := c.convertAll(params, args)
	if err != nil && mode == Commit && c.log != nil {
		c.log.Error(err.Error())
	}
	return out, err
}

func (c *Converter) convertAll(params []reflect.Type, args []value.Value) ([]reflect.Value, error) {
	if len(params) != len(args) {
		return nil, fmt.Errorf("%w: found %d arguments but expected %d", ErrConversionFailure, len(args), len(params))
	}

	out := make([]reflect.Value, len(args))
	for i, arg := range args {
		v, err := c.convert(params[i], arg)
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d", err, i)
		}
		out[i] = v
	}
	return out, nil
}

func (c *Converter) convert(target reflect.Type, v value.Value) (reflect.Value, error) {
	switch val := v.(type) {
	case *value.Handle:
		return c.fromHandle(target, val)
	case *value.Element:
		return c.fromElement(target, val.String())
	case *value.List:
		return c.fromList(target, val)
	case nil:
		return reflect.Value{}, NewValueError("<nil>", target, nil)
	default:
		return reflect.Value{}, NewValueError(v.String(), target, nil)
	}
}

func (c *Converter) fromHandle(target reflect.Type, h *value.Handle) (reflect.Value, error) {
	obj := h.Object()
	if obj == nil {
		switch target.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(target), nil
		}
		return reflect.Value{}, NewValueError(h.String(), target, nil)
	}

	rv := reflect.ValueOf(obj)
	if rv.Type().AssignableTo(target) {
		return rv, nil
	}
	if t, ok := h.Type(); ok && target == typeType {
		return reflect.ValueOf(&t).Elem(), nil
	}
	return reflect.Value{}, NewValueError(h.String(), target, nil)
}

func (c *Converter) fromList(target reflect.Type, l *value.List) (reflect.Value, error) {
	switch target.Kind() {
	case reflect.Slice:
		out := reflect.MakeSlice(target, l.Len(), l.Len())
		for i := 0; i < l.Len(); i++ {
			elem, err := c.convert(target.Elem(), l.At(i))
			if err != nil {
				return reflect.Value{}, fmt.Errorf("%w: element %d", err, i)
			}
			out.Index(i).Set(elem)
		}
		return out, nil
	case reflect.Array:
		if target.Len() != l.Len() {
			return reflect.Value{}, NewValueError(l.String(), target,
				fmt.Errorf("expected %d elements, found %d", target.Len(), l.Len()))
		}
		out := reflect.New(target).Elem()
		for i := 0; i < l.Len(); i++ {
			elem, err := c.convert(target.Elem(), l.At(i))
			if err != nil {
				return reflect.Value{}, fmt.Errorf("%w: element %d", err, i)
			}
			out.Index(i).Set(elem)
		}
		return out, nil
	case reflect.Interface:
		if target.NumMethod() != 0 {
			break
		}
		anyType := reflect.TypeOf((*any)(nil)).Elem()
		items, err := c.fromList(reflect.SliceOf(anyType), l)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(target).Elem()
		out.Set(items)
		return out, nil
	}
	return reflect.Value{}, NewValueError(l.String(), target, nil)
}

// fromElement parses s according to the grammar of target. The decoder
// interfaces are tried before generic kind-based parsing, so a named type
// with its own text form wins over its underlying kind.
func (c *Converter) fromElement(target reflect.Type, s string) (reflect.Value, error) {
	switch {
	case target == typeType:
		t, ok := signature.TypeOf(s, c.names)
		if !ok {
			return reflect.Value{}, NewValueError(s, target, errors.New("unknown type"))
		}
		return reflect.ValueOf(&t).Elem(), nil
	case target == durationType:
		d, err := time.ParseDuration(s)
		if err != nil {
			return reflect.Value{}, NewValueError(s, target, err)
		}
		return reflect.ValueOf(d), nil
	case target == bytesType:
		return reflect.ValueOf([]byte(s)), nil
	case target.Kind() == reflect.Interface && target.NumMethod() == 0:
		out := reflect.New(target).Elem()
		out.Set(reflect.ValueOf(s))
		return out, nil
	}

	if out, ok, err := decode(target, s); ok {
		return out, err
	}

	if target.Kind() == reflect.Pointer {
		elem, err := c.fromElement(target.Elem(), s)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(target.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}

	out := reflect.New(target).Elem()
	if err := parseScalar(out, s); err != nil {
		return reflect.Value{}, NewValueError(s, target, err)
	}
	return out, nil
}

// decode tries the decoding interfaces implemented by target or *target.
// ok reports whether one of them applied.
func decode(target reflect.Type, s string) (out reflect.Value, ok bool, err error) {
	raw := []byte(s)
	pointer := target.Kind() == reflect.Pointer

	var argValue reflect.Value
	if pointer {
		argValue = reflect.New(target.Elem())
		out = argValue
	} else {
		argValue = reflect.New(target)
		out = argValue.Elem()
	}
	arg := argValue.Interface()

	if message, isMessage := arg.(proto.Message); isMessage {
		if err := protojson.Unmarshal(raw, message); err != nil {
			return reflect.Value{}, true, NewValueError(s, target, err)
		}
		return out, true, nil
	}

	if unmarshaler, isText := arg.(encoding.TextUnmarshaler); isText {
		if err := unmarshaler.UnmarshalText(raw); err != nil {
			return reflect.Value{}, true, NewValueError(s, target, err)
		}
		return out, true, nil
	}

	base := target
	if pointer {
		base = target.Elem()
	}
	switch base.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		if !json.Valid(raw) {
			return reflect.Value{}, true, NewValueError(s, target, errors.New("not a JSON document"))
		}
		if err := json.Unmarshal(raw, arg); err != nil {
			return reflect.Value{}, true, NewValueError(s, target, err)
		}
		return out, true, nil
	}

	return reflect.Value{}, false, nil
}

func parseScalar(out reflect.Value, s string) error {
	switch out.Kind() {
	case reflect.String:
		out.SetString(s)
	case reflect.Bool:
		switch strings.ToLower(s) {
		case "true":
			out.SetBool(true)
		case "false":
			out.SetBool(false)
		default:
			return fmt.Errorf("'%s' is not a boolean", s)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 0, out.Type().Bits())
		if err != nil {
			return err
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(s, 0, out.Type().Bits())
		if err != nil {
			return err
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, out.Type().Bits())
		if err != nil {
			return err
		}
		out.SetFloat(f)
	case reflect.Complex64, reflect.Complex128:
		z, err := strconv.ParseComplex(s, out.Type().Bits())
		if err != nil {
			return err
		}
		out.SetComplex(z)
	default:
		return errors.New("unsupported type")
	}
	return nil
}
