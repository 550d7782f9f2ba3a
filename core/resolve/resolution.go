package resolve

import (
	"reflect"

	"github.com/anoideaopen/reflectcall/core/host"
)

// Resolution is the cached outcome of a lookup: either Found or NotFound.
type Resolution interface {
	resolution()
}

// Found is a member that matched, ready to be invoked.
type Found struct {
	Member host.Member
	// Params are the native parameter types arguments are converted to.
	Params []reflect.Type
	// Fn is the invocable. Instance methods take the receiver first.
	Fn reflect.Value
}

// NotFound is the tombstone stored when no member matched.
type NotFound struct{}

func (Found) resolution()    {}
func (NotFound) resolution() {}

// Static reports whether the member is called without a receiver.
func (f Found) Static() bool { return f.Member.Static }
