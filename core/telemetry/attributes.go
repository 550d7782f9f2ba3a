package telemetry

import "go.opentelemetry.io/otel/attribute"

type CallKindNum int

func (t CallKindNum) String() string {
	switch t {
	case CallInstance:
		return "instance"
	case CallStatic:
		return "static"
	case CallConstructor:
		return "constructor"
	case CallUnknown:
		fallthrough
	default:
		return "unknown"
	}
}

const (
	CallUnknown CallKindNum = iota
	CallInstance
	CallStatic
	CallConstructor
)

func CallKind(t CallKindNum) attribute.KeyValue {
	return attribute.String("call_kind", t.String())
}

func Member(name string) attribute.KeyValue {
	return attribute.String("member", name)
}

func Owner(name string) attribute.KeyValue {
	return attribute.String("owner", name)
}

func Arity(n int) attribute.KeyValue {
	return attribute.Int("arity", n)
}

func ExplicitSignature(explicit bool) attribute.KeyValue {
	return attribute.Bool("explicit_signature", explicit)
}

func CallID(id string) attribute.KeyValue {
	return attribute.String("call_id", id)
}
