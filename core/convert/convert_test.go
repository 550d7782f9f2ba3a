package convert

import (
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/anoideaopen/reflectcall/core/value"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

type Shape interface{ Area() float64 }

type Square struct{ Side float64 }

func (s *Square) Area() float64 { return s.Side * s.Side }

type Config struct {
	Name  string `json:"name"`
	Limit int    `json:"limit"`
}

type names map[string]reflect.Type

func (n names) TypeByName(name string) (reflect.Type, bool) {
	t, ok := n[name]
	return t, ok
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func TestConvert(t *testing.T) {
	square := &Square{Side: 2}
	ten := 10

	testCases := []struct {
		name      string
		target    reflect.Type
		input     value.Value
		wantValue any
	}{
		{
			name:      "element to int",
			target:    typeOf[int](),
			input:     value.NewElement("5"),
			wantValue: 5,
		},
		{
			name:      "element to hex int",
			target:    typeOf[int64](),
			input:     value.NewElement("0x1f"),
			wantValue: int64(31),
		},
		{
			name:      "element to uint8",
			target:    typeOf[uint8](),
			input:     value.NewElement("255"),
			wantValue: uint8(255),
		},
		{
			name:      "element to float",
			target:    typeOf[float64](),
			input:     value.NewElement("1234.5678"),
			wantValue: 1234.5678,
		},
		{
			name:      "element to bool ignores case",
			target:    typeOf[bool](),
			input:     value.NewElement("TRUE"),
			wantValue: true,
		},
		{
			name:      "element to string is verbatim",
			target:    typeOf[string](),
			input:     value.NewElement(" 5 "),
			wantValue: " 5 ",
		},
		{
			name:      "element to pointer to int",
			target:    typeOf[*int](),
			input:     value.NewElement("10"),
			wantValue: &ten,
		},
		{
			name:      "element to bytes",
			target:    typeOf[[]byte](),
			input:     value.NewElement("abc"),
			wantValue: []byte("abc"),
		},
		{
			name:      "element to duration",
			target:    typeOf[time.Duration](),
			input:     value.NewElement("1m30s"),
			wantValue: 90 * time.Second,
		},
		{
			name:      "element to empty interface",
			target:    typeOf[any](),
			input:     value.NewElement("5"),
			wantValue: "5",
		},
		{
			name:      "element to type",
			target:    typeOf[reflect.Type](),
			input:     value.NewElement("*int"),
			wantValue: typeOf[*int](),
		},
		{
			name:      "element to JSON struct",
			target:    typeOf[Config](),
			input:     value.NewElement(`{"name":"a","limit":3}`),
			wantValue: Config{Name: "a", Limit: 3},
		},
		{
			name:      "element to JSON slice",
			target:    typeOf[[]float64](),
			input:     value.NewElement("[1234.5678, 1]"),
			wantValue: []float64{1234.5678, 1},
		},
		{
			name:      "handle passes through",
			target:    typeOf[*Square](),
			input:     value.NewHandle(square),
			wantValue: square,
		},
		{
			name:      "handle to implemented interface",
			target:    typeOf[Shape](),
			input:     value.NewHandle(square),
			wantValue: square,
		},
		{
			name:      "type handle to type",
			target:    typeOf[reflect.Type](),
			input:     value.TypeHandle[Square](),
			wantValue: typeOf[Square](),
		},
		{
			name:      "list to slice",
			target:    typeOf[[]int](),
			input:     value.ListOf("1", "2", "3"),
			wantValue: []int{1, 2, 3},
		},
		{
			name:      "list to array",
			target:    typeOf[[2]bool](),
			input:     value.ListOf("true", "false"),
			wantValue: [2]bool{true, false},
		},
		{
			name:      "nested list",
			target:    typeOf[[][]string](),
			input:     value.NewList(value.ListOf("a"), value.ListOf("b", "c")),
			wantValue: [][]string{{"a"}, {"b", "c"}},
		},
		{
			name:      "list to empty interface",
			target:    typeOf[any](),
			input:     value.ListOf("a", "b"),
			wantValue: []any{"a", "b"},
		},
	}

	c := New(names{}, nil)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := c.Convert(tc.target, tc.input, Commit)
			require.NoError(t, err)
			require.True(t, out.Type().AssignableTo(tc.target))
			require.Equal(t, tc.wantValue, out.Interface())
		})
	}
}

func TestConvertTextUnmarshaler(t *testing.T) {
	out, err := New(nil, nil).Convert(typeOf[*big.Int](), value.NewElement("123456789012345678901234567890"), Commit)
	require.NoError(t, err)
	require.Zero(t, mustBig("123456789012345678901234567890").Cmp(out.Interface().(*big.Int)))
}

func TestConvertProto(t *testing.T) {
	c := New(nil, nil)

	out, err := c.Convert(typeOf[*structpb.Struct](), value.NewElement(`{"a":1,"b":"x"}`), Commit)
	require.NoError(t, err)

	s := out.Interface().(*structpb.Struct)
	require.Equal(t, float64(1), s.GetFields()["a"].GetNumberValue())
	require.Equal(t, "x", s.GetFields()["b"].GetStringValue())

	_, err = c.Convert(typeOf[*structpb.Struct](), value.NewElement("not json"), Probe)
	require.ErrorIs(t, err, ErrConversionFailure)
}

func TestConvertFailures(t *testing.T) {
	testCases := []struct {
		name   string
		target reflect.Type
		input  value.Value
	}{
		{
			name:   "element to int",
			target: typeOf[int](),
			input:  value.NewElement("five"),
		},
		{
			name:   "int overflow",
			target: typeOf[int8](),
			input:  value.NewElement("300"),
		},
		{
			name:   "negative uint",
			target: typeOf[uint](),
			input:  value.NewElement("-1"),
		},
		{
			name:   "bool keyword",
			target: typeOf[bool](),
			input:  value.NewElement("yes"),
		},
		{
			name:   "element to struct without JSON",
			target: typeOf[Config](),
			input:  value.NewElement("name=a"),
		},
		{
			name:   "element to non-empty interface",
			target: typeOf[Shape](),
			input:  value.NewElement("square"),
		},
		{
			name:   "unknown type name",
			target: typeOf[reflect.Type](),
			input:  value.NewElement("Nope"),
		},
		{
			name:   "handle of another type",
			target: typeOf[*Config](),
			input:  value.NewHandle(&Square{}),
		},
		{
			name:   "nil handle to value type",
			target: typeOf[int](),
			input:  value.NewHandle(nil),
		},
		{
			name:   "list to scalar",
			target: typeOf[int](),
			input:  value.ListOf("1"),
		},
		{
			name:   "list with bad element",
			target: typeOf[[]int](),
			input:  value.ListOf("1", "x"),
		},
		{
			name:   "list to array of other length",
			target: typeOf[[3]int](),
			input:  value.ListOf("1"),
		},
		{
			name:   "element to slice",
			target: typeOf[[]int](),
			input:  value.NewElement("1, 2"),
		},
	}

	c := New(nil, nil)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Convert(tc.target, tc.input, Probe)
			require.ErrorIs(t, err, ErrConversionFailure)
		})
	}
}

func TestNilHandleToPointer(t *testing.T) {
	out, err := New(nil, nil).Convert(typeOf[*Square](), value.NewHandle(nil), Probe)
	require.NoError(t, err)
	require.True(t, out.IsNil())
}

func TestProbeIsSilentCommitReports(t *testing.T) {
	log, hook := test.NewNullLogger()
	c := New(nil, log)

	_, err := c.Convert(typeOf[int](), value.NewElement("x"), Probe)
	require.Error(t, err)
	require.Empty(t, hook.AllEntries())

	_, err = c.ConvertAll([]reflect.Type{typeOf[int](), typeOf[int]()}, []value.Value{value.NewElement("1"), value.NewElement("x")}, Probe)
	require.Error(t, err)
	require.Empty(t, hook.AllEntries())

	_, err = c.Convert(typeOf[int](), value.NewElement("x"), Commit)
	require.Error(t, err)
	require.Len(t, hook.AllEntries(), 1)
	require.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)

	hook.Reset()
	_, err = c.ConvertAll([]reflect.Type{typeOf[int]()}, []value.Value{value.NewElement("x")}, Commit)
	require.ErrorIs(t, err, ErrConversionFailure)
	require.Len(t, hook.AllEntries(), 1)
	require.Contains(t, hook.LastEntry().Message, "argument 0")
}

func TestConvertAllArity(t *testing.T) {
	_, err := New(nil, nil).ConvertAll([]reflect.Type{typeOf[int]()}, nil, Probe)
	require.ErrorIs(t, err, ErrConversionFailure)

	out, err := New(nil, nil).ConvertAll(nil, nil, Probe)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestValueError(t *testing.T) {
	err := NewValueError("x", typeOf[int](), nil)
	require.ErrorIs(t, err, ErrConversionFailure)
	require.Equal(t, "conversion failure: 'x': for type 'int'", err.Error())
}

func mustBig(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return n
}
