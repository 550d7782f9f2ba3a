package invoke

import (
	"errors"
	"reflect"
	"testing"

	"github.com/anoideaopen/reflectcall/core/host"
	"github.com/anoideaopen/reflectcall/core/resolve"
	"github.com/stretchr/testify/require"
)

func found(fn any) resolve.Found {
	fv := reflect.ValueOf(fn)
	return resolve.Found{
		Member: host.Member{Owner: widgetType, Name: "fn", Static: true},
		Fn:     fv,
	}
}

func values(args ...any) []reflect.Value {
	out := make([]reflect.Value, len(args))
	for i, a := range args {
		out[i] = reflect.ValueOf(a)
	}
	return out
}

func TestInvoke(t *testing.T) {
	testCases := []struct {
		name     string
		fn       any
		args     []reflect.Value
		expected any
	}{
		{
			name:     "no results",
			fn:       func() {},
			expected: nil,
		},
		{
			name:     "single result",
			fn:       func(a, b int) int { return a + b },
			args:     values(2, 3),
			expected: 5,
		},
		{
			name:     "nil error is dropped",
			fn:       func() (string, error) { return "ok", nil },
			expected: "ok",
		},
		{
			name:     "nil pointer result",
			fn:       func() *Widget { return nil },
			expected: nil,
		},
		{
			name:     "nil pointer inside an interface",
			fn:       func() any { return (*Widget)(nil) },
			expected: nil,
		},
		{
			name:     "several nil results",
			fn:       func() (*Widget, []int, error) { return nil, nil, nil },
			expected: nil,
		},
		{
			name:     "several results with one nil",
			fn:       func() (*Widget, int) { return nil, 3 },
			expected: []any{nil, 3},
		},
		{
			name:     "interface result keeps its dynamic value",
			fn:       func() any { return 7 },
			expected: 7,
		},
		{
			name:     "several results",
			fn:       func() (int, bool) { return 1, true },
			expected: []any{1, true},
		},
		{
			name:     "variadic",
			fn:       func(xs ...int) int { return len(xs) },
			args:     values([]int{1, 2, 3}),
			expected: 3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Invoke(found(tc.fn), tc.args)
			require.NoError(t, err)
			require.Equal(t, tc.expected, out)
		})
	}
}

func TestInvokeFaults(t *testing.T) {
	boom := errors.New("boom")

	_, err := Invoke(found(func() (int, error) { return 0, boom }), nil)
	require.ErrorIs(t, err, ErrNativeInvocationFault)
	require.ErrorIs(t, err, boom)

	_, err = Invoke(found(func() { panic("bad state") }), nil)
	require.ErrorIs(t, err, ErrNativeInvocationFault)
	require.Contains(t, err.Error(), "bad state")

	var nilMap map[string]int
	_, err = Invoke(found(func() { nilMap["x"] = 1 }), nil)
	require.ErrorIs(t, err, ErrNativeInvocationFault)
}

func TestMethodReturnsError(t *testing.T) {
	require.True(t, MethodReturnsError(reflect.TypeOf(func() error { return nil })))
	require.True(t, MethodReturnsError(reflect.TypeOf(func() (int, error) { return 0, nil })))
	require.False(t, MethodReturnsError(reflect.TypeOf(func() {})))
	require.False(t, MethodReturnsError(reflect.TypeOf(func() (error, int) { return nil, 0 }))) //nolint:stylecheck
}
