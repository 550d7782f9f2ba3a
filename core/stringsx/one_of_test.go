package stringsx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOneOf(t *testing.T) {
	testCases := []struct {
		name     string
		s        string
		ss       []string
		expected bool
	}{
		{
			name:     "refused member listed",
			s:        "Reset",
			ss:       []string{"Close", "Reset"},
			expected: true,
		},
		{
			name:     "member not listed",
			s:        "Value",
			ss:       []string{"Close", "Reset"},
			expected: false,
		},
		{
			name:     "empty list",
			s:        "Value",
			expected: false,
		},
		{
			name:     "empty name matches only empty entry",
			s:        "",
			ss:       []string{"Close", ""},
			expected: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, OneOf(tc.s, tc.ss...))
		})
	}
}
