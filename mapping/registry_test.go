package mapping

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_Builtins(t *testing.T) {
	reg := DefaultRegistry()

	cases := map[string]struct {
		in   string
		want string
	}{
		"upper": {in: "hello", want: "HELLO"},
		"lower": {in: "HELLO", want: "hello"},
		"trim":  {in: "  hello  ", want: "hello"},
	}

	for name, tc := range cases {
		transform, ok := reg.Get(name)
		require.True(t, ok, "builtin %s missing", name)
		assert.Equal(t, TypeString, transform.Input)
		assert.Equal(t, TypeString, transform.Output)

		out, err := transform.Fn(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, out)
	}
}

func TestDefaultRegistry_BuiltinsRejectNonStrings(t *testing.T) {
	reg := DefaultRegistry()

	upper, _ := reg.Get("upper")
	_, err := upper.Fn(42)

	assert.Error(t, err)
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.Get("reverse")
	assert.False(t, ok)

	reg.Register(Transform{
		Name:   "reverse",
		Input:  TypeString,
		Output: TypeString,
		Fn: func(value any) (any, error) {
			s := value.(string)
			runes := []rune(s)
			for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
				runes[i], runes[j] = runes[j], runes[i]
			}
			return string(runes), nil
		},
	})

	transform, ok := reg.Get("reverse")
	require.True(t, ok)
	out, err := transform.Fn("abc")
	require.NoError(t, err)
	assert.Equal(t, "cba", out)
}

func TestRegistry_RegisterReplacesByName(t *testing.T) {
	reg := NewRegistry()

	reg.Register(Transform{Name: "t", Input: TypeString, Output: TypeString,
		Fn: func(value any) (any, error) { return "first", nil }})
	reg.Register(Transform{Name: "t", Input: TypeString, Output: TypeString,
		Fn: func(value any) (any, error) { return strings.ToUpper("second"), nil }})

	transform, ok := reg.Get("t")
	require.True(t, ok)
	out, err := transform.Fn("x")
	require.NoError(t, err)
	assert.Equal(t, "SECOND", out)
}
