package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    IRValue
		expected string
	}{
		{"string", IRString("hello"), `"hello"`},
		{"empty string", IRString(""), `""`},
		{"int", IRInt(42), "42"},
		{"negative int", IRInt(-100), "-100"},
		{"max int64", IRInt(9223372036854775807), "9223372036854775807"},
		{"bool true", IRBool(true), "true"},
		{"bool false", IRBool(false), "false"},
		{"empty array", IRArray{}, "[]"},
		{"empty object", IRObject{}, "{}"},
		{"array of ints", IRArray{IRInt(1), IRInt(2), IRInt(3)}, "[1,2,3]"},
		{"simple object", IRObject{"a": IRInt(1)}, `{"a":1}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := IRObject{
		"z": IRObject{
			"b": IRInt(1),
			"a": IRInt(2),
		},
		"a": IRInt(3),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(IRString("<a & b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(result))
}

func TestMarshalCanonicalRejectsNil(t *testing.T) {
	_, err := MarshalCanonical(IRArray{nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null is forbidden")
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	// "e" plus a combining acute accent (NFD) must serialize as U+00E9 (NFC).
	decomposed := IRString("e\u0301")
	composed := IRString("\u00e9")

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonicalU2028U2029NotEscaped(t *testing.T) {
	result, err := MarshalCanonical(IRString("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))
}

func TestMarshalCanonicalLiteralBackslashU2028(t *testing.T) {
	// A literal backslash followed by the text u2028 must stay escaped.
	result, err := MarshalCanonical(IRString(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(result))
}

func TestMarshalCanonicalIdempotency(t *testing.T) {
	obj := IRObject{
		"members": IRArray{IRObject{"name": IRString("x"), "type": IRString("nat8")}},
		"kind":    IRString("record"),
	}

	first, err := MarshalCanonical(obj)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalCanonical(obj)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSortedKeysUTF16Order(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00, which sort below U+FF5E
	// in UTF-16 even though UTF-8 orders them the other way round.
	obj := IRObject{
		"\uff5e":     IRInt(1),
		"\U0001F600": IRInt(2),
	}
	assert.Equal(t, []string{"\U0001F600", "\uff5e"}, obj.SortedKeys())
}
