package constraint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeVariants(t *testing.T) {
	cases := []struct {
		name      string
		input     string
		canonical string
	}{
		{"atom", `{"atom":"NO_EXFIL"}`, `{"atom":"NO_EXFIL"}`},
		{"and", `{"and":[{"atom":"A"},{"atom":"B"}]}`, `{"and":[{"atom":"A"},{"atom":"B"}]}`},
		{"or", `{"or":[{"atom":"A"},{"atom":"B"}]}`, `{"or":[{"atom":"A"},{"atom":"B"}]}`},
		{"not", `{"not":{"atom":"A"}}`, `{"not":{"atom":"A"}}`},
		{"nested same-op flattens", `{"and":[{"and":[{"atom":"A"},{"atom":"B"}]},{"atom":"C"}]}`,
			`{"and":[{"atom":"A"},{"atom":"B"},{"atom":"C"}]}`},
		{"key order irrelevant upstream", "{\n  \"atom\": \"A\"\n}", `{"atom":"A"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expr, err := Decode([]byte(tc.input))
			require.NoError(t, err)
			require.Equal(t, tc.canonical, Canonical(expr))
		})
	}
}

func TestDecodeCanonicalRoundTrip(t *testing.T) {
	expr, err := Parse("((A AND (NOT B)) OR SENSITIVE:HEALTH)")
	require.NoError(t, err)

	back, err := Decode([]byte(Canonical(expr)))
	require.NoError(t, err)
	require.True(t, Equal(expr, back))
}

func TestDecodeRejectsUnrecognizedShapes(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"not json", `{`},
		{"json string", `"NO_EXFIL"`},
		{"json number", `42`},
		{"array", `[{"atom":"A"}]`},
		{"empty object", `{}`},
		{"unknown tag", `{"xor":[{"atom":"A"},{"atom":"B"}]}`},
		{"two tags", `{"atom":"A","and":[]}`},
		{"atom not a string", `{"atom":7}`},
		{"atom empty", `{"atom":""}`},
		{"atom bad charset", `{"atom":"has space"}`},
		{"and not array", `{"and":{"atom":"A"}}`},
		{"and too few operands", `{"and":[{"atom":"A"}]}`},
		{"nested bad operand", `{"and":[{"atom":"A"},{"bogus":1}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.input))
			require.Error(t, err)
			var derr *DecodeError
			require.ErrorAs(t, err, &derr)
		})
	}
}
