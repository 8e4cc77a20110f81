package notify

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateBody(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "short", input: "hello", want: "hello"},
		{name: "trimmed", input: "  hello \n", want: "hello"},
		{name: "exactly the limit", input: strings.Repeat("a", 80), want: strings.Repeat("a", 80)},
		{name: "one over the limit", input: strings.Repeat("a", 81), want: strings.Repeat("a", 80) + "…"},
		{name: "far over the limit", input: strings.Repeat("b", 200), want: strings.Repeat("b", 80) + "…"},
		{name: "multibyte runes", input: strings.Repeat("눈", 81), want: strings.Repeat("눈", 80) + "…"},
		{name: "empty", input: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateBody(tt.input)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestNormalizeTokens(t *testing.T) {
	got := NormalizeTokens([]string{" t1 ", "", "t2", "t1", "   ", "t3", "t2"})
	assert.Equal(t, []string{"t1", "t2", "t3"}, got)

	assert.Empty(t, NormalizeTokens(nil))
}
