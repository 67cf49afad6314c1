package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIdentifiers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "empty", text: "", want: []string{}},
		{name: "exactly eighteen", text: "123456789012345678", want: []string{"123456789012345678"}},
		{name: "nineteen digits yields nothing", text: "1234567890123456789", want: []string{}},
		{name: "seventeen digits yields nothing", text: "12345678901234567", want: []string{}},
		{
			name: "two ids left to right",
			text: "id:111111111111111111 and 222222222222222222",
			want: []string{"111111111111111111", "222222222222222222"},
		},
		{
			name: "duplicates collapse in first-occurrence order",
			text: "333333333333333333\n111111111111111111 333333333333333333 111111111111111111",
			want: []string{"333333333333333333", "111111111111111111"},
		},
		{
			name: "bounded by letters and punctuation",
			text: "SSCC(00)123456789012345678X,987654321098765432.",
			want: []string{"123456789012345678", "987654321098765432"},
		},
		{
			name: "spaces split runs",
			text: "123456789 012345678",
			want: []string{},
		},
		{
			name: "thirty six digits is one long run",
			text: strings.Repeat("1", 36),
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractIdentifiers(tt.text)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractIdentifiersIsDeterministic(t *testing.T) {
	text := "Pallet 444444444444444444 / 555555555555555555 / 444444444444444444"
	assert.Equal(t, ExtractIdentifiers(text), ExtractIdentifiers(text))
}

func TestExtractIdentifiersIgnoresNonASCIIDigits(t *testing.T) {
	// Arabic-Indic digits are not decimal ASCII digits.
	assert.Empty(t, ExtractIdentifiers("١٢٣٤٥٦٧٨٩٠١٢٣٤٥٦٧٨"))
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("000000000000000001"))
	assert.False(t, IsIdentifier("00000000000000001"))
	assert.False(t, IsIdentifier("00000000000000000a"))
	assert.False(t, IsIdentifier(""))
}

func TestPageImageCloseCallsRelease(t *testing.T) {
	released := false
	PageImage{Release: func() { released = true }}.Close()
	assert.True(t, released)

	assert.NotPanics(t, func() { PageImage{}.Close() })
}
