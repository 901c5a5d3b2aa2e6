package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSearchText(t *testing.T) {
	tests := []struct {
		name     string
		fields   []string
		expected string
	}{
		{
			name:     "Plain ascii is lowercased",
			fields:   []string{"Fix Fan"},
			expected: "fix fan",
		},
		{
			name:     "Vietnamese diacritics are stripped",
			fields:   []string{"Mua quạt trần"},
			expected: "mua quat tran",
		},
		{
			name:     "Stroke d maps to plain d",
			fields:   []string{"Đặng Văn Đức"},
			expected: "dang van duc",
		},
		{
			name:     "Empty fields are skipped",
			fields:   []string{"", "Title", "", "0123456789"},
			expected: "title 0123456789",
		},
		{
			name:     "Whitespace runs collapse",
			fields:   []string{"  sửa   máy  lạnh  "},
			expected: "sua may lanh",
		},
		{
			name:     "No fields",
			fields:   nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSearchText(tt.fields...))
		})
	}
}

func TestNormalizeSearchTextIdempotent(t *testing.T) {
	inputs := []string{
		"Mua quạt trần cho chị Hương",
		"Đà Nẵng, 123 Lê Duẩn",
		"plain ascii already",
	}

	for _, in := range inputs {
		once := NormalizeSearchText(in)
		twice := NormalizeSearchText(once)
		assert.Equal(t, once, twice)
	}
}

func TestNormalizeSearchTextMatchesAccentedAndPlain(t *testing.T) {
	// Both spellings of the same phrase must normalize identically so a
	// search typed without accents finds the accented record.
	assert.Equal(t,
		NormalizeSearchText("Mua quạt"),
		NormalizeSearchText("Mua quat"),
	)
}
