package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"empty", "", "", false},
		{"spaces only", "   ", "", false},
		{"nan marker", "nan", "", false},
		{"none marker", "None", "", false},
		{"trim and upper", "  abc12 ", "ABC12", true},
		{"numeric text", "88316.0", "88316", true},
		{"only one suffix stripped", "10.0.0", "10.0", true},
		{"keeps inner dots", "1.2.3", "1.2.3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanCode(t *testing.T) {
	got, ok := CleanCode(" 01.02-003 ")
	assert.True(t, ok)
	assert.Equal(t, "0102003", got)

	_, ok = CleanCode(".-")
	assert.False(t, ok)

	_, ok = CleanCode("nan")
	assert.False(t, ok)
}

func TestParseLenient(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{"12.5", 12.5, true},
		{"12,5", 12.5, true},
		{" 1.234,56 ", 1234.56, true},
		{"-3", -3, true},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseLenient(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseFloatDefaultsToZero(t *testing.T) {
	assert.Equal(t, 0.0, ParseFloat("not a number"))
	assert.Equal(t, 0.0, ParseFloat(""))
	assert.Equal(t, 7.25, ParseFloat("7,25"))
}

func TestCursor(t *testing.T) {
	var c Cursor
	_, open := c.Current()
	assert.False(t, open)
	assert.Equal(t, CursorNone, c.State())

	c.Enter("A")
	code, open := c.Current()
	assert.True(t, open)
	assert.Equal(t, "A", code)
	assert.Equal(t, "IN_COMPOSITION", c.State().String())

	c.Reset()
	_, open = c.Current()
	assert.False(t, open)
}
