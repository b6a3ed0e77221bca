package langdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"en-GB", "en"},
		{" sv ", "sv"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := Normalize("")
	assert.Error(t, err)
	_, err = Normalize("not a language")
	assert.Error(t, err)
}

func TestSame(t *testing.T) {
	assert.True(t, Same("en", "en-US"))
	assert.False(t, Same("en", "fi"))
	assert.False(t, Same("", "en"))
}

func TestWhatlang_Detect(t *testing.T) {
	d := NewWhatlang()

	lang, ok := d.Detect("The quick brown fox jumps over the lazy dog and keeps running through the forest until the evening.")
	require.True(t, ok)
	assert.Equal(t, "en", lang)

	lang, ok = d.Detect("Tämä on suomenkielinen lause, jossa puhutaan metsästä ja järvistä sekä kesän pitkistä päivistä.")
	require.True(t, ok)
	assert.Equal(t, "fi", lang)
}

func TestDetectorFunc(t *testing.T) {
	var d Detector = DetectorFunc(func(string) (string, bool) { return "sv", true })
	lang, ok := d.Detect("anything")
	assert.True(t, ok)
	assert.Equal(t, "sv", lang)
}
