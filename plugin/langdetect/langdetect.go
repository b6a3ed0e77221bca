// Package langdetect detects the language of short text passages.
package langdetect

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/pkg/errors"
	"golang.org/x/text/language"
)

// Detector identifies the language of a text. ok is false when detection is
// inconclusive.
type Detector interface {
	Detect(text string) (lang string, ok bool)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(text string) (string, bool)

func (f DetectorFunc) Detect(text string) (string, bool) {
	return f(text)
}

// Whatlang detects languages with whatlanggo trigram profiles and reports
// ISO 639-1 codes.
type Whatlang struct {
	// MinConfidence below which a detection counts as inconclusive.
	MinConfidence float64
}

// NewWhatlang creates a detector that only trusts reliable detections.
func NewWhatlang() *Whatlang {
	return &Whatlang{}
}

func (w *Whatlang) Detect(text string) (string, bool) {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() || info.Confidence < w.MinConfidence {
		return "", false
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return "", false
	}
	return code, true
}

// Normalize reduces a BCP 47 tag such as "en-GB" or "EN" to its base
// language code ("en").
func Normalize(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", errors.New("empty language code")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", errors.Wrapf(err, "invalid language code %q", code)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// Same reports whether two language codes share a base language.
func Same(a, b string) bool {
	na, err := Normalize(a)
	if err != nil {
		return false
	}
	nb, err := Normalize(b)
	if err != nil {
		return false
	}
	return na == nb
}
