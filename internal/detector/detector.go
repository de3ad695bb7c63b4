package detector

import (
	"unicode/utf8"

	lingua "github.com/pemistahl/lingua-go"
)

// MinGuardLength is the rune count below which IsEnglish does not judge.
const MinGuardLength = 20

// guardLanguages are the languages most often pasted instead of English.
var guardLanguages = []lingua.Language{
	lingua.English,
	lingua.French,
	lingua.German,
	lingua.Spanish,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Latin,
	lingua.Polish,
	lingua.Russian,
	lingua.Ukrainian,
}

type Detector struct {
	detector lingua.LanguageDetector
}

func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(guardLanguages...).
		Build()

	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return lang.IsoCode639_1().String(), true
}

// IsEnglish reports whether text may be treated as English input. Short
// text and text whose language cannot be determined pass.
func (d *Detector) IsEnglish(text string) bool {
	if utf8.RuneCountInString(text) < MinGuardLength {
		return true
	}
	lang, ok := d.Detect(text)
	if !ok {
		return true
	}
	return lang == lingua.English
}
