package metadata

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// LanguageCode is a case-insensitive BCP-47-like code ("en", "en-us",
// "zh-hans-cn"). Codes are normalised to lower case on construction;
// well-formed tags are additionally canonicalised through x/text.
type LanguageCode string

// NewLanguageCode normalises a raw code. Unparseable input is kept as the
// lower-cased raw string so lookups still behave predictably.
func NewLanguageCode(code string) LanguageCode {
	code = strings.TrimSpace(code)
	if tag, err := language.Parse(code); err == nil {
		return LanguageCode(strings.ToLower(tag.String()))
	}
	return LanguageCode(strings.ToLower(code))
}

func (c LanguageCode) String() string { return string(c) }

// IsSubLanguageOf reports whether c refines parent: "en-us" is a
// sub-language of "en" (and of itself).
func (c LanguageCode) IsSubLanguageOf(parent LanguageCode) bool {
	s, p := string(c), string(parent)
	if !strings.HasPrefix(s, p) {
		return false
	}
	return len(s) == len(p) || s[len(p)] == '-'
}

// Super trims the last subtag: "zh-hans-cn" → "zh-hans". The second result
// is false when the code has no subtag to trim.
func (c LanguageCode) Super() (LanguageCode, bool) {
	i := strings.LastIndexByte(string(c), '-')
	if i < 0 {
		return c, false
	}
	return LanguageCode(c[:i]), true
}

// Topmost trims everything after the first subtag: "zh-hans-cn" → "zh".
func (c LanguageCode) Topmost() LanguageCode {
	if i := strings.IndexByte(string(c), '-'); i >= 0 {
		return c[:i]
	}
	return c
}

// majorLanguages is the built-in "major world languages" preference set the
// language fallback consults before settling for an arbitrary candidate.
var majorLanguages = map[LanguageCode]struct{}{
	"en": {}, "zh": {}, "hi": {}, "es": {}, "fr": {}, "ar": {},
	"bn": {}, "pt": {}, "ru": {}, "ja": {}, "de": {}, "id": {},
}

// IsMajorLanguage reports whether the code's topmost language is in the
// built-in major set.
func (c LanguageCode) IsMajorLanguage() bool {
	_, ok := majorLanguages[c.Topmost()]
	return ok
}

// Language attaches a target language to a template.
type Language struct {
	Code LanguageCode
}

// NewLanguage builds a Language metadata value from a raw code.
func NewLanguage(code string) Language {
	return Language{Code: NewLanguageCode(code)}
}

func (l Language) Key() string { return string(l.Code) }

func (l Language) String() string { return fmt.Sprintf("lang=%s", l.Code) }
