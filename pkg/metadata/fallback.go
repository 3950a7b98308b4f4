package metadata

// FallbackScheme substitutes an unavailable metadata value with one of the
// values actually present in a library. A scheme only selects from
// available; it never invents a value.
type FallbackScheme interface {
	Fallback(desired Metadata, available []Metadata) (Metadata, bool)
}

// LanguageFallback is the canonical scheme. Given a desired code and the
// available Language values it tries, in order: the exact code, the
// desired code's super-language chain, an available refinement of the
// desired code, a major world language, and finally any available code.
// Candidates are considered in the order given, so a fixed library yields
// a fixed answer.
type LanguageFallback struct{}

func (LanguageFallback) Fallback(desired Metadata, available []Metadata) (Metadata, bool) {
	want, ok := desired.(Language)
	if !ok {
		return nil, false
	}
	langs := make([]Language, 0, len(available))
	for _, m := range available {
		if l, ok := m.(Language); ok {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		return nil, false
	}

	for _, l := range langs {
		if l.Code == want.Code {
			return l, true
		}
	}
	for super, more := want.Code.Super(); ; super, more = super.Super() {
		for _, l := range langs {
			if l.Code == super {
				return l, true
			}
		}
		if !more {
			break
		}
	}
	for _, l := range langs {
		if l.Code.IsSubLanguageOf(want.Code) {
			return l, true
		}
	}
	for _, l := range langs {
		if l.Code.IsMajorLanguage() {
			return l, true
		}
	}
	return langs[0], true
}
