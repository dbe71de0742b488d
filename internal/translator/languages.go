package translator

import (
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// supportedLanguages is the fixed set of language codes the pipeline
// accepts as translation targets.
var supportedLanguages = map[string]bool{
	"ar": true, "cs": true, "da": true, "de": true, "el": true,
	"en": true, "es": true, "fi": true, "fr": true, "he": true,
	"hi": true, "id": true, "it": true, "ja": true, "ko": true,
	"nl": true, "pl": true, "pt": true, "ru": true, "sv": true,
	"th": true, "tr": true, "uk": true, "vi": true, "zh": true,
}

// IsSupported reports whether code is a valid translation target.
func IsSupported(code string) bool {
	return supportedLanguages[code]
}

// SupportedLanguages returns the sorted list of valid language codes.
func SupportedLanguages() []string {
	codes := make([]string, 0, len(supportedLanguages))
	for code := range supportedLanguages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// LanguageName returns the English display name for a language code,
// used in prompts and error messages. Unparseable codes are returned
// unchanged.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}
