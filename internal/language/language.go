package language

import (
	"sort"
	"strings"
)

// Language represents a supported language.
type Language struct {
	Code string
	Name string
}

// Languages maps supported language codes (and common aliases) to languages.
var Languages = map[string]Language{
	"ar":      {Code: "ar", Name: "Arabic"},
	"bg":      {Code: "bg", Name: "Bulgarian"},
	"cs":      {Code: "cs", Name: "Czech"},
	"da":      {Code: "da", Name: "Danish"},
	"de":      {Code: "de", Name: "German"},
	"el":      {Code: "el", Name: "Greek"},
	"en":      {Code: "en", Name: "English"},
	"es":      {Code: "es", Name: "Spanish"},
	"fa":      {Code: "fa", Name: "Persian"},
	"fi":      {Code: "fi", Name: "Finnish"},
	"fr":      {Code: "fr", Name: "French"},
	"he":      {Code: "he", Name: "Hebrew"},
	"hi":      {Code: "hi", Name: "Hindi"},
	"hu":      {Code: "hu", Name: "Hungarian"},
	"id":      {Code: "id", Name: "Indonesian"},
	"it":      {Code: "it", Name: "Italian"},
	"ja":      {Code: "ja", Name: "Japanese"},
	"ko":      {Code: "ko", Name: "Korean"},
	"ms":      {Code: "ms", Name: "Malay"},
	"nl":      {Code: "nl", Name: "Dutch"},
	"no":      {Code: "no", Name: "Norwegian"},
	"pl":      {Code: "pl", Name: "Polish"},
	"pt":      {Code: "pt", Name: "Portuguese"},
	"ro":      {Code: "ro", Name: "Romanian"},
	"ru":      {Code: "ru", Name: "Russian"},
	"sv":      {Code: "sv", Name: "Swedish"},
	"th":      {Code: "th", Name: "Thai"},
	"tr":      {Code: "tr", Name: "Turkish"},
	"uk":      {Code: "uk", Name: "Ukrainian"},
	"vi":      {Code: "vi", Name: "Vietnamese"},
	"zh":      {Code: "zh-Hans", Name: "Chinese (Simplified)"}, // default to Simplified
	"zh-Hans": {Code: "zh-Hans", Name: "Chinese (Simplified)"},
	"zh-Hant": {Code: "zh-Hant", Name: "Chinese (Traditional)"},
}

// GetLanguage looks up a language by code or English name (case-insensitive).
func GetLanguage(input string) (Language, bool) {
	needle := strings.TrimSpace(input)
	if needle == "" {
		return Language{}, false
	}
	if lang, ok := Languages[needle]; ok {
		return lang, true
	}
	lower := strings.ToLower(needle)
	if lang, ok := Languages[lower]; ok {
		return lang, true
	}
	for _, lang := range Languages {
		if strings.EqualFold(lang.Name, needle) {
			return lang, true
		}
	}
	return Language{}, false
}

// Supported returns the distinct supported languages sorted by name.
func Supported() []Language {
	seen := make(map[string]bool, len(Languages))
	var langs []Language
	for _, lang := range Languages {
		if seen[lang.Code] {
			continue
		}
		seen[lang.Code] = true
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i].Name < langs[j].Name })
	return langs
}
