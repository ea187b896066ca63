package domain

import "strings"

// Language is one of the site's supported content languages.
type Language string

const (
	LangTR Language = "tr"
	LangEN Language = "en"
	LangDE Language = "de"
	LangFR Language = "fr"
)

// DefaultLanguage is the language every localized field must populate.
const DefaultLanguage = LangTR

// Languages lists the closed set of supported languages in fallback order.
var Languages = []Language{LangTR, LangEN, LangDE, LangFR}

// LocalizedText holds one string per supported language. It is a fixed-shape
// record rather than an open map so missing-language fallback stays explicit.
type LocalizedText struct {
	TR string `json:"tr,omitempty"`
	EN string `json:"en,omitempty"`
	DE string `json:"de,omitempty"`
	FR string `json:"fr,omitempty"`
}

// Get returns the text for lang, falling back to the default language and then
// to the first populated language.
func (t LocalizedText) Get(lang Language) string {
	if v := t.get(lang); v != "" {
		return v
	}
	if v := t.get(DefaultLanguage); v != "" {
		return v
	}
	for _, l := range Languages {
		if v := t.get(l); v != "" {
			return v
		}
	}
	return ""
}

func (t LocalizedText) get(lang Language) string {
	switch lang {
	case LangTR:
		return t.TR
	case LangEN:
		return t.EN
	case LangDE:
		return t.DE
	case LangFR:
		return t.FR
	}
	return ""
}

// IsEmpty reports whether no language is populated.
func (t LocalizedText) IsEmpty() bool {
	return t.TR == "" && t.EN == "" && t.DE == "" && t.FR == ""
}

// HasDefault reports whether the required default-language text is populated.
func (t LocalizedText) HasDefault() bool {
	return strings.TrimSpace(t.get(DefaultLanguage)) != ""
}

// Trim returns a copy with surrounding whitespace removed from every language.
func (t LocalizedText) Trim() LocalizedText {
	return LocalizedText{
		TR: strings.TrimSpace(t.TR),
		EN: strings.TrimSpace(t.EN),
		DE: strings.TrimSpace(t.DE),
		FR: strings.TrimSpace(t.FR),
	}
}

// CustomField is one localized name/value pair attached to an option.
type CustomField struct {
	Name  LocalizedText `json:"field_name"`
	Value LocalizedText `json:"field_value"`
}

// CleanCustomFields drops entries missing either a default-language name or
// value, mirroring the create/update validation for option metadata.
func CleanCustomFields(fields []CustomField) []CustomField {
	cleaned := make([]CustomField, 0, len(fields))
	for _, f := range fields {
		f.Name = f.Name.Trim()
		f.Value = f.Value.Trim()
		if f.Name.HasDefault() && f.Value.HasDefault() {
			cleaned = append(cleaned, f)
		}
	}
	return cleaned
}
