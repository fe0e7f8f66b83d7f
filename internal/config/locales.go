package config

const (
	LangEN = "en"
	LangES = "es"

	defaultLang = LangEN
)

func IsSupportedLanguage(lang string) bool {
	switch lang {
	case LangEN, LangES:
		return true
	default:
		return false
	}
}

// GetLocaleConfig maps lang to a supported locale, falling back to English.
func GetLocaleConfig(lang string) string {
	if IsSupportedLanguage(lang) {
		return lang
	}
	return defaultLang
}
