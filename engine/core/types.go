package core

// -----------------------------------------------------------------------------
// Language
// -----------------------------------------------------------------------------

// Language is the conversation language carried through the whole pipeline.
type Language string

const (
	LanguageArabic  Language = "ar"
	LanguageFrench  Language = "fr"
	LanguageEnglish Language = "en"
)

func (l Language) IsValid() bool {
	switch l {
	case LanguageArabic, LanguageFrench, LanguageEnglish:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// Risk Level
// -----------------------------------------------------------------------------

// RiskLevel grades the medical risk of an incoming message.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// Map helpers
// -----------------------------------------------------------------------------

// CloneMap returns a shallow copy of m; nil in, nil out.
func CloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
