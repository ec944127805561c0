package guard

import (
	"regexp"
	"strings"

	"github.com/pharmachat/pharmachat/engine/core"
	"github.com/pharmachat/pharmachat/engine/store"
)

// riskPatterns match medical-risk language: dosage questions, diagnosis
// requests, drug interactions, pregnancy, infants and severe symptoms, in
// the three supported languages. Evaluated ahead of intent classification so
// no retrieval evidence is ever exposed to a flagged message.
var riskPatterns = []struct {
	re     *regexp.Regexp
	reason string
}{
	{regexp.MustCompile(`(?i)\b(dosage|dose|how (much|many|often).{0,30}(take|give)|mg per|overdose)\b`), "dosage"},
	{regexp.MustCompile(`(?i)\b(diagnos\w*|what (disease|illness|condition) do i have|is it (cancer|diabetes))\b`), "diagnosis"},
	{regexp.MustCompile(`(?i)\b(interact\w*|mix\w*|combin\w*|together with|same time as)\b.{0,40}\b(medicine|medication|drug|pill|antibiotic)`), "interaction"},
	{regexp.MustCompile(`(?i)\b(pregnan\w*|enceinte|breastfeed\w*|allaite\w*)\b`), "pregnancy"},
	{regexp.MustCompile(`(?i)\b(my (baby|infant|child|kid)|newborn|nourrisson|for a \d+[ -](month|year)[ -]old)\b`), "child"},
	{regexp.MustCompile(`(?i)\b(chest pain|can'?t breathe|difficulty breathing|severe (pain|bleeding)|blood in|suicid\w*|unconscious)\b`), "severe_symptoms"},
	{regexp.MustCompile(`حامل|مرضع|جرعة|رضيع|طفلي|تشخيص|نزيف|ألم شديد|صعوبة التنفس`), "risk_ar"},
	{regexp.MustCompile(`(?i)grossesse|posologie|surdosage|douleur (thoracique|intense)|saignement`), "risk_fr"},
}

// Check pattern-matches message for medical-risk language. It returns the
// matched category so callers can audit-log why a conversation escalated.
func Check(message string) (bool, string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return false, ""
	}
	for _, p := range riskPatterns {
		if p.re.MatchString(trimmed) {
			return true, p.reason
		}
	}
	return false, ""
}

// SafetyResponse composes the localized safety-first reply. No retrieval
// output is ever included.
func SafetyResponse(tenant *store.Tenant, lang core.Language) string {
	contact := ""
	if tenant != nil {
		contact = tenant.Contact()
	}
	switch lang {
	case core.LanguageArabic:
		msg := "سلامتك أهم شيء. هذا السؤال يحتاج رأي صيدلي أو طبيب، لذلك لا يمكنني الإجابة عليه آليًا."
		if contact != "" {
			msg += " يرجى التواصل مع الصيدلية مباشرة: " + contact
		}
		return msg
	case core.LanguageFrench:
		msg := "Votre sécurité passe avant tout. Cette question nécessite l'avis d'un pharmacien ou d'un médecin, je ne peux donc pas y répondre automatiquement."
		if contact != "" {
			msg += " Veuillez contacter la pharmacie directement : " + contact
		}
		return msg
	default:
		msg := "Your safety comes first. This question needs a pharmacist or doctor, so I can't answer it automatically."
		if contact != "" {
			msg += " Please contact the pharmacy directly: " + contact
		}
		return msg
	}
}
