package router

import (
	"strings"

	"github.com/pharmachat/pharmachat/engine/core"
	"github.com/pharmachat/pharmachat/engine/retriever"
)

// Keyword sets for the deterministic fallback classifier. Membership tests
// run against the lowercased message.
var (
	greetingTerms = []string{
		"hi", "hello", "hey", "good morning", "good evening",
		"bonjour", "bonsoir", "salut",
		"سلام", "السلام عليكم", "مرحبا", "اهلا", "أهلا", "صباح الخير", "مساء الخير",
	}
	riskTerms = []string{
		"dosage", "dose", "pregnant", "pregnancy", "breastfeed", "overdose",
		"side effect", "interaction", "diagnos", "symptom",
		"enceinte", "posologie", "effet secondaire", "grossesse",
		"حامل", "جرعة", "أعراض", "اعراض", "تشخيص", "مرضع",
	}
	medicineTerms = []string{
		"medicine", "medication", "drug", "tablet", "pill", "syrup", "capsule",
		"antibiotic", "paracetamol", "stock", "available", "availability",
		"médicament", "comprimé", "sirop", "disponible",
		"دواء", "دوا", "حبوب", "شراب", "متوفر", "عندكم", "موجود",
	}
	hoursTerms = []string{
		"open", "close", "hours", "contact", "phone", "number", "address", "location", "where are you",
		"horaire", "ouvert", "fermé", "adresse", "téléphone",
		"ساعات", "مفتوح", "مغلق", "عنوان", "رقم", "هاتف", "وين", "فين",
	}
	deliveryTerms = []string{
		"deliver", "delivery", "shipping", "cash on delivery", "cod",
		"livraison", "livrer",
		"توصيل", "التوصيل", "شحن", "الدفع عند الاستلام",
	}
	appointmentTerms = []string{
		"appointment", "book", "booking", "consultation", "vaccination", "vaccine", "test",
		"rendez-vous", "rdv", "réserver",
		"موعد", "حجز", "احجز", "تطعيم", "لقاح", "تحليل",
	}
	uploadTerms = []string{
		"upload", "send my prescription", "i have a prescription", "doctor gave me a prescription",
		"envoyer mon ordonnance", "j'ai une ordonnance", "mon ordonnance",
		"عندي وصفة", "وصفة طبية", "أرسل الوصفة", "ارسل الوصفة",
	}
	cartTerms = []string{
		"cart", "basket", "add it", "add that", "add this", "my order", "checkout", "view cart",
		"panier", "commande", "ajoute",
		"سلة", "السلة", "أضف", "اضف", "طلبي",
	}
	productTerms = []string{
		"cream", "lotion", "shampoo", "sunscreen", "vitamin", "supplement", "diaper", "baby milk",
		"crème", "vitamine", "complément",
		"كريم", "شامبو", "فيتامين", "مكمل", "حفاضات", "حليب",
	}
)

// rule is one entry of the ordered fallback table. First match wins.
type rule struct {
	match      func(msg string) bool
	intent     Intent
	confidence float64
}

var fallbackRules = []rule{
	{isGreetingOnly, IntentGreeting, 0.9},
	{matchAny(riskTerms), IntentRisky, 0.9},
	{matchAny(uploadTerms), IntentUpload, 0.8},
	{matchAny(medicineTerms), IntentMedicineSearch, 0.75},
	{matchAny(hoursTerms), IntentHoursContact, 0.8},
	{matchAny(deliveryTerms), IntentDelivery, 0.8},
	{matchAny(appointmentTerms), IntentAppointment, 0.8},
	{matchAny(cartTerms), IntentCart, 0.7},
	{matchAny(productTerms), IntentProductSearch, 0.65},
}

func matchAny(terms []string) func(string) bool {
	return func(msg string) bool {
		for _, term := range terms {
			if strings.Contains(msg, term) {
				return true
			}
		}
		return false
	}
}

func isGreetingOnly(msg string) bool {
	trimmed := strings.Trim(msg, " !.?؟,")
	for _, term := range greetingTerms {
		if trimmed == term || strings.HasPrefix(trimmed, term+" ") && len([]rune(trimmed)) <= len([]rune(term))+12 {
			return true
		}
	}
	return false
}

// looksLikeAvailability reports whether the message reads as a plain stock
// query once risk wording is ignored. Used to downgrade over-cautious
// high-risk classifications back to shopping.
func looksLikeAvailability(msg string) bool {
	lower := strings.ToLower(msg)
	hit := false
	for _, term := range medicineTerms {
		if strings.Contains(lower, term) {
			hit = true
			break
		}
	}
	if !hit {
		return false
	}
	return len(retriever.SignificantTokens(lower)) > 0
}

// classifyByRules is the deterministic fallback: language by script
// heuristics, intent by the ordered keyword table, then a catch-all that
// treats very short messages as medicine-search candidates.
func classifyByRules(message string, defaultLang core.Language) Result {
	lower := strings.ToLower(strings.TrimSpace(message))
	lang := detectLanguage(message, defaultLang)
	for _, r := range fallbackRules {
		if r.match(lower) {
			res := Result{
				Language:   lang,
				Intent:     r.intent,
				Confidence: r.confidence,
				Risk:       core.RiskLow,
			}
			switch r.intent {
			case IntentRisky:
				res.Risk = core.RiskHigh
			case IntentGreeting:
				res.Greeting = true
			case IntentMedicineSearch, IntentProductSearch:
				res.Query = strings.TrimSpace(message)
			}
			return res
		}
	}
	if len(retriever.SignificantTokens(lower)) <= 2 && len([]rune(lower)) <= 24 {
		return Result{
			Language:   lang,
			Intent:     IntentMedicineSearch,
			Query:      strings.TrimSpace(message),
			Confidence: 0.4,
			Risk:       core.RiskLow,
		}
	}
	return Result{
		Language:   lang,
		Intent:     IntentOpenQuestion,
		Query:      strings.TrimSpace(message),
		Confidence: 0.5,
		Risk:       core.RiskLow,
	}
}

// DetectLanguage exposes the script heuristic for callers that skip
// classification entirely.
func DetectLanguage(message string, fallback core.Language) core.Language {
	return detectLanguage(message, fallback)
}

// detectLanguage uses script and diacritic heuristics: any Arabic-range rune
// wins, then French diacritics, else the tenant default.
func detectLanguage(message string, defaultLang core.Language) core.Language {
	for _, r := range message {
		if r >= 0x0600 && r <= 0x06FF {
			return core.LanguageArabic
		}
	}
	if strings.ContainsAny(strings.ToLower(message), "àâæçéèêëîïôœùûü") {
		return core.LanguageFrench
	}
	if defaultLang.IsValid() {
		return defaultLang
	}
	return core.LanguageEnglish
}
