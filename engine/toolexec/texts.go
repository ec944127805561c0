package toolexec

import (
	"fmt"
	"strings"

	"github.com/pharmachat/pharmachat/engine/core"
	"github.com/pharmachat/pharmachat/engine/store"
)

// RefusalSentinel is the literal no-evidence answer. The generator and the
// pipeline compare against it verbatim.
const RefusalSentinel = "I don't know."

func greetingText(tenant *store.Tenant, lang core.Language) string {
	switch lang {
	case core.LanguageArabic:
		return fmt.Sprintf("أهلًا بك في %s! كيف يمكنني مساعدتك اليوم؟", tenant.Name)
	case core.LanguageFrench:
		return fmt.Sprintf("Bienvenue chez %s ! Comment puis-je vous aider aujourd'hui ?", tenant.Name)
	default:
		return fmt.Sprintf("Welcome to %s! How can I help you today?", tenant.Name)
	}
}

func hoursContactText(tenant *store.Tenant, lang core.Language) string {
	var lines []string
	switch lang {
	case core.LanguageArabic:
		if tenant.OpeningHours != "" {
			lines = append(lines, "ساعات العمل: "+tenant.OpeningHours)
		}
		if tenant.Phone != "" {
			lines = append(lines, "الهاتف: "+tenant.Phone)
		}
		if tenant.WhatsApp != "" {
			lines = append(lines, "واتساب: "+tenant.WhatsApp)
		}
		if tenant.Address != "" {
			lines = append(lines, "العنوان: "+tenant.Address)
		}
		if len(lines) == 0 {
			lines = append(lines, "معلومات التواصل غير متوفرة حاليًا.")
		}
	case core.LanguageFrench:
		if tenant.OpeningHours != "" {
			lines = append(lines, "Horaires : "+tenant.OpeningHours)
		}
		if tenant.Phone != "" {
			lines = append(lines, "Téléphone : "+tenant.Phone)
		}
		if tenant.WhatsApp != "" {
			lines = append(lines, "WhatsApp : "+tenant.WhatsApp)
		}
		if tenant.Address != "" {
			lines = append(lines, "Adresse : "+tenant.Address)
		}
		if len(lines) == 0 {
			lines = append(lines, "Les coordonnées ne sont pas disponibles pour le moment.")
		}
	default:
		if tenant.OpeningHours != "" {
			lines = append(lines, "Opening hours: "+tenant.OpeningHours)
		}
		if tenant.Phone != "" {
			lines = append(lines, "Phone: "+tenant.Phone)
		}
		if tenant.WhatsApp != "" {
			lines = append(lines, "WhatsApp: "+tenant.WhatsApp)
		}
		if tenant.Address != "" {
			lines = append(lines, "Address: "+tenant.Address)
		}
		if len(lines) == 0 {
			lines = append(lines, "Contact details are not available right now.")
		}
	}
	return strings.Join(lines, "\n")
}

func deliveryText(tenant *store.Tenant, lang core.Language) string {
	switch lang {
	case core.LanguageArabic:
		if tenant.DeliveryCOD {
			return "نعم، نوفر خدمة التوصيل مع إمكانية الدفع عند الاستلام."
		}
		return "نوفر خدمة التوصيل، لكن الدفع عند الاستلام غير متاح حاليًا."
	case core.LanguageFrench:
		if tenant.DeliveryCOD {
			return "Oui, nous livrons avec paiement à la livraison."
		}
		return "Nous livrons, mais le paiement à la livraison n'est pas disponible actuellement."
	default:
		if tenant.DeliveryCOD {
			return "Yes, we deliver and accept cash on delivery."
		}
		return "We deliver, but cash on delivery is currently not available."
	}
}

func notFoundText(query string, lang core.Language) string {
	switch lang {
	case core.LanguageArabic:
		return fmt.Sprintf("عذرًا، لم أجد \"%s\" في الكتالوج. هل تريد أن أبحث عن شيء آخر؟", query)
	case core.LanguageFrench:
		return fmt.Sprintf("Désolé, je n'ai pas trouvé « %s » dans le catalogue. Voulez-vous chercher autre chose ?", query)
	default:
		return fmt.Sprintf("Sorry, I could not find %q in the catalog. Would you like me to look for something else?", query)
	}
}

func didYouMeanText(names []string, lang core.Language) string {
	joined := strings.Join(names, ", ")
	switch lang {
	case core.LanguageArabic:
		return "هل تقصد: " + joined + "؟"
	case core.LanguageFrench:
		return "Vouliez-vous dire : " + joined + " ?"
	default:
		return "Did you mean: " + joined + "?"
	}
}

func cartEmptyText(lang core.Language) string {
	switch lang {
	case core.LanguageArabic:
		return "سلتك فارغة حاليًا. أخبرني ماذا تريد أن تضيف."
	case core.LanguageFrench:
		return "Votre panier est vide. Dites-moi ce que vous voulez ajouter."
	default:
		return "Your cart is empty. Tell me what you would like to add."
	}
}

func askWhatToAddText(lang core.Language) string {
	switch lang {
	case core.LanguageArabic:
		return "ماذا تريد أن تضيف إلى السلة؟"
	case core.LanguageFrench:
		return "Que souhaitez-vous ajouter au panier ?"
	default:
		return "What would you like to add to your cart?"
	}
}

func uploadPromptText(lang core.Language) string {
	switch lang {
	case core.LanguageArabic:
		return "تفضل بإرسال صورة واضحة للوصفة الطبية وسيقوم الصيدلي بمراجعتها."
	case core.LanguageFrench:
		return "Envoyez une photo lisible de votre ordonnance et le pharmacien la vérifiera."
	default:
		return "Please send a clear photo of your prescription and the pharmacist will review it."
	}
}

func quickReplies(lang core.Language) []string {
	switch lang {
	case core.LanguageArabic:
		return []string{"اطلب دواء", "ساعات العمل", "التوصيل", "حجز موعد"}
	case core.LanguageFrench:
		return []string{"Chercher un médicament", "Horaires", "Livraison", "Prendre rendez-vous"}
	default:
		return []string{"Find a medicine", "Opening hours", "Delivery", "Book an appointment"}
	}
}
