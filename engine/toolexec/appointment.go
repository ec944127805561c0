package toolexec

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pharmachat/pharmachat/engine/core"
	"github.com/pharmachat/pharmachat/engine/session"
	"github.com/pharmachat/pharmachat/engine/store"
	"github.com/pharmachat/pharmachat/pkg/logger"
)

// pendingAppointment is the slot-filling state frame. The appointment is
// created on the first turn where all four fields are simultaneously
// resolved, then the frame is cleared.
type pendingAppointment struct {
	ServiceType  string `json:"service_type,omitempty"`
	Time         string `json:"time,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

func (p *pendingAppointment) complete() bool {
	return p.ServiceType != "" && p.Time != "" && p.CustomerName != "" && p.Phone != ""
}

func (p *pendingAppointment) missing() []string {
	var fields []string
	if p.ServiceType == "" {
		fields = append(fields, "service_type")
	}
	if p.Time == "" {
		fields = append(fields, "time")
	}
	if p.CustomerName == "" {
		fields = append(fields, "name")
	}
	if p.Phone == "" {
		fields = append(fields, "phone")
	}
	return fields
}

var (
	phonePattern = regexp.MustCompile(`\+?\d[\d\s-]{7,14}\d`)
	namePattern  = regexp.MustCompile(`(?i)(?:my name is|i am|i'm|je m'appelle|اسمي)\s+([\p{L}][\p{L} ]{1,40})`)
	timePattern  = regexp.MustCompile(`(?i)\b(?:today|tomorrow|tonight|morning|afternoon|evening|monday|tuesday|wednesday|thursday|friday|saturday|sunday|demain|aujourd'hui|غدا|غداً|اليوم|بكرة|\d{1,2}[:h]\d{2}|\d{1,2}\s*(?:am|pm|h))\b[\w: ]{0,20}`)
)

// extractSlots merges whatever fields the message carries into the pending
// frame. Already-filled fields are never overwritten, so repeating the same
// partial info is a no-op.
func extractSlots(pending *pendingAppointment, message string, services []store.ServiceType) {
	lower := strings.ToLower(message)
	if pending.ServiceType == "" {
		for _, svc := range services {
			if strings.Contains(lower, strings.ToLower(svc.Name)) {
				pending.ServiceType = svc.Name
				break
			}
		}
	}
	if pending.Phone == "" {
		if m := phonePattern.FindString(message); m != "" {
			pending.Phone = strings.Join(strings.Fields(m), "")
		}
	}
	if pending.Time == "" {
		if m := timePattern.FindString(message); m != "" {
			pending.Time = strings.TrimSpace(m)
		}
	}
	if pending.CustomerName == "" {
		if m := namePattern.FindStringSubmatch(message); m != nil {
			pending.CustomerName = strings.TrimSpace(m[1])
		}
	}
}

func (e *Executor) runAppointment(
	ctx context.Context,
	tenant *store.Tenant,
	lang core.Language,
	log session.Log,
	sessionID string,
	message string,
) (session.Log, string, []Citation) {
	logr := logger.FromContext(ctx).With("tenant_id", tenant.ID)
	services, err := e.store.ListServiceTypes(ctx, tenant.ID)
	if err != nil {
		logr.Error("listing service types failed", "error", err)
	}
	var pending pendingAppointment
	log.GetState(session.KeyPendingAppointment, &pending)
	extractSlots(&pending, message, services)

	citation := []Citation{{
		SourceType: string(store.SourcePlaybook),
		Title:      appointmentCitationTitle(lang),
		FreshAt:    tenant.DataUpdatedAt,
	}}

	if pending.complete() {
		appt := &store.Appointment{
			ID:           core.MustNewID(),
			TenantID:     tenant.ID,
			SessionID:    sessionID,
			ServiceType:  pending.ServiceType,
			ScheduledFor: pending.Time,
			CustomerName: pending.CustomerName,
			Phone:        pending.Phone,
			CreatedAt:    time.Now(),
		}
		if err := e.store.CreateAppointment(ctx, appt); err != nil {
			logr.Error("creating appointment failed", "error", err)
			return log, appointmentFailedText(tenant, lang), citation
		}
		logr.Info("appointment created", "appointment_id", appt.ID, "service_type", appt.ServiceType)
		log = log.ClearState(session.KeyPendingAppointment)
		return log, appointmentConfirmedText(&pending, lang), citation
	}

	updated, err := log.SetState(session.KeyPendingAppointment, &pending)
	if err != nil {
		logr.Error("storing appointment state failed", "error", err)
		updated = log
	}
	slots, err := e.store.ListOpenSlots(ctx, tenant.ID, 3)
	if err != nil {
		logr.Error("listing open slots failed", "error", err)
	}
	return updated, appointmentPromptText(&pending, services, slots, lang), citation
}

func appointmentCitationTitle(lang core.Language) string {
	switch lang {
	case core.LanguageArabic:
		return "حجز المواعيد"
	case core.LanguageFrench:
		return "Prise de rendez-vous"
	default:
		return "Appointment booking"
	}
}

func fieldLabel(field string, lang core.Language) string {
	labels := map[core.Language]map[string]string{
		core.LanguageArabic: {
			"service_type": "نوع الخدمة", "time": "الوقت", "name": "الاسم", "phone": "رقم الهاتف",
		},
		core.LanguageFrench: {
			"service_type": "le type de service", "time": "l'horaire", "name": "le nom", "phone": "le téléphone",
		},
		core.LanguageEnglish: {
			"service_type": "service type", "time": "time", "name": "your name", "phone": "phone number",
		},
	}
	byLang, ok := labels[lang]
	if !ok {
		byLang = labels[core.LanguageEnglish]
	}
	return byLang[field]
}

func appointmentPromptText(
	pending *pendingAppointment,
	services []store.ServiceType,
	slots []store.Slot,
	lang core.Language,
) string {
	missing := make([]string, 0, 4)
	for _, f := range pending.missing() {
		missing = append(missing, fieldLabel(f, lang))
	}
	var b strings.Builder
	switch lang {
	case core.LanguageArabic:
		b.WriteString("لإتمام الحجز أحتاج: " + strings.Join(missing, "، ") + ".")
	case core.LanguageFrench:
		b.WriteString("Pour finaliser la réservation, il me manque : " + strings.Join(missing, ", ") + ".")
	default:
		b.WriteString("To book your appointment I still need: " + strings.Join(missing, ", ") + ".")
	}
	if len(services) > 0 {
		names := make([]string, len(services))
		for i := range services {
			names[i] = services[i].Name
		}
		switch lang {
		case core.LanguageArabic:
			b.WriteString("\nالخدمات المتاحة: " + strings.Join(names, "، "))
		case core.LanguageFrench:
			b.WriteString("\nServices disponibles : " + strings.Join(names, ", "))
		default:
			b.WriteString("\nAvailable services: " + strings.Join(names, ", "))
		}
	}
	if len(slots) > 0 {
		times := make([]string, len(slots))
		for i := range slots {
			times[i] = slots[i].StartsAt.Format("Mon 02 Jan 15:04")
		}
		switch lang {
		case core.LanguageArabic:
			b.WriteString("\nأقرب المواعيد: " + strings.Join(times, "، "))
		case core.LanguageFrench:
			b.WriteString("\nProchains créneaux : " + strings.Join(times, ", "))
		default:
			b.WriteString("\nNext open slots: " + strings.Join(times, ", "))
		}
	}
	return b.String()
}

func appointmentConfirmedText(pending *pendingAppointment, lang core.Language) string {
	switch lang {
	case core.LanguageArabic:
		return fmt.Sprintf("تم الحجز! %s في %s باسم %s. سنتواصل معك على %s عند الحاجة.",
			pending.ServiceType, pending.Time, pending.CustomerName, pending.Phone)
	case core.LanguageFrench:
		return fmt.Sprintf("C'est réservé ! %s, %s au nom de %s. Nous vous contacterons au %s si besoin.",
			pending.ServiceType, pending.Time, pending.CustomerName, pending.Phone)
	default:
		return fmt.Sprintf("Booked! %s at %s for %s. We will reach you at %s if anything changes.",
			pending.ServiceType, pending.Time, pending.CustomerName, pending.Phone)
	}
}

func appointmentFailedText(tenant *store.Tenant, lang core.Language) string {
	contact := tenant.Contact()
	switch lang {
	case core.LanguageArabic:
		msg := "عذرًا، تعذر إتمام الحجز الآن."
		if contact != "" {
			msg += " يرجى الاتصال بنا: " + contact
		}
		return msg
	case core.LanguageFrench:
		msg := "Désolé, la réservation n'a pas pu aboutir pour le moment."
		if contact != "" {
			msg += " Merci de nous appeler : " + contact
		}
		return msg
	default:
		msg := "Sorry, the booking could not be completed right now."
		if contact != "" {
			msg += " Please call us: " + contact
		}
		return msg
	}
}
