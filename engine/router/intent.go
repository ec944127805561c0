package router

import "github.com/pharmachat/pharmachat/engine/core"

// Intent tags what the customer wants from a single message.
type Intent string

const (
	IntentGreeting       Intent = "greeting"
	IntentHoursContact   Intent = "hours_contact"
	IntentDelivery       Intent = "delivery"
	IntentAppointment    Intent = "appointment"
	IntentCart           Intent = "cart"
	IntentUpload         Intent = "upload"
	IntentMedicineSearch Intent = "medicine_search"
	IntentProductSearch  Intent = "product_search"
	IntentRisky          Intent = "risky"
	IntentOpenQuestion   Intent = "open_question"
	IntentUnknown        Intent = "unknown"
)

func (i Intent) IsValid() bool {
	switch i {
	case IntentGreeting, IntentHoursContact, IntentDelivery, IntentAppointment,
		IntentCart, IntentUpload, IntentMedicineSearch, IntentProductSearch,
		IntentRisky, IntentOpenQuestion, IntentUnknown:
		return true
	}
	return false
}

// Result is the classification output for one message. Transient.
type Result struct {
	Language   core.Language  `json:"language"`
	Intent     Intent         `json:"intent"`
	Query      string         `json:"query,omitempty"`
	Greeting   bool           `json:"greeting"`
	Confidence float64        `json:"confidence"`
	Risk       core.RiskLevel `json:"risk"`
	Clarify    []string       `json:"clarifying_questions,omitempty"`
}
