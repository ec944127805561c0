package router

import (
	"context"
	"strings"

	"github.com/pharmachat/pharmachat/engine/core"
	"github.com/pharmachat/pharmachat/engine/llm"
	"github.com/pharmachat/pharmachat/pkg/logger"
)

const classifyInstruction = `You classify one customer message sent to a pharmacy assistant.
Return ONLY a JSON object, no prose, with exactly these fields:
{"language":"ar|fr|en","intent":"greeting|hours_contact|delivery|appointment|cart|upload|medicine_search|product_search|risky|open_question","query":"the product or search phrase if any, else empty","greeting":true|false,"confidence":0.0-1.0,"risk":"low|medium|high","clarifying_questions":["..."]}
Classify as risky only when the message asks for dosage, diagnosis, drug interactions, or involves pregnancy, infants or severe symptoms.`

// Classifier routes a raw message to an intent. When an external completion
// capability is configured it is asked first; any failure or unusable payload
// falls back to the deterministic rule table. Classify never returns an
// error.
type Classifier struct {
	client      llm.CompletionClient
	defaultLang core.Language
}

// NewClassifier builds a classifier. client may be nil, which forces the
// rule-based path.
func NewClassifier(client llm.CompletionClient, defaultLang core.Language) *Classifier {
	return &Classifier{client: client, defaultLang: defaultLang}
}

func (c *Classifier) Classify(ctx context.Context, message string) Result {
	fallback := classifyByRules(message, c.defaultLang)
	if c.client == nil {
		return fallback
	}
	log := logger.FromContext(ctx)
	reply, err := c.client.Complete(ctx, &llm.CompletionRequest{
		Instruction: classifyInstruction,
		Input:       message,
		Temperature: 0,
		MaxTokens:   300,
		JSONMode:    true,
	})
	if err != nil {
		log.Warn("intent classification call failed, using rule table", "error", err)
		return fallback
	}
	var parsed Result
	if err := llm.DecodeObject(reply, &parsed); err != nil {
		log.Warn("intent classification reply unparsable, using rule table", "error", err)
		return fallback
	}
	if !parsed.Intent.IsValid() || parsed.Intent == IntentUnknown {
		log.Warn("intent classification returned unknown intent, using rule table",
			"intent", string(parsed.Intent))
		return fallback
	}
	if !parsed.Language.IsValid() {
		parsed.Language = fallback.Language
	}
	if !parsed.Risk.IsValid() {
		parsed.Risk = core.RiskLow
	}
	parsed.Confidence = clampConfidence(parsed.Confidence)
	// Risk wording that is actually a stock query must not block normal
	// shopping: downgrade over-cautious high-risk results when the message
	// reads as a plain availability request.
	if parsed.Risk == core.RiskHigh && looksLikeAvailability(message) {
		parsed.Intent = IntentMedicineSearch
		parsed.Risk = core.RiskLow
		if parsed.Query == "" {
			parsed.Query = strings.TrimSpace(message)
		}
	}
	return parsed
}

func clampConfidence(v float64) float64 {
	switch {
	case v <= 0:
		return 0.5
	case v > 1:
		return 1
	}
	return v
}
