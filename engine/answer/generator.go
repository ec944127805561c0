package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pharmachat/pharmachat/engine/core"
	"github.com/pharmachat/pharmachat/engine/llm"
	"github.com/pharmachat/pharmachat/engine/router"
	"github.com/pharmachat/pharmachat/engine/toolexec"
	"github.com/pharmachat/pharmachat/pkg/logger"
)

// confidenceCutoff gates both the router's classification confidence (below
// it the primary tier is skipped) and the model's self-reported answer
// confidence (below it the next tier runs).
const confidenceCutoff = 0.55

const (
	defaultTemperature = 0.2
	defaultMaxTokens   = 512
)

// Tier records which model produced the final text.
type Tier string

const (
	TierNone      Tier = "none"
	TierPrimary   Tier = "primary"
	TierSecondary Tier = "secondary"
)

// Result is the generated reply for one message. Cited holds the 1-based
// evidence line numbers the model says it used; QuickReplies are model
// suggestions used only when the executor produced none.
type Result struct {
	Text         string
	Confidence   float64
	Tier         Tier
	Escalated    bool
	Cited        []int
	QuickReplies []string
}

// Completer is the slice of the model client the generator needs.
type Completer interface {
	Complete(ctx context.Context, req *llm.CompletionRequest) (string, error)
}

// Generator composes the final answer. Deterministic outcomes pass through
// untouched; open questions go through the model cascade, grounded on the
// evidence the executor collected and nothing else.
type Generator struct {
	primary   Completer
	secondary Completer
}

// NewGenerator accepts nil tiers; with both nil every open question falls to
// the unavailable response.
func NewGenerator(primary, secondary Completer) *Generator {
	return &Generator{primary: primary, secondary: secondary}
}

// modelReply is the structured object the instruction demands back. Language
// and Actions are decoded but not propagated: the router owns language
// detection and the executor owns side effects, so model output never
// overrides either.
type modelReply struct {
	Answer       string   `json:"answer"`
	Language     string   `json:"language"`
	Confidence   float64  `json:"confidence"`
	Citations    []int    `json:"citations"`
	Actions      []string `json:"actions"`
	QuickReplies []string `json:"quick_replies"`
	Escalate     bool     `json:"escalate"`
}

const composeInstruction = `You are a pharmacy assistant. Answer the customer's question using ONLY the evidence lines provided. Do not use outside knowledge. Never give dosage advice, diagnosis, or drug interaction guidance.
If the evidence does not answer the question, the answer must be exactly: I don't know.
Respond in %s.
Return only a JSON object: {"answer": "<text>", "language": "<ar|fr|en>", "confidence": <0..1>, "citations": [<evidence line numbers used>], "actions": [], "quick_replies": ["<short follow-up>"], "escalate": <true|false>}`

// Generate produces the reply for one executed message. It never returns an
// error: every failure mode degrades to a safe fixed text. message is the raw
// customer text, used as the prompt question when the router extracted no
// query.
func (g *Generator) Generate(ctx context.Context, res *router.Result, out *toolexec.Outcome, message string) Result {
	if out.Answer != "" {
		return Result{
			Text:       out.Answer,
			Confidence: 1,
			Tier:       TierNone,
			Escalated:  out.Context.Escalated,
		}
	}

	req := &llm.CompletionRequest{
		Instruction: fmt.Sprintf(composeInstruction, languageName(res.Language)),
		Input:       buildEvidence(res, out, message),
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		JSONMode:    true,
	}

	tiers := g.tierOrder(res.Confidence)
	log := logger.FromContext(ctx)
	for _, tier := range tiers {
		result, err := g.runTier(ctx, tier.client, req)
		if err != nil {
			log.Warn("answer tier failed", "tier", tier.name, "error", err)
			continue
		}
		if result.Confidence < confidenceCutoff && result.Text != toolexec.RefusalSentinel {
			log.Debug("answer below confidence cutoff, trying next tier",
				"tier", tier.name, "confidence", result.Confidence)
			continue
		}
		result.Tier = tier.name
		if result.Text == toolexec.RefusalSentinel {
			result.Escalated = true
		}
		return result
	}

	// A below-cutoff answer never ships, even from the last tier: with no
	// tier left the fixed unavailable text goes out instead.
	return Result{
		Text:       unavailableText(res.Language),
		Confidence: 0,
		Tier:       TierNone,
		Escalated:  true,
	}
}

type tier struct {
	name   Tier
	client Completer
}

// tierOrder skips the primary model when the router was already unsure; a
// weak classification does not deserve the expensive tier.
func (g *Generator) tierOrder(routerConfidence float64) []tier {
	var tiers []tier
	if g.primary != nil && routerConfidence >= confidenceCutoff {
		tiers = append(tiers, tier{TierPrimary, g.primary})
	}
	if g.secondary != nil {
		tiers = append(tiers, tier{TierSecondary, g.secondary})
	}
	return tiers
}

// runTier calls one model and decodes its structured reply, with a single
// repair retry on a malformed object. An unparsable but non-empty reply is
// used as plain text rather than discarded.
func (g *Generator) runTier(ctx context.Context, client Completer, req *llm.CompletionRequest) (Result, error) {
	raw, err := client.Complete(ctx, req)
	if err != nil {
		return Result{}, err
	}
	var reply modelReply
	if decodeErr := llm.DecodeObject(raw, &reply); decodeErr != nil {
		repair := *req
		repair.Instruction = req.Instruction + "\nYour previous reply was not valid JSON. Return only the JSON object."
		raw2, err2 := client.Complete(ctx, &repair)
		if err2 == nil && llm.DecodeObject(raw2, &reply) == nil {
			return replyResult(reply)
		}
		text := strings.TrimSpace(llm.StripFences(raw))
		if text == "" {
			return Result{}, errors.New("answer: empty model reply")
		}
		return Result{Text: text, Confidence: confidenceCutoff}, nil
	}
	return replyResult(reply)
}

func replyResult(reply modelReply) (Result, error) {
	text := strings.TrimSpace(reply.Answer)
	if text == "" {
		return Result{}, errors.New("answer: empty answer field")
	}
	return Result{
		Text:         text,
		Confidence:   clamp01(reply.Confidence),
		Escalated:    reply.Escalate,
		Cited:        reply.Citations,
		QuickReplies: reply.QuickReplies,
	}, nil
}

// buildEvidence serializes the executor's evidence bundle into numbered
// lines. Titles ride along so the model can attribute without inventing.
func buildEvidence(res *router.Result, out *toolexec.Outcome, message string) string {
	question := res.Query
	if question == "" {
		question = message
	}
	var b strings.Builder
	b.WriteString("QUESTION: ")
	b.WriteString(question)
	b.WriteString("\nEVIDENCE:\n")
	for i, snippet := range out.Context.Snippets {
		title := ""
		if i < len(out.Context.Citations) {
			title = out.Context.Citations[i].Title
		}
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, title, snippet)
	}
	if len(out.Context.Snippets) == 0 {
		b.WriteString("(none)\n")
	}
	return b.String()
}

func languageName(lang core.Language) string {
	switch lang {
	case core.LanguageArabic:
		return "Arabic"
	case core.LanguageFrench:
		return "French"
	default:
		return "English"
	}
}

func unavailableText(lang core.Language) string {
	switch lang {
	case core.LanguageArabic:
		return "عذرًا، المساعد غير متاح مؤقتًا. يرجى المحاولة لاحقًا أو الاتصال بالصيدلية مباشرة."
	case core.LanguageFrench:
		return "Désolé, l'assistant est temporairement indisponible. Réessayez plus tard ou contactez la pharmacie directement."
	default:
		return "Sorry, the assistant is temporarily unavailable. Please try again later or contact the pharmacy directly."
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
