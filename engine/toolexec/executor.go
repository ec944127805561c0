package toolexec

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pharmachat/pharmachat/engine/core"
	"github.com/pharmachat/pharmachat/engine/guard"
	"github.com/pharmachat/pharmachat/engine/retriever"
	"github.com/pharmachat/pharmachat/engine/router"
	"github.com/pharmachat/pharmachat/engine/session"
	"github.com/pharmachat/pharmachat/engine/store"
	"github.com/pharmachat/pharmachat/pkg/logger"
)

// maxItemsPerKind caps how many catalog cards a single search answer carries.
const maxItemsPerKind = 6

// Executor turns a classified message into grounded evidence and proposed
// actions. It is the only component that triggers side effects (appointment
// creation); everything else it does is read-only.
type Executor struct {
	store     store.Store
	retriever *retriever.Service
}

func NewExecutor(st store.Store, ret *retriever.Service) (*Executor, error) {
	if st == nil {
		return nil, errors.New("toolexec: evidence store is required")
	}
	if ret == nil {
		return nil, errors.New("toolexec: retriever is required")
	}
	return &Executor{store: st, retriever: ret}, nil
}

// Outcome is the executor's result for one message. Answer is non-empty when
// the intent was resolved deterministically; the generator passes it through
// verbatim. An empty Answer means the generator must compose from Context.
type Outcome struct {
	Context ToolContext
	Actions []Action
	Answer  string
	Log     session.Log
}

// resultRef is the session frame format for remembering search results, so a
// later "add it"/"how much is it" can resolve the referent.
type resultRef struct {
	ID   core.ID `json:"id"`
	Name string  `json:"name"`
	Kind string  `json:"kind"`
}

// Execute dispatches on the classified intent. Risky messages never touch the
// store; everything else is tenant-scoped through it.
func (e *Executor) Execute(
	ctx context.Context,
	tenant *store.Tenant,
	res *router.Result,
	log session.Log,
	sessionID string,
	customerID string,
	message string,
) Outcome {
	out := Outcome{
		Context: ToolContext{
			Intent:   res.Intent,
			Language: res.Language,
		},
		Log: log,
	}

	switch res.Intent {
	case router.IntentGreeting:
		out.Answer = greetingText(tenant, res.Language)
		out.Context.QuickReplies = quickReplies(res.Language)
		out.Context.Found = true

	case router.IntentHoursContact:
		out.Answer = hoursContactText(tenant, res.Language)
		out.Context.Found = true
		out.Context.Citations = tenantCitation(tenant, res.Language)

	case router.IntentDelivery:
		out.Answer = deliveryText(tenant, res.Language)
		out.Context.Found = true
		out.Context.Citations = tenantCitation(tenant, res.Language)

	case router.IntentAppointment:
		updated, answer, citations := e.runAppointment(ctx, tenant, res.Language, log, sessionID, message)
		out.Log = updated
		out.Answer = answer
		out.Context.Found = true
		out.Context.Citations = citations

	case router.IntentCart:
		e.runCart(ctx, tenant, res, &out, customerID, message)

	case router.IntentUpload:
		out.Answer = uploadPromptText(res.Language)
		out.Context.Found = true
		action := Action{Type: ActionUploadPrescription}
		var top resultRef
		if out.Log.GetState(session.KeyLastTopResult, &top) && top.ID != "" {
			action.ItemID = top.ID
			action.ItemName = top.Name
		}
		out.Actions = append(out.Actions, action)

	case router.IntentMedicineSearch, router.IntentProductSearch:
		e.runSearch(ctx, tenant, res, &out, message)

	case router.IntentRisky:
		out.Answer = guard.SafetyResponse(tenant, res.Language)
		out.Context.Escalated = true

	default: // open_question, unknown
		e.runOpenQuestion(ctx, tenant, res, &out, message)
	}

	for _, c := range out.Context.Citations {
		if !c.FreshAt.IsZero() {
			out.Context.FreshAt = append(out.Context.FreshAt, c.FreshAt)
		}
	}
	return out
}

// runSearch resolves each sub-query through the catalog cascade. Confirmed
// tiers become item cards with per-item actions; fuzzy-only matches become
// "did you mean" suggestions instead of confirmed results.
func (e *Executor) runSearch(
	ctx context.Context,
	tenant *store.Tenant,
	res *router.Result,
	out *Outcome,
	message string,
) {
	query := res.Query
	if query == "" {
		query = message
	}
	seen := make(map[core.ID]struct{})
	perKind := make(map[store.ItemKind]int)
	var (
		cards       []ItemCard
		suggestions []string
		citations   []Citation
		actions     []Action
	)
	for _, sub := range SplitSubQueries(query) {
		items, tier := e.retriever.CatalogLookup(ctx, tenant.ID, sub)
		if tier == retriever.TierNone {
			continue
		}
		if tier == retriever.TierFuzzy {
			for i := range items {
				if len(suggestions) >= maxItemsPerKind {
					break
				}
				suggestions = append(suggestions, items[i].Name)
			}
			continue
		}
		for i := range items {
			item := &items[i]
			if _, dup := seen[item.ID]; dup {
				continue
			}
			if perKind[item.Kind] >= maxItemsPerKind {
				continue
			}
			seen[item.ID] = struct{}{}
			perKind[item.Kind]++
			cards = append(cards, ItemCard{
				ID:         item.ID,
				Kind:       string(item.Kind),
				Name:       item.Name,
				Price:      item.Price,
				InStock:    item.InStock(),
				RxRequired: item.RxRequired,
			})
			citations = append(citations, Citation{
				SourceType: string(store.SourceCatalog),
				Title:      item.Name,
				FreshAt:    item.UpdatedAt,
				Score:      tierScore(tier),
			})
			actions = append(actions, itemActions(item)...)
		}
	}

	out.Context.Items = cards
	out.Context.Suggestions = suggestions
	out.Context.Citations = citations
	out.Actions = actions
	out.Context.Found = len(cards) > 0

	switch {
	case len(cards) > 0:
		out.Answer = foundItemsText(cards, res.Language)
		if len(suggestions) > 0 {
			out.Answer += "\n" + didYouMeanText(suggestions, res.Language)
		}
		out.Log = e.rememberResults(ctx, out.Log, cards)
	case len(suggestions) > 0:
		out.Answer = didYouMeanText(suggestions, res.Language)
	default:
		out.Answer = notFoundText(query, res.Language)
	}
}

// runOpenQuestion runs the hybrid retriever and hands the evidence to the
// generator. Below the acceptance floor there is no usable evidence and the
// answer is the literal refusal with escalation.
func (e *Executor) runOpenQuestion(
	ctx context.Context,
	tenant *store.Tenant,
	res *router.Result,
	out *Outcome,
	message string,
) {
	query := res.Query
	if query == "" {
		query = message
	}
	items := e.retriever.Retrieve(ctx, tenant.ID, query, 0)
	floor := e.retriever.MinScore(query)

	var kept []retriever.RetrievedItem
	for _, it := range items {
		if it.Score >= floor {
			kept = append(kept, it)
		}
	}
	if len(kept) == 0 {
		out.Answer = RefusalSentinel
		out.Context.Escalated = true
		return
	}
	for _, it := range kept {
		out.Context.Snippets = append(out.Context.Snippets, it.Preview)
		sourceType := string(store.SourceCatalog)
		if it.Kind == retriever.KindChunk {
			sourceType = "document"
		}
		out.Context.Citations = append(out.Context.Citations, Citation{
			SourceType: sourceType,
			Title:      it.Title,
			DocumentID: it.DocumentID,
			ChunkIndex: it.ChunkIndex,
			Preview:    it.Preview,
			FreshAt:    it.FreshAt,
			Score:      it.Score,
		})
	}
	out.Context.Found = true
}

// runCart either shows the cart or resolves an "add it" reference against the
// last remembered search result.
func (e *Executor) runCart(
	ctx context.Context,
	tenant *store.Tenant,
	res *router.Result,
	out *Outcome,
	customerID string,
	message string,
) {
	lower := strings.ToLower(message)
	wantsAdd := strings.Contains(lower, "add") || strings.Contains(lower, "ajout") ||
		strings.Contains(lower, "أضف") || strings.Contains(lower, "اضف")

	if wantsAdd {
		if wantsAll(lower) {
			var refs []resultRef
			if out.Log.GetState(session.KeyLastResults, &refs) && len(refs) > 0 {
				names := make([]string, len(refs))
				for i, r := range refs {
					out.Actions = append(out.Actions, Action{
						Type:     ActionAddToCart,
						ItemID:   r.ID,
						ItemName: r.Name,
					})
					names[i] = r.Name
				}
				out.Answer = addToCartText(strings.Join(names, ", "), res.Language)
				out.Context.Found = true
				return
			}
		}
		var top resultRef
		if out.Log.GetState(session.KeyLastTopResult, &top) && top.ID != "" {
			out.Actions = append(out.Actions, Action{
				Type:     ActionAddToCart,
				ItemID:   top.ID,
				ItemName: top.Name,
			})
			out.Answer = addToCartText(top.Name, res.Language)
			out.Context.Found = true
			return
		}
		out.Answer = askWhatToAddText(res.Language)
		return
	}

	items, err := e.store.ListCartItems(ctx, tenant.ID, customerID)
	if err != nil {
		logger.FromContext(ctx).Error("listing cart failed", "tenant_id", tenant.ID, "error", err)
		out.Answer = cartEmptyText(res.Language)
		return
	}
	if len(items) == 0 {
		out.Answer = cartEmptyText(res.Language)
		out.Actions = append(out.Actions, Action{Type: ActionViewCart})
		return
	}
	out.Answer = cartContentsText(items, res.Language)
	out.Actions = append(out.Actions, Action{Type: ActionViewCart})
	out.Context.Found = true
}

// wantsAll reports whether an add request refers to the whole remembered
// result set rather than its top entry. Whole-word match only, so product
// names containing "all" do not trigger it.
func wantsAll(msg string) bool {
	for _, word := range strings.FieldsFunc(msg, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '؟' || r == '?'
	}) {
		switch word {
		case "them", "all", "both", "tous", "toutes", "كلها", "الكل":
			return true
		}
	}
	return false
}

// rememberResults stores the result list and its top entry as session frames
// for later reference resolution.
func (e *Executor) rememberResults(ctx context.Context, log session.Log, cards []ItemCard) session.Log {
	refs := make([]resultRef, len(cards))
	for i, c := range cards {
		refs[i] = resultRef{ID: c.ID, Name: c.Name, Kind: c.Kind}
	}
	updated, err := log.SetState(session.KeyLastResults, refs)
	if err != nil {
		logger.FromContext(ctx).Error("storing result frame failed", "error", err)
		return log
	}
	updated, err = updated.SetState(session.KeyLastTopResult, refs[0])
	if err != nil {
		logger.FromContext(ctx).Error("storing top-result frame failed", "error", err)
	}
	return updated
}

func itemActions(item *store.CatalogItem) []Action {
	switch {
	case item.RxRequired:
		return []Action{{Type: ActionUploadPrescription, ItemID: item.ID, ItemName: item.Name}}
	case !item.InStock():
		return []Action{{Type: ActionNotifyStock, ItemID: item.ID, ItemName: item.Name}}
	default:
		return []Action{{Type: ActionAddToCart, ItemID: item.ID, ItemName: item.Name}}
	}
}

func tierScore(tier retriever.MatchTier) float64 {
	switch tier {
	case retriever.TierExact:
		return 1.0
	case retriever.TierSubstring:
		return 0.85
	case retriever.TierFuzzy:
		return 0.75
	default:
		return 0
	}
}

func tenantCitation(tenant *store.Tenant, lang core.Language) []Citation {
	title := "Pharmacy profile"
	switch lang {
	case core.LanguageArabic:
		title = "ملف الصيدلية"
	case core.LanguageFrench:
		title = "Profil de la pharmacie"
	}
	return []Citation{{
		SourceType: string(store.SourcePlaybook),
		Title:      title,
		FreshAt:    tenant.DataUpdatedAt,
	}}
}

func foundItemsText(cards []ItemCard, lang core.Language) string {
	lines := make([]string, 0, len(cards))
	for _, c := range cards {
		lines = append(lines, itemLine(c, lang))
	}
	return strings.Join(lines, "\n")
}

func itemLine(c ItemCard, lang core.Language) string {
	switch lang {
	case core.LanguageArabic:
		status := "متوفر"
		if !c.InStock {
			status = "غير متوفر حاليًا"
		}
		line := fmt.Sprintf("%s - %.2f - %s", c.Name, c.Price, status)
		if c.RxRequired {
			line += " (يتطلب وصفة طبية)"
		}
		return line
	case core.LanguageFrench:
		status := "en stock"
		if !c.InStock {
			status = "en rupture de stock"
		}
		line := fmt.Sprintf("%s : %.2f, %s", c.Name, c.Price, status)
		if c.RxRequired {
			line += " (ordonnance requise)"
		}
		return line
	default:
		status := "in stock"
		if !c.InStock {
			status = "out of stock"
		}
		line := fmt.Sprintf("%s: %.2f, %s", c.Name, c.Price, status)
		if c.RxRequired {
			line += " (prescription required)"
		}
		return line
	}
}

func addToCartText(name string, lang core.Language) string {
	switch lang {
	case core.LanguageArabic:
		return fmt.Sprintf("تمت إضافة %s إلى سلتك.", name)
	case core.LanguageFrench:
		return fmt.Sprintf("%s a été ajouté à votre panier.", name)
	default:
		return fmt.Sprintf("Added %s to your cart.", name)
	}
}

func cartContentsText(items []store.CartItem, lang core.Language) string {
	lines := make([]string, 0, len(items)+1)
	var total float64
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
		lines = append(lines, fmt.Sprintf("%d x %s - %.2f", it.Quantity, it.Name, it.Price))
	}
	switch lang {
	case core.LanguageArabic:
		lines = append(lines, fmt.Sprintf("الإجمالي: %.2f", total))
	case core.LanguageFrench:
		lines = append(lines, fmt.Sprintf("Total : %.2f", total))
	default:
		lines = append(lines, fmt.Sprintf("Total: %.2f", total))
	}
	return strings.Join(lines, "\n")
}
