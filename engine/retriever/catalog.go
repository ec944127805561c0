package retriever

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/pharmachat/pharmachat/engine/core"
	"github.com/pharmachat/pharmachat/engine/store"
	"github.com/pharmachat/pharmachat/pkg/logger"
)

// fuzzyCutoff is the minimum similarity for the approximate tiers, both the
// native trigram tier and the client-side levenshtein fallback.
const fuzzyCutoff = 0.70

// MatchTier identifies which cascade tier produced a catalog result, so the
// caller can distinguish a confirmed hit from a "did you mean" candidate.
type MatchTier int

const (
	TierNone MatchTier = iota
	TierExact
	TierSubstring
	TierFuzzy
)

// CatalogLookup runs the tenant-scoped matching cascade: exact name, then
// substring on significant tokens, then trigram similarity when the store
// supports it natively, then a client-side edit-distance ratio as the
// portability fallback. The first non-empty tier wins.
func (s *Service) CatalogLookup(
	ctx context.Context,
	tenantID core.ID,
	query string,
) ([]store.CatalogItem, MatchTier) {
	log := logger.FromContext(ctx).With("tenant_id", tenantID)
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, TierNone
	}
	if items, err := s.store.SearchCatalogExact(ctx, tenantID, query); err != nil {
		log.Error("catalog exact lookup failed", "error", err)
	} else if len(items) > 0 {
		return items, TierExact
	}
	if tokens := SignificantTokens(query); len(tokens) > 0 {
		if items, err := s.store.SearchCatalogSubstring(ctx, tenantID, tokens); err != nil {
			log.Error("catalog substring lookup failed", "error", err)
		} else if len(items) > 0 {
			return items, TierSubstring
		}
	}
	if s.store.Capabilities().Trigram {
		matches, err := s.store.SearchCatalogTrigram(ctx, tenantID, query, fuzzyCutoff)
		switch {
		case err != nil && !errors.Is(err, store.ErrUnsupported):
			log.Error("catalog trigram lookup failed", "error", err)
		case len(matches) > 0:
			items := make([]store.CatalogItem, len(matches))
			for i := range matches {
				items[i] = matches[i].Item
			}
			return items, TierFuzzy
		}
		return nil, TierNone
	}
	if items := s.fuzzyLookup(ctx, tenantID, query); len(items) > 0 {
		return items, TierFuzzy
	}
	return nil, TierNone
}

// fuzzyLookup scores every tenant name with a levenshtein ratio. It is the
// portability tier for backends without native trigram similarity.
func (s *Service) fuzzyLookup(ctx context.Context, tenantID core.ID, query string) []store.CatalogItem {
	items, err := s.store.ListCatalogItems(ctx, tenantID)
	if err != nil {
		logger.FromContext(ctx).Error("catalog listing for fuzzy lookup failed", "error", err)
		return nil
	}
	type scored struct {
		item  store.CatalogItem
		ratio float64
	}
	var candidates []scored
	for i := range items {
		ratio := similarityRatio(query, items[i].Name)
		if ratio >= fuzzyCutoff {
			candidates = append(candidates, scored{item: items[i], ratio: ratio})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].ratio > candidates[j].ratio })
	out := make([]store.CatalogItem, len(candidates))
	for i := range candidates {
		out[i] = candidates[i].item
	}
	return out
}

// similarityRatio maps edit distance onto [0,1], 1 meaning identical.
func similarityRatio(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
