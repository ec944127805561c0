package retriever

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/pharmachat/pharmachat/engine/core"
	"github.com/pharmachat/pharmachat/engine/store"
	"github.com/pharmachat/pharmachat/pkg/logger"
)

const (
	// keywordBonus is granted when the longest significant token appears as a
	// substring of the chunk content.
	keywordBonus = 0.9
	// fulltextScale rescales the backend's full-text rank before it competes
	// with the other signals. Kept as max(vector, keyword, fulltext*2)
	// rather than a weighted blend: a weak signal must not dilute a strong
	// one. A strong keyword hit outranking a mediocre vector hit is a known
	// consequence and a tuning point, not a defect.
	fulltextScale = 2.0
	// Degraded containment scores for backends without vector or full-text
	// support.
	degradedPhraseScore = 0.8
	degradedTokenScore  = 0.5
	// Acceptance floors: below these the result set counts as "no usable
	// evidence". Short queries use the lower floor.
	floorShortQuery = 0.35
	floorLongQuery  = 0.5

	defaultTopK   = 5
	previewRunes  = 160
	catalogExact  = 1.0
	catalogSubstr = 0.85
	catalogFuzzy  = 0.75
)

// ItemKind distinguishes what a RetrievedItem points at.
type ItemKind string

const (
	KindCatalog ItemKind = "catalog"
	KindChunk   ItemKind = "chunk"
)

// RetrievedItem is the ephemeral result of a retrieval call. Never persisted.
type RetrievedItem struct {
	Kind       ItemKind
	ID         core.ID
	DocumentID core.ID
	ChunkIndex int
	Title      string
	Preview    string
	Score      float64
	vectorSim  float64
	FreshAt    time.Time
}

// QueryEmbedder turns a query into an embedding vector. Optional: without one
// the retriever runs keyword-only.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Service is the hybrid retriever. All lookups are tenant-scoped through the
// evidence store.
type Service struct {
	store    store.Store
	embedder QueryEmbedder
	topK     int
}

func NewService(st store.Store, embedder QueryEmbedder) (*Service, error) {
	if st == nil {
		return nil, errors.New("retriever: evidence store is required")
	}
	return &Service{store: st, embedder: embedder, topK: defaultTopK}, nil
}

// MinScore returns the acceptance floor for a query. Results scoring below it
// are treated as no usable evidence.
func (s *Service) MinScore(query string) float64 {
	if IsShortQuery(query) {
		return floorShortQuery
	}
	return floorLongQuery
}

// Retrieve ranks catalog entries and document chunks against a free-text
// query and returns the topK best, ordered by combined score descending with
// vector distance as the tie-break. It never returns an error: retrieval
// failures degrade to whatever signals remain and are logged.
func (s *Service) Retrieve(ctx context.Context, tenantID core.ID, query string, topK int) []RetrievedItem {
	if topK <= 0 {
		topK = s.topK
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	items := s.retrieveChunks(ctx, tenantID, query, topK)
	items = append(items, s.retrieveCatalog(ctx, tenantID, query)...)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score == items[j].Score {
			return items[i].vectorSim > items[j].vectorSim
		}
		return items[i].Score > items[j].Score
	})
	if len(items) > topK {
		items = items[:topK]
	}
	return items
}

func (s *Service) retrieveCatalog(ctx context.Context, tenantID core.ID, query string) []RetrievedItem {
	matches, tier := s.CatalogLookup(ctx, tenantID, query)
	if tier == TierNone {
		return nil
	}
	score := catalogFuzzy
	switch tier {
	case TierExact:
		score = catalogExact
	case TierSubstring:
		score = catalogSubstr
	}
	out := make([]RetrievedItem, 0, len(matches))
	for i := range matches {
		out = append(out, RetrievedItem{
			Kind:    KindCatalog,
			ID:      matches[i].ID,
			Title:   matches[i].Name,
			Preview: matches[i].Name,
			Score:   score,
			FreshAt: matches[i].UpdatedAt,
		})
	}
	return out
}

func (s *Service) retrieveChunks(ctx context.Context, tenantID core.ID, query string, topK int) []RetrievedItem {
	caps := s.store.Capabilities()
	if !caps.Vector && !caps.FullText {
		return s.retrieveDegraded(ctx, tenantID, query, topK)
	}
	hits := s.vectorPass(ctx, tenantID, query, topK)
	keywordHits := s.keywordPass(ctx, tenantID, query, topK)
	// A tenant with no embeddings yet yields an empty vector pass; the
	// keyword pass alone still counts.
	merged := mergeHits(hits, keywordHits)
	longest := LongestToken(query)
	out := make([]RetrievedItem, 0, len(merged))
	for _, hit := range merged {
		score := hit.VectorSim
		if longest != "" && strings.Contains(strings.ToLower(hit.Chunk.Content), longest) {
			score = max(score, keywordBonus)
		}
		score = max(score, min(hit.TextRank*fulltextScale, 1))
		out = append(out, chunkItem(hit, clamp01(score)))
	}
	return out
}

// retrieveDegraded is pure substring scoring for backends with neither vector
// nor full-text support.
func (s *Service) retrieveDegraded(ctx context.Context, tenantID core.ID, query string, topK int) []RetrievedItem {
	tokens := SignificantTokens(query)
	hits, err := s.store.SearchChunksKeyword(ctx, tenantID, query, tokens, topK*2)
	if err != nil {
		logger.FromContext(ctx).Error("degraded chunk retrieval failed", "tenant_id", tenantID, "error", err)
		return nil
	}
	lowerQuery := strings.ToLower(query)
	out := make([]RetrievedItem, 0, len(hits))
	for _, hit := range hits {
		content := strings.ToLower(hit.Chunk.Content)
		score := 0.0
		switch {
		case strings.Contains(content, lowerQuery):
			score = degradedPhraseScore
		case anyTokenIn(content, tokens):
			score = degradedTokenScore
		default:
			continue
		}
		out = append(out, chunkItem(hit, score))
	}
	return out
}

func (s *Service) vectorPass(ctx context.Context, tenantID core.ID, query string, topK int) []store.ChunkHit {
	if !s.store.Capabilities().Vector || s.embedder == nil {
		return nil
	}
	log := logger.FromContext(ctx).With("tenant_id", tenantID)
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		// Embedding outages degrade to keyword signals, they never fail the
		// request.
		log.Warn("query embedding failed, falling back to keyword signals", "error", err)
		return nil
	}
	hits, err := s.store.SearchChunksVector(ctx, tenantID, vector, topK)
	if err != nil && !errors.Is(err, store.ErrUnsupported) {
		log.Error("vector chunk search failed", "error", err)
		return nil
	}
	return hits
}

func (s *Service) keywordPass(ctx context.Context, tenantID core.ID, query string, topK int) []store.ChunkHit {
	tokens := SignificantTokens(query)
	if len(tokens) == 0 && strings.TrimSpace(query) == "" {
		return nil
	}
	hits, err := s.store.SearchChunksKeyword(ctx, tenantID, query, tokens, topK)
	if err != nil && !errors.Is(err, store.ErrUnsupported) {
		logger.FromContext(ctx).Error("keyword chunk search failed", "tenant_id", tenantID, "error", err)
		return nil
	}
	return hits
}

// mergeHits unions vector and keyword hits by chunk id, keeping the strongest
// signal of each kind.
func mergeHits(vector, keyword []store.ChunkHit) []store.ChunkHit {
	byID := make(map[core.ID]int, len(vector))
	merged := make([]store.ChunkHit, 0, len(vector)+len(keyword))
	for _, hit := range vector {
		byID[hit.Chunk.ID] = len(merged)
		merged = append(merged, hit)
	}
	for _, hit := range keyword {
		if idx, ok := byID[hit.Chunk.ID]; ok {
			if hit.TextRank > merged[idx].TextRank {
				merged[idx].TextRank = hit.TextRank
			}
			continue
		}
		merged = append(merged, hit)
	}
	return merged
}

func chunkItem(hit store.ChunkHit, score float64) RetrievedItem {
	return RetrievedItem{
		Kind:       KindChunk,
		ID:         hit.Chunk.ID,
		DocumentID: hit.Chunk.DocumentID,
		ChunkIndex: hit.Chunk.ChunkIndex,
		Title:      hit.DocTitle,
		Preview:    preview(hit.Chunk.Content),
		Score:      score,
		vectorSim:  hit.VectorSim,
		FreshAt:    hit.Chunk.DataFreshAt,
	}
}

func preview(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= previewRunes {
		return string(runes)
	}
	return string(runes[:previewRunes]) + "…"
}

func anyTokenIn(content string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(content, tok) {
			return true
		}
	}
	return false
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
