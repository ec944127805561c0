package retriever_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmachat/pharmachat/engine/core"
	"github.com/pharmachat/pharmachat/engine/retriever"
	"github.com/pharmachat/pharmachat/engine/store"
)

type stubEmbedder struct {
	fail bool
}

func (s *stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	if s.fail {
		return nil, errors.New("embedding service down")
	}
	return []float32{1, 0, 0}, nil
}

// hybridStore overlays vector/full-text capabilities on a MemStore with
// canned chunk hits.
type hybridStore struct {
	*store.MemStore
	vectorHits  []store.ChunkHit
	keywordHits []store.ChunkHit
}

func (s *hybridStore) Capabilities() store.Capabilities {
	return store.Capabilities{Trigram: false, Vector: true, FullText: true}
}

func (s *hybridStore) SearchChunksVector(context.Context, core.ID, []float32, int) ([]store.ChunkHit, error) {
	return append([]store.ChunkHit(nil), s.vectorHits...), nil
}

func (s *hybridStore) SearchChunksKeyword(
	context.Context, core.ID, string, []string, int,
) ([]store.ChunkHit, error) {
	return append([]store.ChunkHit(nil), s.keywordHits...), nil
}

func seedCatalog(t *testing.T) (*store.MemStore, core.ID, core.ID) {
	t.Helper()
	s := store.NewMemStore()
	tenantA := core.MustNewID()
	tenantB := core.MustNewID()
	s.AddCatalogItem(store.CatalogItem{
		ID: core.MustNewID(), TenantID: tenantA, Kind: store.ItemMedicine,
		Name: "Panadol", Price: 5, Stock: 10, UpdatedAt: time.Now(),
	})
	s.AddCatalogItem(store.CatalogItem{
		ID: core.MustNewID(), TenantID: tenantA, Kind: store.ItemProduct,
		Name: "Vitamin C 1000mg", Price: 12, Stock: 4, UpdatedAt: time.Now(),
	})
	s.AddCatalogItem(store.CatalogItem{
		ID: core.MustNewID(), TenantID: tenantB, Kind: store.ItemMedicine,
		Name: "Panadol Night", Price: 6, Stock: 2, UpdatedAt: time.Now(),
	})
	return s, tenantA, tenantB
}

func TestCatalogLookup_Cascade(t *testing.T) {
	t.Run("Should win on the exact tier first", func(t *testing.T) {
		s, tenantA, _ := seedCatalog(t)
		svc, err := retriever.NewService(s, nil)
		require.NoError(t, err)
		items, tier := svc.CatalogLookup(t.Context(), tenantA, "panadol")
		assert.Equal(t, retriever.TierExact, tier)
		require.Len(t, items, 1)
		assert.Equal(t, "Panadol", items[0].Name)
	})
	t.Run("Should fall to the substring tier on partial names", func(t *testing.T) {
		s, tenantA, _ := seedCatalog(t)
		svc, err := retriever.NewService(s, nil)
		require.NoError(t, err)
		items, tier := svc.CatalogLookup(t.Context(), tenantA, "do you have vitamin tablets")
		assert.Equal(t, retriever.TierSubstring, tier)
		require.Len(t, items, 1)
		assert.Equal(t, "Vitamin C 1000mg", items[0].Name)
	})
	t.Run("Should catch misspellings on the fuzzy tier", func(t *testing.T) {
		s, tenantA, _ := seedCatalog(t)
		svc, err := retriever.NewService(s, nil)
		require.NoError(t, err)
		items, tier := svc.CatalogLookup(t.Context(), tenantA, "panadoll")
		assert.Equal(t, retriever.TierFuzzy, tier)
		require.Len(t, items, 1)
		assert.Equal(t, "Panadol", items[0].Name)
	})
	t.Run("Should return nothing for unrelated queries", func(t *testing.T) {
		s, tenantA, _ := seedCatalog(t)
		svc, err := retriever.NewService(s, nil)
		require.NoError(t, err)
		items, tier := svc.CatalogLookup(t.Context(), tenantA, "lawnmower")
		assert.Equal(t, retriever.TierNone, tier)
		assert.Empty(t, items)
	})
}

func TestCatalogLookup_TenantIsolation(t *testing.T) {
	t.Run("Should never match rows of another tenant on any tier", func(t *testing.T) {
		s, tenantA, tenantB := seedCatalog(t)
		svc, err := retriever.NewService(s, nil)
		require.NoError(t, err)
		for _, query := range []string{"Panadol Night", "panadol nigth", "night"} {
			items, _ := svc.CatalogLookup(t.Context(), tenantA, query)
			for _, item := range items {
				assert.Equal(t, tenantA, item.TenantID, "query %q leaked across tenants", query)
			}
		}
		items, tier := svc.CatalogLookup(t.Context(), tenantB, "Panadol Night")
		assert.Equal(t, retriever.TierExact, tier)
		require.Len(t, items, 1)
	})
}

func TestRetrieve_HybridScoring(t *testing.T) {
	tenant := core.MustNewID()
	chunk := func(id string, content string, vectorSim, textRank float64) store.ChunkHit {
		return store.ChunkHit{
			Chunk: store.DocumentChunk{
				ID: core.ID(id), TenantID: tenant, DocumentID: core.MustNewID(),
				Content: content, DataFreshAt: time.Now(),
			},
			DocTitle:  "doc",
			VectorSim: vectorSim,
			TextRank:  textRank,
		}
	}
	t.Run("Should take the maximum of the three signals", func(t *testing.T) {
		s := &hybridStore{
			MemStore: store.NewMemStore(),
			vectorHits: []store.ChunkHit{
				chunk("vec", "unrelated text", 0.6, 0),
			},
			keywordHits: []store.ChunkHit{
				chunk("kw", "our delivery policy covers the whole city", 0, 0.2),
			},
		}
		svc, err := retriever.NewService(s, &stubEmbedder{})
		require.NoError(t, err)
		items := svc.Retrieve(t.Context(), tenant, "what is the delivery policy", 5)
		require.Len(t, items, 2)
		// keyword bonus 0.9 beats the 0.6 vector hit; fulltext 0.2*2=0.4 loses to it
		assert.Equal(t, core.ID("kw"), items[0].ID)
		assert.InDelta(t, 0.9, items[0].Score, 1e-9)
		assert.InDelta(t, 0.6, items[1].Score, 1e-9)
	})
	t.Run("Should survive an embedding outage on keyword signals", func(t *testing.T) {
		s := &hybridStore{
			MemStore: store.NewMemStore(),
			keywordHits: []store.ChunkHit{
				chunk("kw", "hours are nine to nine daily", 0, 0.6),
			},
		}
		svc, err := retriever.NewService(s, &stubEmbedder{fail: true})
		require.NoError(t, err)
		items := svc.Retrieve(t.Context(), tenant, "when are the opening times", 5)
		require.Len(t, items, 1)
		// fulltext 0.6*2 clamps to 1
		assert.Equal(t, 1.0, items[0].Score)
	})
}

func TestRetrieve_DegradedBackend(t *testing.T) {
	t.Run("Should score phrase containment above token containment", func(t *testing.T) {
		s := store.NewMemStore()
		tenant := core.MustNewID()
		doc := store.Document{ID: core.MustNewID(), TenantID: tenant, Title: "FAQ", DataFreshAt: time.Now()}
		s.AddDocument(doc,
			store.DocumentChunk{
				ID: core.MustNewID(), TenantID: tenant, DocumentID: doc.ID,
				Content: "We accept cash on delivery for all orders.",
			},
			store.DocumentChunk{
				ID: core.MustNewID(), TenantID: tenant, DocumentID: doc.ID,
				Content: "Delivery fees vary by zone.",
			},
		)
		svc, err := retriever.NewService(s, nil)
		require.NoError(t, err)
		items := svc.Retrieve(t.Context(), tenant, "cash on delivery", 5)
		require.Len(t, items, 2)
		assert.InDelta(t, 0.8, items[0].Score, 1e-9)
		assert.InDelta(t, 0.5, items[1].Score, 1e-9)
	})
}

func TestMinScore(t *testing.T) {
	t.Run("Should use the lower floor for short queries", func(t *testing.T) {
		svc, err := retriever.NewService(store.NewMemStore(), nil)
		require.NoError(t, err)
		assert.Less(t, svc.MinScore("panadol"), svc.MinScore("how long does delivery take to reach the suburbs"))
	})
}
