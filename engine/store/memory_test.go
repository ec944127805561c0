package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmachat/pharmachat/engine/core"
	"github.com/pharmachat/pharmachat/engine/store"
)

func seedTwoTenants(t *testing.T) (*store.MemStore, core.ID, core.ID) {
	t.Helper()
	s := store.NewMemStore()
	tenantA := core.MustNewID()
	tenantB := core.MustNewID()
	s.AddTenant(&store.Tenant{ID: tenantA, Name: "Pharmacie Centrale", DataUpdatedAt: time.Now()})
	s.AddTenant(&store.Tenant{ID: tenantB, Name: "City Pharmacy", DataUpdatedAt: time.Now()})
	s.AddCatalogItem(store.CatalogItem{
		ID: core.MustNewID(), TenantID: tenantA, Kind: store.ItemMedicine,
		Name: "Panadol", Price: 5, Stock: 10,
	})
	s.AddCatalogItem(store.CatalogItem{
		ID: core.MustNewID(), TenantID: tenantB, Kind: store.ItemMedicine,
		Name: "Panadol Extra", Price: 7, Stock: 3,
	})
	return s, tenantA, tenantB
}

func TestMemStore_GetTenant(t *testing.T) {
	t.Run("Should return ErrNotFound for unknown tenant", func(t *testing.T) {
		s := store.NewMemStore()
		_, err := s.GetTenant(t.Context(), core.MustNewID())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
	t.Run("Should return a copy of the stored tenant", func(t *testing.T) {
		s, tenantA, _ := seedTwoTenants(t)
		got, err := s.GetTenant(t.Context(), tenantA)
		require.NoError(t, err)
		got.Name = "mutated"
		again, err := s.GetTenant(t.Context(), tenantA)
		require.NoError(t, err)
		assert.Equal(t, "Pharmacie Centrale", again.Name)
	})
}

func TestMemStore_CatalogSearch(t *testing.T) {
	t.Run("Should match names case-insensitively", func(t *testing.T) {
		s, tenantA, _ := seedTwoTenants(t)
		items, err := s.SearchCatalogExact(t.Context(), tenantA, "  pAnAdOl ")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Panadol", items[0].Name)
	})
	t.Run("Should never cross the tenant boundary", func(t *testing.T) {
		s, tenantA, tenantB := seedTwoTenants(t)
		items, err := s.SearchCatalogSubstring(t.Context(), tenantA, []string{"panadol"})
		require.NoError(t, err)
		for _, item := range items {
			assert.Equal(t, tenantA, item.TenantID)
		}
		items, err = s.SearchCatalogSubstring(t.Context(), tenantB, []string{"panadol"})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Panadol Extra", items[0].Name)
	})
	t.Run("Should report unsupported trigram search", func(t *testing.T) {
		s, tenantA, _ := seedTwoTenants(t)
		_, err := s.SearchCatalogTrigram(t.Context(), tenantA, "panadol", 0.7)
		assert.ErrorIs(t, err, store.ErrUnsupported)
	})
}

func TestMemStore_SearchChunksKeyword(t *testing.T) {
	s := store.NewMemStore()
	tenant := core.MustNewID()
	doc := store.Document{
		ID: core.MustNewID(), TenantID: tenant, SourceType: store.SourceFAQ,
		Title: "Delivery FAQ", DataFreshAt: time.Now(),
	}
	s.AddDocument(doc, store.DocumentChunk{
		ID: core.MustNewID(), TenantID: tenant, DocumentID: doc.ID,
		Content: "We deliver within 24 hours and accept cash on delivery.",
	})
	t.Run("Should match on phrase containment", func(t *testing.T) {
		hits, err := s.SearchChunksKeyword(t.Context(), tenant, "cash on delivery", nil, 5)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "Delivery FAQ", hits[0].DocTitle)
	})
	t.Run("Should match on any token", func(t *testing.T) {
		hits, err := s.SearchChunksKeyword(t.Context(), tenant, "", []string{"deliver"}, 5)
		require.NoError(t, err)
		assert.Len(t, hits, 1)
	})
	t.Run("Should return nothing for other tenants", func(t *testing.T) {
		hits, err := s.SearchChunksKeyword(t.Context(), core.MustNewID(), "cash on delivery", nil, 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestMemStore_Appointments(t *testing.T) {
	t.Run("Should record created appointments", func(t *testing.T) {
		s := store.NewMemStore()
		tenant := core.MustNewID()
		err := s.CreateAppointment(t.Context(), &store.Appointment{
			ID: core.MustNewID(), TenantID: tenant, ServiceType: "vaccination",
			CustomerName: "Sara", Phone: "0555123456", CreatedAt: time.Now(),
		})
		require.NoError(t, err)
		require.Len(t, s.Appointments(), 1)
		assert.Equal(t, tenant, s.Appointments()[0].TenantID)
	})
}

func TestMemStore_Documents(t *testing.T) {
	s := store.NewMemStore()
	tenantA := core.MustNewID()
	tenantB := core.MustNewID()
	docV1 := core.MustNewID()
	docV2 := core.MustNewID()
	s.AddDocument(
		store.Document{ID: docV1, TenantID: tenantA, SourceType: store.SourceFAQ, SourceKey: "faq", Version: 1},
	)
	s.AddDocument(
		store.Document{ID: docV2, TenantID: tenantA, SourceType: store.SourceFAQ, SourceKey: "faq", Version: 2},
		store.DocumentChunk{ID: core.MustNewID(), TenantID: tenantA, DocumentID: docV2, ChunkIndex: 1, Content: "second"},
		store.DocumentChunk{ID: core.MustNewID(), TenantID: tenantA, DocumentID: docV2, ChunkIndex: 0, Content: "first"},
	)

	t.Run("Should resolve a source key to its highest version", func(t *testing.T) {
		doc, err := s.GetDocument(t.Context(), tenantA, store.SourceFAQ, "faq")
		require.NoError(t, err)
		assert.Equal(t, docV2, doc.ID)
		assert.EqualValues(t, 2, doc.Version)
	})

	t.Run("Should not resolve documents across tenants", func(t *testing.T) {
		_, err := s.GetDocument(t.Context(), tenantB, store.SourceFAQ, "faq")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Should list chunks in index order", func(t *testing.T) {
		chunks, err := s.ListChunks(t.Context(), tenantA, docV2)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "first", chunks[0].Content)
		assert.Equal(t, "second", chunks[1].Content)
	})
}
