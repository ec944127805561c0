package store

import (
	"context"
	"errors"

	"github.com/pharmachat/pharmachat/engine/core"
)

var (
	// ErrNotFound is returned when a tenant-scoped lookup matches nothing.
	ErrNotFound = errors.New("store: not found")
	// ErrUnsupported is returned by backends for operations outside their
	// declared Capabilities. Callers should check Capabilities first.
	ErrUnsupported = errors.New("store: operation not supported by backend")
)

// Capabilities reports what the backing store supports natively. The retriever
// degrades its cascade based on these flags instead of probing with failed
// queries.
type Capabilities struct {
	Trigram  bool
	Vector   bool
	FullText bool
}

// TrigramMatch is a catalog row matched by approximate name similarity.
type TrigramMatch struct {
	Item       CatalogItem
	Similarity float64
}

// Store is the evidence store adapter: the only component that touches
// persistent storage. Every method is tenant-scoped; no implementation may
// return rows owned by another tenant, including from fuzzy or vector search.
type Store interface {
	Capabilities() Capabilities

	GetTenant(ctx context.Context, id core.ID) (*Tenant, error)

	// Catalog lookups, one per cascade tier.
	ListCatalogItems(ctx context.Context, tenantID core.ID) ([]CatalogItem, error)
	SearchCatalogExact(ctx context.Context, tenantID core.ID, name string) ([]CatalogItem, error)
	SearchCatalogSubstring(ctx context.Context, tenantID core.ID, tokens []string) ([]CatalogItem, error)
	// SearchCatalogTrigram requires Capabilities().Trigram.
	SearchCatalogTrigram(ctx context.Context, tenantID core.ID, name string, minSimilarity float64) ([]TrigramMatch, error)

	// Document reads. GetDocument resolves a source key to its highest
	// indexed version.
	GetDocument(ctx context.Context, tenantID core.ID, sourceType SourceType, sourceKey string) (*Document, error)
	ListChunks(ctx context.Context, tenantID core.ID, documentID core.ID) ([]DocumentChunk, error)

	// Chunk retrieval. SearchChunksVector requires Capabilities().Vector and
	// ranks by cosine distance; SearchChunksKeyword combines substring and
	// (when supported) full-text rank signals.
	SearchChunksVector(ctx context.Context, tenantID core.ID, vector []float32, topK int) ([]ChunkHit, error)
	SearchChunksKeyword(ctx context.Context, tenantID core.ID, phrase string, tokens []string, topK int) ([]ChunkHit, error)

	// Appointment/cart collaborators, invoked only by the tool executor.
	ListServiceTypes(ctx context.Context, tenantID core.ID) ([]ServiceType, error)
	ListOpenSlots(ctx context.Context, tenantID core.ID, limit int) ([]Slot, error)
	CreateAppointment(ctx context.Context, appt *Appointment) error
	ListCartItems(ctx context.Context, tenantID core.ID, customerID string) ([]CartItem, error)

	Close(ctx context.Context) error
}
