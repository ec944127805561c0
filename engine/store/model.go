package store

import (
	"time"

	"github.com/pharmachat/pharmachat/engine/core"
)

// -----------------------------------------------------------------------------
// Tenant
// -----------------------------------------------------------------------------

// Tenant is a single pharmacy account and the isolation boundary for every
// other entity in this package. Read-only for this core.
type Tenant struct {
	ID            core.ID       `db:"id"`
	Name          string        `db:"name"`
	OpeningHours  string        `db:"opening_hours"`
	Phone         string        `db:"phone"`
	WhatsApp      string        `db:"whatsapp"`
	Address       string        `db:"address"`
	DeliveryCOD   bool          `db:"delivery_cod"`
	DefaultLang   core.Language `db:"default_lang"`
	DataUpdatedAt time.Time     `db:"data_updated_at"`
}

// Contact returns the best available contact line for escalation messages.
func (t *Tenant) Contact() string {
	switch {
	case t.Phone != "" && t.WhatsApp != "":
		return t.Phone + " / " + t.WhatsApp
	case t.Phone != "":
		return t.Phone
	case t.WhatsApp != "":
		return t.WhatsApp
	default:
		return ""
	}
}

// -----------------------------------------------------------------------------
// Catalog
// -----------------------------------------------------------------------------

type ItemKind string

const (
	ItemMedicine ItemKind = "medicine"
	ItemProduct  ItemKind = "product"
)

// CatalogItem is a tenant-scoped medicine or product row. Owned by external
// inventory management; read-only here.
type CatalogItem struct {
	ID         core.ID   `db:"id"`
	TenantID   core.ID   `db:"tenant_id"`
	Kind       ItemKind  `db:"kind"`
	Name       string    `db:"name"`
	Category   string    `db:"category"`
	Price      float64   `db:"price"`
	Stock      int       `db:"stock"`
	RxRequired bool      `db:"rx_required"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (c *CatalogItem) InStock() bool {
	return c.Stock > 0
}

// -----------------------------------------------------------------------------
// Documents
// -----------------------------------------------------------------------------

type SourceType string

const (
	SourcePlaybook SourceType = "playbook"
	SourceCatalog  SourceType = "catalog"
	SourceFAQ      SourceType = "faq"
	SourceUpload   SourceType = "upload"
)

// Document is a logical knowledge unit owned by the external indexing job.
// Chunks are deleted and recreated wholesale on reindex.
type Document struct {
	ID          core.ID    `db:"id"`
	TenantID    core.ID    `db:"tenant_id"`
	SourceType  SourceType `db:"source_type"`
	SourceKey   string     `db:"source_key"`
	Title       string     `db:"title"`
	Version     int64      `db:"version"`
	CreatedAt   time.Time  `db:"created_at"`
	DataFreshAt time.Time  `db:"data_fresh_at"`
	IndexedAt   time.Time  `db:"indexed_at"`
}

type DocumentChunk struct {
	ID          core.ID   `db:"id"`
	TenantID    core.ID   `db:"tenant_id"`
	DocumentID  core.ID   `db:"document_id"`
	ChunkIndex  int       `db:"chunk_index"`
	Content     string    `db:"content"`
	Embedding   []float32 `db:"-"`
	Version     int64     `db:"version"`
	DataFreshAt time.Time `db:"data_fresh_at"`
}

// ChunkHit pairs a chunk with the raw ranking signals the backend produced.
// VectorSim is carried as cosine distance scaled to [0,1] similarity (0 when
// the backend has no vector support or the chunk has no embedding); TextRank
// is the backend's full-text relevance (0 when unsupported).
type ChunkHit struct {
	Chunk     DocumentChunk
	DocTitle  string
	VectorSim float64
	TextRank  float64
}

// -----------------------------------------------------------------------------
// Appointments / cart (side-effect sinks)
// -----------------------------------------------------------------------------

type ServiceType struct {
	ID       core.ID `db:"id"`
	TenantID core.ID `db:"tenant_id"`
	Name     string  `db:"name"`
}

type Slot struct {
	TenantID core.ID   `db:"tenant_id"`
	StartsAt time.Time `db:"starts_at"`
}

type Appointment struct {
	ID           core.ID   `db:"id"`
	TenantID     core.ID   `db:"tenant_id"`
	SessionID    string    `db:"session_id"`
	ServiceType  string    `db:"service_type"`
	ScheduledFor string    `db:"scheduled_for"`
	CustomerName string    `db:"customer_name"`
	Phone        string    `db:"phone"`
	CreatedAt    time.Time `db:"created_at"`
}

type CartItem struct {
	ID         core.ID `db:"id"`
	TenantID   core.ID `db:"tenant_id"`
	CustomerID string  `db:"customer_id"`
	ItemID     core.ID `db:"item_id"`
	Name       string  `db:"name"`
	Quantity   int     `db:"quantity"`
	Price      float64 `db:"price"`
}
