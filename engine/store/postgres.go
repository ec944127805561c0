package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/pharmachat/pharmachat/engine/core"
)

// DBInterface is the minimal pgx surface the postgres store needs. *pgxpool.Pool
// satisfies it; tests may substitute a lighter implementation.
type DBInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore implements Store on PostgreSQL with pg_trgm, tsvector full-text and
// pgvector similarity available natively.
type PGStore struct {
	db   DBInterface
	pool *pgxpool.Pool
}

// NewPGStore connects a pool to dsn and registers pgvector types on every
// acquired connection.
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parsing postgres dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: connecting to postgres: %w", err)
	}
	return &PGStore{db: pool, pool: pool}, nil
}

// NewPGStoreWithDB wraps an existing connection-like value. Used in tests.
func NewPGStoreWithDB(db DBInterface) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Capabilities() Capabilities {
	return Capabilities{Trigram: true, Vector: true, FullText: true}
}

func (s *PGStore) GetTenant(ctx context.Context, id core.ID) (*Tenant, error) {
	query, args, err := squirrel.
		Select("id", "name", "opening_hours", "phone", "whatsapp", "address",
			"delivery_cod", "default_lang", "data_updated_at").
		From("tenants").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building tenant query: %w", err)
	}
	var tenant Tenant
	if err := pgxscan.Get(ctx, s.db, &tenant, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning tenant: %w", err)
	}
	return &tenant, nil
}

func (s *PGStore) ListCatalogItems(ctx context.Context, tenantID core.ID) ([]CatalogItem, error) {
	qb := catalogSelect().Where(squirrel.Eq{"tenant_id": tenantID}).OrderBy("name ASC")
	return s.selectCatalog(ctx, qb)
}

func (s *PGStore) SearchCatalogExact(ctx context.Context, tenantID core.ID, name string) ([]CatalogItem, error) {
	qb := catalogSelect().
		Where(squirrel.Eq{"tenant_id": tenantID}).
		Where("lower(name) = lower(?)", strings.TrimSpace(name))
	return s.selectCatalog(ctx, qb)
}

func (s *PGStore) SearchCatalogSubstring(ctx context.Context, tenantID core.ID, tokens []string) ([]CatalogItem, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	or := squirrel.Or{}
	for _, tok := range tokens {
		or = append(or, squirrel.ILike{"name": "%" + tok + "%"})
	}
	qb := catalogSelect().
		Where(squirrel.Eq{"tenant_id": tenantID}).
		Where(or).
		OrderBy("name ASC")
	return s.selectCatalog(ctx, qb)
}

func (s *PGStore) SearchCatalogTrigram(
	ctx context.Context,
	tenantID core.ID,
	name string,
	minSimilarity float64,
) ([]TrigramMatch, error) {
	const q = `SELECT id, tenant_id, kind, name, category, price, stock, rx_required, updated_at,
		similarity(name, $2) AS sim
		FROM catalog_items
		WHERE tenant_id = $1 AND similarity(name, $2) >= $3
		ORDER BY sim DESC, name ASC`
	rows, err := s.db.Query(ctx, q, tenantID, name, minSimilarity)
	if err != nil {
		return nil, fmt.Errorf("querying trigram matches: %w", err)
	}
	defer rows.Close()
	var matches []TrigramMatch
	for rows.Next() {
		var m TrigramMatch
		if err := rows.Scan(
			&m.Item.ID, &m.Item.TenantID, &m.Item.Kind, &m.Item.Name, &m.Item.Category,
			&m.Item.Price, &m.Item.Stock, &m.Item.RxRequired, &m.Item.UpdatedAt, &m.Similarity,
		); err != nil {
			return nil, fmt.Errorf("scanning trigram match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *PGStore) GetDocument(
	ctx context.Context,
	tenantID core.ID,
	sourceType SourceType,
	sourceKey string,
) (*Document, error) {
	query, args, err := squirrel.
		Select("id", "tenant_id", "source_type", "source_key", "title", "version",
			"created_at", "data_fresh_at", "indexed_at").
		From("documents").
		Where(squirrel.Eq{"tenant_id": tenantID, "source_type": sourceType, "source_key": sourceKey}).
		OrderBy("version DESC").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building document query: %w", err)
	}
	var doc Document
	if err := pgxscan.Get(ctx, s.db, &doc, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return &doc, nil
}

func (s *PGStore) ListChunks(ctx context.Context, tenantID core.ID, documentID core.ID) ([]DocumentChunk, error) {
	query, args, err := squirrel.
		Select("id", "tenant_id", "document_id", "chunk_index", "content", "version", "data_fresh_at").
		From("document_chunks").
		Where(squirrel.Eq{"tenant_id": tenantID, "document_id": documentID}).
		OrderBy("chunk_index ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building chunks query: %w", err)
	}
	var chunks []DocumentChunk
	if err := pgxscan.Select(ctx, s.db, &chunks, query, args...); err != nil {
		return nil, fmt.Errorf("scanning chunks: %w", err)
	}
	return chunks, nil
}

func (s *PGStore) SearchChunksVector(
	ctx context.Context,
	tenantID core.ID,
	vector []float32,
	topK int,
) ([]ChunkHit, error) {
	// Cosine distance lands in [0,2]; 1 - d/2 maps it onto [0,1].
	const q = `SELECT c.id, c.tenant_id, c.document_id, c.chunk_index, c.content,
		c.version, c.data_fresh_at, d.title,
		1 - (c.embedding <=> $2) / 2 AS vector_sim
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id AND d.tenant_id = c.tenant_id
		WHERE c.tenant_id = $1 AND c.embedding IS NOT NULL
		ORDER BY c.embedding <=> $2 ASC
		LIMIT $3`
	rows, err := s.db.Query(ctx, q, tenantID, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("querying chunks by vector: %w", err)
	}
	defer rows.Close()
	return scanChunkHits(rows, func(h *ChunkHit, extra *float64) {
		h.VectorSim = *extra
	})
}

func (s *PGStore) SearchChunksKeyword(
	ctx context.Context,
	tenantID core.ID,
	phrase string,
	tokens []string,
	topK int,
) ([]ChunkHit, error) {
	if phrase == "" && len(tokens) == 0 {
		return nil, nil
	}
	likeClauses := make([]string, 0, len(tokens))
	args := []any{tenantID, phrase, topK}
	for _, tok := range tokens {
		args = append(args, "%"+tok+"%")
		likeClauses = append(likeClauses, fmt.Sprintf("c.content ILIKE $%d", len(args)))
	}
	cond := "to_tsvector('simple', c.content) @@ plainto_tsquery('simple', $2)"
	if len(likeClauses) > 0 {
		cond = "(" + cond + " OR " + strings.Join(likeClauses, " OR ") + ")"
	}
	q := fmt.Sprintf(`SELECT c.id, c.tenant_id, c.document_id, c.chunk_index, c.content,
		c.version, c.data_fresh_at, d.title,
		ts_rank(to_tsvector('simple', c.content), plainto_tsquery('simple', $2)) AS text_rank
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id AND d.tenant_id = c.tenant_id
		WHERE c.tenant_id = $1 AND %s
		ORDER BY text_rank DESC
		LIMIT $3`, cond)
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks by keyword: %w", err)
	}
	defer rows.Close()
	return scanChunkHits(rows, func(h *ChunkHit, extra *float64) {
		h.TextRank = *extra
	})
}

func (s *PGStore) ListServiceTypes(ctx context.Context, tenantID core.ID) ([]ServiceType, error) {
	query, args, err := squirrel.Select("id", "tenant_id", "name").
		From("service_types").
		Where(squirrel.Eq{"tenant_id": tenantID}).
		OrderBy("name ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building service types query: %w", err)
	}
	var types []ServiceType
	if err := pgxscan.Select(ctx, s.db, &types, query, args...); err != nil {
		return nil, fmt.Errorf("scanning service types: %w", err)
	}
	return types, nil
}

func (s *PGStore) ListOpenSlots(ctx context.Context, tenantID core.ID, limit int) ([]Slot, error) {
	query, args, err := squirrel.Select("tenant_id", "starts_at").
		From("appointment_slots").
		Where(squirrel.Eq{"tenant_id": tenantID, "booked": false}).
		Where(squirrel.Gt{"starts_at": time.Now()}).
		OrderBy("starts_at ASC").
		Limit(uint64(limit)). //nolint:gosec // limit is a small positive constant
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building slots query: %w", err)
	}
	var slots []Slot
	if err := pgxscan.Select(ctx, s.db, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("scanning slots: %w", err)
	}
	return slots, nil
}

func (s *PGStore) CreateAppointment(ctx context.Context, appt *Appointment) error {
	query, args, err := squirrel.Insert("appointments").
		Columns("id", "tenant_id", "session_id", "service_type", "scheduled_for",
			"customer_name", "phone", "created_at").
		Values(appt.ID, appt.TenantID, appt.SessionID, appt.ServiceType,
			appt.ScheduledFor, appt.CustomerName, appt.Phone, appt.CreatedAt).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building appointment insert: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting appointment: %w", err)
	}
	return nil
}

func (s *PGStore) ListCartItems(ctx context.Context, tenantID core.ID, customerID string) ([]CartItem, error) {
	query, args, err := squirrel.Select("id", "tenant_id", "customer_id", "item_id", "name", "quantity", "price").
		From("cart_items").
		Where(squirrel.Eq{"tenant_id": tenantID, "customer_id": customerID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building cart query: %w", err)
	}
	var items []CartItem
	if err := pgxscan.Select(ctx, s.db, &items, query, args...); err != nil {
		return nil, fmt.Errorf("scanning cart items: %w", err)
	}
	return items, nil
}

func (s *PGStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func catalogSelect() squirrel.SelectBuilder {
	return squirrel.
		Select("id", "tenant_id", "kind", "name", "category", "price", "stock", "rx_required", "updated_at").
		From("catalog_items").
		PlaceholderFormat(squirrel.Dollar)
}

func (s *PGStore) selectCatalog(ctx context.Context, qb squirrel.SelectBuilder) ([]CatalogItem, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building catalog query: %w", err)
	}
	var items []CatalogItem
	if err := pgxscan.Select(ctx, s.db, &items, query, args...); err != nil {
		return nil, fmt.Errorf("scanning catalog items: %w", err)
	}
	return items, nil
}

func scanChunkHits(rows pgx.Rows, assign func(*ChunkHit, *float64)) ([]ChunkHit, error) {
	var hits []ChunkHit
	for rows.Next() {
		var h ChunkHit
		var extra float64
		if err := rows.Scan(
			&h.Chunk.ID, &h.Chunk.TenantID, &h.Chunk.DocumentID, &h.Chunk.ChunkIndex,
			&h.Chunk.Content, &h.Chunk.Version, &h.Chunk.DataFreshAt, &h.DocTitle, &extra,
		); err != nil {
			return nil, fmt.Errorf("scanning chunk hit: %w", err)
		}
		assign(&h, &extra)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
