package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pharmachat/pharmachat/engine/core"
)

// MemStore is an in-memory Store without trigram, vector or full-text support.
// It backs local development and tests, and exercises every degradation path
// of the retrieval cascade.
type MemStore struct {
	mu           sync.RWMutex
	tenants      map[core.ID]*Tenant
	catalog      map[core.ID][]CatalogItem
	documents    map[core.ID][]Document
	chunks       map[core.ID][]DocumentChunk
	serviceTypes map[core.ID][]ServiceType
	slots        map[core.ID][]Slot
	cart         map[core.ID][]CartItem
	appointments []Appointment
}

func NewMemStore() *MemStore {
	return &MemStore{
		tenants:      make(map[core.ID]*Tenant),
		catalog:      make(map[core.ID][]CatalogItem),
		documents:    make(map[core.ID][]Document),
		chunks:       make(map[core.ID][]DocumentChunk),
		serviceTypes: make(map[core.ID][]ServiceType),
		slots:        make(map[core.ID][]Slot),
		cart:         make(map[core.ID][]CartItem),
	}
}

func (s *MemStore) Capabilities() Capabilities {
	return Capabilities{}
}

// -----------------------------------------------------------------------------
// Seeding (development/test fixtures)
// -----------------------------------------------------------------------------

func (s *MemStore) AddTenant(t *Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
}

func (s *MemStore) AddCatalogItem(item CatalogItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog[item.TenantID] = append(s.catalog[item.TenantID], item)
}

func (s *MemStore) AddDocument(doc Document, chunks ...DocumentChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.TenantID] = append(s.documents[doc.TenantID], doc)
	s.chunks[doc.TenantID] = append(s.chunks[doc.TenantID], chunks...)
}

func (s *MemStore) AddServiceType(st ServiceType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serviceTypes[st.TenantID] = append(s.serviceTypes[st.TenantID], st)
}

func (s *MemStore) AddSlot(slot Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot.TenantID] = append(s.slots[slot.TenantID], slot)
}

func (s *MemStore) AddCartItem(item CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart[item.TenantID] = append(s.cart[item.TenantID], item)
}

// Appointments returns a snapshot of everything created through the store.
func (s *MemStore) Appointments() []Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Appointment, len(s.appointments))
	copy(out, s.appointments)
	return out
}

// -----------------------------------------------------------------------------
// Store implementation
// -----------------------------------------------------------------------------

func (s *MemStore) GetTenant(_ context.Context, id core.ID) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tenant, ok := s.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	cloned := *tenant
	return &cloned, nil
}

func (s *MemStore) ListCatalogItems(_ context.Context, tenantID core.ID) ([]CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CatalogItem, len(s.catalog[tenantID]))
	copy(out, s.catalog[tenantID])
	return out, nil
}

func (s *MemStore) SearchCatalogExact(_ context.Context, tenantID core.ID, name string) ([]CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := strings.ToLower(strings.TrimSpace(name))
	var out []CatalogItem
	for _, item := range s.catalog[tenantID] {
		if strings.ToLower(item.Name) == want {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *MemStore) SearchCatalogSubstring(_ context.Context, tenantID core.ID, tokens []string) ([]CatalogItem, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []CatalogItem
	for _, item := range s.catalog[tenantID] {
		name := strings.ToLower(item.Name)
		for _, tok := range tokens {
			if strings.Contains(name, strings.ToLower(tok)) {
				out = append(out, item)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemStore) SearchCatalogTrigram(context.Context, core.ID, string, float64) ([]TrigramMatch, error) {
	return nil, ErrUnsupported
}

func (s *MemStore) GetDocument(_ context.Context, tenantID core.ID, sourceType SourceType, sourceKey string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *Document
	for i := range s.documents[tenantID] {
		doc := &s.documents[tenantID][i]
		if doc.SourceType != sourceType || doc.SourceKey != sourceKey {
			continue
		}
		if found == nil || doc.Version > found.Version {
			found = doc
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	cloned := *found
	return &cloned, nil
}

func (s *MemStore) ListChunks(_ context.Context, tenantID core.ID, documentID core.ID) ([]DocumentChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DocumentChunk
	for _, chunk := range s.chunks[tenantID] {
		if chunk.DocumentID == documentID {
			out = append(out, chunk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (s *MemStore) SearchChunksVector(context.Context, core.ID, []float32, int) ([]ChunkHit, error) {
	return nil, ErrUnsupported
}

func (s *MemStore) SearchChunksKeyword(
	_ context.Context,
	tenantID core.ID,
	phrase string,
	tokens []string,
	topK int,
) ([]ChunkHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	titles := make(map[core.ID]string, len(s.documents[tenantID]))
	for _, doc := range s.documents[tenantID] {
		titles[doc.ID] = doc.Title
	}
	lowerPhrase := strings.ToLower(strings.TrimSpace(phrase))
	var hits []ChunkHit
	for _, chunk := range s.chunks[tenantID] {
		content := strings.ToLower(chunk.Content)
		matched := lowerPhrase != "" && strings.Contains(content, lowerPhrase)
		if !matched {
			for _, tok := range tokens {
				if strings.Contains(content, strings.ToLower(tok)) {
					matched = true
					break
				}
			}
		}
		if matched {
			hits = append(hits, ChunkHit{Chunk: chunk, DocTitle: titles[chunk.DocumentID]})
		}
	}
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *MemStore) ListServiceTypes(_ context.Context, tenantID core.ID) ([]ServiceType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ServiceType, len(s.serviceTypes[tenantID]))
	copy(out, s.serviceTypes[tenantID])
	return out, nil
}

func (s *MemStore) ListOpenSlots(_ context.Context, tenantID core.ID, limit int) ([]Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slots := s.slots[tenantID]
	if limit > 0 && len(slots) > limit {
		slots = slots[:limit]
	}
	out := make([]Slot, len(slots))
	copy(out, slots)
	return out, nil
}

func (s *MemStore) CreateAppointment(_ context.Context, appt *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments = append(s.appointments, *appt)
	return nil
}

func (s *MemStore) ListCartItems(_ context.Context, tenantID core.ID, customerID string) ([]CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []CartItem
	for _, item := range s.cart[tenantID] {
		if item.CustomerID == customerID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *MemStore) Close(context.Context) error {
	return nil
}
