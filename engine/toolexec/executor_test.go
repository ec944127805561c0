package toolexec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmachat/pharmachat/engine/core"
	"github.com/pharmachat/pharmachat/engine/guard"
	"github.com/pharmachat/pharmachat/engine/retriever"
	"github.com/pharmachat/pharmachat/engine/router"
	"github.com/pharmachat/pharmachat/engine/session"
	"github.com/pharmachat/pharmachat/engine/store"
)

// spyStore counts catalog and cart reads so tests can assert an intent never
// touched the store.
type spyStore struct {
	*store.MemStore
	reads int
}

func (s *spyStore) SearchCatalogExact(ctx context.Context, tenantID core.ID, name string) ([]store.CatalogItem, error) {
	s.reads++
	return s.MemStore.SearchCatalogExact(ctx, tenantID, name)
}

func (s *spyStore) ListCartItems(ctx context.Context, tenantID core.ID, customerID string) ([]store.CartItem, error) {
	s.reads++
	return s.MemStore.ListCartItems(ctx, tenantID, customerID)
}

func (s *spyStore) ListServiceTypes(ctx context.Context, tenantID core.ID) ([]store.ServiceType, error) {
	s.reads++
	return s.MemStore.ListServiceTypes(ctx, tenantID)
}

func seedTenant(t *testing.T, mem *store.MemStore) *store.Tenant {
	t.Helper()
	tenant := &store.Tenant{
		ID:            core.MustNewID(),
		Name:          "Pharmacie Centrale",
		OpeningHours:  "Mon-Sat 9:00-21:00",
		Phone:         "+212 522 000 111",
		WhatsApp:      "+212 600 000 111",
		Address:       "12 Rue des Fleurs, Casablanca",
		DeliveryCOD:   true,
		DefaultLang:   core.LanguageEnglish,
		DataUpdatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	mem.AddTenant(tenant)
	return tenant
}

func newExecutor(t *testing.T, st store.Store) *Executor {
	t.Helper()
	ret, err := retriever.NewService(st, nil)
	require.NoError(t, err)
	exec, err := NewExecutor(st, ret)
	require.NoError(t, err)
	return exec
}

func TestExecutor_Greeting(t *testing.T) {
	mem := store.NewMemStore()
	tenant := seedTenant(t, mem)
	exec := newExecutor(t, mem)

	t.Run("Should return canned text with quick replies", func(t *testing.T) {
		res := &router.Result{Intent: router.IntentGreeting, Language: core.LanguageEnglish}
		out := exec.Execute(context.Background(), tenant, res, nil, "s1", "c1", "hello")
		assert.Contains(t, out.Answer, tenant.Name)
		assert.NotEmpty(t, out.Context.QuickReplies)
		assert.True(t, out.Context.Found)
	})
}

func TestExecutor_HoursContact(t *testing.T) {
	mem := store.NewMemStore()
	tenant := seedTenant(t, mem)
	exec := newExecutor(t, mem)

	t.Run("Should cite the pharmacy profile with its freshness date", func(t *testing.T) {
		res := &router.Result{Intent: router.IntentHoursContact, Language: core.LanguageEnglish}
		out := exec.Execute(context.Background(), tenant, res, nil, "s1", "c1", "when do you open")
		assert.Contains(t, out.Answer, tenant.OpeningHours)
		require.Len(t, out.Context.Citations, 1)
		assert.Equal(t, tenant.DataUpdatedAt, out.Context.Citations[0].FreshAt)
		assert.Equal(t, []time.Time{tenant.DataUpdatedAt}, out.Context.FreshAt)
	})
}

func TestExecutor_Upload(t *testing.T) {
	mem := store.NewMemStore()
	tenant := seedTenant(t, mem)
	exec := newExecutor(t, mem)

	t.Run("Should prompt for the prescription photo with an upload action", func(t *testing.T) {
		res := &router.Result{Intent: router.IntentUpload, Language: core.LanguageEnglish}
		out := exec.Execute(context.Background(), tenant, res, nil, "s1", "c1", "can I upload my prescription")
		assert.Contains(t, out.Answer, "prescription")
		require.Len(t, out.Actions, 1)
		assert.Equal(t, ActionUploadPrescription, out.Actions[0].Type)
	})

	t.Run("Should attach the last searched item to the upload action", func(t *testing.T) {
		res := &router.Result{Intent: router.IntentUpload, Language: core.LanguageEnglish}
		itemID := core.MustNewID()
		log, err := session.Log(nil).SetState(session.KeyLastTopResult, resultRef{ID: itemID, Name: "Augmentin", Kind: "medicine"})
		require.NoError(t, err)
		out := exec.Execute(context.Background(), tenant, res, log, "s1", "c1", "here is my prescription")
		require.Len(t, out.Actions, 1)
		assert.Equal(t, itemID, out.Actions[0].ItemID)
		assert.Equal(t, "Augmentin", out.Actions[0].ItemName)
	})
}

func TestExecutor_Search(t *testing.T) {
	mem := store.NewMemStore()
	tenant := seedTenant(t, mem)
	mem.AddCatalogItem(store.CatalogItem{
		ID: core.MustNewID(), TenantID: tenant.ID, Kind: store.ItemMedicine,
		Name: "Panadol", Price: 25, Stock: 12,
	})
	mem.AddCatalogItem(store.CatalogItem{
		ID: core.MustNewID(), TenantID: tenant.ID, Kind: store.ItemMedicine,
		Name: "Augmentin", Price: 80, Stock: 4, RxRequired: true,
	})
	mem.AddCatalogItem(store.CatalogItem{
		ID: core.MustNewID(), TenantID: tenant.ID, Kind: store.ItemProduct,
		Name: "Vitamin C 500mg", Price: 45, Stock: 0,
	})
	exec := newExecutor(t, mem)

	t.Run("Should return a card and add-to-cart action on an exact hit", func(t *testing.T) {
		res := &router.Result{Intent: router.IntentMedicineSearch, Language: core.LanguageEnglish, Query: "panadol"}
		out := exec.Execute(context.Background(), tenant, res, nil, "s1", "c1", "do you have panadol")
		require.Len(t, out.Context.Items, 1)
		assert.Equal(t, "Panadol", out.Context.Items[0].Name)
		assert.True(t, out.Context.Found)
		require.Len(t, out.Actions, 1)
		assert.Equal(t, ActionAddToCart, out.Actions[0].Type)

		var top resultRef
		require.True(t, out.Log.GetState(session.KeyLastTopResult, &top))
		assert.Equal(t, "Panadol", top.Name)
	})

	t.Run("Should propose prescription upload for rx-only items", func(t *testing.T) {
		res := &router.Result{Intent: router.IntentMedicineSearch, Language: core.LanguageEnglish, Query: "augmentin"}
		out := exec.Execute(context.Background(), tenant, res, nil, "s1", "c1", "augmentin please")
		require.Len(t, out.Actions, 1)
		assert.Equal(t, ActionUploadPrescription, out.Actions[0].Type)
	})

	t.Run("Should propose stock notification for out-of-stock items", func(t *testing.T) {
		res := &router.Result{Intent: router.IntentProductSearch, Language: core.LanguageEnglish, Query: "vitamin c"}
		out := exec.Execute(context.Background(), tenant, res, nil, "s1", "c1", "vitamin c")
		require.Len(t, out.Actions, 1)
		assert.Equal(t, ActionNotifyStock, out.Actions[0].Type)
		assert.Contains(t, out.Answer, "out of stock")
	})

	t.Run("Should turn a fuzzy-only match into a did-you-mean suggestion", func(t *testing.T) {
		res := &router.Result{Intent: router.IntentMedicineSearch, Language: core.LanguageEnglish, Query: "panadoll"}
		out := exec.Execute(context.Background(), tenant, res, nil, "s1", "c1", "panadoll")
		assert.False(t, out.Context.Found)
		assert.Empty(t, out.Context.Items)
		require.NotEmpty(t, out.Context.Suggestions)
		assert.Equal(t, "Panadol", out.Context.Suggestions[0])
		assert.Contains(t, out.Answer, "Did you mean")
	})

	t.Run("Should resolve each sub-query of a multi-item request", func(t *testing.T) {
		res := &router.Result{Intent: router.IntentMedicineSearch, Language: core.LanguageEnglish, Query: "panadol and augmentin"}
		out := exec.Execute(context.Background(), tenant, res, nil, "s1", "c1", "panadol and augmentin")
		require.Len(t, out.Context.Items, 2)
		names := []string{out.Context.Items[0].Name, out.Context.Items[1].Name}
		assert.Contains(t, names, "Panadol")
		assert.Contains(t, names, "Augmentin")
	})

	t.Run("Should report a miss without inventing items", func(t *testing.T) {
		res := &router.Result{Intent: router.IntentMedicineSearch, Language: core.LanguageEnglish, Query: "xyzmed"}
		out := exec.Execute(context.Background(), tenant, res, nil, "s1", "c1", "xyzmed")
		assert.False(t, out.Context.Found)
		assert.Contains(t, out.Answer, "could not find")
	})
}

func TestExecutor_Risky(t *testing.T) {
	spy := &spyStore{MemStore: store.NewMemStore()}
	tenant := seedTenant(t, spy.MemStore)
	exec := newExecutor(t, spy)

	t.Run("Should escalate with the safety response and never read the store", func(t *testing.T) {
		res := &router.Result{Intent: router.IntentRisky, Language: core.LanguageEnglish, Risk: core.RiskHigh}
		out := exec.Execute(context.Background(), tenant, res, nil, "s1", "c1", "can I take ibuprofen while pregnant")
		assert.True(t, out.Context.Escalated)
		assert.Equal(t, guard.SafetyResponse(tenant, core.LanguageEnglish), out.Answer)
		assert.Empty(t, out.Context.Citations)
		assert.Zero(t, spy.reads)
	})
}

func TestExecutor_Appointment(t *testing.T) {
	mem := store.NewMemStore()
	tenant := seedTenant(t, mem)
	mem.AddServiceType(store.ServiceType{ID: core.MustNewID(), TenantID: tenant.ID, Name: "Vaccination"})
	mem.AddServiceType(store.ServiceType{ID: core.MustNewID(), TenantID: tenant.ID, Name: "Blood pressure check"})
	mem.AddSlot(store.Slot{TenantID: tenant.ID, StartsAt: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)})
	exec := newExecutor(t, mem)

	res := &router.Result{Intent: router.IntentAppointment, Language: core.LanguageEnglish}

	t.Run("Should prompt for missing fields and remember partial slots", func(t *testing.T) {
		out := exec.Execute(context.Background(), tenant, res, nil, "s1", "c1", "I want a vaccination appointment")
		assert.Contains(t, out.Answer, "still need")
		assert.Contains(t, out.Answer, "Vaccination")
		assert.Empty(t, mem.Appointments())
		require.Len(t, out.Context.Citations, 1)
		assert.Equal(t, string(store.SourcePlaybook), out.Context.Citations[0].SourceType)

		var pending pendingAppointment
		require.True(t, out.Log.GetState(session.KeyPendingAppointment, &pending))
		assert.Equal(t, "Vaccination", pending.ServiceType)
		assert.Empty(t, pending.Phone)
	})

	t.Run("Should create the appointment exactly once when all slots resolve", func(t *testing.T) {
		out := exec.Execute(context.Background(), tenant, res, nil, "s2", "c1", "I want a vaccination appointment")
		out = exec.Execute(context.Background(), tenant, res, out.Log, "s2", "c1",
			"tomorrow morning, my name is Sara Amrani, phone 0661234567")

		appts := mem.Appointments()
		require.Len(t, appts, 1)
		assert.Equal(t, "Vaccination", appts[0].ServiceType)
		assert.Equal(t, "Sara Amrani", appts[0].CustomerName)
		assert.Equal(t, "0661234567", appts[0].Phone)
		assert.Equal(t, "s2", appts[0].SessionID)
		assert.Contains(t, out.Answer, "Booked")

		// frame cleared: the next appointment message starts from scratch
		var pending pendingAppointment
		assert.False(t, out.Log.GetState(session.KeyPendingAppointment, &pending))

		out = exec.Execute(context.Background(), tenant, res, out.Log, "s2", "c1", "another one tomorrow")
		assert.Len(t, mem.Appointments(), 1)
		assert.Contains(t, out.Answer, "still need")
	})

	t.Run("Should not overwrite already filled slots", func(t *testing.T) {
		out := exec.Execute(context.Background(), tenant, res, nil, "s3", "c1", "vaccination tomorrow")
		out = exec.Execute(context.Background(), tenant, res, out.Log, "s3", "c1", "blood pressure check instead")

		var pending pendingAppointment
		require.True(t, out.Log.GetState(session.KeyPendingAppointment, &pending))
		assert.Equal(t, "Vaccination", pending.ServiceType)
	})
}

func TestExecutor_Cart(t *testing.T) {
	mem := store.NewMemStore()
	tenant := seedTenant(t, mem)
	item := store.CatalogItem{
		ID: core.MustNewID(), TenantID: tenant.ID, Kind: store.ItemMedicine,
		Name: "Panadol", Price: 25, Stock: 12,
	}
	mem.AddCatalogItem(item)
	exec := newExecutor(t, mem)

	t.Run("Should resolve add-it against the last search result", func(t *testing.T) {
		search := &router.Result{Intent: router.IntentMedicineSearch, Language: core.LanguageEnglish, Query: "panadol"}
		out := exec.Execute(context.Background(), tenant, search, nil, "s1", "c1", "panadol")

		cart := &router.Result{Intent: router.IntentCart, Language: core.LanguageEnglish}
		out = exec.Execute(context.Background(), tenant, cart, out.Log, "s1", "c1", "add it to my cart")
		require.Len(t, out.Actions, 1)
		assert.Equal(t, ActionAddToCart, out.Actions[0].Type)
		assert.Equal(t, item.ID, out.Actions[0].ItemID)
		assert.Contains(t, out.Answer, "Panadol")
	})

	t.Run("Should add every remembered result on add-them-all", func(t *testing.T) {
		second := store.CatalogItem{
			ID: core.MustNewID(), TenantID: tenant.ID, Kind: store.ItemMedicine,
			Name: "Fervex", Price: 40, Stock: 5,
		}
		mem.AddCatalogItem(second)
		search := &router.Result{Intent: router.IntentMedicineSearch, Language: core.LanguageEnglish, Query: "panadol and fervex"}
		out := exec.Execute(context.Background(), tenant, search, nil, "s4", "c1", "panadol and fervex")

		cart := &router.Result{Intent: router.IntentCart, Language: core.LanguageEnglish}
		out = exec.Execute(context.Background(), tenant, cart, out.Log, "s4", "c1", "add them all to my cart")
		require.Len(t, out.Actions, 2)
		assert.Contains(t, out.Answer, "Panadol")
		assert.Contains(t, out.Answer, "Fervex")
	})

	t.Run("Should ask what to add when no result is remembered", func(t *testing.T) {
		cart := &router.Result{Intent: router.IntentCart, Language: core.LanguageEnglish}
		out := exec.Execute(context.Background(), tenant, cart, nil, "s2", "c1", "add it")
		assert.Empty(t, out.Actions)
		assert.Contains(t, out.Answer, "What would you like to add")
	})

	t.Run("Should list the cart contents with a total", func(t *testing.T) {
		mem.AddCartItem(store.CartItem{
			ID: core.MustNewID(), TenantID: tenant.ID, CustomerID: "c9",
			ItemID: item.ID, Name: "Panadol", Quantity: 2, Price: 25,
		})
		cart := &router.Result{Intent: router.IntentCart, Language: core.LanguageEnglish}
		out := exec.Execute(context.Background(), tenant, cart, nil, "s3", "c9", "show my cart")
		assert.Contains(t, out.Answer, "2 x Panadol")
		assert.Contains(t, out.Answer, "Total: 50.00")
		assert.True(t, out.Context.Found)
	})
}

func TestExecutor_OpenQuestion(t *testing.T) {
	mem := store.NewMemStore()
	tenant := seedTenant(t, mem)
	docID := core.MustNewID()
	fresh := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	mem.AddDocument(
		store.Document{ID: docID, TenantID: tenant.ID, SourceType: store.SourceFAQ, Title: "Returns policy"},
		store.DocumentChunk{
			ID: core.MustNewID(), TenantID: tenant.ID, DocumentID: docID, ChunkIndex: 0,
			Content:     "Unopened products can be returned within 7 days with the receipt.",
			DataFreshAt: fresh,
		},
	)
	exec := newExecutor(t, mem)

	t.Run("Should hand matching snippets to the generator", func(t *testing.T) {
		res := &router.Result{Intent: router.IntentOpenQuestion, Language: core.LanguageEnglish, Query: "can I return unopened products"}
		out := exec.Execute(context.Background(), tenant, res, nil, "s1", "c1", "can I return unopened products")
		assert.Empty(t, out.Answer)
		assert.True(t, out.Context.Found)
		require.NotEmpty(t, out.Context.Snippets)
		require.NotEmpty(t, out.Context.Citations)
		assert.Equal(t, "Returns policy", out.Context.Citations[0].Title)
		assert.Equal(t, fresh, out.Context.Citations[0].FreshAt)
	})

	t.Run("Should refuse and escalate when no evidence clears the floor", func(t *testing.T) {
		res := &router.Result{Intent: router.IntentOpenQuestion, Language: core.LanguageEnglish, Query: "what about the price"}
		out := exec.Execute(context.Background(), tenant, res, nil, "s1", "c1", "what about the price")
		assert.Equal(t, RefusalSentinel, out.Answer)
		assert.True(t, out.Context.Escalated)
		assert.Empty(t, out.Context.Citations)
	})
}

func TestSplitSubQueries(t *testing.T) {
	t.Run("Should split on list separators across languages", func(t *testing.T) {
		assert.Equal(t, []string{"panadol", "vitamin c", "zinc"}, SplitSubQueries("panadol and vitamin c, zinc"))
		assert.Equal(t, []string{"doliprane", "aspirine"}, SplitSubQueries("doliprane et aspirine"))
		assert.Equal(t, []string{"بنادول", "فيتامين"}, SplitSubQueries("بنادول و فيتامين"))
	})

	t.Run("Should keep a single-item query intact", func(t *testing.T) {
		assert.Equal(t, []string{"panadol extra"}, SplitSubQueries("panadol extra"))
	})
}
