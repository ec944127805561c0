package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/pharmachat/pharmachat/engine/answer"
	"github.com/pharmachat/pharmachat/engine/assistant"
	"github.com/pharmachat/pharmachat/engine/core"
	"github.com/pharmachat/pharmachat/engine/llm"
	"github.com/pharmachat/pharmachat/engine/retriever"
	"github.com/pharmachat/pharmachat/engine/router"
	"github.com/pharmachat/pharmachat/engine/session"
	"github.com/pharmachat/pharmachat/engine/store"
	"github.com/pharmachat/pharmachat/engine/toolexec"
	"github.com/pharmachat/pharmachat/pkg/config"
	"github.com/pharmachat/pharmachat/pkg/logger"
)

// ChatCmd runs a local conversation loop against the configured backends,
// falling back to seeded in-memory stores when none are configured.
func ChatCmd() *cobra.Command {
	var tenantID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant from the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context(), tenantID)
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id (defaults to the demo tenant)")
	return cmd
}

func runChat(ctx context.Context, tenantID string) error {
	log := logger.FromContext(ctx)
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, seededTenant, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	sessions := buildSessions(cfg)
	defer sessions.Close(ctx)

	svc, err := buildAssistant(cfg, st, sessions)
	if err != nil {
		return err
	}

	tid := seededTenant
	if tenantID != "" {
		parsed, err := core.ParseID(tenantID)
		if err != nil {
			return fmt.Errorf("invalid tenant id: %w", err)
		}
		tid = parsed
	}
	if tid.IsZero() {
		return fmt.Errorf("no tenant configured: pass --tenant or run against the in-memory store")
	}

	sessionID := core.MustNewID().String()
	log.Info("chat session started", "tenant_id", tid, "session_id", sessionID)
	fmt.Println("Type a message (ctrl-d to quit).")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		reply, err := svc.HandleMessage(ctx, tid, sessionID, "local", message)
		if err != nil {
			log.Error("message failed", "error", err)
			continue
		}
		fmt.Println(reply.Answer)
		for _, action := range reply.Actions {
			fmt.Printf("  [%s] %s\n", action.Type, action.ItemName)
		}
		if reply.Escalated {
			fmt.Println("  (escalated to the pharmacy team)")
		}
	}
	return scanner.Err()
}

func buildStore(ctx context.Context, cfg *config.Config) (store.Store, core.ID, error) {
	if dsn := cfg.Database.DSN(); dsn != "" {
		pg, err := store.NewPGStore(ctx, dsn)
		if err != nil {
			return nil, "", fmt.Errorf("connecting to postgres: %w", err)
		}
		return pg, "", nil
	}
	mem := store.NewMemStore()
	tenant := seedDemo(mem)
	return mem, tenant, nil
}

func buildSessions(cfg *config.Config) session.Store {
	if cfg.Redis.Addr == "" {
		return session.NewMemStore(cfg.Session.TTL)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password.Value(),
		DB:       cfg.Redis.DB,
	})
	return session.NewRedisStore(client, cfg.Session.TTL)
}

func buildAssistant(cfg *config.Config, st store.Store, sessions session.Store) (*assistant.Service, error) {
	var embedder retriever.QueryEmbedder
	var primary, secondary answer.Completer
	var classifierClient llm.CompletionClient

	if cfg.LLM.APIKey.Value() != "" {
		invokerOpts := llm.InvokerOptions{
			Timeout:    cfg.LLM.CallTimeout,
			MaxRetries: cfg.LLM.MaxRetries,
		}
		primaryClient, err := llm.NewLangChainClient(&llm.ProviderConfig{
			Provider: llm.Provider(cfg.LLM.Provider),
			Model:    cfg.LLM.PrimaryModel,
			APIKey:   cfg.LLM.APIKey.Value(),
			APIURL:   cfg.LLM.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		secondaryClient, err := llm.NewLangChainClient(&llm.ProviderConfig{
			Provider: llm.Provider(cfg.LLM.Provider),
			Model:    cfg.LLM.SecondaryModel,
			APIKey:   cfg.LLM.APIKey.Value(),
			APIURL:   cfg.LLM.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		primary = llm.NewInvoker(primaryClient, invokerOpts)
		secondaryInvoker := llm.NewInvoker(secondaryClient, invokerOpts)
		secondary = secondaryInvoker
		classifierClient = secondaryInvoker

		if cfg.LLM.EmbeddingModel != "" && cfg.LLM.Provider == "openai" {
			emb, err := llm.NewLangChainEmbedder(&llm.EmbeddingConfig{
				Model:  cfg.LLM.EmbeddingModel,
				APIKey: cfg.LLM.APIKey.Value(),
				APIURL: cfg.LLM.BaseURL,
			})
			if err != nil {
				return nil, err
			}
			embedder = emb
		}
	}

	ret, err := retriever.NewService(st, embedder)
	if err != nil {
		return nil, err
	}
	exec, err := toolexec.NewExecutor(st, ret)
	if err != nil {
		return nil, err
	}
	return assistant.NewService(
		st,
		sessions,
		router.NewClassifier(classifierClient, core.Language(cfg.Runtime.DefaultLanguage)),
		exec,
		answer.NewGenerator(primary, secondary),
	)
}

// seedDemo loads a small fixture so the chat loop works out of the box.
func seedDemo(mem *store.MemStore) core.ID {
	tenant := &store.Tenant{
		ID:            core.MustNewID(),
		Name:          "Pharmacie Demo",
		OpeningHours:  "Mon-Sat 9:00-21:00",
		Phone:         "+212 522 000 000",
		WhatsApp:      "+212 600 000 000",
		Address:       "1 Avenue Centrale",
		DeliveryCOD:   true,
		DefaultLang:   core.LanguageEnglish,
		DataUpdatedAt: time.Now(),
	}
	mem.AddTenant(tenant)
	for _, item := range []store.CatalogItem{
		{Kind: store.ItemMedicine, Name: "Panadol", Price: 25, Stock: 40},
		{Kind: store.ItemMedicine, Name: "Doliprane 1000mg", Price: 30, Stock: 0},
		{Kind: store.ItemMedicine, Name: "Augmentin", Price: 85, Stock: 12, RxRequired: true},
		{Kind: store.ItemProduct, Name: "Vitamin C 500mg", Price: 45, Stock: 18},
		{Kind: store.ItemProduct, Name: "Sunscreen SPF50", Price: 120, Stock: 7},
	} {
		item.ID = core.MustNewID()
		item.TenantID = tenant.ID
		item.UpdatedAt = time.Now()
		mem.AddCatalogItem(item)
	}
	docID := core.MustNewID()
	mem.AddDocument(
		store.Document{
			ID: docID, TenantID: tenant.ID, SourceType: store.SourceFAQ,
			Title: "Store policies", DataFreshAt: time.Now(),
		},
		store.DocumentChunk{
			ID: core.MustNewID(), TenantID: tenant.ID, DocumentID: docID, ChunkIndex: 0,
			Content:     "Unopened products can be returned within 7 days with the receipt.",
			DataFreshAt: time.Now(),
		},
		store.DocumentChunk{
			ID: core.MustNewID(), TenantID: tenant.ID, DocumentID: docID, ChunkIndex: 1,
			Content:     "Delivery orders placed before 6pm arrive the same day within the city.",
			DataFreshAt: time.Now(),
		},
	)
	mem.AddServiceType(store.ServiceType{ID: core.MustNewID(), TenantID: tenant.ID, Name: "Vaccination"})
	mem.AddServiceType(store.ServiceType{ID: core.MustNewID(), TenantID: tenant.ID, Name: "Blood pressure check"})
	mem.AddSlot(store.Slot{TenantID: tenant.ID, StartsAt: time.Now().Add(24 * time.Hour)})
	mem.AddSlot(store.Slot{TenantID: tenant.ID, StartsAt: time.Now().Add(48 * time.Hour)})
	return tenant.ID
}
