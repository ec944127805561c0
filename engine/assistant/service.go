package assistant

import (
	"context"
	"errors"
	"time"

	"github.com/pharmachat/pharmachat/engine/answer"
	"github.com/pharmachat/pharmachat/engine/core"
	"github.com/pharmachat/pharmachat/engine/guard"
	"github.com/pharmachat/pharmachat/engine/router"
	"github.com/pharmachat/pharmachat/engine/session"
	"github.com/pharmachat/pharmachat/engine/store"
	"github.com/pharmachat/pharmachat/engine/toolexec"
	"github.com/pharmachat/pharmachat/pkg/logger"
)

// Reply is the externally visible result of one handled message.
type Reply struct {
	Answer       string              `json:"answer"`
	Language     core.Language       `json:"language"`
	Citations    []toolexec.Citation `json:"citations,omitempty"`
	Actions      []toolexec.Action   `json:"actions,omitempty"`
	QuickReplies []string            `json:"quick_replies,omitempty"`
	Escalated    bool                `json:"escalated"`
	Confidence   float64             `json:"confidence"`
	FreshAt      []time.Time         `json:"fresh_at,omitempty"`
}

// Service wires the whole message pipeline: classification, evidence
// execution, answer generation, session persistence.
type Service struct {
	store      store.Store
	sessions   session.Store
	classifier *router.Classifier
	executor   *toolexec.Executor
	generator  *answer.Generator
}

func NewService(
	st store.Store,
	sessions session.Store,
	classifier *router.Classifier,
	executor *toolexec.Executor,
	generator *answer.Generator,
) (*Service, error) {
	if st == nil {
		return nil, errors.New("assistant: evidence store is required")
	}
	if sessions == nil {
		return nil, errors.New("assistant: session store is required")
	}
	if classifier == nil {
		return nil, errors.New("assistant: classifier is required")
	}
	if executor == nil {
		return nil, errors.New("assistant: executor is required")
	}
	if generator == nil {
		return nil, errors.New("assistant: generator is required")
	}
	return &Service{
		store:      st,
		sessions:   sessions,
		classifier: classifier,
		executor:   executor,
		generator:  generator,
	}, nil
}

// HandleMessage runs one customer message through the pipeline. The safety
// check runs ahead of classification: a risky message never reaches the
// classifier, retrieval, or any model.
func (s *Service) HandleMessage(
	ctx context.Context,
	tenantID core.ID,
	sessionID string,
	customerID string,
	message string,
) (*Reply, error) {
	log := logger.FromContext(ctx).With("tenant_id", tenantID, "session_id", sessionID)
	ctx = logger.ContextWithLogger(ctx, log)

	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &Reply{
				Answer:    "This pharmacy is not available. Please check the link you were given.",
				Language:  core.LanguageEnglish,
				Escalated: true,
			}, nil
		}
		return nil, err
	}

	var res router.Result
	if risky, reason := guard.Check(message); risky {
		log.Info("safety short-circuit", "reason", reason)
		res = router.Result{
			Language:   router.DetectLanguage(message, tenant.DefaultLang),
			Intent:     router.IntentRisky,
			Risk:       core.RiskHigh,
			Confidence: 1,
		}
	} else {
		res = s.classifier.Classify(ctx, message)
	}

	sessionLog, err := s.sessions.Load(ctx, tenant.ID, sessionID)
	if err != nil {
		log.Error("session load failed, starting empty", "error", err)
		sessionLog = nil
	}

	out := s.executor.Execute(ctx, tenant, &res, sessionLog, sessionID, customerID, message)
	gen := s.generator.Generate(ctx, &res, &out, message)

	updated := out.Log.
		AppendMessage(session.RoleUser, message).
		AppendMessage(session.RoleAssistant, gen.Text).
		Trim()
	if err := s.sessions.Save(ctx, tenant.ID, sessionID, updated); err != nil {
		log.Error("session save failed", "error", err)
	}

	quick := out.Context.QuickReplies
	if len(quick) == 0 {
		quick = gen.QuickReplies
	}

	return &Reply{
		Answer:       gen.Text,
		Language:     res.Language,
		Citations:    citedSubset(out.Context.Citations, gen.Cited),
		Actions:      out.Actions,
		QuickReplies: quick,
		Escalated:    out.Context.Escalated || gen.Escalated,
		Confidence:   gen.Confidence,
		FreshAt:      out.Context.FreshAt,
	}, nil
}

// citedSubset narrows the executor's citations to the 1-based evidence lines
// the model reported using. Empty or out-of-range reports keep the full set,
// so a sloppy model can never shrink the evidence trail to nothing.
func citedSubset(citations []toolexec.Citation, cited []int) []toolexec.Citation {
	if len(cited) == 0 {
		return citations
	}
	picked := make([]toolexec.Citation, 0, len(cited))
	for _, n := range cited {
		if n >= 1 && n <= len(citations) {
			picked = append(picked, citations[n-1])
		}
	}
	if len(picked) == 0 {
		return citations
	}
	return picked
}
