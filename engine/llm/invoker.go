package llm

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/pharmachat/pharmachat/pkg/logger"
)

const (
	defaultCallTimeout = 30 * time.Second
	defaultRetries     = 1
	defaultBackoffBase = 1 * time.Second
	defaultBackoffCap  = 5 * time.Second
	maxRetryAfterHonor = 10 * time.Second
)

// InvokerOptions tune retry behavior for one wrapped client.
type InvokerOptions struct {
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

func (o *InvokerOptions) normalize() {
	if o.Timeout <= 0 {
		o.Timeout = defaultCallTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultRetries
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = defaultBackoffBase
	}
	if o.BackoffCap <= 0 {
		o.BackoffCap = defaultBackoffCap
	}
}

// Invoker wraps a CompletionClient with per-call timeout and capped
// exponential backoff. Rate-limit retry-after hints are honored up to a
// bound; client-config faults are never retried.
type Invoker struct {
	client CompletionClient
	opts   InvokerOptions
}

func NewInvoker(client CompletionClient, opts InvokerOptions) *Invoker {
	opts.normalize()
	return &Invoker{client: client, opts: opts}
}

func (i *Invoker) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	backoff := retry.WithCappedDuration(i.opts.BackoffCap, retry.NewExponential(i.opts.BackoffBase))
	backoff = retry.WithMaxRetries(uint64(i.opts.MaxRetries), backoff) //nolint:gosec // normalized above
	log := logger.FromContext(ctx)
	var out string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, i.opts.Timeout)
		defer cancel()
		text, callErr := i.client.Complete(callCtx, req)
		if callErr == nil {
			out = text
			return nil
		}
		typed := ClassifyError("completion", callErr)
		if !typed.Retryable() {
			return typed
		}
		if typed.Status == StatusRateLimited && typed.RetryAfter > 0 {
			waitRetryAfter(ctx, typed.RetryAfter)
		}
		log.Warn("completion call failed, retrying", "status", typed.Status, "error", callErr)
		return retry.RetryableError(typed)
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// waitRetryAfter sleeps for the provider's hint, bounded so a hostile hint
// cannot stall a request, and aborts early on context cancellation.
func waitRetryAfter(ctx context.Context, hint time.Duration) {
	if hint > maxRetryAfterHonor {
		hint = maxRetryAfterHonor
	}
	timer := time.NewTimer(hint)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (i *Invoker) Close() error {
	return i.client.Close()
}
