package session

import (
	"context"
	"time"

	"github.com/pharmachat/pharmachat/engine/core"
)

// DefaultTTL is how long a session survives after its last write.
const DefaultTTL = 30 * time.Minute

// Store persists conversation sessions keyed by tenant and session id.
//
// Expired or absent sessions load as an empty log, never as an error.
// Concurrent saves against the same session id race with last-save-wins;
// callers needing stricter ordering must serialize per session id upstream.
type Store interface {
	Load(ctx context.Context, tenantID core.ID, sessionID string) (Log, error)
	Save(ctx context.Context, tenantID core.ID, sessionID string, log Log) error
	Close(ctx context.Context) error
}
