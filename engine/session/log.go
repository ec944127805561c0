package session

import (
	"encoding/json"
	"time"
)

// Role classifies a turn-log entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleState     Role = "state"
)

// maxTurns caps the log on every save; older turns are dropped, not archived.
const maxTurns = 10

// StateKey namespaces state frames so unrelated features cannot collide.
type StateKey string

const (
	KeyPendingAppointment StateKey = "pharmachat:pending_appointment"
	KeyLastResults        StateKey = "pharmachat:last_results"
	KeyLastTopResult      StateKey = "pharmachat:last_top_result"
)

// Turn is one entry of the session log: a conversation message or, with
// Role == RoleState, a named state frame.
type Turn struct {
	Role    Role            `json:"role"`
	Content string          `json:"content,omitempty"`
	Key     StateKey        `json:"key,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
	At      time.Time       `json:"at"`
}

// Log is the ordered, append-only turn log of one conversation session. State
// lookups scan backward: the last frame with a given key is authoritative, so
// appends give last-write-wins without in-place mutation.
type Log []Turn

// GetState decodes the most recent state frame stored under key into dst.
// Returns false when no frame exists or the payload does not decode.
func (l Log) GetState(key StateKey, dst any) bool {
	for i := len(l) - 1; i >= 0; i-- {
		if l[i].Role != RoleState || l[i].Key != key {
			continue
		}
		if l[i].Value == nil {
			return false
		}
		return json.Unmarshal(l[i].Value, dst) == nil
	}
	return false
}

// SetState appends a new frame for key; it never mutates earlier entries.
func (l Log) SetState(key StateKey, value any) (Log, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return l, err
	}
	return append(l, Turn{Role: RoleState, Key: key, Value: raw, At: time.Now()}), nil
}

// ClearState appends a tombstone frame for key, making GetState report no
// value from here on.
func (l Log) ClearState(key StateKey) Log {
	return append(l, Turn{Role: RoleState, Key: key, At: time.Now()})
}

// AppendMessage appends a conversation turn.
func (l Log) AppendMessage(role Role, content string) Log {
	return append(l, Turn{Role: role, Content: content, At: time.Now()})
}

// Trim drops the oldest entries beyond the log cap.
func (l Log) Trim() Log {
	if len(l) <= maxTurns {
		return l
	}
	return append(Log(nil), l[len(l)-maxTurns:]...)
}
