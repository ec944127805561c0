package toolexec

import (
	"time"

	"github.com/pharmachat/pharmachat/engine/core"
	"github.com/pharmachat/pharmachat/engine/router"
)

// Citation is the externally visible evidence pointer attached to every
// answer. DocumentID and ChunkIndex stay zero for non-document sources.
type Citation struct {
	SourceType string    `json:"source_type"`
	Title      string    `json:"title"`
	DocumentID core.ID   `json:"document_id,omitempty"`
	ChunkIndex int       `json:"chunk_index,omitempty"`
	Preview    string    `json:"preview,omitempty"`
	FreshAt    time.Time `json:"fresh_at"`
	Score      float64   `json:"score,omitempty"`
}

// ActionType enumerates follow-up actions the client may render as buttons.
type ActionType string

const (
	ActionAddToCart          ActionType = "add_to_cart"
	ActionNotifyStock        ActionType = "notify_stock"
	ActionUploadPrescription ActionType = "upload_prescription"
	ActionBookAppointment    ActionType = "book_appointment"
	ActionViewCart           ActionType = "view_cart"
)

// Action is a proposed follow-up tied to a catalog item where relevant.
type Action struct {
	Type     ActionType `json:"type"`
	ItemID   core.ID    `json:"item_id,omitempty"`
	ItemName string     `json:"item_name,omitempty"`
}

// ItemCard is a display card for one catalog item.
type ItemCard struct {
	ID         core.ID `json:"id"`
	Kind       string  `json:"kind"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	InStock    bool    `json:"in_stock"`
	RxRequired bool    `json:"rx_required"`
}

// ToolContext is the normalized evidence bundle handed to the answer
// generator. Transient.
type ToolContext struct {
	Intent       router.Intent
	Language     core.Language
	Found        bool
	Items        []ItemCard
	Suggestions  []string
	Citations    []Citation
	Snippets     []string
	QuickReplies []string
	Escalated    bool
	FreshAt      []time.Time
}
