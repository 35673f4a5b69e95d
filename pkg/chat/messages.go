package chat

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is one turn's content in a session. Assistant messages link
// back to the user message that triggered them via ParentID; regenerated
// responses share the same ParentID and form a sibling group.
type Message struct {
	ID          string `json:"id"`
	ParentID    string `json:"parentId,omitempty"`
	Type        string `json:"type"`
	Text        string `json:"text"`
	IsStreaming bool   `json:"isStreaming,omitempty"`
	TaskID      string `json:"taskId,omitempty"`
	Error       string `json:"error,omitempty"`

	// Enrichment attached once the corresponding stream event arrives
	Sources               json.RawMessage `json:"sources,omitempty"`
	QueryFormationHistory json.RawMessage `json:"queryFormationHistory,omitempty"`
	FinalPrompt           string          `json:"finalPrompt,omitempty"`
	TrustScoreReport      json.RawMessage `json:"trustScoreReport,omitempty"`

	// Used only for deterministic sibling ordering, not display order
	CreatedAt time.Time `json:"createdAt"`
}

const (
	TypeUser      = "user"
	TypeAssistant = "assistant"
)

func NewUserMessage(text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Type:      TypeUser,
		Text:      strings.TrimSpace(text),
		CreatedAt: time.Now(),
	}
}

// NewAssistantPlaceholder creates the empty streaming message a new
// generation accumulates into.
func NewAssistantPlaceholder(parentID string) Message {
	return Message{
		ID:          uuid.NewString(),
		ParentID:    parentID,
		Type:        TypeAssistant,
		IsStreaming: true,
		CreatedAt:   time.Now(),
	}
}

func (m Message) IsUser() bool {
	return m.Type == TypeUser
}

func (m Message) IsAssistant() bool {
	return m.Type == TypeAssistant
}

func (m Message) IsEmpty() bool {
	return strings.TrimSpace(m.Text) == ""
}

func (m Message) HasError() bool {
	return m.Error != ""
}

func (m Message) WithCreatedAt(t time.Time) Message {
	m.CreatedAt = t
	return m
}
