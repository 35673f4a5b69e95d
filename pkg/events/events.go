package events

import "encoding/json"

// Event type discriminants emitted by the orchestrator stream
const (
	TypeTaskStarted     = "task_started"
	TypeStatusUpdate    = "status_update"
	TypeThinkingThought = "thinking_thought"
	TypeContent         = "content"
	TypeSources         = "sources"
	TypeCode            = "code"
	TypeError           = "error"
	TypeDone            = "done"
)

// Thinking step states reported via thinking_thought events
const (
	StepRunning   = "RUNNING"
	StepCompleted = "COMPLETED"
)

// Event is one decoded protocol record from the orchestrator stream.
// The Type discriminant selects which payload fields are meaningful;
// the decoder delivers events without interpreting them.
type Event struct {
	Type string `json:"type"`

	// task_started
	TaskID string `json:"taskId,omitempty"`

	// status_update, content
	Text string `json:"text,omitempty"`

	// thinking_thought
	StepName string `json:"stepName,omitempty"`
	Status   string `json:"status,omitempty"`

	// sources
	Sources               json.RawMessage `json:"sources,omitempty"`
	QueryFormationHistory json.RawMessage `json:"queryFormationHistory,omitempty"`
	TrustScoreReport      json.RawMessage `json:"trustScoreReport,omitempty"`

	// sources, code
	FinalPrompt string `json:"finalPrompt,omitempty"`

	// code
	GeneratedCode string `json:"generatedCode,omitempty"`

	// error, done
	Message string `json:"message,omitempty"`
}

func (e Event) IsTerminal() bool {
	return e.Type == TypeDone
}
