package chat

// HistoryEntry is the reduced prior-turn shape sent to the orchestrator
type HistoryEntry struct {
	Type    string `json:"type"` // USER or ASSISTANT
	Content string `json:"content"`
}

const (
	HistoryUser      = "USER"
	HistoryAssistant = "ASSISTANT"
)

// BuildHistory reduces messages to role + content pairs. Streaming
// placeholders and empty turns carry no content worth replaying.
func BuildHistory(messages []Message) []HistoryEntry {
	history := make([]HistoryEntry, 0, len(messages))
	for _, m := range messages {
		if m.IsStreaming || m.IsEmpty() {
			continue
		}

		role := HistoryUser
		if m.IsAssistant() {
			role = HistoryAssistant
		}
		history = append(history, HistoryEntry{Type: role, Content: m.Text})
	}
	return history
}

// TruncateBefore returns the prefix of messages strictly before the
// given id. Used on regenerate, where the turn being regenerated and
// everything after it drop out of the replayed history.
func TruncateBefore(messages []Message, messageID string) []Message {
	for i, m := range messages {
		if m.ID == messageID {
			out := make([]Message, i)
			copy(out, messages[:i])
			return out
		}
	}

	out := make([]Message, len(messages))
	copy(out, messages)
	return out
}
