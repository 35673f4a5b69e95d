package controllers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/svedentsov/chatstream/pkg/api"
	"github.com/svedentsov/chatstream/pkg/chat"
	"github.com/svedentsov/chatstream/pkg/logger"
	"github.com/svedentsov/chatstream/pkg/stream"
)

// Streamer drives answer streams for individual assistant messages.
type Streamer interface {
	Start(ctx context.Context, opts stream.StartOptions) error
	Stop(messageID string)
	StopAll()
	Active() []string
	SetFocus(sessionID string)
}

// SessionStore is the remote persistence surface the controller needs.
type SessionStore interface {
	GetSession(ctx context.Context, sessionID string) (api.SessionDetail, error)
	ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error)
	SetActiveBranch(ctx context.Context, sessionID, parentMessageID, activeChildID string) error
}

// ChatController coordinates the message cache, branch selection and the
// streaming client for one front end.
type ChatController struct {
	cache    *chat.Cache
	streamer Streamer
	store    SessionStore

	mu       sync.RWMutex
	branches map[string]map[string]string

	log *logger.Logger
}

func NewChatController(cache *chat.Cache, streamer Streamer, store SessionStore) *ChatController {
	return &ChatController{
		cache:    cache,
		streamer: streamer,
		store:    store,
		branches: make(map[string]map[string]string),
		log:      logger.WithComponent("controller"),
	}
}

// OpenSession loads the session history and branch selections from the
// backend and makes the session the focused one.
func (cc *ChatController) OpenSession(ctx context.Context, sessionID string) error {
	detail, err := cc.store.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	messages, err := cc.store.ListMessages(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}

	cc.cache.Seed(sessionID, messages)

	cc.mu.Lock()
	selections := make(map[string]string, len(detail.ActiveBranches))
	for parent, child := range detail.ActiveBranches {
		selections[parent] = child
	}
	cc.branches[sessionID] = selections
	cc.mu.Unlock()

	cc.streamer.SetFocus(sessionID)
	return nil
}

// Send appends the user message plus an assistant placeholder and starts
// streaming the answer. The history sent upstream covers the visible thread
// before the new message.
func (cc *ChatController) Send(ctx context.Context, sessionID, text string, fileIDs []string) (chat.Message, error) {
	if strings.TrimSpace(text) == "" {
		return chat.Message{}, fmt.Errorf("message content cannot be empty")
	}

	history := chat.BuildHistory(cc.VisibleThread(sessionID).Messages)

	userMsg := chat.NewUserMessage(text)
	placeholder := chat.NewAssistantPlaceholder(userMsg.ID)
	cc.cache.Append(sessionID, userMsg)
	cc.cache.Append(sessionID, placeholder)

	err := cc.streamer.Start(ctx, stream.StartOptions{
		SessionID: sessionID,
		MessageID: placeholder.ID,
		Query:     userMsg.Text,
		History:   history,
		FileIDs:   fileIDs,
	})
	if err != nil {
		cc.cache.Remove(sessionID, placeholder.ID)
		cc.cache.Remove(sessionID, userMsg.ID)
		return chat.Message{}, fmt.Errorf("failed to start stream: %w", err)
	}

	return placeholder, nil
}

// Regenerate streams a fresh answer as a sibling of the given assistant
// message and makes the new sibling the active branch.
func (cc *ChatController) Regenerate(ctx context.Context, sessionID, messageID string) (chat.Message, error) {
	target, ok := cc.cache.Get(sessionID, messageID)
	if !ok {
		return chat.Message{}, fmt.Errorf("message %s not found", messageID)
	}
	if !target.IsAssistant() {
		return chat.Message{}, fmt.Errorf("only assistant messages can be regenerated")
	}

	parent, ok := cc.cache.Get(sessionID, target.ParentID)
	if !ok {
		return chat.Message{}, fmt.Errorf("parent message %s not found", target.ParentID)
	}

	visible := cc.VisibleThread(sessionID).Messages
	history := chat.BuildHistory(chat.TruncateBefore(visible, parent.ID))

	placeholder := chat.NewAssistantPlaceholder(parent.ID)
	cc.cache.Append(sessionID, placeholder)
	cc.setLocalBranch(sessionID, parent.ID, placeholder.ID)

	err := cc.streamer.Start(ctx, stream.StartOptions{
		SessionID: sessionID,
		MessageID: placeholder.ID,
		Query:     parent.Text,
		History:   history,
	})
	if err != nil {
		cc.cache.Remove(sessionID, placeholder.ID)
		return chat.Message{}, fmt.Errorf("failed to start stream: %w", err)
	}

	return placeholder, nil
}

// SetActiveBranch switches the visible sibling under a parent message and
// persists the choice on the backend.
func (cc *ChatController) SetActiveBranch(ctx context.Context, sessionID, parentMessageID, activeChildID string) error {
	cc.setLocalBranch(sessionID, parentMessageID, activeChildID)

	if err := cc.store.SetActiveBranch(ctx, sessionID, parentMessageID, activeChildID); err != nil {
		return fmt.Errorf("failed to persist branch selection: %w", err)
	}
	return nil
}

// SelectBranch moves the active selection under the parent of the given
// visible assistant message by the given offset, wrapping around.
func (cc *ChatController) SelectBranch(ctx context.Context, sessionID, messageID string, offset int) error {
	thread := cc.VisibleThread(sessionID)
	info, ok := thread.Branches[messageID]
	if !ok {
		return fmt.Errorf("message %s has no siblings", messageID)
	}

	target, ok := cc.cache.Get(sessionID, messageID)
	if !ok {
		return fmt.Errorf("message %s not found", messageID)
	}

	idx := (info.Current - 1 + offset) % info.Total
	if idx < 0 {
		idx += info.Total
	}
	return cc.SetActiveBranch(ctx, sessionID, target.ParentID, info.Siblings[idx].ID)
}

// VisibleThread resolves the session's messages against the current branch
// selections.
func (cc *ChatController) VisibleThread(sessionID string) chat.Thread {
	cc.mu.RLock()
	selections := cc.branches[sessionID]
	cc.mu.RUnlock()

	return chat.ResolveThread(cc.cache.Messages(sessionID), selections)
}

// Stop cancels the stream for one assistant message.
func (cc *ChatController) Stop(messageID string) {
	cc.streamer.Stop(messageID)
}

// StopAll cancels every in-flight stream.
func (cc *ChatController) StopAll() {
	cc.streamer.StopAll()
}

// Streaming reports message ids with in-flight streams.
func (cc *ChatController) Streaming() []string {
	return cc.streamer.Active()
}

func (cc *ChatController) setLocalBranch(sessionID, parentMessageID, activeChildID string) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	selections, ok := cc.branches[sessionID]
	if !ok {
		selections = make(map[string]string)
		cc.branches[sessionID] = selections
	}
	selections[parentMessageID] = activeChildID
}
