package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/svedentsov/chatstream/pkg/chat"
	"github.com/svedentsov/chatstream/pkg/events"
	"github.com/svedentsov/chatstream/pkg/logger"
	"github.com/svedentsov/chatstream/pkg/tasks"
)

// ErrAlreadyStreaming is returned when a second stream is started for
// an assistant message that already has one in flight.
var ErrAlreadyStreaming = errors.New("stream already active for message")

// AskRequest is the orchestrator ask payload
type AskRequest struct {
	Query     string              `json:"query"`
	SessionID string              `json:"sessionId"`
	History   []chat.HistoryEntry `json:"history"`
	Context   string              `json:"context,omitempty"`
	FileIDs   []string            `json:"fileIds,omitempty"`
}

// StartOptions describes one generation request
type StartOptions struct {
	SessionID string
	MessageID string // the assistant placeholder accumulating the reply
	Query     string
	History   []chat.HistoryEntry
	Context   string
	FileIDs   []string
}

// Config wires a stream client to its collaborators
type Config struct {
	BaseURL  string
	Cache    *chat.Cache
	Registry *tasks.Registry

	// OnComplete fires once per finished stream (success, error or
	// abort) so session-list and message-list caches can refresh.
	OnComplete func(sessionID string)

	// OnNotify surfaces a user-visible transient notification. Aborts
	// never notify.
	OnNotify func(sessionID, text string)
}

// Client owns the lifecycle of streaming generation requests. Any
// number of streams may be active concurrently, one per assistant
// message id; their updates never cross because every mutation is
// keyed by that id.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *chat.Cache
	registry   *tasks.Registry
	onComplete func(sessionID string)
	onNotify   func(sessionID, text string)

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	focused string
	notices map[string]bool

	log *logger.Logger
}

// NewClient creates a stream client. The HTTP client carries no
// timeout; a stream runs until the server closes it, errors, or the
// user cancels.
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{},
		cache:      cfg.Cache,
		registry:   cfg.Registry,
		onComplete: cfg.OnComplete,
		onNotify:   cfg.OnNotify,
		cancels:    make(map[string]context.CancelFunc),
		notices:    make(map[string]bool),
		log:        logger.WithComponent("stream"),
	}
}

// SetFocus records which session the user is currently viewing.
// Streams finishing in any other session raise a deferred notice.
func (c *Client) SetFocus(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.focused = sessionID
}

// HasNotice reports whether a background session finished a stream
// since the last ClearNotice.
func (c *Client) HasNotice(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notices[sessionID]
}

// ClearNotice acknowledges a session's deferred notice
func (c *Client) ClearNotice(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.notices, sessionID)
}

// Start begins one streaming generation. It returns once the stream is
// registered; consumption continues in the background until the server
// closes the stream, an error occurs, or Stop is called.
func (c *Client) Start(ctx context.Context, opts StartOptions) error {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if _, active := c.cancels[opts.MessageID]; active {
		c.mu.Unlock()
		cancel()
		return ErrAlreadyStreaming
	}
	c.cancels[opts.MessageID] = cancel
	c.mu.Unlock()

	c.registry.Begin(opts.MessageID)

	go c.run(ctx, opts)
	return nil
}

// Stop aborts the stream for one assistant message. Abort is not an
// error: no notification is raised, but normal completion cleanup runs.
func (c *Client) Stop(messageID string) {
	c.mu.Lock()
	cancel, ok := c.cancels[messageID]
	c.mu.Unlock()

	if ok {
		cancel()
	}
}

// StopAll aborts every active stream
func (c *Client) StopAll() {
	c.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(c.cancels))
	for _, cancel := range c.cancels {
		cancels = append(cancels, cancel)
	}
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Active returns the assistant message ids with a live stream
func (c *Client) Active() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.cancels))
	for id := range c.cancels {
		ids = append(ids, id)
	}
	return ids
}

// run drives one stream to completion
func (c *Client) run(ctx context.Context, opts StartOptions) {
	st := &sessionState{opts: opts}
	defer c.finish(st)

	resp, err := c.request(ctx, opts)
	if err != nil {
		c.fail(st, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.fail(st, readErrorBody(resp))
		return
	}

	decoder := events.NewDecoder(resp.Body)
	for {
		ev, err := decoder.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			c.fail(st, err)
			return
		}
		c.dispatch(st, ev)
		if ev.IsTerminal() {
			return
		}
	}
}

// sessionState tracks what one stream has delivered so far
type sessionState struct {
	opts           StartOptions
	contentStarted bool
}

// request issues the POST carrying the query and reduced history
func (c *Client) request(ctx context.Context, opts StartOptions) (*http.Response, error) {
	reqBody, err := json.Marshal(AskRequest{
		Query:     opts.Query,
		SessionID: opts.SessionID,
		History:   opts.History,
		Context:   opts.Context,
		FileIDs:   opts.FileIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/ask", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	return c.httpClient.Do(req)
}

// dispatch applies one decoded event to the message cache and task
// registry. Events for a message id no longer in the cache are no-ops;
// a deleted message is never re-created.
func (c *Client) dispatch(st *sessionState, ev events.Event) {
	sessionID, messageID := st.opts.SessionID, st.opts.MessageID

	switch ev.Type {
	case events.TypeTaskStarted:
		taskID := ev.TaskID
		c.cache.Update(sessionID, messageID, func(m chat.Message) chat.Message {
			m.TaskID = taskID
			return m
		})
		c.registry.Update(messageID, tasks.Update{TaskID: &taskID})

	case events.TypeStatusUpdate:
		text := ev.Text
		c.registry.Update(messageID, tasks.Update{StatusText: &text})

	case events.TypeThinkingThought:
		status := ""
		if ev.Status == events.StepRunning {
			status = fmt.Sprintf("Running: %s", ev.StepName)
		}
		c.registry.Update(messageID, tasks.Update{
			StatusText: &status,
			ThinkingSteps: map[string]tasks.ThinkingStep{
				ev.StepName: {Name: ev.StepName, Status: ev.Status},
			},
		})

	case events.TypeContent:
		if c.cache.AppendText(sessionID, messageID, ev.Text) {
			st.contentStarted = true
		}
		c.registry.ClearProgress(messageID)

	case events.TypeSources:
		c.cache.Update(sessionID, messageID, func(m chat.Message) chat.Message {
			m.Sources = ev.Sources
			m.QueryFormationHistory = ev.QueryFormationHistory
			m.FinalPrompt = ev.FinalPrompt
			m.TrustScoreReport = ev.TrustScoreReport
			return m
		})

	case events.TypeCode:
		if c.cache.Update(sessionID, messageID, func(m chat.Message) chat.Message {
			m.Text = ev.GeneratedCode
			m.FinalPrompt = ev.FinalPrompt
			return m
		}) {
			st.contentStarted = true
		}
		c.registry.ClearProgress(messageID)

	case events.TypeError:
		// Terminal content for the message; keep reading until the
		// server closes the stream or sends done
		c.cache.Update(sessionID, messageID, func(m chat.Message) chat.Message {
			m.Error = ev.Message
			return m
		})

	case events.TypeDone:
		c.cache.Update(sessionID, messageID, func(m chat.Message) chat.Message {
			m.IsStreaming = false
			return m
		})

	default:
		c.log.Debug("ignoring unknown event type %q", ev.Type)
	}
}

// fail handles transport-level stream failures. Aborts are silent; a
// failure before any content attaches the error to the message, a
// failure after partial content only notifies, preserving the text.
func (c *Client) fail(st *sessionState, err error) {
	if errors.Is(err, context.Canceled) {
		c.log.Debug("stream %s aborted", st.opts.MessageID)
		return
	}

	c.log.Error("stream %s failed: %v", st.opts.MessageID, err)

	if !st.contentStarted {
		msg := err.Error()
		c.cache.Update(st.opts.SessionID, st.opts.MessageID, func(m chat.Message) chat.Message {
			m.Error = msg
			return m
		})
	}
	if c.onNotify != nil {
		c.onNotify(st.opts.SessionID, fmt.Sprintf("Generation failed: %v", err))
	}
}

// finish runs exactly once per stream regardless of how it ended
func (c *Client) finish(st *sessionState) {
	messageID, sessionID := st.opts.MessageID, st.opts.SessionID

	c.registry.End(messageID)
	c.cache.Update(sessionID, messageID, func(m chat.Message) chat.Message {
		m.IsStreaming = false
		return m
	})

	c.mu.Lock()
	if cancel, ok := c.cancels[messageID]; ok {
		delete(c.cancels, messageID)
		defer cancel()
	}
	if c.focused != sessionID {
		c.notices[sessionID] = true
	}
	c.mu.Unlock()

	if c.onComplete != nil {
		c.onComplete(sessionID)
	}
}

// readErrorBody extracts an error from a non-2xx ask response
func readErrorBody(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("request failed with status %d (failed to read error response: %w)", resp.StatusCode, err)
	}

	var errorResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errorResp) == nil {
		if errorResp.Error != "" {
			return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, errorResp.Error)
		}
		if errorResp.Message != "" {
			return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, errorResp.Message)
		}
	}

	return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
}
