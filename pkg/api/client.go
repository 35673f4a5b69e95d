package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/svedentsov/chatstream/pkg/chat"
)

// Client talks to the platform's session/message/file REST surface.
// The streaming ask endpoint has its own client in pkg/stream.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a REST client for the given base URL
func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, 30*time.Second)
}

// NewClientWithTimeout creates a REST client with a custom timeout
func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListSessions returns all chat sessions
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var sessions []Session
	if err := c.doJSON(ctx, http.MethodGet, "/api/sessions", nil, &sessions); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// CreateSession creates a new session with the given title
func (c *Client) CreateSession(ctx context.Context, title string) (Session, error) {
	var session Session
	body := map[string]string{"title": title}
	if err := c.doJSON(ctx, http.MethodPost, "/api/sessions", body, &session); err != nil {
		return Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// GetSession fetches one session's metadata including the persisted
// active-branch selections
func (c *Client) GetSession(ctx context.Context, sessionID string) (SessionDetail, error) {
	var detail SessionDetail
	path := fmt.Sprintf("/api/sessions/%s", sessionID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &detail); err != nil {
		return SessionDetail{}, fmt.Errorf("failed to get session: %w", err)
	}
	return detail, nil
}

// RenameSession updates a session's title
func (c *Client) RenameSession(ctx context.Context, sessionID, title string) error {
	path := fmt.Sprintf("/api/sessions/%s", sessionID)
	body := map[string]string{"title": title}
	if err := c.doJSON(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}
	return nil
}

// DeleteSession removes a session and its messages
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	path := fmt.Sprintf("/api/sessions/%s", sessionID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListMessages returns a session's ordered message collection, used to
// seed the message cache
func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	var messages []chat.Message
	path := fmt.Sprintf("/api/sessions/%s/messages", sessionID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// SetActiveBranch persists which sibling response is displayed for a
// regenerated turn
func (c *Client) SetActiveBranch(ctx context.Context, sessionID, parentMessageID, activeChildID string) error {
	path := fmt.Sprintf("/api/sessions/%s/active-branch", sessionID)
	body := branchSelection{ParentMessageID: parentMessageID, ActiveChildID: activeChildID}
	if err := c.doJSON(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("failed to set active branch: %w", err)
	}
	return nil
}

// SubmitFeedback rates a generation by its server task id
func (c *Client) SubmitFeedback(ctx context.Context, feedback Feedback) error {
	if err := c.doJSON(ctx, http.MethodPost, "/api/feedback", feedback, nil); err != nil {
		return fmt.Errorf("failed to submit feedback: %w", err)
	}
	return nil
}

// ListFiles returns the uploaded attachments
func (c *Client) ListFiles(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo
	if err := c.doJSON(ctx, http.MethodGet, "/api/files", nil, &files); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

// DeleteFile removes an uploaded attachment
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	path := fmt.Sprintf("/api/files/%s", fileID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// UploadFile uploads one attachment as multipart form data
func (c *Client) UploadFile(ctx context.Context, name string, content io.Reader) (FileInfo, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return FileInfo{}, fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return FileInfo{}, fmt.Errorf("failed to finalize form: %w", err)
	}

	url := fmt.Sprintf("%s/api/files", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return FileInfo{}, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return FileInfo{}, decodeError(resp)
	}

	var info FileInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return FileInfo{}, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return info, nil
}

// doJSON issues one JSON request and decodes the response into out
// when out is non-nil
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError extracts a server error message, trying JSON first and
// falling back to the raw body
func decodeError(resp *http.Response) error {
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
