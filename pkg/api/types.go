package api

import "time"

// Session is one conversation thread's metadata
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionDetail is a session plus its server-persisted branch
// selections, fetched when opening a conversation.
type SessionDetail struct {
	Session
	ActiveBranches map[string]string `json:"activeBranches,omitempty"`
}

// FileInfo describes an uploaded attachment
type FileInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Feedback rates one generation, correlated by the server task id
type Feedback struct {
	TaskID  string `json:"taskId"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// branchSelection is the active-branch persistence payload
type branchSelection struct {
	ParentMessageID string `json:"parentMessageId"`
	ActiveChildID   string `json:"activeChildId"`
}
