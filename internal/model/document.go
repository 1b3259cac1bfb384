package model

import "time"

type Document struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	FolderID     *string   `json:"folder_id"`
	MimeType     string    `json:"mime_type,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StoredDocument is the server-side row behind a Document.
type StoredDocument struct {
	Document
	OwnerID      string
	StorageKey   string
	ThumbnailKey string
}

type Permission string

const (
	PermissionView Permission = "view"
	PermissionEdit Permission = "edit"
)

func (p Permission) Valid() bool {
	return p == PermissionView || p == PermissionEdit
}

func (p Permission) CanEdit() bool {
	return p == PermissionEdit
}

type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// SharedDocument is a document another user granted access to.
type SharedDocument struct {
	Document
	SharedBy   UserRef    `json:"shared_by"`
	Permission Permission `json:"permission"`
	SharedAt   time.Time  `json:"shared_at"`
}

type ShareDocumentRequest struct {
	Username   string     `json:"username"`
	Permission Permission `json:"permission"`
}

type ShareRecord struct {
	ID         string     `json:"id"`
	DocumentID string     `json:"document_id"`
	OwnerID    string     `json:"owner_id"`
	UserID     string     `json:"user_id"`
	Permission Permission `json:"permission"`
	CreatedAt  time.Time  `json:"created_at"`
}
