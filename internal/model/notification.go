package model

import (
	"encoding/json"
	"time"
)

type NotificationType string

const (
	NotificationFolderCreated    NotificationType = "folder.created"
	NotificationFolderDeleted    NotificationType = "folder.deleted"
	NotificationDocumentUploaded NotificationType = "document.uploaded"
	NotificationDocumentDeleted  NotificationType = "document.deleted"
	NotificationDocumentShared   NotificationType = "document.shared"
	NotificationTokensLow        NotificationType = "tokens.low"
)

// Notification is a fire-and-forget message pushed to a connected client.
// Payload carries the entity the event is about, encoded as JSON.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Icon      string           `json:"icon,omitempty"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
