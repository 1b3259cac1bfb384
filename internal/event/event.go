// Package event fans notifications out from services to push subscribers.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"go-notes-workspace/internal/model"
)

// Event addresses a notification to a single user.
type Event struct {
	UserID       string
	Notification model.Notification
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}

// New builds an event whose payload is the JSON encoding of payload.
func New(userID string, typ model.NotificationType, title string, body string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}

	return Event{
		UserID: userID,
		Notification: model.Notification{
			ID:        uuid.NewString(),
			Type:      typ,
			Title:     title,
			Body:      body,
			Icon:      iconFor(typ),
			Payload:   raw,
			CreatedAt: time.Now().UTC(),
		},
	}, nil
}

func iconFor(typ model.NotificationType) string {
	switch typ {
	case model.NotificationFolderCreated, model.NotificationFolderDeleted:
		return "folder"
	case model.NotificationDocumentShared:
		return "share"
	case model.NotificationTokensLow:
		return "warning"
	default:
		return "document"
	}
}
