package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-notes-workspace/internal/event"
	"go-notes-workspace/internal/model"
	"go-notes-workspace/pkg/apierror"
)

type ShareService struct {
	documents DocumentRepository
	users     UserRepository
	shares    ShareRepository
	bus       event.Bus
	now       func() time.Time
}

func NewShareService(documents DocumentRepository, users UserRepository, shares ShareRepository, bus event.Bus) *ShareService {
	return &ShareService{
		documents: documents,
		users:     users,
		shares:    shares,
		bus:       bus,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Share grants username access to a document the owner holds. Sharing again
// updates the permission. The recipient is notified.
func (s *ShareService) Share(ctx context.Context, ownerID string, documentID string, req model.ShareDocumentRequest) (model.ShareRecord, error) {
	permission := req.Permission
	if permission == "" {
		permission = model.PermissionView
	}
	if !permission.Valid() {
		return model.ShareRecord{}, model.ErrInvalidPermission
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		return model.ShareRecord{}, apierror.New("BAD_REQUEST", "username is required", "", http.StatusBadRequest)
	}

	doc, err := s.documents.GetOwned(ctx, ownerID, documentID)
	if err != nil {
		return model.ShareRecord{}, err
	}

	target, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return model.ShareRecord{}, err
	}
	if target.ID == ownerID {
		return model.ShareRecord{}, apierror.New("BAD_REQUEST", "cannot share a document with yourself", username, http.StatusBadRequest)
	}

	owner, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		return model.ShareRecord{}, err
	}

	record, err := s.shares.Upsert(ctx, model.ShareRecord{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		OwnerID:    ownerID,
		UserID:     target.ID,
		Permission: permission,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return model.ShareRecord{}, err
	}

	shared := model.SharedDocument{
		Document:   publicDocument(doc),
		SharedBy:   model.UserRef{ID: owner.ID, Username: owner.Username},
		Permission: record.Permission,
		SharedAt:   record.CreatedAt,
	}
	publish(s.bus, target.ID, model.NotificationDocumentShared, "Document shared with you",
		owner.Username+" shared "+doc.Name, shared)

	return record, nil
}

func (s *ShareService) Incoming(ctx context.Context, userID string) ([]model.SharedDocument, error) {
	return s.shares.ListIncoming(ctx, userID)
}
