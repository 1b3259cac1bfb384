package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-notes-workspace/internal/event"
	"go-notes-workspace/internal/model"
	"go-notes-workspace/internal/util"
)

// RootFolderID addresses the root folder in URLs.
const RootFolderID = "root"

type FolderService struct {
	folders    FolderRepository
	documents  DocumentRepository
	blobs      BlobStore
	thumbnails BlobStore
	bus        event.Bus
	now        func() time.Time
}

func NewFolderService(folders FolderRepository, documents DocumentRepository, blobs BlobStore, thumbnails BlobStore, bus event.Bus) *FolderService {
	return &FolderService{
		folders:    folders,
		documents:  documents,
		blobs:      blobs,
		thumbnails: thumbnails,
		bus:        bus,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// normalizeFolderID maps "" and "root" to nil.
func normalizeFolderID(id string) *string {
	id = strings.TrimSpace(id)
	if id == "" || id == RootFolderID {
		return nil
	}
	return &id
}

func (s *FolderService) List(ctx context.Context, ownerID string, parentID string) ([]model.Folder, error) {
	parent := normalizeFolderID(parentID)
	if parent != nil {
		if _, err := s.folders.Get(ctx, ownerID, *parent); err != nil {
			return nil, err
		}
	}
	return s.folders.ListChildren(ctx, ownerID, parent)
}

// Contents returns subfolders, documents and the folder itself. The root has
// no CurrentFolder.
func (s *FolderService) Contents(ctx context.Context, ownerID string, folderID string) (model.FolderContents, error) {
	id := normalizeFolderID(folderID)

	var contents model.FolderContents
	if id != nil {
		current, err := s.folders.Get(ctx, ownerID, *id)
		if err != nil {
			return model.FolderContents{}, err
		}
		contents.CurrentFolder = &current
	}

	folders, err := s.folders.ListChildren(ctx, ownerID, id)
	if err != nil {
		return model.FolderContents{}, err
	}

	stored, err := s.documents.ListByFolder(ctx, ownerID, id)
	if err != nil {
		return model.FolderContents{}, err
	}

	contents.Folders = folders
	contents.Documents = publicDocuments(stored)
	return contents, nil
}

func (s *FolderService) Create(ctx context.Context, ownerID string, req model.CreateFolderRequest) (model.Folder, error) {
	name, err := util.SanitizeName(req.Name)
	if err != nil {
		return model.Folder{}, err
	}

	folder := model.Folder{
		ID:        uuid.NewString(),
		Name:      name,
		ParentID:  normalizeFolderID(model.Deref(req.ParentID)),
		UpdatedAt: s.now(),
	}

	if err := s.folders.Create(ctx, ownerID, folder); err != nil {
		return model.Folder{}, err
	}

	publish(s.bus, ownerID, model.NotificationFolderCreated, "Folder created", folder.Name, folder)
	return folder, nil
}

// Delete removes the folder with everything below it, including the blobs of
// contained documents.
func (s *FolderService) Delete(ctx context.Context, ownerID string, id string) error {
	folderID := normalizeFolderID(id)
	if folderID == nil {
		return model.ErrFolderNotFound
	}

	folder, err := s.folders.Get(ctx, ownerID, *folderID)
	if err != nil {
		return err
	}

	documentKeys, thumbnailKeys, err := s.folders.SubtreeBlobKeys(ctx, ownerID, folder.ID)
	if err != nil {
		return err
	}

	if err := s.folders.Delete(ctx, ownerID, folder.ID); err != nil {
		return err
	}

	if err := s.blobs.Remove(documentKeys...); err != nil {
		slog.Warn("failed to remove document blobs", "folder_id", folder.ID, "error", err)
	}
	if err := s.thumbnails.Remove(thumbnailKeys...); err != nil {
		slog.Warn("failed to remove thumbnails", "folder_id", folder.ID, "error", err)
	}

	publish(s.bus, ownerID, model.NotificationFolderDeleted, "Folder deleted", folder.Name, map[string]string{"id": folder.ID})
	return nil
}

func publish(bus event.Bus, userID string, typ model.NotificationType, title string, body string, payload any) {
	if bus == nil {
		return
	}

	e, err := event.New(userID, typ, title, body, payload)
	if err != nil {
		slog.Error("failed to build notification", "type", typ, "error", err)
		return
	}
	bus.Publish(e)
}
