package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"go-notes-workspace/internal/event"
	"go-notes-workspace/internal/model"
	"go-notes-workspace/internal/util"
	"go-notes-workspace/pkg/apierror"
)

// UploadInput describes one multipart upload. Size is the client's declared
// length, or -1 when unknown.
type UploadInput struct {
	FolderID string
	Name     string
	Size     int64
	Content  io.Reader
}

type DocumentService struct {
	documents     DocumentRepository
	folders       FolderRepository
	users         UserRepository
	blobs         BlobStore
	thumbnails    BlobStore
	bus           event.Bus
	maxUploadSize int64
	now           func() time.Time
}

func NewDocumentService(documents DocumentRepository, folders FolderRepository, users UserRepository, blobs BlobStore, thumbnails BlobStore, bus event.Bus, maxUploadSize int64) *DocumentService {
	return &DocumentService{
		documents:     documents,
		folders:       folders,
		users:         users,
		blobs:         blobs,
		thumbnails:    thumbnails,
		bus:           bus,
		maxUploadSize: maxUploadSize,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *DocumentService) List(ctx context.Context, ownerID string, folderID string) ([]model.Document, error) {
	id := normalizeFolderID(folderID)
	if id != nil {
		if _, err := s.folders.Get(ctx, ownerID, *id); err != nil {
			return nil, err
		}
	}

	stored, err := s.documents.ListByFolder(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return publicDocuments(stored), nil
}

// Upload stores the content, checks it against the owner's quota and records
// the document. Images also get a thumbnail; failing to render one is not an
// upload error.
func (s *DocumentService) Upload(ctx context.Context, ownerID string, in UploadInput) (model.Document, error) {
	name, err := util.SanitizeName(in.Name)
	if err != nil {
		return model.Document{}, err
	}

	folderID := normalizeFolderID(in.FolderID)
	if folderID != nil {
		if _, err := s.folders.Get(ctx, ownerID, *folderID); err != nil {
			return model.Document{}, err
		}
	}

	owner, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		return model.Document{}, err
	}
	used, err := s.documents.UsedBytes(ctx, ownerID)
	if err != nil {
		return model.Document{}, err
	}
	if used >= owner.StorageQuota || (in.Size > 0 && used+in.Size > owner.StorageQuota) {
		return model.Document{}, model.ErrQuotaExceeded
	}

	head := make([]byte, util.SniffLen)
	n, err := io.ReadFull(in.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return model.Document{}, err
	}
	mimeType := util.DetectMIME(head[:n], name)

	doc := model.StoredDocument{
		Document: model.Document{
			ID:        uuid.NewString(),
			Name:      name,
			FolderID:  folderID,
			MimeType:  mimeType,
			UpdatedAt: s.now(),
		},
		OwnerID: ownerID,
	}
	doc.StorageKey = ownerID + "/" + doc.ID

	written, err := s.blobs.Put(doc.StorageKey, io.MultiReader(bytes.NewReader(head[:n]), in.Content), s.maxUploadSize)
	if err != nil {
		return model.Document{}, err
	}
	doc.Size = written

	if used+written > owner.StorageQuota {
		s.discard(doc)
		return model.Document{}, model.ErrQuotaExceeded
	}

	if util.IsThumbnailMIME(mimeType) {
		doc.ThumbnailKey = s.storeThumbnail(doc)
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		s.discard(doc)
		return model.Document{}, err
	}

	public := publicDocument(doc)
	publish(s.bus, ownerID, model.NotificationDocumentUploaded, "Document uploaded", doc.Name, public)
	return public, nil
}

func (s *DocumentService) storeThumbnail(doc model.StoredDocument) string {
	src, err := s.blobs.Open(doc.StorageKey)
	if err != nil {
		slog.Warn("failed to open upload for thumbnail", "document_id", doc.ID, "error", err)
		return ""
	}
	defer src.Close()

	var rendered bytes.Buffer
	if err := renderThumbnail(src, &rendered, thumbnailSize); err != nil {
		slog.Debug("thumbnail skipped", "document_id", doc.ID, "mime_type", doc.MimeType, "error", err)
		return ""
	}

	key := doc.StorageKey + ".jpg"
	if _, err := s.thumbnails.Put(key, &rendered, 0); err != nil {
		slog.Warn("failed to store thumbnail", "document_id", doc.ID, "error", err)
		return ""
	}
	return key
}

func (s *DocumentService) discard(doc model.StoredDocument) {
	if err := s.blobs.Remove(doc.StorageKey); err != nil {
		slog.Warn("failed to discard document blob", "document_id", doc.ID, "error", err)
	}
	if doc.ThumbnailKey != "" {
		if err := s.thumbnails.Remove(doc.ThumbnailKey); err != nil {
			slog.Warn("failed to discard thumbnail", "document_id", doc.ID, "error", err)
		}
	}
}

// Content opens the bytes of a document the user owns or was shared.
// The caller closes the file.
func (s *DocumentService) Content(ctx context.Context, userID string, id string) (*os.File, model.StoredDocument, error) {
	doc, err := s.documents.GetAccessible(ctx, userID, id)
	if err != nil {
		return nil, model.StoredDocument{}, err
	}

	file, err := s.blobs.Open(doc.StorageKey)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, model.StoredDocument{}, model.ErrDocumentNotFound
	}
	if err != nil {
		return nil, model.StoredDocument{}, err
	}
	return file, doc, nil
}

func (s *DocumentService) Thumbnail(ctx context.Context, userID string, id string) (*os.File, error) {
	doc, err := s.documents.GetAccessible(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if doc.ThumbnailKey == "" {
		return nil, apierror.NotFound("Thumbnail not found", id)
	}

	file, err := s.thumbnails.Open(doc.ThumbnailKey)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apierror.NotFound("Thumbnail not found", id)
	}
	return file, err
}

func (s *DocumentService) Delete(ctx context.Context, ownerID string, id string) error {
	doc, err := s.documents.GetOwned(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if err := s.documents.Delete(ctx, ownerID, doc.ID); err != nil {
		return err
	}
	s.discard(doc)

	publish(s.bus, ownerID, model.NotificationDocumentDeleted, "Document deleted", doc.Name, map[string]string{"id": doc.ID})
	return nil
}

func publicDocument(d model.StoredDocument) model.Document {
	doc := d.Document
	if d.ThumbnailKey != "" {
		doc.ThumbnailURL = "/api/v1/documents/" + d.ID + "/thumbnail"
	}
	return doc
}

func publicDocuments(stored []model.StoredDocument) []model.Document {
	docs := make([]model.Document, 0, len(stored))
	for _, d := range stored {
		docs = append(docs, publicDocument(d))
	}
	return docs
}
