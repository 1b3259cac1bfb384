package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/internal/storage"
)

type folderFixture struct {
	svc        *FolderService
	folders    *mockFolders
	documents  *mockDocuments
	blobs      *storage.MockStorage
	thumbnails *storage.MockStorage
	bus        *recordingBus
}

func newFolderFixture() folderFixture {
	f := folderFixture{
		folders:    new(mockFolders),
		documents:  new(mockDocuments),
		blobs:      new(storage.MockStorage),
		thumbnails: new(storage.MockStorage),
		bus:        &recordingBus{},
	}
	f.svc = NewFolderService(f.folders, f.documents, f.blobs, f.thumbnails, f.bus)
	f.svc.now = frozen
	return f
}

func TestFolderService_Contents(t *testing.T) {
	ctx := context.Background()

	t.Run("root has no current folder", func(t *testing.T) {
		f := newFolderFixture()
		f.folders.On("ListChildren", ctx, "u1", (*string)(nil)).Return([]model.Folder{{ID: "f1", Name: "notes"}}, nil)
		f.documents.On("ListByFolder", ctx, "u1", (*string)(nil)).Return([]model.StoredDocument{
			{Document: model.Document{ID: "d1", Name: "a.png"}, ThumbnailKey: "u1/d1.jpg"},
			{Document: model.Document{ID: "d2", Name: "b.md"}},
		}, nil)

		contents, err := f.svc.Contents(ctx, "u1", RootFolderID)
		require.NoError(t, err)
		assert.Nil(t, contents.CurrentFolder)
		assert.Len(t, contents.Folders, 1)
		require.Len(t, contents.Documents, 2)
		assert.Equal(t, "/api/v1/documents/d1/thumbnail", contents.Documents[0].ThumbnailURL)
		assert.Empty(t, contents.Documents[1].ThumbnailURL)
		f.folders.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing folder", func(t *testing.T) {
		f := newFolderFixture()
		f.folders.On("Get", ctx, "u1", "f9").Return(model.Folder{}, model.ErrFolderNotFound)

		_, err := f.svc.Contents(ctx, "u1", "f9")
		require.ErrorIs(t, err, model.ErrFolderNotFound)
	})

	t.Run("subfolder carries itself", func(t *testing.T) {
		f := newFolderFixture()
		id := "f1"
		f.folders.On("Get", ctx, "u1", "f1").Return(model.Folder{ID: "f1", Name: "notes"}, nil)
		f.folders.On("ListChildren", ctx, "u1", &id).Return([]model.Folder{}, nil)
		f.documents.On("ListByFolder", ctx, "u1", &id).Return([]model.StoredDocument{}, nil)

		contents, err := f.svc.Contents(ctx, "u1", "f1")
		require.NoError(t, err)
		require.NotNil(t, contents.CurrentFolder)
		assert.Equal(t, "notes", contents.CurrentFolder.Name)
		assert.NotNil(t, contents.Documents)
	})
}

func TestFolderService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("sanitizes and publishes", func(t *testing.T) {
		f := newFolderFixture()
		parent := "f1"
		f.folders.On("Create", ctx, "u1", mock.MatchedBy(func(folder model.Folder) bool {
			return folder.Name == "draft_s" && model.Deref(folder.ParentID) == "f1" && folder.UpdatedAt.Equal(fixedNow)
		})).Return(nil)

		folder, err := f.svc.Create(ctx, "u1", model.CreateFolderRequest{Name: " draft/s ", ParentID: &parent})
		require.NoError(t, err)
		assert.NotEmpty(t, folder.ID)

		require.Len(t, f.bus.events, 1)
		assert.Equal(t, "u1", f.bus.events[0].UserID)
		assert.Equal(t, model.NotificationFolderCreated, f.bus.events[0].Notification.Type)
	})

	t.Run("root parent is stored as nil", func(t *testing.T) {
		f := newFolderFixture()
		root := RootFolderID
		f.folders.On("Create", ctx, "u1", mock.MatchedBy(func(folder model.Folder) bool {
			return folder.ParentID == nil
		})).Return(nil)

		_, err := f.svc.Create(ctx, "u1", model.CreateFolderRequest{Name: "notes", ParentID: &root})
		require.NoError(t, err)
	})

	t.Run("blank name", func(t *testing.T) {
		f := newFolderFixture()
		_, err := f.svc.Create(ctx, "u1", model.CreateFolderRequest{Name: "   "})
		require.Error(t, err)
		assert.Empty(t, f.bus.events)
	})

	t.Run("conflict", func(t *testing.T) {
		f := newFolderFixture()
		f.folders.On("Create", ctx, "u1", mock.Anything).Return(model.ErrFolderConflict)

		_, err := f.svc.Create(ctx, "u1", model.CreateFolderRequest{Name: "notes"})
		require.ErrorIs(t, err, model.ErrFolderConflict)
		assert.Empty(t, f.bus.events)
	})
}

func TestFolderService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes blobs of the subtree", func(t *testing.T) {
		f := newFolderFixture()
		f.folders.On("Get", ctx, "u1", "f1").Return(model.Folder{ID: "f1", Name: "notes"}, nil)
		f.folders.On("SubtreeBlobKeys", ctx, "u1", "f1").Return([]string{"u1/d1", "u1/d2"}, []string{"u1/d1.jpg"}, nil)
		f.folders.On("Delete", ctx, "u1", "f1").Return(nil)
		f.blobs.On("Remove", []string{"u1/d1", "u1/d2"}).Return(nil)
		f.thumbnails.On("Remove", []string{"u1/d1.jpg"}).Return(nil)

		require.NoError(t, f.svc.Delete(ctx, "u1", "f1"))
		f.blobs.AssertExpectations(t)
		f.thumbnails.AssertExpectations(t)

		require.Len(t, f.bus.events, 1)
		var ref struct{ ID string }
		require.NoError(t, json.Unmarshal(f.bus.events[0].Notification.Payload, &ref))
		assert.Equal(t, "f1", ref.ID)
	})

	t.Run("missing folder leaves blobs alone", func(t *testing.T) {
		f := newFolderFixture()
		f.folders.On("Get", ctx, "u1", "f9").Return(model.Folder{}, model.ErrFolderNotFound)

		err := f.svc.Delete(ctx, "u1", "f9")
		require.ErrorIs(t, err, model.ErrFolderNotFound)
		f.blobs.AssertNotCalled(t, "Remove", mock.Anything)
		assert.Empty(t, f.bus.events)
	})

	t.Run("root cannot be deleted", func(t *testing.T) {
		f := newFolderFixture()
		require.ErrorIs(t, f.svc.Delete(ctx, "u1", RootFolderID), model.ErrFolderNotFound)
	})
}
