package store

import (
	"encoding/json"
	"fmt"
	"slices"

	"go-notes-workspace/internal/model"
)

type entityRef struct {
	ID string `json:"id"`
}

// ApplyNotification folds a server push into the state. Pushes are hints:
// they only touch the listing they belong to and never override a newer
// load. Unknown types are ignored.
func (s *Store) ApplyNotification(n model.Notification) error {
	switch n.Type {
	case model.NotificationDocumentShared:
		var shared model.SharedDocument
		if err := decodePayload(n, &shared); err != nil {
			return err
		}
		s.update(func(st *State) {
			if slices.ContainsFunc(st.Shared, func(d model.SharedDocument) bool { return d.ID == shared.ID }) {
				return
			}
			st.Shared = append(st.Shared, shared)
		})

	case model.NotificationDocumentUploaded:
		var doc model.Document
		if err := decodePayload(n, &doc); err != nil {
			return err
		}
		s.update(func(st *State) {
			if s.documentsOf == model.Deref(doc.FolderID) {
				st.Documents = upsertDocument(st.Documents, doc)
			}
		})

	case model.NotificationDocumentDeleted:
		var ref entityRef
		if err := decodePayload(n, &ref); err != nil {
			return err
		}
		s.update(func(st *State) {
			st.Documents = slices.DeleteFunc(st.Documents, func(d model.Document) bool { return d.ID == ref.ID })
			st.Shared = slices.DeleteFunc(st.Shared, func(d model.SharedDocument) bool { return d.ID == ref.ID })
			delete(st.Selection, DocumentKey(ref.ID))
		})

	case model.NotificationFolderCreated:
		var folder model.Folder
		if err := decodePayload(n, &folder); err != nil {
			return err
		}
		s.update(func(st *State) {
			s.remember(folder)
			if s.foldersOf != model.Deref(folder.ParentID) {
				return
			}
			if i := indexFolder(st.Folders, folder.ID); i >= 0 {
				st.Folders[i] = cloneFolder(folder)
				return
			}
			st.Folders = append(st.Folders, cloneFolder(folder))
		})

	case model.NotificationFolderDeleted:
		var ref entityRef
		if err := decodePayload(n, &ref); err != nil {
			return err
		}
		s.update(func(st *State) {
			delete(s.known, ref.ID)
			st.Folders = slices.DeleteFunc(st.Folders, func(f model.Folder) bool { return f.ID == ref.ID })
			delete(st.Selection, FolderKey(ref.ID))
		})
	}
	return nil
}

func decodePayload(n model.Notification, v any) error {
	if len(n.Payload) == 0 {
		return fmt.Errorf("notification %s: empty payload", n.Type)
	}
	if err := json.Unmarshal(n.Payload, v); err != nil {
		return fmt.Errorf("notification %s: %w", n.Type, err)
	}
	return nil
}
