package store

import (
	"context"
	"slices"
	"strings"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/pkg/apierror"
)

const maxBreadcrumbDepth = 64

// LoadFolders replaces the folder listing with the children of parentID.
// On failure the previous listing is kept.
func (s *Store) LoadFolders(ctx context.Context, parentID string) error {
	var tag generation
	s.update(func(st *State) {
		s.foldersGen = generation{seq: s.foldersGen.seq + 1, folderID: parentID}
		tag = s.foldersGen
		s.inflight++
		st.Loading = true
	})

	folders, err := s.api.ListFolders(ctx, parentID)

	var result error
	s.update(func(st *State) {
		s.end(st)
		if s.foldersGen != tag {
			result = s.stale("load_folders")
			return
		}
		if err != nil {
			result = s.fail(st, "load_folders", err)
			return
		}
		st.Folders = orEmpty(folders)
		s.foldersOf = tag.folderID
		st.Error = ""
		s.remember(folders...)
		pruneSelection(st)
	})
	return result
}

// LoadFolderContents navigates to folderID. Folders, documents and the
// current folder are replaced together or not at all.
func (s *Store) LoadFolderContents(ctx context.Context, folderID string) error {
	var foldersTag, documentsTag generation
	s.update(func(st *State) {
		s.foldersGen = generation{seq: s.foldersGen.seq + 1, folderID: folderID}
		s.documentsGen = generation{seq: s.documentsGen.seq + 1, folderID: folderID}
		foldersTag, documentsTag = s.foldersGen, s.documentsGen
		s.inflight++
		st.Loading = true
	})

	contents, err := s.api.GetFolderContents(ctx, folderID)

	var result error
	s.update(func(st *State) {
		s.end(st)
		if s.foldersGen != foldersTag || s.documentsGen != documentsTag {
			result = s.stale("load_folder_contents")
			return
		}
		if err != nil {
			result = s.fail(st, "load_folder_contents", err)
			return
		}

		if st.CurrentFolderID != folderID {
			st.Selection = map[ItemKey]struct{}{}
		}
		st.Folders = orEmpty(contents.Folders)
		st.Documents = orEmpty(contents.Documents)
		s.foldersOf, s.documentsOf = folderID, folderID
		st.CurrentFolderID = folderID
		st.CurrentFolder = nil
		if contents.CurrentFolder != nil {
			current := cloneFolder(*contents.CurrentFolder)
			st.CurrentFolder = &current
			s.remember(current)
		}
		st.Error = ""
		s.remember(contents.Folders...)
		pruneSelection(st)
	})
	return result
}

// CreateFolder creates name under the folder whose children the listing
// shows and appends the folder the server returns. Nothing is shown before
// the server assigns an id.
func (s *Store) CreateFolder(ctx context.Context, name string) (model.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		var err error
		s.update(func(st *State) {
			err = s.fail(st, "create_folder", apierror.Validation("folder name is required", ""))
		})
		return model.Folder{}, err
	}

	var parentID string
	s.update(func(st *State) {
		parentID = s.foldersOf
		s.inflight++
		st.Loading = true
	})

	folder, err := s.api.CreateFolder(ctx, name, parentID)

	var result error
	s.update(func(st *State) {
		s.end(st)
		if err != nil {
			result = s.fail(st, "create_folder", err)
			return
		}

		s.remember(folder)
		s.invalidateFolders(model.Deref(folder.ParentID))
		if s.foldersOf != model.Deref(folder.ParentID) {
			return
		}
		if i := indexFolder(st.Folders, folder.ID); i >= 0 {
			st.Folders[i] = cloneFolder(folder)
			return
		}
		st.Folders = append(st.Folders, cloneFolder(folder))
	})
	return folder, result
}

// DeleteFolder removes id once the server confirms. On any failure,
// including a folder the server no longer has, the listing is unchanged.
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	s.begin()

	err := s.api.DeleteFolder(ctx, id)

	var result error
	s.update(func(st *State) {
		s.end(st)
		if err != nil {
			result = s.fail(st, "delete_folder", err)
			return
		}

		if f, ok := s.known[id]; ok {
			s.invalidateFolders(model.Deref(f.ParentID))
		}
		delete(s.known, id)
		st.Folders = slices.DeleteFunc(st.Folders, func(f model.Folder) bool { return f.ID == id })
		delete(st.Selection, ItemKey{Kind: KindFolder, ID: id})
	})
	return result
}

// Breadcrumbs returns the path from the root to the current folder, root
// first. The root itself is not included. Unknown ancestors end the path.
func (s *Store) Breadcrumbs() []model.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()

	crumbs := []model.Folder{}
	if s.state.CurrentFolder == nil {
		return crumbs
	}

	seen := map[string]bool{}
	cur := *s.state.CurrentFolder
	for len(crumbs) < maxBreadcrumbDepth && !seen[cur.ID] {
		seen[cur.ID] = true
		crumbs = append(crumbs, cloneFolder(cur))
		if cur.ParentID == nil {
			break
		}
		parent, ok := s.known[*cur.ParentID]
		if !ok {
			break
		}
		cur = parent
	}

	slices.Reverse(crumbs)
	return crumbs
}

// invalidateFolders makes an in-flight folder load for parentID stale, so a
// listing read before a confirmed mutation cannot overwrite it.
func (s *Store) invalidateFolders(parentID string) {
	if s.foldersGen.folderID == parentID {
		s.foldersGen.seq++
	}
}

func (s *Store) remember(folders ...model.Folder) {
	for _, f := range folders {
		s.known[f.ID] = cloneFolder(f)
	}
}

func indexFolder(folders []model.Folder, id string) int {
	return slices.IndexFunc(folders, func(f model.Folder) bool { return f.ID == id })
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
