package store

// Kind distinguishes folders from documents so equal ids never collide.
type Kind string

const (
	KindFolder   Kind = "folder"
	KindDocument Kind = "document"
)

type ItemKey struct {
	Kind Kind
	ID   string
}

func FolderKey(id string) ItemKey { return ItemKey{Kind: KindFolder, ID: id} }
func DocumentKey(id string) ItemKey { return ItemKey{Kind: KindDocument, ID: id} }

// ToggleItemSelection flips membership of key. Toggling twice restores the
// previous selection.
func (s *Store) ToggleItemSelection(key ItemKey) {
	s.update(func(st *State) {
		if _, ok := st.Selection[key]; ok {
			delete(st.Selection, key)
			return
		}
		st.Selection[key] = struct{}{}
	})
}

// SelectAllItems selects every folder and document in the current listing.
func (s *Store) SelectAllItems() {
	s.update(func(st *State) {
		for _, f := range st.Folders {
			st.Selection[FolderKey(f.ID)] = struct{}{}
		}
		for _, d := range st.Documents {
			st.Selection[DocumentKey(d.ID)] = struct{}{}
		}
	})
}

func (s *Store) ClearSelection() {
	s.update(func(st *State) { st.Selection = map[ItemKey]struct{}{} })
}

// SelectedItems returns the selected keys in listing order.
func (s *Store) SelectedItems() []ItemKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := []ItemKey{}
	for _, f := range s.state.Folders {
		if _, ok := s.state.Selection[FolderKey(f.ID)]; ok {
			keys = append(keys, FolderKey(f.ID))
		}
	}
	for _, d := range s.state.Documents {
		if _, ok := s.state.Selection[DocumentKey(d.ID)]; ok {
			keys = append(keys, DocumentKey(d.ID))
		}
	}
	return keys
}

// pruneSelection drops keys whose item left the listing.
func pruneSelection(st *State) {
	present := make(map[ItemKey]struct{}, len(st.Folders)+len(st.Documents))
	for _, f := range st.Folders {
		present[FolderKey(f.ID)] = struct{}{}
	}
	for _, d := range st.Documents {
		present[DocumentKey(d.ID)] = struct{}{}
	}
	for k := range st.Selection {
		if _, ok := present[k]; !ok {
			delete(st.Selection, k)
		}
	}
}
