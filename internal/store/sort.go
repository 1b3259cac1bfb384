package store

import (
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Item is one row of the rendered listing.
type Item struct {
	Key       ItemKey
	Name      string
	Size      int64
	Type      string
	UpdatedAt time.Time
	Selected  bool
}

// SortedItems merges folders and documents into one listing ordered by the
// current sort settings.
func (s *Store) SortedItems() []Item {
	st := s.Snapshot()

	items := make([]Item, 0, len(st.Folders)+len(st.Documents))
	for _, f := range st.Folders {
		_, selected := st.Selection[FolderKey(f.ID)]
		items = append(items, Item{
			Key:       FolderKey(f.ID),
			Name:      f.Name,
			Size:      int64(f.ItemCount),
			Type:      string(KindFolder),
			UpdatedAt: f.UpdatedAt,
			Selected:  selected,
		})
	}
	for _, d := range st.Documents {
		_, selected := st.Selection[DocumentKey(d.ID)]
		items = append(items, Item{
			Key:       DocumentKey(d.ID),
			Name:      d.Name,
			Size:      d.Size,
			Type:      documentType(d.Name, d.MimeType),
			UpdatedAt: d.UpdatedAt,
			Selected:  selected,
		})
	}

	sortItems(items, st.SortBy, st.SortOrder)
	return items
}

func sortItems(items []Item, field SortField, order SortOrder) {
	less := func(i int, j int) bool {
		switch field {
		case SortBySize:
			return items[i].Size < items[j].Size
		case SortByUpdatedAt:
			return items[i].UpdatedAt.Before(items[j].UpdatedAt)
		case SortByType:
			if items[i].Type == items[j].Type {
				return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
			}
			return items[i].Type < items[j].Type
		default:
			return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
		}
	}

	sort.SliceStable(items, func(i int, j int) bool {
		// folders always lead
		if items[i].Key.Kind != items[j].Key.Kind {
			return items[i].Key.Kind == KindFolder
		}
		if order == Descending {
			return less(j, i)
		}
		return less(i, j)
	})
}

func documentType(name string, mimeType string) string {
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."); ext != "" {
		return ext
	}
	if mimeType != "" {
		return mimeType
	}
	return "file"
}
