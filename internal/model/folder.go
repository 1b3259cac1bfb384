package model

import "time"

// Folder is a node of the per-user folder tree. ParentID is nil for folders
// at the root; it is a lookup reference only.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id"`
	ItemCount int       `json:"item_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FolderContents is the combined listing used to render a folder view.
// CurrentFolder is nil for the root.
type FolderContents struct {
	Folders       []Folder   `json:"folders"`
	Documents     []Document `json:"documents"`
	CurrentFolder *Folder    `json:"current_folder"`
}

type CreateFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
}

// SameParent reports whether two nullable folder references point at the same folder.
func SameParent(a *string, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// StringPtr returns nil for an empty id so "" can stand for the root.
func StringPtr(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func Deref(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}
