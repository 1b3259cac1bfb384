package remote

import (
	"context"
	"net/http"
	"net/url"

	"go-notes-workspace/internal/model"
)

// rootFolderID addresses the root in folder paths.
const rootFolderID = "root"

func (c *Client) ListFolders(ctx context.Context, parentID string) ([]model.Folder, error) {
	path := apiPrefix + "/folders"
	if parentID != "" {
		path += "?parent_id=" + url.QueryEscape(parentID)
	}
	return call[[]model.Folder](ctx, c, http.MethodGet, path, nil)
}

// GetFolderContents fetches subfolders, documents and the folder itself in
// one request. An empty id means the root.
func (c *Client) GetFolderContents(ctx context.Context, folderID string) (model.FolderContents, error) {
	id := folderID
	if id == "" {
		id = rootFolderID
	}
	return call[model.FolderContents](ctx, c, http.MethodGet, apiPrefix+"/folders/"+url.PathEscape(id)+"/contents", nil)
}

func (c *Client) CreateFolder(ctx context.Context, name string, parentID string) (model.Folder, error) {
	return call[model.Folder](ctx, c, http.MethodPost, apiPrefix+"/folders", model.CreateFolderRequest{Name: name, ParentID: model.StringPtr(parentID)})
}

func (c *Client) DeleteFolder(ctx context.Context, id string) error {
	_, err := call[map[string]any](ctx, c, http.MethodDelete, apiPrefix+"/folders/"+url.PathEscape(id), nil)
	return err
}
