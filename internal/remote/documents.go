package remote

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sync/atomic"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/pkg/apierror"
)

func (c *Client) ListDocuments(ctx context.Context, folderID string) ([]model.Document, error) {
	path := apiPrefix + "/documents"
	if folderID != "" {
		path += "?folder_id=" + url.QueryEscape(folderID)
	}
	return call[[]model.Document](ctx, c, http.MethodGet, path, nil)
}

// UploadDocument streams r as a multipart body. onSent, when set, receives
// the cumulative number of content bytes handed to the transport.
//
// A 401 triggers one token refresh. The upload is repeated only when r is an
// io.Seeker that can be rewound; otherwise the 401 is returned as is and
// onSent may report from zero again on the second attempt.
func (c *Client) UploadDocument(ctx context.Context, folderID string, name string, r io.Reader, size int64, onSent func(sent int64)) (model.Document, error) {
	doc, err := c.uploadOnce(ctx, folderID, name, r, size, onSent)
	if err == nil || !isUnauthorized(err) {
		return doc, err
	}

	seeker, ok := r.(io.Seeker)
	if !ok {
		return model.Document{}, err
	}
	if _, refreshErr := c.Refresh(ctx); refreshErr != nil {
		return model.Document{}, err
	}
	if _, seekErr := seeker.Seek(0, io.SeekStart); seekErr != nil {
		return model.Document{}, err
	}
	return c.uploadOnce(ctx, folderID, name, r, size, onSent)
}

func (c *Client) uploadOnce(ctx context.Context, folderID string, name string, r io.Reader, size int64, onSent func(sent int64)) (model.Document, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	written := make(chan struct{})
	go func() {
		defer close(written)
		err := writeUploadForm(form, folderID, name, size, &countingReader{r: r, onRead: onSent})
		if err == nil {
			err = form.Close()
		}
		_ = pw.CloseWithError(err)
	}()
	// r must not be read once the attempt returns, so a retry can rewind it.
	defer func() {
		_ = pr.Close()
		<-written
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+"/documents", pr)
	if err != nil {
		return model.Document{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	c.applyAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Document{}, apierror.Network(err)
	}
	defer resp.Body.Close()

	doc, err := decodeResponse[model.Document](resp)
	if err != nil {
		return model.Document{}, unwrapTransient(err)
	}
	return doc, nil
}

func writeUploadForm(form *multipart.Writer, folderID string, name string, size int64, content io.Reader) error {
	if folderID != "" {
		if err := form.WriteField("folder_id", folderID); err != nil {
			return err
		}
	}
	if size >= 0 {
		if err := form.WriteField("size", fmt.Sprint(size)); err != nil {
			return err
		}
	}

	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return err
	}

	_, err = io.Copy(part, content)
	return err
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	_, err := call[map[string]any](ctx, c, http.MethodDelete, apiPrefix+"/documents/"+url.PathEscape(id), nil)
	return err
}

func (c *Client) ListSharedDocuments(ctx context.Context) ([]model.SharedDocument, error) {
	return call[[]model.SharedDocument](ctx, c, http.MethodGet, apiPrefix+"/shares/incoming", nil)
}

func (c *Client) ShareDocument(ctx context.Context, documentID string, username string, permission model.Permission) (model.ShareRecord, error) {
	return call[model.ShareRecord](ctx, c, http.MethodPost, apiPrefix+"/documents/"+url.PathEscape(documentID)+"/shares",
		model.ShareDocumentRequest{Username: username, Permission: permission})
}

type countingReader struct {
	r      io.Reader
	sent   atomic.Int64
	onRead func(int64)
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		total := cr.sent.Add(int64(n))
		if cr.onRead != nil {
			cr.onRead(total)
		}
	}
	return n, err
}
