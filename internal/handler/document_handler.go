package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-notes-workspace/internal/metrics"
	"go-notes-workspace/internal/model"
	"go-notes-workspace/internal/service"
	"go-notes-workspace/pkg/apierror"
)

// multipartOverhead leaves room for boundaries and form fields on top of the
// file itself.
const multipartOverhead = 1 << 20

type DocumentHandler struct {
	service       *service.DocumentService
	maxUploadSize int64
}

func NewDocumentHandler(service *service.DocumentService, maxUploadSize int64) *DocumentHandler {
	return &DocumentHandler{service: service, maxUploadSize: maxUploadSize}
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	docs, err := h.service.List(r.Context(), claims.UserID, r.URL.Query().Get("folder_id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, docs, &model.Meta{Total: len(docs)})
}

// Upload streams a single "file" part. The optional "folder_id" and "size"
// fields must precede it.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)

	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid multipart body", "", http.StatusBadRequest))
		return
	}

	input := service.UploadInput{Size: -1}
	for {
		part, nextErr := reader.NextPart()
		if nextErr == io.EOF {
			break
		}
		if nextErr != nil {
			if isPayloadTooLarge(nextErr) {
				writeError(w, nextErr)
				return
			}
			writeError(w, apierror.New("BAD_REQUEST", "invalid multipart stream", nextErr.Error(), http.StatusBadRequest))
			return
		}

		switch part.FormName() {
		case "folder_id":
			value, _ := io.ReadAll(io.LimitReader(part, 256))
			input.FolderID = strings.TrimSpace(string(value))
		case "size":
			value, _ := io.ReadAll(io.LimitReader(part, 32))
			if size, parseErr := strconv.ParseInt(strings.TrimSpace(string(value)), 10, 64); parseErr == nil {
				input.Size = size
			}
		case "file":
			if strings.TrimSpace(part.FileName()) == "" {
				_ = part.Close()
				continue
			}
			input.Name = part.FileName()
			input.Content = part

			doc, uploadErr := h.service.Upload(r.Context(), claims.UserID, input)
			_ = part.Close()
			if errors.Is(uploadErr, model.ErrQuotaExceeded) {
				metrics.RecordQuotaExceeded()
			}
			if uploadErr != nil {
				metrics.RecordUpload(0, false)
				writeError(w, uploadErr)
				return
			}
			metrics.RecordUpload(doc.Size, true)
			writeSuccess(w, http.StatusCreated, doc, nil)
			return
		}
		_ = part.Close()
	}

	writeError(w, apierror.Validation("multipart field 'file' is required", "file"))
}

func (h *DocumentHandler) Content(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	file, doc, err := h.service.Content(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	if doc.MimeType != "" {
		w.Header().Set("Content-Type", doc.MimeType)
	}
	disposition := "attachment"
	if strings.EqualFold(r.URL.Query().Get("inline"), "true") {
		disposition = "inline"
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": doc.Name}))
	http.ServeContent(w, r, doc.Name, doc.UpdatedAt, file)
}

func (h *DocumentHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	file, err := h.service.Thumbnail(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, "thumbnail.jpg", info.ModTime(), file)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), claims.UserID, id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": id}, nil)
}
