package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/internal/service"
)

type ShareHandler struct {
	shares *service.ShareService
}

func NewShareHandler(shares *service.ShareService) *ShareHandler {
	return &ShareHandler{shares: shares}
}

func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload model.ShareDocumentRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	record, err := h.shares.Share(r.Context(), claims.UserID, chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, record, nil)
}

func (h *ShareHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	shared, err := h.shares.Incoming(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, shared, &model.Meta{Total: len(shared)})
}
