package handler

import (
	"net/http"

	"go-notes-workspace/internal/metrics"
	"go-notes-workspace/internal/model"
	"go-notes-workspace/internal/service"
)

type UsageHandler struct {
	service *service.UsageService
}

func NewUsageHandler(service *service.UsageService) *UsageHandler {
	return &UsageHandler{service: service}
}

func (h *UsageHandler) Storage(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	usage, err := h.service.StorageUsage(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, usage, nil)
}

func (h *UsageHandler) Balance(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	account, err := h.service.Balance(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, account, nil)
}

func (h *UsageHandler) Daily(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	days, err := queryInt(r, "days")
	if err != nil {
		writeError(w, err)
		return
	}

	series, err := h.service.Daily(r.Context(), claims.UserID, days)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, series, &model.Meta{Total: len(series)})
}

func (h *UsageHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	days, err := queryInt(r, "days")
	if err != nil {
		writeError(w, err)
		return
	}

	rows, err := h.service.Breakdown(r.Context(), claims.UserID, days)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, rows, &model.Meta{Total: len(rows)})
}

func (h *UsageHandler) Consume(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload model.ConsumeTokensRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.service.Consume(r.Context(), claims.UserID, payload)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.RecordTokensConsumed(service.FeatureName(payload.Feature), payload.Amount)

	writeSuccess(w, http.StatusOK, account, nil)
}
