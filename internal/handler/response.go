package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"go-notes-workspace/internal/middleware"
	"go-notes-workspace/internal/model"
	"go-notes-workspace/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// sentinelErrors maps repository and service sentinels to their wire form.
var sentinelErrors = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{model.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND", "User not found"},
	{model.ErrUserAlreadyExists, http.StatusConflict, "ALREADY_EXISTS", "User already exists"},
	{model.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials"},
	{model.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required"},
	{model.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "Access denied"},
	{model.ErrTokenNotFound, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token"},
	{model.ErrTokenExpired, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token"},
	{model.ErrFolderNotFound, http.StatusNotFound, "NOT_FOUND", "Folder not found"},
	{model.ErrDocumentNotFound, http.StatusNotFound, "NOT_FOUND", "Document not found"},
	{model.ErrFolderConflict, http.StatusConflict, "CONFLICT", "A folder with this name already exists"},
	{model.ErrShareNotFound, http.StatusNotFound, "NOT_FOUND", "Share not found"},
	{model.ErrInvalidPermission, http.StatusBadRequest, "VALIDATION_ERROR", "Permission must be view or edit"},
	{model.ErrInsufficientTokens, http.StatusConflict, "INSUFFICIENT_TOKENS", "Not enough tokens"},
	{model.ErrQuotaExceeded, http.StatusConflict, "QUOTA_EXCEEDED", "Storage quota exceeded"},
	{model.ErrInvalidInput, http.StatusBadRequest, "BAD_REQUEST", "Invalid input"},
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	classified := false
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
		classified = true
	} else if isPayloadTooLarge(err) {
		status = http.StatusRequestEntityTooLarge
		body.Code = "PAYLOAD_TOO_LARGE"
		body.Message = "request body exceeds MAX_UPLOAD_SIZE"
		classified = true
	} else {
		for _, s := range sentinelErrors {
			if errors.Is(err, s.err) {
				status, body.Code, body.Message = s.status, s.code, s.message
				classified = true
				break
			}
		}
	}

	if !classified {
		// Unclassified errors are logged so they show up in container logs.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

func isPayloadTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest)
	}
	return nil
}

// requireUser writes a 401 and returns false when the request is anonymous.
func requireUser(w http.ResponseWriter, r *http.Request) (*model.AuthClaims, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return nil, false
	}
	return claims, true
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierror.Validation("query parameter '"+key+"' must be an integer", raw)
	}
	return v, nil
}
