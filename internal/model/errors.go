package model

import "errors"

var (
	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token related errors
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")

	// Folder/Document related errors
	ErrFolderNotFound   = errors.New("folder not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrFolderConflict   = errors.New("folder already exists")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Share related errors
	ErrShareNotFound     = errors.New("share not found")
	ErrInvalidPermission = errors.New("invalid share permission")

	// Usage related errors
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrQuotaExceeded      = errors.New("storage quota exceeded")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
