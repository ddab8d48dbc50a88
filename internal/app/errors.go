package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/hangpark123/zoomnote/internal/auth"
	"github.com/hangpark123/zoomnote/internal/directory"
	"github.com/hangpark123/zoomnote/internal/identity"
	"github.com/hangpark123/zoomnote/internal/rbac"
	"github.com/hangpark123/zoomnote/internal/serial"
	"github.com/hangpark123/zoomnote/internal/session"
	"github.com/hangpark123/zoomnote/internal/store"
	"github.com/hangpark123/zoomnote/internal/workflow"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(message string) *DomainError {
	return domainError(http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

// mapError turns an error into the response taxonomy. Only the code and a
// fixed message leave the process; the wrapped error is for the logs.
func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	switch {
	case errors.As(err, &domainErr):
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	case errors.Is(err, identity.ErrUnknownUser), errors.Is(err, session.ErrNotFound), errors.Is(err, auth.ErrAuthTag):
		return http.StatusUnauthorized, "UNKNOWN_USER", "Could not identify the caller", nil
	case errors.Is(err, rbac.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", "Forbidden", nil
	case errors.Is(err, rbac.ErrLocked):
		return http.StatusBadRequest, "DOCUMENT_LOCKED", "Checked notes can only be changed through an admin edit", nil
	case errors.Is(err, rbac.ErrLastMaster):
		return http.StatusBadRequest, "LAST_MASTER", "The last master cannot be demoted", nil
	case errors.Is(err, serial.ErrConflict):
		return http.StatusInternalServerError, "SERIAL_CONFLICT", "Could not allocate a serial number", nil
	case errors.Is(err, serial.ErrInvalidWeek):
		return http.StatusBadRequest, "VALIDATION_ERROR", "reportWeek must be between 1 and 53", nil
	case errors.Is(err, workflow.ErrUnknownSlot):
		return http.StatusBadRequest, "VALIDATION_ERROR", "role must be checker or reviewer", nil
	case errors.Is(err, workflow.ErrUnknownSignatureKind):
		return http.StatusBadRequest, "VALIDATION_ERROR", "signatureType must be none, draw, text or image", nil
	case errors.Is(err, workflow.ErrNoSignature):
		return http.StatusBadRequest, "SIGNATURE_REQUIRED", "The signer has no registered signature", nil
	case errors.Is(err, directory.ErrNotConfigured):
		return http.StatusBadRequest, "DIRECTORY_NOT_CONFIGURED", "Directory access is not configured", nil
	case errors.Is(err, store.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
