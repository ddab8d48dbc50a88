package app

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/hangpark123/zoomnote/internal/auth"
	"github.com/hangpark123/zoomnote/internal/identity"
	"github.com/hangpark123/zoomnote/internal/rbac"
	"github.com/hangpark123/zoomnote/internal/serial"
	"github.com/hangpark123/zoomnote/internal/session"
	"github.com/hangpark123/zoomnote/internal/store"
	"github.com/hangpark123/zoomnote/internal/workflow"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{identity.ErrUnknownUser, http.StatusUnauthorized, "UNKNOWN_USER"},
		{session.ErrNotFound, http.StatusUnauthorized, "UNKNOWN_USER"},
		{auth.ErrAuthTag, http.StatusUnauthorized, "UNKNOWN_USER"},
		{rbac.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{fmt.Errorf("update note: %w", rbac.ErrLocked), http.StatusBadRequest, "DOCUMENT_LOCKED"},
		{rbac.ErrLastMaster, http.StatusBadRequest, "LAST_MASTER"},
		{fmt.Errorf("create note: %w", serial.ErrConflict), http.StatusInternalServerError, "SERIAL_CONFLICT"},
		{serial.ErrInvalidWeek, http.StatusBadRequest, "VALIDATION_ERROR"},
		{workflow.ErrUnknownSlot, http.StatusBadRequest, "VALIDATION_ERROR"},
		{workflow.ErrNoSignature, http.StatusBadRequest, "SIGNATURE_REQUIRED"},
		{store.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{validationError("title is required"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{errors.New("connection reset"), http.StatusInternalServerError, "SERVER_ERROR"},
	}
	for _, tc := range cases {
		status, code, message, _ := mapError(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("mapError(%v) = %d %s, expected %d %s", tc.err, status, code, tc.status, tc.code)
		}
		if tc.code == "SERVER_ERROR" && message != "Server error" {
			t.Fatalf("server errors must not leak detail, got %q", message)
		}
	}
}
