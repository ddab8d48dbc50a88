package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hangpark123/zoomnote/internal/identity"
	"github.com/hangpark123/zoomnote/internal/logging"
	"github.com/hangpark123/zoomnote/internal/store"
)

const (
	sessionCookie    = "zn_sid"
	contextHeader    = "X-Zoom-App-Context"
	contextHeaderB64 = "X-Zoom-App-Context-B64"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     logging.Logger
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin, logger: service.logger}
}

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.withMiddleware)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Get("/api/health", s.handleHealth)
	r.Head("/api/health", s.handleHealth)
	r.Get("/api/ready", s.handleReady)
	r.Head("/api/ready", s.handleReady)
	r.Post("/api/auth/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)

		r.Get("/api/me", s.handleMe)
		r.Get("/api/my-signature", s.handleGetSignature)
		r.Post("/api/my-signature", s.handleSetSignature)

		r.Get("/api/research-notes", s.handleListNotes)
		r.Post("/api/research-notes", s.handleCreateNote)
		r.Get("/api/research-notes/search", s.handleSearchNotes)
		r.Get("/api/research-notes/{id}", s.handleGetNote)
		r.Put("/api/research-notes/{id}", s.handleUpdateNote)
		r.Delete("/api/research-notes/{id}", s.handleDeleteNote)
		r.Post("/api/research-notes/{id}/sign", s.handleSign)

		r.Get("/api/users", s.handleListUsers)
		r.Put("/api/users/{id}/role", s.handleSetRole)
	})
	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		s.logger.Error(ctx, "readiness check failed", "check", "database", "error", err)
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{"status": "error"}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if err := s.service.Logout(r.Context(), c.Value); err != nil {
			s.logger.Warn(r.Context(), "logout failed", "error", err)
		}
	}
	clearSessionCookie(w, r)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *HTTPServer) handleGetSignature(w http.ResponseWriter, r *http.Request) {
	payload, err := s.service.MySignature(r.Context(), currentUser(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleSetSignature(w http.ResponseWriter, r *http.Request) {
	var body SignatureInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	payload, err := s.service.SetMySignature(r.Context(), currentUser(r), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleListNotes(w http.ResponseWriter, r *http.Request) {
	payload, err := s.service.ListNotes(r.Context(), currentUser(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var body NoteInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	note, err := s.service.CreateNote(r.Context(), currentUser(r), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (s *HTTPServer) handleSearchNotes(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	limit, ok := queryInt(w, r, "limit", 20)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.service.SearchNotes(r.Context(), currentUser(r), q, limit, offset))
}

func (s *HTTPServer) handleGetNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := noteIDParam(w, r)
	if !ok {
		return
	}
	note, err := s.service.GetNote(r.Context(), currentUser(r), noteID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"note": note})
}

func (s *HTTPServer) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := noteIDParam(w, r)
	if !ok {
		return
	}
	var body NoteUpdateInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	note, err := s.service.UpdateNote(r.Context(), currentUser(r), noteID, body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *HTTPServer) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := noteIDParam(w, r)
	if !ok {
		return
	}
	payload, err := s.service.DeleteNote(r.Context(), currentUser(r), noteID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleSign(w http.ResponseWriter, r *http.Request) {
	noteID, ok := noteIDParam(w, r)
	if !ok {
		return
	}
	var body SignInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	note, err := s.service.Sign(r.Context(), currentUser(r), noteID, body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	sync := r.URL.Query().Get("sync")
	payload, err := s.service.ListUsers(r.Context(), currentUser(r), sync == "1" || sync == "true")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleSetRole(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role string `json:"role"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	payload, err := s.service.SetUserRole(r.Context(), currentUser(r), chi.URLParam(r, "id"), body.Role)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// requireUser identifies the caller and stores the user on the request
// context. A freshly minted session is returned as a cookie.
func (s *HTTPServer) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := s.service.Identify(r.Context(), credentialsFrom(r))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if caller.Handle != "" {
			setSessionCookie(w, r, caller.Handle, s.service.SessionTTL())
		}
		ctx := context.WithValue(r.Context(), userKey{}, caller.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func credentialsFrom(r *http.Request) Credentials {
	c := Credentials{
		Query: identity.Query{
			UserID:    strings.TrimSpace(r.URL.Query().Get("identityId")),
			Email:     strings.TrimSpace(r.URL.Query().Get("identityEmail")),
			AccountID: strings.TrimSpace(r.URL.Query().Get("identityAccountId")),
		},
		ContextToken: r.Header.Get(contextHeader),
	}
	if c.ContextToken == "" {
		c.ContextToken = r.Header.Get(contextHeaderB64)
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		c.SessionHandle = cookie.Value
	}
	return c
}

type userKey struct{}

func currentUser(r *http.Request) store.User {
	u, _ := r.Context().Value(userKey{}).(store.User)
	return u
}

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// The app runs inside the platform's embedded browser, which is a
// third-party context over TLS; that needs SameSite=None.
func setSessionCookie(w http.ResponseWriter, r *http.Request, handle string, ttl time.Duration) {
	c := &http.Cookie{
		Name:     sessionCookie,
		Value:    handle,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if isHTTPS(r) {
		c.Secure = true
		c.SameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, c)
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	setSessionCookie(w, r, "", -time.Second)
}

func noteIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid note id", nil)
		return 0, false
	}
	return id, true
}

func queryInt(w http.ResponseWriter, r *http.Request, key string, fallback int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", key+" must be an integer", nil)
		return 0, false
	}
	return n, true
}

// fail writes err through mapError. Server errors are logged with the
// underlying cause, which never reaches the client.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "code", code, "error", err)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := logging.WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		if r.Method == http.MethodOptions {
			writeJSON(writer, http.StatusNoContent, map[string]any{})
		} else {
			next.ServeHTTP(writer, r)
		}

		s.logger.Info(ctx, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", writer.status,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	if corsOrigin != "*" {
		header.Set("Access-Control-Allow-Credentials", "true")
		header.Add("Vary", "Origin")
	}
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, "+contextHeader+", "+contextHeaderB64)
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}
