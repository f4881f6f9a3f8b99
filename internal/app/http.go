package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/gateway"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/session"
	"github.com/VaibhavGIT5048/Vaibhav-gupta7047/internal/store"
)

const visitorCookie = "portfolio_session_id"

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
			"storage":  map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}
		if !s.service.StorageReachable(ctx) {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["storage"] = map[string]any{"status": "error"}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	// Auth routes (no session required)
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/login" {
		s.handleLogin(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/logout" {
		s.service.Sessions().Logout(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/refresh" {
		if err := s.service.Sessions().Refresh(r.Context()); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/extend" {
		if err := s.service.Sessions().Extend(r.Context()); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/auth/session" {
		s.handleSessionStatus(w, r)
		return
	}

	// Public content reads, served from view snapshots
	if r.Method == http.MethodGet {
		switch r.URL.Path {
		case "/api/experiences":
			writeJSON(w, http.StatusOK, map[string]any{"experiences": s.service.Experiences()})
			return
		case "/api/skills":
			writeJSON(w, http.StatusOK, map[string]any{"skills": s.service.Skills()})
			return
		case "/api/projects":
			writeJSON(w, http.StatusOK, map[string]any{"projects": s.service.Projects()})
			return
		case "/api/competitions":
			writeJSON(w, http.StatusOK, map[string]any{"competitions": s.service.Competitions()})
			return
		case "/api/about":
			writeJSON(w, http.StatusOK, map[string]any{"about": s.service.About()})
			return
		case "/api/resume":
			writeJSON(w, http.StatusOK, map[string]any{"resume": s.service.ActiveResume()})
			return
		}
	}

	if r.URL.Path == "/api/theme" {
		s.handleTheme(w, r)
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "admin" {
		if !s.requireSession(w, r) {
			return
		}
		s.handleAdmin(w, r, parts[2:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.Sessions().Authenticate(r.Context(), body.Password); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	record := s.service.Sessions().Current(r.Context())
	payload := map[string]any{"ok": true}
	if record != nil {
		payload["expires"] = record.ExpiresAt.Unix()
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	manager := s.service.Sessions()
	authenticated := manager.IsAuthenticated(r.Context())
	if !authenticated {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	payload := map[string]any{
		"authenticated": true,
		"remoteValid":   manager.RemoteSessionValid(r.Context()),
		"effective":     manager.EffectiveAuth(r.Context()),
	}
	if record := manager.Current(r.Context()); record != nil {
		payload["expires"] = record.ExpiresAt.Unix()
		payload["sessionCreated"] = record.CreatedAt.Unix()
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleTheme reads or saves the visitor's theme preference. The visitor is
// identified by a cookie so preferences survive without an account.
func (s *HTTPServer) handleTheme(w http.ResponseWriter, r *http.Request) {
	visitor := s.visitorID(w, r)

	if r.Method == http.MethodGet {
		theme := s.service.Theme(r.Context(), visitor)
		writeJSON(w, http.StatusOK, map[string]any{"theme": theme})
		return
	}

	if r.Method == http.MethodPut {
		var body struct {
			Theme string `json:"theme"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if body.Theme != "light" && body.Theme != "dark" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "theme must be 'light' or 'dark'", nil)
			return
		}
		if err := s.service.SaveTheme(r.Context(), visitor, body.Theme); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"theme": body.Theme})
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) visitorID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(visitorCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *HTTPServer) handleAdmin(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	collection := parts[0]

	switch collection {
	case "experiences", "skills", "projects", "competitions":
		s.handleAdminCollection(w, r, collection, parts)
		return
	case "about":
		s.handleAdminAbout(w, r, parts)
		return
	case "resume":
		s.handleAdminResume(w, r, parts)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// guardWrite runs fn while holding the collection's write slot. A second
// submission for the same collection while one is running gets 409.
func (s *HTTPServer) guardWrite(w http.ResponseWriter, collection string, fn func()) {
	if !s.service.beginWrite(collection) {
		writeError(w, http.StatusConflict, "WRITE_IN_FLIGHT", "A write for this collection is already in progress", nil)
		return
	}
	defer s.service.endWrite(collection)
	fn()
}

func (s *HTTPServer) handleAdminCollection(w http.ResponseWriter, r *http.Request, collection string, parts []string) {
	gw := s.service.Gateway()

	if r.Method == http.MethodPost && len(parts) == 1 {
		s.guardWrite(w, collection, func() {
			payload, err := s.createRecord(r, gw, collection)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusCreated, payload)
		})
		return
	}

	if r.Method == http.MethodPut && len(parts) == 2 {
		id := parts[1]
		s.guardWrite(w, collection, func() {
			payload, err := s.updateRecord(r, gw, collection, id)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, payload)
		})
		return
	}

	if r.Method == http.MethodDelete && len(parts) == 2 {
		id := parts[1]
		s.guardWrite(w, collection, func() {
			var err error
			switch collection {
			case "experiences":
				err = gw.DeleteExperience(r.Context(), id)
			case "skills":
				err = gw.DeleteSkill(r.Context(), id)
			case "projects":
				err = gw.DeleteProject(r.Context(), id)
			case "competitions":
				err = gw.DeleteCompetition(r.Context(), id)
			}
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		})
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) createRecord(r *http.Request, gw *gateway.Gateway, collection string) (any, error) {
	switch collection {
	case "experiences":
		var item store.Experience
		if err := decodeBody(r, &item); err != nil {
			return nil, domainError(http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		}
		return gw.CreateExperience(r.Context(), item)
	case "skills":
		var item store.Skill
		if err := decodeBody(r, &item); err != nil {
			return nil, domainError(http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		}
		return gw.CreateSkill(r.Context(), item)
	case "projects":
		var item store.Project
		if err := decodeBody(r, &item); err != nil {
			return nil, domainError(http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		}
		return gw.CreateProject(r.Context(), item)
	case "competitions":
		var item store.Competition
		if err := decodeBody(r, &item); err != nil {
			return nil, domainError(http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		}
		return gw.CreateCompetition(r.Context(), item)
	}
	return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) updateRecord(r *http.Request, gw *gateway.Gateway, collection, id string) (any, error) {
	switch collection {
	case "experiences":
		var item store.Experience
		if err := decodeBody(r, &item); err != nil {
			return nil, domainError(http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		}
		return gw.UpdateExperience(r.Context(), id, item)
	case "skills":
		var item store.Skill
		if err := decodeBody(r, &item); err != nil {
			return nil, domainError(http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		}
		return gw.UpdateSkill(r.Context(), id, item)
	case "projects":
		var item store.Project
		if err := decodeBody(r, &item); err != nil {
			return nil, domainError(http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		}
		return gw.UpdateProject(r.Context(), id, item)
	case "competitions":
		var item store.Competition
		if err := decodeBody(r, &item); err != nil {
			return nil, domainError(http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		}
		return gw.UpdateCompetition(r.Context(), id, item)
	}
	return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleAdminAbout(w http.ResponseWriter, r *http.Request, parts []string) {
	if r.Method != http.MethodPut || len(parts) != 1 {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	s.guardWrite(w, "about", func() {
		payload, err := s.service.Gateway().UpdateAbout(r.Context(), body.Content)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	})
}

func (s *HTTPServer) handleAdminResume(w http.ResponseWriter, r *http.Request, parts []string) {
	gw := s.service.Gateway()

	if r.Method == http.MethodGet && len(parts) == 1 {
		writeJSON(w, http.StatusOK, map[string]any{"files": gw.ResumeFiles(r.Context())})
		return
	}

	if r.Method == http.MethodPost && len(parts) == 1 {
		s.guardWrite(w, "resume", func() {
			s.handleResumeUpload(w, r)
		})
		return
	}

	if r.Method == http.MethodDelete && len(parts) == 2 {
		id := parts[1]
		s.guardWrite(w, "resume", func() {
			if err := gw.DeleteResume(r.Context(), id); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		})
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

// handleResumeUpload accepts a multipart form with a "file" part. Size and
// type are validated by the gateway before anything leaves the process; the
// MaxBytesReader is a transport backstop with a little slack for the
// multipart framing.
func (s *HTTPServer) handleResumeUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 6<<20)
	if err := r.ParseMultipartForm(6 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid multipart body", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "file part is required", nil)
		return
	}
	defer file.Close()

	uploaded, err := s.service.Gateway().UploadResume(r.Context(), gateway.ResumeUpload{
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusCreated, uploaded)
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) bool {
	if !s.service.Sessions().IsAuthenticated(r.Context()) {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return false
	}
	return true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Access-Control-Allow-Credentials", "true")
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

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, session.ErrInvalidCredential):
		return http.StatusUnauthorized, "INVALID_CREDENTIAL", "Invalid password", nil
	case errors.Is(err, session.ErrSessionEstablishmentFailed):
		return http.StatusBadGateway, "SESSION_FAILED", "Could not establish a session with the auth provider", nil
	case errors.Is(err, session.ErrRefreshFailed):
		return http.StatusBadGateway, "REFRESH_FAILED", "Could not refresh the remote session", nil
	case errors.Is(err, gateway.ErrNotAuthenticated):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, gateway.ErrUploadRejected):
		return http.StatusBadRequest, "UPLOAD_REJECTED", err.Error(), nil
	case errors.Is(err, gateway.ErrUploadFailed):
		return http.StatusBadGateway, "UPLOAD_FAILED", "Upload failed", nil
	case errors.Is(err, gateway.ErrDeleteAccessDenied):
		return http.StatusForbidden, "ACCESS_DENIED", "Access denied", nil
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
