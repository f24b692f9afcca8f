package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"brandhub/api/internal/auth"
	"brandhub/api/internal/branding"
	"brandhub/api/internal/search"
	"brandhub/api/internal/store"
	"brandhub/api/internal/validate"
)

// maxUploadBytes caps multipart parsing slightly above the logo size limit so
// oversized files are rejected by the validator with a useful message instead
// of a blunt connection error.
const maxUploadBytes = validate.MaxLogoSize + 1<<20

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
		s.handleReady(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/token" {
		s.handleIssueToken(w, r)
		return
	}

	segments := splitPath(r.URL.Path)
	// All remaining routes live under /api/tenants/{tenant}/...
	if len(segments) < 4 || segments[0] != "api" || segments[1] != "tenants" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	tenantID := segments[2]
	rest := segments[3:]

	switch {
	case len(rest) == 1 && rest[0] == "branding":
		switch r.Method {
		case http.MethodGet:
			s.handleGetBranding(w, r, tenantID)
		case http.MethodPut:
			s.handleSaveBranding(w, r, tenantID)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
	case len(rest) == 2 && rest[0] == "branding" && rest[1] == "reset" && r.Method == http.MethodPost:
		s.handleResetBranding(w, r, tenantID)
	case len(rest) == 1 && rest[0] == "branding.css" && r.Method == http.MethodGet:
		s.handleStylesheet(w, r, tenantID)
	case len(rest) == 2 && rest[0] == "branding" && rest[1] == "export.pdf" && r.Method == http.MethodGet:
		s.handleExportPDF(w, r, tenantID)
	case len(rest) == 2 && rest[0] == "logos":
		switch r.Method {
		case http.MethodPost:
			s.handleUploadLogo(w, r, tenantID, rest[1])
		case http.MethodDelete:
			s.handleRemoveLogo(w, r, tenantID, rest[1])
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
	case len(rest) == 1 && rest[0] == "palettes":
		switch r.Method {
		case http.MethodGet:
			s.handleListPalettes(w, r, tenantID)
		case http.MethodPost:
			s.handleCreatePalette(w, r, tenantID)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
	case len(rest) == 2 && rest[0] == "palettes" && rest[1] == "validate-contrast" && r.Method == http.MethodPost:
		s.handleValidateContrast(w, r)
	case len(rest) == 1 && rest[0] == "font-schemes":
		switch r.Method {
		case http.MethodGet:
			s.handleListFontSchemes(w, r, tenantID)
		case http.MethodPost:
			s.handleCreateFontScheme(w, r, tenantID)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
	case len(rest) == 1 && rest[0] == "presets":
		switch r.Method {
		case http.MethodGet:
			s.handleListPresets(w, r, tenantID)
		case http.MethodPost:
			s.handleCreatePreset(w, r, tenantID)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
	case len(rest) == 2 && rest[0] == "themes" && rest[1] == "search" && r.Method == http.MethodGet:
		s.handleThemeSearch(w, r, tenantID)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
		"sync":     map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{"status": "error", "error": err.Error()}
	}
	if err := s.service.PingRedis(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["sync"] = map[string]any{"status": "error", "error": err.Error()}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ServiceToken string `json:"serviceToken"`
		Subject      string `json:"subject"`
		Name         string `json:"name"`
		TenantID     string `json:"tenantId"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	token, err := s.service.IssueEditorToken(body.ServiceToken, body.Subject, body.Name, body.TenantID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

// requireEditor authenticates the request and checks the token is scoped to
// the tenant being modified.
func (s *HTTPServer) requireEditor(r *http.Request, tenantID string) (auth.Claims, *DomainError) {
	token := bearerToken(r)
	if token == "" {
		return auth.Claims{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	}
	claims, err := s.service.EditorFromToken(token)
	if err != nil {
		return auth.Claims{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	}
	if claims.TenantID != tenantID {
		return auth.Claims{}, domainError(http.StatusForbidden, "FORBIDDEN", "Token is not valid for this tenant", nil)
	}
	return claims, nil
}

func (s *HTTPServer) handleGetBranding(w http.ResponseWriter, r *http.Request, tenantID string) {
	cfg, err := s.service.Branding().Load(r.Context(), tenantID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *HTTPServer) handleSaveBranding(w http.ResponseWriter, r *http.Request, tenantID string) {
	claims, derr := s.requireEditor(r, tenantID)
	if derr != nil {
		writeError(w, derr.Status, derr.Code, derr.Message, derr.Details)
		return
	}

	var body branding.SaveRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	cfg, err := s.service.Branding().Save(r.Context(), tenantID, body, claims.Sub)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *HTTPServer) handleResetBranding(w http.ResponseWriter, r *http.Request, tenantID string) {
	claims, derr := s.requireEditor(r, tenantID)
	if derr != nil {
		writeError(w, derr.Status, derr.Code, derr.Message, derr.Details)
		return
	}

	var body struct {
		PreserveLogos bool `json:"preserveLogos"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	cfg, err := s.service.Branding().Reset(r.Context(), tenantID, body.PreserveLogos, claims.Sub)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *HTTPServer) handleStylesheet(w http.ResponseWriter, r *http.Request, tenantID string) {
	css, err := s.service.Branding().Stylesheet(r.Context(), tenantID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=120")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, css)
}

func (s *HTTPServer) handleExportPDF(w http.ResponseWriter, r *http.Request, tenantID string) {
	result, err := s.service.exporter.StyleGuidePDF(r.Context(), tenantID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) handleUploadLogo(w http.ResponseWriter, r *http.Request, tenantID, slot string) {
	claims, derr := s.requireEditor(r, tenantID)
	if derr != nil {
		writeError(w, derr.Status, derr.Code, derr.Message, derr.Details)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid multipart body", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "missing file field", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "could not read file", nil)
		return
	}

	logo, warnings, err := s.service.Branding().UploadLogo(r.Context(), tenantID, slot, validate.LogoFile{
		Name:     header.Filename,
		Size:     header.Size,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}, claims.Sub)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}

	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"logo": logo, "warnings": warnings})
}

func (s *HTTPServer) handleRemoveLogo(w http.ResponseWriter, r *http.Request, tenantID, slot string) {
	if _, derr := s.requireEditor(r, tenantID); derr != nil {
		writeError(w, derr.Status, derr.Code, derr.Message, derr.Details)
		return
	}

	if err := s.service.Branding().RemoveLogo(r.Context(), tenantID, slot); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleListPalettes(w http.ResponseWriter, r *http.Request, tenantID string) {
	items, err := s.service.Branding().ListPalettes(r.Context(), tenantID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	if items == nil {
		items = []store.ColorPalette{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"palettes": items})
}

func (s *HTTPServer) handleCreatePalette(w http.ResponseWriter, r *http.Request, tenantID string) {
	claims, derr := s.requireEditor(r, tenantID)
	if derr != nil {
		writeError(w, derr.Status, derr.Code, derr.Message, derr.Details)
		return
	}

	var body store.ColorPalette
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	body.TenantID = tenantID
	body.CreatedBy = &claims.Sub

	palette, err := s.service.Branding().CreatePalette(r.Context(), body)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}

	if s.service.searcher != nil {
		s.service.searcher.IndexPalette(search.PaletteRecord{
			ID:       palette.ID,
			TenantID: palette.TenantID,
			Name:     palette.Name,
			Primary:  palette.PrimaryColor,
		})
	}
	writeJSON(w, http.StatusCreated, palette)
}

func (s *HTTPServer) handleValidateContrast(w http.ResponseWriter, r *http.Request) {
	var body validate.PaletteColors
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Branding().ContrastReport(body))
}

func (s *HTTPServer) handleListFontSchemes(w http.ResponseWriter, r *http.Request, tenantID string) {
	items, err := s.service.Branding().ListFontSchemes(r.Context(), tenantID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	if items == nil {
		items = []store.FontScheme{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"fontSchemes": items})
}

func (s *HTTPServer) handleCreateFontScheme(w http.ResponseWriter, r *http.Request, tenantID string) {
	if _, derr := s.requireEditor(r, tenantID); derr != nil {
		writeError(w, derr.Status, derr.Code, derr.Message, derr.Details)
		return
	}

	var body store.FontScheme
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	body.TenantID = tenantID

	scheme, err := s.service.Branding().CreateFontScheme(r.Context(), body)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusCreated, scheme)
}

func (s *HTTPServer) handleListPresets(w http.ResponseWriter, r *http.Request, tenantID string) {
	items, err := s.service.Branding().ListPresets(r.Context(), tenantID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	if items == nil {
		items = []store.ThemePreset{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": items})
}

func (s *HTTPServer) handleCreatePreset(w http.ResponseWriter, r *http.Request, tenantID string) {
	claims, derr := s.requireEditor(r, tenantID)
	if derr != nil {
		writeError(w, derr.Status, derr.Code, derr.Message, derr.Details)
		return
	}

	var body store.ThemePreset
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	body.TenantID = tenantID
	body.CreatedBy = &claims.Sub

	id, err := s.service.Branding().CreatePreset(r.Context(), body)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *HTTPServer) handleThemeSearch(w http.ResponseWriter, r *http.Request, tenantID string) {
	if s.service.searcher == nil {
		writeError(w, http.StatusNotImplemented, "SEARCH_DISABLED", "Search is not configured", nil)
		return
	}
	q := search.Query{
		Text:       strings.TrimSpace(r.URL.Query().Get("q")),
		TenantID:   tenantID,
		FilterType: search.ResultType(r.URL.Query().Get("type")),
	}
	writeJSON(w, http.StatusOK, s.service.searcher.Search(q))
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

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
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
	var validationErr *branding.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_FAILED", "Validation failed", validationErr.Problems
	}
	switch {
	case errors.Is(err, branding.ErrTenantNotFound):
		return http.StatusNotFound, "TENANT_NOT_FOUND", "Tenant not found", nil
	case errors.Is(err, branding.ErrPaletteNotFound):
		return http.StatusNotFound, "PALETTE_NOT_FOUND", "Color palette not found", nil
	case errors.Is(err, branding.ErrFontSchemeNotFound):
		return http.StatusNotFound, "FONT_SCHEME_NOT_FOUND", "Font scheme not found", nil
	case errors.Is(err, branding.ErrLogoNotFound):
		return http.StatusNotFound, "LOGO_NOT_FOUND", "Logo not found", nil
	case errors.Is(err, branding.ErrInvalidSlot):
		return http.StatusBadRequest, "INVALID_SLOT", "Invalid logo slot", nil
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
