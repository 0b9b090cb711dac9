package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/tablescope-inc/tablescope-engine/pkg/apperrors"
	"github.com/tablescope-inc/tablescope-engine/pkg/config"
	"github.com/tablescope-inc/tablescope-engine/pkg/database"
	"github.com/tablescope-inc/tablescope-engine/pkg/export"
	"github.com/tablescope-inc/tablescope-engine/pkg/models"
	"github.com/tablescope-inc/tablescope-engine/pkg/parsers"
	"github.com/tablescope-inc/tablescope-engine/pkg/services"
)

const sessionCookieName = "tablescope_session"

// AnalysisHandler serves the upload/analyze/session API. Parsed tables are
// held in memory per session until analysis runs; only session metadata and
// analysis results are persisted.
type AnalysisHandler struct {
	cfg          *config.Config
	logger       *zap.Logger
	store        *database.Store
	factory      *parsers.Factory
	orchestrator *services.AnalysisOrchestrator
	exporter     *export.Exporter
	cookies      sessions.Store

	mu     sync.Mutex
	tables map[string][]*models.Table
}

// NewAnalysisHandler creates an AnalysisHandler. If no session key is
// configured a random one is generated, which invalidates cookies on restart.
func NewAnalysisHandler(
	cfg *config.Config,
	logger *zap.Logger,
	store *database.Store,
	factory *parsers.Factory,
	orchestrator *services.AnalysisOrchestrator,
	exporter *export.Exporter,
) *AnalysisHandler {
	key := []byte(cfg.SessionKey)
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
	}
	cookieStore := sessions.NewCookieStore(key)
	cookieStore.Options.HttpOnly = true
	cookieStore.Options.SameSite = http.SameSiteLaxMode

	return &AnalysisHandler{
		cfg:          cfg,
		logger:       logger.Named("handlers"),
		store:        store,
		factory:      factory,
		orchestrator: orchestrator,
		exporter:     exporter,
		cookies:      cookieStore,
		tables:       make(map[string][]*models.Table),
	}
}

// RegisterRoutes registers the analysis API routes on the given mux.
func (h *AnalysisHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/upload", h.Upload)
	mux.HandleFunc("POST /api/analyze", h.Analyze)
	mux.HandleFunc("GET /api/sessions", h.ListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", h.GetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.DeleteSession)
	mux.HandleFunc("GET /api/sessions/{id}/export", h.ExportSession)
}

// UploadedTable summarizes one parsed upload in the Upload response.
type UploadedTable struct {
	Filename string `json:"filename"`
	Table    string `json:"table"`
	Rows     int    `json:"rows"`
	Columns  int    `json:"columns"`
}

// UploadResponse is the body of a successful POST /api/upload.
type UploadResponse struct {
	SessionID string          `json:"session_id"`
	Files     []UploadedTable `json:"files"`
}

// Upload handles POST /api/upload. It accepts one or more files in the
// multipart field "files", parses each into a table, and attaches them to the
// caller's current session (creating one if needed).
func (h *AnalysisHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			_ = ErrorResponse(w, http.StatusRequestEntityTooLarge, "upload_too_large",
				apperrors.ErrUploadTooLarge.Error())
			return
		}
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_multipart", err.Error())
		return
	}

	uploads := r.MultipartForm.File["files"]
	if len(uploads) == 0 {
		_ = ErrorResponse(w, http.StatusBadRequest, "no_files", "no files in upload")
		return
	}

	ctx := r.Context()
	session, err := h.currentSession(ctx, r)
	if err != nil {
		sessionName := r.FormValue("session_name")
		if sessionName == "" {
			sessionName = "Session " + time.Now().Format("2006-01-02 15:04")
		}
		session = &models.AnalysisSession{
			ID:          uuid.NewString(),
			SessionName: sessionName,
		}
		if err := h.store.CreateSession(ctx, session); err != nil {
			h.logger.Error("Failed to create session", zap.Error(err))
			_ = ErrorResponse(w, http.StatusInternalServerError, "session_create_failed", "could not create session")
			return
		}
	}

	response := UploadResponse{SessionID: session.ID}
	for _, header := range uploads {
		format := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
		parser, err := h.factory.Get(format)
		if err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "unsupported_format",
				fmt.Sprintf("%s: %v (supported: %s)", header.Filename, err, strings.Join(h.factory.Supported(), ", ")))
			return
		}

		f, err := header.Open()
		if err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "unreadable_file", header.Filename)
			return
		}
		tableName := strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
		table, err := parser.Parse(tableName, f)
		f.Close()
		if err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "parse_failed",
				fmt.Sprintf("%s: %v", header.Filename, err))
			return
		}

		file := &models.UploadedFile{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			Filename:  header.Filename,
			FileType:  format,
			FileSize:  header.Size,
		}
		if err := h.store.AddFile(ctx, file); err != nil {
			h.logger.Error("Failed to record uploaded file", zap.Error(err))
			_ = ErrorResponse(w, http.StatusInternalServerError, "file_record_failed", header.Filename)
			return
		}

		h.mu.Lock()
		h.tables[session.ID] = append(h.tables[session.ID], table)
		h.mu.Unlock()

		response.Files = append(response.Files, UploadedTable{
			Filename: header.Filename,
			Table:    table.Name,
			Rows:     table.RowCount(),
			Columns:  len(table.Columns),
		})
	}

	if err := h.setSessionCookie(w, r, session.ID); err != nil {
		h.logger.Error("Failed to save session cookie", zap.Error(err))
	}
	h.logger.Info("Files uploaded",
		zap.String("session_id", session.ID),
		zap.Int("files", len(response.Files)))
	_ = WriteJSON(w, http.StatusOK, response)
}

// Analyze handles POST /api/analyze. It runs the full pipeline over the
// current session's uploaded tables and persists the result.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := h.currentSession(ctx, r)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "no_session", "upload files before analyzing")
		return
	}

	h.mu.Lock()
	tables := h.tables[session.ID]
	h.mu.Unlock()
	if len(tables) == 0 {
		_ = ErrorResponse(w, http.StatusBadRequest, "no_files", "no uploaded files to analyze")
		return
	}

	result := h.orchestrator.Analyze(tables)
	data, err := json.Marshal(result)
	if err != nil {
		h.logger.Error("Failed to marshal analysis result", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "analysis_failed", "could not serialize results")
		return
	}
	if err := h.store.SaveResults(ctx, session.ID, data, len(tables)); err != nil {
		h.logger.Error("Failed to persist analysis result", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "analysis_failed", "could not persist results")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// SessionResponse is one session in list/detail responses. Results are
// included only in the detail view and only after analysis has run.
type SessionResponse struct {
	ID          string          `json:"id"`
	SessionName string          `json:"session_name"`
	CreatedAt   string          `json:"created_at"`
	FileCount   int             `json:"file_count"`
	HasResults  bool            `json:"has_results"`
	Results     json.RawMessage `json:"results,omitempty"`
}

func sessionResponse(s *models.AnalysisSession, includeResults bool) SessionResponse {
	resp := SessionResponse{
		ID:          s.ID,
		SessionName: s.SessionName,
		CreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
		FileCount:   s.FileCount,
		HasResults:  len(s.AnalysisResults) > 0,
	}
	if includeResults && resp.HasResults {
		resp.Results = json.RawMessage(s.AnalysisResults)
	}
	return resp
}

// ListSessions handles GET /api/sessions.
func (h *AnalysisHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions(r.Context())
	if err != nil {
		h.logger.Error("Failed to list sessions", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "list_failed", "could not list sessions")
		return
	}
	responses := make([]SessionResponse, 0, len(sessions))
	for i := range sessions {
		responses = append(responses, sessionResponse(&sessions[i], false))
	}
	_ = WriteJSON(w, http.StatusOK, map[string]interface{}{"sessions": responses})
}

// GetSession handles GET /api/sessions/{id}.
func (h *AnalysisHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondStoreError(w, err, "could not fetch session")
		return
	}
	_ = WriteJSON(w, http.StatusOK, sessionResponse(session, true))
}

// DeleteSession handles DELETE /api/sessions/{id}.
func (h *AnalysisHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.DeleteSession(r.Context(), id); err != nil {
		h.respondStoreError(w, err, "could not delete session")
		return
	}
	h.mu.Lock()
	delete(h.tables, id)
	h.mu.Unlock()
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// ExportSession handles GET /api/sessions/{id}/export?format=json|csv|txt.
func (h *AnalysisHandler) ExportSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondStoreError(w, err, "could not fetch session")
		return
	}
	if len(session.AnalysisResults) == 0 {
		_ = ErrorResponse(w, http.StatusBadRequest, "no_results", "session has no analysis results")
		return
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(session.AnalysisResults, &result); err != nil {
		h.logger.Error("Failed to decode stored results", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "export_failed", "stored results are unreadable")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	data, contentType, err := h.exporter.Export(&result, format, session.SessionName)
	if err != nil {
		if SentinelResponse(w, err) {
			return
		}
		h.logger.Error("Export failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "export_failed", "could not render export")
		return
	}

	filename := fmt.Sprintf("analysis_%s.%s", session.ID, strings.ToLower(format))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(data)
}

func (h *AnalysisHandler) respondStoreError(w http.ResponseWriter, err error, message string) {
	if SentinelResponse(w, err) {
		return
	}
	h.logger.Error("Session store error", zap.Error(err))
	_ = ErrorResponse(w, http.StatusInternalServerError, "store_error", message)
}

// currentSession resolves the caller's session cookie to a stored session.
func (h *AnalysisHandler) currentSession(ctx context.Context, r *http.Request) (*models.AnalysisSession, error) {
	cookie, err := h.cookies.Get(r, sessionCookieName)
	if err != nil {
		return nil, err
	}
	id, _ := cookie.Values["session_id"].(string)
	if id == "" {
		return nil, apperrors.ErrNotFound
	}
	return h.store.GetSession(ctx, id)
}

func (h *AnalysisHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, id string) error {
	cookie, _ := h.cookies.Get(r, sessionCookieName)
	cookie.Values["session_id"] = id
	return h.cookies.Save(r, w, cookie)
}
