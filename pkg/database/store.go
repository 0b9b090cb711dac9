// Package database persists analysis sessions and uploaded-file metadata in
// SQLite.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/tablescope-inc/tablescope-engine/pkg/apperrors"
	"github.com/tablescope-inc/tablescope-engine/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_sessions (
	id               TEXT PRIMARY KEY,
	session_name     TEXT NOT NULL,
	created_at       TIMESTAMP NOT NULL,
	file_count       INTEGER NOT NULL DEFAULT 0,
	analysis_results BLOB
);

CREATE TABLE IF NOT EXISTS uploaded_files (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES analysis_sessions(id) ON DELETE CASCADE,
	filename    TEXT NOT NULL,
	file_type   TEXT NOT NULL,
	file_size   INTEGER NOT NULL DEFAULT 0,
	uploaded_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_uploaded_files_session ON uploaded_files(session_id);
`

// Store wraps the SQLite session database.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Open connects to the SQLite database at path (":memory:" for tests) and
// ensures the schema exists.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; serialize access through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info("Session store ready", zap.String("path", path))
	return &Store{db: db, logger: logger.Named("database")}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, session *models.AnalysisSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO analysis_sessions (id, session_name, created_at, file_count, analysis_results)
		VALUES (:id, :session_name, :created_at, :file_count, :analysis_results)`, session)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("Session created",
		zap.String("session_id", session.ID),
		zap.String("session_name", session.SessionName))
	return nil
}

// SaveResults stores serialized analysis results on a session.
func (s *Store) SaveResults(ctx context.Context, sessionID string, results []byte, fileCount int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE analysis_sessions SET analysis_results = ?, file_count = ? WHERE id = ?`,
		results, fileCount, sessionID)
	if err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", sessionID, apperrors.ErrNotFound)
	}
	return nil
}

// GetSession fetches one session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*models.AnalysisSession, error) {
	var session models.AnalysisSession
	err := s.db.GetContext(ctx, &session,
		`SELECT id, session_name, created_at, file_count, analysis_results
		 FROM analysis_sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &session, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]models.AnalysisSession, error) {
	sessions := []models.AnalysisSession{}
	err := s.db.SelectContext(ctx, &sessions,
		`SELECT id, session_name, created_at, file_count, analysis_results
		 FROM analysis_sessions ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes a session and its file records.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM uploaded_files WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session files: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM analysis_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, apperrors.ErrNotFound)
	}
	s.logger.Info("Session deleted", zap.String("session_id", id))
	return nil
}

// AddFile records an uploaded file against a session and bumps the session's
// file count.
func (s *Store) AddFile(ctx context.Context, file *models.UploadedFile) error {
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now().UTC()
	}
	if _, err := s.db.NamedExecContext(ctx, `
		INSERT INTO uploaded_files (id, session_id, filename, file_type, file_size, uploaded_at)
		VALUES (:id, :session_id, :filename, :file_type, :file_size, :uploaded_at)`, file); err != nil {
		return fmt.Errorf("add file: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE analysis_sessions SET file_count = file_count + 1 WHERE id = ?`,
		file.SessionID); err != nil {
		return fmt.Errorf("update file count: %w", err)
	}
	return nil
}

// ListFiles returns the files of a session in upload order.
func (s *Store) ListFiles(ctx context.Context, sessionID string) ([]models.UploadedFile, error) {
	files := []models.UploadedFile{}
	err := s.db.SelectContext(ctx, &files,
		`SELECT id, session_id, filename, file_type, file_size, uploaded_at
		 FROM uploaded_files WHERE session_id = ? ORDER BY uploaded_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}
