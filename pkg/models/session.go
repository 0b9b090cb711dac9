package models

import "time"

// AnalysisSession is a persisted analysis run: uploaded files plus the JSON
// results of the last analysis over them.
type AnalysisSession struct {
	ID              string    `db:"id" json:"id"`
	SessionName     string    `db:"session_name" json:"session_name"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	FileCount       int       `db:"file_count" json:"file_count"`
	AnalysisResults []byte    `db:"analysis_results" json:"-"`
}

// UploadedFile tracks one uploaded source file within a session.
type UploadedFile struct {
	ID         string    `db:"id" json:"id"`
	SessionID  string    `db:"session_id" json:"session_id"`
	Filename   string    `db:"filename" json:"filename"`
	FileType   string    `db:"file_type" json:"file_type"`
	FileSize   int64     `db:"file_size" json:"file_size"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
}
