package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoData            = errors.New("no tabular data found")
	ErrUploadTooLarge    = errors.New("upload exceeds size limit")
)
