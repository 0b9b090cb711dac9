package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tablescope-inc/tablescope-engine/pkg/apperrors"
)

func TestSentinelResponse(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{fmt.Errorf("session abc: %w", apperrors.ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: pdf", apperrors.ErrUnsupportedFormat), http.StatusBadRequest, "unsupported_format"},
		{apperrors.ErrNoData, http.StatusBadRequest, "no_data"},
		{apperrors.ErrUploadTooLarge, http.StatusRequestEntityTooLarge, "upload_too_large"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		if !SentinelResponse(rec, tt.err) {
			t.Errorf("SentinelResponse(%v) not handled", tt.err)
			continue
		}
		if rec.Code != tt.wantStatus {
			t.Errorf("status for %v = %d, want %d", tt.err, rec.Code, tt.wantStatus)
		}
		var body errorBody
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Error != tt.wantCode {
			t.Errorf("code for %v = %q, want %q", tt.err, body.Error, tt.wantCode)
		}
	}
}

func TestSentinelResponseLeavesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	if SentinelResponse(rec, errors.New("disk on fire")) {
		t.Error("unknown error should not be handled")
	}
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Error("unhandled error must not write a response")
	}
}
