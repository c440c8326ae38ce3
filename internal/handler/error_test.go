package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mtaani/soko/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestErrorResponse_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid", domain.Invalid("op", "bad input"), http.StatusBadRequest, domain.EINVALID},
		{"unauthorized", domain.Unauthorized("op", "who are you"), http.StatusUnauthorized, domain.EUNAUTHORIZED},
		{"payment", domain.Errorf(domain.EPAYMENT, "op", "pay first"), http.StatusPaymentRequired, domain.EPAYMENT},
		{"forbidden", domain.Forbidden("op", "not yours"), http.StatusForbidden, domain.EFORBIDDEN},
		{"not found", domain.NotFound("op", "listing", "x"), http.StatusNotFound, domain.ENOTFOUND},
		{"conflict", domain.Conflict("op", "already there"), http.StatusConflict, domain.ECONFLICT},
		{"internal", domain.Internal(errors.New("boom"), "op", "oops"), http.StatusInternalServerError, domain.EINTERNAL},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, domain.EINTERNAL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/listings", nil)
			rec := httptest.NewRecorder()

			ErrorResponse(rec, req, testLogger(), tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("response is not JSON: %v", err)
			}
			if body.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestErrorResponse_InternalDetailsHidden(t *testing.T) {
	req := httptest.NewRequest("GET", "/listings", nil)
	rec := httptest.NewRecorder()

	err := domain.Internal(errors.New("pq: connection refused to db-primary:5432"), "listing.create", "failed to create listing")
	ErrorResponse(rec, req, testLogger(), err)

	body := rec.Body.String()
	if strings.Contains(body, "db-primary") {
		t.Errorf("response leaks infrastructure details: %s", body)
	}
	if strings.Contains(body, "listing.create") {
		t.Errorf("response leaks operation name: %s", body)
	}
}

func TestErrorResponse_ValidationFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/listings", nil)
	rec := httptest.NewRecorder()

	ve := domain.NewValidationError("listing.create", "title", "Title is required")
	ErrorResponse(rec, req, testLogger(), ve)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "title") {
		t.Errorf("response should name the failing field: %s", body)
	}
	if strings.Contains(body, "listing.create") {
		t.Errorf("response leaks operation name: %s", body)
	}
}
