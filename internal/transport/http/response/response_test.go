package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/campus-coord/internal/domain"
	"github.com/baechuer/campus-coord/internal/logger"
	appCtx "github.com/baechuer/campus-coord/internal/pkg/context"
)

func TestErr(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantTitle  string
	}{
		{"conflict", domain.ErrReservationConflict(), http.StatusConflict, "reservation_conflict", "Booking Conflict"},
		{"forbidden", domain.ErrInsufficientRole("admin"), http.StatusForbidden, "insufficient_role", "Access Denied"},
		{"expired", domain.ErrTokenExpired(), http.StatusUnauthorized, "token_expired", "Authentication Failed"},
		{"not_found", domain.ErrEventNotFound(), http.StatusNotFound, "event_not_found", "Resource Not Found"},
		{"invalid_state", domain.ErrEventNotApproved(), http.StatusBadRequest, "event_not_approved", "Bad Request"},
		{"interval", domain.ErrInvalidInterval(), http.StatusBadRequest, "invalid_interval", "Bad Request"},
		{"rate_limited", domain.ErrRateLimited("login"), http.StatusTooManyRequests, "rate_limited", "Too Many Requests"},
		{"store", domain.ErrStoreUnavailable(errors.New("lock timeout")), http.StatusInternalServerError, "store_unavailable", "Internal Server Error"},
		{"generic", errors.New("db crash"), http.StatusInternalServerError, "internal_error", "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
			req = req.WithContext(appCtx.WithRequestID(req.Context(), "rid-1"))

			Err(rr, req, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			var body ErrorBody
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantTitle, body.Error)
			assert.Equal(t, "/bookings", body.Path)
			assert.Equal(t, "rid-1", body.RequestID)
			assert.NotEmpty(t, body.Timestamp)
		})
	}
}

func TestErr_HidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil)

	Err(rr, req, domain.ErrInternal(errors.New("pq: password authentication failed")))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password authentication")
	assert.Contains(t, rr.Body.String(), `"message":"internal error"`)
}

func TestErr_LogsUnhandledWithRequestID(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_FORMAT", "json")
	var buf bytes.Buffer
	logger.InitWithWriter(&buf)
	t.Cleanup(func() { logger.InitWithWriter(io.Discard) })

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
	req = req.WithContext(appCtx.WithRequestID(req.Context(), "rid-9"))

	Err(rr, req, errors.New("db crash"))
	Err(rr, req, domain.ErrStoreUnavailable(errors.New("lock timeout")))

	out := buf.String()
	assert.Contains(t, out, `"message":"unhandled error"`)
	assert.Contains(t, out, `"message":"store unavailable"`)
	assert.Contains(t, out, `"request_id":"rid-9"`)
	assert.Contains(t, out, `"component":"http"`)
	assert.Contains(t, out, "db crash")
}

func TestErr_ValidationEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/events", nil)

	Err(rr, req, domain.ErrValidationFailed(map[string]string{"title": "Title is required"}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body ValidationBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "Validation failed", body.Message)
	assert.Equal(t, "Title is required", body.Errors["title"])
}

func TestOK(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	OK(rr, req, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
