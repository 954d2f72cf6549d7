package response

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/baechuer/campus-coord/internal/domain"
	"github.com/baechuer/campus-coord/internal/logger"
	appCtx "github.com/baechuer/campus-coord/internal/pkg/context"
)

// ErrorBody is the error envelope:
// {"timestamp":"...","status":409,"error":"Booking Conflict","message":"...","path":"/bookings","code":"..."}
type ErrorBody struct {
	Timestamp string            `json:"timestamp"`
	Status    int               `json:"status"`
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Path      string            `json:"path"`
	Code      string            `json:"code"`
	RequestID string            `json:"request_id,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// ValidationBody lists one reason per offending field.
type ValidationBody struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Timestamp string            `json:"timestamp"`
	Errors    map[string]string `json:"errors"`
}

var now = time.Now

// JSON writes v as the response body with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func OK(w http.ResponseWriter, r *http.Request, v any) {
	JSON(w, r, http.StatusOK, v)
}

// Fail writes the error envelope for an explicit status and code.
func Fail(w http.ResponseWriter, r *http.Request, status int, code, message string, meta map[string]string) {
	JSON(w, r, status, ErrorBody{
		Timestamp: timestamp(),
		Status:    status,
		Error:     title(status, code),
		Message:   message,
		Path:      r.URL.Path,
		Code:      code,
		RequestID: appCtx.GetRequestID(r.Context()),
		Meta:      meta,
	})
}

// Validation writes the field error envelope.
func Validation(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	if fields == nil {
		fields = map[string]string{}
	}
	JSON(w, r, http.StatusBadRequest, ValidationBody{
		Status:    "error",
		Message:   "Validation failed",
		Timestamp: timestamp(),
		Errors:    fields,
	})
}

// Err translates any error into an envelope. Non-domain errors and internal
// failures are logged in full; the client only sees a generic message.
func Err(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		err = errors.New("nil error passed to response.Err")
	}

	l := logger.FromContext(r.Context(), "http")

	var de *domain.Error
	if !errors.As(err, &de) {
		l.Error().Err(err).
			Str("path", r.URL.Path).
			Msg("unhandled error")
		Fail(w, r, http.StatusInternalServerError, "internal_error", "internal error", nil)
		return
	}

	if de.Code == "validation_failed" {
		Validation(w, r, de.Meta)
		return
	}

	status := StatusFromKind(de.Kind)
	message := de.Message
	meta := de.Meta

	switch de.Kind {
	case domain.KindInternal:
		l.Error().Err(err).
			Str("path", r.URL.Path).
			Str("code", de.Code).
			Msg("internal error")
		message = "internal error"
		meta = nil
	case domain.KindInfrastructure:
		l.Warn().Err(err).
			Str("path", r.URL.Path).
			Str("code", de.Code).
			Msg("store unavailable")
	}

	Fail(w, r, status, de.Code, message, meta)
}

func StatusFromKind(k domain.ErrKind) int {
	switch k {
	case domain.KindValidation, domain.KindInvalidState:
		return http.StatusBadRequest
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func title(status int, code string) string {
	switch code {
	case "reservation_conflict":
		return "Booking Conflict"
	case "already_registered", "email_already_exists":
		return "Duplicate Resource"
	}
	switch status {
	case http.StatusBadRequest:
		return "Bad Request"
	case http.StatusUnauthorized:
		return "Authentication Failed"
	case http.StatusForbidden:
		return "Access Denied"
	case http.StatusNotFound:
		return "Resource Not Found"
	case http.StatusMethodNotAllowed:
		return "Method Not Allowed"
	case http.StatusConflict:
		return "Conflict"
	case http.StatusTooManyRequests:
		return "Too Many Requests"
	default:
		return "Internal Server Error"
	}
}

func timestamp() string {
	return now().UTC().Format(time.RFC3339)
}
