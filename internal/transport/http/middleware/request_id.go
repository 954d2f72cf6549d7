package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	appCtx "github.com/baechuer/campus-coord/internal/pkg/context"
)

const HeaderXRequestID = "X-Request-Id"

// RequestID reuses a client id of sane length or mints a new one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(HeaderXRequestID))
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}

		w.Header().Set(HeaderXRequestID, reqID)
		ctx := appCtx.WithRequestID(r.Context(), reqID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
