package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/baechuer/campus-coord/internal/domain"
	"github.com/baechuer/campus-coord/internal/logger"
	"github.com/baechuer/campus-coord/internal/metrics"
	"github.com/baechuer/campus-coord/internal/transport/http/response"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LoginRateLimit caps login attempts per client IP and email. It fails open:
// a nil limiter or an unreachable Redis lets the request through.
func LoginRateLimit(l Limiter, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "login:" + clientIP(r) + ":" + peekEmail(r)

			allowed, err := l.Allow(r.Context(), key, limit, window)
			if err != nil {
				lg := logger.FromContext(r.Context(), "ratelimit")
				lg.Warn().Err(err).Msg("login limiter unavailable, allowing")
			}
			if !allowed {
				metrics.RecordRateLimited("login")
				w.Header().Set("Retry-After", retryAfter(window))
				response.Err(w, r, domain.ErrRateLimited("login"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// peekEmail reads the email from the body and restores it for the handler.
func peekEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(b))
	if err != nil {
		return ""
	}
	var body struct {
		Email string `json:"email"`
	}
	_ = json.Unmarshal(b, &body)
	return strings.ToLower(strings.TrimSpace(body.Email))
}

// clientIP expects middleware.RealIP to have rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func retryAfter(window time.Duration) string {
	secs := int(window.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
