package middleware

import (
	"net/http"
	"strings"

	"github.com/baechuer/campus-coord/internal/application/access"
	"github.com/baechuer/campus-coord/internal/domain"
	appCtx "github.com/baechuer/campus-coord/internal/pkg/context"
	"github.com/baechuer/campus-coord/internal/transport/http/response"
)

type TokenVerifier interface {
	Verify(token string) (domain.Principal, error)
}

// Gate authenticates the bearer token and enforces the route policy before
// any handler runs.
type Gate struct {
	policy *access.Policy
	tokens TokenVerifier
}

func NewGate(policy *access.Policy, tokens TokenVerifier) *Gate {
	return &Gate{policy: policy, tokens: tokens}
}

func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, authed, authErr := g.authenticate(r)

		req := g.policy.Match(r.Method, r.URL.Path)
		if err := req.Check(p, authed, authErr); err != nil {
			response.Err(w, r, err)
			return
		}

		if authed {
			r = r.WithContext(appCtx.WithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate never fails the request itself: a bad token only matters
// when the route needs a caller.
func (g *Gate) authenticate(r *http.Request) (domain.Principal, bool, error) {
	raw, present, err := BearerToken(r)
	if !present {
		return domain.Principal{}, false, nil
	}
	if err != nil {
		return domain.Principal{}, false, err
	}
	p, err := g.tokens.Verify(raw)
	if err != nil {
		return domain.Principal{}, false, err
	}
	return p, true, nil
}

// BearerToken reports whether an Authorization header was sent and, if so,
// whether it carried a usable bearer token.
func BearerToken(r *http.Request) (string, bool, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false, nil
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", true, domain.ErrTokenMalformed()
	}
	return strings.TrimSpace(token), true, nil
}
