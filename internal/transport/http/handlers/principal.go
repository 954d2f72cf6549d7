package handlers

import (
	"net/http"

	"github.com/baechuer/campus-coord/internal/domain"
	appCtx "github.com/baechuer/campus-coord/internal/pkg/context"
	"github.com/baechuer/campus-coord/internal/transport/http/response"
)

// caller returns the principal attached by the gate. Routes are gated before
// they reach a handler, so a miss only happens when a handler is mounted
// outside the gate.
func caller(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := appCtx.PrincipalFrom(r.Context())
	if !ok {
		response.Err(w, r, domain.ErrTokenMissing())
		return domain.Principal{}, false
	}
	return p, true
}
