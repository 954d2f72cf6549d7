package handlers

import (
	"net/http"

	"github.com/baechuer/campus-coord/internal/application/identity"
	"github.com/baechuer/campus-coord/internal/domain"
	"github.com/baechuer/campus-coord/internal/metrics"
	"github.com/baechuer/campus-coord/internal/transport/http/dto"
	"github.com/baechuer/campus-coord/internal/transport/http/middleware"
	"github.com/baechuer/campus-coord/internal/transport/http/response"
	"github.com/baechuer/campus-coord/internal/transport/http/validate"
)

type AuthHandler struct {
	svc *identity.Service
}

func NewAuthHandler(svc *identity.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginReq
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Err(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if domain.KindOf(err) == domain.KindAuth {
			metrics.RecordLogin("invalid")
		} else {
			metrics.RecordLogin("error")
		}
		response.Err(w, r, err)
		return
	}
	metrics.RecordLogin("success")
	response.OK(w, r, dto.ToAuthResp(res.User, res.Token))
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterReq
	if err := validate.DecodeJSON(r, &req); err != nil {
		response.Err(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Err(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), identity.RegisterCmd{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, dto.ToAuthResp(res.User, res.Token))
}

// Refresh takes the token from the Authorization header, or from the body
// when no header is sent.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, present, err := middleware.BearerToken(r)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	if !present {
		var req dto.RefreshReq
		if err := validate.DecodeOptionalJSON(r, &req); err != nil {
			response.Err(w, r, err)
			return
		}
		token = req.Token
	}

	fresh, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, dto.TokenResp{Token: fresh})
}
