package handlers

import (
	"net/http"
	"time"

	"github.com/baharkarakas/p2pgate/internal/api/httpx"
	"github.com/baharkarakas/p2pgate/internal/auth"
)

// AuthHandler issues operator and admin tokens in dev. Real sign-in lives
// with the identity collaborator.
type AuthHandler struct {
	TM *auth.TokenManager
}

type devTokenReq struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type tokenResp struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (h *AuthHandler) DevToken(w http.ResponseWriter, r *http.Request) {
	var req devTokenReq
	if err := httpx.DecodeJSON(r, &req); err != nil || req.UserID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "userId is required", nil)
		return
	}
	if req.Role != auth.RoleOperator && req.Role != auth.RoleAdmin {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "role must be operator or admin", nil)
		return
	}
	tok, exp, err := h.TM.Issue(req.UserID, req.Role)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "token generation failed", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResp{AccessToken: tok, ExpiresAt: exp})
}
