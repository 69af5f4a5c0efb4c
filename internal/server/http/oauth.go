package httpserver

import (
	"fmt"
	"net/http"

	"github.com/ArDnath/echo/internal/convert"
	"github.com/ArDnath/echo/internal/errs"
)

const grantTypeRefresh = "refresh_token"

// Token exchanges a refresh token for a new token pair.
// POST /oauth/token
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req convert.TokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.GrantType != grantTypeRefresh {
		h.writeError(w, r, fmt.Errorf("unsupported grant_type %q: %w", req.GrantType, errs.ErrInvalidArgument))
		return
	}
	if req.RefreshToken == "" {
		h.writeError(w, r, fmt.Errorf("refresh_token is required: %w", errs.ErrInvalidArgument))
		return
	}

	tokens, err := h.tokens.RefreshWithIP(r.Context(), req.RefreshToken, clientIP(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, convert.ToToken(tokens, h.now()))
}
