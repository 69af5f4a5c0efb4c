package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"github.com/ArDnath/echo/internal/convert"
	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
)

// ListUsers GET /admin/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	pg, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.admin.ListUsers(r.Context(), principal(r), pg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToPage(page, convert.ToUser))
}

// ListUserApps GET /admin/users/{userID}/apps
func (h *Handler) ListUserApps(w http.ResponseWriter, r *http.Request) {
	userID, err := urlID(r, "userID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apps, err := h.admin.ListAppsOwnedBy(r.Context(), principal(r), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToApps(apps))
}

// ExportUsers streams users created on or after created_after (YYYY-MM-DD) as CSV.
// GET /admin/users/export
func (h *Handler) ExportUsers(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("created_after")
	after, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("created_after: expected YYYY-MM-DD: %w", errs.ErrInvalidArgument))
		return
	}
	out, err := h.admin.ExportUsersCSV(r.Context(), principal(r), after)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	w.Header().Set("X-User-Count", strconv.Itoa(out.UserCount))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Content)
}

// MintCredits POST /admin/credits/mint
func (h *Handler) MintCredits(w http.ResponseWriter, r *http.Request) {
	var req convert.MintRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	userID, err := convert.ParseID("user_id", req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	amount, err := convert.ParseDecimal("amount", req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.grants.MintCredits(r.Context(), principal(r), userID, amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToMint(*m))
}

// RevokeSession ends a refresh token lineage with no grace.
// DELETE /admin/sessions/{sessionID}
func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	sid, err := urlID(r, "sessionID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.tokens.RevokeSession(r.Context(), sid); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateGrant POST /admin/grants
func (h *Handler) CreateGrant(w http.ResponseWriter, r *http.Request) {
	var req convert.GrantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := convert.FromGrantRequest(req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	g, err := h.grants.CreateGrant(r.Context(), principal(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToGrant(*g))
}

// ListGrants GET /admin/grants
func (h *Handler) ListGrants(w http.ResponseWriter, r *http.Request) {
	pg, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.grants.ListGrants(r.Context(), principal(r), pg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToPage(page, convert.ToGrant))
}

// GetGrant GET /admin/grants/{code}
func (h *Handler) GetGrant(w http.ResponseWriter, r *http.Request) {
	g, err := h.grants.GetGrant(r.Context(), principal(r), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToGrant(*g))
}

// GrantUsages GET /admin/grants/{code}/usages
func (h *Handler) GrantUsages(w http.ResponseWriter, r *http.Request) {
	pg, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.grants.ListGrantUsages(r.Context(), principal(r), chi.URLParam(r, "ref"), pg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToGrantUsages(u))
}

// UpdateGrant PATCH /admin/grants/{id}
func (h *Handler) UpdateGrant(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "ref")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req convert.GrantPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	patch, err := convert.FromGrantPatchRequest(req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	g, err := h.grants.UpdateGrant(r.Context(), principal(r), id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToGrant(*g))
}

// PlatformEarnings GET /admin/earnings[?paginated=true]
func (h *Handler) PlatformEarnings(w http.ResponseWriter, r *http.Request) {
	h.platform(w, r, h.ledger.AllUsersEarnings, h.ledger.AllUsersEarningsPaginated)
}

// PlatformSpending GET /admin/spending[?paginated=true]
func (h *Handler) PlatformSpending(w http.ResponseWriter, r *http.Request) {
	h.platform(w, r, h.ledger.AllUsersSpending, h.ledger.AllUsersSpendingPaginated)
}

func (h *Handler) platform(
	w http.ResponseWriter, r *http.Request,
	total func(context.Context, model.Window) (model.Amount, error),
	ranked func(context.Context, model.Window, model.Pagination) (model.Page[model.UserAmount], error),
) {
	win, err := window(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	paginated, _ := strconv.ParseBool(r.URL.Query().Get("paginated"))
	if !paginated {
		a, err := total(r.Context(), win)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, convert.ToAmount(a))
		return
	}
	pg, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := ranked(r.Context(), win, pg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToPage(page, convert.ToUserAmount))
}

// AppEarningsByUser GET /admin/apps/{appID}/earnings/users
func (h *Handler) AppEarningsByUser(w http.ResponseWriter, r *http.Request) {
	h.appRanked(w, r, h.ledger.AppEarningsAcrossAllUsers)
}

// AppSpendingByUser GET /admin/apps/{appID}/spending/users
func (h *Handler) AppSpendingByUser(w http.ResponseWriter, r *http.Request) {
	h.appRanked(w, r, h.ledger.AppSpendingAcrossAllUsers)
}

func (h *Handler) appRanked(
	w http.ResponseWriter, r *http.Request,
	ranked func(context.Context, uuid.UUID, model.Window, model.Pagination) (model.Page[model.UserAmount], error),
) {
	appID, win, ok := h.appWindow(w, r)
	if !ok {
		return
	}
	pg, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := ranked(r.Context(), appID, win, pg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToPage(page, convert.ToUserAmount))
}
