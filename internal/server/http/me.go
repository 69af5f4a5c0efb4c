package httpserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ArDnath/echo/internal/convert"
	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
)

// principal is set by RequireBearer for every route that calls it.
func principal(r *http.Request) model.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}

// MyBalance GET /v1/me/balance
func (h *Handler) MyBalance(w http.ResponseWriter, r *http.Request) {
	b, err := h.ledger.UserBalance(r.Context(), principal(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToBalance(b))
}

// MyEarnings GET /v1/me/earnings
func (h *Handler) MyEarnings(w http.ResponseWriter, r *http.Request) {
	win, err := window(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	agg, err := h.ledger.EarningsForUser(r.Context(), principal(r).UserID, win)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToAggregate(agg))
}

// MySpending GET /v1/me/spending
func (h *Handler) MySpending(w http.ResponseWriter, r *http.Request) {
	win, err := window(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	agg, err := h.ledger.SpendingForUser(r.Context(), principal(r).UserID, win)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToAggregate(agg))
}

// MyTransactions GET /v1/me/transactions
func (h *Handler) MyTransactions(w http.ResponseWriter, r *http.Request) {
	win, err := window(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	pg, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.ledger.UserTransactionsPaginated(r.Context(), principal(r).UserID, win, pg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToPage(page, convert.ToTransaction))
}

// MyTransactionTotals GET /v1/me/transactions/totals
func (h *Handler) MyTransactionTotals(w http.ResponseWriter, r *http.Request) {
	win, err := window(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.ledger.UserTransactionTotals(r.Context(), principal(r).UserID, win)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToTotals(t))
}

// Redeem mints a grant code's amount to the caller.
// POST /v1/credits/redeem
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req convert.RedeemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		h.writeError(w, r, fmt.Errorf("code is required: %w", errs.ErrInvalidArgument))
		return
	}
	m, err := h.grants.Redeem(r.Context(), code, principal(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToMint(*m))
}
