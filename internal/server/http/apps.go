package httpserver

import (
	"net/http"

	"github.com/gofrs/uuid/v5"

	"github.com/ArDnath/echo/internal/convert"
	"github.com/ArDnath/echo/internal/model"
)

type markupResponse struct {
	MarkUp *convert.MarkUpDTO `json:"markup"`
}

// appWindow reads {appID} and the window; RequireAppAccess already validated the id.
func (h *Handler) appWindow(w http.ResponseWriter, r *http.Request) (uuid.UUID, model.Window, bool) {
	appID, err := urlID(r, "appID")
	if err != nil {
		h.writeError(w, r, err)
		return uuid.Nil, model.Window{}, false
	}
	win, err := window(r)
	if err != nil {
		h.writeError(w, r, err)
		return uuid.Nil, model.Window{}, false
	}
	return appID, win, true
}

// CurrentMarkup returns the markup in force, or null when none was set.
// GET /v1/apps/{appID}/markup
func (h *Handler) CurrentMarkup(w http.ResponseWriter, r *http.Request) {
	appID, err := urlID(r, "appID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.markups.Current(r.Context(), appID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var resp markupResponse
	if m != nil {
		dto := convert.ToMarkUp(*m)
		resp.MarkUp = &dto
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetMarkup POST /v1/apps/{appID}/markup
func (h *Handler) SetMarkup(w http.ResponseWriter, r *http.Request) {
	appID, err := urlID(r, "appID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req convert.MarkupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rate, err := convert.ParseDecimal("rate", req.Rate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.markups.Set(r.Context(), appID, rate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dto := convert.ToMarkUp(*m)
	writeJSON(w, http.StatusCreated, markupResponse{MarkUp: &dto})
}

// MarkupHistory GET /v1/apps/{appID}/markup/history
func (h *Handler) MarkupHistory(w http.ResponseWriter, r *http.Request) {
	appID, err := urlID(r, "appID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	pg, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.markups.History(r.Context(), appID, pg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToPage(page, convert.ToMarkUp))
}

// AppEarnings GET /v1/apps/{appID}/earnings
func (h *Handler) AppEarnings(w http.ResponseWriter, r *http.Request) {
	appID, win, ok := h.appWindow(w, r)
	if !ok {
		return
	}
	agg, err := h.ledger.EarningsForApp(r.Context(), appID, win)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToAggregate(agg))
}

// AppSpending GET /v1/apps/{appID}/spending
func (h *Handler) AppSpending(w http.ResponseWriter, r *http.Request) {
	appID, win, ok := h.appWindow(w, r)
	if !ok {
		return
	}
	agg, err := h.ledger.SpendingForApp(r.Context(), appID, win)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToAggregate(agg))
}

// AppTransactions GET /v1/apps/{appID}/transactions
func (h *Handler) AppTransactions(w http.ResponseWriter, r *http.Request) {
	appID, win, ok := h.appWindow(w, r)
	if !ok {
		return
	}
	pg, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.ledger.AppTransactionsPaginated(r.Context(), appID, win, pg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToPage(page, convert.ToTransaction))
}

// AppTransactionTotals GET /v1/apps/{appID}/transactions/totals
func (h *Handler) AppTransactionTotals(w http.ResponseWriter, r *http.Request) {
	appID, win, ok := h.appWindow(w, r)
	if !ok {
		return
	}
	t, err := h.ledger.AppTransactionTotals(r.Context(), appID, win)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToTotals(t))
}
