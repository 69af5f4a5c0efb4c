package httpserver

import (
	"net/http"
	"strings"

	"github.com/ArDnath/echo/internal/convert"
	"github.com/ArDnath/echo/internal/errs"
)

// paymentHeaders flattens request headers to lowercase keys, first value wins.
func paymentHeaders(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		if len(v) > 0 {
			out[strings.ToLower(k)] = v[0]
		}
	}
	return out
}

// AuthenticatePayment resolves the app and markup named by X-Echo-App-Id.
// POST /v1/payments/authenticate
func (h *Handler) AuthenticatePayment(w http.ResponseWriter, r *http.Request) {
	auth, err := h.payments.Authenticate(r.Context(), paymentHeaders(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToPaymentAuth(auth))
}

// RecordTransaction prices and appends a metered request. The caller bills
// itself unless it manages the app, in which case user_id may name any payer.
// POST /v1/payments/transactions
func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	auth, err := h.payments.Authenticate(r.Context(), paymentHeaders(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if auth == nil {
		h.writeError(w, r, errs.ErrUnauthenticated)
		return
	}

	var req convert.TransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.UserID == "" {
		req.UserID = p.UserID.String()
	}
	in, err := convert.FromTransactionRequest(req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if auth.EchoApp == nil {
		h.writeError(w, r, errs.ErrNotFound)
		return
	}
	if err := h.access.AuthorizePayer(r.Context(), p, auth.EchoApp.ID, in.UserID); err != nil {
		h.writeError(w, r, err)
		return
	}

	tx, err := h.payments.RecordTransaction(r.Context(), auth, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToTransaction(*tx))
}
