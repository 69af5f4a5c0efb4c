package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/ArDnath/echo/internal/convert"
	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps domain sentinels to HTTP statuses. Unknown errors are logged and hidden.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, errs.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, errs.ErrAlreadyRedeemed):
		status, code = http.StatusConflict, "already_redeemed"
	case errors.Is(err, errs.ErrAlreadyExists):
		status, code = http.StatusConflict, "already_exists"
	case errors.Is(err, errs.ErrTokenExpired):
		status, code = http.StatusUnauthorized, "token_expired"
	case errors.Is(err, errs.ErrUnauthenticated):
		status, code = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, errs.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, errs.ErrInvalidArgument), errors.Is(err, errs.ErrConstraintViolation):
		status, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, errs.ErrGrantInactive):
		status, code = http.StatusUnprocessableEntity, "grant_inactive"
	case errors.Is(err, errs.ErrRateLimited):
		status, code = http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	default:
		h.log.Error("internal error",
			zap.Error(err),
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "internal"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

// decodeJSON reads a single JSON object, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("request body: %v: %w", err, errs.ErrInvalidArgument)
	}
	return nil
}

func urlID(r *http.Request, name string) (uuid.UUID, error) {
	return convert.ParseID(name, chi.URLParam(r, name))
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%s: expected RFC3339: %w", name, errs.ErrInvalidArgument)
	}
	return &t, nil
}

// window reads the optional from/to bounds.
func window(r *http.Request) (model.Window, error) {
	from, err := queryTime(r, "from")
	if err != nil {
		return model.Window{}, err
	}
	to, err := queryTime(r, "to")
	if err != nil {
		return model.Window{}, err
	}
	return model.Window{From: from, To: to}, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: not an integer: %w", name, errs.ErrInvalidArgument)
	}
	return n, nil
}

// pagination reads page (default 0) and page_size (default model.DefaultPageSize).
func pagination(r *http.Request) (model.Pagination, error) {
	page, err := queryInt(r, "page", 0)
	if err != nil {
		return model.Pagination{}, err
	}
	size, err := queryInt(r, "page_size", model.DefaultPageSize)
	if err != nil {
		return model.Pagination{}, err
	}
	return model.Pagination{Page: page, PageSize: size}, nil
}

// clientIP strips the port from RemoteAddr; RealIP may already have replaced it with a bare address.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
