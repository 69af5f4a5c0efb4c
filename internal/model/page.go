package model

import (
	"fmt"
	"math"
	"time"

	"github.com/ArDnath/echo/internal/errs"
)

// Pagination limits.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps Page*PageSize within int.
	MaxPage = math.MaxInt / MaxPageSize
)

// Pagination is a zero-indexed page request.
type Pagination struct {
	Page     int
	PageSize int
}

// Validate rejects pages outside [0, MaxPage] and sizes outside [1, MaxPageSize].
func (p Pagination) Validate() error {
	if p.Page < 0 || p.Page > MaxPage {
		return fmt.Errorf("page %d: %w", p.Page, errs.ErrInvalidArgument)
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		return fmt.Errorf("page_size %d: %w", p.PageSize, errs.ErrInvalidArgument)
	}
	return nil
}

// Limit returns the SQL LIMIT value.
func (p Pagination) Limit() int { return p.PageSize }

// Offset returns the SQL OFFSET value.
func (p Pagination) Offset() int { return p.Page * p.PageSize }

// Page is one page of a larger ordered result set.
type Page[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	TotalCount int64
}

// NewPage builds a page result, never returning nil items.
func NewPage[T any](items []T, p Pagination, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Page: p.Page, PageSize: p.PageSize, TotalCount: total}
}

// Window is a half-open time range [From, To). A nil bound is unbounded.
type Window struct {
	From *time.Time
	To   *time.Time
}

// Validate rejects windows whose end is not after their start.
func (w Window) Validate() error {
	if w.From != nil && w.To != nil && !w.To.After(*w.From) {
		return fmt.Errorf("window end must be after start: %w", errs.ErrInvalidArgument)
	}
	return nil
}
