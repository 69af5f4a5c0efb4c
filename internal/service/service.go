// Package service contains application services for metering, credits and tokens.
package service

import (
	"fmt"
	"time"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
	"github.com/gofrs/uuid/v5"
)

// clock is overridden in tests.
type clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func requireAdmin(p model.Principal) error {
	if !p.IsAdmin {
		return errs.ErrForbidden
	}
	return nil
}

func requireID(name string, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("validation: empty %s: %w", name, errs.ErrInvalidArgument)
	}
	return nil
}
