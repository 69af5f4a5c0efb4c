// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// Membership roles on an EchoApp.
const (
	RoleOwner    = "owner"
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// User is an account that may own apps, pay for requests and redeem grants.
type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	IsAdmin   bool
	CreatedAt time.Time
}

// EchoApp is a developer-registered application that meters and bills requests.
type EchoApp struct {
	ID          uuid.UUID
	Name        string
	Description string
	IsArchived  bool
	CreatedAt   time.Time
}

// AppMembership links a user to an app with a role.
type AppMembership struct {
	UserID    uuid.UUID
	EchoAppID uuid.UUID
	Role      string
	CreatedAt time.Time
}

// MarkUp is one entry of an app's pricing history. The most recent entry is in force.
type MarkUp struct {
	ID        uuid.UUID
	EchoAppID uuid.UUID
	Rate      decimal.Decimal // fraction of raw cost, 0.25 == 25%
	CreatedAt time.Time
}

// PaymentAuth is the result of authenticating a payment request.
// EchoApp is nil when the header named an app that does not exist.
type PaymentAuth struct {
	EchoApp *EchoApp
	MarkUp  *MarkUp
}

// Principal is the authenticated caller resolved once per request.
type Principal struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// UserCSVExport is a rendered user export.
type UserCSVExport struct {
	Filename  string
	Content   []byte
	UserCount int
}
