package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/ArDnath/echo/internal/model"
	"github.com/ArDnath/echo/internal/repository"
)

// AdminService exposes operator reads and the user export.
type AdminService interface {
	ListUsers(ctx context.Context, p model.Principal, page model.Pagination) (model.Page[model.User], error)
	ListAppsOwnedBy(ctx context.Context, p model.Principal, userID uuid.UUID) ([]model.EchoApp, error)
	// ExportUsersCSV renders users created on or after createdAfter, newest first.
	ExportUsersCSV(ctx context.Context, p model.Principal, createdAfter time.Time) (*model.UserCSVExport, error)
}

type AdminServiceImpl struct {
	users repository.UserRepository
	apps  repository.AppRepository
	log   *zap.Logger
}

// NewAdminService constructs AdminService.
func NewAdminService(users repository.UserRepository, apps repository.AppRepository, log *zap.Logger) *AdminServiceImpl {
	return &AdminServiceImpl{users: users, apps: apps, log: log}
}

func (s *AdminServiceImpl) ListUsers(ctx context.Context, p model.Principal, page model.Pagination) (model.Page[model.User], error) {
	if err := requireAdmin(p); err != nil {
		return model.Page[model.User]{}, err
	}
	if err := page.Validate(); err != nil {
		return model.Page[model.User]{}, err
	}
	return s.users.List(ctx, page)
}

func (s *AdminServiceImpl) ListAppsOwnedBy(ctx context.Context, p model.Principal, userID uuid.UUID) ([]model.EchoApp, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if err := requireID("user id", userID); err != nil {
		return nil, err
	}
	return s.apps.ListOwnedBy(ctx, userID)
}

var csvHeader = []string{"ID", "Name", "Email", "Created At"}

func (s *AdminServiceImpl) ExportUsersCSV(ctx context.Context, p model.Principal, createdAfter time.Time) (*model.UserCSVExport, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	users, err := s.users.ListCreatedSince(ctx, createdAfter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var buf bytes.Buffer
	writeCSVRow(&buf, csvHeader)
	for _, u := range users {
		buf.WriteByte('\n')
		writeCSVRow(&buf, []string{u.ID.String(), u.Name, u.Email, u.CreatedAt.UTC().Format(time.RFC3339)})
	}

	s.log.Info("users exported", zap.Int("count", len(users)), zap.String("by", p.UserID.String()))
	return &model.UserCSVExport{
		Filename:  "users-created-after-" + createdAfter.UTC().Format("2006-01-02") + ".csv",
		Content:   buf.Bytes(),
		UserCount: len(users),
	}, nil
}

// writeCSVRow quotes every field, doubling embedded quotes.
func writeCSVRow(buf *bytes.Buffer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(f, `"`, `""`))
		buf.WriteByte('"')
	}
}
