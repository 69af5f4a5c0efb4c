package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "name", "email", "is_admin", "created_at"}

func TestUserRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := &model.User{ID: uuid.Must(uuid.NewV4()), Name: "Ada", Email: "ada@example.com", CreatedAt: time.Now()}

	mock.ExpectExec(sq(`INSERT INTO users (id, name, email, is_admin, created_at) VALUES ($1, $2, $3, $4, $5)`)).
		WithArgs(u.ID, u.Name, u.Email, u.IsAdmin, u.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, u))

	mock.ExpectExec(sq(`INSERT INTO users`)).
		WithArgs(u.ID, u.Name, u.Email, u.IsAdmin, u.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, u), errs.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	now := time.Now()

	mock.ExpectQuery(sq(`SELECT id, name, email, is_admin, created_at FROM users WHERE id=$1`)).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(userColumns).AddRow(id, "Ada", "ada@example.com", true, now))
	u, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, u.ID)
	require.True(t, u.IsAdmin)

	mock.ExpectQuery(sq(`FROM users WHERE id=$1`)).WithArgs(id).WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByID(ctx, id)
	require.ErrorIs(t, err, errs.ErrNotFound)

	boom := errors.New("conn lost")
	mock.ExpectQuery(sq(`FROM users WHERE id=$1`)).WithArgs(id).WillReturnError(boom)
	_, err = r.GetByID(ctx, id)
	require.ErrorIs(t, err, boom)
}

func TestUserRepo_List(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	a, b := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	now := time.Now()

	mock.ExpectQuery(sq(`FROM users ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`)).
		WithArgs(2, 2).
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(a, "A", "a@x", false, now).
			AddRow(b, "B", "b@x", false, now.Add(-time.Hour)))
	mock.ExpectQuery(sq(`SELECT COUNT(*) FROM users`)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(5)))

	page, err := r.List(ctx, model.Pagination{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, int64(5), page.TotalCount)
	require.Equal(t, 1, page.Page)
	require.Equal(t, a, page.Items[0].ID)
}

func TestUserRepo_ListCreatedSince(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	id := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(sq(`FROM users WHERE created_at >= $1 ORDER BY created_at DESC, id DESC`)).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows(userColumns).AddRow(id, "A", "a@x", false, since.Add(time.Hour)))
	users, err := r.ListCreatedSince(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
