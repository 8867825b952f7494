package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrDuplicateEmail    = errors.New("duplicate email")
	ErrDuplicateUsername = errors.New("duplicate username")
)

const (
	uniqueViolation = "23505"

	constraintUsersEmail    = "users_email_key"
	constraintUsersUsername = "users_username_key"
)

// DB is the subset of *pgxpool.Pool used by the repositories
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// mapUniqueViolation translates unique constraint failures on users into
// repository errors. Other errors are returned unchanged.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case constraintUsersEmail:
		return ErrDuplicateEmail
	case constraintUsersUsername:
		return ErrDuplicateUsername
	}
	return err
}
