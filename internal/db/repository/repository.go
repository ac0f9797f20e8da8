package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cozy-creator/influencer-studio/internal/types"
)

// Repository is the owner-scoped CRUD surface shared by the domain repositories.
type Repository[T any] interface {
	Create(ctx context.Context, arg *T) (*T, error)
	GetByID(ctx context.Context, id, ownerID string) (*T, error)
	DeleteByID(ctx context.Context, id, ownerID string) error
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return types.NotFound(what)
	}
	return err
}

func affected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
