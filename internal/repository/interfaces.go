package repository

import (
	"context"

	"convolab/internal/domain/user"
)

type UserRepository interface {
	// Create inserts u and sets u.ID to the storage-assigned id.
	Create(ctx context.Context, u *user.User) error
	GetUserByID(ctx context.Context, id int64) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
}
