package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"convolab/internal/domain/user"
	convolab_errors "convolab/pkg/errors"
)

type PostgresUserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) UserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, u *user.User) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password) VALUES ($1, $2, $3) RETURNING id`,
		u.Username, u.Email, u.PasswordHash,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return convolab_errors.ErrAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id int64) (user.User, error) {
	return r.getOne(ctx,
		`SELECT id, username, email, password FROM users WHERE id = $1`, id)
}

func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx,
		`SELECT id, username, email, password FROM users WHERE email = $1`, email)
}

func (r *PostgresUserRepository) getOne(ctx context.Context, query string, arg interface{}) (user.User, error) {
	var u user.User
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, convolab_errors.ErrNotFound
		}
		return user.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}
