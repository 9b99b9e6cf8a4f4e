package auth

import (
	"context"
	"database/sql"
	"errors"
)

var ErrAdminNotFound = errors.New("admin user not found")

type AdminUser struct {
	ID           uint
	Email        string
	PasswordHash string
}

type Repository interface {
	GetAdminByEmail(ctx context.Context, email string) (*AdminUser, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetAdminByEmail(ctx context.Context, email string) (*AdminUser, error) {
	var u AdminUser
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash FROM admin_users WHERE lower(email) = lower($1)
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
