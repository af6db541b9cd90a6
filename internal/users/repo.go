package users

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ariefcatur/go-parts-shop/internal/postgres"
)

type Repo struct{ DB postgres.DBTX }

var _ Store = (*Repo)(nil)

func (r *Repo) Create(ctx context.Context, u User) (User, error) {
	u.ID = uuid.NewString()
	err := r.DB.QueryRow(ctx, `
		INSERT INTO users(id, email, name, password_hash, role) VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`, u.ID, u.Email, u.Name, u.PasswordHash, u.Role).Scan(&u.CreatedAt)
	if postgres.IsUniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	if err != nil {
		return User{}, errors.Wrap(err, "insert user")
	}
	return u, nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := r.DB.QueryRow(ctx, `SELECT id, email, name, password_hash, role, created_at FROM users WHERE email=$1`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if postgres.IsNoRows(err) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, errors.Wrap(err, "get user")
	}
	return u, nil
}

func (r *Repo) List(ctx context.Context) ([]User, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, email, name, role, created_at FROM users ORDER BY created_at, email`)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan user")
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
