package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vasiliy-maslov/shop-service/internal/auth"
	"github.com/vasiliy-maslov/shop-service/internal/user"
)

const userColumns = `id::text, email, name, password_hash, role, phone, address, city, postal_code,
	country, is_active, created_at, updated_at`

type UserRepository struct {
	q querier
}

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	id, err := newID()
	if err != nil {
		return fmt.Errorf("repository: failed to generate user id: %w", err)
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO users (id, email, name, password_hash, role, phone, address, city, postal_code,
			country, is_active, created_at, updated_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
	`
	_, err = r.q.Exec(ctx, query,
		id, u.Email, u.Name, u.PasswordHash, string(u.Role), u.Phone, u.Address, u.City,
		u.PostalCode, u.Country, u.IsActive, now,
	)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return user.ErrEmailExists
		}
		return fmt.Errorf("repository: failed to insert user: %w", err)
	}

	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	if !validID(id) {
		return nil, user.ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1::uuid`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("repository: failed to count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg string) (*user.User, error) {
	var (
		u    user.User
		role string
	)
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&role,
		&u.Phone,
		&u.Address,
		&u.City,
		&u.PostalCode,
		&u.Country,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select user: %w", err)
	}
	u.Role = auth.Role(role)
	return &u, nil
}
