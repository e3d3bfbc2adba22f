package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/avisos-backend/internal/core/domain"
	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
	"github.com/lorrc/avisos-backend/internal/core/ports"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(pool *pgxpool.Pool) ports.UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.HashedPassword, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	const query = `
INSERT INTO users (name, email, password_hash, role)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns

	created, err := scanUser(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		user.Name, user.Email, user.HashedPassword, string(user.Role)))
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return nil, apperrors.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(GetDBTX(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(GetDBTX(ctx, r.pool).QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// List returns a page of accounts ordered by id with the total count.
func (r *UserRepository) List(ctx context.Context, params ports.ListUsersParams) ([]*domain.User, int64, error) {
	const where = ` WHERE ($1::text IS NULL OR role = $1)`
	db := GetDBTX(ctx, r.pool)

	var role *string
	if params.Role != nil {
		name := string(*params.Role)
		role = &name
	}

	var total int64
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, toNullText(role)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := db.Query(ctx,
		`SELECT `+userColumns+` FROM users`+where+` ORDER BY id LIMIT $2 OFFSET $3`,
		toNullText(role), params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update stores every mutable field of the account.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	const query = `
UPDATE users
SET name = $2, email = $3, password_hash = $4, role = $5, updated_at = NOW()
WHERE id = $1
RETURNING ` + userColumns

	updated, err := scanUser(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		user.ID, user.Name, user.Email, user.HashedPassword, string(user.Role)))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.ErrUserNotFound
	case isPgError(err, pgUniqueViolation):
		return nil, apperrors.ErrUserExists
	case err != nil:
		return nil, fmt.Errorf("update user %d: %w", user.ID, err)
	}
	return updated, nil
}

// Delete removes an account that owns no announcements or comments.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return apperrors.ErrUserInUse
		}
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}
