package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"vacations-api/internal/apperror"
	"vacations-api/internal/domain"
	"vacations-api/internal/repository"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Email = normalizeEmail(user.Email)

	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (first_name, last_name, email, password_hash, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperror.Conflict("email already exists", err)
		}
		return 0, apperror.Query("insert user", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperror.Query("user last insert id", err)
	}
	user.ID = id
	return id, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, first_name, last_name, email, password_hash, role, created_at, updated_at
FROM users
WHERE email = ?`,
		normalizeEmail(email),
	)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, first_name, last_name, email, password_hash, role, created_at, updated_at
FROM users
WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, update domain.ProfileUpdate) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET first_name=?, last_name=?, email=?, updated_at=?
WHERE id=?`,
		update.FirstName,
		update.LastName,
		normalizeEmail(update.Email),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("email already exists", err)
		}
		return apperror.Query("update user profile", err)
	}
	return expectAffected(res, "user not found")
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET password_hash=?, updated_at=?
WHERE id=?`,
		passwordHash,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return apperror.Query("update user password", err)
	}
	return expectAffected(res, "user not found")
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	if err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Query("scan user", err)
	}
	user.Role = domain.Role(role)
	return &user, nil
}

func expectAffected(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.Query("rows affected", err)
	}
	if n == 0 {
		return apperror.NotFound(notFound)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

