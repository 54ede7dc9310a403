package repository

import (
	"context"

	"vacations-api/internal/domain"
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, id int64, update domain.ProfileUpdate) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}
